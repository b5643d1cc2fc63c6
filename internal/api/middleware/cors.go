package middleware

import "github.com/gin-gonic/gin"

// CORS stamps the cross-origin headers ePOS clients expect onto every
// response. The caller's Origin is echoed back verbatim so browser POS
// pages served from any host can reach the proxy; absent an Origin the
// wildcard is used.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")
		c.Next()
	}
}
