// Package api assembles the HTTP surface: the ePOS catch-all gateway plus
// the reserved /metrics and /admin/api paths.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/thearyadev/epson-esc-proxy/internal/api/handlers"
	"github.com/thearyadev/epson-esc-proxy/internal/api/middleware"
	"github.com/thearyadev/epson-esc-proxy/internal/metrics"
)

// NewRouter builds the gin engine. ePOS clients POST to whatever service
// path their SDK was configured with, so the gateway claims every path via
// NoRoute and only /metrics and /admin/api are carved out. auth and admin
// are nil when the admin API is disabled; the carve-out then shrinks to
// /metrics alone. An unregistered method on a reserved path falls through
// to the gateway, which keeps maximum wire compatibility.
func NewRouter(gateway *handlers.Gateway, admin *handlers.AdminHandler, auth *middleware.AuthMiddleware, m *metrics.Metrics) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())

	r.GET("/metrics", gin.WrapH(m.Handler()))

	if admin != nil && auth != nil {
		group := r.Group("/admin/api")
		group.POST("/setup", auth.SetupHandler)
		group.POST("/login", auth.LoginHandler)
		group.POST("/logout", auth.LogoutHandler)
		group.GET("/status", auth.StatusHandler)

		protected := group.Group("")
		protected.Use(auth.RequireAuth())
		protected.POST("/password", auth.ChangePasswordHandler)
		admin.RegisterRoutes(protected)
	}

	r.NoRoute(gateway.Handle)

	return r
}
