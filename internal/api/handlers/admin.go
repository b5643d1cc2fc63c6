package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thearyadev/epson-esc-proxy/internal/journal"
	"github.com/thearyadev/epson-esc-proxy/internal/printer"
)

type ListJobsQuery struct {
	Status string `form:"status"`
	Intent string `form:"intent"`
	Limit  int    `form:"limit" binding:"max=100"`
	Offset int    `form:"offset"`
}

// AdminHandler serves the read-only operational API: the request journal
// and the state of the managed printer.
type AdminHandler struct {
	journal *journal.Journal
	manager *printer.Manager
}

func NewAdminHandler(j *journal.Journal, m *printer.Manager) *AdminHandler {
	return &AdminHandler{journal: j, manager: m}
}

func (h *AdminHandler) ListJobs(c *gin.Context) {
	var query ListJobsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if query.Limit <= 0 {
		query.Limit = 50
	}

	jobs, err := h.journal.List(c.Request.Context(), journal.Filter{
		Status: query.Status,
		Intent: query.Intent,
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":   jobs,
		"limit":  query.Limit,
		"offset": query.Offset,
		"count":  len(jobs),
	})
}

func (h *AdminHandler) GetJob(c *gin.Context) {
	job, err := h.journal.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, journal.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get job"})
		return
	}

	c.JSON(http.StatusOK, job)
}

func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.journal.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) GetPrinter(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.Info())
}

func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/jobs", h.ListJobs)
	r.GET("/jobs/:id", h.GetJob)
	r.GET("/stats", h.GetStats)
	r.GET("/printer", h.GetPrinter)
}
