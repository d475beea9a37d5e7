package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kenyafarmiot/farmdb/internal/bootstrap"
	"github.com/kenyafarmiot/farmdb/internal/database"
)

// Health is the body of GET /api/health.
type Health struct {
	Status     string           `json:"status"`
	Database   string           `json:"database"`
	Migrations bootstrap.Report `json:"migrations"`
	Timestamp  string           `json:"timestamp"`
	Region     string           `json:"region"`
	Service    string           `json:"service"`
}

// Health statuses.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

func (s *Server) handleHealth(c *gin.Context) {
	h := Health{
		Status:     StatusHealthy,
		Database:   "connected",
		Migrations: s.report,
		Timestamp:  s.now().UTC().Format(time.RFC3339),
		Region:     region,
		Service:    serviceName,
	}

	if err := database.Check(c.Request.Context(), s.pinger, s.pingTimeout); err != nil {
		s.log.WithError(err).Warn("health check ping failed")

		h.Status = StatusUnhealthy
		h.Database = "disconnected"
	} else if s.report.Error != "" {
		h.Status = StatusDegraded
	}

	code := http.StatusOK
	if h.Status != StatusHealthy {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, h)
}

func (s *Server) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    serviceName + " API",
		"version": "1.0",
		"endpoints": gin.H{
			"health": "/api/health",
		},
	})
}
