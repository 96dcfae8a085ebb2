package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/greensmil/site_api/internal/utils"
)

var startTime = time.Now()

// Pinger is a dependency the health endpoint reports on.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides health endpoint.
type HealthHandler struct {
	version string
	deps    map[string]Pinger
}

// NewHealthHandler creates a new HealthHandler. deps may be nil.
func NewHealthHandler(version string, deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{version: version, deps: deps}
}

// GetHealth responds with service status, uptime in seconds and the state of
// optional dependencies. An unreachable dependency degrades the status but
// the endpoint still answers 200.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	deps := make(gin.H, len(h.deps))
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			deps[name] = "disconnected"
			status = "degraded"
			continue
		}
		deps[name] = "connected"
	}

	utils.Success(c, 200, "Service is "+status, gin.H{
		"status":       status,
		"version":      h.version,
		"uptime":       int(time.Since(startTime).Seconds()),
		"dependencies": deps,
	})
}
