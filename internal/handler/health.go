package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides liveness and readiness probes.
type HealthHandler struct {
	credentials Pinger
}

// NewHealthHandler creates a HealthHandler that checks the credential backend.
func NewHealthHandler(credentials Pinger) *HealthHandler {
	return &HealthHandler{credentials: credentials}
}

// Healthz is the liveness probe.
func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz is the readiness probe. It fails while the credential backend is
// unreachable.
func (h *HealthHandler) Readyz(c *gin.Context) {
	if err := h.credentials.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"reason": "credential backend unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
