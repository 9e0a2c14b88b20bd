package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ReadinessCheck reports whether one dependency is ready to serve.
type ReadinessCheck func() error

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	version string
	checks  map[string]ReadinessCheck
}

// NewHealthHandler constructs the handler.  Checks run on every readiness
// probe, so they must be cheap.
func NewHealthHandler(version string, checks map[string]ReadinessCheck) *HealthHandler {
	return &HealthHandler{version: version, checks: checks}
}

// Liveness handles GET /healthz.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}

// Readiness handles GET /readyz.  Any failing check flips the status to 503
// with the per-check detail.
func (h *HealthHandler) Readiness(c *gin.Context) {
	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "checks": results})
}
