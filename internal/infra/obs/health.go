package obs

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Check is one named readiness probe.
type Check struct {
	Name  string
	Probe func() error
}

// HealthHandlers exposes endpoints for liveness and readiness checks.
type HealthHandlers struct {
	Checks []Check
}

func (h HealthHandlers) Livez(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz runs every check and fails with 503 when any of them does.
func (h HealthHandlers) Readyz(c *gin.Context) {
	results := make(gin.H, len(h.Checks))
	ready := true
	for _, check := range h.Checks {
		if check.Probe == nil {
			continue
		}
		if err := check.Probe(); err != nil {
			ready = false
			results[check.Name] = err.Error()
			continue
		}
		results[check.Name] = "ok"
	}
	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "checks": results})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": results})
}
