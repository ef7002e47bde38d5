package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// healthCheckTimeout bounds each dependency ping
const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency that can report its health
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// Ping calls f
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler reports service liveness and dependency health
type HealthHandler struct {
	BaseHandler
	version string
	started time.Time
	checks  map[string]Pinger
}

// NewHealthHandler creates a new HealthHandler. A nil check is skipped.
func NewHealthHandler(version string, checks map[string]Pinger) *HealthHandler {
	live := make(map[string]Pinger, len(checks))
	for name, p := range checks {
		if p != nil {
			live[name] = p
		}
	}
	return &HealthHandler{version: version, started: time.Now(), checks: live}
}

// Health godoc
// @Summary      Health check
// @Description  Pings the database and cache. Returns 503 when any dependency is down.
// @Tags         health
// @Produce      json
// @Success      200 {object} APIResponse[HealthData]
// @Failure      503 {object} APIResponse[HealthData]
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	data := HealthData{
		Status:  "ok",
		Version: h.version,
		Checks:  make(map[string]string, len(h.checks)),
		Uptime:  time.Since(h.started).Round(time.Second).String(),
	}
	for name, p := range h.checks {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		err := p.Ping(ctx)
		cancel()
		if err != nil {
			data.Checks[name] = err.Error()
			data.Status = "degraded"
			continue
		}
		data.Checks[name] = "ok"
	}

	if data.Status != "ok" {
		c.JSON(http.StatusServiceUnavailable, APIResponse[HealthData]{Success: false, Data: data})
		return
	}
	h.Success(c, data)
}
