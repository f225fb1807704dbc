// Package health implements the hub's liveness/readiness probes,
// adapted from the teacher's internal/v1/health/handler.go: liveness
// never touches a dependency, readiness checks every critical one and
// reports per-dependency status. The teacher's SFU gRPC health check
// has no counterpart here (this hub has no media-plane peer to ping);
// readiness instead checks the optional cross-instance bus.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// BusPinger is the dependency readiness checks; *bus.Service satisfies
// it, and is nil-safe for single-instance deployments (§3.1).
type BusPinger interface {
	Ping(ctx context.Context) error
}

// Handler serves /health/live and /health/ready.
type Handler struct {
	bus BusPinger
}

// NewHandler returns a Handler. bus may be nil when the cross-instance
// bus is disabled, in which case readiness always reports it healthy.
func NewHandler(bus BusPinger) *Handler {
	return &Handler{bus: bus}
}

// LivenessResponse is the liveness probe body.
type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse is the readiness probe body.
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Liveness reports the process is alive; it never checks a dependency.
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness reports 200 only if every checked dependency is healthy,
// 503 otherwise.
func (h *Handler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{"bus": h.checkBus(ctx)}
	allHealthy := true
	for _, status := range checks {
		if status != "healthy" {
			allHealthy = false
		}
	}

	status := "ready"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "unavailable"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, ReadinessResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) checkBus(ctx context.Context) string {
	if h.bus == nil {
		return "healthy"
	}
	if err := h.bus.Ping(ctx); err != nil {
		return "unhealthy"
	}
	return "healthy"
}
