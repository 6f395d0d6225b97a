package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"creatorx/internal/events"
	"creatorx/internal/worker"
)

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports process health and background work counters.
type HealthHandler struct {
	db    Pinger
	hub   func() events.HubStats
	queue func() worker.Stats
}

// NewHealthHandler creates a new HealthHandler. hub and queue may be nil.
func NewHealthHandler(db Pinger, hub func() events.HubStats, queue func() worker.Stats) *HealthHandler {
	return &HealthHandler{db: db, hub: hub, queue: queue}
}

// HealthResponse is the health endpoint payload.
type HealthResponse struct {
	Status   string           `json:"status"`
	Database string           `json:"database"`
	Events   *events.HubStats `json:"events,omitempty"`
	Tasks    *worker.Stats    `json:"tasks,omitempty"`
}

// Health reports whether the API and its database are up.
// @Summary     Health check
// @Tags        ops
// @Produce     json
// @Success     200 {object} HealthResponse "Healthy"
// @Failure     503 {object} HealthResponse "Database unreachable"
// @Router      /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Database: "ok"}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		resp.Status, resp.Database = "degraded", err.Error()
		status = http.StatusServiceUnavailable
	}

	if h.hub != nil {
		stats := h.hub()
		resp.Events = &stats
	}
	if h.queue != nil {
		stats := h.queue()
		resp.Tasks = &stats
	}

	c.JSON(status, resp)
}
