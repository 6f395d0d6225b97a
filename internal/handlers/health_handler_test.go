package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"creatorx/internal/events"
	"creatorx/internal/worker"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	t.Run("healthy with counters", func(t *testing.T) {
		h := NewHealthHandler(
			pingerFunc(func(context.Context) error { return nil }),
			func() events.HubStats { return events.HubStats{Clients: 2, Published: 7} },
			func() worker.Stats { return worker.Stats{Succeeded: 4} },
		)
		r := gin.New()
		r.GET("/health", h.Health)

		rec := doRequest(r, "GET", "/health", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["status"] != "ok" {
			t.Errorf("expected ok, got %v", result["status"])
		}
		if result["events"].(map[string]interface{})["clients"] != float64(2) {
			t.Error("expected hub counters")
		}
		if result["tasks"].(map[string]interface{})["succeeded"] != float64(4) {
			t.Error("expected task counters")
		}
	})

	t.Run("degraded when database is down", func(t *testing.T) {
		h := NewHealthHandler(pingerFunc(func(context.Context) error { return errors.New("connection refused") }), nil, nil)
		r := gin.New()
		r.GET("/health", h.Health)

		rec := doRequest(r, "GET", "/health", "")

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["status"] != "degraded" || result["events"] != nil {
			t.Errorf("unexpected body %v", result)
		}
	})
}
