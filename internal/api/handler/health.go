package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rt0111/onayformukontrol/internal/api/response"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus is the body of the health endpoint.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Rules  int               `json:"risk_phrases"`
}

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health.
// Any failing dependency turns the response into a 503.
func NewHealthHandler(phraseCount int, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := HealthStatus{Status: "ok", Rules: phraseCount}
		if len(deps) > 0 {
			status.Checks = make(map[string]string, len(deps))
		}
		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				status.Status = "degraded"
				status.Checks[name] = err.Error()
				continue
			}
			status.Checks[name] = "ok"
		}

		if status.Status != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "UNHEALTHY", "A dependency is unavailable", status)
			return
		}
		response.JSON(w, status)
	}
}
