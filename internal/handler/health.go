package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthHandler serves liveness and readiness. Readiness runs the registered
// dependency checks (database, redis) with a short per-check timeout.
type HealthHandler struct {
	checks map[string]func(ctx context.Context) error
	logger Logger
}

func NewHealthHandler(checks map[string]func(ctx context.Context) error, log Logger) *HealthHandler {
	return &HealthHandler{checks: checks, logger: log}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	results := make(map[string]string, len(h.checks))
	healthy := true

	for name, check := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := check(ctx)
		cancel()
		if err != nil {
			healthy = false
			results[name] = err.Error()
			h.logger.Warn("Readiness check failed", map[string]interface{}{
				"check": name,
				"error": err.Error(),
			})
			continue
		}
		results[name] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, map[string]interface{}{
		"status": map[bool]string{true: "ready", false: "not ready"}[healthy],
		"checks": results,
	})
}
