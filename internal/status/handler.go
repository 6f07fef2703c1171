// Package status exposes liveness and dependency health.
package status

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"deicer/pkg/platform/httputil"
)

// Checker reports the health of one named dependency.
type Checker interface {
	Health(ctx context.Context) error
}

// Handler serves the health endpoint. Dependencies are optional; with none
// registered, /healthz reports process liveness only.
type Handler struct {
	checks map[string]Checker
}

func New() *Handler {
	return &Handler{checks: make(map[string]Checker)}
}

// AddCheck registers a named dependency check. Nil checkers are ignored so
// callers can pass optional dependencies unconditionally.
func (h *Handler) AddCheck(name string, c Checker) {
	if c != nil {
		h.checks[name] = c
	}
}

// Register mounts the health endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.HandleHealth)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleHealth handles GET /healthz requests. Any failing dependency makes
// the whole response a 503 so orchestrators take the instance out of
// rotation.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := healthResponse{Status: "ok"}
	status := http.StatusOK

	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
		for name, check := range h.checks {
			if err := check.Health(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			} else {
				resp.Checks[name] = "ok"
			}
		}
	}

	httputil.WriteJSON(w, status, resp)
}
