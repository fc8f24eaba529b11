package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/KoSuyeon/SKAI-project/internal/api/response"
)

// ReadinessCheck reports whether the service can answer normalize requests.
type ReadinessCheck func(ctx context.Context) error

// HealthHandler handles health check requests.
type HealthHandler struct {
	ready ReadinessCheck
}

// NewHealthHandler creates a new health handler. ready may be nil, in which case
// /ready behaves like /health.
func NewHealthHandler(ready ReadinessCheck) *HealthHandler {
	return &HealthHandler{ready: ready}
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health check response", "error", err)
	}
}

// Ready handles GET /ready.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			slog.WarnContext(r.Context(), "readiness check failed", "error", err)
			response.RespondServiceUnavailable(w, "Term index is not ready")

			return
		}
	}

	h.Check(w, r)
}
