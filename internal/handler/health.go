package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/capitalize-ai/thinking-workspace/internal/storage"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	pinger storage.Pinger
}

// NewHealthHandler creates a health handler. A nil pinger is always ready.
func NewHealthHandler(pinger storage.Pinger) *HealthHandler {
	return &HealthHandler{pinger: pinger}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.pinger.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"reason": err.Error(),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
