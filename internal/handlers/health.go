package handlers

import (
	"net/http"

	"terminal_bridge/internal/services"
)

// HealthHandler reports bridge health.
type HealthHandler struct {
	reporter *services.HealthReporter
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(reporter *services.HealthReporter) *HealthHandler {
	return &HealthHandler{reporter: reporter}
}

// Get returns 503 when the terminal is unusable, 200 otherwise.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	health := h.reporter.GetHealth(r.Context())

	status := http.StatusOK
	if health.Status == services.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}
