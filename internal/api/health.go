package api

import (
	"net/http"

	"github.com/geoffjay/berry/internal/api/respond"
)

// HealthHandler reports aggregate service health.
type HealthHandler struct {
	isHealthy func() bool
}

// NewHealthHandler binds the handler to a health probe; nil means always
// healthy (useful in tests).
func NewHealthHandler(isHealthy func() bool) *HealthHandler {
	return &HealthHandler{isHealthy: isHealthy}
}

// CheckHealth GET /api/health
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	if h.isHealthy != nil && !h.isHealthy() {
		respond.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
