package handler

import (
	"net/http"
)

// Health handles GET /health: a liveness probe backed by a store ping.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	if err := a.store.HealthCheck(r.Context()); err != nil {
		RespondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
