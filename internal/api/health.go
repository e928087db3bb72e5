package api

import (
	"context"
	"net/http"
	"time"

	"github.com/memspace/memspace/internal/api/respond"
)

// HealthPinger is anything that can report its own liveness.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}

type HealthHandler struct {
	db HealthPinger
}

func NewHealthHandler(db HealthPinger) *HealthHandler { return &HealthHandler{db: db} }

// CheckHealth GET /api/health
// Always returns 200; the body reports healthy/unhealthy per dependency.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	deps := map[string]string{}
	if err := h.db.HealthPing(ctx); err != nil {
		status = "unhealthy"
		deps["postgres"] = err.Error()
	} else {
		deps["postgres"] = "ok"
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":       status,
		"dependencies": deps,
		"timestamp":    time.Now().Format(time.RFC3339),
	})
}
