package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger checks a collaborator's reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports daemon and collaborator health.
type HealthHandler struct {
	source Pinger
	db     Pinger // nil when alert history is disabled
}

// NewHealthHandler creates a new HealthHandler. db may be nil.
func NewHealthHandler(source, db Pinger) *HealthHandler {
	return &HealthHandler{source: source, db: db}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := map[string]string{
		"status":     "healthy",
		"prometheus": "reachable",
	}
	code := http.StatusOK

	if err := h.source.Ping(ctx); err != nil {
		status["status"] = "unhealthy"
		status["prometheus"] = "unreachable"
		code = http.StatusServiceUnavailable
	}

	if h.db != nil {
		status["database"] = "connected"
		if err := h.db.Ping(ctx); err != nil {
			status["status"] = "unhealthy"
			status["database"] = "disconnected"
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, status)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
