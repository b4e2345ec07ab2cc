package handler

import (
	"net/http"
	"time"

	"github.com/kubo-market/minio-sentinel/internal/cooldown"
	"github.com/kubo-market/minio-sentinel/internal/window"
)

// StatusHandler exposes the engine's internal state: per-metric window
// readiness, baseline statistics and cooldown positions.
type StatusHandler struct {
	windows  *window.Store
	gate     *cooldown.Gate
	cooldown time.Duration
	started  time.Time
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(windows *window.Store, gate *cooldown.Gate, cooldownDur time.Duration) *StatusHandler {
	return &StatusHandler{
		windows:  windows,
		gate:     gate,
		cooldown: cooldownDur,
		started:  time.Now(),
	}
}

type statusResponse struct {
	UptimeSeconds int64                   `json:"uptime_seconds"`
	Windows       []window.SeriesSnapshot `json:"windows"`
	Cooldowns     []cooldown.State        `json:"cooldowns"`
}

// Status handles GET /v1/status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	writeJSON(w, http.StatusOK, statusResponse{
		UptimeSeconds: int64(now.Sub(h.started).Seconds()),
		Windows:       h.windows.Snapshot(),
		Cooldowns:     h.gate.Snapshot(now, h.cooldown),
	})
}
