package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/kubo-market/minio-sentinel/internal/domain"
	"github.com/kubo-market/minio-sentinel/internal/storage"
)

const defaultAlertLimit = 50

// AlertsHandler serves the persisted alert history. repo may be nil when
// no database is configured.
type AlertsHandler struct {
	repo storage.AlertRepository
}

// NewAlertsHandler creates a new AlertsHandler.
func NewAlertsHandler(repo storage.AlertRepository) *AlertsHandler {
	return &AlertsHandler{repo: repo}
}

// Recent handles GET /v1/alerts?limit=
func (h *AlertsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": domain.ErrHistoryDisabled.Error()})
		return
	}

	limit := defaultAlertLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	alerts, err := h.repo.Recent(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// ByMetric handles GET /v1/metrics/{name}/alerts?from=&to=
func (h *AlertsHandler) ByMetric(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": domain.ErrHistoryDisabled.Error()})
		return
	}

	metric := mux.Vars(r)["name"]
	if metric == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing metric name"})
		return
	}

	// Default to the last 24h, mirroring the baseline window.
	now := time.Now()
	from := now.Add(-24 * time.Hour)
	to := now
	if v := r.URL.Query().Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			from = t
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			to = t
		}
	}

	alerts, err := h.repo.ListByMetric(r.Context(), metric, from, to)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}
