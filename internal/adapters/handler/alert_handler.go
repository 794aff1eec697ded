package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/familycare/visit-service/internal/core/ports"
)

type AlertHandler struct {
	alerts ports.AlertService
	now    func() time.Time
	logger *slog.Logger
}

func NewAlertHandler(alerts ports.AlertService, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{alerts: alerts, now: time.Now, logger: logger}
}

// Alerts recomputes the neglect snapshot for the current instant.
func (h *AlertHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.alerts.ComputeAlerts(r.Context(), h.now().UTC())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, h.logger, http.StatusOK, snapshot)
}

func (h *AlertHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.alerts.ComputeStats(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, h.logger, http.StatusOK, stats)
}
