package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/triscan/internal/service"
)

// StatusSource exposes the scan service state.
type StatusSource interface {
	Status() service.Status
}

// StatusHandler serves the runtime status for dashboards.
type StatusHandler struct {
	mode      string
	startedAt time.Time
	src       StatusSource
}

func NewStatusHandler(mode string, startedAt time.Time, src StatusSource) *StatusHandler {
	return &StatusHandler{mode: mode, startedAt: startedAt, src: src}
}

// GetStatus responds with the mode, uptime and last scan summary.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":           h.mode,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"scanner":        h.src.Status(),
	})
}
