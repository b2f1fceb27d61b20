package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sugawarayuuta/sonnet"

	"github.com/alanyoungcy/triscan/internal/domain"
	"github.com/alanyoungcy/triscan/internal/scan"
)

// ScanService is what the scan endpoints need.
type ScanService interface {
	Scan(ctx context.Context, req scan.Request) (domain.ScanReport, error)
	Latest(ctx context.Context) (domain.ScanReport, error)
	Exchanges() []string
}

// ScanHandler serves the scan endpoints.
type ScanHandler struct {
	svc    ScanService
	logger *slog.Logger
}

func NewScanHandler(svc ScanService, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{svc: svc, logger: logger.With(slog.String("handler", "scan"))}
}

type scanResponse struct {
	Status    string                        `json:"status"`
	ID        string                        `json:"id"`
	Count     int                           `json:"count"`
	Results   []domain.ArbitrageOpportunity `json:"results"`
	Exchanges []domain.ExchangeReport       `json:"exchanges"`
}

// Scan runs a scan and returns the ranked opportunities. An empty body scans
// every registered exchange with the configured thresholds.
// POST /api/scan
func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	var req scan.Request
	if len(body) > 0 {
		if err := sonnet.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	report, err := h.svc.Scan(r.Context(), req)
	switch {
	case errors.Is(err, domain.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "scan failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	results := report.Opportunities
	if results == nil {
		results = []domain.ArbitrageOpportunity{}
	}
	writeJSON(w, http.StatusOK, scanResponse{
		Status:    "success",
		ID:        report.ID,
		Count:     len(results),
		Results:   results,
		Exchanges: report.Exchanges,
	})
}

// Latest returns the most recent report.
// GET /api/scan/latest
func (h *ScanHandler) Latest(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Latest(r.Context())
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "no scan has completed yet")
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "load latest report failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "load latest report failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Exchanges lists the scannable exchanges.
// GET /api/exchanges
func (h *ScanHandler) Exchanges(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"exchanges": h.svc.Exchanges()})
}
