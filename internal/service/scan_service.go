// Package service coordinates scans with the caches, streams and alerts
// around them.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sugawarayuuta/sonnet"

	"github.com/alanyoungcy/triscan/internal/domain"
	"github.com/alanyoungcy/triscan/internal/notify"
	"github.com/alanyoungcy/triscan/internal/scan"
)

// ChannelScan is the signal bus channel finished reports are published on.
const ChannelScan = "scan"

// scanLockKey serializes scheduled scans across instances.
const scanLockKey = "scan"

// Scanner runs a single scan.
type Scanner interface {
	Scan(ctx context.Context, req scan.Request) (domain.ScanReport, error)
	Exchanges() []string
}

// ReportObserver receives every finished report, e.g. for metrics.
type ReportObserver interface {
	ObserveReport(r domain.ScanReport)
}

// Alerter delivers alerts for an event type.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// ScanDeps are the collaborators of ScanService. Only Scanner and Cache are
// required.
type ScanDeps struct {
	Scanner   Scanner
	Cache     domain.ReportCache
	Bus       domain.SignalBus
	Publisher domain.ReportPublisher
	Lock      domain.LockManager
	Observer  ReportObserver
	Alerter   Alerter
}

// ScanConfig holds the schedule and alert settings.
type ScanConfig struct {
	LockTTL        time.Duration
	AlertProfitPct float64
}

// Status summarizes the scanner for the status endpoint.
type Status struct {
	Running       bool      `json:"running"`
	Scans         int64     `json:"scans"`
	LastScanID    string    `json:"last_scan_id,omitempty"`
	LastScanAt    time.Time `json:"last_scan_at,omitzero"`
	LastError     string    `json:"last_error,omitempty"`
	Opportunities int       `json:"opportunities"`
	Failed        []string  `json:"failed_exchanges,omitempty"`
}

// ScanService runs scans and fans finished reports out to the cache, the
// signal bus, the report stream, metrics and alerts. Only the cache write is
// part of the result; every other sink failure is logged.
type ScanService struct {
	deps   ScanDeps
	cfg    ScanConfig
	logger *slog.Logger

	mu     sync.RWMutex
	status Status
}

// NewScanService creates a ScanService.
func NewScanService(deps ScanDeps, cfg ScanConfig, logger *slog.Logger) *ScanService {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	return &ScanService{
		deps:   deps,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "scan_service")),
	}
}

// Exchanges lists the exchanges that can be scanned.
func (s *ScanService) Exchanges() []string {
	return s.deps.Scanner.Exchanges()
}

// Scan runs one scan and distributes the report.
func (s *ScanService) Scan(ctx context.Context, req scan.Request) (domain.ScanReport, error) {
	report, err := s.deps.Scanner.Scan(ctx, req)
	if err != nil {
		s.setError(err)
		return domain.ScanReport{}, err
	}

	if err := s.deps.Cache.SetLatest(ctx, report); err != nil {
		s.logger.WarnContext(ctx, "cache latest report failed",
			slog.String("scan_id", report.ID),
			slog.String("error", err.Error()),
		)
	}
	s.setReport(report)
	s.fanOut(ctx, report)
	return report, nil
}

// Latest returns the most recent report, or domain.ErrNotFound.
func (s *ScanService) Latest(ctx context.Context) (domain.ScanReport, error) {
	report, err := s.deps.Cache.GetLatest(ctx)
	if err != nil {
		return domain.ScanReport{}, fmt.Errorf("latest report: %w", err)
	}
	return report, nil
}

// Status returns a snapshot of the service state.
func (s *ScanService) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	st.Failed = append([]string(nil), s.status.Failed...)
	return st
}

// Run scans immediately and then every interval until ctx is cancelled.
// When a LockManager is configured, a tick is skipped while another
// instance holds the scan lock.
func (s *ScanService) Run(ctx context.Context, interval time.Duration, req scan.Request) error {
	if interval <= 0 {
		return fmt.Errorf("scan service: %w: interval must be positive", domain.ErrInvalidConfig)
	}

	s.setRunning(true)
	defer s.setRunning(false)

	s.logger.InfoContext(ctx, "scan loop started", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s.tick(ctx, req)
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "scan loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *ScanService) tick(ctx context.Context, req scan.Request) {
	if s.deps.Lock != nil {
		unlock, err := s.deps.Lock.Acquire(ctx, scanLockKey, s.cfg.LockTTL)
		if errors.Is(err, domain.ErrLockHeld) {
			s.logger.DebugContext(ctx, "scan lock held elsewhere, skipping tick")
			return
		}
		if err != nil {
			s.logger.WarnContext(ctx, "acquire scan lock failed", slog.String("error", err.Error()))
			return
		}
		defer unlock()
	}

	if _, err := s.Scan(ctx, req); err != nil && ctx.Err() == nil {
		s.logger.ErrorContext(ctx, "scheduled scan failed", slog.String("error", err.Error()))
	}
}

func (s *ScanService) fanOut(ctx context.Context, report domain.ScanReport) {
	log := s.logger.With(slog.String("scan_id", report.ID))

	if s.deps.Observer != nil {
		s.deps.Observer.ObserveReport(report)
	}

	if s.deps.Bus != nil {
		payload, err := sonnet.Marshal(report)
		if err == nil {
			err = s.deps.Bus.Publish(ctx, ChannelScan, payload)
		}
		if err != nil {
			log.WarnContext(ctx, "publish report to bus failed", slog.String("error", err.Error()))
		}
	}

	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.PublishReport(ctx, report); err != nil {
			log.WarnContext(ctx, "stream report failed", slog.String("error", err.Error()))
		}
	}

	if s.deps.Alerter != nil {
		if title, msg, ok := notify.OpportunityAlert(report, s.cfg.AlertProfitPct); ok {
			if err := s.deps.Alerter.Notify(ctx, notify.EventOpportunity, title, msg); err != nil {
				log.WarnContext(ctx, "opportunity alert failed", slog.String("error", err.Error()))
			}
		}
		if title, msg, ok := notify.FailureAlert(report); ok {
			if err := s.deps.Alerter.Notify(ctx, notify.EventScanFailed, title, msg); err != nil {
				log.WarnContext(ctx, "failure alert failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (s *ScanService) setReport(r domain.ScanReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Scans++
	s.status.LastScanID = r.ID
	s.status.LastScanAt = r.FinishedAt
	s.status.LastError = ""
	s.status.Opportunities = len(r.Opportunities)
	s.status.Failed = r.Failed()
}

func (s *ScanService) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastError = err.Error()
}

func (s *ScanService) setRunning(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Running = v
}
