// Package scan runs arbitrage detection across several exchanges at once.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/alanyoungcy/triscan/internal/arbitrage"
	"github.com/alanyoungcy/triscan/internal/domain"
)

// Providers resolves exchange names to quote providers.
type Providers interface {
	Get(name string) (domain.QuoteProvider, error)
	List() []string
}

// Config configures a Scanner.
type Config struct {
	Detection    arbitrage.Config
	FetchTimeout time.Duration
	// Workers bounds concurrent detection runs; fetches are not bounded.
	Workers int
}

// Request selects exchanges and optionally overrides the profit band for a
// single scan. Empty Exchanges means every registered exchange.
type Request struct {
	Exchanges    []string `json:"exchanges"`
	MinProfitPct *float64 `json:"min_profit,omitempty"`
	MaxProfitPct *float64 `json:"max_profit,omitempty"`
}

// Scanner fetches quotes per exchange concurrently and detects arbitrage on
// each independently. A failing exchange never affects the others.
type Scanner struct {
	providers Providers
	cfg       Config
	sem       *semaphore.Weighted
	recorder  domain.QuoteRecorder
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Scanner. recorder may be nil.
func New(providers Providers, cfg Config, recorder domain.QuoteRecorder, logger *slog.Logger) *Scanner {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	return &Scanner{
		providers: providers,
		cfg:       cfg,
		sem:       semaphore.NewWeighted(int64(cfg.Workers)),
		recorder:  recorder,
		logger:    logger.With(slog.String("component", "scanner")),
		now:       time.Now,
	}
}

// Exchanges lists the exchanges that can be scanned.
func (s *Scanner) Exchanges() []string {
	return s.providers.List()
}

// DetectionConfig returns the configuration req would scan with.
func (s *Scanner) DetectionConfig(req Request) arbitrage.Config {
	cfg := s.cfg.Detection
	if req.MinProfitPct != nil {
		cfg.MinProfitAfterPct = *req.MinProfitPct
	}
	return cfg
}

// Scan runs one scan. It only fails when the effective detection config is
// invalid; per-exchange failures are reported in the result.
func (s *Scanner) Scan(ctx context.Context, req Request) (domain.ScanReport, error) {
	det := s.DetectionConfig(req)
	if err := det.Validate(); err != nil {
		return domain.ScanReport{}, fmt.Errorf("scan: %w", err)
	}
	if req.MaxProfitPct != nil && *req.MaxProfitPct < det.MinProfitAfterPct {
		return domain.ScanReport{}, fmt.Errorf("scan: %w: max_profit %v below min_profit %v",
			domain.ErrInvalidConfig, *req.MaxProfitPct, det.MinProfitAfterPct)
	}

	names := uniq(req.Exchanges)
	if len(names) == 0 {
		names = s.providers.List()
	}

	report := domain.ScanReport{
		ID:        uuid.New().String(),
		StartedAt: s.now().UTC(),
		Exchanges: make([]domain.ExchangeReport, len(names)),
	}

	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			report.Exchanges[i] = s.scanExchange(ctx, name, det, req.MaxProfitPct)
			return nil
		})
	}
	_ = g.Wait()

	lists := make([][]domain.ArbitrageOpportunity, 0, len(names))
	for _, ex := range report.Exchanges {
		lists = append(lists, ex.Opportunities)
	}
	report.Opportunities = arbitrage.Merge(lists...)
	report.FinishedAt = s.now().UTC()

	s.logger.InfoContext(ctx, "scan finished",
		slog.String("scan_id", report.ID),
		slog.Int("exchanges", len(names)),
		slog.Int("failed", len(report.Failed())),
		slog.Int("opportunities", len(report.Opportunities)),
		slog.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

func (s *Scanner) scanExchange(ctx context.Context, name string, det arbitrage.Config, maxProfit *float64) domain.ExchangeReport {
	rep := domain.ExchangeReport{Exchange: name, Opportunities: []domain.ArbitrageOpportunity{}}
	log := s.logger.With(slog.String("exchange", name))

	p, err := s.providers.Get(name)
	if err != nil {
		rep.Error = err.Error()
		log.WarnContext(ctx, "exchange skipped", slog.String("error", err.Error()))
		return rep
	}

	start := s.now()
	fctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	quotes, err := p.FetchQuotes(fctx)
	cancel()
	rep.FetchDuration = s.now().Sub(start)
	if err != nil {
		rep.Error = err.Error()
		log.WarnContext(ctx, "fetch quotes failed", slog.String("error", err.Error()))
		return rep
	}

	if s.recorder != nil {
		if err := s.recorder.RecordQuotes(ctx, name, quotes, start.UTC()); err != nil {
			log.WarnContext(ctx, "record quotes failed", slog.String("error", err.Error()))
		}
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		rep.Error = err.Error()
		return rep
	}
	res, err := arbitrage.Detect(ctx, name, quotes, det)
	s.sem.Release(1)
	if err != nil {
		rep.Error = err.Error()
		log.WarnContext(ctx, "detect failed", slog.String("error", err.Error()))
		return rep
	}

	rep.Stats = res.Stats
	rep.Opportunities = withinBand(res.Opportunities, maxProfit)
	if rep.Stats.Truncated {
		log.InfoContext(ctx, "asset ceiling reached, scan is partial",
			slog.Int("assets", rep.Stats.Assets),
			slog.Int("scanned", rep.Stats.AssetsScanned),
		)
	}
	log.DebugContext(ctx, "exchange scanned",
		slog.Int("quotes", rep.Stats.QuotesAccepted),
		slog.Int("candidates", rep.Stats.Candidates),
		slog.Int("opportunities", len(rep.Opportunities)),
	)
	return rep
}

// withinBand drops opportunities above maxProfit. The list stays sorted.
func withinBand(opps []domain.ArbitrageOpportunity, maxProfit *float64) []domain.ArbitrageOpportunity {
	if maxProfit == nil {
		return opps
	}
	out := opps[:0:0]
	for _, o := range opps {
		if o.ProfitAfterFeesPct <= *maxProfit {
			out = append(out, o)
		}
	}
	return out
}

func uniq(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
