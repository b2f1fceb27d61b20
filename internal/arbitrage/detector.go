package arbitrage

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/triscan/internal/domain"
)

// ctxCheckEvery is how many candidates are evaluated between ctx checks.
const ctxCheckEvery = 4096

// Result is the ranked output of one exchange's detection run.
type Result struct {
	Opportunities []domain.ArbitrageOpportunity
	Stats         domain.ScanStats
}

// Detect runs the whole pipeline for one exchange: build the graph, enumerate
// cycles, evaluate and rank. It has no side effects; identical inputs give
// identical results. An error is returned only for an invalid cfg or a
// cancelled ctx.
func Detect(ctx context.Context, exchange string, quotes []domain.Quote, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	g := BuildGraph(quotes, cfg.Reverse, cfg.MaxAssets)
	gs := g.Stats()
	stats := domain.ScanStats{
		QuotesAccepted:  gs.QuotesAccepted,
		QuotesRejected:  gs.QuotesRejected,
		QuotesDuplicate: gs.QuotesDuplicate,
		Assets:          gs.Assets,
		AssetsScanned:   gs.AssetsScanned,
		Truncated:       gs.Truncated,
	}

	ev := NewEvaluator(cfg)
	var found []domain.ArbitrageOpportunity
	for c := range g.Cycles() {
		stats.Candidates++
		if stats.Candidates%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, fmt.Errorf("arbitrage: detect %s: %w", exchange, err)
			}
		}
		opp, reason := ev.Evaluate(exchange, g, c)
		if reason != Accepted {
			if stats.Discarded == nil {
				stats.Discarded = make(map[string]int)
			}
			stats.Discarded[reason.String()]++
			continue
		}
		found = append(found, opp)
	}

	ranked, dups := Rank(found)
	stats.Duplicates = dups
	return Result{Opportunities: ranked, Stats: stats}, nil
}
