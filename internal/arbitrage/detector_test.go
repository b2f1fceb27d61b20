package arbitrage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/triscan/internal/domain"
)

// completeQuotes lists every pair of n assets once with slightly uneven
// prices, producing many near-zero cycles.
func completeQuotes(n int) []domain.Quote {
	var out []domain.Quote
	for i := range n {
		for j := i + 1; j < n; j++ {
			out = append(out, domain.Quote{
				Base:  fmt.Sprintf("T%02d", i),
				Quote: fmt.Sprintf("T%02d", j),
				Price: 1 + float64((i*7+j*3)%11)/1000,
			})
		}
	}
	return out
}

func marketQuotes() []domain.Quote {
	return []domain.Quote{
		{Base: "BTC", Quote: "USDT", Price: 60000, Liquidity: domain.Float(5e8)},
		{Base: "ETH", Quote: "USDT", Price: 3000, Liquidity: domain.Float(2e8)},
		{Base: "ETH", Quote: "BTC", Price: 0.0505, Liquidity: domain.Float(1e3)},
		{Base: "SOL", Quote: "USDT", Price: 150, Liquidity: domain.Float(9e7)},
		{Base: "SOL", Quote: "BTC", Price: 0.00251},
		{Base: "SOL", Quote: "ETH", Price: 0.0498},
		{Base: "BAD", Quote: "USDT", Price: 0},
	}
}

func TestDetect_VectorOpportunity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FeePctPerLeg = 0.10
	cfg.MinProfitAfterPct = 2.0
	quotes := []domain.Quote{
		{Base: "A", Quote: "B", Price: 0.00002},
		{Base: "B", Quote: "C", Price: 20},
		{Base: "C", Quote: "A", Price: 2600},
	}

	res, err := Detect(context.Background(), "binance", quotes, cfg)

	require.NoError(t, err)
	require.Len(t, res.Opportunities, 1)
	got := res.Opportunities[0]
	assert.InDelta(t, 3.688, got.ProfitAfterFeesPct, 0.001)
	assert.Equal(t, "[BINANCE] A → B → C → A", got.Label())
	assert.Equal(t, 2, res.Stats.Duplicates)
	assert.Equal(t, 3, res.Stats.Discarded["below_threshold"])

	cfg.MinProfitAfterPct = 5.0
	res, err = Detect(context.Background(), "binance", quotes, cfg)
	require.NoError(t, err)
	assert.Empty(t, res.Opportunities)
}

func TestDetect_InvalidPricesOnly(t *testing.T) {
	quotes := []domain.Quote{
		{Base: "A", Quote: "B", Price: 0},
		{Base: "B", Quote: "C", Price: math.NaN()},
		{Base: "C", Quote: "A", Price: -5},
	}

	res, err := Detect(context.Background(), "x", quotes, DefaultConfig())

	require.NoError(t, err)
	assert.Empty(t, res.Opportunities)
	assert.Equal(t, 3, res.Stats.QuotesRejected)
	assert.Zero(t, res.Stats.Candidates)
}

func TestDetect_EmptyInput(t *testing.T) {
	res, err := Detect(context.Background(), "x", nil, DefaultConfig())

	require.NoError(t, err)
	assert.Empty(t, res.Opportunities)
}

func TestDetect_RankedAndIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FeePctPerLeg = 0
	cfg.MinProfitAfterPct = -1

	first, err := Detect(context.Background(), "x", marketQuotes(), cfg)
	require.NoError(t, err)
	second, err := Detect(context.Background(), "x", marketQuotes(), cfg)
	require.NoError(t, err)

	require.NotEmpty(t, first.Opportunities)
	assert.Equal(t, first, second)
	for i := 1; i < len(first.Opportunities); i++ {
		assert.GreaterOrEqual(t, first.Opportunities[i-1].ProfitAfterFeesPct, first.Opportunities[i].ProfitAfterFeesPct)
	}
	seen := map[Cycle]bool{}
	for _, o := range first.Opportunities {
		k := Cycle{o.Route[0], o.Route[1], o.Route[2]}.Canonical()
		assert.False(t, seen[k], "duplicate cycle %v", k)
		seen[k] = true
	}
}

func TestDetect_ReportsTruncation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAssets = 5

	res, err := Detect(context.Background(), "x", completeQuotes(8), cfg)

	require.NoError(t, err)
	assert.True(t, res.Stats.Truncated)
	assert.Equal(t, 8, res.Stats.Assets)
	assert.Equal(t, 5, res.Stats.AssetsScanned)
}

func TestDetect_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FeePctPerLeg = 100

	_, err := Detect(context.Background(), "x", marketQuotes(), cfg)

	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
}

func TestDetect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Detect(ctx, "x", completeQuotes(20), DefaultConfig())

	assert.True(t, errors.Is(err, context.Canceled))
}
