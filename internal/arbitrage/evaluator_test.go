package arbitrage

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/triscan/internal/domain"
)

func vectorGraph(liq ...*float64) *RateGraph {
	l := make([]*float64, 3)
	copy(l, liq)
	return BuildGraph([]domain.Quote{
		{Base: "A", Quote: "B", Price: 0.00002, Liquidity: l[0]},
		{Base: "B", Quote: "C", Price: 20, Liquidity: l[1]},
		{Base: "C", Quote: "A", Price: 2600, Liquidity: l[2]},
	}, ReverseListedOnly, 0)
}

func zeroFee() Config {
	cfg := DefaultConfig()
	cfg.FeePctPerLeg = 0
	return cfg
}

func TestEvaluate_GrossProfit(t *testing.T) {
	opp, reason := NewEvaluator(zeroFee()).Evaluate("binance", vectorGraph(), Cycle{"A", "B", "C"})

	require.Equal(t, Accepted, reason)
	assert.InDelta(t, 4.0, opp.ProfitBeforeFeesPct, 1e-9)
	assert.InDelta(t, 4.0, opp.ProfitAfterFeesPct, 1e-9)
	assert.Equal(t, []string{"A", "B", "C", "A"}, opp.Route)
	assert.Equal(t, "binance", opp.Exchange)
	assert.Equal(t, 2600.0, opp.Legs[2].Rate)
}

func TestEvaluate_FeeApplication(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FeePctPerLeg = 0.10
	ev := NewEvaluator(cfg)

	opp, reason := ev.Evaluate("binance", vectorGraph(), Cycle{"A", "B", "C"})

	require.Equal(t, Accepted, reason)
	assert.InDelta(t, 0.997002999, ev.FeeFactor(), 1e-12)
	assert.InDelta(t, 3.688, opp.ProfitAfterFeesPct, 0.001)
	assert.InDelta(t, 4.0, opp.ProfitBeforeFeesPct, 1e-9)
	assert.InDelta(t, 0.3, opp.FeePctTotal, 1e-12)
}

func TestEvaluate_Threshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FeePctPerLeg = 0.10

	cfg.MinProfitAfterPct = 2.0
	_, reason := NewEvaluator(cfg).Evaluate("x", vectorGraph(), Cycle{"A", "B", "C"})
	assert.Equal(t, Accepted, reason)

	cfg.MinProfitAfterPct = 5.0
	_, reason = NewEvaluator(cfg).Evaluate("x", vectorGraph(), Cycle{"A", "B", "C"})
	assert.Equal(t, RejectBelowThreshold, reason)
}

func TestEvaluate_Rejections(t *testing.T) {
	ev := NewEvaluator(DefaultConfig())

	_, reason := ev.Evaluate("x", vectorGraph(), Cycle{"A", "A", "B"})
	assert.Equal(t, RejectDegenerate, reason)

	_, reason = ev.Evaluate("x", vectorGraph(), Cycle{"A", "C", "B"})
	assert.Equal(t, RejectMissingEdge, reason)

	wild := BuildGraph([]domain.Quote{
		{Base: "A", Quote: "B", Price: 2},
		{Base: "B", Quote: "C", Price: 2},
		{Base: "C", Quote: "A", Price: 2},
	}, ReverseListedOnly, 0)
	_, reason = ev.Evaluate("x", wild, Cycle{"A", "B", "C"})
	assert.Equal(t, RejectImplausible, reason)

	huge := BuildGraph([]domain.Quote{
		{Base: "A", Quote: "B", Price: math.MaxFloat64},
		{Base: "B", Quote: "C", Price: math.MaxFloat64},
		{Base: "C", Quote: "A", Price: 1},
	}, ReverseListedOnly, 0)
	_, reason = ev.Evaluate("x", huge, Cycle{"A", "B", "C"})
	assert.Equal(t, RejectNonFinite, reason)
}

func TestEvaluate_LiquidityAdvisory(t *testing.T) {
	ev := NewEvaluator(zeroFee())

	opp, reason := ev.Evaluate("x", vectorGraph(domain.Float(100), domain.Float(50), domain.Float(200)), Cycle{"A", "B", "C"})
	require.Equal(t, Accepted, reason)
	require.NotNil(t, opp.MinLegLiquidity)
	assert.Equal(t, 50.0, *opp.MinLegLiquidity)

	opp, reason = ev.Evaluate("x", vectorGraph(domain.Float(100), nil, domain.Float(200)), Cycle{"A", "B", "C"})
	require.Equal(t, Accepted, reason)
	assert.Nil(t, opp.MinLegLiquidity)
}

func TestEvaluate_LiquidityExclude(t *testing.T) {
	cfg := zeroFee()
	cfg.Liquidity = LiquidityExclude
	cfg.MinLegLiquidity = 60
	ev := NewEvaluator(cfg)

	_, reason := ev.Evaluate("x", vectorGraph(domain.Float(100), domain.Float(50), domain.Float(200)), Cycle{"A", "B", "C"})
	assert.Equal(t, RejectLiquidity, reason)

	_, reason = ev.Evaluate("x", vectorGraph(domain.Float(100), nil, domain.Float(200)), Cycle{"A", "B", "C"})
	assert.Equal(t, RejectLiquidity, reason)

	_, reason = ev.Evaluate("x", vectorGraph(domain.Float(100), domain.Float(0), domain.Float(200)), Cycle{"A", "B", "C"})
	assert.Equal(t, RejectLiquidity, reason)

	cfg.MinLegLiquidity = 40
	_, reason = NewEvaluator(cfg).Evaluate("x", vectorGraph(domain.Float(100), domain.Float(50), domain.Float(200)), Cycle{"A", "B", "C"})
	assert.Equal(t, Accepted, reason)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero fee", func(c *Config) { c.FeePctPerLeg = 0 }, false},
		{"high fee", func(c *Config) { c.FeePctPerLeg = 99.9 }, false},
		{"negative fee", func(c *Config) { c.FeePctPerLeg = -0.1 }, true},
		{"fee 100", func(c *Config) { c.FeePctPerLeg = 100 }, true},
		{"nan fee", func(c *Config) { c.FeePctPerLeg = math.NaN() }, true},
		{"empty band", func(c *Config) { c.MinPlausiblePct = 100 }, true},
		{"max assets 2", func(c *Config) { c.MaxAssets = 2 }, true},
		{"unlimited assets", func(c *Config) { c.MaxAssets = 0 }, false},
		{"bad reverse", func(c *Config) { c.Reverse = "both" }, true},
		{"bad liquidity", func(c *Config) { c.Liquidity = "strict" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
