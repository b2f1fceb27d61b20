package arbitrage

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/triscan/internal/domain"
)

// LiquidityMode controls how leg liquidity affects results.
type LiquidityMode string

const (
	// LiquidityAdvisory reports the minimum leg liquidity but never filters.
	LiquidityAdvisory LiquidityMode = "advisory"
	// LiquidityExclude drops cycles with an unknown, zero or too small leg.
	LiquidityExclude LiquidityMode = "exclude"
)

// Valid reports whether m is a known mode.
func (m LiquidityMode) Valid() bool {
	return m == LiquidityAdvisory || m == LiquidityExclude
}

// Reject is the reason a candidate cycle was discarded.
type Reject int

const (
	Accepted Reject = iota
	RejectDegenerate
	RejectMissingEdge
	RejectNonFinite
	RejectImplausible
	RejectBelowThreshold
	RejectLiquidity
)

func (r Reject) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectDegenerate:
		return "degenerate"
	case RejectMissingEdge:
		return "missing_edge"
	case RejectNonFinite:
		return "non_finite"
	case RejectImplausible:
		return "implausible"
	case RejectBelowThreshold:
		return "below_threshold"
	case RejectLiquidity:
		return "liquidity"
	default:
		return fmt.Sprintf("reject(%d)", int(r))
	}
}

// Evaluator prices cycles of a graph net of fees.
type Evaluator struct {
	cfg       Config
	feeFactor float64
}

// NewEvaluator precomputes the fee factor (1 - fee/100)^3. cfg is assumed
// valid; see Config.Validate.
func NewEvaluator(cfg Config) *Evaluator {
	keep := 1 - cfg.FeePctPerLeg/100
	return &Evaluator{cfg: cfg, feeFactor: keep * keep * keep}
}

// FeeFactor returns the multiplier applied to the gross product.
func (e *Evaluator) FeeFactor() float64 {
	return e.feeFactor
}

// Evaluate prices cycle c on g. The opportunity is only meaningful when the
// returned reason is Accepted.
func (e *Evaluator) Evaluate(exchange string, g *RateGraph, c Cycle) (domain.ArbitrageOpportunity, Reject) {
	if !c.Distinct() {
		return domain.ArbitrageOpportunity{}, RejectDegenerate
	}

	var legs [3]domain.Leg
	gross := 1.0
	for i := range 3 {
		from, to := c[i], c[(i+1)%3]
		edge, ok := g.Edge(from, to)
		if !ok {
			return domain.ArbitrageOpportunity{}, RejectMissingEdge
		}
		legs[i] = domain.Leg{From: from, To: to, Rate: edge.Rate, Liquidity: edge.Liquidity, Synthetic: edge.Synthetic}
		gross *= edge.Rate
	}
	if math.IsNaN(gross) || math.IsInf(gross, 0) {
		return domain.ArbitrageOpportunity{}, RejectNonFinite
	}

	before := (gross - 1) * 100
	after := (gross*e.feeFactor - 1) * 100
	if math.IsNaN(after) || math.IsInf(after, 0) {
		return domain.ArbitrageOpportunity{}, RejectNonFinite
	}
	if after < e.cfg.MinPlausiblePct || after > e.cfg.MaxPlausiblePct {
		return domain.ArbitrageOpportunity{}, RejectImplausible
	}
	if after < e.cfg.MinProfitAfterPct {
		return domain.ArbitrageOpportunity{}, RejectBelowThreshold
	}

	minLiq, complete := minLiquidity(legs)
	if e.cfg.Liquidity == LiquidityExclude {
		if !complete || *minLiq <= 0 || *minLiq < e.cfg.MinLegLiquidity {
			return domain.ArbitrageOpportunity{}, RejectLiquidity
		}
	}

	return domain.ArbitrageOpportunity{
		Exchange:            exchange,
		Route:               c.Route(),
		Legs:                legs,
		ProfitBeforeFeesPct: before,
		FeePctTotal:         3 * e.cfg.FeePctPerLeg,
		ProfitAfterFeesPct:  after,
		MinLegLiquidity:     minLiq,
	}, Accepted
}

// minLiquidity returns the smallest leg liquidity and whether every leg had
// one. The minimum is nil unless all three legs are known.
func minLiquidity(legs [3]domain.Leg) (*float64, bool) {
	var m float64
	for i, l := range legs {
		if l.Liquidity == nil {
			return nil, false
		}
		if i == 0 || *l.Liquidity < m {
			m = *l.Liquidity
		}
	}
	return &m, true
}
