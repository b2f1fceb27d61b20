package arbitrage

import (
	"fmt"
	"math"
	"strings"

	"github.com/alanyoungcy/triscan/internal/domain"
)

// DefaultMaxAssets bounds the per-exchange graph size.
const DefaultMaxAssets = 250

// Config holds the detection parameters of one scan.
type Config struct {
	FeePctPerLeg      float64 // taker fee per trade, percent
	MinProfitAfterPct float64
	MinPlausiblePct   float64
	MaxPlausiblePct   float64
	MaxAssets         int
	Reverse           ReversePolicy
	Liquidity         LiquidityMode
	MinLegLiquidity   float64 // only used with LiquidityExclude
}

// DefaultConfig returns a 0.1% per-leg fee, a zero profit floor and the
// [-99%, +100%] plausibility band.
func DefaultConfig() Config {
	return Config{
		FeePctPerLeg:      0.1,
		MinProfitAfterPct: 0,
		MinPlausiblePct:   -99,
		MaxPlausiblePct:   100,
		MaxAssets:         DefaultMaxAssets,
		Reverse:           ReverseSynthesize,
		Liquidity:         LiquidityAdvisory,
	}
}

// Validate rejects parameters the evaluator cannot work with.
func (c Config) Validate() error {
	var errs []string
	if math.IsNaN(c.FeePctPerLeg) || c.FeePctPerLeg < 0 || c.FeePctPerLeg >= 100 {
		errs = append(errs, fmt.Sprintf("fee_pct_per_leg must be in [0, 100), got %v", c.FeePctPerLeg))
	}
	if math.IsNaN(c.MinProfitAfterPct) {
		errs = append(errs, "min_profit_after_pct must be a number")
	}
	if math.IsNaN(c.MinPlausiblePct) || math.IsNaN(c.MaxPlausiblePct) || c.MinPlausiblePct >= c.MaxPlausiblePct {
		errs = append(errs, fmt.Sprintf("plausible band [%v, %v] is empty", c.MinPlausiblePct, c.MaxPlausiblePct))
	}
	if c.MaxAssets != 0 && c.MaxAssets < 3 {
		errs = append(errs, fmt.Sprintf("max_assets must be 0 (unlimited) or at least 3, got %d", c.MaxAssets))
	}
	if !c.Reverse.Valid() {
		errs = append(errs, fmt.Sprintf("unknown reverse policy %q", c.Reverse))
	}
	if !c.Liquidity.Valid() {
		errs = append(errs, fmt.Sprintf("unknown liquidity mode %q", c.Liquidity))
	}
	if math.IsNaN(c.MinLegLiquidity) || c.MinLegLiquidity < 0 {
		errs = append(errs, "min_leg_liquidity must be >= 0")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}
