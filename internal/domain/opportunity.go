package domain

import (
	"strings"
	"time"
)

// Leg is one conversion inside a triangular route.
type Leg struct {
	From      string   `json:"from"`
	To        string   `json:"to"`
	Rate      float64  `json:"rate"`
	Liquidity *float64 `json:"liquidity,omitempty"`
	Synthetic bool     `json:"synthetic,omitempty"` // rate is the inverse of a listed pair
}

// ArbitrageOpportunity is a profitable three-asset cycle on one exchange.
type ArbitrageOpportunity struct {
	Exchange            string   `json:"exchange"`
	Route               []string `json:"route"` // [A, B, C, A]
	Legs                [3]Leg   `json:"legs"`
	ProfitBeforeFeesPct float64  `json:"profit_before_fees_pct"`
	FeePctTotal         float64  `json:"fee_pct_total"`
	ProfitAfterFeesPct  float64  `json:"profit_after_fees_pct"`
	MinLegLiquidity     *float64 `json:"min_leg_liquidity,omitempty"`
}

// RouteString renders the route as "A → B → C → A".
func (o ArbitrageOpportunity) RouteString() string {
	return strings.Join(o.Route, " → ")
}

// Label prefixes the route with the exchange name.
func (o ArbitrageOpportunity) Label() string {
	return "[" + strings.ToUpper(o.Exchange) + "] " + o.RouteString()
}

// ScanStats counts what happened to the quotes and candidates of one exchange.
type ScanStats struct {
	QuotesAccepted  int            `json:"quotes_accepted"`
	QuotesRejected  int            `json:"quotes_rejected"`
	QuotesDuplicate int            `json:"quotes_duplicate"`
	Assets          int            `json:"assets"`
	AssetsScanned   int            `json:"assets_scanned"`
	Truncated       bool           `json:"truncated"`
	Candidates      int            `json:"candidates"`
	Discarded       map[string]int `json:"discarded,omitempty"`
	Duplicates      int            `json:"duplicates"`
}

// ExchangeReport is the per-exchange outcome of a scan. Error is set when the
// exchange could not be scanned; Opportunities is then empty.
type ExchangeReport struct {
	Exchange      string                 `json:"exchange"`
	Stats         ScanStats              `json:"stats"`
	Opportunities []ArbitrageOpportunity `json:"opportunities"`
	FetchDuration time.Duration          `json:"fetch_duration_ns"`
	Error         string                 `json:"error,omitempty"`
}

// ScanReport is the merged result of one scan across exchanges.
type ScanReport struct {
	ID            string                 `json:"id"`
	StartedAt     time.Time              `json:"started_at"`
	FinishedAt    time.Time              `json:"finished_at"`
	Exchanges     []ExchangeReport       `json:"exchanges"`
	Opportunities []ArbitrageOpportunity `json:"opportunities"`
}

// Failed returns the names of exchanges that errored.
func (r ScanReport) Failed() []string {
	var out []string
	for _, ex := range r.Exchanges {
		if ex.Error != "" {
			out = append(out, ex.Exchange)
		}
	}
	return out
}
