package domain

import (
	"context"
	"math"
	"time"
)

// Quote is a single normalized spot price: one unit of Base trades for Price
// units of Quote on one exchange.
type Quote struct {
	Base      string   `json:"base"`
	Quote     string   `json:"quote"`
	Price     float64  `json:"price"`
	Liquidity *float64 `json:"liquidity,omitempty"` // 24h volume in the quote asset
}

// Symbol returns the pair as BASE/QUOTE.
func (q Quote) Symbol() string {
	return q.Base + "/" + q.Quote
}

// Valid reports whether the quote can become a graph edge.
func (q Quote) Valid() bool {
	if q.Base == "" || q.Quote == "" || q.Base == q.Quote {
		return false
	}
	return q.Price > 0 && !math.IsInf(q.Price, 0) && !math.IsNaN(q.Price)
}

// Float returns a pointer to v, for optional fields.
func Float(v float64) *float64 {
	return &v
}

// QuoteProvider fetches the current quotes for one exchange.
type QuoteProvider interface {
	Name() string
	FetchQuotes(ctx context.Context) ([]Quote, error)
}

// QuoteRecorder stores a fetched quote set so it can be replayed later.
type QuoteRecorder interface {
	RecordQuotes(ctx context.Context, exchange string, quotes []Quote, at time.Time) error
}
