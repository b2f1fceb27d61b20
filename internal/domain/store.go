package domain

import (
	"context"
	"time"
)

// TickerSnapshot is the latest recorded quote set of one exchange.
type TickerSnapshot struct {
	Exchange   string
	Quotes     []Quote
	RecordedAt time.Time
}

// TickerStore persists the latest ticker snapshot per exchange. Older
// snapshots are overwritten, not kept.
type TickerStore interface {
	QuoteRecorder
	Latest(ctx context.Context, exchange string) (TickerSnapshot, error)
	Exchanges(ctx context.Context) ([]string, error)
}
