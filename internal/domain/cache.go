package domain

import (
	"context"
	"time"
)

// ReportCache keeps the most recent scan report.
type ReportCache interface {
	SetLatest(ctx context.Context, report ScanReport) error
	GetLatest(ctx context.Context) (ScanReport, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub between scanner instances and API clients.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// ReportPublisher streams finished scan reports to downstream consumers.
type ReportPublisher interface {
	PublishReport(ctx context.Context, report ScanReport) error
	Close() error
}
