package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sugawarayuuta/sonnet"

	"github.com/alanyoungcy/triscan/internal/domain"
)

// ReportCache implements domain.ReportCache. The latest report is stored as
// JSON with a TTL so stale results expire when scanning stops.
type ReportCache struct {
	rdb       *redis.Client
	latestKey string
	// statusKey is a hash of exchange → last error ("" when healthy).
	statusKey string
	ttl       time.Duration
}

// NewReportCache creates a ReportCache. ttl <= 0 keeps reports forever.
func NewReportCache(c *Client, ttl time.Duration) *ReportCache {
	if ttl < 0 {
		ttl = 0
	}
	return &ReportCache{
		rdb:       c.rdb,
		latestKey: c.Key("report", "latest"),
		statusKey: c.Key("report", "exchanges"),
		ttl:       ttl,
	}
}

// SetLatest replaces the cached report and the per-exchange status hash in a
// single transaction.
func (rc *ReportCache) SetLatest(ctx context.Context, report domain.ScanReport) error {
	data, err := sonnet.Marshal(report)
	if err != nil {
		return fmt.Errorf("redis: marshal report: %w", err)
	}
	status := make(map[string]any, len(report.Exchanges))
	for _, ex := range report.Exchanges {
		status[ex.Exchange] = ex.Error
	}

	pipe := rc.rdb.TxPipeline()
	pipe.Set(ctx, rc.latestKey, data, rc.ttl)
	if len(status) > 0 {
		pipe.HSet(ctx, rc.statusKey, status)
		if rc.ttl > 0 {
			pipe.Expire(ctx, rc.statusKey, rc.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set latest report: %w", err)
	}
	return nil
}

// GetLatest returns the cached report, or domain.ErrNotFound.
func (rc *ReportCache) GetLatest(ctx context.Context) (domain.ScanReport, error) {
	data, err := rc.rdb.Get(ctx, rc.latestKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ScanReport{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ScanReport{}, fmt.Errorf("redis: get latest report: %w", err)
	}
	var report domain.ScanReport
	if err := sonnet.Unmarshal(data, &report); err != nil {
		return domain.ScanReport{}, fmt.Errorf("redis: decode latest report: %w", err)
	}
	return report, nil
}

// ExchangeStatus returns the last error per exchange; healthy exchanges map
// to "".
func (rc *ReportCache) ExchangeStatus(ctx context.Context) (map[string]string, error) {
	out, err := rc.rdb.HGetAll(ctx, rc.statusKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: exchange status: %w", err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.ReportCache = (*ReportCache)(nil)
