// Package memory provides process-local fallbacks for the Redis-backed
// caches, used when Redis is disabled.
package memory

import (
	"context"
	"sync"

	"github.com/alanyoungcy/triscan/internal/domain"
)

// ReportCache keeps the latest scan report in memory.
type ReportCache struct {
	mu     sync.RWMutex
	report domain.ScanReport
	ok     bool
}

// NewReportCache returns an empty cache.
func NewReportCache() *ReportCache {
	return &ReportCache{}
}

// SetLatest replaces the cached report.
func (c *ReportCache) SetLatest(_ context.Context, report domain.ScanReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report, c.ok = report, true
	return nil
}

// GetLatest returns the cached report, or domain.ErrNotFound.
func (c *ReportCache) GetLatest(_ context.Context) (domain.ScanReport, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.ok {
		return domain.ScanReport{}, domain.ErrNotFound
	}
	return c.report, nil
}

var _ domain.ReportCache = (*ReportCache)(nil)
