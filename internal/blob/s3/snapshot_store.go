package s3blob

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/sugawarayuuta/sonnet"

	"github.com/alanyoungcy/triscan/internal/domain"
)

const snapshotExt = ".json"

// snapshotDoc is the stored object layout.
type snapshotDoc struct {
	Exchange   string         `json:"exchange"`
	RecordedAt time.Time      `json:"recorded_at"`
	Quotes     []domain.Quote `json:"quotes"`
}

// SnapshotStore implements domain.TickerStore with one JSON object per
// exchange at <prefix><exchange>.json. Recording overwrites the object.
type SnapshotStore struct {
	objects domain.ObjectStore
	prefix  string
}

// NewSnapshotStore creates a SnapshotStore over objects.
func NewSnapshotStore(objects domain.ObjectStore, prefix string) *SnapshotStore {
	return &SnapshotStore{objects: objects, prefix: prefix}
}

func (s *SnapshotStore) key(exchange string) string {
	return s.prefix + exchange + snapshotExt
}

// RecordQuotes uploads the valid, first-seen quotes of exchange.
func (s *SnapshotStore) RecordQuotes(ctx context.Context, exchange string, quotes []domain.Quote, at time.Time) error {
	body, err := sonnet.Marshal(snapshotDoc{
		Exchange:   exchange,
		RecordedAt: at.UTC(),
		Quotes:     uniqueQuotes(quotes),
	})
	if err != nil {
		return fmt.Errorf("s3blob: encode snapshot %s: %w", exchange, err)
	}
	if err := s.objects.Put(ctx, s.key(exchange), body, "application/json"); err != nil {
		return fmt.Errorf("s3blob: record quotes %s: %w", exchange, err)
	}
	return nil
}

// Latest downloads the snapshot of exchange. A missing object yields
// domain.ErrNotFound.
func (s *SnapshotStore) Latest(ctx context.Context, exchange string) (domain.TickerSnapshot, error) {
	raw, err := s.objects.Get(ctx, s.key(exchange))
	if err != nil {
		return domain.TickerSnapshot{}, err
	}
	var doc snapshotDoc
	if err := sonnet.Unmarshal(raw, &doc); err != nil {
		return domain.TickerSnapshot{}, fmt.Errorf("s3blob: decode snapshot %s: %w", exchange, err)
	}
	if doc.Exchange == "" {
		doc.Exchange = exchange
	}
	return domain.TickerSnapshot{
		Exchange:   doc.Exchange,
		Quotes:     doc.Quotes,
		RecordedAt: doc.RecordedAt,
	}, nil
}

// Exchanges lists exchanges with a stored snapshot, sorted.
func (s *SnapshotStore) Exchanges(ctx context.Context) ([]string, error) {
	objs, err := s.objects.List(ctx, s.prefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(objs))
	for _, o := range objs {
		rest := strings.TrimPrefix(o.Key, s.prefix)
		if rest == "" || strings.Contains(rest, "/") || path.Ext(rest) != snapshotExt {
			continue
		}
		names = append(names, strings.TrimSuffix(rest, snapshotExt))
	}
	slices.Sort(names)
	return names, nil
}

func uniqueQuotes(quotes []domain.Quote) []domain.Quote {
	seen := make(map[[2]string]bool, len(quotes))
	out := make([]domain.Quote, 0, len(quotes))
	for _, q := range quotes {
		pair := [2]string{q.Base, q.Quote}
		if !q.Valid() || seen[pair] {
			continue
		}
		seen[pair] = true
		out = append(out, q)
	}
	return out
}

var (
	_ domain.TickerStore = (*SnapshotStore)(nil)
	_ domain.ObjectStore = (*Client)(nil)
)
