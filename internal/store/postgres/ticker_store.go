package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/triscan/internal/domain"
)

// TickerStore implements domain.TickerStore. Each RecordQuotes call replaces
// the exchange's rows, so the table only ever holds the latest snapshot.
type TickerStore struct {
	pool *pgxpool.Pool
}

// NewTickerStore creates a TickerStore backed by the given connection pool.
func NewTickerStore(pool *pgxpool.Pool) *TickerStore {
	return &TickerStore{pool: pool}
}

var tickerColumns = []string{"exchange", "base", "quote", "price", "liquidity", "recorded_at"}

// RecordQuotes replaces the stored snapshot for exchange. Invalid quotes are
// dropped and only the first quote of a repeated pair is kept.
func (s *TickerStore) RecordQuotes(ctx context.Context, exchange string, quotes []domain.Quote, at time.Time) error {
	rows := snapshotRows(exchange, quotes, at)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM ticker_snapshots WHERE exchange = $1", exchange); err != nil {
			return err
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"ticker_snapshots"}, tickerColumns, pgx.CopyFromRows(rows))
		return err
	})
	if err != nil {
		return fmt.Errorf("postgres: record quotes %s: %w", exchange, err)
	}
	return nil
}

// Latest returns the stored snapshot for exchange, or domain.ErrNotFound.
func (s *TickerStore) Latest(ctx context.Context, exchange string) (domain.TickerSnapshot, error) {
	const query = `
		SELECT base, quote, price, liquidity, recorded_at
		FROM ticker_snapshots
		WHERE exchange = $1
		ORDER BY base, quote`

	rows, err := s.pool.Query(ctx, query, exchange)
	if err != nil {
		return domain.TickerSnapshot{}, fmt.Errorf("postgres: latest quotes %s: %w", exchange, err)
	}
	defer rows.Close()

	snap := domain.TickerSnapshot{Exchange: exchange}
	for rows.Next() {
		var (
			q  domain.Quote
			at time.Time
		)
		if err := rows.Scan(&q.Base, &q.Quote, &q.Price, &q.Liquidity, &at); err != nil {
			return domain.TickerSnapshot{}, fmt.Errorf("postgres: scan quote: %w", err)
		}
		if at.After(snap.RecordedAt) {
			snap.RecordedAt = at
		}
		snap.Quotes = append(snap.Quotes, q)
	}
	if err := rows.Err(); err != nil {
		return domain.TickerSnapshot{}, fmt.Errorf("postgres: latest quotes %s: %w", exchange, err)
	}
	if len(snap.Quotes) == 0 {
		return domain.TickerSnapshot{}, fmt.Errorf("postgres: snapshot %s: %w", exchange, domain.ErrNotFound)
	}
	return snap, nil
}

// Exchanges lists exchanges that have a stored snapshot.
func (s *TickerStore) Exchanges(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT DISTINCT exchange FROM ticker_snapshots ORDER BY exchange")
	if err != nil {
		return nil, fmt.Errorf("postgres: list exchanges: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres: list exchanges: %w", err)
	}
	return names, nil
}

// snapshotRows converts quotes to COPY rows, skipping invalid and repeated
// pairs.
func snapshotRows(exchange string, quotes []domain.Quote, at time.Time) [][]any {
	seen := make(map[[2]string]bool, len(quotes))
	rows := make([][]any, 0, len(quotes))
	for _, q := range quotes {
		pair := [2]string{q.Base, q.Quote}
		if !q.Valid() || seen[pair] {
			continue
		}
		seen[pair] = true
		rows = append(rows, []any{exchange, q.Base, q.Quote, q.Price, q.Liquidity, at})
	}
	return rows
}

// Compile-time interface check.
var _ domain.TickerStore = (*TickerStore)(nil)
