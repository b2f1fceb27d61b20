package exchange

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/triscan/internal/domain"
)

type snapshotMap map[string][]domain.Quote

func (m snapshotMap) Latest(_ context.Context, exchange string) (domain.TickerSnapshot, error) {
	q, ok := m[exchange]
	if !ok {
		return domain.TickerSnapshot{}, fmt.Errorf("snapshot %s: %w", exchange, domain.ErrNotFound)
	}
	return domain.TickerSnapshot{Exchange: exchange, Quotes: q}, nil
}

func TestReplay(t *testing.T) {
	store := snapshotMap{"binance": {{Base: "BTC", Quote: "USDT", Price: 50000}}}
	reg := NewRegistry()
	RegisterReplays(reg, store, []string{"binance", "kraken"})
	assert.Equal(t, []string{"binance", "kraken"}, reg.List())

	p, err := reg.Get("binance")
	require.NoError(t, err)
	quotes, err := p.FetchQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "BTC/USDT", quotes[0].Symbol())

	p, err = reg.Get("kraken")
	require.NoError(t, err)
	_, err = p.FetchQuotes(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "kraken")
}
