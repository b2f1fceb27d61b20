package scan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/triscan/internal/arbitrage"
	"github.com/alanyoungcy/triscan/internal/domain"
)

type fakeProvider struct {
	name   string
	quotes []domain.Quote
	err    error
	block  bool
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.quotes, f.err
}

type fakeProviders map[string]domain.QuoteProvider

func (f fakeProviders) Get(name string) (domain.QuoteProvider, error) {
	p, ok := f[name]
	if !ok {
		return nil, domain.ErrUnknownExchange
	}
	return p, nil
}

func (f fakeProviders) List() []string {
	var out []string
	for n := range f {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

type memRecorder struct {
	mu   sync.Mutex
	seen map[string]int
}

func (m *memRecorder) RecordQuotes(_ context.Context, exchange string, quotes []domain.Quote, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[exchange] = len(quotes)
	return nil
}

// triangle returns a listed A→B→C→A loop with the given gross product.
func triangle(gross float64) []domain.Quote {
	return []domain.Quote{
		{Base: "A", Quote: "B", Price: 2},
		{Base: "B", Quote: "C", Price: 5},
		{Base: "C", Quote: "A", Price: gross / 10},
	}
}

func newTestScanner(p Providers, rec domain.QuoteRecorder) *Scanner {
	det := arbitrage.DefaultConfig()
	det.FeePctPerLeg = 0
	return New(p, Config{Detection: det, FetchTimeout: 100 * time.Millisecond, Workers: 2}, rec,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestScan_IsolatesFailingExchanges(t *testing.T) {
	providers := fakeProviders{
		"good":  &fakeProvider{name: "good", quotes: triangle(1.02)},
		"down":  &fakeProvider{name: "down", err: errors.New("connection refused")},
		"stuck": &fakeProvider{name: "stuck", block: true},
	}
	s := newTestScanner(providers, nil)

	report, err := s.Scan(context.Background(), Request{Exchanges: []string{"good", "down", "stuck", "nope"}})

	require.NoError(t, err)
	require.Len(t, report.Exchanges, 4)
	assert.Empty(t, report.Exchanges[0].Error)
	assert.Len(t, report.Exchanges[0].Opportunities, 1)
	assert.Contains(t, report.Exchanges[1].Error, "connection refused")
	assert.Contains(t, report.Exchanges[2].Error, "deadline")
	assert.Contains(t, report.Exchanges[3].Error, "unknown exchange")
	assert.ElementsMatch(t, []string{"down", "stuck", "nope"}, report.Failed())
	require.Len(t, report.Opportunities, 1)
	assert.Equal(t, "good", report.Opportunities[0].Exchange)
	assert.NotEmpty(t, report.ID)
}

func TestScan_MergesAndRanks(t *testing.T) {
	providers := fakeProviders{
		"x": &fakeProvider{name: "x", quotes: triangle(1.01)},
		"y": &fakeProvider{name: "y", quotes: triangle(1.03)},
	}
	s := newTestScanner(providers, nil)

	report, err := s.Scan(context.Background(), Request{})

	require.NoError(t, err)
	require.Len(t, report.Opportunities, 2)
	assert.Equal(t, "y", report.Opportunities[0].Exchange)
	assert.Equal(t, "x", report.Opportunities[1].Exchange)
	assert.InDelta(t, 3.0, report.Opportunities[0].ProfitAfterFeesPct, 1e-9)
}

func TestScan_ProfitBand(t *testing.T) {
	providers := fakeProviders{
		"x": &fakeProvider{name: "x", quotes: triangle(1.01)},
		"y": &fakeProvider{name: "y", quotes: triangle(1.03)},
		"z": &fakeProvider{name: "z", quotes: triangle(1.05)},
	}
	s := newTestScanner(providers, nil)
	lo, hi := 2.0, 4.0

	report, err := s.Scan(context.Background(), Request{MinProfitPct: &lo, MaxProfitPct: &hi})

	require.NoError(t, err)
	require.Len(t, report.Opportunities, 1)
	assert.Equal(t, "y", report.Opportunities[0].Exchange)
}

func TestScan_RejectsInvertedBand(t *testing.T) {
	s := newTestScanner(fakeProviders{}, nil)
	lo, hi := 5.0, 1.0

	_, err := s.Scan(context.Background(), Request{MinProfitPct: &lo, MaxProfitPct: &hi})

	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
}

func TestScan_DeduplicatesRequestedExchanges(t *testing.T) {
	providers := fakeProviders{"x": &fakeProvider{name: "x", quotes: triangle(1.01)}}
	s := newTestScanner(providers, nil)

	report, err := s.Scan(context.Background(), Request{Exchanges: []string{"x", "x", ""}})

	require.NoError(t, err)
	assert.Len(t, report.Exchanges, 1)
}

func TestScan_RecordsQuotes(t *testing.T) {
	providers := fakeProviders{
		"x":    &fakeProvider{name: "x", quotes: triangle(1.01)},
		"down": &fakeProvider{name: "down", err: errors.New("boom")},
	}
	rec := &memRecorder{seen: map[string]int{}}
	s := newTestScanner(providers, rec)

	_, err := s.Scan(context.Background(), Request{})

	require.NoError(t, err)
	assert.Equal(t, map[string]int{"x": 3}, rec.seen)
}
