package arbitrage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/triscan/internal/domain"
)

func TestBuildGraph_SkipsInvalidQuotes(t *testing.T) {
	quotes := []domain.Quote{
		{Base: "BTC", Quote: "USDT", Price: 0},
		{Base: "ETH", Quote: "USDT", Price: math.NaN()},
		{Base: "SOL", Quote: "USDT", Price: -5},
		{Base: "XRP", Quote: "USDT", Price: math.Inf(1)},
		{Base: "USDT", Quote: "USDT", Price: 1},
		{Base: "", Quote: "USDT", Price: 1},
		{Base: "BTC", Quote: "ETH", Price: 20},
	}

	g := BuildGraph(quotes, ReverseSynthesize, 0)

	st := g.Stats()
	assert.Equal(t, 6, st.QuotesRejected)
	assert.Equal(t, 1, st.QuotesAccepted)
	assert.Equal(t, []string{"BTC", "ETH"}, g.Assets())
	assert.Equal(t, 2, g.EdgeCount())
	assert.Equal(t, []string{"ETH"}, g.Neighbors("BTC"))
	_, selfLoop := g.Edge("USDT", "USDT")
	assert.False(t, selfLoop)
}

func TestBuildGraph_ReversePolicy(t *testing.T) {
	quotes := []domain.Quote{{Base: "ETH", Quote: "USDT", Price: 2500}}

	t.Run("synthesize", func(t *testing.T) {
		g := BuildGraph(quotes, ReverseSynthesize, 0)
		e, ok := g.Edge("USDT", "ETH")
		require.True(t, ok)
		assert.True(t, e.Synthetic)
		assert.InDelta(t, 1.0/2500, e.Rate, 1e-15)
	})

	t.Run("listed only", func(t *testing.T) {
		g := BuildGraph(quotes, ReverseListedOnly, 0)
		_, ok := g.Edge("USDT", "ETH")
		assert.False(t, ok)
		_, ok = g.Edge("ETH", "USDT")
		assert.True(t, ok)
	})
}

func TestBuildGraph_ListedReverseWinsOverInverse(t *testing.T) {
	quotes := []domain.Quote{
		{Base: "A", Quote: "B", Price: 2},
		{Base: "B", Quote: "A", Price: 0.4},
	}

	g := BuildGraph(quotes, ReverseSynthesize, 0)

	ab, _ := g.Edge("A", "B")
	ba, _ := g.Edge("B", "A")
	assert.Equal(t, 2.0, ab.Rate)
	assert.Equal(t, 0.4, ba.Rate)
	assert.False(t, ab.Synthetic)
	assert.False(t, ba.Synthetic)
}

func TestBuildGraph_FirstDuplicateWins(t *testing.T) {
	quotes := []domain.Quote{
		{Base: "A", Quote: "B", Price: 2},
		{Base: "A", Quote: "B", Price: 3},
	}

	g := BuildGraph(quotes, ReverseListedOnly, 0)

	e, _ := g.Edge("A", "B")
	assert.Equal(t, 2.0, e.Rate)
	assert.Equal(t, 1, g.Stats().QuotesDuplicate)
}

func TestBuildGraph_TruncatesToBestConnected(t *testing.T) {
	quotes := []domain.Quote{
		{Base: "A", Quote: "B", Price: 1},
		{Base: "B", Quote: "C", Price: 1},
		{Base: "C", Quote: "A", Price: 1},
		{Base: "A", Quote: "D", Price: 1},
		{Base: "A", Quote: "E", Price: 1},
	}

	g := BuildGraph(quotes, ReverseSynthesize, 3)

	st := g.Stats()
	assert.True(t, st.Truncated)
	assert.Equal(t, 5, st.Assets)
	assert.Equal(t, 3, st.AssetsScanned)
	assert.Equal(t, []string{"A", "B", "C"}, g.Assets())
	_, ok := g.Edge("A", "D")
	assert.False(t, ok)
}

func TestBuildGraph_NoTruncationUnderCeiling(t *testing.T) {
	quotes := []domain.Quote{{Base: "A", Quote: "B", Price: 1}}

	g := BuildGraph(quotes, ReverseSynthesize, DefaultMaxAssets)

	assert.False(t, g.Stats().Truncated)
	assert.Equal(t, 2, g.Stats().AssetsScanned)
}

func TestBuildGraph_DropsBadLiquidity(t *testing.T) {
	quotes := []domain.Quote{
		{Base: "A", Quote: "B", Price: 1, Liquidity: domain.Float(math.NaN())},
		{Base: "B", Quote: "C", Price: 1, Liquidity: domain.Float(-1)},
		{Base: "C", Quote: "A", Price: 1, Liquidity: domain.Float(10)},
	}

	g := BuildGraph(quotes, ReverseListedOnly, 0)

	ab, _ := g.Edge("A", "B")
	bc, _ := g.Edge("B", "C")
	ca, _ := g.Edge("C", "A")
	assert.Nil(t, ab.Liquidity)
	assert.Nil(t, bc.Liquidity)
	require.NotNil(t, ca.Liquidity)
	assert.Equal(t, 10.0, *ca.Liquidity)
}
