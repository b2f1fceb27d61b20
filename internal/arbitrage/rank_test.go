package arbitrage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/triscan/internal/domain"
)

func opp(ex string, profit float64, route ...string) domain.ArbitrageOpportunity {
	return domain.ArbitrageOpportunity{Exchange: ex, Route: route, ProfitAfterFeesPct: profit}
}

func TestRank_CollapsesRotations(t *testing.T) {
	in := []domain.ArbitrageOpportunity{
		opp("x", 1.5, "B", "C", "A", "B"),
		opp("x", 1.5, "A", "B", "C", "A"),
		opp("x", 1.5, "C", "A", "B", "C"),
	}

	out, dups := Rank(in)

	assert.Equal(t, 2, dups)
	assert.Len(t, out, 1)
	assert.Equal(t, []string{"A", "B", "C", "A"}, out[0].Route)
}

func TestRank_KeepsReverseAndOtherExchanges(t *testing.T) {
	in := []domain.ArbitrageOpportunity{
		opp("x", 1, "A", "B", "C", "A"),
		opp("x", 0.5, "A", "C", "B", "A"),
		opp("y", 1, "A", "B", "C", "A"),
	}

	out, dups := Rank(in)

	assert.Zero(t, dups)
	assert.Len(t, out, 3)
}

func TestRank_OrdersByProfitThenRoute(t *testing.T) {
	in := []domain.ArbitrageOpportunity{
		opp("x", 0.2, "D", "E", "F", "D"),
		opp("x", 0.9, "G", "H", "I", "G"),
		opp("x", 0.9, "A", "B", "C", "A"),
	}

	out, _ := Rank(in)

	assert.Equal(t, "A → B → C → A", out[0].RouteString())
	assert.Equal(t, "G → H → I → G", out[1].RouteString())
	assert.Equal(t, "D → E → F → D", out[2].RouteString())
}

func TestRank_Idempotent(t *testing.T) {
	in := []domain.ArbitrageOpportunity{
		opp("x", 0.2, "D", "E", "F", "D"),
		opp("x", 0.9, "G", "H", "I", "G"),
		opp("x", 0.9, "H", "I", "G", "H"),
	}

	once, _ := Rank(in)
	twice, dups := Rank(once)

	assert.Equal(t, once, twice)
	assert.Zero(t, dups)
}

func TestMerge(t *testing.T) {
	a := []domain.ArbitrageOpportunity{opp("kucoin", 2, "A", "B", "C", "A"), opp("kucoin", 0.1, "D", "E", "F", "D")}
	b := []domain.ArbitrageOpportunity{opp("binance", 2, "A", "B", "C", "A")}

	out := Merge(a, b)

	assert.Len(t, out, 3)
	assert.Equal(t, "binance", out[0].Exchange)
	assert.Equal(t, "kucoin", out[1].Exchange)
	assert.Equal(t, 0.1, out[2].ProfitAfterFeesPct)
}
