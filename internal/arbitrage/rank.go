package arbitrage

import (
	"cmp"
	"slices"

	"github.com/alanyoungcy/triscan/internal/domain"
)

type dedupKey struct {
	exchange string
	cycle    Cycle
}

func keyOf(o domain.ArbitrageOpportunity) dedupKey {
	var c Cycle
	if len(o.Route) >= 3 {
		c = Cycle{o.Route[0], o.Route[1], o.Route[2]}
	}
	return dedupKey{exchange: o.Exchange, cycle: c.Canonical()}
}

// Compare orders opportunities by net profit descending, then route, then
// exchange. It is a total order on distinct opportunities.
func Compare(a, b domain.ArbitrageOpportunity) int {
	if c := cmp.Compare(b.ProfitAfterFeesPct, a.ProfitAfterFeesPct); c != 0 {
		return c
	}
	if c := cmp.Compare(a.RouteString(), b.RouteString()); c != 0 {
		return c
	}
	return cmp.Compare(a.Exchange, b.Exchange)
}

// Rank collapses rotations of the same cycle on the same exchange, keeping the
// most profitable (ties: smaller route string), and sorts the rest with
// Compare. It returns the ranked list and how many duplicates were dropped.
// Ranking a ranked list returns it unchanged.
func Rank(opps []domain.ArbitrageOpportunity) ([]domain.ArbitrageOpportunity, int) {
	best := make(map[dedupKey]int, len(opps))
	out := make([]domain.ArbitrageOpportunity, 0, len(opps))
	dups := 0
	for _, o := range opps {
		k := keyOf(o)
		i, seen := best[k]
		if !seen {
			best[k] = len(out)
			out = append(out, o)
			continue
		}
		dups++
		if Compare(o, out[i]) < 0 {
			out[i] = o
		}
	}
	slices.SortFunc(out, Compare)
	return out, dups
}

// Merge combines already-ranked per-exchange lists into one ranked list.
func Merge(lists ...[]domain.ArbitrageOpportunity) []domain.ArbitrageOpportunity {
	var n int
	for _, l := range lists {
		n += len(l)
	}
	out := make([]domain.ArbitrageOpportunity, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	slices.SortStableFunc(out, Compare)
	return out
}
