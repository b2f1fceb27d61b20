// Package arbitrage detects triangular arbitrage cycles in the quotes of a
// single exchange: it builds a rate graph, enumerates three-asset cycles,
// prices them net of fees and ranks the survivors.
package arbitrage

import (
	"cmp"
	"math"
	"slices"

	"github.com/alanyoungcy/triscan/internal/domain"
)

// ReversePolicy selects whether inverse edges are derived from quotes.
type ReversePolicy string

const (
	// ReverseSynthesize adds quote→base at 1/price when that direction is
	// not listed itself.
	ReverseSynthesize ReversePolicy = "synthesize"
	// ReverseListedOnly uses listed directions only.
	ReverseListedOnly ReversePolicy = "listed_only"
)

// Valid reports whether p is a known policy.
func (p ReversePolicy) Valid() bool {
	return p == ReverseSynthesize || p == ReverseListedOnly
}

// Edge is a directed conversion rate between two assets.
type Edge struct {
	Rate      float64
	Liquidity *float64
	Synthetic bool
}

// GraphStats describes how a graph was built.
type GraphStats struct {
	QuotesAccepted  int
	QuotesRejected  int
	QuotesDuplicate int
	Assets          int // distinct assets before truncation
	AssetsScanned   int
	Truncated       bool
}

// RateGraph is a directed graph of conversion rates for one exchange. Every
// edge has a finite positive rate and no asset has an edge to itself. A graph
// is read-only once built.
type RateGraph struct {
	edges     map[string]map[string]Edge
	assets    []string
	neighbors map[string][]string
	stats     GraphStats
}

// BuildGraph turns quotes into a rate graph. Invalid quotes (non-positive or
// non-finite price, empty or identical assets) are skipped and counted. When
// two quotes list the same direction the first valid one wins. If more than
// maxAssets distinct assets remain, only the maxAssets best-connected ones are
// kept and the graph is marked truncated. maxAssets <= 0 disables the ceiling.
func BuildGraph(quotes []domain.Quote, policy ReversePolicy, maxAssets int) *RateGraph {
	g := &RateGraph{edges: make(map[string]map[string]Edge)}

	for _, q := range quotes {
		if !q.Valid() {
			g.stats.QuotesRejected++
			continue
		}
		if _, dup := g.edges[q.Base][q.Quote]; dup {
			g.stats.QuotesDuplicate++
			continue
		}
		g.stats.QuotesAccepted++
		g.put(q.Base, q.Quote, Edge{Rate: q.Price, Liquidity: cleanLiquidity(q.Liquidity)})
	}

	if policy != ReverseListedOnly {
		g.synthesizeInverses()
	}

	g.stats.Assets = g.countAssets()
	if maxAssets > 0 && g.stats.Assets > maxAssets {
		g.truncate(maxAssets)
		g.stats.Truncated = true
	}
	g.freeze()
	g.stats.AssetsScanned = len(g.assets)
	return g
}

func (g *RateGraph) put(from, to string, e Edge) {
	out, ok := g.edges[from]
	if !ok {
		out = make(map[string]Edge)
		g.edges[from] = out
	}
	out[to] = e
}

// synthesizeInverses fills empty reverse slots only, so listed directions
// always take precedence over derived ones.
func (g *RateGraph) synthesizeInverses() {
	type inverse struct {
		from, to string
		edge     Edge
	}
	var add []inverse
	for from, out := range g.edges {
		for to, e := range out {
			if _, listed := g.edges[to][from]; listed {
				continue
			}
			rate := 1 / e.Rate
			if !finitePositive(rate) {
				continue
			}
			add = append(add, inverse{from: to, to: from, edge: Edge{Rate: rate, Liquidity: e.Liquidity, Synthetic: true}})
		}
	}
	for _, inv := range add {
		g.put(inv.from, inv.to, inv.edge)
	}
}

func (g *RateGraph) countAssets() int {
	seen := make(map[string]struct{})
	for from, out := range g.edges {
		seen[from] = struct{}{}
		for to := range out {
			seen[to] = struct{}{}
		}
	}
	return len(seen)
}

// truncate keeps the limit assets with the most edges, ties broken by name.
func (g *RateGraph) truncate(limit int) {
	degree := make(map[string]int)
	for from, out := range g.edges {
		for to := range out {
			degree[from]++
			degree[to]++
		}
	}
	names := make([]string, 0, len(degree))
	for a := range degree {
		names = append(names, a)
	}
	slices.SortFunc(names, func(a, b string) int {
		if c := cmp.Compare(degree[b], degree[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	keep := make(map[string]struct{}, limit)
	for _, a := range names[:limit] {
		keep[a] = struct{}{}
	}
	for from, out := range g.edges {
		if _, ok := keep[from]; !ok {
			delete(g.edges, from)
			continue
		}
		for to := range out {
			if _, ok := keep[to]; !ok {
				delete(out, to)
			}
		}
		if len(out) == 0 {
			delete(g.edges, from)
		}
	}
}

// freeze precomputes sorted adjacency so enumeration is deterministic.
func (g *RateGraph) freeze() {
	seen := make(map[string]struct{})
	g.neighbors = make(map[string][]string, len(g.edges))
	for from, out := range g.edges {
		seen[from] = struct{}{}
		next := make([]string, 0, len(out))
		for to := range out {
			seen[to] = struct{}{}
			next = append(next, to)
		}
		slices.Sort(next)
		g.neighbors[from] = next
	}
	g.assets = make([]string, 0, len(seen))
	for a := range seen {
		g.assets = append(g.assets, a)
	}
	slices.Sort(g.assets)
}

// Edge returns the edge from→to.
func (g *RateGraph) Edge(from, to string) (Edge, bool) {
	e, ok := g.edges[from][to]
	return e, ok
}

// Assets returns every asset in the graph, sorted.
func (g *RateGraph) Assets() []string {
	return slices.Clone(g.assets)
}

// Neighbors returns the assets reachable from a in one hop, sorted.
func (g *RateGraph) Neighbors(a string) []string {
	return slices.Clone(g.neighbors[a])
}

// EdgeCount returns the number of directed edges.
func (g *RateGraph) EdgeCount() int {
	n := 0
	for _, out := range g.edges {
		n += len(out)
	}
	return n
}

// Stats returns build counters.
func (g *RateGraph) Stats() GraphStats {
	return g.stats
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// cleanLiquidity drops volumes that cannot be compared.
func cleanLiquidity(l *float64) *float64 {
	if l == nil || math.IsNaN(*l) || math.IsInf(*l, 0) || *l < 0 {
		return nil
	}
	v := *l
	return &v
}
