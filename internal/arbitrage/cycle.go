package arbitrage

import (
	"iter"
	"strings"
)

// Cycle is an ordered triple (A, B, C) standing for A→B→C→A.
type Cycle [3]string

// Canonical returns the rotation that starts at the lexicographically
// smallest asset. Rotations share it; the reversed direction does not.
func (c Cycle) Canonical() Cycle {
	best := c
	for _, r := range []Cycle{{c[1], c[2], c[0]}, {c[2], c[0], c[1]}} {
		if r[0] < best[0] {
			best = r
		}
	}
	return best
}

// Distinct reports whether the three assets differ.
func (c Cycle) Distinct() bool {
	return c[0] != c[1] && c[1] != c[2] && c[0] != c[2]
}

// Route returns [A, B, C, A].
func (c Cycle) Route() []string {
	return []string{c[0], c[1], c[2], c[0]}
}

func (c Cycle) String() string {
	return strings.Join(c.Route(), " → ")
}

// Cycles yields every (A, B, C) with edges A→B, B→C and C→A. Each physical
// triangle appears once per rotation; the ranker collapses them. Iteration
// order follows sorted asset names.
func (g *RateGraph) Cycles() iter.Seq[Cycle] {
	return func(yield func(Cycle) bool) {
		for _, a := range g.assets {
			for _, b := range g.neighbors[a] {
				if b == a {
					continue
				}
				for _, c := range g.neighbors[b] {
					if c == a || c == b {
						continue
					}
					if _, closes := g.edges[c][a]; !closes {
						continue
					}
					if !yield(Cycle{a, b, c}) {
						return
					}
				}
			}
		}
	}
}
