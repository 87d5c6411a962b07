package model

import "github.com/vk/mcmcgo/internal/lazy"

// The lazy caches are generated on first access, once the edge set is final.
// Fingerprints are built from the revision counters of the stochastic nodes
// each computation ultimately depends on; constants never change and are
// excluded.

func (g *Graph) genStochasticLazy(s *Stochastic) *lazy.Cache {
	ids := append(g.ExtendedParents(s.id).Sorted(), s.id)
	return lazy.New(s.cacheDepth,
		func() float64 { return s.logpFn(s.value, g.parentValues(s.id)) },
		g.revisionsFunc(ids))
}

func (g *Graph) genDeterministicLazy(d *Deterministic) *lazy.Cache {
	ids := g.ExtendedParents(d.id).Sorted()
	return lazy.New(d.cacheDepth,
		func() float64 { return d.evalFn(g.parentValues(d.id)) },
		g.revisionsFunc(ids))
}

func (g *Graph) genPotentialLazy(p *Potential) *lazy.Cache {
	ids := g.ExtendedParents(p.id).Sorted()
	return lazy.New(p.cacheDepth,
		func() float64 { return p.logpFn(g.parentValues(p.id)) },
		g.revisionsFunc(ids))
}

// revisionsFunc captures a fixed ultimate-argument order and reads the
// current revision counters into buf. Extended parents are stochastic by
// construction.
func (g *Graph) revisionsFunc(ids []NodeID) func(buf []uint64) []uint64 {
	return func(buf []uint64) []uint64 {
		for _, id := range ids {
			buf = append(buf, g.nodes[id].(*Stochastic).rev)
		}
		return buf
	}
}
