package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

// stdNormalLogp is a density for tests that never rejects a value.
func stdNormalLogp(x float64, _ map[string]float64) float64 {
	return -x * x / 2
}

// chainGraph builds theta -> scaled (deterministic) -> y (observed), plus a
// potential over theta.
func chainGraph(t *testing.T) (*Graph, *Stochastic, *Deterministic, *Stochastic, *Potential) {
	t.Helper()
	g := New()

	theta, err := g.AddStochastic("theta", StochasticDef{
		Logp:  stdNormalLogp,
		Value: fptr(0.5),
	})
	require.NoError(t, err)

	scaled, err := g.AddDeterministic("scaled", DeterministicDef{
		Eval:    func(p map[string]float64) float64 { return 2 * p["theta"] },
		Parents: map[string]ParentRef{"theta": NodeParent(theta.ID())},
	})
	require.NoError(t, err)

	y, err := g.AddStochastic("y", StochasticDef{
		Logp: func(x float64, p map[string]float64) float64 {
			d := x - p["mu"]
			return -d * d / 2
		},
		Parents:  map[string]ParentRef{"mu": NodeParent(scaled.ID())},
		Value:    fptr(1.2),
		Observed: true,
	})
	require.NoError(t, err)

	pot, err := g.AddPotential("soft_range", PotentialDef{
		Logp:    func(p map[string]float64) float64 { return -math.Abs(p["theta"]) },
		Parents: map[string]ParentRef{"theta": NodeParent(theta.ID())},
	})
	require.NoError(t, err)

	return g, theta, scaled, y, pot
}

func TestGraph_EdgeSymmetry(t *testing.T) {
	t.Parallel()

	g, theta, scaled, y, pot := chainGraph(t)

	// Every parent edge must have the matching child edge.
	assert.True(t, g.ParentsOf(scaled.ID()).Has(theta.ID()))
	assert.True(t, g.ChildrenOf(theta.ID()).Has(scaled.ID()))

	assert.True(t, g.ParentsOf(y.ID()).Has(scaled.ID()))
	assert.True(t, g.ChildrenOf(scaled.ID()).Has(y.ID()))

	assert.True(t, g.ParentsOf(pot.ID()).Has(theta.ID()))
	assert.True(t, g.ChildrenOf(theta.ID()).Has(pot.ID()))
}

func TestGraph_ExtendedRelationsSkipDeterministics(t *testing.T) {
	t.Parallel()

	g, theta, scaled, y, pot := chainGraph(t)

	// y's nearest stochastic ancestor is theta, through the deterministic.
	extParents := g.ExtendedParents(y.ID())
	assert.True(t, extParents.Has(theta.ID()))
	assert.False(t, extParents.Has(scaled.ID()))

	// theta's extended children are y and the potential, not the
	// deterministic in between.
	extChildren := g.ExtendedChildren(theta.ID())
	assert.True(t, extChildren.Has(y.ID()))
	assert.True(t, extChildren.Has(pot.ID()))
	assert.False(t, extChildren.Has(scaled.ID()))
}

func TestGraph_MarkovBlanket(t *testing.T) {
	t.Parallel()

	g := New()

	a, err := g.AddStochastic("a", StochasticDef{Logp: stdNormalLogp, Value: fptr(0)})
	require.NoError(t, err)
	b, err := g.AddStochastic("b", StochasticDef{Logp: stdNormalLogp, Value: fptr(0)})
	require.NoError(t, err)

	// y has two stochastic parents, making a and b coparents of each other.
	y, err := g.AddStochastic("y", StochasticDef{
		Logp: func(x float64, p map[string]float64) float64 {
			d := x - p["a"] - p["b"]
			return -d * d / 2
		},
		Parents:  map[string]ParentRef{"a": NodeParent(a.ID()), "b": NodeParent(b.ID())},
		Value:    fptr(1),
		Observed: true,
	})
	require.NoError(t, err)

	blanket := g.MarkovBlanket(a)
	assert.True(t, blanket.Has(a.ID()), "blanket includes the variable itself")
	assert.True(t, blanket.Has(y.ID()), "blanket includes the child")
	assert.True(t, blanket.Has(b.ID()), "blanket includes the coparent")

	// Potentials never appear in the moral graph.
	pot, err := g.AddPotential("p", PotentialDef{
		Logp:    func(p map[string]float64) float64 { return -p["a"] * p["a"] },
		Parents: map[string]ParentRef{"a": NodeParent(a.ID())},
	})
	require.NoError(t, err)
	assert.False(t, g.MarkovBlanket(a).Has(pot.ID()))
}

func TestGraph_RejectsInvalidConstruction(t *testing.T) {
	t.Parallel()

	t.Run("duplicate name", func(t *testing.T) {
		g := New()
		_, err := g.AddStochastic("x", StochasticDef{Logp: stdNormalLogp, Value: fptr(0)})
		require.NoError(t, err)
		_, err = g.AddStochastic("x", StochasticDef{Logp: stdNormalLogp, Value: fptr(0)})
		assert.ErrorContains(t, err, "already exists")
	})

	t.Run("dangling parent reference", func(t *testing.T) {
		g := New()
		_, err := g.AddStochastic("x", StochasticDef{
			Logp:    stdNormalLogp,
			Parents: map[string]ParentRef{"mu": NodeParent(42)},
			Value:   fptr(0),
		})
		assert.ErrorContains(t, err, "does not exist")
	})

	t.Run("potential as parent", func(t *testing.T) {
		g := New()
		a, err := g.AddStochastic("a", StochasticDef{Logp: stdNormalLogp, Value: fptr(0)})
		require.NoError(t, err)
		pot, err := g.AddPotential("pot", PotentialDef{
			Logp:    func(p map[string]float64) float64 { return 0 },
			Parents: map[string]ParentRef{"a": NodeParent(a.ID())},
		})
		require.NoError(t, err)
		_, err = g.AddStochastic("b", StochasticDef{
			Logp:    stdNormalLogp,
			Parents: map[string]ParentRef{"mu": NodeParent(pot.ID())},
			Value:   fptr(0),
		})
		assert.ErrorContains(t, err, "cannot be a parent")
	})

	t.Run("observed without value", func(t *testing.T) {
		g := New()
		_, err := g.AddStochastic("x", StochasticDef{Logp: stdNormalLogp, Observed: true})
		assert.ErrorContains(t, err, "must be given a value if observed")
	})

	t.Run("no value and no rand", func(t *testing.T) {
		g := New()
		_, err := g.AddStochastic("x", StochasticDef{Logp: stdNormalLogp})
		assert.ErrorContains(t, err, "no initial value or random method")
	})

	t.Run("invalid initial state", func(t *testing.T) {
		g := New()
		_, err := g.AddStochastic("x", StochasticDef{
			Logp:  func(x float64, _ map[string]float64) float64 { return math.Inf(-1) },
			Value: fptr(0),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrZeroProbability)
	})
}

func TestGraph_DetectCyclesOnAcyclicGraph(t *testing.T) {
	t.Parallel()

	g, _, _, _, _ := chainGraph(t)
	assert.NoError(t, g.DetectCycles())
}
