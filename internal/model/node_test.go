package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStochastic_SetValueAndRevert(t *testing.T) {
	t.Parallel()

	g := New()
	x, err := g.AddStochastic("x", StochasticDef{Logp: stdNormalLogp, Value: fptr(1.5)})
	require.NoError(t, err)

	rev0 := x.Revision()
	require.NoError(t, x.SetValue(3.0))
	assert.Equal(t, 3.0, x.Value())
	assert.Equal(t, 1.5, x.LastValue())
	assert.Equal(t, rev0+1, x.Revision())

	// Revert restores both the value and the revision counter, so cached
	// results keyed on the old revision become valid again.
	x.Revert()
	assert.Equal(t, 1.5, x.Value())
	assert.Equal(t, rev0, x.Revision())
}

func TestStochastic_ObservedIsImmutable(t *testing.T) {
	t.Parallel()

	g := New()
	y, err := g.AddStochastic("y", StochasticDef{
		Logp:     stdNormalLogp,
		Value:    fptr(2.0),
		Observed: true,
	})
	require.NoError(t, err)

	err = y.SetValue(5.0)
	assert.ErrorContains(t, err, "observed")
	assert.Equal(t, 2.0, y.Value())
}

func TestStochastic_DiscreteRoundsOnAssignment(t *testing.T) {
	t.Parallel()

	g := New()
	k, err := g.AddStochastic("k", StochasticDef{
		Logp:     func(x float64, _ map[string]float64) float64 { return -math.Abs(x) },
		Value:    fptr(3),
		Discrete: true,
	})
	require.NoError(t, err)

	require.NoError(t, k.SetValue(4.6))
	assert.Equal(t, 5.0, k.Value())
}

func TestStochastic_LogpEdgeCases(t *testing.T) {
	t.Parallel()

	t.Run("NaN is coerced to -Inf without error", func(t *testing.T) {
		g := New()
		// Initial value 1 is valid; switching to a NaN-producing value must
		// not error, only report an impossible state.
		x, err := g.AddStochastic("x", StochasticDef{
			Logp: func(v float64, _ map[string]float64) float64 {
				if v < 0 {
					return math.NaN()
				}
				return -v
			},
			Value: fptr(1),
		})
		require.NoError(t, err)

		require.NoError(t, x.SetValue(-1))
		lp, err := x.Logp()
		require.NoError(t, err)
		assert.True(t, math.IsInf(lp, -1))
	})

	t.Run("threshold value is zero probability", func(t *testing.T) {
		g := New()
		x, err := g.AddStochastic("x", StochasticDef{
			Logp: func(v float64, _ map[string]float64) float64 {
				if v < 0 {
					return negInfThreshold
				}
				return -v
			},
			Value: fptr(1),
		})
		require.NoError(t, err)

		require.NoError(t, x.SetValue(-1))
		_, err = x.Logp()
		assert.ErrorIs(t, err, ErrZeroProbability)
	})

	t.Run("+Inf is fatal", func(t *testing.T) {
		g := New()
		x, err := g.AddStochastic("x", StochasticDef{
			Logp: func(v float64, _ map[string]float64) float64 {
				if v > 0 {
					return math.Inf(1)
				}
				return 0
			},
			Value: fptr(-1),
		})
		require.NoError(t, err)

		require.NoError(t, x.SetValue(1))
		_, err = x.Logp()
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrZeroProbability)
		assert.ErrorContains(t, err, "+Inf")
	})
}

func TestPotential_NaNIsVeto(t *testing.T) {
	t.Parallel()

	g := New()
	a, err := g.AddStochastic("a", StochasticDef{Logp: stdNormalLogp, Value: fptr(1)})
	require.NoError(t, err)

	pot, err := g.AddPotential("veto", PotentialDef{
		Logp: func(p map[string]float64) float64 {
			if p["a"] < 0 {
				return math.NaN()
			}
			return 0
		},
		Parents: map[string]ParentRef{"a": NodeParent(a.ID())},
	})
	require.NoError(t, err)

	// Unlike a stochastic node, NaN from a potential rejects the state.
	require.NoError(t, a.SetValue(-1))
	_, err = pot.Logp()
	assert.ErrorIs(t, err, ErrZeroProbability)
}

func TestDeterministic_RecomputesOnlyWhenAncestorsChange(t *testing.T) {
	t.Parallel()

	g := New()
	a, err := g.AddStochastic("a", StochasticDef{Logp: stdNormalLogp, Value: fptr(2)})
	require.NoError(t, err)

	d, err := g.AddDeterministic("double", DeterministicDef{
		Eval:    func(p map[string]float64) float64 { return 2 * p["a"] },
		Parents: map[string]ParentRef{"a": NodeParent(a.ID())},
	})
	require.NoError(t, err)

	base := d.Recomputes()
	assert.Equal(t, 4.0, d.Value())
	assert.Equal(t, 4.0, d.Value())
	assert.Equal(t, base, d.Recomputes(), "repeated reads must hit the cache")

	require.NoError(t, a.SetValue(3))
	assert.Equal(t, 6.0, d.Value())
	assert.Equal(t, base+1, d.Recomputes())

	// After a revert the pre-proposal result is still within cache depth.
	a.Revert()
	assert.Equal(t, 4.0, d.Value())
	assert.Equal(t, base+1, d.Recomputes(), "reverted state must be served from cache")
}
