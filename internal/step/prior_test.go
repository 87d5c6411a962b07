package step

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/vk/mcmcgo/internal/model"
)

// datalessGraph builds two disjoint regions: theta -> y (observed data), and
// the dataless chain alpha -> beta with no observed descendants.
func datalessGraph(t *testing.T) (*model.Graph, *model.Stochastic, *model.Stochastic) {
	t.Helper()
	g := model.New()

	draw := func(rng *rand.Rand, _ map[string]float64) float64 { return rng.NormFloat64() }

	theta, err := g.AddStochastic("theta", model.StochasticDef{
		Logp: flatLogp, Rand: draw, Value: fptr(0),
	})
	require.NoError(t, err)
	_, err = g.AddStochastic("y", model.StochasticDef{
		Logp: func(x float64, p map[string]float64) float64 {
			d := x - p["mu"]
			return -d * d / 2
		},
		Parents:  map[string]model.ParentRef{"mu": model.NodeParent(theta.ID())},
		Value:    fptr(1),
		Observed: true,
	})
	require.NoError(t, err)

	alpha, err := g.AddStochastic("alpha", model.StochasticDef{
		Logp: flatLogp, Rand: draw, Value: fptr(0),
	})
	require.NoError(t, err)
	beta, err := g.AddStochastic("beta", model.StochasticDef{
		Logp: func(x float64, p map[string]float64) float64 {
			d := x - p["loc"]
			return -d * d / 2
		},
		Rand:    func(rng *rand.Rand, p map[string]float64) float64 { return p["loc"] + rng.NormFloat64() },
		Parents: map[string]model.ParentRef{"loc": model.NodeParent(alpha.ID())},
		Value:   fptr(0),
	})
	require.NoError(t, err)

	return g, alpha, beta
}

func TestCrawlDataless(t *testing.T) {
	t.Parallel()

	g, alpha, beta := datalessGraph(t)

	generations := CrawlDataless(g)
	require.Len(t, generations, 2)

	// Leaves first: beta has no extended children, alpha only feeds beta.
	require.Len(t, generations[0], 1)
	assert.Equal(t, beta.ID(), generations[0][0].ID())
	require.Len(t, generations[1], 1)
	assert.Equal(t, alpha.ID(), generations[1][0].ID())
}

func TestCrawlDataless_StopsAtObservedDescendants(t *testing.T) {
	t.Parallel()

	g, _, _ := datalessGraph(t)

	var names []string
	for _, gen := range CrawlDataless(g) {
		for _, s := range gen {
			names = append(names, s.Name())
		}
	}
	// theta has an observed child, so it is never dataless.
	assert.NotContains(t, names, "theta")
	assert.NotContains(t, names, "y")
}

func TestCrawlDataless_NilWhenEverythingHasData(t *testing.T) {
	t.Parallel()

	g := model.New()
	x, err := g.AddStochastic("x", model.StochasticDef{
		Logp: flatLogp,
		Rand: func(rng *rand.Rand, _ map[string]float64) float64 { return rng.NormFloat64() },
	})
	require.NoError(t, err)
	_, err = g.AddStochastic("obs", model.StochasticDef{
		Logp: func(v float64, p map[string]float64) float64 {
			d := v - p["mu"]
			return -d * d / 2
		},
		Parents:  map[string]model.ParentRef{"mu": model.NodeParent(x.ID())},
		Value:    fptr(0.3),
		Observed: true,
	})
	require.NoError(t, err)

	assert.Nil(t, CrawlDataless(g))
}

func TestDrawFromPrior_StepsAncestorsFirst(t *testing.T) {
	t.Parallel()

	g, alpha, beta := datalessGraph(t)
	m := NewDrawFromPrior(g, CrawlDataless(g), rand.New(rand.NewSource(2)))

	// The method owns both variables, ancestors first.
	vars := m.Variables()
	require.Len(t, vars, 2)
	assert.Equal(t, alpha.ID(), vars[0].ID())
	assert.Equal(t, beta.ID(), vars[1].ID())

	// Draws always succeed and move the block.
	before := []float64{alpha.Value(), beta.Value()}
	require.NoError(t, m.Step())
	after := []float64{alpha.Value(), beta.Value()}
	assert.NotEqual(t, before, after)

	changed, err := m.Tune(discardLogger())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, m.CurrentState())
}
