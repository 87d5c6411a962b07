// Package dist provides the stock distribution catalog consumed by the
// declarative model layer. Log-densities and draws are backed by gonum's
// stat/distuv; parameter combinations outside a distribution's support
// yield NaN, which the node layer treats as a currently-inconsistent
// (recoverable) state rather than an error.
package dist

import (
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/vk/mcmcgo/internal/model"
)

// Distribution describes one entry of the catalog.
type Distribution struct {
	Name string
	// Params lists the required parameter names.
	Params []string
	// Discrete marks integer-valued distributions.
	Discrete bool
	Logp     model.LogpFunc
	Rand     model.RandFunc
}

var catalog = map[string]*Distribution{
	"normal": {
		Name:   "normal",
		Params: []string{"mu", "sigma"},
		Logp: func(x float64, p map[string]float64) float64 {
			if p["sigma"] <= 0 {
				return math.NaN()
			}
			return distuv.Normal{Mu: p["mu"], Sigma: p["sigma"]}.LogProb(x)
		},
		Rand: func(rng *rand.Rand, p map[string]float64) float64 {
			if p["sigma"] <= 0 {
				return math.NaN()
			}
			return distuv.Normal{Mu: p["mu"], Sigma: p["sigma"], Src: rng}.Rand()
		},
	},
	"uniform": {
		Name:   "uniform",
		Params: []string{"min", "max"},
		Logp: func(x float64, p map[string]float64) float64 {
			if p["max"] <= p["min"] {
				return math.NaN()
			}
			return distuv.Uniform{Min: p["min"], Max: p["max"]}.LogProb(x)
		},
		Rand: func(rng *rand.Rand, p map[string]float64) float64 {
			if p["max"] <= p["min"] {
				return math.NaN()
			}
			return distuv.Uniform{Min: p["min"], Max: p["max"], Src: rng}.Rand()
		},
	},
	"gamma": {
		Name:   "gamma",
		Params: []string{"alpha", "beta"},
		Logp: func(x float64, p map[string]float64) float64 {
			if p["alpha"] <= 0 || p["beta"] <= 0 {
				return math.NaN()
			}
			return distuv.Gamma{Alpha: p["alpha"], Beta: p["beta"]}.LogProb(x)
		},
		Rand: func(rng *rand.Rand, p map[string]float64) float64 {
			if p["alpha"] <= 0 || p["beta"] <= 0 {
				return math.NaN()
			}
			return distuv.Gamma{Alpha: p["alpha"], Beta: p["beta"], Src: rng}.Rand()
		},
	},
	"beta": {
		Name:   "beta",
		Params: []string{"alpha", "beta"},
		Logp: func(x float64, p map[string]float64) float64 {
			if p["alpha"] <= 0 || p["beta"] <= 0 {
				return math.NaN()
			}
			return distuv.Beta{Alpha: p["alpha"], Beta: p["beta"]}.LogProb(x)
		},
		Rand: func(rng *rand.Rand, p map[string]float64) float64 {
			if p["alpha"] <= 0 || p["beta"] <= 0 {
				return math.NaN()
			}
			return distuv.Beta{Alpha: p["alpha"], Beta: p["beta"], Src: rng}.Rand()
		},
	},
	"exponential": {
		Name:   "exponential",
		Params: []string{"rate"},
		Logp: func(x float64, p map[string]float64) float64 {
			if p["rate"] <= 0 {
				return math.NaN()
			}
			return distuv.Exponential{Rate: p["rate"]}.LogProb(x)
		},
		Rand: func(rng *rand.Rand, p map[string]float64) float64 {
			if p["rate"] <= 0 {
				return math.NaN()
			}
			return distuv.Exponential{Rate: p["rate"], Src: rng}.Rand()
		},
	},
	"poisson": {
		Name:     "poisson",
		Params:   []string{"lambda"},
		Discrete: true,
		Logp: func(x float64, p map[string]float64) float64 {
			if p["lambda"] <= 0 || x < 0 || x != math.Trunc(x) {
				return math.NaN()
			}
			return distuv.Poisson{Lambda: p["lambda"]}.LogProb(x)
		},
		Rand: func(rng *rand.Rand, p map[string]float64) float64 {
			if p["lambda"] <= 0 {
				return math.NaN()
			}
			return distuv.Poisson{Lambda: p["lambda"], Src: rng}.Rand()
		},
	},
	"bernoulli": {
		Name:     "bernoulli",
		Params:   []string{"p"},
		Discrete: true,
		Logp: func(x float64, p map[string]float64) float64 {
			pr := p["p"]
			if pr < 0 || pr > 1 {
				return math.NaN()
			}
			switch x {
			case 0:
				return math.Log1p(-pr)
			case 1:
				return math.Log(pr)
			default:
				return math.NaN()
			}
		},
		Rand: func(rng *rand.Rand, p map[string]float64) float64 {
			pr := p["p"]
			if pr < 0 || pr > 1 {
				return math.NaN()
			}
			if rng.Float64() < pr {
				return 1
			}
			return 0
		},
	},
}

// Lookup returns the catalog entry for name.
func Lookup(name string) (*Distribution, bool) {
	d, ok := catalog[name]
	return d, ok
}

// Names returns all catalog names, sorted, for error messages.
func Names() []string {
	out := make([]string, 0, len(catalog))
	for name := range catalog {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
