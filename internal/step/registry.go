package step

import (
	"fmt"

	"github.com/vk/mcmcgo/internal/model"
	"golang.org/x/exp/rand"
)

// Factory describes one registrable step-method class: a competence query and
// a constructor binding an instance to a single variable.
type Factory struct {
	Name       string
	Competence func(s *model.Stochastic, hasGradient bool) Competence
	New        func(g *model.Graph, s *model.Stochastic, rng *rand.Rand) Method
}

// Registry holds step-method factories in registration order. Ties in
// competence are broken by that order, first registered wins, so assignment
// is deterministic across runs.
type Registry struct {
	factories []*Factory
	byName    map[string]*Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Factory)}
}

// Register adds a factory. Registering the same name twice is a programmer
// error and panics.
func (r *Registry) Register(f *Factory) {
	if _, exists := r.byName[f.Name]; exists {
		panic(fmt.Sprintf("step method factory %q already registered", f.Name))
	}
	r.byName[f.Name] = f
	r.factories = append(r.factories, f)
}

// Factories returns the registered factories in registration order.
func (r *Registry) Factories() []*Factory { return r.factories }

// AssignMethod queries every registered factory and instantiates the one
// with the highest competence for the variable. The strict comparison keeps
// the first-registered factory on ties.
func (r *Registry) AssignMethod(g *model.Graph, s *model.Stochastic, rng *rand.Rand) (Method, error) {
	var best *Factory
	bestRank := Incompatible
	for _, f := range r.factories {
		if rank := f.Competence(s, s.HasGradient()); rank > bestRank {
			best, bestRank = f, rank
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no registered step method is compatible with stochastic %q", s.Name())
	}
	return best.New(g, s, rng), nil
}

// Default returns the stock registry: Metropolis as the universal fallback,
// with slice sampling preferred for continuous variables and rounded-proposal
// Metropolis preferred for discrete ones.
func Default() *Registry {
	r := NewRegistry()
	r.Register(&Factory{
		Name: "metropolis",
		Competence: func(s *model.Stochastic, hasGradient bool) Competence {
			return Compatible
		},
		New: func(g *model.Graph, s *model.Stochastic, rng *rand.Rand) Method {
			return NewMetropolis(g, s, rng)
		},
	})
	r.Register(&Factory{
		Name: "slice",
		Competence: func(s *model.Stochastic, hasGradient bool) Competence {
			if s.Discrete() {
				return Incompatible
			}
			return Preferred
		},
		New: func(g *model.Graph, s *model.Stochastic, rng *rand.Rand) Method {
			return NewSlice(g, s, rng)
		},
	})
	r.Register(&Factory{
		Name: "discrete_metropolis",
		Competence: func(s *model.Stochastic, hasGradient bool) Competence {
			if s.Discrete() {
				return Preferred
			}
			return Incompatible
		},
		New: func(g *model.Graph, s *model.Stochastic, rng *rand.Rand) Method {
			return NewDiscreteMetropolis(g, s, rng)
		},
	})
	return r
}
