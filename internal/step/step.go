// Package step defines the pluggable update algorithms driven by the sampler
// loop. Each Method owns one or more stochastic variables and knows how to
// propose and accept/reject new values for them conditional on the rest of
// the graph. A Registry ranks candidate methods by declared competence and
// instantiates the best match for each variable.
package step

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/vk/mcmcgo/internal/model"
)

// Competence ranks how well a step method suits a variable.
type Competence int

const (
	// Incompatible means the method cannot update the variable at all.
	Incompatible Competence = iota
	// Compatible means the method works but is a generic fallback.
	Compatible
	// Preferred means the method exploits some structure of the variable.
	Preferred
	// Ideal means the method was designed for exactly this variable kind.
	Ideal
)

func (c Competence) String() string {
	switch c {
	case Incompatible:
		return "incompatible"
	case Compatible:
		return "compatible"
	case Preferred:
		return "preferred"
	case Ideal:
		return "ideal"
	default:
		return "unknown"
	}
}

// Method is one update rule bound to a set of stochastic variables. It
// persists for the whole sampling run and carries tunable internal state.
type Method interface {
	// Name identifies the method instance for checkpointing, e.g.
	// "metropolis:mu".
	Name() string
	// Variables returns the stochastic variables this method updates.
	Variables() []*model.Stochastic
	// Step proposes and accepts or rejects one update.
	Step() error
	// Tune adapts internal parameters from accumulated statistics and
	// reports whether anything changed.
	Tune(logger *slog.Logger) (bool, error)
	// CurrentState returns the serializable tunable state.
	CurrentState() map[string]float64
	// RestoreState reinstalls state captured by CurrentState.
	RestoreState(state map[string]float64)
}

// logpPlusLoglike sums the variable's own log-probability with those of every
// node in the likelihood part of its Markov blanket: its extended children,
// potentials included. A zero-probability anywhere surfaces as
// model.ErrZeroProbability for the caller to branch on.
func logpPlusLoglike(g *model.Graph, s *model.Stochastic) (float64, error) {
	total, err := s.Logp()
	if err != nil {
		return 0, err
	}
	for _, id := range g.ExtendedChildren(s.ID()).Sorted() {
		var lp float64
		switch n := g.Node(id).(type) {
		case *model.Stochastic:
			lp, err = n.Logp()
		case *model.Potential:
			lp, err = n.Logp()
		default:
			continue
		}
		if err != nil {
			return 0, err
		}
		total += lp
	}
	return total, nil
}

// currentStateError wraps a zero-probability result for the *current* state,
// which no proposal can fix and is therefore fatal for the step.
func currentStateError(m Method, err error) error {
	if errors.Is(err, model.ErrZeroProbability) {
		return fmt.Errorf("%s: current state has zero probability, cannot step from it: %w", m.Name(), err)
	}
	return fmt.Errorf("%s: %w", m.Name(), err)
}
