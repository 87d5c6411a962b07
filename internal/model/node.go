package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/vk/mcmcgo/internal/lazy"
	"golang.org/x/exp/rand"
)

// negInfThreshold is the most negative representable double. Log-probabilities
// at or below it are treated as log(0).
const negInfThreshold = -1.7976931348623157e+308

// ErrZeroProbability signals that a node's current value (or its parents'
// values) lies outside the node's support. It is an expected, recoverable
// condition: step methods treat it as automatic rejection of the current
// proposal. Check for it with errors.Is.
var ErrZeroProbability = errors.New("zero probability")

// NodeID is a stable index into the graph's node arena.
type NodeID int

// NoNode marks a parent reference that carries a constant instead of a node.
const NoNode NodeID = -1

// Kind distinguishes the three node flavors.
type Kind int

const (
	// KindStochastic is a random variable with a value and a log-density.
	KindStochastic Kind = iota
	// KindDeterministic is a pure function of its parents.
	KindDeterministic
	// KindPotential is a log-probability term with no value of its own.
	KindPotential
)

func (k Kind) String() string {
	switch k {
	case KindStochastic:
		return "stochastic"
	case KindDeterministic:
		return "deterministic"
	case KindPotential:
		return "potential"
	default:
		return "unknown"
	}
}

// ParentRef binds a named parameter to either another node or a constant.
type ParentRef struct {
	node     NodeID
	constant float64
}

// NodeParent references the node with the given ID.
func NodeParent(id NodeID) ParentRef { return ParentRef{node: id} }

// ConstParent carries a fixed value.
func ConstParent(v float64) ParentRef { return ParentRef{node: NoNode, constant: v} }

// IsNode reports whether the reference points at a node.
func (r ParentRef) IsNode() bool { return r.node != NoNode }

// Node is implemented by all three node kinds.
type Node interface {
	ID() NodeID
	Name() string
	Kind() Kind
	// ParentRefs returns the named parent bindings. The returned map must
	// not be mutated.
	ParentRefs() map[string]ParentRef
}

// LogpFunc computes a log-density for value given parent values keyed by
// parameter name.
type LogpFunc func(value float64, parents map[string]float64) float64

// RandFunc draws a new value given parent values.
type RandFunc func(rng *rand.Rand, parents map[string]float64) float64

// EvalFunc computes a deterministic value or a potential's log-probability
// from parent values.
type EvalFunc func(parents map[string]float64) float64

type nodeCommon struct {
	id         NodeID
	name       string
	g          *Graph
	parents    map[string]ParentRef
	cacheDepth int
}

func (n *nodeCommon) ID() NodeID { return n.id }
func (n *nodeCommon) Name() string { return n.name }
func (n *nodeCommon) ParentRefs() map[string]ParentRef { return n.parents }

// Stochastic is a random variable: it owns a value, a log-density conditional
// on its parents, and a revision counter incremented on every value change.
type Stochastic struct {
	nodeCommon
	value     float64
	lastValue float64
	observed  bool
	discrete  bool
	traced    bool
	rev       uint64

	logpFn LogpFunc
	randFn RandFunc
	gradFn LogpFunc

	logp *lazy.Cache
}

func (s *Stochastic) Kind() Kind { return KindStochastic }

// Value returns the current value.
func (s *Stochastic) Value() float64 { return s.value }

// LastValue returns the value held before the most recent SetValue, for
// Metropolis-style rollback.
func (s *Stochastic) LastValue() float64 { return s.lastValue }

// Observed reports whether the value is fixed data.
func (s *Stochastic) Observed() bool { return s.observed }

// Discrete reports whether values are integer-constrained.
func (s *Stochastic) Discrete() bool { return s.discrete }

// Traced reports whether the sampler should record this variable.
func (s *Stochastic) Traced() bool { return s.traced }

// HasRand reports whether the variable can draw itself from its prior.
func (s *Stochastic) HasRand() bool { return s.randFn != nil }

// HasGradient reports whether a log-density gradient function was supplied.
func (s *Stochastic) HasGradient() bool { return s.gradFn != nil }

// Revision returns the value revision counter. Caches use it to detect
// staleness without comparing values.
func (s *Stochastic) Revision() uint64 { return s.rev }

// SetValue assigns a new value, remembering the previous one and bumping the
// revision counter. Observed variables cannot be updated.
func (s *Stochastic) SetValue(v float64) error {
	if s.observed {
		return fmt.Errorf("stochastic %q: value cannot be updated when the observed flag is set", s.name)
	}
	if s.discrete {
		v = math.Round(v)
	}
	s.lastValue = s.value
	s.value = v
	s.rev++
	return nil
}

// Revert restores the previous value and rolls the revision counter back, so
// cached results keyed on the old revision become valid again.
func (s *Stochastic) Revert() {
	s.rev--
	s.value = s.lastValue
}

// Draw samples a new value from the variable's prior given current parent
// values, assigns it unless the variable is observed, and returns it.
func (s *Stochastic) Draw(rng *rand.Rand) (float64, error) {
	if s.randFn == nil {
		return 0, fmt.Errorf("stochastic %q does not know how to draw its value", s.name)
	}
	v := s.randFn(rng, s.g.parentValues(s.id))
	if !s.observed {
		if err := s.SetValue(v); err != nil {
			return 0, err
		}
	}
	return v, nil
}

// Logp returns the log-density of the current value conditional on parents.
// NaN is coerced to -Inf (a degenerate but recoverable state). A result at or
// below the negative-infinity threshold returns ErrZeroProbability. A +Inf
// result is a modeling error and is fatal.
func (s *Stochastic) Logp() (float64, error) {
	raw := s.logpCache().Get()
	if math.IsNaN(raw) {
		return math.Inf(-1), nil
	}
	if math.IsInf(raw, 1) {
		return 0, fmt.Errorf("stochastic %q: computed log-probability is +Inf", s.name)
	}
	if raw <= negInfThreshold {
		return 0, fmt.Errorf(
			"stochastic %q: value is outside its support, or it forbids its parents' current values: %w",
			s.name, ErrZeroProbability)
	}
	return raw, nil
}

// LogpRecomputes returns how many times the log-density was actually
// recomputed, as opposed to served from cache.
func (s *Stochastic) LogpRecomputes() uint64 { return s.logpCache().Recomputes() }

func (s *Stochastic) logpCache() *lazy.Cache {
	if s.logp == nil {
		s.logp = s.g.genStochasticLazy(s)
	}
	return s.logp
}

// Deterministic is a variable whose value is a pure function of its parents.
// It is recomputed lazily and never assigned directly.
type Deterministic struct {
	nodeCommon
	traced bool
	evalFn EvalFunc
	value  *lazy.Cache
}

func (d *Deterministic) Kind() Kind { return KindDeterministic }

// Traced reports whether the sampler should record this variable.
func (d *Deterministic) Traced() bool { return d.traced }

// Value computes the node's value from current parent values, reusing a
// cached result when no stochastic ancestor has changed.
func (d *Deterministic) Value() float64 { return d.valueCache().Get() }

// Recomputes returns how many times the value was actually recomputed.
func (d *Deterministic) Recomputes() uint64 { return d.valueCache().Recomputes() }

func (d *Deterministic) valueCache() *lazy.Cache {
	if d.value == nil {
		d.value = d.g.genDeterministicLazy(d)
	}
	return d.value
}

// Potential is a log-probability term with no value of its own, used for soft
// constraints across variables that are not in a parent-child relationship.
type Potential struct {
	nodeCommon
	logpFn EvalFunc
	logp   *lazy.Cache
}

func (p *Potential) Kind() Kind { return KindPotential }

// Logp returns the potential's log-probability given current parent values.
// Unlike a stochastic node, a NaN result here is a veto: it returns
// ErrZeroProbability so the proposing step method rejects the move.
func (p *Potential) Logp() (float64, error) {
	raw := p.logpCache().Get()
	if math.IsInf(raw, 1) {
		return 0, fmt.Errorf("potential %q: computed log-probability is +Inf", p.name)
	}
	if math.IsNaN(raw) || raw <= negInfThreshold {
		return 0, fmt.Errorf("potential %q forbids its parents' current values: %w",
			p.name, ErrZeroProbability)
	}
	return raw, nil
}

// Recomputes returns how many times the log-probability was recomputed.
func (p *Potential) Recomputes() uint64 { return p.logpCache().Recomputes() }

func (p *Potential) logpCache() *lazy.Cache {
	if p.logp == nil {
		p.logp = p.g.genPotentialLazy(p)
	}
	return p.logp
}
