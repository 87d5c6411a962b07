// Package sampler owns the MCMC iteration state machine. It assigns step
// methods to stochastic variables through the step registry, drives the
// update -> tune -> record cycle with burn-in and thinning, and checkpoints
// sampler plus step-method state through the trace backend so an interrupted
// run can resume exactly where it stopped.
package sampler

import (
	"context"
	"sync/atomic"

	"github.com/vk/mcmcgo/internal/ctxlog"
	"github.com/vk/mcmcgo/internal/model"
	"github.com/vk/mcmcgo/internal/step"
	"github.com/vk/mcmcgo/internal/trace"
	"golang.org/x/exp/rand"
)

// Status is the sampler's lifecycle state.
type Status int32

const (
	// StatusReady means no run is in progress; Sample may be called.
	StatusReady Status = iota
	// StatusRunning means the loop is iterating.
	StatusRunning
	// StatusPaused means a pause request stopped the loop between
	// iterations; Resume continues it.
	StatusPaused
	// StatusHalted is terminal for the current run: an interrupt or halt
	// request stopped the loop after flushing the trace.
	StatusHalted
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// assignState tracks whether the active step-method set has been derived.
// Once assigned, re-entry into AssignStepMethods is a verbosity-only update:
// re-deriving would silently discard accumulated tuning state.
type assignState int

const (
	unassigned assignState = iota
	assigned
)

// Sampler drives one MCMC chain over a variable graph.
type Sampler struct {
	g       *model.Graph
	backend trace.Backend
	reg     *step.Registry
	rng     *rand.Rand

	priorBlock bool

	status        atomic.Int32
	haltRequest   atomic.Bool
	pauseRequest  atomic.Bool
	smState       assignState
	methodsByVar  map[model.NodeID][]step.Method
	activeMethods []step.Method

	currentIter     int
	totalIter       int
	burn            int
	thin            int
	tuneInterval    int
	nTally          int
	stopTuningAfter int
	saveInterval    int
	tuning          bool
	tuneThroughout  bool
	burnTillTuned   bool
	tunedCount      int
	progress        bool
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithRegistry replaces the default step-method registry.
func WithRegistry(r *step.Registry) Option {
	return func(s *Sampler) { s.reg = r }
}

// WithRand sets the random source shared by all assigned step methods.
func WithRand(rng *rand.Rand) Option {
	return func(s *Sampler) { s.rng = rng }
}

// WithoutPriorBlock disables the dataless pass that groups variables with no
// observed descendants under a single draw-from-prior method.
func WithoutPriorBlock() Option {
	return func(s *Sampler) { s.priorBlock = false }
}

// New creates a sampler for the graph backed by the given trace store.
func New(g *model.Graph, backend trace.Backend, opts ...Option) *Sampler {
	s := &Sampler{
		g:            g,
		backend:      backend,
		priorBlock:   true,
		methodsByVar: make(map[model.NodeID][]step.Method),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reg == nil {
		s.reg = step.Default()
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(1))
	}
	return s
}

// Status returns the current lifecycle state.
func (s *Sampler) Status() Status { return Status(s.status.Load()) }

func (s *Sampler) setStatus(st Status) { s.status.Store(int32(st)) }

// CurrentIter returns the number of completed iterations in the current run.
func (s *Sampler) CurrentIter() int { return s.currentIter }

// StepMethods returns the active step methods in their fixed per-run order.
func (s *Sampler) StepMethods() []step.Method { return s.activeMethods }

// Halt requests a graceful stop; the loop honors it between iterations.
func (s *Sampler) Halt() { s.haltRequest.Store(true) }

// Pause requests a pause; the loop honors it between iterations and Resume
// continues the run.
func (s *Sampler) Pause() { s.pauseRequest.Store(true) }

// UseStepMethod installs a user-supplied method for the variables it covers,
// pre-empting automatic assignment for them. When called after assignment it
// joins the active set directly.
func (s *Sampler) UseStepMethod(m step.Method) {
	for _, v := range m.Variables() {
		s.methodsByVar[v.ID()] = append(s.methodsByVar[v.ID()], m)
	}
	if s.smState == assigned {
		s.activeMethods = append(s.activeMethods, m)
	}
}

// AssignStepMethods makes sure every unobserved stochastic variable has a
// step method.
//
// The first pass groups dataless variables (no observed descendants at all)
// under one draw-from-prior method; the second assigns every remaining
// uncovered variable from the registry by competence. The resulting active
// set is ordered by first coverage in variable creation order, and that
// order is the per-iteration stepping order for the whole run.
//
// Once assigned, calling this again only re-logs the assignment; the active
// set and its tuning state are preserved.
func (s *Sampler) AssignStepMethods(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if s.smState == assigned {
		for _, m := range s.activeMethods {
			logger.Debug("Step method already assigned.", "method", m.Name())
		}
		return nil
	}

	if s.priorBlock {
		if generations := step.CrawlDataless(s.g); generations != nil {
			m := step.NewDrawFromPrior(s.g, generations, s.rng)
			for _, v := range m.Variables() {
				if len(s.methodsByVar[v.ID()]) == 0 {
					s.methodsByVar[v.ID()] = append(s.methodsByVar[v.ID()], m)
				}
			}
			logger.Debug("Assigned draw-from-prior block.", "variables", len(m.Variables()))
		}
	}

	for _, v := range s.g.Stochastics() {
		if v.Observed() || len(s.methodsByVar[v.ID()]) > 0 {
			continue
		}
		m, err := s.reg.AssignMethod(s.g, v, s.rng)
		if err != nil {
			return err
		}
		s.methodsByVar[v.ID()] = append(s.methodsByVar[v.ID()], m)
		logger.Debug("Assigned step method.", "method", m.Name(), "variable", v.Name())
	}

	seen := make(map[step.Method]bool)
	for _, v := range s.g.Stochastics() {
		for _, m := range s.methodsByVar[v.ID()] {
			if !seen[m] {
				seen[m] = true
				s.activeMethods = append(s.activeMethods, m)
			}
		}
	}

	if err := s.restoreMethodStates(); err != nil {
		return err
	}
	s.smState = assigned
	return nil
}

// registerTallyables points the backend's readers at the current values of
// every traced, unobserved variable. Registration is idempotent by name.
func (s *Sampler) registerTallyables() {
	for _, v := range s.g.Stochastics() {
		if v.Observed() || !v.Traced() {
			continue
		}
		v := v
		s.backend.Register(v.Name(), func() float64 { return v.Value() })
	}
	for _, d := range s.g.Deterministics() {
		if !d.Traced() {
			continue
		}
		d := d
		s.backend.Register(d.Name(), func() float64 { return d.Value() })
	}
}
