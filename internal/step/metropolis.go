package step

import (
	"errors"
	"log/slog"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/vk/mcmcgo/internal/model"
)

// Metropolis performs a random-walk Metropolis update on a single variable:
// a Gaussian proposal around the current value, accepted with the usual
// log-ratio test against the variable's Markov blanket log-probability.
type Metropolis struct {
	name string
	g    *model.Graph
	s    *model.Stochastic
	rng  *rand.Rand

	proposalSD          float64
	adaptiveScaleFactor float64
	accepted            float64
	rejected            float64
}

// NewMetropolis binds a Metropolis instance to s. The initial proposal width
// is a tenth of the value's magnitude, or 1 near zero; tuning adapts the
// scale factor from there.
func NewMetropolis(g *model.Graph, s *model.Stochastic, rng *rand.Rand) *Metropolis {
	sd := math.Abs(s.Value()) / 10
	if sd == 0 || math.IsNaN(sd) {
		sd = 1
	}
	return &Metropolis{
		name:                "metropolis:" + s.Name(),
		g:                   g,
		s:                   s,
		rng:                 rng,
		proposalSD:          sd,
		adaptiveScaleFactor: 1,
	}
}

func (m *Metropolis) Name() string { return m.name }

func (m *Metropolis) Variables() []*model.Stochastic { return []*model.Stochastic{m.s} }

// Step proposes once. A zero-probability proposal is an automatic rejection;
// a zero-probability current state is fatal, since no proposal from it can be
// weighed.
func (m *Metropolis) Step() error {
	logp, err := logpPlusLoglike(m.g, m.s)
	if err != nil {
		return currentStateError(m, err)
	}

	proposal := distuv.Normal{
		Mu:    m.s.Value(),
		Sigma: m.proposalSD * m.adaptiveScaleFactor,
		Src:   m.rng,
	}
	if err := m.s.SetValue(proposal.Rand()); err != nil {
		return err
	}

	logpP, err := logpPlusLoglike(m.g, m.s)
	if err != nil {
		if errors.Is(err, model.ErrZeroProbability) {
			m.s.Revert()
			m.rejected++
			return nil
		}
		return err
	}

	if math.Log(m.rng.Float64()) > logpP-logp {
		m.s.Revert()
		m.rejected++
		return nil
	}
	m.accepted++
	return nil
}

// Tune rescales the proposal from the observed acceptance rate:
//
//	rate < 0.001        x 0.1
//	rate < 0.05         x 0.5
//	rate < 0.2          x 0.9
//	rate > 0.95         x 10
//	rate > 0.75         x 2
//	rate > 0.5          x 1.1
//
// Acceptance counters reset on every call. Returns false when the rate is
// already in the target band or no steps were taken since the last tune.
func (m *Metropolis) Tune(logger *slog.Logger) (bool, error) {
	total := m.accepted + m.rejected
	if total == 0 {
		return false, nil
	}
	rate := m.accepted / total

	factor := 1.0
	switch {
	case rate < 0.001:
		factor = 0.1
	case rate < 0.05:
		factor = 0.5
	case rate < 0.2:
		factor = 0.9
	case rate > 0.95:
		factor = 10
	case rate > 0.75:
		factor = 2
	case rate > 0.5:
		factor = 1.1
	}

	m.accepted = 0
	m.rejected = 0

	if factor == 1.0 {
		return false, nil
	}
	m.adaptiveScaleFactor *= factor
	logger.Debug("Tuned proposal scale.",
		"method", m.name, "acceptance_rate", rate, "factor", factor,
		"adaptive_scale_factor", m.adaptiveScaleFactor)
	return true, nil
}

func (m *Metropolis) CurrentState() map[string]float64 {
	return map[string]float64{
		"proposal_sd":           m.proposalSD,
		"adaptive_scale_factor": m.adaptiveScaleFactor,
		"accepted":              m.accepted,
		"rejected":              m.rejected,
	}
}

func (m *Metropolis) RestoreState(state map[string]float64) {
	if v, ok := state["proposal_sd"]; ok {
		m.proposalSD = v
	}
	if v, ok := state["adaptive_scale_factor"]; ok {
		m.adaptiveScaleFactor = v
	}
	if v, ok := state["accepted"]; ok {
		m.accepted = v
	}
	if v, ok := state["rejected"]; ok {
		m.rejected = v
	}
}

// DiscreteMetropolis is Metropolis for integer-valued variables. Proposals
// are rounded by the variable itself on assignment; everything else is the
// continuous update.
type DiscreteMetropolis struct {
	Metropolis
}

// NewDiscreteMetropolis binds a rounded-proposal Metropolis instance to s.
func NewDiscreteMetropolis(g *model.Graph, s *model.Stochastic, rng *rand.Rand) *DiscreteMetropolis {
	m := NewMetropolis(g, s, rng)
	m.name = "discrete_metropolis:" + s.Name()
	return &DiscreteMetropolis{Metropolis: *m}
}
