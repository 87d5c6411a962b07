package step

import (
	"errors"
	"log/slog"
	"math"

	"github.com/vk/mcmcgo/internal/model"
	"golang.org/x/exp/rand"
)

// Slice updates a continuous variable with univariate slice sampling
// (stepping-out then shrinkage). It needs no acceptance tuning, which makes
// it the preferred default for continuous scalars.
type Slice struct {
	name string
	g    *model.Graph
	s    *model.Stochastic
	rng  *rand.Rand

	// w is the initial bracket width, m caps the number of step-out
	// expansions per side.
	w float64
	m int
}

// NewSlice binds a slice sampler to s.
func NewSlice(g *model.Graph, s *model.Stochastic, rng *rand.Rand) *Slice {
	w := math.Abs(s.Value()) / 2
	if w == 0 || math.IsNaN(w) {
		w = 1
	}
	return &Slice{
		name: "slice:" + s.Name(),
		g:    g,
		s:    s,
		rng:  rng,
		w:    w,
		m:    100,
	}
}

func (sl *Slice) Name() string { return sl.name }

func (sl *Slice) Variables() []*model.Stochastic { return []*model.Stochastic{sl.s} }

// Step draws the next value. The bracket [L, R] is positioned around the
// current value, stepped out while its ends remain inside the slice, then
// shrunk toward the current value until a draw lands inside the slice.
func (sl *Slice) Step() error {
	x0 := sl.s.Value()
	logp0, err := logpPlusLoglike(sl.g, sl.s)
	if err != nil {
		return currentStateError(sl, err)
	}

	// Slice level under the current point.
	logy := logp0 - sl.rng.ExpFloat64()

	left := x0 - sl.rng.Float64()*sl.w
	right := left + sl.w

	// Split the step-out budget randomly between the two sides.
	j := sl.rng.Intn(sl.m)
	k := sl.m - 1 - j

	for ; j > 0; j-- {
		lp, err := sl.logpAt(left)
		if err != nil {
			return err
		}
		if lp <= logy {
			break
		}
		left -= sl.w
	}
	for ; k > 0; k-- {
		lp, err := sl.logpAt(right)
		if err != nil {
			return err
		}
		if lp <= logy {
			break
		}
		right += sl.w
	}

	for {
		x1 := left + sl.rng.Float64()*(right-left)
		lp, err := sl.logpAt(x1)
		if err != nil {
			return err
		}
		if lp > logy {
			return nil // value already assigned by logpAt
		}
		if x1 < x0 {
			left = x1
		} else {
			right = x1
		}
		if right-left < 1e-12 {
			// Degenerate bracket; stay at the current point.
			return sl.s.SetValue(x0)
		}
	}
}

// logpAt assigns x and evaluates the blanket log-probability, mapping
// zero-probability to -Inf so the shrinkage loop treats it as outside the
// slice.
func (sl *Slice) logpAt(x float64) (float64, error) {
	if err := sl.s.SetValue(x); err != nil {
		return 0, err
	}
	lp, err := logpPlusLoglike(sl.g, sl.s)
	if err != nil {
		if errors.Is(err, model.ErrZeroProbability) {
			return math.Inf(-1), nil
		}
		return 0, err
	}
	return lp, nil
}

// Tune is a no-op: the bracket adapts per step, there is nothing to adjust
// between intervals.
func (sl *Slice) Tune(logger *slog.Logger) (bool, error) { return false, nil }

func (sl *Slice) CurrentState() map[string]float64 {
	return map[string]float64{"w": sl.w, "m": float64(sl.m)}
}

func (sl *Slice) RestoreState(state map[string]float64) {
	if v, ok := state["w"]; ok {
		sl.w = v
	}
	if v, ok := state["m"]; ok {
		sl.m = int(v)
	}
}
