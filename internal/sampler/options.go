package sampler

import "fmt"

// Options configures one call to Sample. Zero values for Thin, TuneInterval
// and StopTuningAfter are replaced with the stock defaults; note that the
// zero value of TuneThroughout disables post-burn tuning, so most callers
// should start from DefaultOptions.
type Options struct {
	// Iter is the total number of iterations to run.
	Iter int
	// Burn is the number of initial iterations excluded from the trace.
	Burn int
	// Thin records only every Thin-th post-burn iteration. Default 1.
	Thin int
	// TuneInterval is the number of iterations between tuning passes.
	// Default 1000.
	TuneInterval int
	// TuneThroughout keeps tuning active after burn-in ends.
	TuneThroughout bool
	// BurnTillTuned extends burn-in until every step method reports no
	// tuning activity for StopTuningAfter consecutive intervals. Forces
	// TuneThroughout off and preserves the number of tallied samples by
	// recomputing the total iteration count as burn-in grows.
	BurnTillTuned bool
	// StopTuningAfter is the debounce length for BurnTillTuned. Default 5.
	StopTuningAfter int
	// SaveInterval checkpoints sampler and step-method state every
	// SaveInterval iterations. Zero disables periodic checkpoints.
	SaveInterval int
	// Progress logs coarse progress during the run.
	Progress bool
}

// DefaultOptions returns the stock configuration for the given iteration
// count.
func DefaultOptions(iterations int) Options {
	return Options{
		Iter:            iterations,
		Thin:            1,
		TuneInterval:    1000,
		TuneThroughout:  true,
		StopTuningAfter: 5,
		Progress:        true,
	}
}

// normalize fills zero-value fields with defaults and validates the rest.
// Configuration errors surface before any iteration state is touched.
func (o Options) normalize() (Options, error) {
	if o.Thin == 0 {
		o.Thin = 1
	}
	if o.TuneInterval == 0 {
		o.TuneInterval = 1000
	}
	if o.StopTuningAfter == 0 {
		o.StopTuningAfter = 5
	}
	if o.Iter <= 0 {
		return o, fmt.Errorf("iteration count must be positive, got %d", o.Iter)
	}
	if o.Burn < 0 {
		return o, fmt.Errorf("burn interval cannot be negative, got %d", o.Burn)
	}
	if o.Burn > o.Iter {
		return o, fmt.Errorf("burn interval (%d) cannot be larger than the specified number of iterations (%d)", o.Burn, o.Iter)
	}
	if o.Thin < 1 {
		return o, fmt.Errorf("thinning interval must be at least 1, got %d", o.Thin)
	}
	if o.TuneInterval < 1 {
		return o, fmt.Errorf("tune interval must be at least 1, got %d", o.TuneInterval)
	}
	if o.StopTuningAfter < 1 {
		return o, fmt.Errorf("stop-tuning-after must be at least 1, got %d", o.StopTuningAfter)
	}
	if o.SaveInterval < 0 {
		return o, fmt.Errorf("save interval cannot be negative, got %d", o.SaveInterval)
	}
	return o, nil
}
