// Package trace defines the append-only storage consumed by the sampler:
// backends record tallied variable values and round-trip checkpoint state so
// a resumed run restores step-method tunables exactly. The sampler never
// inspects a backend beyond this contract.
package trace

// SamplerState is the loop portion of a checkpoint.
type SamplerState struct {
	CurrentIter    int  `json:"current_iter"`
	TotalIter      int  `json:"total_iter"`
	Burn           int  `json:"burn"`
	Thin           int  `json:"thin"`
	TuneInterval   int  `json:"tune_interval"`
	TunedCount     int  `json:"tuned_count"`
	Tuning         bool `json:"tuning"`
	TuneThroughout bool `json:"tune_throughout"`
	BurnTillTuned  bool `json:"burn_till_tuned"`
}

// State is a full checkpoint: sampler counters plus per-step-method tunable
// state keyed by step-method identity.
type State struct {
	Sampler     SamplerState                  `json:"sampler"`
	StepMethods map[string]map[string]float64 `json:"step_methods"`
}

// Backend is the storage contract. Tally buffers a snapshot of every
// registered quantity; Commit persists buffered writes. Tally is cheap and
// frequent, Commit is batched; the sampler commits periodically rather than
// per write.
type Backend interface {
	// Register adds a tallyable quantity. Registering an existing name
	// replaces its reader without touching recorded samples, so repeated
	// sampler runs against the same backend are safe.
	Register(name string, fn func() float64)
	// Names returns registered names in registration order.
	Names() []string
	// Tally records the current value of every registered quantity.
	Tally() error
	// Commit persists buffered tallies.
	Commit() error
	// Trace returns the committed samples for one quantity.
	Trace(name string) ([]float64, error)
	// SaveState overwrites the stored checkpoint.
	SaveState(state *State) error
	// GetState returns the stored checkpoint, or nil when none was saved.
	GetState() (*State, error)
	// Close releases backend resources after a final flush.
	Close() error
}
