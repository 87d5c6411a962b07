package sampler

import (
	"fmt"

	"github.com/vk/mcmcgo/internal/trace"
)

// SaveState writes a checkpoint of the loop counters and every active step
// method's tunable state to the backend.
func (s *Sampler) SaveState() error {
	state := &trace.State{
		Sampler: trace.SamplerState{
			CurrentIter:    s.currentIter,
			TotalIter:      s.totalIter,
			Burn:           s.burn,
			Thin:           s.thin,
			TuneInterval:   s.tuneInterval,
			TunedCount:     s.tunedCount,
			Tuning:         s.tuning,
			TuneThroughout: s.tuneThroughout,
			BurnTillTuned:  s.burnTillTuned,
		},
		StepMethods: make(map[string]map[string]float64, len(s.activeMethods)),
	}
	for _, m := range s.activeMethods {
		state.StepMethods[m.Name()] = m.CurrentState()
	}
	if err := s.backend.SaveState(state); err != nil {
		return fmt.Errorf("saving sampler state: %w", err)
	}
	return nil
}

// restoreMethodStates reloads step-method tunables from the backend's
// checkpoint, if one exists. Methods absent from the checkpoint keep their
// fresh state; stored state for methods that no longer exist is ignored.
func (s *Sampler) restoreMethodStates() error {
	state, err := s.backend.GetState()
	if err != nil {
		return fmt.Errorf("loading sampler state: %w", err)
	}
	if state == nil {
		return nil
	}
	for _, m := range s.activeMethods {
		if saved, ok := state.StepMethods[m.Name()]; ok {
			m.RestoreState(saved)
		}
	}
	return nil
}
