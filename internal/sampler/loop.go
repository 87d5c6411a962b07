package sampler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vk/mcmcgo/internal/ctxlog"
)

// commitInterval is how often buffered trace writes are flushed to the
// backend during the loop.
const commitInterval = 1000

// Sample assigns step methods if needed, validates the configuration and
// runs the main loop. It returns once the run completes, pauses, or halts;
// interrupts (context cancellation or a Halt request) produce a graceful
// halt with a flushed backend, not an error.
func (s *Sampler) Sample(ctx context.Context, opts Options) error {
	if s.Status() == StatusRunning {
		return fmt.Errorf("sampler is already running")
	}

	opts, err := opts.normalize()
	if err != nil {
		return err
	}

	if err := s.AssignStepMethods(ctx); err != nil {
		return err
	}

	logger := ctxlog.FromContext(ctx)

	burn := opts.Burn
	iter := opts.Iter
	s.nTally = iter - burn
	if opts.BurnTillTuned {
		opts.TuneThroughout = false
		logger.Debug("burn_till_tuned is set, tune_throughout forced off.")
		if min := opts.StopTuningAfter * opts.TuneInterval; burn < min {
			burn = min
		}
		iter = s.nTally + burn
	}

	s.totalIter = iter
	s.burn = burn
	s.thin = opts.Thin
	s.tuneInterval = opts.TuneInterval
	s.tuneThroughout = opts.TuneThroughout
	s.burnTillTuned = opts.BurnTillTuned
	s.stopTuningAfter = opts.StopTuningAfter
	s.saveInterval = opts.SaveInterval
	s.progress = opts.Progress
	s.currentIter = 0
	s.tuning = true
	s.tunedCount = 0
	s.haltRequest.Store(false)
	s.pauseRequest.Store(false)

	s.registerTallyables()

	logger.Info("Sampling started.",
		"iterations", s.totalIter, "burn", s.burn, "thin", s.thin,
		"step_methods", len(s.activeMethods))

	return s.loop(ctx)
}

// Resume continues a paused run from the iteration it stopped at.
func (s *Sampler) Resume(ctx context.Context) error {
	if s.Status() != StatusPaused {
		return fmt.Errorf("cannot resume: sampler is %s, not paused", s.Status())
	}
	return s.loop(ctx)
}

// loop executes iterations until completion, pause or halt. Interrupts are
// checked only between iterations: a step method's Step call always
// completes before the state machine re-checks status.
func (s *Sampler) loop(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	s.setStatus(StatusRunning)

	for s.currentIter < s.totalIter {
		if ctx.Err() != nil || s.haltRequest.Load() {
			return s.finalizeHalt(logger)
		}
		if s.pauseRequest.Load() {
			s.pauseRequest.Store(false)
			s.setStatus(StatusPaused)
			logger.Info("Sampling paused.", "iteration", s.currentIter)
			return nil
		}

		i := s.currentIter

		// Tune at interval.
		if i > 0 && i%s.tuneInterval == 0 && s.tuning {
			if err := s.tune(logger); err != nil {
				return s.fail(logger, i, err)
			}
			// Still tuning: push the burn boundary out far enough for the
			// debounce to finish, keeping the tally length fixed.
			if s.burnTillTuned && s.tunedCount == 0 {
				if newBurn := i + s.stopTuningAfter*s.tuneInterval; newBurn > s.burn {
					s.burn = newBurn
					logger.Debug("Burn-in extended.", "burn", s.burn)
				}
				s.totalIter = s.burn + s.nTally
			}
		}

		// Manage burn-in.
		if i == s.burn {
			logger.Debug("Burn-in interval complete.", "iteration", i)
			if !s.tuneThroughout {
				s.tuning = false
			}
		}

		// Tell every step method to take a step.
		for _, m := range s.activeMethods {
			if err := m.Step(); err != nil {
				return s.fail(logger, i, err)
			}
		}

		// Record to the trace, if appropriate.
		if i%s.thin == 0 && i >= s.burn {
			if err := s.backend.Tally(); err != nil {
				return s.fail(logger, i, err)
			}
		}

		if s.saveInterval > 0 && i%s.saveInterval == 0 {
			if err := s.SaveState(); err != nil {
				return s.fail(logger, i, err)
			}
		}

		// Periodically commit buffered samples to the backend.
		if i%commitInterval == 0 {
			if err := s.backend.Commit(); err != nil {
				return s.fail(logger, i, err)
			}
		}

		if s.progress {
			if stride := s.totalIter / 10; stride > 0 && i > 0 && i%stride == 0 {
				logger.Info("Sampling progress.", "iteration", i, "total", s.totalIter)
			}
		}

		s.currentIter++
	}

	if err := s.SaveState(); err != nil {
		return s.fail(logger, s.currentIter, err)
	}
	if err := s.backend.Commit(); err != nil {
		return s.fail(logger, s.currentIter, err)
	}
	s.setStatus(StatusReady)
	logger.Info("Sampling finished.", "iterations", s.currentIter)
	return nil
}

// finalizeHalt flushes the trace and marks the run halted. Everything tallied
// before the interrupt stays committed and queryable.
func (s *Sampler) finalizeHalt(logger *slog.Logger) error {
	s.setStatus(StatusHalted)
	err := s.backend.Commit()
	logger.Info("Sampling halted.", "iteration", s.currentIter)
	return err
}

// fail flushes what it can and surfaces a fatal mid-run error.
func (s *Sampler) fail(logger *slog.Logger, iteration int, err error) error {
	s.setStatus(StatusHalted)
	if commitErr := s.backend.Commit(); commitErr != nil {
		logger.Error("Trace flush failed during error handling.", "error", commitErr)
	}
	return fmt.Errorf("sampling failed at iteration %d: %w", iteration, err)
}

// tune invokes tuning on every step method and, under burn-till-tuned,
// debounces the permanent shutoff: stopTuningAfter consecutive intervals
// with no tuning activity anywhere switch tuning off for the rest of the
// run.
func (s *Sampler) tune(logger *slog.Logger) error {
	tuningCount := 0
	for _, m := range s.activeMethods {
		changed, err := m.Tune(logger)
		if err != nil {
			return err
		}
		if changed {
			tuningCount++
		}
	}

	if s.burnTillTuned {
		if tuningCount == 0 {
			s.tunedCount++
		} else {
			s.tunedCount = 0
		}
		if s.tunedCount == s.stopTuningAfter {
			s.tuning = false
			logger.Info("Finished tuning.", "iteration", s.currentIter)
		}
	}
	return nil
}
