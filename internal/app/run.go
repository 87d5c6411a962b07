package app

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/vk/mcmcgo/internal/build"
	"github.com/vk/mcmcgo/internal/ctxlog"
	"github.com/vk/mcmcgo/internal/model"
	"github.com/vk/mcmcgo/internal/sampler"
	"github.com/vk/mcmcgo/internal/trace"
	"golang.org/x/exp/rand"
)

// Run executes the main application logic: build the graph, sample and
// report. Cancelling the context halts the run gracefully with everything
// tallied so far committed to the backend.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	rng := rand.New(rand.NewSource(a.config.Seed))

	graph, err := build.Build(ctx, a.model, model.WithRand(rng))
	if err != nil {
		return fmt.Errorf("failed to build variable graph: %w", err)
	}

	backend, err := a.openBackend()
	if err != nil {
		return err
	}
	defer backend.Close()

	opts := sampler.DefaultOptions(a.config.Iter)
	opts.Burn = a.config.Burn
	if a.config.Thin > 0 {
		opts.Thin = a.config.Thin
	}
	if a.config.TuneInterval > 0 {
		opts.TuneInterval = a.config.TuneInterval
	}
	opts.BurnTillTuned = a.config.BurnTillTuned
	opts.SaveInterval = a.config.SaveInterval
	opts.Progress = !a.config.Quiet

	s := sampler.New(graph, backend, sampler.WithRand(rng))
	if err := s.Sample(ctx, opts); err != nil {
		return fmt.Errorf("sampling failed: %w", err)
	}

	if s.Status() == sampler.StatusHalted {
		a.logger.Warn("Run was interrupted; reporting samples collected so far.",
			"iterations_completed", s.CurrentIter())
	}

	return a.report(backend)
}

// openBackend selects the trace store from the configuration.
func (a *App) openBackend() (trace.Backend, error) {
	switch a.config.Database {
	case "sqlite":
		backend, err := trace.NewSQLite(a.config.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite backend: %w", err)
		}
		a.logger.Debug("Opened sqlite trace backend.", "path", a.config.DBPath)
		return backend, nil
	default:
		return trace.NewMemory(), nil
	}
}

// report prints a posterior summary table for every traced quantity.
func (a *App) report(backend trace.Backend) error {
	summaries, err := trace.Summarize(backend)
	if err != nil {
		return fmt.Errorf("failed to summarize trace: %w", err)
	}
	if len(summaries) == 0 {
		a.logger.Warn("No samples recorded, nothing to report.")
		return nil
	}

	w := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "name\tn\tmean\tsd\t2.5%\tmedian\t97.5%")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%d\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\n",
			s.Name, s.N, s.Mean, s.Std, s.Q025, s.Median, s.Q975)
	}
	return w.Flush()
}
