package trace

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary condenses one variable's committed trace.
type Summary struct {
	Name   string
	N      int
	Mean   float64
	Std    float64
	Q025   float64
	Median float64
	Q975   float64
}

// Summarize computes posterior summaries for every registered quantity with
// at least one committed sample.
func Summarize(b Backend) ([]Summary, error) {
	var out []Summary
	for _, name := range b.Names() {
		samples, err := b.Trace(name)
		if err != nil {
			return nil, err
		}
		if len(samples) == 0 {
			continue
		}
		sorted := make([]float64, len(samples))
		copy(sorted, samples)
		sort.Float64s(sorted)
		out = append(out, Summary{
			Name:   name,
			N:      len(samples),
			Mean:   stat.Mean(samples, nil),
			Std:    stat.StdDev(samples, nil),
			Q025:   stat.Quantile(0.025, stat.Empirical, sorted, nil),
			Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
			Q975:   stat.Quantile(0.975, stat.Empirical, sorted, nil),
		})
	}
	return out, nil
}
