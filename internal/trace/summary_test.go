package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	i := 0
	values := []float64{1, 2, 3, 4, 5}
	m.Register("x", func() float64 { v := values[i]; i++; return v })
	m.Register("empty", func() float64 { return 0 })

	for range values {
		require.NoError(t, m.Tally())
	}
	require.NoError(t, m.Commit())
	// Drop the recorded "empty" samples to exercise the skip path.
	m.committed["empty"] = nil

	summaries, err := Summarize(m)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, "x", s.Name)
	assert.Equal(t, 5, s.N)
	assert.InDelta(t, 3.0, s.Mean, 1e-12)
	assert.InDelta(t, 3.0, s.Median, 1e-12)
	assert.InDelta(t, 1.5811, s.Std, 1e-3)
	assert.LessOrEqual(t, s.Q025, s.Median)
	assert.LessOrEqual(t, s.Median, s.Q975)
}
