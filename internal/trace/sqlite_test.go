package trace

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLite_TallyCommitTrace(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trace.db")
	s, err := NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	v := 0.5
	s.Register("mu", func() float64 { return v })

	require.NoError(t, s.Tally())
	v = 1.5
	require.NoError(t, s.Tally())

	// Uncommitted tallies stay out of the database.
	samples, err := s.Trace("mu")
	require.NoError(t, err)
	assert.Empty(t, samples)

	require.NoError(t, s.Commit())
	samples, err = s.Trace("mu")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1.5}, samples)
}

func TestSQLite_ResumesSampleNumbering(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trace.db")

	s, err := NewSQLite(path)
	require.NoError(t, err)
	s.Register("x", func() float64 { return 1 })
	require.NoError(t, s.Tally())
	require.NoError(t, s.Close())

	// A second run against the same file appends after the last sample.
	s2, err := NewSQLite(path)
	require.NoError(t, err)
	defer s2.Close()
	s2.Register("x", func() float64 { return 2 })
	require.NoError(t, s2.Tally())
	require.NoError(t, s2.Commit())

	samples, err := s2.Trace("x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, samples)
}

func TestSQLite_StateRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trace.db")
	s, err := NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetState()
	require.NoError(t, err)
	assert.Nil(t, got, "no checkpoint saved yet")

	state := &State{
		Sampler: SamplerState{
			CurrentIter: 500, TotalIter: 1000, Burn: 100, Thin: 2,
			TuneInterval: 50, Tuning: true, BurnTillTuned: true,
		},
		StepMethods: map[string]map[string]float64{
			"metropolis:mu": {"proposal_sd": 0.31, "adaptive_scale_factor": 1.1},
		},
	}
	require.NoError(t, s.SaveState(state))

	// Saving again overwrites rather than duplicating.
	state.Sampler.CurrentIter = 600
	require.NoError(t, s.SaveState(state))

	got, err = s.GetState()
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestSQLite_StateSurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trace.db")
	s, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveState(&State{
		Sampler:     SamplerState{CurrentIter: 7},
		StepMethods: map[string]map[string]float64{},
	}))
	require.NoError(t, s.Close())

	s2, err := NewSQLite(path)
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.GetState()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 7, got.Sampler.CurrentIter)
}
