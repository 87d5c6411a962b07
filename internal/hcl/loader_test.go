package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModelFile(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0600))
	return path
}

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	src := `
stochastic "mu" {
  dist  = "normal"
  mu    = 0
  sigma = 10
}

stochastic "y" {
  dist     = "normal"
  mu       = mu
  sigma    = 1
  observed = true
  value    = 2.5
  trace    = false
}

deterministic "mu_sq" {
  expr = mu * mu
}

potential "soft" {
  expr = -abs(mu)
}
`
	path := writeModelFile(t, "model.hcl", src)

	model, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, model.Stochastics, 2)
	require.Len(t, model.Deterministics, 1)
	require.Len(t, model.Potentials, 1)

	mu := model.Stochastics[0]
	assert.Equal(t, "mu", mu.Name)
	assert.Equal(t, "normal", mu.Dist)
	assert.Contains(t, mu.Params, "mu")
	assert.Contains(t, mu.Params, "sigma")
	assert.False(t, mu.Observed)
	assert.Nil(t, mu.Value)
	assert.False(t, mu.NoTrace)

	y := model.Stochastics[1]
	assert.True(t, y.Observed)
	require.NotNil(t, y.Value)
	assert.Equal(t, 2.5, *y.Value)
	assert.True(t, y.NoTrace)

	assert.Equal(t, "mu_sq", model.Deterministics[0].Name)
	assert.NotNil(t, model.Deterministics[0].Expr)
	assert.Equal(t, "soft", model.Potentials[0].Name)
}

func TestLoader_MergesDirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"),
		[]byte("stochastic \"a\" {\n  dist = \"normal\"\n  mu = 0\n  sigma = 1\n}\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.hcl"),
		[]byte("deterministic \"b\" {\n  expr = a + 1\n}\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"),
		[]byte("not hcl"), 0600))

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, model.Stochastics, 1)
	assert.Len(t, model.Deterministics, 1)
}

func TestLoader_Errors(t *testing.T) {
	t.Parallel()

	t.Run("invalid syntax", func(t *testing.T) {
		path := writeModelFile(t, "bad.hcl", "stochastic \"x\" {\n  dist = \n")
		_, err := NewLoader().Load(context.Background(), path)
		assert.ErrorContains(t, err, "failed to parse")
	})

	t.Run("missing dist attribute", func(t *testing.T) {
		path := writeModelFile(t, "bad.hcl", "stochastic \"x\" {\n  mu = 0\n}\n")
		_, err := NewLoader().Load(context.Background(), path)
		assert.ErrorContains(t, err, "failed to decode")
	})

	t.Run("no model files", func(t *testing.T) {
		_, err := NewLoader().Load(context.Background(), t.TempDir())
		assert.ErrorContains(t, err, "no .hcl model files")
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := NewLoader().Load(context.Background(), "/does/not/exist")
		assert.ErrorContains(t, err, "error accessing path")
	})
}
