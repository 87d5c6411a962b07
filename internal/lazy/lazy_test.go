package lazy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// counterCache wires a cache around a computation that counts its own calls,
// with the fingerprint controlled by the test.
func counterCache(depth int, rev *uint64) (*Cache, *int) {
	calls := 0
	c := New(depth,
		func() float64 { calls++; return float64(*rev) * 10 },
		func(buf []uint64) []uint64 { return append(buf, *rev) })
	return c, &calls
}

func TestCache_IdempotentReads(t *testing.T) {
	t.Parallel()

	var rev uint64
	c, calls := counterCache(2, &rev)

	assert.Equal(t, 0.0, c.Get())
	assert.Equal(t, 0.0, c.Get())
	assert.Equal(t, 0.0, c.Get())
	assert.Equal(t, 1, *calls, "identical fingerprints must not recompute")
	assert.Equal(t, uint64(1), c.Recomputes())
}

func TestCache_InvalidatesOnRevisionChange(t *testing.T) {
	t.Parallel()

	var rev uint64
	c, calls := counterCache(2, &rev)

	c.Get()
	rev++
	assert.Equal(t, 10.0, c.Get())
	assert.Equal(t, 2, *calls)
}

func TestCache_DepthTwoSurvivesRevert(t *testing.T) {
	t.Parallel()

	var rev uint64
	c, calls := counterCache(2, &rev)

	c.Get() // rev 0
	rev++
	c.Get() // rev 1
	rev--
	c.Get() // back to rev 0, still cached
	assert.Equal(t, 2, *calls, "the pre-proposal frame must survive one proposal")

	// A third distinct state evicts the oldest frame.
	rev = 2
	c.Get()
	rev = 0
	c.Get()
	assert.Equal(t, 4, *calls, "rev 0 was evicted by the third state")
}

func TestCache_ForceComputeAlwaysRuns(t *testing.T) {
	t.Parallel()

	var rev uint64
	c, calls := counterCache(2, &rev)

	c.Get()
	c.ForceCompute()
	assert.Equal(t, 2, *calls)
	// The forced result is cached for subsequent reads.
	c.Get()
	assert.Equal(t, 2, *calls)
}

func TestCache_ForceComputeOverwritesMatchingFrame(t *testing.T) {
	t.Parallel()

	var rev uint64
	c, calls := counterCache(2, &rev)

	c.Get() // rev 0
	rev++
	c.Get()          // rev 1
	c.ForceCompute() // rev 1 again, must reuse the rev 1 frame
	c.ForceCompute()

	// Only one frame may hold the rev 1 fingerprint, so the rev 0 frame is
	// still cached.
	rev--
	c.Get()
	assert.Equal(t, 4, *calls, "forced recomputes must not evict distinct frames")
}

func TestNew_FallsBackToDefaultDepth(t *testing.T) {
	t.Parallel()

	var rev uint64
	c, _ := counterCache(0, &rev)
	assert.Len(t, c.frames, DefaultDepth)
}
