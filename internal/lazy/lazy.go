// Package lazy implements the memoization layer for node values and
// log-probabilities. A Cache stores the N most recent (fingerprint, result)
// pairs for one computation, where the fingerprint is the tuple of revision
// counters of the stochastic nodes the computation ultimately depends on.
// A cached result is valid iff its fingerprint matches the current one, so
// staleness detection never compares values.
package lazy

// DefaultDepth is the number of (fingerprint, result) pairs kept when the
// owner does not ask for more. Two entries cover the common propose/reject
// cycle: the pre-proposal result stays cached across a revert.
const DefaultDepth = 2

type frame struct {
	fingerprint []uint64
	result      float64
	valid       bool
}

// Cache memoizes a single float64-valued computation.
type Cache struct {
	compute    func() float64
	revisions  func(buf []uint64) []uint64
	frames     []frame
	next       int
	recomputes uint64
	buf        []uint64
}

// New creates a cache of the given depth around compute. The revisions
// function fills buf with the current revision counters of the computation's
// ultimate arguments, in a fixed order. A depth below 1 falls back to
// DefaultDepth.
func New(depth int, compute func() float64, revisions func(buf []uint64) []uint64) *Cache {
	if depth < 1 {
		depth = DefaultDepth
	}
	return &Cache{
		compute:   compute,
		revisions: revisions,
		frames:    make([]frame, depth),
	}
}

// Get returns the memoized result when the current fingerprint matches a
// stored frame, and recomputes otherwise.
func (c *Cache) Get() float64 {
	c.buf = c.revisions(c.buf[:0])
	for i := range c.frames {
		f := &c.frames[i]
		if f.valid && fingerprintEqual(f.fingerprint, c.buf) {
			return f.result
		}
	}
	return c.store(c.buf)
}

// ForceCompute unconditionally recomputes and caches the result. Node
// constructors use it to validate initial values.
func (c *Cache) ForceCompute() float64 {
	c.buf = c.revisions(c.buf[:0])
	return c.store(c.buf)
}

// Recomputes returns the number of underlying computations performed.
func (c *Cache) Recomputes() uint64 { return c.recomputes }

// store runs the computation and records a frame. A frame holding the same
// fingerprint is overwritten in place so at most one frame exists per
// distinct fingerprint; otherwise the oldest frame is evicted.
func (c *Cache) store(fingerprint []uint64) float64 {
	result := c.compute()
	c.recomputes++
	f := c.frameFor(fingerprint)
	f.fingerprint = append(f.fingerprint[:0], fingerprint...)
	f.result = result
	f.valid = true
	return result
}

func (c *Cache) frameFor(fingerprint []uint64) *frame {
	for i := range c.frames {
		f := &c.frames[i]
		if f.valid && fingerprintEqual(f.fingerprint, fingerprint) {
			return f
		}
	}
	f := &c.frames[c.next]
	c.next = (c.next + 1) % len(c.frames)
	return f
}

func fingerprintEqual(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
