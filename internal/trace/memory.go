package trace

import (
	"fmt"
	"sync"
)

// Memory is the default ephemeral backend: tallies are buffered in memory and
// moved to the committed store on Commit, which keeps the halt-safety
// contract observable (only committed samples survive an interrupted run's
// final flush).
type Memory struct {
	mu        sync.Mutex
	names     []string
	fns       map[string]func() float64
	pending   map[string][]float64
	committed map[string][]float64
	state     *State
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		fns:       make(map[string]func() float64),
		pending:   make(map[string][]float64),
		committed: make(map[string][]float64),
	}
}

func (m *Memory) Register(name string, fn func() float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.fns[name]; !exists {
		m.names = append(m.names, name)
	}
	m.fns[name] = fn
}

func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

func (m *Memory) Tally() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range m.names {
		m.pending[name] = append(m.pending[name], m.fns[name]())
	}
	return nil
}

func (m *Memory) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, buf := range m.pending {
		m.committed[name] = append(m.committed[name], buf...)
		m.pending[name] = m.pending[name][:0]
	}
	return nil
}

func (m *Memory) Trace(name string) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	samples, ok := m.committed[name]
	if !ok {
		if _, registered := m.fns[name]; !registered {
			return nil, fmt.Errorf("no trace for %q", name)
		}
		return nil, nil
	}
	out := make([]float64, len(samples))
	copy(out, samples)
	return out, nil
}

func (m *Memory) SaveState(state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	return nil
}

func (m *Memory) GetState() (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *Memory) Close() error { return m.Commit() }
