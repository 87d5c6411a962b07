package model

import (
	"fmt"
	"sort"

	"golang.org/x/exp/rand"
)

// NodeSet is a set of node IDs.
type NodeSet map[NodeID]struct{}

// Has reports membership.
func (s NodeSet) Has(id NodeID) bool { _, ok := s[id]; return ok }

// Add inserts id into the set.
func (s NodeSet) Add(id NodeID) { s[id] = struct{}{} }

// AddAll inserts every member of other.
func (s NodeSet) AddAll(other NodeSet) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// Sorted returns the members in ascending ID order. Arena IDs are assigned in
// creation order, so this doubles as a deterministic iteration order.
func (s NodeSet) Sorted() []NodeID {
	out := make([]NodeID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Graph is an arena of nodes addressed by stable integer index. Forward
// (parent) and back (child) edges are stored as index sets, so the logical
// bidirectional relationship involves no ownership cycle. Extended relations
// are memoized and recomputed whenever the edge set changes.
type Graph struct {
	nodes  []Node
	byName map[string]NodeID

	parents  []NodeSet
	children []NodeSet

	extParents  []NodeSet
	extChildren []NodeSet

	rng *rand.Rand
}

// Option configures a Graph.
type Option func(*Graph)

// WithRand sets the source used to draw missing initial values.
func WithRand(rng *rand.Rand) Option {
	return func(g *Graph) { g.rng = rng }
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{byName: make(map[string]NodeID)}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(1))
	}
	return g
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the node with the given arena index.
func (g *Graph) Node(id NodeID) Node { return g.nodes[id] }

// ByName looks a node up by name.
func (g *Graph) ByName(name string) (Node, bool) {
	id, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

// Stochastics returns all stochastic nodes in creation order.
func (g *Graph) Stochastics() []*Stochastic {
	var out []*Stochastic
	for _, n := range g.nodes {
		if s, ok := n.(*Stochastic); ok {
			out = append(out, s)
		}
	}
	return out
}

// Deterministics returns all deterministic nodes in creation order.
func (g *Graph) Deterministics() []*Deterministic {
	var out []*Deterministic
	for _, n := range g.nodes {
		if d, ok := n.(*Deterministic); ok {
			out = append(out, d)
		}
	}
	return out
}

// Potentials returns all potential nodes in creation order.
func (g *Graph) Potentials() []*Potential {
	var out []*Potential
	for _, n := range g.nodes {
		if p, ok := n.(*Potential); ok {
			out = append(out, p)
		}
	}
	return out
}

// ParentsOf returns a copy of the node's parent edge set.
func (g *Graph) ParentsOf(id NodeID) NodeSet {
	out := make(NodeSet, len(g.parents[id]))
	out.AddAll(g.parents[id])
	return out
}

// ChildrenOf returns a copy of the node's child edge set.
func (g *Graph) ChildrenOf(id NodeID) NodeSet {
	out := make(NodeSet, len(g.children[id]))
	out.AddAll(g.children[id])
	return out
}

// StochasticDef describes a stochastic node to add.
type StochasticDef struct {
	Logp    LogpFunc
	Rand    RandFunc
	Grad    LogpFunc
	Parents map[string]ParentRef
	// Value is the initial value. When nil, the value is drawn from Rand.
	Value      *float64
	Observed   bool
	Discrete   bool
	NoTrace    bool
	CacheDepth int
}

// AddStochastic creates a stochastic node, wires its parent edges, resolves
// its initial value and validates the initial log-probability.
func (g *Graph) AddStochastic(name string, def StochasticDef) (*Stochastic, error) {
	if def.Logp == nil {
		return nil, fmt.Errorf("stochastic %q: log-probability function is required", name)
	}
	if def.Observed && def.Value == nil {
		return nil, fmt.Errorf("stochastic %q must be given a value if observed", name)
	}
	if def.Value == nil && def.Rand == nil {
		return nil, fmt.Errorf("stochastic %q: no initial value or random method provided", name)
	}
	s := &Stochastic{
		observed: def.Observed,
		discrete: def.Discrete,
		traced:   !def.NoTrace,
		logpFn:   def.Logp,
		randFn:   def.Rand,
		gradFn:   def.Grad,
	}
	if err := g.addNode(name, s, &s.nodeCommon, def.Parents, def.CacheDepth); err != nil {
		return nil, err
	}
	if def.Value != nil {
		s.value = *def.Value
		if s.discrete {
			if rounded := float64(int64(s.value)); rounded != s.value {
				return nil, fmt.Errorf("stochastic %q: initial value %v is not an integer", name, s.value)
			}
		}
	} else {
		s.value = def.Rand(g.rng, g.parentValues(s.id))
	}
	s.lastValue = s.value
	if _, err := s.Logp(); err != nil {
		return nil, fmt.Errorf("stochastic %q: initial state invalid: %w", name, err)
	}
	return s, nil
}

// DeterministicDef describes a deterministic node to add.
type DeterministicDef struct {
	Eval       EvalFunc
	Parents    map[string]ParentRef
	NoTrace    bool
	CacheDepth int
}

// AddDeterministic creates a deterministic node and computes its initial
// value.
func (g *Graph) AddDeterministic(name string, def DeterministicDef) (*Deterministic, error) {
	if def.Eval == nil {
		return nil, fmt.Errorf("deterministic %q: eval function is required", name)
	}
	d := &Deterministic{traced: !def.NoTrace, evalFn: def.Eval}
	if err := g.addNode(name, d, &d.nodeCommon, def.Parents, def.CacheDepth); err != nil {
		return nil, err
	}
	d.valueCache().ForceCompute()
	return d, nil
}

// PotentialDef describes a potential term to add.
type PotentialDef struct {
	Logp       EvalFunc
	Parents    map[string]ParentRef
	CacheDepth int
}

// AddPotential creates a potential term and validates its initial
// log-probability.
func (g *Graph) AddPotential(name string, def PotentialDef) (*Potential, error) {
	if def.Logp == nil {
		return nil, fmt.Errorf("potential %q: log-probability function is required", name)
	}
	p := &Potential{logpFn: def.Logp}
	if err := g.addNode(name, p, &p.nodeCommon, def.Parents, def.CacheDepth); err != nil {
		return nil, err
	}
	if _, err := p.Logp(); err != nil {
		return nil, fmt.Errorf("potential %q: initial state invalid: %w", name, err)
	}
	return p, nil
}

// addNode allocates an arena slot, validates parent references and wires
// edges on both ends.
func (g *Graph) addNode(name string, n Node, common *nodeCommon, parents map[string]ParentRef, cacheDepth int) error {
	if name == "" {
		return fmt.Errorf("node name cannot be empty")
	}
	if _, exists := g.byName[name]; exists {
		return fmt.Errorf("node %q already exists", name)
	}
	id := NodeID(len(g.nodes))
	common.id = id
	common.name = name
	common.g = g
	common.cacheDepth = cacheDepth
	common.parents = make(map[string]ParentRef, len(parents))

	g.nodes = append(g.nodes, n)
	g.byName[name] = id
	g.parents = append(g.parents, make(NodeSet))
	g.children = append(g.children, make(NodeSet))

	for param, ref := range parents {
		common.parents[param] = ref
		if !ref.IsNode() {
			continue
		}
		if err := g.addEdge(id, ref.node); err != nil {
			return fmt.Errorf("node %q, parameter %q: %w", name, param, err)
		}
	}
	g.invalidateExtended()
	return nil
}

// addEdge records parent -> child, rejecting dangling references, potentials
// used as parents, and edges that would close a cycle.
func (g *Graph) addEdge(child, parent NodeID) error {
	if parent < 0 || int(parent) >= len(g.nodes) {
		return fmt.Errorf("parent node %d does not exist", parent)
	}
	if g.nodes[parent].Kind() == KindPotential {
		return fmt.Errorf("potential %q has no value and cannot be a parent", g.nodes[parent].Name())
	}
	if child == parent || g.reachable(child, parent) {
		return fmt.Errorf("edge %q -> %q would create a cycle",
			g.nodes[parent].Name(), g.nodes[child].Name())
	}
	g.parents[child].Add(parent)
	g.children[parent].Add(child)
	return nil
}

// reachable reports whether to can be reached from from along child edges.
func (g *Graph) reachable(from, to NodeID) bool {
	seen := make(NodeSet)
	stack := []NodeID{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == to {
			return true
		}
		if seen.Has(id) {
			continue
		}
		seen.Add(id)
		for c := range g.children[id] {
			stack = append(stack, c)
		}
	}
	return false
}

// DetectCycles checks the whole graph with a depth-first search over child
// edges. It returns a non-nil error naming the first node found inside a
// cycle.
func (g *Graph) DetectCycles() error {
	permanent := make(map[NodeID]bool)
	temporary := make(map[NodeID]bool)

	var visit func(id NodeID) error
	visit = func(id NodeID) error {
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			return fmt.Errorf("cycle detected involving node %q", g.nodes[id].Name())
		}
		temporary[id] = true
		for child := range g.children[id] {
			if err := visit(child); err != nil {
				return err
			}
		}
		delete(temporary, id)
		permanent[id] = true
		return nil
	}

	for id := range g.nodes {
		if !permanent[NodeID(id)] {
			if err := visit(NodeID(id)); err != nil {
				return err
			}
		}
	}
	return nil
}

// invalidateExtended drops all memoized extended relations. Called whenever
// the edge set changes.
func (g *Graph) invalidateExtended() {
	g.extParents = make([]NodeSet, len(g.nodes))
	g.extChildren = make([]NodeSet, len(g.nodes))
}

// ExtendedParents returns the nearest stochastic ancestors of a node: direct
// stochastic parents, plus the extended parents of deterministic parents.
// Deterministic nodes themselves never appear in the result.
func (g *Graph) ExtendedParents(id NodeID) NodeSet {
	if memo := g.extParents[id]; memo != nil {
		return memo
	}
	out := make(NodeSet)
	for p := range g.parents[id] {
		if g.nodes[p].Kind() == KindDeterministic {
			out.AddAll(g.ExtendedParents(p))
		} else {
			out.Add(p)
		}
	}
	g.extParents[id] = out
	return out
}

// ExtendedChildren returns the nearest descendants with their own
// log-probability: stochastic and potential children, seen through any
// intervening deterministic nodes.
func (g *Graph) ExtendedChildren(id NodeID) NodeSet {
	if memo := g.extChildren[id]; memo != nil {
		return memo
	}
	out := make(NodeSet)
	for c := range g.children[id] {
		if g.nodes[c].Kind() == KindDeterministic {
			out.AddAll(g.ExtendedChildren(c))
		} else {
			out.Add(c)
		}
	}
	g.extChildren[id] = out
	return out
}

// Coparents returns the variables whose extended children intersect the
// node's own, including the node itself.
func (g *Graph) Coparents(s *Stochastic) NodeSet {
	out := make(NodeSet)
	for child := range g.ExtendedChildren(s.id) {
		out.AddAll(g.ExtendedParents(child))
	}
	out.Add(s.id)
	return out
}

// MoralNeighbors returns the node's neighbors in the moral graph: coparents,
// extended parents and extended children, with potential terms removed.
func (g *Graph) MoralNeighbors(s *Stochastic) NodeSet {
	out := g.Coparents(s)
	out.AddAll(g.ExtendedParents(s.id))
	out.AddAll(g.ExtendedChildren(s.id))
	for id := range out {
		if g.nodes[id].Kind() == KindPotential {
			delete(out, id)
		}
	}
	return out
}

// MarkovBlanket returns the minimal set of nodes whose log-probabilities must
// be recomputed when the node's value changes: its moral neighbors plus
// itself.
func (g *Graph) MarkovBlanket(s *Stochastic) NodeSet {
	out := g.MoralNeighbors(s)
	out.Add(s.id)
	return out
}

// parentValues resolves the node's named parents to their current values:
// constants as given, stochastics by current value, deterministics by lazy
// recomputation.
func (g *Graph) parentValues(id NodeID) map[string]float64 {
	refs := g.nodes[id].ParentRefs()
	out := make(map[string]float64, len(refs))
	for param, ref := range refs {
		if !ref.IsNode() {
			out[param] = ref.constant
			continue
		}
		switch p := g.nodes[ref.node].(type) {
		case *Stochastic:
			out[param] = p.Value()
		case *Deterministic:
			out[param] = p.Value()
		}
	}
	return out
}
