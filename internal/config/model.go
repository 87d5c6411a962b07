package config

import (
	"github.com/hashicorp/hcl/v2"
)

// Model is the unified, format-agnostic representation of one probabilistic
// model declaration. Blocks appear in source order; the builder resolves
// references between them.
type Model struct {
	Stochastics    []*Stochastic
	Deterministics []*Deterministic
	Potentials     []*Potential
}

// Stochastic is the format-agnostic representation of a `stochastic` block.
// Params holds one unevaluated expression per distribution parameter; a
// parameter may be a constant, a reference to another variable, or an
// expression over other variables.
type Stochastic struct {
	Name     string
	Dist     string
	Params   map[string]hcl.Expression
	Value    *float64
	Observed bool
	NoTrace  bool
}

// Deterministic is the format-agnostic representation of a `deterministic`
// block. Expr is evaluated against the values of the variables it
// references.
type Deterministic struct {
	Name    string
	Expr    hcl.Expression
	NoTrace bool
}

// Potential is the format-agnostic representation of a `potential` block.
// Expr evaluates to a log-probability term added to the joint density.
type Potential struct {
	Name string
	Expr hcl.Expression
}
