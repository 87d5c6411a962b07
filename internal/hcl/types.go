package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes all top-level blocks from any model file.
type fileRoot struct {
	Stochastics    []*stochasticBlock    `hcl:"stochastic,block"`
	Deterministics []*deterministicBlock `hcl:"deterministic,block"`
	Potentials     []*potentialBlock     `hcl:"potential,block"`
	Remain         hcl.Body              `hcl:",remain"`
}

// stochasticBlock is the HCL schema for a `stochastic "name" { ... }` block.
// Distribution parameters are not named here; they stay in the remaining
// body so each distribution can declare its own parameter set.
type stochasticBlock struct {
	Name     string   `hcl:"name,label"`
	Dist     string   `hcl:"dist"`
	Value    *float64 `hcl:"value,optional"`
	Observed bool     `hcl:"observed,optional"`
	Trace    *bool    `hcl:"trace,optional"`
	Params   hcl.Body `hcl:",remain"`
}

// deterministicBlock is the HCL schema for a `deterministic "name"` block.
type deterministicBlock struct {
	Name  string         `hcl:"name,label"`
	Expr  hcl.Expression `hcl:"expr"`
	Trace *bool          `hcl:"trace,optional"`
}

// potentialBlock is the HCL schema for a `potential "name"` block.
type potentialBlock struct {
	Name string         `hcl:"name,label"`
	Expr hcl.Expression `hcl:"expr"`
}
