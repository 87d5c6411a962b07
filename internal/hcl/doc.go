// Package hcl is the HCL implementation of config.Loader. It parses
// stochastic, deterministic and potential blocks from .hcl files and
// translates them into the format-agnostic config model, leaving all
// expressions unevaluated for the graph builder.
package hcl
