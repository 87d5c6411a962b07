// Package config defines the format-agnostic representation of a
// probabilistic model declaration, along with the Loader interface for
// reading it from various sources.
//
// The config.Model is the single source of truth for the graph builder.
// Concrete Loader implementations, such as for HCL, live in separate
// packages.
package config
