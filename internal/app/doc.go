// Package app wires the pieces together for a full run: it loads a model
// declaration through a config.Loader, builds the variable graph, opens a
// trace backend, drives the sampler and reports posterior summaries. The
// CLI is a thin shell around this package.
package app
