// Package model defines the probabilistic variable graph: stochastic,
// deterministic and potential nodes held in an arena, linked by named
// parent references with mirrored child edges.
//
// The graph exposes the derived relations step methods depend on:
// extended parents/children (nearest stochastic ancestors/descendants,
// skipping over deterministics) and the Markov blanket of a stochastic
// node. Node values and log-probabilities are memoized through the lazy
// package, keyed by the revision counters of the stochastic nodes they
// ultimately depend on.
package model
