// Package depgraph builds the dependence graph consumed by the induction
// analysis: one node per ir value, data edges from producers to consumers,
// and control edges from conditional branches to the instructions of their
// successor blocks.
//
// Nodes live in a single arena indexed by position and edges are stored as
// index pairs, so the cyclic structure carries no cross-referencing
// ownership. Strongly connected components are computed once at build time.
package depgraph
