// Package loop provides loop handles and natural-loop detection over the ir
// control-flow graph.
//
// A loop is identified by a back edge, an edge whose target dominates its
// source. The loop body is every block that can reach the back edge source
// without passing through the header. Loops sharing a header are merged.
// The resulting Info records the header, member blocks, exit blocks and, if
// unique, the preheader; a Nest groups the loops of one function.
package loop
