// Package ir defines the in-memory program graph analysed and rewritten by
// this module.
//
// The representation is a small SSA-style IR: a Func owns an ordered list of
// Blocks, each Block owns its instructions in program order, and values
// reference their operands directly. Merge (phi) nodes carry one incoming
// value per predecessor block, in predecessor order. Operators and literal
// constants reuse go/token and go/constant so the vocabulary matches the
// rest of the Go analysis stack.
//
// The analysis packages treat the graph as read-only; the chunk package
// mutates it in place under a single-writer discipline owed by the caller.
package ir
