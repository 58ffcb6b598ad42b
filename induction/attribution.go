package induction

import (
	"github.com/nickng/stripmine/depgraph"
	"github.com/nickng/stripmine/ir"
)

// Attribution is the result of proving or refuting that an induction
// variable governs its loop's exit. Only a well-formed attribution may be
// handed to the chunk transform.
type Attribution struct {
	iv *Variable

	cmp        *ir.BinOp // header exit comparison
	branch     *ir.If    // header exit branch
	condValue  ir.Value  // the non-IV operand of the comparison
	exitBlock  *ir.Block
	derivation map[ir.Value]bool // SCC-internal instructions the condition depends on

	wellFormed bool
}

// Attribute decides whether iv governs its loop's exit. scc is the strongly
// connected component containing iv's header node; exitBlocks are the exit
// blocks of the enclosing loop nest.
//
// The decision procedure stops at the first failed check:
//
//  1. the loop header terminator is a two-way conditional branch;
//  2. the branch condition is a relational comparison;
//  3. exactly one comparison operand is iv's header node;
//  4. exactly one branch successor is a loop-nest exit block;
//  5. the condition operand's SCC-internal derivation never reaches iv's
//     own cycle;
//  6. every SCC-internal value is accounted for as cycle member, condition
//     derivation, the exit comparison, the exit branch, an unconditional
//     branch, a pointer-address computation, or a merge node.
func Attribute(iv *Variable, scc *depgraph.SCC, exitBlocks []*ir.Block) *Attribution {
	a := &Attribution{iv: iv, derivation: make(map[ir.Value]bool)}

	// Check 1: two-way conditional branch at the header.
	branch, ok := iv.Loop().Header().Terminator().(*ir.If)
	if !ok {
		return a
	}
	if len(branch.Block().Succs) != 2 {
		return a
	}
	a.branch = branch

	// Check 2: the condition is a relational comparison.
	cmp, ok := branch.Cond.(*ir.BinOp)
	if !ok || !ir.IsRelational(cmp.Op) {
		return a
	}
	a.cmp = cmp

	// Check 3: exactly one operand is the header node.
	header := ir.Value(iv.Header())
	if (cmp.X == header) == (cmp.Y == header) {
		return a
	}
	if cmp.X == header {
		a.condValue = cmp.Y
	} else {
		a.condValue = cmp.X
	}

	// Check 4: exactly one successor exits the loop nest.
	exits := make(map[*ir.Block]bool, len(exitBlocks))
	for _, b := range exitBlocks {
		exits[b] = true
	}
	s0, s1 := branch.Block().Succs[0], branch.Block().Succs[1]
	switch {
	case exits[s0] && !exits[s1]:
		a.exitBlock = s0
	case exits[s1] && !exits[s0]:
		a.exitBlock = s1
	default:
		return a
	}

	// Check 5: the condition operand's internal derivation must not be
	// circularly derived from the variable it tests.
	if scc.IsInternal(a.condValue) {
		if a.condValue.Block() == nil {
			return a // internal values must be computed instructions
		}
		a.derivation[a.condValue] = true
		queue := []ir.Value{a.condValue}
		for len(queue) > 0 {
			val := queue[0]
			queue = queue[1:]
			for _, e := range scc.IncomingEdges(val) {
				if e.Kind != depgraph.Data {
					continue
				}
				if !scc.IsInternal(e.From) {
					continue
				}
				if iv.InCycle(e.From) {
					return a
				}
				if !a.derivation[e.From] {
					a.derivation[e.From] = true
					queue = append(queue, e.From)
				}
			}
		}
	}

	// Check 6: account for every internal value; any leftover is state the
	// transform cannot reason about.
	for _, val := range scc.InternalValues() {
		if iv.InCycle(val) || a.derivation[val] {
			continue
		}
		switch v := val.(type) {
		case *ir.BinOp:
			if v == cmp {
				continue
			}
		case *ir.If:
			if v == branch {
				continue
			}
		case *ir.Jump, *ir.IndexAddr, *ir.Phi:
			continue
		}
		return a
	}

	a.wellFormed = true
	return a
}

// WellFormed reports whether the attribution proof succeeded.
func (a *Attribution) WellFormed() bool { return a.wellFormed }

// IV returns the attributed induction variable.
func (a *Attribution) IV() *Variable { return a.iv }

// Comparison returns the header exit comparison.
func (a *Attribution) Comparison() *ir.BinOp { return a.cmp }

// Branch returns the header exit branch.
func (a *Attribution) Branch() *ir.If { return a.branch }

// ConditionValue returns the non-IV operand of the exit comparison.
func (a *Attribution) ConditionValue() ir.Value { return a.condValue }

// ExitBlock returns the branch successor leaving the loop nest.
func (a *Attribution) ExitBlock() *ir.Block { return a.exitBlock }

// InDerivation reports whether val is part of the condition operand's
// internal derivation.
func (a *Attribution) InDerivation(val ir.Value) bool { return a.derivation[val] }

// Derivation returns the SCC-internal instructions the exit condition
// transitively depends on.
func (a *Attribution) Derivation() []ir.Value {
	vals := make([]ir.Value, 0, len(a.derivation))
	for v := range a.derivation {
		vals = append(vals, v)
	}
	return vals
}
