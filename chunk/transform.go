package chunk

import (
	"go/token"

	"github.com/nickng/stripmine/induction"
	"github.com/nickng/stripmine/ir"
	"github.com/pkg/errors"
)

var (
	// ErrNotWellFormed is returned when deriving a transform from a failed
	// attribution.
	ErrNotWellFormed = errors.New("chunk: attribution is not well-formed")

	// ErrStepSign is returned when the exit predicate's direction
	// contradicts the step sign. This is an inconsistency in the upstream
	// loop structure; the loop must not be chunked.
	ErrStepSign = errors.New("chunk: step sign is not compatible with exit predicate")
)

// Transform is the strip-mining rewriter for one governed loop. Deriving it
// computes the normalized exit predicate; the mutation methods then rewrite
// the program graph in place.
type Transform struct {
	attr *induction.Attribution

	pred         token.Token // normalized predicate, exits-on-true with IV on the left
	swapOperands bool        // comparison currently has the IV on the right
	derivation   []ir.Value  // condition derivation in program order

	rewritten map[*ir.BinOp]bool // comparisons already normalized
}

// Derive computes the normalized exit predicate for a well-formed
// attribution.
//
// The predicate is first brought into a fixed frame: exiting on the
// branch's first successor and with the induction variable as the left
// operand. In that frame equality widens to >= for a positive step and <=
// for a negative step; inequality stays; a less-than family requires a
// negative step and a greater-than family a positive step. A direction
// mismatch returns ErrStepSign.
func Derive(attr *induction.Attribution) (*Transform, error) {
	if !attr.WellFormed() {
		return nil, ErrNotWellFormed
	}
	iv := attr.IV()
	step, ok := iv.Step()
	if !ok {
		return nil, errors.New("chunk: governing IV has no constant step")
	}
	positive := step > 0

	t := &Transform{attr: attr, rewritten: make(map[*ir.BinOp]bool)}

	// Condition derivation in program order.
	for _, b := range attr.Comparison().Block().Fn.Blocks {
		for _, v := range b.Instrs {
			if attr.InDerivation(v) {
				t.derivation = append(t.derivation, v)
			}
		}
	}

	cmp := attr.Comparison()
	pred := cmp.Op
	if attr.Branch().Block().Succs[0] != attr.ExitBlock() {
		pred = ir.Negate(pred)
	}
	if cmp.X != ir.Value(iv.Header()) {
		pred = ir.Mirror(pred)
		t.swapOperands = true
	}

	switch pred {
	case token.NEQ:
		// Non-strict already: overshooting yields at most one spurious
		// iteration.
	case token.EQL:
		if positive {
			pred = token.GEQ
		} else {
			pred = token.LEQ
		}
	case token.LSS, token.LEQ:
		if positive {
			return nil, errors.Wrapf(ErrStepSign, "step %+d with exit %s", step, pred)
		}
	case token.GTR, token.GEQ:
		if !positive {
			return nil, errors.Wrapf(ErrStepSign, "step %+d with exit %s", step, pred)
		}
	default:
		return nil, errors.Errorf("chunk: %s is not a relational predicate", pred)
	}
	t.pred = pred
	return t, nil
}

// Attribution returns the attribution the transform was derived from.
func (t *Transform) Attribution() *induction.Attribution { return t.attr }

// Predicate returns the normalized non-strict exit predicate.
func (t *Transform) Predicate() token.Token { return t.pred }

// OperandsSwapped reports whether the original comparison holds the
// induction variable on the right, so rewrites must swap its operands.
func (t *Transform) OperandsSwapped() bool { return t.swapOperands }

// OrderedDerivation returns the condition derivation instructions in
// program order.
func (t *Transform) OrderedDerivation() []ir.Value {
	return append([]ir.Value(nil), t.derivation...)
}

// BuildChunkCounter inserts a merge node at the loop header counting
// iterations within the current chunk: 0 on entry from the preheader, and
// on every latch edge the incremented count wrapped back to 0 once it
// reaches chunkSize.
func (t *Transform) BuildChunkCounter(preheader, header *ir.Block, chunkSize ir.Value) *ir.Phi {
	fn := header.Fn
	zero := fn.ConstInt64(0)
	one := fn.ConstInt64(1)

	counter := header.NewPhi("chunk")
	for i, pred := range header.Preds {
		if pred == preheader {
			counter.Edges[i] = zero
			continue
		}
		inc := pred.NewBinOp(token.ADD, counter, one)
		done := pred.NewBinOp(token.EQL, inc, chunkSize)
		wrap := pred.NewSelect(done, zero, inc)
		counter.Edges[i] = wrap
	}
	return counter
}

// ChunkGoverningIV rewires the governing merge node's latch edges: when the
// paired chunk-counter edge signals a completed chunk, advance by stride;
// otherwise keep the previous value.
//
// counter must be a merge node built by BuildChunkCounter in the same block
// as governing.
func (t *Transform) ChunkGoverningIV(preheader *ir.Block, governing, counter *ir.Phi, stride ir.Value) error {
	if governing.Block() != counter.Block() {
		return errors.New("chunk: governing and counter merge nodes are in different blocks")
	}
	for i, pred := range governing.Block().Preds {
		if pred == preheader {
			continue
		}
		wrap, ok := counter.Edges[i].(*ir.Select)
		if !ok {
			return errors.Errorf("chunk: counter edge from #%d is not a wrap select", pred.Index)
		}
		prev := governing.Edges[i]
		advanced := pred.NewBinOp(token.ADD, prev, stride)
		governing.Edges[i] = pred.NewSelect(wrap.Cond, advanced, prev)
	}
	return nil
}

// RewriteExitGuard rewrites cmp and br to the normalized frame: operands
// swapped if the original comparison held the IV on the right, predicate
// set to the normalized one, and the branch exiting on its first successor.
// Rewriting an already-normalized guard is a no-op.
func (t *Transform) RewriteExitGuard(cmp *ir.BinOp, br *ir.If, exitBlock *ir.Block) {
	if t.swapOperands && !t.rewritten[cmp] {
		cmp.X, cmp.Y = cmp.Y, cmp.X
	}
	t.rewritten[cmp] = true
	cmp.Op = t.pred

	if br.Block().Succs[0] != exitBlock {
		br.Block().SwapSuccs()
	}
}

// CloneGuardAt emits a fresh guard at the end of block at: a comparison of
// recurrence against compare under the normalized predicate, and a
// conditional branch to exitBlock on exit, continueBlock otherwise. The
// block must not already have a terminator. Existing nodes are untouched;
// merge-node edges of the two targets are the caller's to maintain.
func (t *Transform) CloneGuardAt(recurrence, compare ir.Value, continueBlock, exitBlock, at *ir.Block) *ir.If {
	cmp := at.NewBinOp(t.pred, recurrence, compare)
	br := at.NewIf(cmp)
	at.Fn.AddEdge(at, exitBlock)
	at.Fn.AddEdge(at, continueBlock)
	return br
}
