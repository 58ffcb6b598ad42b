// Package scev provides the symbolic recurrence oracle consumed by the
// induction analysis.
//
// The oracle is a capability interface: Classify maps a value to a
// Recurrence variant (Constant, AddRec, Unknown). AddRec is the affine
// recurrence start + k*step over a loop. The package also ships Analysis, a
// reference classifier that pattern-matches header merge nodes whose
// in-loop edge adds or subtracts a value each iteration.
package scev

import (
	"fmt"
	"go/constant"
	"go/token"

	"github.com/nickng/stripmine/ir"
	"github.com/nickng/stripmine/loop"
)

// Recurrence is the classification of a value's evolution.
type Recurrence interface {
	recurrence()
	String() string
}

// Constant is a value fixed across all iterations.
type Constant struct {
	Value constant.Value
}

func (*Constant) recurrence() {}

func (c *Constant) String() string { return c.Value.ExactString() }

// Int64 returns the constant as int64 if it is an integer literal.
func (c *Constant) Int64() (int64, bool) {
	if c.Value.Kind() != constant.Int {
		return 0, false
	}
	return constant.Int64Val(c.Value)
}

// AddRec is an affine recurrence: Start on loop entry, advancing by Step
// each iteration of Loop. Step is itself a Recurrence; only a Constant step
// is usable by governance analysis.
type AddRec struct {
	Start ir.Value
	Step  Recurrence
	Loop  *loop.Info
}

func (*AddRec) recurrence() {}

func (r *AddRec) String() string {
	start := "?"
	if r.Start != nil {
		start = r.Start.Name()
	}
	return fmt.Sprintf("{%s, +, %s}", start, r.Step)
}

// Unknown is a value the oracle cannot classify.
type Unknown struct {
	Value ir.Value
}

func (*Unknown) recurrence() {}

func (u *Unknown) String() string {
	if u.Value == nil {
		return "?"
	}
	return u.Value.Name() + "(?)"
}

// Classifier is the oracle capability injected into the induction analysis.
// Classify returns nil when it has nothing to say about v.
type Classifier interface {
	Classify(v ir.Value) Recurrence
}

// Analysis is the reference Classifier over a loop nest.
type Analysis struct {
	Nest *loop.Nest
}

// NewAnalysis returns a classifier for the loops of nest.
func NewAnalysis(nest *loop.Nest) *Analysis {
	return &Analysis{Nest: nest}
}

// Classify classifies v. Literal constants are Constant; a header merge
// node whose in-loop edge is itself plus or minus a classified constant is
// an AddRec; an in-loop edge of any other additive shape still yields an
// AddRec, with an Unknown step. Everything else is Unknown.
func (a *Analysis) Classify(v ir.Value) Recurrence {
	switch v := v.(type) {
	case *ir.Const:
		return &Constant{Value: v.Value}
	case *ir.Phi:
		return a.classifyPhi(v)
	}
	return &Unknown{Value: v}
}

func (a *Analysis) classifyPhi(phi *ir.Phi) Recurrence {
	l := a.Nest.LoopOf(phi.Block())
	if l == nil {
		return &Unknown{Value: phi}
	}

	var start, update ir.Value
	for i, pred := range phi.Block().Preds {
		if l.Has(pred) {
			update = phi.Edges[i]
		} else {
			start = phi.Edges[i]
		}
	}
	if start == nil || update == nil {
		return &Unknown{Value: phi}
	}

	bo, ok := update.(*ir.BinOp)
	if !ok {
		return &Unknown{Value: phi}
	}
	var stepVal ir.Value
	switch bo.Op {
	case token.ADD:
		switch {
		case bo.X == phi:
			stepVal = bo.Y
		case bo.Y == phi:
			stepVal = bo.X
		default:
			return &Unknown{Value: phi}
		}
	case token.SUB:
		if bo.X != phi {
			return &Unknown{Value: phi}
		}
		stepVal = bo.Y
	default:
		return &Unknown{Value: phi}
	}

	step := a.stepOf(stepVal, bo.Op == token.SUB)
	return &AddRec{Start: start, Step: step, Loop: l}
}

// stepOf classifies the per-iteration step term, negating literal constants
// for subtracting updates.
func (a *Analysis) stepOf(v ir.Value, negate bool) Recurrence {
	c, ok := v.(*ir.Const)
	if !ok {
		return &Unknown{Value: v}
	}
	val := c.Value
	if negate {
		val = constant.UnaryOp(token.SUB, val, 0)
	}
	return &Constant{Value: val}
}
