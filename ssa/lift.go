package ssa

import (
	"github.com/nickng/stripmine/ir"
	"github.com/pkg/errors"
	gossa "golang.org/x/tools/go/ssa"
)

// ErrNoBody is returned when lifting a function without SSA blocks.
var ErrNoBody = errors.New("function has no body")

// Lift converts fn's body into the ir graph analysed by this module.
//
// Merge nodes, binary operations, address computations and branches are
// lifted structurally; every other instruction becomes an opaque value
// carrying only its operands, which is all the dependence analysis needs.
// Values defined outside fn (globals, free variables) lift to inputs.
func Lift(fn *gossa.Function) (*ir.Func, error) {
	if len(fn.Blocks) == 0 {
		return nil, errors.Wrap(ErrNoBody, fn.String())
	}

	f := ir.NewFunc(fn.String())
	vals := make(map[gossa.Value]ir.Value)
	blks := make(map[*gossa.BasicBlock]*ir.Block)

	for _, b := range fn.Blocks {
		blks[b] = f.NewBlock(b.Comment)
	}
	for _, b := range fn.Blocks {
		for _, succ := range b.Succs {
			f.AddEdge(blks[b], blks[succ])
		}
	}

	// First pass: create a shell per instruction so merge nodes and any
	// other cyclic references can be resolved in the second pass.
	for _, b := range fn.Blocks {
		nb := blks[b]
		for _, instr := range b.Instrs {
			switch instr := instr.(type) {
			case *gossa.Phi:
				vals[instr] = nb.NewPhi(instr.Comment)
			case *gossa.BinOp:
				vals[instr] = nb.NewBinOp(instr.Op, nil, nil)
			case *gossa.IndexAddr:
				vals[instr] = nb.NewIndexAddr(nil, nil)
			case *gossa.FieldAddr:
				vals[instr] = nb.NewIndexAddr(nil, nil)
			case *gossa.If:
				nb.NewIf(nil)
			case *gossa.Jump:
				nb.NewJump()
			case *gossa.Return:
				nb.NewReturn()
			default:
				o := nb.NewOpaque(opName(instr))
				if v, ok := instr.(gossa.Value); ok {
					vals[v] = o
				}
			}
		}
	}

	// Second pass: resolve operands.
	for _, b := range fn.Blocks {
		nb := blks[b]
		i := 0
		for _, instr := range b.Instrs {
			lifted := nb.Instrs[i]
			i++
			switch instr := instr.(type) {
			case *gossa.Phi:
				// Edges are keyed by the source block's predecessor
				// order; map each through its predecessor rather than
				// assuming both lists agree.
				phi := lifted.(*ir.Phi)
				for ei, edge := range instr.Edges {
					pi := nb.PredIndex(blks[b.Preds[ei]])
					phi.Edges[pi] = operand(f, vals, edge)
				}
			case *gossa.BinOp:
				bo := lifted.(*ir.BinOp)
				bo.X = operand(f, vals, instr.X)
				bo.Y = operand(f, vals, instr.Y)
			case *gossa.IndexAddr:
				ia := lifted.(*ir.IndexAddr)
				ia.X = operand(f, vals, instr.X)
				ia.Index = operand(f, vals, instr.Index)
			case *gossa.FieldAddr:
				ia := lifted.(*ir.IndexAddr)
				ia.X = operand(f, vals, instr.X)
				ia.Index = f.ConstInt64(int64(instr.Field))
			case *gossa.If:
				lifted.(*ir.If).Cond = operand(f, vals, instr.Cond)
			case *gossa.Jump:
			case *gossa.Return:
				ret := lifted.(*ir.Return)
				for _, res := range instr.Results {
					ret.Ops = append(ret.Ops, operand(f, vals, res))
				}
			default:
				o := lifted.(*ir.Opaque)
				var rands []*gossa.Value
				rands = instr.Operands(rands)
				for _, r := range rands {
					if r == nil || *r == nil {
						continue
					}
					o.Ops = append(o.Ops, operand(f, vals, *r))
				}
			}
		}
	}
	return f, nil
}

// operand maps a Go SSA value to its lifted counterpart, creating leaves
// for constants and out-of-body values on demand.
func operand(f *ir.Func, vals map[gossa.Value]ir.Value, v gossa.Value) ir.Value {
	if lifted, ok := vals[v]; ok {
		return lifted
	}
	var lifted ir.Value
	if c, ok := v.(*gossa.Const); ok && c.Value != nil {
		lifted = &ir.Const{Value: c.Value}
	} else {
		lifted = f.NewParam(v.Name())
	}
	vals[v] = lifted
	return lifted
}

func opName(instr gossa.Instruction) string {
	if v, ok := instr.(gossa.Value); ok {
		return v.Name()
	}
	return "instr"
}
