package ir

import (
	"bytes"
	"fmt"
	"go/constant"
	"go/token"
	"io"
)

// Func owns the blocks and values of one function body.
type Func struct {
	Name   string
	Params []*Param
	Blocks []*Block

	nvalue int // register counter for t%d names
}

// NewFunc returns an empty function.
func NewFunc(name string) *Func {
	return &Func{Name: name}
}

// NewBlock appends a fresh block to the function.
func (f *Func) NewBlock(comment string) *Block {
	b := &Block{Index: len(f.Blocks), Comment: comment, Fn: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// NewParam registers a function-level input value.
func (f *Func) NewParam(name string) *Param {
	p := &Param{name: name}
	f.Params = append(f.Params, p)
	return p
}

// ConstInt64 returns a fresh integer literal.
func (f *Func) ConstInt64(v int64) *Const {
	return &Const{Value: constant.MakeInt64(v)}
}

// AddEdge records a control-flow edge between two blocks.
func (f *Func) AddEdge(from, to *Block) {
	from.Succs = append(from.Succs, to)
	to.Preds = append(to.Preds, from)
}

func (f *Func) nextName() string {
	name := fmt.Sprintf("t%d", f.nvalue)
	f.nvalue++
	return name
}

// Entry returns the entry block, nil for an empty function.
func (f *Func) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// WriteTo writes the function in a human readable instruction format.
func (f *Func) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "func %s:\n", f.Name)
	for _, b := range f.Blocks {
		if b.Comment != "" {
			fmt.Fprintf(&buf, "#%d: %s\n", b.Index, b.Comment)
		} else {
			fmt.Fprintf(&buf, "#%d:\n", b.Index)
		}
		for _, v := range b.Instrs {
			fmt.Fprintf(&buf, "\t%s\n", v.String())
		}
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// Block is a basic block: instructions in program order, merge nodes first,
// at most one terminator last.
type Block struct {
	Index   int
	Comment string
	Fn      *Func
	Instrs  []Value
	Preds   []*Block
	Succs   []*Block
}

// Terminator returns the block's final instruction if it is a terminator.
func (b *Block) Terminator() Value {
	if len(b.Instrs) == 0 {
		return nil
	}
	if t := b.Instrs[len(b.Instrs)-1]; IsTerminator(t) {
		return t
	}
	return nil
}

// Phis returns the block's merge nodes.
func (b *Block) Phis() []*Phi {
	var phis []*Phi
	for _, v := range b.Instrs {
		p, ok := v.(*Phi)
		if !ok {
			break
		}
		phis = append(phis, p)
	}
	return phis
}

// NewPhi inserts a merge node after the block's existing merge nodes.
// Edges is sized to the block's current predecessors and must be filled by
// the caller.
func (b *Block) NewPhi(comment string) *Phi {
	p := &Phi{
		register: register{name: b.Fn.nextName(), blk: b},
		Edges:    make([]Value, len(b.Preds)),
		Comment:  comment,
	}
	i := len(b.Phis())
	b.Instrs = append(b.Instrs, nil)
	copy(b.Instrs[i+1:], b.Instrs[i:])
	b.Instrs[i] = p
	return p
}

// NewBinOp appends a binary operation, before the terminator if the block
// already has one.
func (b *Block) NewBinOp(op token.Token, x, y Value) *BinOp {
	v := &BinOp{register: register{name: b.Fn.nextName(), blk: b}, Op: op, X: x, Y: y}
	b.insert(v)
	return v
}

// NewSelect appends a select, before the terminator if the block has one.
func (b *Block) NewSelect(cond, t, f Value) *Select {
	v := &Select{register: register{name: b.Fn.nextName(), blk: b}, Cond: cond, True: t, False: f}
	b.insert(v)
	return v
}

// NewIndexAddr appends a pointer-address computation.
func (b *Block) NewIndexAddr(x, index Value) *IndexAddr {
	v := &IndexAddr{register: register{name: b.Fn.nextName(), blk: b}, X: x, Index: index}
	b.insert(v)
	return v
}

// NewOpaque appends an unmodelled instruction.
func (b *Block) NewOpaque(desc string, ops ...Value) *Opaque {
	v := &Opaque{register: register{name: b.Fn.nextName(), blk: b}, Ops: ops, Desc: desc}
	b.insert(v)
	return v
}

// NewIf sets a two-way conditional branch as the block terminator.
func (b *Block) NewIf(cond Value) *If {
	v := &If{blk: b, Cond: cond}
	b.Instrs = append(b.Instrs, v)
	return v
}

// NewJump sets an unconditional branch as the block terminator.
func (b *Block) NewJump() *Jump {
	v := &Jump{blk: b}
	b.Instrs = append(b.Instrs, v)
	return v
}

// NewReturn sets a function-exit terminator.
func (b *Block) NewReturn(ops ...Value) *Return {
	v := &Return{blk: b, Ops: ops}
	b.Instrs = append(b.Instrs, v)
	return v
}

// SwapSuccs exchanges the block's two successors. Merge-node edges of the
// successors are keyed by their own predecessor lists and are unaffected.
func (b *Block) SwapSuccs() {
	if len(b.Succs) == 2 {
		b.Succs[0], b.Succs[1] = b.Succs[1], b.Succs[0]
	}
}

// PredIndex returns the position of pred in the block's predecessor list,
// -1 if pred is not a predecessor.
func (b *Block) PredIndex(pred *Block) int {
	for i, p := range b.Preds {
		if p == pred {
			return i
		}
	}
	return -1
}

// insert places v before the block terminator, or at the end if the block
// has none yet.
func (b *Block) insert(v Value) {
	if t := b.Terminator(); t != nil {
		i := len(b.Instrs) - 1
		b.Instrs = append(b.Instrs, nil)
		copy(b.Instrs[i+1:], b.Instrs[i:])
		b.Instrs[i] = v
		return
	}
	b.Instrs = append(b.Instrs, v)
}
