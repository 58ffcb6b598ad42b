package ir

import (
	"fmt"
	"go/constant"
	"go/token"
	"strings"
)

// Value is a node of the program graph: an instruction, a literal constant,
// or a function-level input. Instructions report the Block that owns them;
// constants and inputs report nil.
type Value interface {
	Name() string      // Short name of the value, e.g. t0.
	Block() *Block     // Owning block, nil for non-instructions.
	Operands() []Value // Values this value consumes.
	String() string    // Human-readable instruction form.
}

// register is the common part of instruction values.
type register struct {
	name string
	blk  *Block
}

func (r *register) Name() string  { return r.name }
func (r *register) Block() *Block { return r.blk }

// Const is a literal constant.
type Const struct {
	Value constant.Value
}

func (c *Const) Name() string      { return c.Value.ExactString() }
func (c *Const) Block() *Block     { return nil }
func (c *Const) Operands() []Value { return nil }
func (c *Const) String() string    { return c.Value.ExactString() }

// Int64 returns the constant as int64 if it is an integer literal.
func (c *Const) Int64() (int64, bool) {
	if c.Value.Kind() != constant.Int {
		return 0, false
	}
	return constant.Int64Val(c.Value)
}

// Param is a value defined outside any block: a function parameter or any
// other opaque input lifted from the surrounding program.
type Param struct {
	name string
}

func (p *Param) Name() string      { return p.name }
func (p *Param) Block() *Block     { return nil }
func (p *Param) Operands() []Value { return nil }
func (p *Param) String() string    { return p.name }

// Phi is a merge node. Edges[i] is the value flowing in from
// Block().Preds[i]. Edges may contain nil while a graph is under
// construction or mid-rewrite.
type Phi struct {
	register
	Edges   []Value
	Comment string
}

func (p *Phi) Operands() []Value { return append([]Value(nil), p.Edges...) }

func (p *Phi) String() string {
	names := make([]string, len(p.Edges))
	for i, e := range p.Edges {
		if e == nil {
			names[i] = "?"
		} else {
			names[i] = e.Name()
		}
	}
	s := fmt.Sprintf("%s = phi [%s]", p.name, strings.Join(names, ", "))
	if p.Comment != "" {
		s += " #" + p.Comment
	}
	return s
}

// BinOp is a binary operation, arithmetic or relational, identified by a
// go/token operator.
type BinOp struct {
	register
	Op   token.Token
	X, Y Value
}

func (b *BinOp) Operands() []Value { return []Value{b.X, b.Y} }

func (b *BinOp) String() string {
	return fmt.Sprintf("%s = %s %s %s", b.name, opName(b.X), b.Op, opName(b.Y))
}

// Select picks True if Cond holds and False otherwise.
type Select struct {
	register
	Cond, True, False Value
}

func (s *Select) Operands() []Value { return []Value{s.Cond, s.True, s.False} }

func (s *Select) String() string {
	return fmt.Sprintf("%s = select %s ? %s : %s",
		s.name, opName(s.Cond), opName(s.True), opName(s.False))
}

// IndexAddr is a pointer-address computation (base plus index).
type IndexAddr struct {
	register
	X, Index Value
}

func (i *IndexAddr) Operands() []Value { return []Value{i.X, i.Index} }

func (i *IndexAddr) String() string {
	return fmt.Sprintf("%s = &%s[%s]", i.name, opName(i.X), opName(i.Index))
}

// Opaque is an instruction whose semantics the analysis does not model;
// only its operands matter for dependence purposes.
type Opaque struct {
	register
	Ops  []Value
	Desc string
}

func (o *Opaque) Operands() []Value { return append([]Value(nil), o.Ops...) }

func (o *Opaque) String() string {
	names := make([]string, len(o.Ops))
	for i, v := range o.Ops {
		names[i] = opName(v)
	}
	return fmt.Sprintf("%s = %s(%s)", o.name, o.Desc, strings.Join(names, ", "))
}

// If is a two-way conditional branch terminator. The then-branch is the
// owning block's Succs[0], the else-branch Succs[1].
type If struct {
	blk  *Block
	Cond Value
}

func (i *If) Name() string      { return "if" }
func (i *If) Block() *Block     { return i.blk }
func (i *If) Operands() []Value { return []Value{i.Cond} }

func (i *If) String() string {
	if len(i.blk.Succs) == 2 {
		return fmt.Sprintf("if %s goto #%d else #%d",
			opName(i.Cond), i.blk.Succs[0].Index, i.blk.Succs[1].Index)
	}
	return fmt.Sprintf("if %s", opName(i.Cond))
}

// Jump is an unconditional branch terminator to the owning block's Succs[0].
type Jump struct {
	blk *Block
}

func (j *Jump) Name() string      { return "jump" }
func (j *Jump) Block() *Block     { return j.blk }
func (j *Jump) Operands() []Value { return nil }

func (j *Jump) String() string {
	if len(j.blk.Succs) == 1 {
		return fmt.Sprintf("jump #%d", j.blk.Succs[0].Index)
	}
	return "jump"
}

// Return is a function-exit terminator.
type Return struct {
	blk *Block
	Ops []Value
}

func (r *Return) Name() string      { return "return" }
func (r *Return) Block() *Block     { return r.blk }
func (r *Return) Operands() []Value { return append([]Value(nil), r.Ops...) }

func (r *Return) String() string {
	names := make([]string, len(r.Ops))
	for i, v := range r.Ops {
		names[i] = opName(v)
	}
	return "return " + strings.Join(names, ", ")
}

// IsTerminator reports whether v ends a block.
func IsTerminator(v Value) bool {
	switch v.(type) {
	case *If, *Jump, *Return:
		return true
	}
	return false
}

func opName(v Value) string {
	if v == nil {
		return "?"
	}
	return v.Name()
}
