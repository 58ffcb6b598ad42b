package chunk

import (
	"go/token"
	"testing"

	"github.com/nickng/stripmine/depgraph"
	"github.com/nickng/stripmine/induction"
	"github.com/nickng/stripmine/ir"
	"github.com/nickng/stripmine/loop"
	"github.com/nickng/stripmine/scev"
	"github.com/pkg/errors"
)

// harness is a counting loop together with its governing attribution.
type harness struct {
	f                         *ir.Func
	entry, header, body, done *ir.Block
	phi                       *ir.Phi
	cmp                       *ir.BinOp
	inc                       *ir.BinOp
	attr                      *induction.Attribution
}

// buildLoop constructs: for i := start; i <op> bound; i += step {}.
// exitFirst places the exit block as the branch's first successor; ivRight
// puts the induction variable on the comparison's right side.
func buildLoop(t *testing.T, op token.Token, start, bound, step int64, exitFirst, ivRight bool) *harness {
	t.Helper()
	h := &harness{f: ir.NewFunc("count")}
	f := h.f
	h.entry = f.NewBlock("entry")
	h.header = f.NewBlock("for.loop")
	h.body = f.NewBlock("for.body")
	h.done = f.NewBlock("for.done")
	f.AddEdge(h.entry, h.header)
	if exitFirst {
		f.AddEdge(h.header, h.done)
		f.AddEdge(h.header, h.body)
	} else {
		f.AddEdge(h.header, h.body)
		f.AddEdge(h.header, h.done)
	}
	f.AddEdge(h.body, h.header)

	h.entry.NewJump()
	h.phi = h.header.NewPhi("i")
	if ivRight {
		h.cmp = h.header.NewBinOp(op, f.ConstInt64(bound), h.phi)
	} else {
		h.cmp = h.header.NewBinOp(op, h.phi, f.ConstInt64(bound))
	}
	h.header.NewIf(h.cmp)
	h.inc = h.body.NewBinOp(token.ADD, h.phi, f.ConstInt64(step))
	h.body.NewJump()
	h.done.NewReturn()
	h.phi.Edges[0] = f.ConstInt64(start)
	h.phi.Edges[1] = h.inc
	return h
}

// govern runs the recognition pipeline and attributes the governing IV.
func (h *harness) govern(t *testing.T) *induction.Attribution {
	t.Helper()
	nest := loop.Detect(h.f)
	g := depgraph.Build(h.f)
	set := induction.BuildSet(nest, g, scev.NewAnalysis(nest), nil)
	l := nest.LoopOf(h.header)
	gov := set.Governing(l)
	if gov == nil {
		t.Fatal("no governing IV")
	}
	h.attr = induction.Attribute(gov, g.SCCOf(h.phi), nest.ExitBlocks())
	if !h.attr.WellFormed() {
		t.Fatal("attribution not well-formed")
	}
	return h.attr
}

func TestDeriveNEQExitOnFalse(t *testing.T) {
	h := buildLoop(t, token.NEQ, 0, 10, 1, false, false)
	tr, err := Derive(h.govern(t))
	if err != nil {
		t.Fatal(err)
	}
	// Exiting on the false edge negates != to ==, which widens to >= for
	// an upward-counting variable.
	if tr.Predicate() != token.GEQ {
		t.Errorf("predicate: want >=, got %s", tr.Predicate())
	}
	if tr.OperandsSwapped() {
		t.Error("operands should not need swapping")
	}
}

func TestDeriveNEQExitOnTrue(t *testing.T) {
	h := buildLoop(t, token.NEQ, 0, 10, 1, true, false)
	tr, err := Derive(h.govern(t))
	if err != nil {
		t.Fatal(err)
	}
	if tr.Predicate() != token.NEQ {
		t.Errorf("predicate: want !=, got %s", tr.Predicate())
	}
}

func TestDeriveEQLNegativeStep(t *testing.T) {
	// for i := 10; ; i-- exiting when i == 0: widens to <=.
	h := buildLoop(t, token.EQL, 10, 0, -1, true, false)
	tr, err := Derive(h.govern(t))
	if err != nil {
		t.Fatal(err)
	}
	if tr.Predicate() != token.LEQ {
		t.Errorf("predicate: want <=, got %s", tr.Predicate())
	}
}

func TestDeriveSwappedOperands(t *testing.T) {
	// 10 != i with the IV on the right mirrors into the normal frame.
	h := buildLoop(t, token.NEQ, 0, 10, 1, false, true)
	tr, err := Derive(h.govern(t))
	if err != nil {
		t.Fatal(err)
	}
	if !tr.OperandsSwapped() {
		t.Error("operands should be marked for swapping")
	}
	if tr.Predicate() != token.GEQ {
		t.Errorf("predicate: want >=, got %s", tr.Predicate())
	}
}

func TestDeriveStepSignMismatch(t *testing.T) {
	// Exiting while i < 10 with i counting upward never terminates the
	// chunked form; the loop must be rejected loudly.
	h := buildLoop(t, token.LSS, 0, 10, 1, true, false)
	_, err := Derive(h.govern(t))
	if errors.Cause(err) != ErrStepSign {
		t.Errorf("want ErrStepSign, got %v", err)
	}
}

func TestDeriveNotWellFormed(t *testing.T) {
	h := buildLoop(t, token.NEQ, 0, 10, 1, false, false)
	nest := loop.Detect(h.f)
	g := depgraph.Build(h.f)
	set := induction.BuildSet(nest, g, scev.NewAnalysis(nest), nil)
	gov := set.Governing(nest.LoopOf(h.header))

	// No exit blocks: attribution cannot succeed.
	attr := induction.Attribute(gov, g.SCCOf(h.phi), nil)
	if _, err := Derive(attr); errors.Cause(err) != ErrNotWellFormed {
		t.Errorf("want ErrNotWellFormed, got %v", err)
	}
}

func TestRewriteExitGuardIdempotent(t *testing.T) {
	h := buildLoop(t, token.NEQ, 0, 10, 1, false, true)
	tr, err := Derive(h.govern(t))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		tr.RewriteExitGuard(h.cmp, h.attr.Branch(), h.done)
		if h.cmp.X != ir.Value(h.phi) {
			t.Fatalf("pass %d: IV not on the left", i+1)
		}
		if h.cmp.Op != token.GEQ {
			t.Fatalf("pass %d: predicate not rewritten: %s", i+1, h.cmp.Op)
		}
		if h.header.Succs[0] != h.done {
			t.Fatalf("pass %d: exit is not the first successor", i+1)
		}
	}
}

func TestBuildChunkCounter(t *testing.T) {
	h := buildLoop(t, token.NEQ, 0, 10, 1, false, false)
	tr, err := Derive(h.govern(t))
	if err != nil {
		t.Fatal(err)
	}

	counter := tr.BuildChunkCounter(h.entry, h.header, h.f.ConstInt64(4))
	if counter.Block() != h.header {
		t.Fatal("counter not placed at the header")
	}

	zero, ok := counter.Edges[h.header.PredIndex(h.entry)].(*ir.Const)
	if !ok {
		t.Fatal("preheader edge is not a constant")
	}
	if n, _ := zero.Int64(); n != 0 {
		t.Errorf("preheader edge: want 0, got %d", n)
	}

	wrap, ok := counter.Edges[h.header.PredIndex(h.body)].(*ir.Select)
	if !ok {
		t.Fatal("latch edge is not a wrap select")
	}
	done, ok := wrap.Cond.(*ir.BinOp)
	if !ok || done.Op != token.EQL {
		t.Fatalf("wrap condition is not an equality test: %v", wrap.Cond)
	}
	inc, ok := done.X.(*ir.BinOp)
	if !ok || inc.Op != token.ADD || inc.X != ir.Value(counter) {
		t.Error("wrap should test the incremented counter")
	}
	if wrap.False != ir.Value(inc) {
		t.Error("select should keep the incremented counter when not wrapping")
	}
}

func TestChunkGoverningIV(t *testing.T) {
	h := buildLoop(t, token.NEQ, 0, 10, 1, false, false)
	tr, err := Derive(h.govern(t))
	if err != nil {
		t.Fatal(err)
	}

	counter := tr.BuildChunkCounter(h.entry, h.header, h.f.ConstInt64(4))
	stride := h.f.ConstInt64(4)
	if err := tr.ChunkGoverningIV(h.entry, h.phi, counter, stride); err != nil {
		t.Fatal(err)
	}

	latch := h.header.PredIndex(h.body)
	sel, ok := h.phi.Edges[latch].(*ir.Select)
	if !ok {
		t.Fatal("latch edge of the governing IV is not a select")
	}
	wrap := counter.Edges[latch].(*ir.Select)
	if sel.Cond != wrap.Cond {
		t.Error("advance select should share the wrap condition")
	}
	if sel.False != ir.Value(h.inc) {
		t.Error("non-wrapping path should keep the original update")
	}
	adv, ok := sel.True.(*ir.BinOp)
	if !ok || adv.Op != token.ADD || adv.X != ir.Value(h.inc) || adv.Y != ir.Value(stride) {
		t.Error("wrapping path should advance the update by the stride")
	}

	// Mismatched blocks are rejected.
	other := h.f.NewBlock("other")
	bad := other.NewPhi("x")
	if err := tr.ChunkGoverningIV(h.entry, bad, counter, stride); err == nil {
		t.Error("merge nodes in different blocks should be rejected")
	}
}

func TestCloneGuardAt(t *testing.T) {
	h := buildLoop(t, token.NEQ, 0, 10, 1, false, false)
	tr, err := Derive(h.govern(t))
	if err != nil {
		t.Fatal(err)
	}

	guard := h.f.NewBlock("guard")
	br := tr.CloneGuardAt(h.phi, h.f.ConstInt64(10), h.body, h.done, guard)
	if guard.Terminator() != ir.Value(br) {
		t.Fatal("guard block not terminated by the cloned branch")
	}
	cmp, ok := br.Cond.(*ir.BinOp)
	if !ok || cmp.Op != tr.Predicate() {
		t.Error("cloned guard should use the normalized predicate")
	}
	if cmp.X != ir.Value(h.phi) {
		t.Error("cloned guard should compare the given recurrence value")
	}
	if guard.Succs[0] != h.done || guard.Succs[1] != h.body {
		t.Error("cloned guard should exit on its first successor")
	}
}

// interpret executes f over int64 values, recording watch's value on every
// visit to its block. It stops at a return terminator.
func interpret(t *testing.T, f *ir.Func, watch *ir.Phi, limit int) []int64 {
	t.Helper()
	env := make(map[ir.Value]int64)
	eval := func(v ir.Value) int64 {
		if c, ok := v.(*ir.Const); ok {
			n, ok := c.Int64()
			if !ok {
				t.Fatalf("non-integer constant %s", c.Name())
			}
			return n
		}
		n, ok := env[v]
		if !ok {
			t.Fatalf("use of undefined value %s", v.Name())
		}
		return n
	}

	var trace []int64
	var prev *ir.Block
	cur := f.Entry()
	for steps := 0; ; steps++ {
		if steps >= limit {
			t.Fatalf("no termination after %d steps", limit)
		}

		// Merge nodes read their edges in parallel.
		phis := cur.Phis()
		vals := make([]int64, len(phis))
		for i, p := range phis {
			vals[i] = eval(p.Edges[cur.PredIndex(prev)])
		}
		for i, p := range phis {
			env[p] = vals[i]
		}
		if watch.Block() == cur {
			trace = append(trace, env[watch])
		}

		var next *ir.Block
		for _, v := range cur.Instrs[len(phis):] {
			switch v := v.(type) {
			case *ir.BinOp:
				x, y := eval(v.X), eval(v.Y)
				switch v.Op {
				case token.ADD:
					env[v] = x + y
				case token.SUB:
					env[v] = x - y
				case token.MUL:
					env[v] = x * y
				case token.EQL:
					env[v] = b2i(x == y)
				case token.NEQ:
					env[v] = b2i(x != y)
				case token.LSS:
					env[v] = b2i(x < y)
				case token.LEQ:
					env[v] = b2i(x <= y)
				case token.GTR:
					env[v] = b2i(x > y)
				case token.GEQ:
					env[v] = b2i(x >= y)
				default:
					t.Fatalf("cannot evaluate %s", v)
				}
			case *ir.Select:
				if eval(v.Cond) != 0 {
					env[v] = eval(v.True)
				} else {
					env[v] = eval(v.False)
				}
			case *ir.If:
				if eval(v.Cond) != 0 {
					next = cur.Succs[0]
				} else {
					next = cur.Succs[1]
				}
			case *ir.Jump:
				next = cur.Succs[0]
			case *ir.Return:
				return trace
			default:
				t.Fatalf("cannot evaluate %s", v)
			}
		}
		prev, cur = cur, next
	}
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func TestChunkedExecution(t *testing.T) {
	h := buildLoop(t, token.NEQ, 0, 10, 1, false, false)

	// Untransformed baseline: i visits 0..10 and exits at 10.
	base := interpret(t, h.f, h.phi, 1000)
	if len(base) != 11 || base[0] != 0 || base[10] != 10 {
		t.Fatalf("baseline trace: %v", base)
	}

	tr, err := Derive(h.govern(t))
	if err != nil {
		t.Fatal(err)
	}

	// Chunk of 4 with a stride of 4: the schedule of the first of two
	// workers splitting the iteration space.
	tr.RewriteExitGuard(h.cmp, h.attr.Branch(), h.done)
	counter := tr.BuildChunkCounter(h.entry, h.header, h.f.ConstInt64(4))
	if err := tr.ChunkGoverningIV(h.entry, h.phi, counter, h.f.ConstInt64(4)); err != nil {
		t.Fatal(err)
	}

	got := interpret(t, h.f, h.phi, 1000)
	want := []int64{0, 1, 2, 3, 8, 9, 10}
	if len(got) != len(want) {
		t.Fatalf("chunked trace: want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("chunked trace: want %v, got %v", want, got)
		}
	}

	// The chunk counter restarts after each chunk boundary.
	counts := interpret(t, h.f, counter, 1000)
	wantCounts := []int64{0, 1, 2, 3, 0, 1, 2}
	for i := range wantCounts {
		if counts[i] != wantCounts[i] {
			t.Fatalf("counter trace: want %v, got %v", wantCounts, counts)
		}
	}
}
