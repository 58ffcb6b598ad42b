package induction

import (
	"fmt"

	"github.com/nickng/stripmine/depgraph"
	"github.com/nickng/stripmine/ir"
	"github.com/nickng/stripmine/loop"
	"github.com/nickng/stripmine/scev"
	"github.com/pkg/errors"
)

// ErrNotAffine is returned when a header merge node is not classified as an
// affine recurrence.
var ErrNotAffine = errors.New("induction: header value is not an affine recurrence")

// Variable is one recognized induction variable: a header merge node, the
// cycle of instructions computing its recurrence, its start value, and its
// step when the step is a literal integer constant.
//
// A Variable without a step is retained for consumers that only need the
// recurrence shape; it is never considered for loop governance.
type Variable struct {
	loop   *loop.Info
	header *ir.Phi

	phis         map[ir.Value]bool // merge nodes in the cycle
	accumulators map[ir.Value]bool // non-merge cycle instructions
	cycle        map[ir.Value]bool // union of the above

	start   ir.Value
	step    int64
	hasStep bool
}

// New recognizes the induction variable rooted at header, a merge node of
// l's header block, using the recurrence oracle cls and the strongly
// connected component scc containing header. It returns ErrNotAffine when
// the oracle does not classify header as an affine recurrence.
func New(l *loop.Info, cls scev.Classifier, header *ir.Phi, scc *depgraph.SCC) (*Variable, error) {
	rec, ok := cls.Classify(header).(*scev.AddRec)
	if !ok {
		return nil, errors.Wrapf(ErrNotAffine, "merge node %s", header.Name())
	}

	v := &Variable{
		loop:         l,
		header:       header,
		phis:         make(map[ir.Value]bool),
		accumulators: make(map[ir.Value]bool),
		cycle:        make(map[ir.Value]bool),
	}

	// Collect the cycle: breadth-first over data dependences internal to
	// the component, starting at the header node.
	queue := []ir.Value{header}
	visited := make(map[ir.Value]bool)
	for len(queue) > 0 {
		val := queue[0]
		queue = queue[1:]
		if visited[val] {
			continue
		}
		visited[val] = true

		if _, isPhi := val.(*ir.Phi); isPhi {
			v.phis[val] = true
		} else {
			v.accumulators[val] = true
		}
		v.cycle[val] = true

		for _, e := range scc.IncomingEdges(val) {
			if e.Kind != depgraph.Data {
				continue
			}
			if !scc.IsInternal(e.From) {
				continue
			}
			queue = append(queue, e.From)
		}
	}

	// Start value: the incoming value sourced outside the loop's member
	// blocks.
	for i, pred := range header.Block().Preds {
		if !l.Has(pred) {
			v.start = header.Edges[i]
			break
		}
	}

	// Step value: usable only when the recurrence step is a literal
	// integer constant.
	if c, ok := rec.Step.(*scev.Constant); ok {
		if n, ok := c.Int64(); ok {
			v.step = n
			v.hasStep = true
		}
	}
	return v, nil
}

// Loop returns the loop the variable belongs to.
func (v *Variable) Loop() *loop.Info { return v.loop }

// Header returns the defining header merge node.
func (v *Variable) Header() *ir.Phi { return v.header }

// Start returns the value the variable holds on loop entry.
func (v *Variable) Start() ir.Value { return v.start }

// Step returns the literal constant step and whether one exists.
func (v *Variable) Step() (int64, bool) { return v.step, v.hasStep }

// InCycle reports whether val is part of the variable's recurrence cycle.
func (v *Variable) InCycle(val ir.Value) bool { return v.cycle[val] }

// CycleMembers returns the instructions forming the recurrence cycle.
// The header node is always a member.
func (v *Variable) CycleMembers() []ir.Value {
	members := make([]ir.Value, 0, len(v.cycle))
	for val := range v.cycle {
		members = append(members, val)
	}
	return members
}

// Accumulators returns the non-merge instructions of the cycle.
func (v *Variable) Accumulators() []ir.Value {
	accs := make([]ir.Value, 0, len(v.accumulators))
	for val := range v.accumulators {
		accs = append(accs, val)
	}
	return accs
}

func (v *Variable) String() string {
	start := "?"
	if v.start != nil {
		start = v.start.Name()
	}
	if !v.hasStep {
		return fmt.Sprintf("%s = %s; step unsupported", v.header.Name(), start)
	}
	if v.step < 0 {
		return fmt.Sprintf("%s = %s; %s = %s - %d",
			v.header.Name(), start, v.header.Name(), v.header.Name(), -v.step)
	}
	return fmt.Sprintf("%s = %s; %s = %s + %d",
		v.header.Name(), start, v.header.Name(), v.header.Name(), v.step)
}
