package loop

import (
	"sort"

	"github.com/nickng/stripmine/ir"
)

// Detect finds the natural loops of fn and returns them as a Nest.
func Detect(fn *ir.Func) *Nest {
	nest := &Nest{fn: fn}
	if len(fn.Blocks) == 0 {
		return nest
	}

	dom := dominators(fn)

	// Back edges: latch -> header where header dominates latch.
	byHeader := make(map[*ir.Block][]*ir.Block)
	for _, b := range fn.Blocks {
		for _, succ := range b.Succs {
			if dom[b.Index][succ.Index] {
				byHeader[succ] = append(byHeader[succ], b)
			}
		}
	}

	var headers []*ir.Block
	for h := range byHeader {
		headers = append(headers, h)
	}
	sort.Slice(headers, func(i, j int) bool { return headers[i].Index < headers[j].Index })

	for _, h := range headers {
		nest.loops = append(nest.loops, naturalLoop(h, byHeader[h]))
	}
	return nest
}

// naturalLoop collects the loop of header h: h itself plus every block that
// reaches a latch without passing through h.
func naturalLoop(h *ir.Block, latches []*ir.Block) *Info {
	l := &Info{header: h, blocks: map[*ir.Block]bool{h: true}}
	stack := append([]*ir.Block(nil), latches...)
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if l.blocks[b] {
			continue
		}
		l.blocks[b] = true
		for _, pred := range b.Preds {
			stack = append(stack, pred)
		}
	}

	var external []*ir.Block
	for _, pred := range h.Preds {
		if l.blocks[pred] {
			l.latches = append(l.latches, pred)
		} else {
			external = append(external, pred)
		}
	}
	if len(external) == 1 { // otherwise no unique preheader
		l.preheader = external[0]
	}

	seen := make(map[*ir.Block]bool)
	for b := range l.blocks {
		for _, succ := range b.Succs {
			if !l.blocks[succ] && !seen[succ] {
				seen[succ] = true
				l.exits = append(l.exits, succ)
			}
		}
	}
	sort.Slice(l.exits, func(i, j int) bool { return l.exits[i].Index < l.exits[j].Index })
	return l
}

// dominators computes the dominator sets of fn by forward fixpoint:
// dom(entry) = {entry}, dom(b) = {b} ∪ ⋂ dom(preds(b)).
func dominators(fn *ir.Func) [][]bool {
	n := len(fn.Blocks)
	dom := make([][]bool, n)
	for i := range dom {
		dom[i] = make([]bool, n)
		if i == 0 {
			dom[i][0] = true
			continue
		}
		for j := range dom[i] {
			dom[i][j] = true // all blocks, refined below
		}
	}

	changed := true
	for changed {
		changed = false
		for _, b := range fn.Blocks[1:] {
			next := make([]bool, n)
			first := true
			for _, pred := range b.Preds {
				if first {
					copy(next, dom[pred.Index])
					first = false
					continue
				}
				for j := range next {
					next[j] = next[j] && dom[pred.Index][j]
				}
			}
			if first { // unreachable block
				next = make([]bool, n)
			}
			next[b.Index] = true
			for j := range next {
				if next[j] != dom[b.Index][j] {
					dom[b.Index] = next
					changed = true
					break
				}
			}
		}
	}
	return dom
}
