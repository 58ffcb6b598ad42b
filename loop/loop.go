package loop

import (
	"fmt"

	"github.com/nickng/stripmine/ir"
)

// Info is a data structure holding one detected loop: its header, member
// blocks and the blocks control flow escapes to.
type Info struct {
	header    *ir.Block
	preheader *ir.Block // Unique out-of-loop predecessor of header, may be nil.
	blocks    map[*ir.Block]bool
	exits     []*ir.Block
	latches   []*ir.Block // In-loop predecessors of the header.
}

// Header returns the loop header block.
func (l *Info) Header() *ir.Block { return l.header }

// Preheader returns the unique predecessor of the header outside the loop,
// or nil if the header has several external predecessors.
func (l *Info) Preheader() *ir.Block { return l.preheader }

// Has reports whether b is a member block of the loop.
func (l *Info) Has(b *ir.Block) bool { return l.blocks[b] }

// Blocks returns the loop's member blocks.
func (l *Info) Blocks() []*ir.Block {
	blocks := make([]*ir.Block, 0, len(l.blocks))
	for b := range l.blocks {
		blocks = append(blocks, b)
	}
	return blocks
}

// Latches returns the in-loop predecessors of the header.
func (l *Info) Latches() []*ir.Block { return l.latches }

// Exits returns the blocks outside the loop that are successors of member
// blocks.
func (l *Info) Exits() []*ir.Block { return l.exits }

func (l *Info) String() string {
	return fmt.Sprintf("loop@#%d (%d blocks, %d exits)",
		l.header.Index, len(l.blocks), len(l.exits))
}

// Nest is the collection of loops detected in one function.
type Nest struct {
	fn    *ir.Func
	loops []*Info
}

// Fn returns the function the nest belongs to.
func (n *Nest) Fn() *ir.Func { return n.fn }

// Loops returns the loops of the nest, outermost headers first in block
// order.
func (n *Nest) Loops() []*Info { return n.loops }

// LoopOf returns the innermost loop whose header is b, nil if none.
func (n *Nest) LoopOf(b *ir.Block) *Info {
	for _, l := range n.loops {
		if l.header == b {
			return l
		}
	}
	return nil
}

// ExitBlocks returns the exit blocks of every loop in the nest.
func (n *Nest) ExitBlocks() []*ir.Block {
	var exits []*ir.Block
	seen := make(map[*ir.Block]bool)
	for _, l := range n.loops {
		for _, e := range l.exits {
			if !seen[e] {
				seen[e] = true
				exits = append(exits, e)
			}
		}
	}
	return exits
}
