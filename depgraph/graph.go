package depgraph

import (
	"github.com/nickng/stripmine/ir"
)

// EdgeKind distinguishes data dependences from control dependences.
type EdgeKind int

const (
	Data EdgeKind = iota
	Control
)

func (k EdgeKind) String() string {
	if k == Control {
		return "control"
	}
	return "data"
}

// Edge is a dependence from a producing value to a consuming value.
type Edge struct {
	From, To ir.Value
	Kind     EdgeKind
}

// Graph is the dependence graph of one function. It is immutable once
// built.
type Graph struct {
	nodes []ir.Value
	index map[ir.Value]int

	in    [][]int // per node, indices into edges with To == node
	out   [][]int // per node, indices into edges with From == node
	edges []Edge

	sccID  []int   // per node, component id
	sccs   [][]int // per component, member node indices
}

// Build constructs the dependence graph for fn.
//
// Data edges connect each operand to the instruction consuming it; operands
// defined outside fn (constants, parameters) still receive nodes so the
// graph is closed. Control edges connect each conditional branch to every
// instruction of its successor blocks.
func Build(fn *ir.Func) *Graph {
	g := &Graph{index: make(map[ir.Value]int)}
	for _, b := range fn.Blocks {
		for _, v := range b.Instrs {
			g.node(v)
		}
	}
	for _, b := range fn.Blocks {
		for _, v := range b.Instrs {
			for _, op := range v.Operands() {
				if op == nil {
					continue
				}
				g.addEdge(op, v, Data)
			}
			br, ok := v.(*ir.If)
			if !ok {
				continue
			}
			for _, succ := range br.Block().Succs {
				for _, sv := range succ.Instrs {
					g.addEdge(br, sv, Control)
				}
			}
		}
	}
	g.computeSCCs()
	return g
}

// node interns v, creating its arena slot on first use.
func (g *Graph) node(v ir.Value) int {
	if i, ok := g.index[v]; ok {
		return i
	}
	i := len(g.nodes)
	g.index[v] = i
	g.nodes = append(g.nodes, v)
	g.in = append(g.in, nil)
	g.out = append(g.out, nil)
	return i
}

func (g *Graph) addEdge(from, to ir.Value, kind EdgeKind) {
	fi, ti := g.node(from), g.node(to)
	ei := len(g.edges)
	g.edges = append(g.edges, Edge{From: from, To: to, Kind: kind})
	g.out[fi] = append(g.out[fi], ei)
	g.in[ti] = append(g.in[ti], ei)
}

// Values returns all values known to the graph.
func (g *Graph) Values() []ir.Value {
	return append([]ir.Value(nil), g.nodes...)
}

// IncomingEdges returns the dependences feeding v.
func (g *Graph) IncomingEdges(v ir.Value) []Edge {
	i, ok := g.index[v]
	if !ok {
		return nil
	}
	edges := make([]Edge, 0, len(g.in[i]))
	for _, ei := range g.in[i] {
		edges = append(edges, g.edges[ei])
	}
	return edges
}

// SCCOf returns the strongly connected component containing v, nil if v is
// not part of the graph.
func (g *Graph) SCCOf(v ir.Value) *SCC {
	i, ok := g.index[v]
	if !ok {
		return nil
	}
	return &SCC{g: g, id: g.sccID[i]}
}

// SCC is a handle on one strongly connected component of a Graph.
type SCC struct {
	g  *Graph
	id int
}

// IsInternal reports whether v belongs to this component.
func (s *SCC) IsInternal(v ir.Value) bool {
	i, ok := s.g.index[v]
	return ok && s.g.sccID[i] == s.id
}

// InternalValues returns the members of this component.
func (s *SCC) InternalValues() []ir.Value {
	members := s.g.sccs[s.id]
	vals := make([]ir.Value, len(members))
	for i, ni := range members {
		vals[i] = s.g.nodes[ni]
	}
	return vals
}

// IncomingEdges returns the dependences feeding v, internal or not.
func (s *SCC) IncomingEdges(v ir.Value) []Edge {
	return s.g.IncomingEdges(v)
}

// Size returns the number of values in the component.
func (s *SCC) Size() int { return len(s.g.sccs[s.id]) }

// computeSCCs runs Tarjan's algorithm over the arena.
func (g *Graph) computeSCCs() {
	n := len(g.nodes)
	g.sccID = make([]int, n)
	for i := range g.sccID {
		g.sccID[i] = -1
	}
	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}
	var stack []int
	next := 0

	var strongconnect func(v int)
	strongconnect = func(v int) {
		index[v] = next
		lowlink[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, ei := range g.out[v] {
			w := g.index[g.edges[ei].To]
			if index[w] == -1 {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] && index[w] < lowlink[v] {
				lowlink[v] = index[w]
			}
		}

		if lowlink[v] == index[v] {
			id := len(g.sccs)
			var members []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				g.sccID[w] = id
				members = append(members, w)
				if w == v {
					break
				}
			}
			g.sccs = append(g.sccs, members)
		}
	}

	for v := 0; v < n; v++ {
		if index[v] == -1 {
			strongconnect(v)
		}
	}
}
