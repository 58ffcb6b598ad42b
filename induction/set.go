package induction

import (
	"github.com/nickng/stripmine/depgraph"
	"github.com/nickng/stripmine/loop"
	"github.com/nickng/stripmine/scev"
	"go.uber.org/zap"
)

// Set holds the induction variables recognized per loop, and at most one
// governing variable per loop. Built once per analysis, queried many times.
type Set struct {
	ivs       map[*loop.Info][]*Variable
	governing map[*loop.Info]*Variable
	logger    *zap.SugaredLogger
}

// BuildSet scans the header merge nodes of every loop in nest, recognizes
// induction variables via the recurrence oracle cls, and registers as
// governing each variable whose attribution over graph g is well-formed.
//
// Variables without a literal constant step are retained in the set but are
// never candidates for governance. If several header merge nodes of one
// loop independently pass attribution, the later one wins and the anomaly
// is logged; the caller should treat plural discovery as a modeling defect
// in the loop, not as two usable governing variables.
//
// A nil logger disables diagnostics.
func BuildSet(nest *loop.Nest, g *depgraph.Graph, cls scev.Classifier, logger *zap.SugaredLogger) *Set {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Set{
		ivs:       make(map[*loop.Info][]*Variable),
		governing: make(map[*loop.Info]*Variable),
		logger:    logger,
	}

	exitBlocks := nest.ExitBlocks()
	for _, l := range nest.Loops() {
		for _, phi := range l.Header().Phis() {
			scc := g.SCCOf(phi)
			if scc == nil {
				continue
			}
			iv, err := New(l, cls, phi, scc)
			if err != nil {
				s.logger.Debugf("loop@#%d: %s: %v", l.Header().Index, phi.Name(), err)
				continue
			}
			s.ivs[l] = append(s.ivs[l], iv)
			if _, ok := iv.Step(); !ok {
				s.logger.Debugf("loop@#%d: %s: non-constant step, not a governance candidate",
					l.Header().Index, phi.Name())
				continue
			}

			attr := Attribute(iv, scc, exitBlocks)
			if !attr.WellFormed() {
				continue
			}
			if prev, ok := s.governing[l]; ok {
				s.logger.Warnf("loop@#%d: governing IV %s overwritten by %s; redundant exit tests?",
					l.Header().Index, prev.Header().Name(), iv.Header().Name())
			}
			s.governing[l] = iv
		}
	}
	return s
}

// Variables returns every induction variable recognized in l.
func (s *Set) Variables(l *loop.Info) []*Variable { return s.ivs[l] }

// Governing returns the variable proven to control l's exit, nil if none.
func (s *Set) Governing(l *loop.Info) *Variable { return s.governing[l] }
