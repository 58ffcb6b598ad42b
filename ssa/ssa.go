// Package ssa builds Go SSA IR and lifts function bodies into the ir
// program graph analysed by this module.
//
// The SSA IR is from golang.org/x/tools/go/ssa; the 'build' subpackage
// turns source files or readers into a built program, and Lift converts one
// function at a time into the mutable representation the induction analysis
// and chunk transform work on.
package ssa

import (
	"go/token"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/tools/go/loader"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// ErrNoMainPkgs is the error returned when no main package is found in the
// program.
var ErrNoMainPkgs = errors.New("no main package found")

// Info holds the results of a SSA build for analysis.
// To populate this structure, the 'build' subpackage should be used.
type Info struct {
	FSet  *token.FileSet  // FileSet for parsed source files.
	Prog  *ssa.Program    // SSA IR for whole program.
	LProg *loader.Program // Loaded program from go/loader.

	BldLog io.Writer // Build log.
}

// MainPkgs returns the main packages in the program.
func MainPkgs(prog *ssa.Program) ([]*ssa.Package, error) {
	mains := ssautil.MainPackages(prog.AllPackages())
	if len(mains) == 0 {
		return nil, ErrNoMainPkgs
	}
	return mains, nil
}
