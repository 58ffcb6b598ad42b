// Command ivview prints the loops of a program's functions with their
// recognized induction variables, highlighting the loop-governing ones.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/nickng/stripmine/depgraph"
	"github.com/nickng/stripmine/induction"
	"github.com/nickng/stripmine/loop"
	"github.com/nickng/stripmine/pool"
	"github.com/nickng/stripmine/scev"
	"github.com/nickng/stripmine/ssa"
	"github.com/nickng/stripmine/ssa/build"
	"go.uber.org/zap"
	gossa "golang.org/x/tools/go/ssa"
)

const Usage = `ivview is a tool for printing the induction variables of Go loops.

Usage:

  ivview [options] file.go [files.go...]

Options:

`

var (
	buildlogPath string
	showIR       bool
	verbose      bool
	workers      int

	out io.Writer = os.Stdout
)

func init() {
	flag.StringVar(&buildlogPath, "log", "", "Specify build log file (use '-' for stdout)")
	flag.BoolVar(&showIR, "ir", false, "Print the lifted IR of analysed functions")
	flag.BoolVar(&verbose, "v", false, "Enable analysis diagnostics")
	flag.IntVar(&workers, "workers", 0, "Number of analysis workers (0 = one per CPU)")
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, Usage)
		flag.PrintDefaults()
		os.Exit(0)
	}

	conf := build.FromFiles(flag.Args()...).Default()
	switch buildlogPath {
	case "":
	case "-":
		conf = conf.WithBuildLog(os.Stdout, log.LstdFlags)
	default:
		f, err := os.Create(buildlogPath)
		if err != nil {
			log.Fatalf("Cannot create log %s: %v", buildlogPath, err)
		}
		defer f.Close()
		conf = conf.WithBuildLog(f, log.LstdFlags)
	}

	info, err := conf.Build()
	if err != nil {
		log.Fatal("Cannot build SSA from files:", err)
	}
	mains, err := ssa.MainPkgs(info.Prog)
	if err != nil {
		log.Fatal("Cannot find main package:", err)
	}

	logger := zap.NewNop().Sugar()
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			log.Fatal("Cannot create logger:", err)
		}
		defer l.Sync()
		logger = l.Sugar()
	}

	p := pool.New(workers)
	defer p.Close()

	var futures []*pool.Future
	var bufs []*bytes.Buffer
	for _, main := range mains {
		for _, fn := range funcs(main) {
			fn := fn
			buf := new(bytes.Buffer)
			bufs = append(bufs, buf)
			futures = append(futures, p.Submit(func() { view(fn, buf, logger) }))
		}
	}
	for i, f := range futures {
		f.Wait()
		io.Copy(out, bufs[i])
	}
}

// funcs returns pkg's function members with bodies, in name order.
func funcs(pkg *gossa.Package) []*gossa.Function {
	var names []string
	for name, mem := range pkg.Members {
		if _, ok := mem.(*gossa.Function); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	var fns []*gossa.Function
	for _, name := range names {
		if fn := pkg.Func(name); fn != nil && len(fn.Blocks) > 0 {
			fns = append(fns, fn)
		}
	}
	return fns
}

// view analyses one function and writes its loops and their IVs to w.
func view(fn *gossa.Function, w io.Writer, logger *zap.SugaredLogger) {
	f, err := ssa.Lift(fn)
	if err != nil {
		logger.Warnf("skipping %s: %v", fn, err)
		return
	}

	nest := loop.Detect(f)
	if len(nest.Loops()) == 0 && !showIR {
		return
	}
	if showIR {
		f.WriteTo(w)
	}
	graph := depgraph.Build(f)
	set := induction.BuildSet(nest, graph, scev.NewAnalysis(nest), logger)

	governing := color.New(color.FgGreen, color.Bold)
	for _, l := range nest.Loops() {
		fmt.Fprintf(w, "%s: %s\n", f.Name, l)
		gov := set.Governing(l)
		for _, iv := range set.Variables(l) {
			if iv == gov {
				governing.Fprintf(w, "\tgoverning %s\n", iv)
			} else {
				fmt.Fprintf(w, "\t          %s\n", iv)
			}
		}
	}
}
