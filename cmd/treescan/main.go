// Command treescan lowers a stack bytecode program to a tree IR, runs
// one of the two linear-scan register allocators over it, and
// interprets the annotated result — a small end-to-end harness for the
// compiler back-end in internal/ir, internal/lsra, internal/rlsra, and
// internal/interp.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/orizon-lang/treescan/internal/bytecode"
	"github.com/orizon-lang/treescan/internal/cli"
	"github.com/orizon-lang/treescan/internal/examples"
	"github.com/orizon-lang/treescan/internal/interp"
	"github.com/orizon-lang/treescan/internal/ir"
	"github.com/orizon-lang/treescan/internal/lsra"
	"github.com/orizon-lang/treescan/internal/rlsra"
	"github.com/orizon-lang/treescan/internal/watch"
)

func main() {
	var (
		registers   int
		mode        string
		program     string
		file        string
		n           int
		dump        bool
		watchPath   string
		showVersion bool
		jsonOutput  bool
	)

	flag.IntVar(&registers, "registers", 2, "register file size")
	flag.StringVar(&mode, "mode", "lsra", "allocator: lsra or rlsra")
	flag.StringVar(&program, "program", "fibonacci", "bundled program: fibonacci, sum, localcopy, branch, deadstore")
	flag.StringVar(&file, "file", "", "load a bytecode program from this JSON file instead of -program")
	flag.IntVar(&n, "n", 10, "the Fibonacci parameter (-program fibonacci) or loop iteration count (-program deadstore)")
	flag.BoolVar(&dump, "dump", false, "print the annotated IR dump before interpreting")
	flag.StringVar(&watchPath, "watch", "", "watch this bytecode file and re-run the pipeline on every write")
	flag.BoolVar(&showVersion, "version", false, "show version information")
	flag.BoolVar(&jsonOutput, "json", false, "output -version information in JSON format")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Lower, allocate, and interpret a stack bytecode program.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s -program fibonacci -n 10 -mode lsra\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -file prog.json -mode rlsra -registers 3 -dump\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -file prog.json -watch prog.json\n", os.Args[0])
	}

	flag.Parse()

	if showVersion {
		cli.PrintVersion("treescan", jsonOutput)
		return
	}

	if watchPath != "" {
		runWatch(watchPath, mode, registers, dump)
		return
	}

	fn, err := loadProgram(program, file, n)
	if err != nil {
		cli.ExitWithError("%v", err)
	}

	if err := runOnce(fn, mode, registers, dump); err != nil {
		cli.ExitWithError("%v", err)
	}
}

func loadProgram(program, file string, n int) (bytecode.Function, error) {
	if file != "" {
		return bytecode.Load(file)
	}

	switch program {
	case "fibonacci":
		return examples.Fibonacci(n), nil
	case "sum":
		return examples.StraightLineSum(), nil
	case "localcopy":
		return examples.LocalCopyChain(), nil
	case "branch":
		return examples.BranchTaken(), nil
	case "deadstore":
		return examples.LoopWithDeadStore(n), nil
	default:
		return bytecode.Function{}, fmt.Errorf("unknown -program %q", program)
	}
}

// runOnce lowers, allocates, optionally dumps, and interprets fn, then
// prints the interpreter's return value and allocation record counts.
func runOnce(fn bytecode.Function, mode string, registers int, dump bool) error {
	irg, err := ir.Lower(fn)
	if err != nil {
		return fmt.Errorf("lower: %w", err)
	}

	if err := allocate(irg, mode, registers); err != nil {
		return fmt.Errorf("allocate: %w", err)
	}

	if dump {
		irg.Dump(os.Stdout)
	}

	in := interp.New(registers, irg)
	result := in.Run()

	fmt.Printf("result: %d\n", result)
	fmt.Printf("spills: %d, restores: %d, moves: %d\n", in.SpillCount, in.RestoreCount, in.MoveCount)

	return nil
}

func allocate(irg *ir.Ir, mode string, registers int) error {
	switch mode {
	case "lsra":
		irg.RecomputePredecessors()
		irg.Reindex()
		irg.RecomputeAliveSets()

		return lsra.New(registers).Run(irg)
	case "rlsra":
		irg.RecomputePredecessors()
		irg.Reindex()

		return rlsra.New(registers).Run(irg)
	default:
		return fmt.Errorf("unknown -mode %q, want lsra or rlsra", mode)
	}
}

// runWatch watches path and re-runs the pipeline, loading a fresh
// bytecode.Function from it, on every write. It never exits on a single
// run's failure — it logs and keeps watching, the way a file-backed dev
// loop should.
func runWatch(path, mode string, registers int, dump bool) {
	w, err := watch.New(path)
	if err != nil {
		cli.ExitWithError("watch %s: %v", path, err)
	}
	defer w.Close()

	logger := cli.NewLogger(true, false)
	logger.Info("watching %s", path)

	run := func() {
		fn, err := bytecode.Load(path)
		if err != nil {
			logger.Error("%v", err)
			return
		}

		if err := runOnce(fn, mode, registers, dump); err != nil {
			logger.Error("%v", err)
		}
	}

	run()

	for {
		select {
		case ev := <-w.Events():
			if ev.Op&watch.OpWrite == 0 {
				continue
			}

			run()
		case err := <-w.Errors():
			logger.Error("watch: %v", err)
		}
	}
}
