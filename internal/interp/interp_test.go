package interp_test

import (
	"testing"

	"github.com/orizon-lang/treescan/internal/bytecode"
	"github.com/orizon-lang/treescan/internal/examples"
	"github.com/orizon-lang/treescan/internal/interp"
	"github.com/orizon-lang/treescan/internal/ir"
	"github.com/orizon-lang/treescan/internal/lsra"
	"github.com/orizon-lang/treescan/internal/rlsra"
)

func runLSRA(t *testing.T, fn bytecode.Function, registers int) *interp.Interp {
	t.Helper()

	irg, err := ir.Lower(fn)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	irg.RecomputePredecessors()
	irg.Reindex()
	irg.RecomputeAliveSets()

	if err := lsra.New(registers).Run(irg); err != nil {
		t.Fatalf("lsra.Run: %v", err)
	}

	return interp.New(registers, irg)
}

func runRLSRA(t *testing.T, fn bytecode.Function, registers int) *interp.Interp {
	t.Helper()

	irg, err := ir.Lower(fn)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	irg.RecomputePredecessors()
	irg.Reindex()

	if err := rlsra.New(registers).Run(irg); err != nil {
		t.Fatalf("rlsra.Run: %v", err)
	}

	return interp.New(registers, irg)
}

func TestScenariosUnderLSRA(t *testing.T) {
	cases := []struct {
		name      string
		fn        bytecode.Function
		registers int
		want      int64
	}{
		{"Fibonacci(10)", examples.Fibonacci(10), 4, 55},
		{"StraightLineSum", examples.StraightLineSum(), 4, 0},
		{"LocalCopyChain", examples.LocalCopyChain(), 4, 0},
		{"BranchTaken", examples.BranchTaken(), 2, 1},
		{"LoopWithDeadStore(5)", examples.LoopWithDeadStore(5), 4, 5},
	}

	for _, c := range cases {
		in := runLSRA(t, c.fn, c.registers)

		got := in.Run()
		if got != c.want {
			t.Errorf("%s under LSRA: result = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestScenariosUnderRLSRA(t *testing.T) {
	cases := []struct {
		name      string
		fn        bytecode.Function
		registers int
		want      int64
	}{
		{"Fibonacci(10)", examples.Fibonacci(10), 4, 55},
		{"StraightLineSum", examples.StraightLineSum(), 4, 0},
		{"LocalCopyChain", examples.LocalCopyChain(), 4, 0},
		{"BranchTaken", examples.BranchTaken(), 2, 1},
		{"LoopWithDeadStore(5)", examples.LoopWithDeadStore(5), 4, 5},
	}

	for _, c := range cases {
		in := runRLSRA(t, c.fn, c.registers)

		got := in.Run()
		if got != c.want {
			t.Errorf("%s under RLSRA: result = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestAllocationCorrectnessCountsAreNonNegative(t *testing.T) {
	in := runLSRA(t, examples.Fibonacci(10), 3)
	in.Run()

	if in.SpillCount < 0 || in.RestoreCount < 0 || in.MoveCount < 0 {
		t.Fatalf("negative record count: spills=%d restores=%d moves=%d", in.SpillCount, in.RestoreCount, in.MoveCount)
	}
}

func TestFloorDivisionTruncatesTowardNegativeInfinity(t *testing.T) {
	fn := bytecode.Function{
		Instructions: []bytecode.Instruction{
			{Kind: bytecode.Push, Operands: []int{-7}},
			{Kind: bytecode.Push, Operands: []int{2}},
			{Kind: bytecode.Div},
			{Kind: bytecode.Ret},
		},
	}

	in := runLSRA(t, fn, 2)

	got := in.Run()
	if got != -4 {
		t.Fatalf("(-7) / 2 = %d, want -4 (floor division)", got)
	}
}
