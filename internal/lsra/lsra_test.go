package lsra_test

import (
	"testing"

	"github.com/orizon-lang/treescan/internal/bytecode"
	"github.com/orizon-lang/treescan/internal/examples"
	"github.com/orizon-lang/treescan/internal/ir"
	"github.com/orizon-lang/treescan/internal/lsra"
)

func lowerReady(t *testing.T, fn bytecode.Function) *ir.Ir {
	t.Helper()

	irg, err := ir.Lower(fn)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	irg.RecomputePredecessors()
	irg.Reindex()
	irg.RecomputeAliveSets()

	return irg
}

func scenarios() map[string]bytecode.Function {
	return map[string]bytecode.Function{
		"Fibonacci":         examples.Fibonacci(10),
		"StraightLineSum":   examples.StraightLineSum(),
		"LocalCopyChain":    examples.LocalCopyChain(),
		"BranchTaken":       examples.BranchTaken(),
		"LoopWithDeadStore": examples.LoopWithDeadStore(5),
	}
}

func TestRunSucceedsWithAmpleRegisters(t *testing.T) {
	for name, fn := range scenarios() {
		irg := lowerReady(t, fn)

		if err := lsra.New(4).Run(irg); err != nil {
			t.Errorf("%s: Run: %v", name, err)
		}
	}
}

func TestRunPublishesActiveOutOnEveryBlock(t *testing.T) {
	irg := lowerReady(t, examples.Fibonacci(10))

	if err := lsra.New(4).Run(irg); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, b := range irg.BlockExecutionOrder() {
		if b.ActiveOut == nil {
			t.Errorf("block %s: ActiveOut not published", b)
		}

		if b.ActiveIn == nil {
			t.Errorf("block %s: ActiveIn not adopted", b)
		}
	}
}

func TestRunFailsWithTooFewRegisters(t *testing.T) {
	irg := lowerReady(t, examples.Fibonacci(10))

	err := lsra.New(1).Run(irg)
	if err == nil {
		t.Fatal("Run with 1 register: want an AllocError, got nil")
	}

	if _, ok := err.(*ir.AllocError); !ok {
		t.Fatalf("error type = %T, want *ir.AllocError", err)
	}
}

func TestRunAssignsARegisterToEveryNonStatementTree(t *testing.T) {
	irg := lowerReady(t, examples.BranchTaken())

	if err := lsra.New(2).Run(irg); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, tree := range irg.TreeExecutionOrder() {
		if tree.IsStatementTree() {
			continue
		}

		if tree.Reg < 0 {
			t.Errorf("tree %d (%s): Reg = %d, want >= 0", tree.IRIndex, tree.Kind, tree.Reg)
		}
	}
}
