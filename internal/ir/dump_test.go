package ir_test

import (
	"strings"
	"testing"

	"github.com/orizon-lang/treescan/internal/examples"
	"github.com/orizon-lang/treescan/internal/ir"
	"github.com/orizon-lang/treescan/internal/lsra"
)

func TestDumpIncludesEveryBlockAndAliveActiveSections(t *testing.T) {
	irg, err := ir.Lower(examples.BranchTaken())
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	irg.RecomputeAliveSets()

	if err := lsra.New(2).Run(irg); err != nil {
		t.Fatalf("lsra.Run: %v", err)
	}

	var b strings.Builder
	irg.Dump(&b)

	out := b.String()

	for _, block := range irg.BlockExecutionOrder() {
		if !strings.Contains(out, block.String()) {
			t.Errorf("dump missing block header %s", block)
		}
	}

	if !strings.Contains(out, "alive var in:") {
		t.Error("dump missing an alive-in section")
	}

	if !strings.Contains(out, "active var in:") {
		t.Error("dump missing an active-in section")
	}
}

func TestDumpHandlesUnallocatedIr(t *testing.T) {
	irg, err := ir.Lower(examples.StraightLineSum())
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	var b strings.Builder
	irg.Dump(&b)

	if !strings.Contains(b.String(), "Ret") {
		t.Error("dump of an unallocated IR missing its Ret terminator")
	}
}
