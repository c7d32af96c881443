package ir_test

import (
	"testing"

	"github.com/orizon-lang/treescan/internal/ir"
)

func TestNewLocalValue(t *testing.T) {
	v := ir.NewLocalValue(3)

	if !v.IsLocal() {
		t.Error("IsLocal() = false, want true")
	}

	if v.LocalIndex != 3 {
		t.Errorf("LocalIndex = %d, want 3", v.LocalIndex)
	}

	if v.HasLastUse() {
		t.Error("HasLastUse() = true on a freshly constructed value, want false")
	}
}

func TestNewTreeValue(t *testing.T) {
	tree := &ir.Tree{Kind: ir.Const, ConstVal: 7}
	parent := &ir.Tree{Kind: ir.BinOp}

	v := ir.NewTreeValue(tree, parent)

	if v.IsLocal() {
		t.Error("IsLocal() = true, want false")
	}

	if v.TreeOf != tree {
		t.Error("TreeOf does not point back at the tree it was constructed from")
	}
}

func TestRecordStringers(t *testing.T) {
	v := ir.NewLocalValue(1)

	records := []interface{ String() string }{
		ir.RegSpill{Val: v, Reg: 0},
		ir.RegRestore{Val: v, Reg: 0},
		ir.RegMove{ValFrom: v, RegFrom: 0, ValTo: v, RegTo: 1},
		ir.ActiveInOut{Val: v, Reg: 0},
	}

	for _, r := range records {
		if r.String() == "" {
			t.Errorf("%T.String() is empty", r)
		}
	}
}
