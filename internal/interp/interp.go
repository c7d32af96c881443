// Package interp implements the tree-walking interpreter of spec.md §4.5
// and §6.4: it executes an allocator-annotated Ir directly, applying each
// tree's pre- and post-allocation records around the tree's own semantic
// effect, and counts the spills/restores/moves it performs along the way
// so that allocator correctness can be checked independently of which
// allocator produced the annotations.
package interp

import "github.com/orizon-lang/treescan/internal/ir"

// Interp holds one interpreter run's mutable state: a register file and
// two spill slots (by local-variable index, by tree ir_idx), per spec's
// tagged Value.of distinction.
type Interp struct {
	irg *ir.Ir

	registers        []int64
	spilledLocalVals map[int]int64
	spilledTreeVals  map[int]int64
	currentBlock     *ir.BasicBlock

	SpillCount   int
	RestoreCount int
	MoveCount    int
}

// New constructs an interpreter with a register file of size numRegs,
// starting at irg's first block.
func New(numRegs int, irg *ir.Ir) *Interp {
	return &Interp{
		irg:              irg,
		registers:        make([]int64, numRegs),
		spilledLocalVals: make(map[int]int64),
		spilledTreeVals:  make(map[int]int64),
		currentBlock:     irg.First,
	}
}

// Run executes the program to completion and returns the value of its
// Ret statement. An allocated IR always terminates: every block ends in
// Ret, Branch, or Jmp, and the block graph has no infinite unguarded
// chain of Jmp-only blocks in any program this package is asked to run.
func (in *Interp) Run() int64 {
	for {
		for _, tree := range in.currentBlock.ExecutionOrder() {
			in.applyPre(tree)

			switch tree.Kind {
			case ir.LdLocal, ir.StLocal, ir.Discard:
				// Routed entirely through registers, moves, and spills by
				// the allocator; no runtime effect of their own.
			case ir.Const:
				in.registers[tree.Reg] = tree.ConstVal
			case ir.BinOp:
				lhs := in.registers[tree.Children[0].Reg]
				rhs := in.registers[tree.Children[1].Reg]
				in.registers[tree.Reg] = evalBinOp(tree.Op, lhs, rhs)
			case ir.Ret:
				return in.registers[tree.Children[0].Reg]
			case ir.Branch:
				if in.registers[tree.Children[0].Reg] == 1 {
					in.jump(tree.Edges[0])
				} else {
					in.jump(tree.Edges[1])
				}
			case ir.Jmp:
				in.jump(tree.Edges[0])
			}

			in.applyPost(tree)
		}
	}
}

func evalBinOp(op ir.Operator, lhs, rhs int64) int64 {
	switch op {
	case ir.Add:
		return lhs + rhs
	case ir.Sub:
		return lhs - rhs
	case ir.Mul:
		return lhs * rhs
	case ir.Div:
		return floorDiv(lhs, rhs)
	case ir.Eq:
		if lhs == rhs {
			return 1
		}

		return 0
	default:
		panic("interp: unknown operator")
	}
}

// floorDiv truncates toward negative infinity, as spec.md §6.4 requires,
// rather than toward zero as Go's / does.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}

	return q
}

// jump performs the cross-block reconciliation of spec.md §5/§6.3: a
// value leaving active-out with no matching active-in entry is spilled;
// a value entering active-in with no matching active-out entry is
// restored; a value present in both is moved directly between the two
// registers.
func (in *Interp) jump(edge *ir.BlockEdge) {
	in.currentBlock = edge.Target

	activeOut := edge.Source.ActiveOut
	activeIn := edge.Target.ActiveIn

	newRegs := append([]int64(nil), in.registers...)

	for _, out := range activeOut {
		if !hasVal(activeIn, out.Val) {
			in.spilledLocalVals[out.Val.LocalIndex] = in.registers[out.Reg]
			in.SpillCount++
		}
	}

	for _, entry := range activeIn {
		if !hasVal(activeOut, entry.Val) {
			newRegs[entry.Reg] = in.spilledLocalVals[entry.Val.LocalIndex]
			in.RestoreCount++
		}
	}

	for _, out := range activeOut {
		for _, entry := range activeIn {
			if out.Val == entry.Val {
				newRegs[entry.Reg] = in.registers[out.Reg]
				in.MoveCount++
			}
		}
	}

	in.registers = newRegs
}

func hasVal(set []ir.ActiveInOut, v *ir.Value) bool {
	for _, e := range set {
		if e.Val == v {
			return true
		}
	}

	return false
}

func (in *Interp) applyPre(tree *ir.Tree) {
	newRegs := append([]int64(nil), in.registers...)

	for _, s := range tree.PreSpills {
		in.spill(s)
	}

	for _, r := range tree.PreRestores {
		newRegs[r.Reg] = in.restore(r)
	}

	for _, m := range tree.PreMoves {
		newRegs[m.RegTo] = in.registers[m.RegFrom]
		in.MoveCount++
	}

	in.registers = newRegs
}

func (in *Interp) applyPost(tree *ir.Tree) {
	newRegs := append([]int64(nil), in.registers...)

	for _, s := range tree.PostSpills {
		in.spill(s)
	}

	for _, r := range tree.PostRestores {
		newRegs[r.Reg] = in.restore(r)
	}

	for _, m := range tree.PostMoves {
		newRegs[m.RegTo] = in.registers[m.RegFrom]
		in.MoveCount++
	}

	in.registers = newRegs
}

func (in *Interp) spill(s ir.RegSpill) {
	if s.Val.IsLocal() {
		in.spilledLocalVals[s.Val.LocalIndex] = in.registers[s.Reg]
	} else {
		in.spilledTreeVals[s.Val.TreeOf.IRIndex] = in.registers[s.Reg]
	}

	in.SpillCount++
}

func (in *Interp) restore(r ir.RegRestore) int64 {
	in.RestoreCount++

	if r.Val.IsLocal() {
		return in.spilledLocalVals[r.Val.LocalIndex]
	}

	return in.spilledTreeVals[r.Val.TreeOf.IRIndex]
}
