// Package rlsra implements the reverse linear-scan register allocator of
// spec.md §4.4: a breadth-first, block-queue scan starting at every
// return block that adopts each block's active-out set from an
// already-allocated successor, walks every tree in reverse execution
// order, and publishes an active-in set (and the alive-in set it
// implies) at block entry for predecessors to adopt in turn.
package rlsra

import "github.com/orizon-lang/treescan/internal/ir"

type register struct {
	activeVal *ir.Value
}

// RLSRA holds the mutable state of one reverse linear-scan pass.
// Construct a fresh RLSRA per allocation.
type RLSRA struct {
	registers []register

	varVals         []*ir.Value
	treeVals        []*ir.Value
	activeVals      []*ir.Value
	blocksToProcess []*ir.BasicBlock

	currentTree *ir.Tree
}

// New constructs an allocator targeting a register file of size numRegs.
func New(numRegs int) *RLSRA {
	return &RLSRA{registers: make([]register, numRegs)}
}

// Run performs the full reverse linear scan over irg.
//
// Precondition: irg.RecomputePredecessors and irg.Reindex have been run.
// Unlike LSRA, RLSRA does not require irg.RecomputeAliveSets — it derives
// each block's alive-in set itself, from which locals still have a
// recorded last use once the block's scan completes.
func (a *RLSRA) Run(irg *ir.Ir) error {
	a.varVals = make([]*ir.Value, irg.LocalVars)
	for i := range a.varVals {
		a.varVals[i] = ir.NewLocalValue(i)
	}

	a.blocksToProcess = append(a.blocksToProcess, irg.NoSuccessors()...)

	for len(a.blocksToProcess) != 0 {
		block := a.blocksToProcess[0]
		a.blocksToProcess = a.blocksToProcess[1:]

		a.resetVarValsAndRegs()

		selected := a.selectAllocatedSuccessor(block)
		a.seedLastUses(block)

		if selected != nil {
			a.adoptActiveOut(block, selected)
		} else {
			block.ActiveOut = []ir.ActiveInOut{}
		}

		if err := a.scanBlock(block); err != nil {
			return err
		}

		a.publishActiveIn(block)
		a.enqueuePredecessors(block)
	}

	return nil
}

func (a *RLSRA) selectAllocatedSuccessor(block *ir.BasicBlock) *ir.BlockEdge {
	for _, out := range block.OutgoingEdges() {
		if out.Target.ActiveIn != nil {
			return out
		}
	}

	return nil
}

// seedLastUses conservatively marks each local's last_use ahead of the
// block's own reverse tree scan: a successor whose alive-in set is not
// yet known (not yet processed by this pass) forces every local to be
// treated as used somewhere in it; a successor whose alive-in is known
// marks only its own alive-in locals.
func (a *RLSRA) seedLastUses(block *ir.BasicBlock) {
	for _, out := range block.OutgoingEdges() {
		if out.Target.AliveIn == nil {
			for _, val := range a.varVals {
				val.LastUseTree = nil
				val.LastUseBlock = out.Target
			}

			continue
		}

		for alive := range out.Target.AliveIn {
			a.varVals[alive].LastUseTree = nil
			a.varVals[alive].LastUseBlock = out.Target
		}
	}
}

func (a *RLSRA) adoptActiveOut(block *ir.BasicBlock, selected *ir.BlockEdge) {
	block.ActiveOut = selected.Target.ActiveIn

	for _, out := range block.ActiveOut {
		val, reg := out.Val, out.Reg
		val.ActiveIn = reg
		a.registers[reg].activeVal = val
		a.activeVals = append(a.activeVals, val)
	}
}

func (a *RLSRA) publishActiveIn(block *ir.BasicBlock) {
	in := make([]ir.ActiveInOut, 0, len(a.activeVals))

	for _, val := range a.activeVals {
		if !val.IsLocal() {
			panic("rlsra: tree temporary escaping a block at active-in time")
		}

		in = append(in, ir.ActiveInOut{Val: val, Reg: val.ActiveIn})
	}

	block.ActiveIn = in

	alive := make(map[int]struct{})

	for _, val := range a.varVals {
		if val.HasLastUse() {
			alive[val.LocalIndex] = struct{}{}
		}
	}

	block.AliveIn = alive
}

func (a *RLSRA) enqueuePredecessors(block *ir.BasicBlock) {
	for _, pred := range block.Predecessors {
		if pred.Source.ActiveIn == nil {
			a.blocksToProcess = append(a.blocksToProcess, pred.Source)
		}
	}
}

func (a *RLSRA) resetVarValsAndRegs() {
	if len(a.treeVals) != 0 {
		panic("rlsra: tree values still live across a block boundary")
	}

	for _, val := range a.varVals {
		if val.ActiveIn != -1 {
			a.registers[val.ActiveIn].activeVal = nil
			val.ActiveIn = -1
			a.removeActiveVal(val)
		}

		val.LastUseTree = nil
		val.LastUseBlock = nil
	}

	if len(a.activeVals) != 0 {
		panic("rlsra: active values left over after reset")
	}

	for _, r := range a.registers {
		if r.activeVal != nil {
			panic("rlsra: register file not fully cleared after reset")
		}
	}
}

func (a *RLSRA) removeActiveVal(val *ir.Value) {
	for i, v := range a.activeVals {
		if v == val {
			a.activeVals = append(a.activeVals[:i], a.activeVals[i+1:]...)
			return
		}
	}
}

func (a *RLSRA) removeTreeVal(val *ir.Value) {
	for i, v := range a.treeVals {
		if v == val {
			a.treeVals = append(a.treeVals[:i], a.treeVals[i+1:]...)
			return
		}
	}
}

func (a *RLSRA) findTreeVal(tree *ir.Tree) *ir.Value {
	for _, tv := range a.treeVals {
		if tv.TreeOf == tree {
			return tv
		}
	}

	return nil
}

func (a *RLSRA) scanBlock(block *ir.BasicBlock) error {
	for _, tree := range block.ReverseExecutionOrder() {
		a.currentTree = tree

		switch tree.Kind {
		case ir.LdLocal:
			// Folded into its parent's subtree pass via useLocal; handling
			// it again here would emit a spurious load.
			continue
		case ir.StLocal:
			if err := a.scanStLocal(tree); err != nil {
				return err
			}
		default:
			if err := a.scanDefault(tree); err != nil {
				return err
			}
		}
	}

	return nil
}

// scanStLocal implements the two StLocal cases of spec.md §4.4: a
// local-to-local transfer (source is itself an LdLocal) routes through
// useLocal and either moves or spills the destination; a computation
// source binds a fresh tree-value directly into the destination's
// register, or activates one and spills the destination into it.
func (a *RLSRA) scanStLocal(tree *ir.Tree) error {
	src := tree.Children[0]
	dst := a.varVals[tree.Local]

	if src.Kind == ir.LdLocal {
		if err := a.useLocal(src); err != nil {
			return err
		}

		srcVal := a.varVals[src.Local]

		switch {
		case dst.ActiveIn != -1:
			tree.PostMoves = append(tree.PostMoves, ir.RegMove{
				ValFrom: srcVal, RegFrom: src.Reg, ValTo: dst, RegTo: dst.ActiveIn,
			})
			a.registers[dst.ActiveIn].activeVal = nil
			a.removeActiveVal(dst)
			dst.ActiveIn = -1
		case dst.HasLastUse():
			tree.PostSpills = append(tree.PostSpills, ir.RegSpill{Val: dst, Reg: src.Reg})
		}
	} else if dst.ActiveIn != -1 {
		srcVal := ir.NewTreeValue(src, tree)
		srcVal.ActiveIn = dst.ActiveIn
		a.registers[dst.ActiveIn].activeVal = srcVal
		a.activeVals = append(a.activeVals, srcVal)
		a.treeVals = append(a.treeVals, srcVal)
		a.removeActiveVal(dst)
		dst.ActiveIn = -1
	} else {
		srcVal := ir.NewTreeValue(src, tree)
		if err := a.activate(srcVal); err != nil {
			return err
		}

		a.treeVals = append(a.treeVals, srcVal)
		tree.PostSpills = append(tree.PostSpills, ir.RegSpill{Val: dst, Reg: srcVal.ActiveIn})
	}

	dst.LastUseTree = nil
	dst.LastUseBlock = nil

	return nil
}

// scanDefault handles every tree kind other than StLocal (LdLocal never
// reaches here): it materialises this tree's producer if some
// already-processed parent registered a tree-value for it, then
// processes its children — LdLocal children through useLocal, every
// other child by registering a fresh tree-value for its own eventual
// materialisation.
func (a *RLSRA) scanDefault(tree *ir.Tree) error {
	if existing := a.findTreeVal(tree); existing != nil {
		if existing.ActiveIn != -1 {
			tree.Reg = existing.ActiveIn
			a.registers[existing.ActiveIn].activeVal = nil
			existing.ActiveIn = -1
		} else {
			if err := a.activate(existing); err != nil {
				return err
			}

			tree.Reg = existing.ActiveIn
			tree.PostSpills = append(tree.PostSpills, ir.RegSpill{Val: existing, Reg: existing.ActiveIn})
			a.registers[existing.ActiveIn].activeVal = nil
			existing.ActiveIn = -1
		}

		a.removeActiveVal(existing)
		a.removeTreeVal(existing)
	}

	for _, child := range tree.Children {
		if child.Kind == ir.LdLocal {
			if err := a.useLocal(child); err != nil {
				return err
			}

			continue
		}

		val := ir.NewTreeValue(child, tree)
		if err := a.activate(val); err != nil {
			return err
		}

		child.Reg = val.ActiveIn
		a.treeVals = append(a.treeVals, val)
	}

	return nil
}

// useLocal brings a local-variable operand into a register: activating
// it if necessary (emitting a pre-RegSpill on the consuming tree if it
// had a recorded prior use, so that the local is saved to memory before
// the consuming tree's own result can overwrite the register the two
// share) and recording this tree as its newest (nearest-forward) use.
func (a *RLSRA) useLocal(child *ir.Tree) error {
	val := a.varVals[child.Local]
	wasActive := val.ActiveIn != -1
	hadPriorUse := val.HasLastUse()

	if !wasActive {
		if err := a.activate(val); err != nil {
			return err
		}

		if hadPriorUse {
			a.currentTree.PreSpills = append(a.currentTree.PreSpills, ir.RegSpill{Val: val, Reg: val.ActiveIn})
		}
	}

	child.Reg = val.ActiveIn
	val.LastUseTree = a.currentTree
	val.LastUseBlock = nil

	return nil
}

// activate brings val into a register. If none is free, it spills (in
// reverse-scan terms: emits a post-RegRestore for) the active value with
// the furthest-forward last use among those used strictly later than
// val itself — candidates whose last use escapes into an unprocessed
// successor block are passed over in favour of one with a known tree
// position, mirroring LSRA's own preference for concrete over
// block-anchored uses.
func (a *RLSRA) activate(val *ir.Value) error {
	for i := range a.registers {
		if a.registers[i].activeVal == nil {
			val.ActiveIn = i
			a.registers[i].activeVal = val
			a.activeVals = append(a.activeVals, val)

			return nil
		}
	}

	valIdx, valConstrained := 0, false
	if val.LastUseTree != nil {
		valIdx, valConstrained = val.LastUseTree.IRIndex, true
	}

	var best *ir.Value

	for _, av := range a.activeVals {
		anchored := av.LastUseBlock != nil

		if !anchored && valConstrained && av.LastUseTree.IRIndex <= valIdx {
			continue
		}

		if best == nil {
			best = av
			continue
		}

		if anchored {
			continue
		}

		if best.LastUseBlock != nil {
			best = av
			continue
		}

		if av.LastUseTree.IRIndex > best.LastUseTree.IRIndex {
			best = av
		}
	}

	if best == nil {
		return ir.NewAllocError("no spill candidate available", map[string]any{
			"tree": a.currentTree.IRIndex,
		})
	}

	reg := best.ActiveIn
	a.spill(best)

	val.ActiveIn = reg
	a.registers[reg].activeVal = val
	a.activeVals = append(a.activeVals, val)

	return nil
}

// spill is what a forward pass would call a restore: moving in reverse,
// freeing a register here means the interpreter must load val back into
// it when running forward, so the record is a RegRestore.
func (a *RLSRA) spill(val *ir.Value) {
	a.currentTree.PostRestores = append(a.currentTree.PostRestores, ir.RegRestore{Val: val, Reg: val.ActiveIn})
	a.registers[val.ActiveIn].activeVal = nil
	val.ActiveIn = -1
	a.removeActiveVal(val)
}
