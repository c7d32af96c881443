// Package lsra implements the forward linear-scan register allocator of
// spec.md §4.3: a breadth-first, block-queue scan starting at the entry
// block that adopts each block's active-in set from an already-allocated
// predecessor, walks every tree in execution order materializing operands
// into registers, and publishes an active-out set at block exit for
// successors to adopt in turn.
package lsra

import "github.com/orizon-lang/treescan/internal/ir"

// register holds at most one active value, mirroring the allocator's own
// invariant that v.ActiveIn == r iff registers[r].activeVal == v.
type register struct {
	activeVal *ir.Value
}

// firstWrite marks, for one local variable, how that local enters the
// block currently being scanned: either already defined by a predecessor
// (block set) or first defined by a specific tree inside this block
// (tree set). At most one of the two is non-nil.
type firstWrite struct {
	block *ir.BasicBlock
	tree  *ir.Tree
}

// LSRA holds the mutable state of one forward linear-scan pass. A value
// is reused across blocks (reset between them) but not across separate
// Run calls — construct a fresh LSRA per allocation.
type LSRA struct {
	registers []register

	varVals         []*ir.Value
	varFirstWrites  map[int]firstWrite
	treeVals        []*ir.Value
	activeVals      []*ir.Value
	blocksToProcess []*ir.BasicBlock

	currentTree *ir.Tree
}

// New constructs an allocator targeting a register file of size numRegs.
func New(numRegs int) *LSRA {
	return &LSRA{
		registers:      make([]register, numRegs),
		varFirstWrites: make(map[int]firstWrite),
	}
}

// Run performs the full forward linear scan over irg, annotating every
// tree and every block boundary in place.
//
// Preconditions: irg.RecomputePredecessors, irg.Reindex, and
// irg.RecomputeAliveSets have all been run.
func (a *LSRA) Run(irg *ir.Ir) error {
	a.varVals = make([]*ir.Value, irg.LocalVars)
	for i := range a.varVals {
		a.varVals[i] = ir.NewLocalValue(i)
	}

	a.blocksToProcess = append(a.blocksToProcess, irg.First)

	for len(a.blocksToProcess) != 0 {
		block := a.blocksToProcess[0]
		a.blocksToProcess = a.blocksToProcess[1:]

		a.resetVarValsAndRegs()

		selected := a.selectAllocatedPredecessor(block)
		a.setupFirstWrites(block)
		a.setupLastUses(block)

		if selected != nil {
			a.adoptActiveIn(block, selected)
		} else {
			block.ActiveIn = []ir.ActiveInOut{}
		}

		if err := a.scanBlock(block); err != nil {
			return err
		}

		a.publishActiveOut(block)
		a.enqueueSuccessors(block)
	}

	return nil
}

// selectAllocatedPredecessor picks the first predecessor (in predecessor-
// list order) whose active-out set has already been published.
func (a *LSRA) selectAllocatedPredecessor(block *ir.BasicBlock) *ir.BlockEdge {
	for _, pred := range block.Predecessors {
		if pred.Source.ActiveOut != nil {
			return pred
		}
	}

	return nil
}

// setupFirstWrites seeds var_first_writes: every local alive-in on an
// incoming edge enters this block already defined, by that predecessor.
func (a *LSRA) setupFirstWrites(block *ir.BasicBlock) {
	for _, in := range block.Predecessors {
		for alive := range in.Source.AliveIn {
			a.varFirstWrites[alive] = firstWrite{block: in.Source}
		}
	}
}

// setupLastUses computes each local's last_use for this block: first, any
// local alive-in of an outgoing target is marked as used by that
// successor block; then a reverse scan over the block's own trees
// refines LdLocal uses to the specific consuming tree, but only where no
// later (successor) use has already been recorded.
func (a *LSRA) setupLastUses(block *ir.BasicBlock) {
	for _, out := range block.OutgoingEdges() {
		for alive := range out.Target.AliveIn {
			a.varVals[alive].LastUseTree = nil
			a.varVals[alive].LastUseBlock = out.Target
		}
	}

	for _, t := range block.ReverseExecutionOrder() {
		if t.Kind != ir.LdLocal {
			continue
		}

		val := a.varVals[t.Local]
		if !val.HasLastUse() {
			val.LastUseTree = t.Parent
		}
	}
}

func (a *LSRA) adoptActiveIn(block *ir.BasicBlock, selected *ir.BlockEdge) {
	block.ActiveIn = selected.Source.ActiveOut

	for _, in := range block.ActiveIn {
		val, reg := in.Val, in.Reg
		val.ActiveIn = reg
		a.registers[reg].activeVal = val
		a.activeVals = append(a.activeVals, val)
	}
}

func (a *LSRA) publishActiveOut(block *ir.BasicBlock) {
	out := make([]ir.ActiveInOut, 0, len(a.activeVals))

	for _, val := range a.activeVals {
		if !val.IsLocal() {
			panic("lsra: tree temporary escaping a block at active-out time")
		}

		out = append(out, ir.ActiveInOut{Val: val, Reg: val.ActiveIn})
	}

	block.ActiveOut = out
}

func (a *LSRA) enqueueSuccessors(block *ir.BasicBlock) {
	for _, out := range block.OutgoingEdges() {
		if out.Target.ActiveIn == nil {
			a.blocksToProcess = append(a.blocksToProcess, out.Target)
		}
	}
}

// resetVarValsAndRegs clears the register file and every local's
// last-use before processing a new block.
func (a *LSRA) resetVarValsAndRegs() {
	if len(a.treeVals) != 0 {
		panic("lsra: tree values still live across a block boundary")
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

	a.varFirstWrites = make(map[int]firstWrite)

	if len(a.activeVals) != 0 {
		panic("lsra: active values left over after reset")
	}

	for _, r := range a.registers {
		if r.activeVal != nil {
			panic("lsra: register file not fully cleared after reset")
		}
	}
}

func (a *LSRA) removeActiveVal(val *ir.Value) {
	for i, v := range a.activeVals {
		if v == val {
			a.activeVals = append(a.activeVals[:i], a.activeVals[i+1:]...)
			return
		}
	}
}

// getTreeVal resolves the Value that tree's result lives in: the local's
// Value for LdLocal, otherwise the tree-temporary Value previously
// registered for it.
func (a *LSRA) getTreeVal(tree *ir.Tree) *ir.Value {
	if tree.Kind == ir.LdLocal {
		return a.varVals[tree.Local]
	}

	for _, tv := range a.treeVals {
		if tv.TreeOf == tree {
			return tv
		}
	}

	panic("lsra: no tree value registered for a consumed subtree")
}

func (a *LSRA) scanBlock(block *ir.BasicBlock) error {
	for _, tree := range block.ExecutionOrder() {
		a.currentTree = tree

		for _, child := range tree.Children {
			val := a.getTreeVal(child)
			if val.ActiveIn == -1 {
				if err := a.activate(val, true, nil); err != nil {
					return err
				}
			}
		}

		a.freeActiveVals()

		switch tree.Kind {
		case ir.StLocal:
			if err := a.scanStLocal(tree); err != nil {
				return err
			}
		case ir.LdLocal:
			if err := a.scanLdLocal(tree); err != nil {
				return err
			}
		default:
			if tree.Parent != nil {
				val := ir.NewTreeValue(tree, tree.Parent)
				if err := a.activate(val, false, nil); err != nil {
					return err
				}

				tree.Reg = val.ActiveIn
				a.treeVals = append(a.treeVals, val)
			}
		}

		a.freeTreeVals()
	}

	return nil
}

func (a *LSRA) scanStLocal(tree *ir.Tree) error {
	srcVal := a.getTreeVal(tree.Children[0])
	dstVal := a.varVals[tree.Local]

	if _, ok := a.varFirstWrites[dstVal.LocalIndex]; !ok {
		a.varFirstWrites[dstVal.LocalIndex] = firstWrite{tree: tree}
	}

	srcReg := tree.Children[0].Reg

	if dstVal.ActiveIn == -1 {
		restore := a.varFirstWrites[dstVal.LocalIndex].tree != tree
		if err := a.activate(dstVal, restore, []int{srcReg}); err != nil {
			return err
		}
	}

	dstReg := dstVal.ActiveIn
	tree.Reg = dstReg

	if srcReg != dstReg {
		tree.PostMoves = append(tree.PostMoves, ir.RegMove{
			ValFrom: srcVal, RegFrom: srcReg, ValTo: dstVal, RegTo: dstReg,
		})
	}

	return nil
}

func (a *LSRA) scanLdLocal(tree *ir.Tree) error {
	val := a.varVals[tree.Local]
	if val.ActiveIn == -1 {
		if err := a.activate(val, true, nil); err != nil {
			return err
		}
	}

	tree.Reg = val.ActiveIn

	return nil
}

func (a *LSRA) freeActiveVals() {
	kept := a.activeVals[:0:0]

	for _, val := range a.activeVals {
		if val.LastUseBlock != nil {
			kept = append(kept, val)
			continue
		}

		if val.LastUseTree == nil || val.LastUseTree.IRIndex <= a.currentTree.IRIndex {
			a.registers[val.ActiveIn].activeVal = nil
			val.ActiveIn = -1
		} else {
			kept = append(kept, val)
		}
	}

	a.activeVals = kept
}

func (a *LSRA) freeTreeVals() {
	kept := a.treeVals[:0:0]

	for _, val := range a.treeVals {
		if val.LastUseTree.IRIndex > a.currentTree.IRIndex {
			kept = append(kept, val)
		}
	}

	a.treeVals = kept
}

func forbids(forbid []int, reg int) bool {
	for _, f := range forbid {
		if f == reg {
			return true
		}
	}

	return false
}

// activate brings val into a register, restoring it there (unless restore
// is false, meaning the value is defined right here rather than loaded
// from a spill slot) and recording a pre-restore on the current tree. If
// no register is free, it spills the active value whose next use is
// furthest in the future — ties broken by insertion order, block-anchored
// uses always ranked after any tree-anchored use — and steals its
// register.
func (a *LSRA) activate(val *ir.Value, restore bool, forbidRestores []int) error {
	for i := range a.registers {
		if restore && forbids(forbidRestores, i) {
			continue
		}

		if a.registers[i].activeVal == nil {
			val.ActiveIn = i
			a.registers[i].activeVal = val
			a.activeVals = append(a.activeVals, val)

			if restore {
				a.currentTree.PreRestores = append(a.currentTree.PreRestores, ir.RegRestore{Val: val, Reg: i})
			}

			return nil
		}
	}

	var best *ir.Value

	for _, av := range a.activeVals {
		if restore && forbids(forbidRestores, av.ActiveIn) {
			continue
		}

		if best == nil {
			best = av
			continue
		}

		if av.LastUseBlock != nil {
			continue
		}

		if best.LastUseBlock != nil {
			best = av
		} else if av.LastUseTree.IRIndex > best.LastUseTree.IRIndex {
			best = av
		}
	}

	if best == nil {
		return ir.NewAllocError("no spill candidate available", map[string]any{
			"tree": a.currentTree.IRIndex,
		})
	}

	a.currentTree.PreSpills = append(a.currentTree.PreSpills, ir.RegSpill{Val: best, Reg: best.ActiveIn})

	val.ActiveIn = best.ActiveIn
	a.registers[val.ActiveIn].activeVal = val
	a.activeVals = append(a.activeVals, val)

	if restore {
		a.currentTree.PreRestores = append(a.currentTree.PreRestores, ir.RegRestore{Val: val, Reg: val.ActiveIn})
	}

	best.ActiveIn = -1
	a.removeActiveVal(best)

	return nil
}
