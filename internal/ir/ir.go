package ir

// Ir is the root container for one lowered function: its block list (with
// a sentinel initial block at source index 0) and declared local-variable
// count.
type Ir struct {
	First     *BasicBlock
	LocalVars int

	// TreeCount is the total number of trees, assigned by Reindex.
	TreeCount int
}

// BlockExecutionOrder returns every block in forward block-list order.
func (ir *Ir) BlockExecutionOrder() []*BasicBlock {
	var out []*BasicBlock
	for b := ir.First; b != nil; b = b.Next {
		out = append(out, b)
	}

	return out
}

// TreeExecutionOrder returns every tree in the IR, blocks in forward
// order, statements in list order, each statement's trees post-order.
func (ir *Ir) TreeExecutionOrder() []*Tree {
	var out []*Tree
	for _, b := range ir.BlockExecutionOrder() {
		out = append(out, b.ExecutionOrder()...)
	}

	return out
}

// NoSuccessors returns every block whose terminator is Ret, in block
// execution order — the seed set RLSRA processes from.
func (ir *Ir) NoSuccessors() []*BasicBlock {
	var out []*BasicBlock
	for _, b := range ir.BlockExecutionOrder() {
		if b.Terminator().Kind == Ret {
			out = append(out, b)
		}
	}

	return out
}

// RecomputePredecessors clears and rebuilds every block's predecessor
// list and fills in each outgoing edge's Source. Idempotent: calling it
// twice produces the same predecessor lists, since each block's list is
// cleared before edges are appended to it again.
func (ir *Ir) RecomputePredecessors() {
	for _, b := range ir.BlockExecutionOrder() {
		b.Predecessors = nil
	}

	for _, b := range ir.BlockExecutionOrder() {
		for _, e := range b.OutgoingEdges() {
			assertf(e.Target != nil, "edge with nil target on block %s", b)
			e.Source = b
			e.Target.Predecessors = append(e.Target.Predecessors, e)
		}
	}
}

// Reindex assigns a monotonically increasing IRIndex to every tree, in
// execution order, and records the total count. Idempotent.
func (ir *Ir) Reindex() {
	index := 0

	for _, t := range ir.TreeExecutionOrder() {
		t.IRIndex = index
		index++
	}

	ir.TreeCount = index
}

func sameSet(a, b map[int]struct{}) bool {
	if len(a) != len(b) {
		return false
	}

	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}

	return true
}

func unionInto(dst map[int]struct{}, src map[int]struct{}) {
	for k := range src {
		dst[k] = struct{}{}
	}
}

// RecomputeAliveSets runs the backward fixed-point liveness analysis of
// spec §4.2: alive-in is the union of successors' alive-in, adjusted by
// this block's own LdLocal/StLocal uses scanned in reverse execution
// order, iterated to a fixed point; alive-out is then the union of
// successors' alive-in.
//
// Preconditions: RecomputePredecessors and Reindex have been run.
func (ir *Ir) RecomputeAliveSets() {
	blocks := ir.BlockExecutionOrder()

	for {
		changed := false

		for _, b := range blocks {
			prev := b.AliveIn

			alive := make(map[int]struct{})
			for _, e := range b.OutgoingEdges() {
				if e.Target.AliveIn != nil {
					unionInto(alive, e.Target.AliveIn)
				}
			}

			for _, t := range b.ReverseExecutionOrder() {
				switch t.Kind {
				case LdLocal:
					alive[t.Local] = struct{}{}
				case StLocal:
					delete(alive, t.Local)
				}
			}

			b.AliveIn = alive

			if !sameSet(prev, alive) {
				changed = true
			}
		}

		if !changed {
			break
		}
	}

	for _, b := range blocks {
		out := make(map[int]struct{})
		for _, e := range b.OutgoingEdges() {
			unionInto(out, e.Target.AliveIn)
		}

		b.AliveOut = out
	}
}
