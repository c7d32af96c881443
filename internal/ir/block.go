package ir

import "fmt"

// Statement wraps one statement-root tree with its doubly-linked block
// neighbours. Only Tree (the statement's root) is a "statement tree"; every
// other tree reachable from it is an inner subtree.
type Statement struct {
	SourceIdx int
	Next      *Statement
	Prev      *Statement
	Tree      *Tree
}

// BlockEdge is a directed control-flow edge, owned by the terminator tree
// that creates it. Source is populated by Ir.RecomputePredecessors.
type BlockEdge struct {
	Source *BasicBlock
	Target *BasicBlock
}

func (e *BlockEdge) String() string {
	return fmt.Sprintf("src %s trgt %s", e.Source, e.Target)
}

// BasicBlock is a node in the total block ordering used as the default
// traversal order, holding a linear sequence of statements ending in a
// terminator tree.
type BasicBlock struct {
	StartIdx int
	Next     *BasicBlock
	Prev     *BasicBlock
	First    *Statement
	Last     *Statement

	// Populated by Ir.RecomputePredecessors.
	Predecessors []*BlockEdge

	// Populated by Ir.RecomputeAliveSets.
	AliveIn  map[int]struct{}
	AliveOut map[int]struct{}

	// Populated by allocation (LSRA or RLSRA). Nil means "not yet
	// allocated" — the sentinel the allocators use to decide whether a
	// block has been reached yet.
	ActiveIn  []ActiveInOut
	ActiveOut []ActiveInOut
}

func (b *BasicBlock) String() string {
	return fmt.Sprintf("blk 0x%04x", b.StartIdx)
}

// AppendStatement appends a new statement wrapping tree, starting at
// sourceIdx, to the end of b.
func (b *BasicBlock) AppendStatement(sourceIdx int, tree *Tree) *Statement {
	s := &Statement{SourceIdx: sourceIdx, Tree: tree, Prev: b.Last}
	tree.Parent = nil

	if b.Last == nil {
		b.First = s
		b.Last = s

		return s
	}

	b.Last.Next = s
	b.Last = s

	return s
}

// Terminator returns the tree of b's last statement, which by invariant is
// always Ret, Branch, or Jmp.
func (b *BasicBlock) Terminator() *Tree {
	return b.Last.Tree
}

// OutgoingEdges returns the terminator's operand edges: one for Jmp, two
// (true-branch, then false-branch) for Branch, none for Ret.
func (b *BasicBlock) OutgoingEdges() []*BlockEdge {
	return b.Terminator().Edges
}

// ExecutionOrder returns every tree in b, statements in list order, each
// statement's trees post-order.
func (b *BasicBlock) ExecutionOrder() []*Tree {
	var out []*Tree
	for s := b.First; s != nil; s = s.Next {
		out = append(out, s.Tree.ExecutionOrder()...)
	}

	return out
}

// ReverseExecutionOrder returns every tree in b in the exact reverse of
// ExecutionOrder.
func (b *BasicBlock) ReverseExecutionOrder() []*Tree {
	var out []*Tree
	for s := b.Last; s != nil; s = s.Prev {
		out = append(out, s.Tree.ReverseExecutionOrder()...)
	}

	return out
}
