// Package ir defines the tree-shaped intermediate representation that the
// bytecode lowerer produces, the two linear-scan allocators annotate, and
// the interpreter executes. Trees are tagged by TreeKind rather than typed
// per-kind via inheritance: downstream code switches on Kind and reads the
// fields that kind defines, the same way lir.Insn is a single interface
// discriminated by Op() in a target-agnostic low-level IR.
package ir

import (
	"fmt"
	"strings"
)

// TreeKind tags the shape of a Tree node.
type TreeKind int

const (
	LdLocal TreeKind = iota
	StLocal
	Const
	Discard
	BinOp
	Ret
	Branch
	Jmp
)

func (k TreeKind) String() string {
	switch k {
	case LdLocal:
		return "LdLocal"
	case StLocal:
		return "StLocal"
	case Const:
		return "Const"
	case Discard:
		return "Discard"
	case BinOp:
		return "BinOp"
	case Ret:
		return "Ret"
	case Branch:
		return "Branch"
	case Jmp:
		return "Jmp"
	default:
		return fmt.Sprintf("TreeKind(%d)", int(k))
	}
}

// IsTerminator reports whether a tree of this kind must be the last
// statement tree of its block.
func (k TreeKind) IsTerminator() bool {
	return k == Ret || k == Branch || k == Jmp
}

// Operator is the arithmetic/comparison operator carried by a BinOp tree.
type Operator int

const (
	Add Operator = iota
	Sub
	Mul
	Div
	Eq
)

func (o Operator) String() string {
	switch o {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Eq:
		return "=="
	default:
		return fmt.Sprintf("Operator(%d)", int(o))
	}
}

// Tree is one node of the tree IR. Only the fields relevant to Kind are
// populated; the rest hold their zero value.
type Tree struct {
	Kind     TreeKind
	Children []*Tree

	// LdLocal, StLocal: the local-variable index.
	Local int
	// Const: the immediate value.
	ConstVal int64
	// BinOp: the operator.
	Op Operator
	// Jmp (1 entry), Branch (2 entries: true-branch first, then false-branch).
	Edges []*BlockEdge

	Parent *Tree
	Block  *BasicBlock

	// Assigned by Ir.Reindex, in execution order.
	IRIndex int

	// Assigned by allocation: the physical register holding this tree's
	// result (or, for StLocal, the chosen destination register).
	Reg int

	PreSpills    []RegSpill
	PreRestores  []RegRestore
	PreMoves     []RegMove
	PostSpills   []RegSpill
	PostRestores []RegRestore
	PostMoves    []RegMove
}

// newTree builds a tree from subtrees (which must have their Parent set by
// the caller once the tree is finalized) and wires Block back-references.
func newTree(kind TreeKind, children []*Tree, block *BasicBlock) *Tree {
	t := &Tree{Kind: kind, Children: children, Block: block, Reg: -1}
	for _, c := range children {
		c.Parent = t
	}

	return t
}

// ExecutionOrder returns t's subtrees post-order, then t itself: children
// execute strictly before their parent.
func (t *Tree) ExecutionOrder() []*Tree {
	var out []*Tree

	var walk func(*Tree)
	walk = func(n *Tree) {
		for _, c := range n.Children {
			walk(c)
		}

		out = append(out, n)
	}
	walk(t)

	return out
}

// ReverseExecutionOrder returns t, then t's subtrees in reverse child order,
// each recursively reversed — the mirror image of ExecutionOrder.
func (t *Tree) ReverseExecutionOrder() []*Tree {
	var out []*Tree

	var walk func(*Tree)
	walk = func(n *Tree) {
		out = append(out, n)

		for i := len(n.Children) - 1; i >= 0; i-- {
			walk(n.Children[i])
		}
	}
	walk(t)

	return out
}

// IsStatementTree reports whether t is the root of its statement (as
// opposed to an inner subtree consumed by a parent).
func (t *Tree) IsStatementTree() bool {
	return t.Parent == nil
}

func (t *Tree) operandsString() string {
	switch t.Kind {
	case LdLocal, StLocal:
		return fmt.Sprintf("%d", t.Local)
	case Const:
		return fmt.Sprintf("%d", t.ConstVal)
	case BinOp:
		return t.Op.String()
	case Jmp:
		return t.Edges[0].String()
	case Branch:
		return fmt.Sprintf("%s, %s", t.Edges[0], t.Edges[1])
	default:
		return ""
	}
}

// dumpInto writes t in post-order, indentation proportional to depth, with
// allocation records interleaved at their attachment points, per spec.md
// §6.5's dump format.
func (t *Tree) dumpInto(b *strings.Builder, indent int) {
	for _, c := range t.Children {
		c.dumpInto(b, indent+4)
	}

	pad := strings.Repeat(" ", indent)

	for _, s := range t.PreSpills {
		fmt.Fprintf(b, "%s%s\n", pad, s)
	}

	for _, r := range t.PreRestores {
		fmt.Fprintf(b, "%s%s\n", pad, r)
	}

	for _, m := range t.PreMoves {
		fmt.Fprintf(b, "%s%s\n", pad, m)
	}

	reg := ""
	if !t.IsStatementTree() {
		reg = fmt.Sprintf("(r%d) ", t.Reg)
	}

	fmt.Fprintf(b, "%s[%d] %s%s(%s)\n", pad, t.IRIndex, reg, t.Kind, t.operandsString())

	for _, s := range t.PostSpills {
		fmt.Fprintf(b, "%s%s\n", pad, s)
	}

	for _, r := range t.PostRestores {
		fmt.Fprintf(b, "%s%s\n", pad, r)
	}

	for _, m := range t.PostMoves {
		fmt.Fprintf(b, "%s%s\n", pad, m)
	}
}
