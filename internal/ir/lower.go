package ir

import (
	"fmt"

	"github.com/orizon-lang/treescan/internal/bytecode"
)

// Lower folds a stack bytecode function into a tree CFG, per spec.md §4.1.
// It maintains a growable fold stack of partially constructed trees and a
// current block; each instruction pops its arity off the fold stack and
// pushes a new tree, and at every statement boundary the fold stack must
// be empty. On success, predecessors are recomputed and trees reindexed,
// so the returned *Ir is immediately ready for liveness analysis.
func Lower(fn bytecode.Function) (*Ir, error) {
	blocks := newBlockList()
	current := blocks.first
	var stack []*Tree

	fold := func(block *BasicBlock, kind TreeKind, arity int, build func(children []*Tree) *Tree) error {
		if arity > len(stack) {
			return newLowerError("not enough stack operands", map[string]any{
				"kind": kind.String(), "arity": arity, "available": len(stack),
			})
		}

		split := len(stack) - arity
		children := append([]*Tree(nil), stack[split:]...)
		stack = stack[:split]

		t := build(children)
		t.Children = children
		t.Kind = kind
		t.Block = block
		t.Reg = -1

		for _, c := range children {
			c.Parent = t
		}

		stack = append(stack, t)

		return nil
	}

	stmtStarts := make(map[int]bool)

	closeStatement := func(startIdx int) error {
		if len(stack) != 1 {
			return newLowerError("leftover stack operands", map[string]any{
				"statement_start": startIdx, "remaining": len(stack),
			})
		}

		t := stack[0]
		stack = stack[:0]
		current.AppendStatement(startIdx, t)
		stmtStarts[startIdx] = true

		return nil
	}

	last := len(fn.Instructions) - 1
	stmtStart := 0

	// jumpTarget resolves the target of a jump at instruction i. A target
	// at or before i must start a statement: one already closed, or the
	// one still being folded.
	jumpTarget := func(target, i int) (*BasicBlock, error) {
		if target <= i && target != stmtStart && !stmtStarts[target] {
			return nil, newLowerError("jump target lands between two statements", map[string]any{"target": target})
		}

		return blocks.getOrInsertBlockAt(target)
	}

instrLoop:
	for i, ins := range fn.Instructions {
		switch ins.Kind {
		case bytecode.LdLocal:
			local := operand(ins, 0)
			if err := fold(current, LdLocal, 0, func([]*Tree) *Tree { return &Tree{Local: local} }); err != nil {
				return nil, err
			}

		case bytecode.StLocal:
			local := operand(ins, 0)
			if err := fold(current, StLocal, 1, func(c []*Tree) *Tree { return &Tree{Local: local} }); err != nil {
				return nil, err
			}

			if err := closeStatement(stmtStart); err != nil {
				return nil, err
			}

			stmtStart = i + 1

		case bytecode.Push:
			val := int64(operand(ins, 0))
			if err := fold(current, Const, 0, func([]*Tree) *Tree { return &Tree{ConstVal: val} }); err != nil {
				return nil, err
			}

		case bytecode.Pop:
			if err := fold(current, Discard, 1, func([]*Tree) *Tree { return &Tree{} }); err != nil {
				return nil, err
			}

			if err := closeStatement(stmtStart); err != nil {
				return nil, err
			}

			stmtStart = i + 1

		case bytecode.Add, bytecode.Sub, bytecode.Mul, bytecode.Div, bytecode.Eq:
			op := binOpFor(ins.Kind)
			if err := fold(current, BinOp, 2, func([]*Tree) *Tree { return &Tree{Op: op} }); err != nil {
				return nil, err
			}

		case bytecode.Jmp:
			target, err := jumpTarget(operand(ins, 0), i)
			if err != nil {
				return nil, err
			}

			edge := &BlockEdge{Target: target}
			if err := fold(current, Jmp, 0, func([]*Tree) *Tree { return &Tree{Edges: []*BlockEdge{edge}} }); err != nil {
				return nil, err
			}

			if err := closeStatement(stmtStart); err != nil {
				return nil, err
			}

			stmtStart = i + 1

			if i == last {
				break instrLoop
			}

			current, err = blocks.getOrInsertBlockAt(i + 1)
			if err != nil {
				return nil, err
			}

		case bytecode.Branch:
			trueTarget, err := jumpTarget(operand(ins, 0), i)
			if err != nil {
				return nil, err
			}

			falseTarget, err := jumpTarget(operand(ins, 1), i)
			if err != nil {
				return nil, err
			}

			trueEdge := &BlockEdge{Target: trueTarget}
			falseEdge := &BlockEdge{Target: falseTarget}

			if err := fold(current, Branch, 1, func([]*Tree) *Tree {
				return &Tree{Edges: []*BlockEdge{trueEdge, falseEdge}}
			}); err != nil {
				return nil, err
			}

			if err := closeStatement(stmtStart); err != nil {
				return nil, err
			}

			stmtStart = i + 1

			if i == last {
				break instrLoop
			}

			current, err = blocks.getOrInsertBlockAt(i + 1)
			if err != nil {
				return nil, err
			}

		case bytecode.Ret:
			if err := fold(current, Ret, 1, func([]*Tree) *Tree { return &Tree{} }); err != nil {
				return nil, err
			}

			if err := closeStatement(stmtStart); err != nil {
				return nil, err
			}

			stmtStart = i + 1

			if i == last {
				break instrLoop
			}

			var err error

			current, err = blocks.getOrInsertBlockAt(i + 1)
			if err != nil {
				return nil, err
			}

		default:
			return nil, newLowerError("unknown instruction kind", map[string]any{"kind": int(ins.Kind)})
		}

		if i == last {
			return nil, newLowerError("function does not end in a terminator instruction", map[string]any{
				"last_instruction": ins.Kind.String(),
			})
		}
	}

	result := &Ir{First: blocks.first, LocalVars: fn.LocalVars}
	result.RecomputePredecessors()
	result.Reindex()

	return result, nil
}

func operand(ins bytecode.Instruction, i int) int {
	if i >= len(ins.Operands) {
		return 0
	}

	return ins.Operands[i]
}

func binOpFor(k bytecode.InstrKind) Operator {
	switch k {
	case bytecode.Add:
		return Add
	case bytecode.Sub:
		return Sub
	case bytecode.Mul:
		return Mul
	case bytecode.Div:
		return Div
	case bytecode.Eq:
		return Eq
	default:
		panic(fmt.Sprintf("lower: %s is not a binary operator", k))
	}
}
