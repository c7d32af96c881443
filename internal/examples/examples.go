// Package examples builds the bundled bytecode.Function programs used by
// the CLI's -program flag and by the end-to-end scenario tests of
// spec.md §8.
package examples

import "github.com/orizon-lang/treescan/internal/bytecode"

// fixup records one forward jump operand awaiting its target label's
// resolved instruction index.
type fixup struct {
	instrIdx   int
	operandIdx int
	label      string
}

// asm is a minimal two-pass assembler: labels may be referenced before
// they are defined, resolved once the whole instruction stream is known.
type asm struct {
	localVars int
	instrs    []bytecode.Instruction
	labels    map[string]int
	fixups    []fixup
}

func newAsm(localVars int) *asm {
	return &asm{localVars: localVars, labels: make(map[string]int)}
}

func (a *asm) label(name string) {
	a.labels[name] = len(a.instrs)
}

func (a *asm) emit(kind bytecode.InstrKind, operands ...int) {
	a.instrs = append(a.instrs, bytecode.Instruction{Kind: kind, Operands: append([]int(nil), operands...)})
}

// emitJump emits kind with one placeholder operand per target label,
// patched in by build once every label has been seen.
func (a *asm) emitJump(kind bytecode.InstrKind, targets ...string) {
	idx := len(a.instrs)
	operands := make([]int, len(targets))
	a.instrs = append(a.instrs, bytecode.Instruction{Kind: kind, Operands: operands})

	for i, t := range targets {
		a.fixups = append(a.fixups, fixup{instrIdx: idx, operandIdx: i, label: t})
	}
}

func (a *asm) build() bytecode.Function {
	for _, f := range a.fixups {
		target, ok := a.labels[f.label]
		if !ok {
			panic("examples: undefined label " + f.label)
		}

		a.instrs[f.instrIdx].Operands[f.operandIdx] = target
	}

	return bytecode.Function{LocalVars: a.localVars, Instructions: a.instrs}
}

// Fibonacci builds the bundled iterative Fibonacci program (locals
// a=0, b=1, i=2, c=3): a=0; b=1; i=n; while i!=0 { c=a+b; a=b; b=c;
// i=i-1 }; return a. With n=10 it returns 55.
func Fibonacci(n int) bytecode.Function {
	a := newAsm(4)

	a.emit(bytecode.Push, 0)
	a.emit(bytecode.StLocal, 0)
	a.emit(bytecode.Push, 1)
	a.emit(bytecode.StLocal, 1)
	a.emit(bytecode.Push, n)
	a.emit(bytecode.StLocal, 2)

	a.label("head")
	a.emit(bytecode.LdLocal, 2)
	a.emit(bytecode.Push, 0)
	a.emit(bytecode.Eq)
	a.emitJump(bytecode.Branch, "exit", "body")

	a.label("body")
	a.emit(bytecode.LdLocal, 0)
	a.emit(bytecode.LdLocal, 1)
	a.emit(bytecode.Add)
	a.emit(bytecode.StLocal, 3)
	a.emit(bytecode.LdLocal, 1)
	a.emit(bytecode.StLocal, 0)
	a.emit(bytecode.LdLocal, 3)
	a.emit(bytecode.StLocal, 1)
	a.emit(bytecode.LdLocal, 2)
	a.emit(bytecode.Push, 1)
	a.emit(bytecode.Sub)
	a.emit(bytecode.StLocal, 2)
	a.emitJump(bytecode.Jmp, "head")

	a.label("exit")
	a.emit(bytecode.LdLocal, 0)
	a.emit(bytecode.Ret)

	return a.build()
}

// StraightLineSum builds ((0+0)+(0+0))+((0+0)+(0+0)) — a single block,
// no locals, no control flow — and returns 0.
func StraightLineSum() bytecode.Function {
	a := newAsm(0)

	for half := 0; half < 2; half++ {
		for pair := 0; pair < 2; pair++ {
			a.emit(bytecode.Push, 0)
			a.emit(bytecode.Push, 0)
			a.emit(bytecode.Add)
		}

		a.emit(bytecode.Add)
	}

	a.emit(bytecode.Add)
	a.emit(bytecode.Ret)

	return a.build()
}

// LocalCopyChain builds a=0; b=0; return a+a+b+b+a+b (locals a=0, b=1)
// as two blocks — an initializer falling through an unconditional Jmp
// into a second block that only reads a and b — so that the second
// block's own alive-in set is exactly {0,1}, the used-before-defined
// case liveness is meant to catch, rather than something the
// initializer's own StLocal trees would otherwise kill within a single
// block.
func LocalCopyChain() bytecode.Function {
	a := newAsm(2)

	a.emit(bytecode.Push, 0)
	a.emit(bytecode.StLocal, 0)
	a.emit(bytecode.Push, 0)
	a.emit(bytecode.StLocal, 1)
	a.emitJump(bytecode.Jmp, "ret")

	a.label("ret")
	a.emit(bytecode.LdLocal, 0)
	a.emit(bytecode.LdLocal, 0)
	a.emit(bytecode.Add)
	a.emit(bytecode.LdLocal, 1)
	a.emit(bytecode.Add)
	a.emit(bytecode.LdLocal, 1)
	a.emit(bytecode.Add)
	a.emit(bytecode.LdLocal, 0)
	a.emit(bytecode.Add)
	a.emit(bytecode.LdLocal, 1)
	a.emit(bytecode.Add)
	a.emit(bytecode.Ret)

	return a.build()
}

// BranchTaken builds a=5; if a==5 then return 1 else return 0 (local
// a=0), returning 1.
func BranchTaken() bytecode.Function {
	a := newAsm(1)

	a.emit(bytecode.Push, 5)
	a.emit(bytecode.StLocal, 0)
	a.emit(bytecode.LdLocal, 0)
	a.emit(bytecode.Push, 5)
	a.emit(bytecode.Eq)
	a.emitJump(bytecode.Branch, "then", "else")

	a.label("then")
	a.emit(bytecode.Push, 1)
	a.emit(bytecode.Ret)

	a.label("else")
	a.emit(bytecode.Push, 0)
	a.emit(bytecode.Ret)

	return a.build()
}

// LoopWithDeadStore builds a bounded version of "a=0; while 1 do a=a+1"
// (locals a=0, i=1): a=0; i=iterations; while i!=0 { a=a+1; i=i-1 };
// return a. The back edge from the loop body to its head exercises
// liveness through a back edge, and a jump into a block whose active-in
// set was already published when the allocator first reached it.
func LoopWithDeadStore(iterations int) bytecode.Function {
	a := newAsm(2)

	a.emit(bytecode.Push, 0)
	a.emit(bytecode.StLocal, 0)
	a.emit(bytecode.Push, iterations)
	a.emit(bytecode.StLocal, 1)

	a.label("head")
	a.emit(bytecode.LdLocal, 1)
	a.emit(bytecode.Push, 0)
	a.emit(bytecode.Eq)
	a.emitJump(bytecode.Branch, "exit", "body")

	a.label("body")
	a.emit(bytecode.LdLocal, 0)
	a.emit(bytecode.Push, 1)
	a.emit(bytecode.Add)
	a.emit(bytecode.StLocal, 0)
	a.emit(bytecode.LdLocal, 1)
	a.emit(bytecode.Push, 1)
	a.emit(bytecode.Sub)
	a.emit(bytecode.StLocal, 1)
	a.emitJump(bytecode.Jmp, "head")

	a.label("exit")
	a.emit(bytecode.LdLocal, 0)
	a.emit(bytecode.Ret)

	return a.build()
}

// InvalidJumpIntoMiddleOfBlock builds local 0 = 1+2, then a Jmp whose
// target lands on the Add instruction — strictly inside that statement,
// not on a statement boundary. Lowering must reject it.
func InvalidJumpIntoMiddleOfBlock() bytecode.Function {
	return bytecode.Function{
		LocalVars: 1,
		Instructions: []bytecode.Instruction{
			{Kind: bytecode.Push, Operands: []int{1}},
			{Kind: bytecode.Push, Operands: []int{2}},
			{Kind: bytecode.Add},
			{Kind: bytecode.StLocal, Operands: []int{0}},
			{Kind: bytecode.Jmp, Operands: []int{2}},
		},
	}
}
