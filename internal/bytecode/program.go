// Package bytecode defines the stack-based input program that
// internal/ir's lowering pass consumes (spec.md §6.1), and a concrete,
// versioned on-disk encoding for it. The bytecode file format itself is a
// thin collaborator: this package specifies only the interface lowering
// needs and the JSON shape the CLI loads from disk.
package bytecode

import "fmt"

// InstrKind tags one stack instruction.
type InstrKind int

const (
	LdLocal InstrKind = iota
	StLocal
	Push
	Pop
	Add
	Sub
	Mul
	Div
	Eq
	Jmp
	Branch
	Ret
)

func (k InstrKind) String() string {
	switch k {
	case LdLocal:
		return "LdLocal"
	case StLocal:
		return "StLocal"
	case Push:
		return "Push"
	case Pop:
		return "Pop"
	case Add:
		return "Add"
	case Sub:
		return "Sub"
	case Mul:
		return "Mul"
	case Div:
		return "Div"
	case Eq:
		return "Eq"
	case Jmp:
		return "Jmp"
	case Branch:
		return "Branch"
	case Ret:
		return "Ret"
	default:
		return fmt.Sprintf("InstrKind(%d)", int(k))
	}
}

// ParseInstrKind resolves the textual kind name used by the JSON encoding.
func ParseInstrKind(s string) (InstrKind, bool) {
	for _, k := range []InstrKind{LdLocal, StLocal, Push, Pop, Add, Sub, Mul, Div, Eq, Jmp, Branch, Ret} {
		if k.String() == s {
			return k, true
		}
	}

	return 0, false
}

// Instruction is one stack instruction with its operand list. Jmp and
// Branch operands are absolute indices into the owning Function's
// Instructions; Branch is [trueTarget, falseTarget].
type Instruction struct {
	Kind     InstrKind
	Operands []int
}

// Function is a stack-based function: a declared local-variable count and
// an ordered instruction stream.
type Function struct {
	LocalVars    int
	Instructions []Instruction
}
