package ir

import "fmt"

// Value is the allocator's unit of register occupancy: either a local
// variable (TreeOf == nil, LocalIndex valid) or a tree temporary (TreeOf
// points at the non-statement-root tree whose result it is). Values
// compare by identity (pointer equality), never by field value — two
// distinct local-variable Values for the same index are never created
// within one allocation pass, but nothing here assumes that beyond not
// defining ==.
type Value struct {
	LocalIndex int
	TreeOf     *Tree

	// ActiveIn is the register currently holding this value, or -1 if
	// the value isn't active.
	ActiveIn int

	// LastUseTree and LastUseBlock are mutually exclusive; at most one is
	// non-nil. LastUseTree is the next tree (in the active scan direction)
	// that reads this value. LastUseBlock means the value is a local
	// still read by that successor/predecessor block after this one.
	LastUseTree  *Tree
	LastUseBlock *BasicBlock
}

// IsLocal reports whether v denotes a local variable rather than a tree
// temporary.
func (v *Value) IsLocal() bool {
	return v.TreeOf == nil
}

func (v *Value) String() string {
	if v.IsLocal() {
		return fmt.Sprintf("local %d", v.LocalIndex)
	}

	return fmt.Sprintf("tree %d", v.TreeOf.IRIndex)
}

// HasLastUse reports whether v has any recorded last use at all.
func (v *Value) HasLastUse() bool {
	return v.LastUseTree != nil || v.LastUseBlock != nil
}

// LastUseIRIndex returns the ir_idx to compare against when ranking spill
// candidates. Block-anchored last uses have no index; ok is false.
func (v *Value) LastUseIRIndex() (idx int, ok bool) {
	if v.LastUseTree != nil {
		return v.LastUseTree.IRIndex, true
	}

	return 0, false
}

// NewLocalValue constructs a fresh Value denoting local variable idx,
// inactive, with no recorded last use.
func NewLocalValue(idx int) *Value {
	return &Value{LocalIndex: idx, ActiveIn: -1}
}

// NewTreeValue constructs a fresh Value denoting the tree temporary
// produced by t, inactive.
func NewTreeValue(t *Tree, lastUse *Tree) *Value {
	return &Value{TreeOf: t, ActiveIn: -1, LastUseTree: lastUse}
}

// RegSpill directs the interpreter to store register Reg's contents into
// Val's spill slot.
type RegSpill struct {
	Val *Value
	Reg int
}

func (s RegSpill) String() string {
	return fmt.Sprintf("spill %s from r%d", s.Val, s.Reg)
}

// RegRestore directs the interpreter to load Val's spill slot into
// register Reg.
type RegRestore struct {
	Val *Value
	Reg int
}

func (r RegRestore) String() string {
	return fmt.Sprintf("restore %s into r%d", r.Val, r.Reg)
}

// RegMove directs the interpreter to copy RegFrom into RegTo, after which
// RegTo holds ValTo rather than ValFrom.
type RegMove struct {
	ValFrom *Value
	RegFrom int
	ValTo   *Value
	RegTo   int
}

func (m RegMove) String() string {
	return fmt.Sprintf("move %s (r%d) -> %s (r%d)", m.ValFrom, m.RegFrom, m.ValTo, m.RegTo)
}

// ActiveInOut serializes the cross-boundary physical mapping for one value
// at a block's entry or exit.
type ActiveInOut struct {
	Val *Value
	Reg int
}

func (a ActiveInOut) String() string {
	return fmt.Sprintf("%s -> r%d", a.Val, a.Reg)
}
