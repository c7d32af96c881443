package ir

// blockList is the doubly-linked list of basic blocks lowering builds
// into, starting from a sentinel block at source index 0. It is not
// exported: once lowering finishes, callers only ever see the resulting
// Ir's First block.
type blockList struct {
	first *BasicBlock
}

func newBlockList() *blockList {
	return &blockList{first: &BasicBlock{StartIdx: 0}}
}

// getOrInsertBlockAt finds the block starting at idx, creating one if
// necessary. Three cases, per spec.md §4.1:
//   - a block already starts at idx: return it.
//   - idx lands past every existing block: append a new empty block.
//   - idx lands strictly inside an existing block, at a statement
//     boundary: split it — the prefix keeps its identity, the suffix
//     becomes a new block, and a synthetic Jmp terminator is inserted at
//     the end of the prefix targeting the suffix. Landing strictly
//     between two statements (not on a boundary) is a fatal lowering
//     error.
func (bl *blockList) getOrInsertBlockAt(idx int) (*BasicBlock, error) {
	block := bl.first
	for block.StartIdx < idx {
		if block.Next == nil || block.Next.StartIdx > idx {
			break
		}

		block = block.Next
	}

	if block.StartIdx == idx {
		return block, nil
	}

	if block.First == nil {
		// Past-the-end block with no statements yet: idx must land past it.
		return bl.insertEmptyAfter(block, idx), nil
	}

	stmt := block.First
	for stmt.SourceIdx < idx {
		if stmt.Next == nil {
			// idx lands past every statement of this block.
			return bl.insertEmptyAfter(block, idx), nil
		}

		stmt = stmt.Next
	}

	if stmt.SourceIdx > idx {
		return nil, newLowerError("jump target lands between two statements", map[string]any{
			"target": idx, "block": block.StartIdx,
		})
	}

	return bl.splitAt(block, stmt, idx), nil
}

func (bl *blockList) insertEmptyAfter(block *BasicBlock, idx int) *BasicBlock {
	n := &BasicBlock{StartIdx: idx, Next: block.Next, Prev: block}
	block.Next = n

	if n.Next != nil {
		n.Next.Prev = n
	}

	return n
}

// splitAt splits block in two at statement boundaryStmt (which starts
// exactly at idx): the suffix, starting at boundaryStmt, becomes a new
// block; the prefix retains block's identity and gets a synthetic Jmp
// terminator appended targeting the suffix.
func (bl *blockList) splitAt(block *BasicBlock, boundaryStmt *Statement, idx int) *BasicBlock {
	suffix := &BasicBlock{StartIdx: idx, Next: block.Next, Prev: block}
	block.Next = suffix

	if suffix.Next != nil {
		suffix.Next.Prev = suffix
	}

	suffix.First = boundaryStmt
	suffix.Last = block.Last

	prefixLast := boundaryStmt.Prev

	jmpTree := newTree(Jmp, nil, block)
	jmpTree.Reg = -1
	jmpTree.Edges = []*BlockEdge{{Target: suffix}}

	jmpStmt := &Statement{Tree: jmpTree, Prev: prefixLast}
	if prefixLast != nil {
		prefixLast.Next = jmpStmt
		jmpStmt.SourceIdx = prefixLast.SourceIdx
	} else {
		jmpStmt.SourceIdx = block.StartIdx
	}

	if block.Last == block.First {
		block.First = jmpStmt
	}

	block.Last = jmpStmt

	suffix.First.Prev = nil

	return suffix
}
