package ir

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a human-readable rendering of ir to w: each block's index,
// predecessors, alive/active summaries, and each statement's tree in
// post-order with allocation records interleaved — per spec.md §6.5. This
// is a debugging aid, not a stable interchange format.
func (ir *Ir) Dump(w io.Writer) {
	var b strings.Builder

	for _, block := range ir.BlockExecutionOrder() {
		block.dumpInto(&b)
	}

	io.WriteString(w, b.String())
}

func (b *BasicBlock) dumpInto(out *strings.Builder) {
	preds := make([]string, len(b.Predecessors))
	for i, p := range b.Predecessors {
		preds[i] = p.String()
	}

	fmt.Fprintf(out, "\n%s - predecessors: [%s]\n", b, strings.Join(preds, ", "))

	if b.AliveIn != nil {
		fmt.Fprintf(out, "alive var in: %s\n", formatIntSet(b.AliveIn))
	}

	if b.ActiveIn != nil {
		out.WriteString("active var in:\n")

		for _, a := range b.ActiveIn {
			fmt.Fprintf(out, "%s\n", a)
		}
	}

	for s := b.First; s != nil; s = s.Next {
		fmt.Fprintf(out, "stmt 0x%04x\n", s.SourceIdx)
		s.Tree.dumpInto(out, 0)
	}

	if b.AliveOut != nil {
		fmt.Fprintf(out, "alive var out: %s\n", formatIntSet(b.AliveOut))
	}

	if b.ActiveOut != nil {
		out.WriteString("active var out:\n")

		for _, a := range b.ActiveOut {
			fmt.Fprintf(out, "%s\n", a)
		}
	}
}

func formatIntSet(s map[int]struct{}) string {
	if len(s) == 0 {
		return "{}"
	}

	keys := make([]int, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}

	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%d", k)
	}

	return "{" + strings.Join(parts, ", ") + "}"
}
