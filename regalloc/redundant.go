package regalloc

// eliminateRedundantMoves is the final linear pass over e.edits (§4.8):
// drop `mov x, x`, then fuse reciprocal pairs at the same program point
// (`a -> b` immediately followed by `b -> a`) which together form an
// identity permutation and can both be dropped.
func (e *Env) eliminateRedundantMoves() {
	kept := e.edits[:0]
	for _, ed := range e.edits {
		if ed.Move.From.Equal(ed.Move.To) {
			continue
		}
		kept = append(kept, ed)
	}
	e.edits = kept

	out := make([]Edit, 0, len(e.edits))
	i := 0
	for i < len(e.edits) {
		if i+1 < len(e.edits) {
			a, b := e.edits[i], e.edits[i+1]
			if a.At == b.At && a.Move.From.Equal(b.Move.To) && a.Move.To.Equal(b.Move.From) {
				i += 2
				continue
			}
		}
		out = append(out, e.edits[i])
		i++
	}
	e.edits = out
}
