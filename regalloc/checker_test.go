package regalloc

import "testing"

// checkMovesPreserveValues is a small symbolic interpreter validating
// move correctness along one concrete path through the program
// (Testable Property: every use sees the value its defining vreg last
// wrote, given the allocator's chosen Allocations and inserted Edits).
// It walks blockOrder in sequence -- callers pick the path, since a
// single token assignment cannot represent a merge point without also
// modeling the path the run actually took to reach it.
//
// phiAlias resolves a block-parameter vreg to the vreg whose value it
// carries on the chosen path (e.g. a join block's phi param aliases to
// the predecessor's outgoing vreg); callers with no block parameters
// on the path pass nil.
func checkMovesPreserveValues(t *testing.T, f *mockFunc, out *Output, blockOrder []Block, phiAlias map[VRegID]VRegID) {
	t.Helper()

	resolve := func(id VRegID) VRegID {
		if alias, ok := phiAlias[id]; ok {
			return alias
		}
		return id
	}

	loc := make(map[Allocation]VRegID)
	editIdx := 0

	applyEditsUpTo := func(p ProgPoint) {
		for editIdx < len(out.Edits) && out.Edits[editIdx].At <= p {
			e := out.Edits[editIdx]
			if v, ok := loc[e.Move.From]; ok {
				loc[e.Move.To] = v
			}
			editIdx++
		}
	}

	for _, b := range blockOrder {
		start, end := f.BlockInsns(b)
		for i := start; i < end; i++ {
			applyEditsUpTo(MakeProgPoint(i, Before))

			ops := f.InstOperands(i)
			offset := out.InstAllocOffsets[i]
			for slot, op := range ops {
				if op.Kind != OperandUse {
					continue
				}
				alloc := out.Allocs[offset+slot]
				want := resolve(op.VReg.ID())
				got, ok := loc[alloc]
				if !ok || got != want {
					t.Fatalf("inst %d: operand %d (vreg %v) reads %v at %v, want %v", i, slot, op.VReg, got, alloc, want)
				}
			}
			for slot, op := range ops {
				if op.Kind != OperandDef && op.Kind != OperandMod {
					continue
				}
				alloc := out.Allocs[offset+slot]
				loc[alloc] = resolve(op.VReg.ID())
			}

			applyEditsUpTo(MakeProgPoint(i, After))
		}
	}
}
