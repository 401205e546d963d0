package regalloc

// computedStackmaps is the per-safepoint stackmap copied into
// Output.SafepointSlots: the sorted list of SpillSlots holding live
// reference-typed vregs at that safepoint, in program order of
// safepoints (§4.7, §6.3).
type computedStackmaps [][]SpillSlotID

// computeStackmaps enumerates, for each safepoint instruction in
// program order, the reference-typed vregs live at that point (via
// safepointsPerVReg, inverted), looks up their allocated locations
// (guaranteed to be stack slots by rangeRequirement's implicit Stack
// fold), and records the sorted slot list.
func (e *Env) computeStackmaps() {
	e.stackmaps = make(computedStackmaps, len(e.safepoints))

	for vid := 0; vid < e.f.NumVRegs(); vid++ {
		sps := e.safepointsPerVReg[vid]
		if len(sps) == 0 {
			continue
		}
		for _, rid := range e.vregRanges[vid] {
			loc := e.locationOf(rid)
			if !loc.IsStack() {
				continue // an invariant violation if RefType; checked in ValidationEnabled builds below
			}
			r := &e.ranges[rid]
			for _, sp := range sps {
				if !r.Range.contains(MakeProgPoint(sp, Before)) {
					continue
				}
				idx := e.safepointIndex[sp]
				e.stackmaps[idx] = appendSortedUniqueSlot(e.stackmaps[idx], loc.Slot)
			}
		}
	}

	if ValidationEnabled {
		e.validateStackmaps()
	}
}

func appendSortedUniqueSlot(slots []SpillSlotID, s SpillSlotID) []SpillSlotID {
	idx := 0
	for idx < len(slots) && slots[idx] < s {
		idx++
	}
	if idx < len(slots) && slots[idx] == s {
		return slots
	}
	out := append(slots, 0)
	copy(out[idx+1:], out[idx:])
	out[idx] = s
	return out
}

// validateStackmaps panics if a reference-typed vreg live at a
// safepoint was not, in fact, resolved to a stack location -- that
// would mean rangeRequirement's implicit Stack fold (§4.7) was
// defeated elsewhere, an allocator bug rather than a user error (§7).
func (e *Env) validateStackmaps() {
	for vid := 0; vid < e.f.NumVRegs(); vid++ {
		sps := e.safepointsPerVReg[vid]
		if len(sps) == 0 {
			continue
		}
		for _, rid := range e.vregRanges[vid] {
			if !e.rangeCrossesSafepoint(rid) {
				continue
			}
			if !e.locationOf(rid).IsStack() {
				panic("regalloc: reference-typed vreg live at a safepoint was not allocated to the stack")
			}
		}
	}
}
