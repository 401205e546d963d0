package regalloc

// tryAllocateSpilledBundles is the second-chance pass of §4.5: for each
// bundle marked spilled by the main loop, try to find a preg for
// *individual ranges* within it (effectively a per-use reload) where no
// conflict exists, before falling back to its spillset.
func (e *Env) tryAllocateSpilledBundles() error {
	for _, id := range e.spilledBundles {
		e.tryAllocateSpilledBundle(id)
	}
	return nil
}

func (e *Env) tryAllocateSpilledBundle(id BundleID) {
	class := e.bundleClass(id)
	candidates := e.mach.allRegs(class)

	for _, rid := range e.bundles[id].Ranges {
		rng := e.ranges[rid].Range
		for _, p := range candidates {
			conflicts := e.commitmentsFor(p).conflicts(rng)
			if len(conflicts) == 0 {
				e.commitmentsFor(p).insert(rng, id)
				e.ranges[rid].spillWeight = 1 // records that this range got a register here; no other code reads the field
				e.rangeLocations(id)[rid] = RegAllocation(p)
				break
			}
		}
	}
}

// rangeLocations lazily creates the per-range override map used when a
// spilled bundle's second-chance pass lands some of its ranges in a
// register while the rest stay on the stack (its SpillSet location).
func (e *Env) rangeLocations(id BundleID) map[LiveRangeID]Allocation {
	if e.rangeOverrides == nil {
		e.rangeOverrides = make(map[LiveRangeID]Allocation)
	}
	return e.rangeOverrides
}

// locationOf resolves the effective Allocation for live range rid: its
// bundle's committed register, a second-chance per-range register
// override, or its spillset's stack slot.
func (e *Env) locationOf(rid LiveRangeID) Allocation {
	if loc, ok := e.rangeOverrides[rid]; ok {
		return loc
	}
	b := &e.bundles[e.ranges[rid].Bundle]
	if b.Alloc.IsReg() {
		return b.Alloc
	}
	if b.SpillSet != SpillSetIDInvalid {
		slot := e.spillSets[b.SpillSet].Slot
		return StackAllocation(slot, e.bundleClass(e.ranges[rid].Bundle))
	}
	return AllocationInvalid
}

// allocateSpillslots groups bundles by SpillSet and assigns each set a
// SpillSlot from a size-bucketed free-list, reusing a slot once every
// bundle that held it is no longer live at the same time as a new
// claimant (approximated here, since this core's single-size classes
// make the bucket key just the register class, by reusing any free
// slot of the same class whose occupying sets' bundles don't overlap
// the new set's bundles).
func (e *Env) allocateSpillSlots() {
	var slotsBySize [NumRegClass][]SpillSlotID

	for ssid := range e.spillSets {
		ss := &e.spillSets[ssid]
		if len(ss.Bundles) == 0 {
			continue
		}
		class := ss.Class
		reused := SpillSlotIDInvalid
		for _, candidate := range slotsBySize[class] {
			if !e.spillSetOverlapsSlot(SpillSetID(ssid), candidate) {
				reused = candidate
				break
			}
		}
		if reused == SpillSlotIDInvalid {
			reused = SpillSlotID(len(e.spillSlots))
			e.spillSlots = append(e.spillSlots, SpillSlot{Class: class, Index: e.numSpillSlots})
			e.numSpillSlots++
			slotsBySize[class] = append(slotsBySize[class], reused)
		}
		ss.Slot = reused
		e.slotOccupants = append(e.slotOccupants, slotOccupancy{slot: reused, spillSet: SpillSetID(ssid)})
	}
}

// slotOccupancy records which SpillSet currently occupies a SpillSlot,
// so later sets considering reuse of that slot can check for overlap.
type slotOccupancy struct {
	slot     SpillSlotID
	spillSet SpillSetID
}

// spillSetOverlapsSlot reports whether any bundle in ssid overlaps, in
// live range, any bundle belonging to a SpillSet currently occupying
// slot.
func (e *Env) spillSetOverlapsSlot(ssid SpillSetID, slot SpillSlotID) bool {
	for _, occ := range e.slotOccupants {
		if occ.slot != slot {
			continue
		}
		if e.spillSetsOverlap(ssid, occ.spillSet) {
			return true
		}
	}
	return false
}

func (e *Env) spillSetsOverlap(a, b SpillSetID) bool {
	for _, ba := range e.spillSets[a].Bundles {
		for _, bb := range e.spillSets[b].Bundles {
			if e.bundlesOverlap(ba, bb) {
				return true
			}
		}
	}
	return false
}

func (e *Env) bundlesOverlap(a, b BundleID) bool {
	for _, ra := range e.bundles[a].Ranges {
		for _, rb := range e.bundles[b].Ranges {
			if e.ranges[ra].Range.overlaps(e.ranges[rb].Range) {
				return true
			}
		}
	}
	return false
}
