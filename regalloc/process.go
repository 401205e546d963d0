package regalloc

// processBundles is the core backtracking priority loop (§4.4). It
// repeats until the queue is drained: pop the highest-weight bundle,
// fold its Requirement, find (or make, via eviction/splitting) room for
// it, or give up and mark it spilled for the second-chance pass.
//
// Termination: every split strictly shortens the longest bundle
// involved and an atomic (single-range, single-use) bundle can always
// spill, so this loop always reaches a fixed point (§4.4 "Termination").
func (e *Env) processBundles() error {
	for {
		id, ok := e.popBundle()
		if !ok {
			return nil
		}
		if !e.bundleStillPending(id) {
			continue
		}
		e.stats.BundlesProcessed++

		req := e.bundleRequirement(id)
		if req.Kind == RequirementConflict {
			if err := e.splitAndRequeue(id, e.conflictSplitPoint(id)); err != nil {
				return err
			}
			continue
		}
		if req.Kind == RequirementKindStack {
			e.spillBundle(id)
			continue
		}

		if err := e.tryPlaceBundle(id, req); err != nil {
			return err
		}
	}
}

// bundleStillPending guards against processing a queue entry made stale
// by a split or eviction that replaced/removed bundle id in the
// interim; such entries are simply dropped.
func (e *Env) bundleStillPending(id BundleID) bool {
	return int(id) < len(e.bundles) && len(e.bundles[id].Ranges) > 0 && !e.bundles[id].Alloc.IsReg()
}

// tryPlaceBundle implements §4.4 steps 3-6 for a bundle whose
// Requirement folded to Any/Reg/FixedReg: enumerate candidates, commit
// if conflict-free, else evict if profitable, else split or spill.
func (e *Env) tryPlaceBundle(id BundleID, req Requirement) error {
	class := e.bundleClass(id)
	weight := e.bundleSpillWeight(id)

	candidates := e.candidatePRegs(id, class, req)

	type scored struct {
		preg       PReg
		conflicts  []BundleID
		maxWeight  float64
	}
	var best *scored

	for _, p := range candidates {
		conflicting, maxWeight := e.conflictsForBundle(id, p)
		if len(conflicting) == 0 {
			e.commitBundle(id, p)
			return nil
		}
		if maxWeight < weight {
			s := scored{preg: p, conflicts: conflicting, maxWeight: maxWeight}
			if best == nil || evictedTotal(s.conflicts, e) < evictedTotal(best.conflicts, e) {
				best = &s
			}
		}
	}

	if best != nil {
		for _, c := range best.conflicts {
			e.evictBundle(c)
			e.stats.Evictions++
			e.pushBundle(c, e.bundleSpillWeight(c))
		}
		e.commitBundle(id, best.preg)
		return nil
	}

	if e.bundleIsAtomic(id) {
		if req.Kind == RequirementKindFixedReg {
			// A single atomic use demanding a specific preg that
			// cannot be freed by eviction is genuinely impossible: it
			// cannot be split (nothing to split) and cannot spill (a
			// FixedReg constraint is incompatible with a stack
			// location), so this is the §4.4/§7 TooManyLiveRegs case.
			return newTooManyLiveRegs("fixed-register demand exceeds available registers at a single program point")
		}
		e.spillBundle(id)
		return nil
	}
	return e.splitAndRequeue(id, e.bestSplitPoint(id))
}

func evictedTotal(conflicts []BundleID, e *Env) float64 {
	var total float64
	for _, c := range conflicts {
		total += e.bundleSpillWeight(c)
	}
	return total
}

// candidatePRegs enumerates pregs in traversal order: the bundle's hint
// first (if set and of the right class), then preferred pregs starting
// at the class's round-robin offset, then the rest of preferred, then
// non-preferred (§4.4 step 3). A FixedReg requirement collapses this to
// exactly one candidate.
func (e *Env) candidatePRegs(id BundleID, class RegClass, req Requirement) []PReg {
	if req.Kind == RequirementKindFixedReg {
		return []PReg{req.PReg}
	}

	preferred := e.mach.PreferredPRegsByClass[class]
	nonPreferred := e.mach.NonPreferredPRegsByClass[class]

	out := make([]PReg, 0, len(preferred)+len(nonPreferred)+1)
	seen := make(map[PReg]bool)

	hint := e.bundles[id].Hint
	if hint.Valid() && hint.Class() == class {
		out = append(out, hint)
		seen[hint] = true
	}

	off := e.roundRobin[class]
	for i := 0; i < len(preferred); i++ {
		p := preferred[(off+i)%len(preferred)]
		if !seen[p] {
			out = append(out, p)
			seen[p] = true
		}
	}
	if len(preferred) > 0 {
		e.roundRobin[class] = (off + 1) % len(preferred)
	}

	for _, p := range nonPreferred {
		if !seen[p] {
			out = append(out, p)
			seen[p] = true
		}
	}
	return out
}

func (e *Env) bundleClass(id BundleID) RegClass {
	ranges := e.bundles[id].Ranges
	if len(ranges) == 0 {
		return RegClassInvalid
	}
	return e.ranges[ranges[0]].VReg.Class()
}

// bundleIsAtomic reports whether a bundle is already minimal: one
// range with at most one use, so it cannot usefully be split further
// and must spill instead (§4.4 step 6).
func (e *Env) bundleIsAtomic(id BundleID) bool {
	ranges := e.bundles[id].Ranges
	if len(ranges) != 1 {
		return false
	}
	return len(e.ranges[ranges[0]].Uses) <= 1
}

// spillBundle marks a bundle spilled, assigning it a SpillSet (creating
// one if this is the first bundle to need it) and queues it for the
// second-chance pass (§4.5).
func (e *Env) spillBundle(id BundleID) {
	if e.bundles[id].SpillSet == SpillSetIDInvalid {
		ssid := SpillSetID(len(e.spillSets))
		e.spillSets = append(e.spillSets, SpillSet{
			Class: e.bundleClass(id),
			Slot:  SpillSlotIDInvalid,
		})
		e.bundles[id].SpillSet = ssid
	}
	ss := &e.spillSets[e.bundles[id].SpillSet]
	ss.Bundles = append(ss.Bundles, id)
	e.bundles[id].Alloc = StackAllocation(SpillSlotIDInvalid, e.bundleClass(id))
	e.spilledBundles = append(e.spilledBundles, id)
	e.stats.Spills++
}
