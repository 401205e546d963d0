package regalloc

// conflictSplitPoint returns the program point of the first
// FixedReg-constrained use in bundle id (falling back to
// bestSplitPoint when there is none), used when a Requirement fold
// yields Conflict: split so the two incompatible halves separate
// (§4.5 policy 1).
func (e *Env) conflictSplitPoint(id BundleID) ProgPoint {
	ranges := e.bundles[id].Ranges
	for _, rid := range ranges {
		r := &e.ranges[rid]
		for _, u := range r.Uses {
			if u.Operand.Constraint.Kind == ConstraintFixedReg {
				return u.Operand.point(u.Inst)
			}
		}
	}
	return e.bestSplitPoint(id)
}

// bestSplitPoint applies §4.5 policies 2 and 3: prefer a loop-depth
// transition point falling strictly inside the bundle, else the
// midpoint of the longest gap between consecutive uses.
func (e *Env) bestSplitPoint(id BundleID) ProgPoint {
	ranges := e.bundles[id].Ranges
	if len(ranges) == 0 {
		return ProgPointInvalid
	}

	lo := e.ranges[ranges[0]].Range.From
	hi := e.ranges[ranges[len(ranges)-1]].Range.To

	for _, tp := range e.cfg.loopTransitionPoints {
		if tp > lo && tp < hi {
			return tp
		}
	}

	// Collect all use points across the bundle's ranges, sorted.
	var points []ProgPoint
	for _, rid := range ranges {
		for _, u := range e.ranges[rid].Uses {
			points = append(points, u.Operand.point(u.Inst))
		}
	}
	if len(points) < 2 {
		mid := ProgPoint((int64(lo) + int64(hi)) / 2)
		if mid <= lo {
			mid = lo + 1
		}
		if mid >= hi {
			mid = hi - 1
		}
		return mid
	}
	sortProgPoints(points)

	bestGap := int64(-1)
	bestMid := points[0]
	for i := 1; i < len(points); i++ {
		gap := int64(points[i]) - int64(points[i-1])
		if gap > bestGap {
			bestGap = gap
			bestMid = ProgPoint((int64(points[i-1]) + int64(points[i])) / 2)
		}
	}
	if bestMid <= lo {
		bestMid = lo + 1
	}
	if bestMid >= hi {
		bestMid = hi - 1
	}
	return bestMid
}

func sortProgPoints(pts []ProgPoint) {
	for i := 1; i < len(pts); i++ {
		v := pts[i]
		j := i - 1
		for j >= 0 && pts[j] > v {
			pts[j+1] = pts[j]
			j--
		}
		pts[j+1] = v
	}
}

// splitAndRequeue replaces bundle id with two bundles partitioning its
// ranges (and, where a single range straddles the split point, that
// range itself) at point p, then pushes both fragments back onto the
// priority queue with freshly computed weights (§4.5). Splitting never
// duplicates a use: each use lands in exactly one fragment by comparing
// its program point to p.
func (e *Env) splitAndRequeue(id BundleID, p ProgPoint) error {
	if p == ProgPointInvalid {
		// Nothing left to split on; treat as atomic and let the caller's
		// atomic-bundle handling (spill or TooManyLiveRegs) apply.
		return e.splitFallback(id)
	}
	e.stats.Splits++

	var beforeRanges, afterRanges []LiveRangeID
	for _, rid := range e.bundles[id].Ranges {
		r := &e.ranges[rid]
		switch {
		case r.Range.To <= p:
			beforeRanges = append(beforeRanges, rid)
		case r.Range.From >= p:
			afterRanges = append(afterRanges, rid)
		default:
			b, a := e.splitRangeAt(rid, p)
			beforeRanges = append(beforeRanges, b)
			afterRanges = append(afterRanges, a)
		}
	}

	if len(beforeRanges) == 0 || len(afterRanges) == 0 {
		// The chosen point didn't actually separate anything (e.g. all
		// ranges fell on one side); fall back rather than looping
		// forever on a no-op split.
		return e.splitFallback(id)
	}

	e.bundles[id].Ranges = nil // retire the pre-split bundle

	beforeID := e.newBundleFromRanges(beforeRanges)
	afterID := e.newBundleFromRanges(afterRanges)
	for _, rid := range beforeRanges {
		e.ranges[rid].Bundle = beforeID
	}
	for _, rid := range afterRanges {
		e.ranges[rid].Bundle = afterID
	}

	e.pushBundle(beforeID, e.bundleSpillWeight(beforeID))
	e.pushBundle(afterID, e.bundleSpillWeight(afterID))
	return nil
}

// splitFallback handles a bundle that cannot be usefully split further:
// atomic bundles spill (or, for a FixedReg requirement, surface
// TooManyLiveRegs, mirrored from tryPlaceBundle's equivalent check).
func (e *Env) splitFallback(id BundleID) error {
	req := e.bundleRequirement(id)
	if req.Kind == RequirementKindFixedReg {
		return newTooManyLiveRegs("bundle cannot be split or spilled to satisfy a fixed-register constraint")
	}
	e.spillBundle(id)
	return nil
}

func (e *Env) newBundleFromRanges(ranges []LiveRangeID) BundleID {
	sortLiveRangesByStart(e.ranges, ranges)
	id := BundleID(len(e.bundles))
	e.bundles = append(e.bundles, Bundle{
		Ranges:         ranges,
		Alloc:          AllocationInvalid,
		SpillSet:       SpillSetIDInvalid,
		Hint:           PRegInvalid,
		insertionOrder: e.nextInsertionOrder,
	})
	e.nextInsertionOrder++
	return id
}

// splitRangeAt splits range rid at point p into two new ranges,
// registers both in the arena and in the owning vreg's range list (in
// place of the original), and returns their ids.
func (e *Env) splitRangeAt(rid LiveRangeID, p ProgPoint) (before, after LiveRangeID) {
	orig := e.ranges[rid]

	var beforeUses, afterUses []UseInfo
	for _, u := range orig.Uses {
		pt := u.Operand.point(u.Inst)
		if pt < p {
			beforeUses = append(beforeUses, u)
		} else {
			afterUses = append(afterUses, u)
		}
	}

	beforeID := LiveRangeID(len(e.ranges))
	e.ranges = append(e.ranges, LiveRange{
		Range: CodeRange{From: orig.Range.From, To: p},
		VReg:  orig.VReg,
		Uses:  beforeUses,
	})
	afterID := LiveRangeID(len(e.ranges))
	e.ranges = append(e.ranges, LiveRange{
		Range: CodeRange{From: p, To: orig.Range.To},
		VReg:  orig.VReg,
		Uses:  afterUses,
	})

	vregList := e.vregRanges[orig.VReg.ID()]
	out := vregList[:0]
	for _, id := range vregList {
		if id == rid {
			out = append(out, beforeID, afterID)
		} else {
			out = append(out, id)
		}
	}
	e.vregRanges[orig.VReg.ID()] = out

	return beforeID, afterID
}
