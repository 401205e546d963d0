package regalloc

// unionFind is a small disjoint-set over bundle ids, path-compressing
// and union-by-rank, used to coalesce move-related live ranges into
// bundles (§4.3).
type unionFind struct {
	parent []int32
	rank   []int32
}

func newUnionFind(n int) *unionFind {
	p := make([]int32, n)
	for i := range p {
		p[i] = int32(i)
	}
	return &unionFind{parent: p, rank: make([]int32, n)}
}

func (u *unionFind) find(x int32) int32 {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int32) int32 {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return ra
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
	return ra
}

// mergeBundles builds the initial one-bundle-per-range state, then
// unions move-related pairs (program moves and Reuse-constrained
// operand pairs) via union-find, rejecting any union that would
// overlap ranges, mix register classes, or conflict on fixed-register
// constraints (§4.3).
func (e *Env) mergeBundles() {
	n := len(e.ranges)
	for i := 0; i < n; i++ {
		bid := e.newBundleFromRange(LiveRangeID(i))
		e.ranges[i].Bundle = bid
	}

	uf := newUnionFind(n)

	e.resolveProgMoveRanges()

	for idx, inst := range e.progMoveInsts {
		srcR, dstR := e.progMoveSrcs[idx], e.progMoveDsts[idx]
		if srcR == LiveRangeIDInvalid || dstR == LiveRangeIDInvalid {
			continue
		}
		merged := e.tryUnion(uf, int32(srcR), int32(dstR))
		e.progMoveMerged[idx] = merged
		_ = inst
	}

	for _, pair := range e.reuseConstrainedPairs() {
		e.tryUnion(uf, int32(pair[0]), int32(pair[1]))
	}

	e.materializeUnionedBundles(uf, n)
}

// newBundleFromRange creates a singleton bundle owning range rid.
func (e *Env) newBundleFromRange(rid LiveRangeID) BundleID {
	id := BundleID(len(e.bundles))
	e.bundles = append(e.bundles, Bundle{
		Ranges:         []LiveRangeID{rid},
		Alloc:          AllocationInvalid,
		SpillSet:       SpillSetIDInvalid,
		Hint:           PRegInvalid,
		insertionOrder: e.nextInsertionOrder,
	})
	e.nextInsertionOrder++
	return id
}

// resolveProgMoveRanges fills in progMoveSrcs/Dsts (deferred during the
// backward range-building walk in liveness.go, since a move's operand
// ranges aren't both known to exist until the whole function has been
// scanned).
func (e *Env) resolveProgMoveRanges() {
	for idx, inst := range e.progMoveInsts {
		ops := e.f.InstOperands(inst)
		var srcVReg, dstVReg VReg
		var srcSlot, dstSlot = -1, -1
		for slot, op := range ops {
			if op.Constraint.Kind != ConstraintAny {
				continue
			}
			if op.Kind == OperandUse && srcSlot < 0 {
				srcVReg, srcSlot = op.VReg, slot
			}
			if op.Kind == OperandDef && dstSlot < 0 {
				dstVReg, dstSlot = op.VReg, slot
			}
		}
		if srcSlot < 0 || dstSlot < 0 {
			continue
		}
		e.progMoveSrcs[idx] = e.findRangeForUse(srcVReg, inst, srcSlot)
		e.progMoveDsts[idx] = e.findRangeForDef(dstVReg, inst)
	}
}

func (e *Env) findRangeForUse(v VReg, inst Inst, slot int) LiveRangeID {
	for _, rid := range e.vregRanges[v.ID()] {
		for _, u := range e.ranges[rid].Uses {
			if u.Inst == inst && u.SlotInOperands == slot {
				return rid
			}
		}
	}
	return LiveRangeIDInvalid
}

func (e *Env) findRangeForDef(v VReg, inst Inst) LiveRangeID {
	pt := MakeProgPoint(inst, Before)
	ptLate := MakeProgPoint(inst, After)
	for _, rid := range e.vregRanges[v.ID()] {
		from := e.ranges[rid].Range.From
		if from == pt || from == ptLate {
			return rid
		}
	}
	return LiveRangeIDInvalid
}

// reuseConstrainedPairs returns, for every Reuse(i)-constrained
// operand, the (def-range, reused-operand-range) pair of LiveRangeIDs
// to attempt to union.
func (e *Env) reuseConstrainedPairs() [][2]LiveRangeID {
	var pairs [][2]LiveRangeID
	for i := 0; i < e.f.NumInsts(); i++ {
		ops := e.f.InstOperands(Inst(i))
		for slot, op := range ops {
			if op.Constraint.Kind != ConstraintReuse {
				continue
			}
			if op.Constraint.ReuseIdx < 0 || op.Constraint.ReuseIdx >= len(ops) {
				continue
			}
			other := ops[op.Constraint.ReuseIdx]
			defR := e.findRangeForDef(op.VReg, Inst(i))
			useR := e.findRangeForUse(other.VReg, Inst(i), op.Constraint.ReuseIdx)
			if defR != LiveRangeIDInvalid && useR != LiveRangeIDInvalid {
				pairs = append(pairs, [2]LiveRangeID{defR, useR})
			}
			_ = slot
		}
	}
	return pairs
}

// tryUnion attempts to union the bundles owning ranges a and b,
// rejecting the union per §4.3's three conditions. Returns whether the
// union was accepted.
func (e *Env) tryUnion(uf *unionFind, a, b int32) bool {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return true
	}
	rangeA, rangeB := e.ranges[ra], e.ranges[rb]
	if rangeA.VReg.Class() != rangeB.VReg.Class() {
		return false
	}
	if e.bundleRangesOverlapAcrossUnion(int32(rangeA.Bundle), int32(rangeB.Bundle)) {
		return false
	}
	if conflict, _ := e.foldBundleRequirementPair(rangeA.Bundle, rangeB.Bundle); conflict {
		return false
	}
	// Until materializeUnionedBundles runs, the root's bundle carries
	// every range unioned into it so far, so later overlap and
	// requirement checks see the whole group.
	root := uf.union(ra, rb)
	other := rb
	if root == rb {
		other = ra
	}
	rootB, otherB := e.ranges[root].Bundle, e.ranges[other].Bundle
	e.bundles[rootB].Ranges = append(e.bundles[rootB].Ranges, e.bundles[otherB].Ranges...)
	return true
}

// bundleRangesOverlapAcrossUnion checks whether any range in bundle a's
// range set overlaps any range in bundle b's, which would violate a
// bundle's non-overlap invariant (§3) if unioned.
func (e *Env) bundleRangesOverlapAcrossUnion(aBundle, bBundle int32) bool {
	a := &e.bundles[aBundle]
	b := &e.bundles[bBundle]
	for _, ra := range a.Ranges {
		for _, rb := range b.Ranges {
			if e.ranges[ra].Range.overlaps(e.ranges[rb].Range) {
				return true
			}
		}
	}
	return false
}

// foldBundleRequirementPair folds the Requirement of the union of two
// bundles' operand constraints without committing it, to detect a
// Conflict (e.g. two different FixedReg pregs) before accepting the
// union (§4.3 "violate conflicting fixed-register constraints").
func (e *Env) foldBundleRequirementPair(aID, bID BundleID) (conflict bool, req Requirement) {
	req = RequirementUnknown()
	for _, rid := range e.bundles[aID].Ranges {
		req = req.fold(e.rangeRequirement(rid))
	}
	for _, rid := range e.bundles[bID].Ranges {
		req = req.fold(e.rangeRequirement(rid))
	}
	return req.Kind == RequirementConflict, req
}

// materializeUnionedBundles rewrites e.bundles so that each surviving
// union-find root owns the concatenation of its members' ranges
// (sorted by start), and updates each LiveRange.Bundle accordingly. The
// pre-union singleton bundles are left as orphaned/unused arena
// entries; nothing else ever references them once this returns.
func (e *Env) materializeUnionedBundles(uf *unionFind, n int) {
	rootRanges := make(map[int32][]LiveRangeID)
	rootOrder := make([]int32, 0, n)
	for i := 0; i < n; i++ {
		root := uf.find(int32(i))
		if _, ok := rootRanges[root]; !ok {
			rootOrder = append(rootOrder, root)
		}
		rootRanges[root] = append(rootRanges[root], LiveRangeID(i))
	}
	sortInt32sPlain(rootOrder)

	newBundles := make([]Bundle, 0, len(rootOrder))
	for _, root := range rootOrder {
		ranges := rootRanges[root]
		sortLiveRangesByStart(e.ranges, ranges)
		bid := BundleID(len(newBundles))
		newBundles = append(newBundles, Bundle{
			Ranges:         ranges,
			Alloc:          AllocationInvalid,
			SpillSet:       SpillSetIDInvalid,
			Hint:           PRegInvalid,
			insertionOrder: e.bundles[root].insertionOrder,
		})
		for _, rid := range ranges {
			e.ranges[rid].Bundle = bid
		}
	}
	e.bundles = newBundles
}

func sortInt32sPlain(s []int32) {
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && s[j] > v {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
}

// bundleSpillWeight computes §4.3's spill weight: sum over uses of
// (hint_weight * 2^min(loop_depth, cap)) divided by total range length,
// plus a flat bonus when any operand carries a fixed-register
// constraint (fixed-register bundles are expensive to evict since
// eviction can't just relocate them).
func (e *Env) bundleSpillWeight(id BundleID) float64 {
	b := &e.bundles[id]
	var useCost float64
	var totalLen int64
	fixedBonus := 0.0
	for _, rid := range b.Ranges {
		r := &e.ranges[rid]
		totalLen += r.Range.length()
		block := e.cfg.InstBlock(r.Range.From.Inst())
		depth := e.cfg.LoopDepth(block)
		if depth > e.spillWeightCap {
			depth = e.spillWeightCap
		}
		mult := float64(int64(1) << uint(depth))
		for _, u := range r.Uses {
			weight := 1.0
			useCost += weight * mult
			if u.Operand.Constraint.Kind == ConstraintFixedReg {
				fixedBonus = 1e6
			}
		}
	}
	if totalLen <= 0 {
		totalLen = 1
	}
	return useCost/float64(totalLen) + fixedBonus
}
