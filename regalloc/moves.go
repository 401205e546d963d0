package regalloc

// applyAllocationsAndInsertMoves walks every instruction, resolving
// each operand to its chosen Allocation into the dense allocs array,
// then queues inserted moves wherever a vreg's location changes across
// a split point or a CFG edge (§4.6). The queued moves are resolved
// into e.edits by resolveInsertedMoves.
func (e *Env) applyAllocationsAndInsertMoves() {
	e.resolveOperandAllocations()
	e.insertIntraVRegSplitMoves()
	e.insertCrossEdgeMoves()
}

func (e *Env) resolveOperandAllocations() {
	offset := int32(0)
	for i := 0; i < e.f.NumInsts(); i++ {
		e.instAllocOffsets[i] = offset
		for slot, op := range e.f.InstOperands(Inst(i)) {
			rid := e.findRangeContainingOperand(op.VReg, Inst(i), slot)
			var loc Allocation
			if rid != LiveRangeIDInvalid {
				loc = e.locationOf(rid)
			} else {
				loc = AllocationInvalid
			}
			e.allocs = append(e.allocs, loc)
			offset++
		}
	}
	e.instAllocOffsets[e.f.NumInsts()] = offset
}

// findRangeContainingOperand locates the LiveRange of vreg v that
// recorded the operand at (inst, slot), preferring the exact use-site
// match and falling back to point containment for Def operands (which
// are not themselves recorded as Uses).
func (e *Env) findRangeContainingOperand(v VReg, inst Inst, slot int) LiveRangeID {
	for _, rid := range e.vregRanges[v.ID()] {
		r := &e.ranges[rid]
		for _, u := range r.Uses {
			if u.Inst == inst && u.SlotInOperands == slot {
				return rid
			}
		}
	}
	// Def operand: find the range beginning at this instruction's
	// resolved point.
	pB, pA := MakeProgPoint(inst, Before), MakeProgPoint(inst, After)
	for _, rid := range e.vregRanges[v.ID()] {
		from := e.ranges[rid].Range.From
		if from == pB || from == pA {
			return rid
		}
	}
	return LiveRangeIDInvalid
}

// insertIntraVRegSplitMoves inserts a move wherever a split leaves one
// vreg's range ending in one location immediately followed (in program
// order, no gap) by another range of the same vreg in a different
// location (§4.6 "Where one bundle ends and a different-location bundle
// for the same vreg begins").
func (e *Env) insertIntraVRegSplitMoves() {
	for v := 0; v < len(e.vregRanges); v++ {
		rs := e.vregRanges[v]
		for i := 0; i+1 < len(rs); i++ {
			a, b := &e.ranges[rs[i]], &e.ranges[rs[i+1]]
			if a.Range.To != b.Range.From {
				continue
			}
			locA, locB := e.locationOf(rs[i]), e.locationOf(rs[i+1])
			if locA.Equal(locB) {
				continue
			}
			e.pendingMoves = append(e.pendingMoves, Edit{
				At:   a.Range.To,
				Move: Move{From: locA, To: locB, VReg: a.VReg},
			})
		}
	}
}

// insertCrossEdgeMoves handles both ordinary cross-block liveout flow
// and blockparam flow (§4.6 "Across every CFG edge...").
func (e *Env) insertCrossEdgeMoves() {
	for b := 0; b < e.f.NumBlocks(); b++ {
		block := Block(b)
		if e.cfg.RPONum(block) < 0 {
			continue
		}
		succs := e.f.BlockSuccs(block)
		for _, s := range succs {
			e.insertStraightThroughMoves(block, s, len(succs) > 1)
		}
	}
	for _, out := range e.blockParamOuts {
		e.insertParamMove(out, len(e.f.BlockSuccs(out.FromBlock)) > 1)
	}
}

func (e *Env) insertStraightThroughMoves(from, to Block, destSide bool) {
	params := make(map[VRegID]bool)
	for _, p := range e.f.BlockParams(to) {
		params[p.ID()] = true
	}
	fromExit := e.cfg.BlockExit(from)
	toEntry := e.cfg.BlockEntry(to)

	liveIn := e.liveIn[to]
	liveIn.Range(func(vid int) {
		if params[VRegID(vid)] {
			return // handled via blockParamOuts instead
		}
		v := e.vregByID(VRegID(vid))
		srcR := e.findRangeEndingAt(v, fromExit)
		dstR := e.findRangeStartingAt(v, toEntry)
		if srcR == LiveRangeIDInvalid || dstR == LiveRangeIDInvalid {
			return
		}
		locSrc, locDst := e.locationOf(srcR), e.locationOf(dstR)
		if locSrc.Equal(locDst) {
			return
		}
		at := fromExit
		if destSide {
			at = toEntry
		}
		e.pendingMoves = append(e.pendingMoves, Edit{At: at, Move: Move{From: locSrc, To: locDst, VReg: v}})
	})
}

func (e *Env) insertParamMove(out BlockParamOut, destSide bool) {
	fromExit := e.cfg.BlockExit(out.FromBlock)
	toEntry := e.cfg.BlockEntry(out.ToBlock)

	params := e.f.BlockParams(out.ToBlock)
	if int(out.ToParamIdx) >= len(params) {
		return
	}
	toVReg := params[out.ToParamIdx]

	srcR := e.findRangeEndingAt(out.FromVReg, fromExit)
	dstR := e.findRangeStartingAt(toVReg, toEntry)
	if srcR == LiveRangeIDInvalid || dstR == LiveRangeIDInvalid {
		return
	}
	locSrc, locDst := e.locationOf(srcR), e.locationOf(dstR)
	if locSrc.Equal(locDst) {
		return
	}
	at := fromExit
	if destSide {
		at = toEntry
	}
	e.pendingMoves = append(e.pendingMoves, Edit{At: at, Move: Move{From: locSrc, To: locDst, VReg: out.FromVReg}})
}

func (e *Env) findRangeEndingAt(v VReg, p ProgPoint) LiveRangeID {
	for _, rid := range e.vregRanges[v.ID()] {
		if e.ranges[rid].Range.To == p {
			return rid
		}
	}
	return LiveRangeIDInvalid
}

func (e *Env) findRangeStartingAt(v VReg, p ProgPoint) LiveRangeID {
	for _, rid := range e.vregRanges[v.ID()] {
		if e.ranges[rid].Range.From == p {
			return rid
		}
	}
	return LiveRangeIDInvalid
}

// resolveInsertedMoves groups e.pendingMoves by program point and
// resolves each group as a parallel move (§4.6): a dependency graph
// in which a move reading a location must execute before the move that
// overwrites that location, a
// topological emission order for the acyclic part, and one scratch
// location per class to break cycles.
func (e *Env) resolveInsertedMoves() {
	groups := make(map[ProgPoint][]Move)
	var order []ProgPoint
	for _, pm := range e.pendingMoves {
		if _, ok := groups[pm.At]; !ok {
			order = append(order, pm.At)
		}
		groups[pm.At] = append(groups[pm.At], pm.Move)
	}
	sortProgPoints(order)

	for _, at := range order {
		for _, mv := range e.resolveParallelMoveGroup(groups[at]) {
			e.edits = append(e.edits, Edit{At: at, Move: mv})
		}
	}
}

// resolveParallelMoveGroup sequences one program point's simultaneous
// moves into a valid serial order, breaking cycles with the class
// scratch register/slot reserved in MachineEnv (§9 "Move resolution
// cycles").
func (e *Env) resolveParallelMoveGroup(moves []Move) []Move {
	if len(moves) <= 1 {
		return moves
	}

	// destOf[loc] = index of the move writing to loc, for locating
	// "who reads from where I'm about to write" dependencies.
	destOf := make(map[Allocation]int)
	for i, m := range moves {
		destOf[m.To] = i
	}

	emitted := make([]bool, len(moves))
	var out []Move

	var emit func(i int, visiting []bool, path []int) []int
	emit = func(i int, visiting []bool, path []int) []int {
		if emitted[i] {
			return nil
		}
		if visiting[i] {
			// Cycle detected: i is already on path from the frame that
			// set visiting[i], so trim path down to the suffix starting
			// at i rather than returning the whole (possibly
			// non-cyclic-prefixed) path.
			for idx, v := range path {
				if v == i {
					return path[idx:]
				}
			}
			return path
		}
		visiting[i] = true
		path = append(path, i)
		if dep, ok := destOf[moves[i].From]; ok && dep != i && !emitted[dep] {
			if cyc := emit(dep, visiting, path); cyc != nil {
				return cyc
			}
		}
		visiting[i] = false
		if !emitted[i] {
			emitted[i] = true
			out = append(out, moves[i])
		}
		return nil
	}

	for i := range moves {
		if emitted[i] {
			continue
		}
		visiting := make([]bool, len(moves))
		outStart := len(out)
		if cyc := emit(i, visiting, nil); cyc != nil {
			e.breakCycleAndEmit(moves, cyc, emitted, &out)
		} else {
			// emit appends in post-order: the move that overwrites a
			// source lands before the move reading that source. A
			// reader must execute before its source is clobbered, so
			// the chain this call just produced runs backwards; flip
			// it in place.
			reverseMoves(out[outStart:])
		}
	}
	return out
}

// reverseMoves reverses s in place.
func reverseMoves(s []Move) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// breakCycleAndEmit resolves a detected move cycle by copying
// cycle[0]'s source into the scratch location for its class before
// anything in the cycle can clobber it, emitting every other move in
// the cycle unmodified (their sources are all still live at this
// point), and finally completing cycle[0]'s effect by writing its
// destination from scratch instead of its original (by-now
// overwritten) source.
func (e *Env) breakCycleAndEmit(moves []Move, cycle []int, emitted []bool, out *[]Move) {
	start := cycle[0]

	class := moves[start].From.Class
	scratch := e.mach.ScratchByClass[class]
	scratchAlloc := RegAllocation(scratch)

	*out = append(*out, Move{From: moves[start].From, To: scratchAlloc, VReg: moves[start].VReg})
	for _, idx := range cycle[1:] {
		if emitted[idx] {
			continue
		}
		emitted[idx] = true
		*out = append(*out, moves[idx])
	}
	emitted[start] = true
	*out = append(*out, Move{From: scratchAlloc, To: moves[start].To, VReg: moves[start].VReg})
}
