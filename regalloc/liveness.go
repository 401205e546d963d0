package regalloc

// computeLiveness runs the gen/kill fixed-point dataflow of §4.2:
//
//	liveout[B] = ⋃ livein[S] over successors S
//	livein[B]  = gen[B] ∪ (liveout[B] − kill[B])
//
// Iterated in reverse postorder until no change, following the
// reaching-definitions fixed-point shape read from godoctor's CFG
// dataflow pass (same IN/OUT/gen/kill recurrence, there over
// *bitset.BitSet rather than IntSet).
func (e *Env) computeLiveness() {
	f := e.f
	nb := f.NumBlocks()

	gen := make([]IntSet, nb)
	kill := make([]IntSet, nb)

	for bi := 0; bi < nb; bi++ {
		b := Block(bi)
		if e.cfg.RPONum(b) < 0 {
			continue // unreachable, per §9 this core does not attempt to repair it
		}
		g, k := NewIntSet(), NewIntSet()

		// Block params are defs at block entry: killed, never gen'd.
		for _, v := range f.BlockParams(b) {
			k.Add(int(v.ID()))
		}

		start, end := f.BlockInsns(b)
		for i := start; i < end; i++ {
			for _, op := range f.InstOperands(i) {
				id := int(op.VReg.ID())
				switch op.Kind {
				case OperandUse, OperandMod:
					if !k.Contains(id) {
						g.Add(id)
					}
				case OperandDef:
					k.Add(id)
				}
			}
		}
		gen[bi] = g
		kill[bi] = k
	}

	for bi := 0; bi < nb; bi++ {
		e.liveIn[bi] = NewIntSet()
		e.liveOut[bi] = NewIntSet()
	}

	order := make([]Block, 0, nb)
	for bi := 0; bi < nb; bi++ {
		if e.cfg.RPONum(Block(bi)) >= 0 {
			order = append(order, Block(bi))
		}
	}
	sortBlocksByRPO(order, e.cfg)

	changed := true
	for changed {
		changed = false
		for _, b := range order {
			bi := int(b)

			out := NewIntSet()
			for _, s := range f.BlockSuccs(b) {
				if e.cfg.RPONum(s) < 0 {
					continue
				}
				out.Merge(&e.liveIn[s])
			}
			outChanged := !intSetEqual(&out, &e.liveOut[bi])
			e.liveOut[bi] = out

			in := gen[bi].clone()
			// trimmed = liveOut - kill
			killSet := &kill[bi]
			trimmed := NewIntSet()
			out.Range(func(v int) {
				if !killSet.Contains(v) {
					trimmed.Add(v)
				}
			})
			in.Merge(&trimmed)

			inChanged := !intSetEqual(&in, &e.liveIn[bi])
			e.liveIn[bi] = in

			if outChanged || inChanged {
				changed = true
			}
		}
	}
}

// sortVRegIDs sorts ids in place in ascending order.
func sortVRegIDs(ids []VRegID) {
	for i := 1; i < len(ids); i++ {
		v := ids[i]
		j := i - 1
		for j >= 0 && ids[j] > v {
			ids[j+1] = ids[j]
			j--
		}
		ids[j+1] = v
	}
}

// sortBlocksByRPO sorts blocks in place by ascending RPO number.
func sortBlocksByRPO(blocks []Block, cfg *CFGInfo) {
	for i := 1; i < len(blocks); i++ {
		v := blocks[i]
		j := i - 1
		for j >= 0 && cfg.RPONum(blocks[j]) > cfg.RPONum(v) {
			blocks[j+1] = blocks[j]
			j--
		}
		blocks[j+1] = v
	}
}

func intSetEqual(a, b *IntSet) bool {
	// Compare via symmetric containment; sets here are small enough
	// (bounded by vreg count) that this is acceptable and avoids
	// depending on internal representation equality.
	equal := true
	a.Range(func(v int) {
		if !b.Contains(v) {
			equal = false
		}
	})
	if !equal {
		return false
	}
	countA, countB := 0, 0
	a.Range(func(int) { countA++ })
	b.Range(func(int) { countB++ })
	return countA == countB
}

// openRange tracks, during the backward per-block range-building walk,
// the live range currently being extended for one vreg.
type openRange struct {
	r *LiveRange
}

// buildLiveRanges walks each block back to front building LiveRanges
// from the liveness sets and operand scan (§4.2), and collects
// blockparam_outs/ins and safepoint bookkeeping alongside.
func (e *Env) buildLiveRanges() error {
	f := e.f
	nb := f.NumBlocks()

	if err := e.checkEntryLivein(); err != nil {
		return err
	}

	// Safepoints, independent of block order.
	for i := 0; i < f.NumInsts(); i++ {
		if f.IsSafepoint(Inst(i)) {
			e.safepointIndex[Inst(i)] = len(e.safepoints)
			e.safepoints = append(e.safepoints, Inst(i))
		}
	}

	for bi := nb - 1; bi >= 0; bi-- {
		b := Block(bi)
		if e.cfg.RPONum(b) < 0 {
			continue
		}
		open := make(map[VRegID]*LiveRange)

		blockExit := e.cfg.BlockExit(b)
		blockEntry := e.cfg.BlockEntry(b)

		e.liveOut[bi].Range(func(vid int) {
			v := e.vregByID(VRegID(vid))
			open[v.ID()] = &LiveRange{
				Range: CodeRange{From: blockExit, To: blockExit},
				VReg:  v,
			}
		})

		start, end := f.BlockInsns(b)
		for i := end - 1; i >= start; i-- {
			ops := f.InstOperands(i)
			if f.IsMove(i) {
				e.recordProgMove(i, ops)
			}
			if f.IsBranch(i) {
				e.recordBlockParamEdges(b, i, ops)
			}
			for slot := len(ops) - 1; slot >= 0; slot-- {
				op := ops[slot]
				point := op.point(i)
				switch op.Kind {
				case OperandDef:
					// A def with no later use still gets a minimal range
					// at its own point, so the operand is allocated.
					r, ok := open[op.VReg.ID()]
					if !ok {
						r = &LiveRange{Range: CodeRange{From: point, To: point.next()}, VReg: op.VReg}
					}
					r.Range.From = point
					e.finalizeRange(r)
					delete(open, op.VReg.ID())
				case OperandUse, OperandMod:
					// A Mod reads and rewrites the value in place, so it
					// extends the open range exactly like a use.
					r, ok := open[op.VReg.ID()]
					if !ok {
						r = &LiveRange{Range: CodeRange{From: point, To: point.next()}, VReg: op.VReg}
						open[op.VReg.ID()] = r
					}
					r.Range.From = point
					r.Uses = append(r.Uses, UseInfo{Operand: op, Inst: i, SlotInOperands: slot})
				}
			}
		}

		// Any range still open at the top of the block either flows in
		// from a predecessor (liveIn) or originates at a block
		// parameter def; both close here at the block's entry point
		// (§4.2: "Block-parameter defs open ranges starting at the
		// block entry program point"). Close in ascending VRegID order
		// so arena insertion order -- and hence initial bundle id
		// order -- stays independent of Go's randomized map iteration
		// (§5 determinism).
		remaining := make([]VRegID, 0, len(open))
		for vid := range open {
			remaining = append(remaining, vid)
		}
		sortVRegIDs(remaining)
		for _, vid := range remaining {
			r := open[vid]
			r.Range.From = blockEntry
			e.finalizeRange(r)
		}
	}

	// Sort each vreg's ranges by start (disjoint & sorted, §3).
	for v := range e.vregRanges {
		rs := e.vregRanges[v]
		sortLiveRangesByStart(e.ranges, rs)
	}

	e.computeSafepointsPerVReg()
	return nil
}

// checkEntryLivein enforces that no vreg is live into the entry block
// without ever being defined (§3 invariant 4): such a vreg has no
// origin for the value a use would observe, which ordinary def/use
// programs never produce except via a malformed Function.
func (e *Env) checkEntryLivein() error {
	entry := e.f.EntryBlock()
	var err error
	e.liveIn[entry].Range(func(vid int) {
		if err != nil {
			return
		}
		inst, block, _, isParam := e.cfg.VRegDef(VRegID(vid))
		if isParam || inst != InstInvalid || block != BlockInvalid {
			return
		}
		err = newEntryLivein(e.vregByID(VRegID(vid)))
	})
	return err
}

func (e *Env) vregByID(id VRegID) VReg {
	// Class is recovered from any operand referencing this vreg; since
	// CFGInfo.vregDefInst/vregDefBlock only store the definition site,
	// look up the class via the def operand when one exists. Entry-
	// livein vregs (live with no def) fall back to RegClassInvalid
	// detection by the caller (checked against §6.5 EntryLivein).
	inst, block, paramIdx, isParam := e.cfg.VRegDef(id)
	if isParam {
		for _, p := range e.f.BlockParams(block) {
			if p.ID() == id {
				return p
			}
		}
		_ = paramIdx
	} else if inst != InstInvalid {
		for _, op := range e.f.InstOperands(inst) {
			if op.VReg.ID() == id && (op.Kind == OperandDef || op.Kind == OperandMod) {
				return op.VReg
			}
		}
	}
	return MakeVReg(id, RegClassInvalid)
}

func (e *Env) finalizeRange(r *LiveRange) {
	r.Bundle = BundleIDInvalid
	id := LiveRangeID(len(e.ranges))
	e.ranges = append(e.ranges, *r)
	e.vregRanges[r.VReg.ID()] = append(e.vregRanges[r.VReg.ID()], id)
}

func sortLiveRangesByStart(arena []LiveRange, ids []LiveRangeID) {
	for i := 1; i < len(ids); i++ {
		v := ids[i]
		j := i - 1
		for j >= 0 && arena[ids[j]].Range.From > arena[v].Range.From {
			ids[j+1] = ids[j]
			j--
		}
		ids[j+1] = v
	}
}

func (e *Env) recordProgMove(inst Inst, ops []Operand) {
	var src, dst *Operand
	for i := range ops {
		op := &ops[i]
		if op.Constraint.Kind != ConstraintAny {
			continue
		}
		switch op.Kind {
		case OperandUse:
			if src == nil {
				src = op
			}
		case OperandDef:
			if dst == nil {
				dst = op
			}
		}
	}
	if src == nil || dst == nil {
		return
	}
	e.progMoveInsts = append(e.progMoveInsts, inst)
	// Resolved to LiveRangeIDs after ranges exist; record the Insts for
	// now and resolve lazily in mergeBundles (progMoveSrcs/Dsts are
	// populated there since range ids for this inst's operands are
	// only known once the whole backward walk finishes the block).
	e.progMoveSrcs = append(e.progMoveSrcs, LiveRangeIDInvalid)
	e.progMoveDsts = append(e.progMoveDsts, LiveRangeIDInvalid)
	e.progMoveMerged = append(e.progMoveMerged, false)
}

func (e *Env) recordBlockParamEdges(b Block, branch Inst, ops []Operand) {
	for _, s := range e.f.BlockSuccs(b) {
		params := e.f.BlockParams(s)
		if len(params) == 0 {
			continue
		}
		off := e.f.BranchBlockparamArgOffset(s, branch)
		for pi, param := range params {
			argIdx := int(off) + pi
			if argIdx >= len(ops) {
				continue
			}
			e.blockParamOuts = append(e.blockParamOuts, BlockParamOut{
				FromVReg:   ops[argIdx].VReg,
				FromBlock:  b,
				ToBlock:    s,
				ToParamIdx: int32(pi),
			})
			e.blockParamIns = append(e.blockParamIns, BlockParamIn{
				ToBlock:    s,
				ToParamIdx: int32(pi),
				FromBlock:  b,
				FromVReg:   ops[argIdx].VReg,
			})
			_ = param
		}
	}
}

func (e *Env) computeSafepointsPerVReg() {
	for vid := 0; vid < e.f.NumVRegs(); vid++ {
		v := e.vregByID(VRegID(vid))
		if !e.f.RefType(v) {
			continue
		}
		for _, rid := range e.vregRanges[vid] {
			r := &e.ranges[rid]
			for _, sp := range e.safepoints {
				p := MakeProgPoint(sp, Before)
				if r.Range.contains(p) {
					e.safepointsPerVReg[vid] = append(e.safepointsPerVReg[vid], sp)
				}
			}
		}
	}
}
