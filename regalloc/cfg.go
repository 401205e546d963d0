package regalloc

// CFGInfo is computed once from a Function and never mutated
// thereafter (§3). It records postorder/RPO numbering, the immediate-
// dominator tree, approximate loop depth, and the intake-validated
// block/vreg bookkeeping the rest of the allocator leans on.
//
// Postorder and RPO are computed with an explicit-stack DFS rather than
// recursion, since the CFG is cyclic (§9 "Cyclic graphs"); the
// dominator tree uses the Cooper-Harvey-Kennedy iterative intersection
// algorithm over that postorder numbering (grounded on the postorder/
// dominator pairing in fkuehnel's ssa dom.go); approximate loop depth is
// computed via an outstanding-back-edge-count stack, ported from the
// original Rust allocator's CFGInfo::new (cfg.rs).
type CFGInfo struct {
	f Function

	numBlocks int

	// postorder[i] is the i-th block visited in postorder; rpoNum[b] is
	// b's index in reverse postorder (rpoNum[entry] == 0).
	postorder []Block
	rpoNum    []int32

	// idom[b] is b's immediate dominator; the entry maps to itself and
	// unreachable blocks to BlockInvalid.
	idom []Block

	// approxLoopDepth[b] is the block's estimated loop nesting depth.
	approxLoopDepth []int32
	// loopTransitionPoints holds the entry ProgPoint of every block
	// with nonzero approxLoopDepth that is strictly greater than at
	// least one reachable pred's (or that has no preds), i.e. where
	// nesting depth increases, used as split-policy inflection points
	// (§4.5 step 2).
	loopTransitionPoints []ProgPoint

	// instBlock[i] is the block owning instruction i.
	instBlock []Block
	// blockEntry[b] / blockExit[b] are the Before point of the block's
	// first instruction and the After point of its last.
	blockEntry []ProgPoint
	blockExit  []ProgPoint

	// predPos[b] records, for each of b's predecessors (via a matching
	// succIndexInPred), b's position within that predecessor's
	// BlockSuccs list; used to locate which branch-arg group in the
	// predecessor's terminator corresponds to the edge into b when a
	// predecessor has multiple successors.
	predPos [][]int

	// vregDefInst[v] is the sole instruction defining v, or
	// InstInvalid if v is defined as a block parameter instead (in
	// which case vregDefBlock/vregDefParamIdx apply).
	vregDefInst     []Inst
	vregDefBlock    []Block
	vregDefParamIdx []int32
}

// BuildCFGInfo validates f's intake invariants (§3) and computes its
// CFGInfo, or returns a RegAllocError describing the first structural
// violation found.
func BuildCFGInfo(f Function) (*CFGInfo, error) {
	c := &CFGInfo{f: f, numBlocks: f.NumBlocks()}

	if err := c.validateCriticalEdgesAndBranchArgs(); err != nil {
		return nil, err
	}
	c.computePostorderAndRPO()
	if err := c.computeDominators(); err != nil {
		return nil, err
	}
	c.computeLoopDepths()
	if err := c.computeInstBlockAndPoints(); err != nil {
		return nil, err
	}
	c.computePredPositions()
	if err := c.computeVRegDefs(); err != nil {
		return nil, err
	}
	return c, nil
}

// validateCriticalEdgesAndBranchArgs enforces §3 invariants 1 and 2: no
// critical edges, and no branch arguments beyond a multi-pred
// successor's own block parameters.
func (c *CFGInfo) validateCriticalEdgesAndBranchArgs() error {
	f := c.f
	for b := Block(0); int(b) < c.numBlocks; b++ {
		preds := f.BlockPreds(b)
		if len(preds) <= 1 {
			continue
		}
		for _, p := range preds {
			if len(f.BlockSuccs(p)) != 1 {
				return newCritEdge(p, b)
			}
		}
		// Every branch reaching a multi-pred block must carry exactly
		// the block's own parameters and nothing more: find the
		// terminating instruction of each pred and check its operand
		// count past BranchBlockparamArgOffset.
		nparams := len(f.BlockParams(b))
		for _, p := range preds {
			start, end := f.BlockInsns(p)
			term := end - 1
			if term < start || !f.IsBranch(term) {
				return newBranch(term)
			}
			off := f.BranchBlockparamArgOffset(b, term)
			ops := f.InstOperands(term)
			if int(off)+nparams != len(ops) {
				return newDisallowedBranchArg(term)
			}
		}
	}
	return nil
}

// computePostorderAndRPO performs an explicit-stack DFS from the entry
// block, numbering blocks in postorder, then derives RPO as its
// reverse. Unreachable blocks (never visited) keep rpoNum == -1 and are
// simply excluded from downstream iteration, matching the "unreachable
// blocks are rejected" stance only where code actually depends on
// reachability (liveness/build walk RPO order and so naturally skip
// them).
func (c *CFGInfo) computePostorderAndRPO() {
	f := c.f
	n := c.numBlocks
	visited := make([]bool, n)
	c.postorder = make([]Block, 0, n)

	type frame struct {
		b        Block
		succIdx  int
		succs    []Block
	}
	var stack []frame

	entry := f.EntryBlock()
	visited[entry] = true
	stack = append(stack, frame{b: entry, succs: f.BlockSuccs(entry)})

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		advanced := false
		// Successors are visited last-to-first, so in the resulting RPO
		// a block's first successor's subtree comes right after it
		// (e.g. a loop body directly follows its header, ahead of the
		// loop exit).
		for top.succIdx < len(top.succs) {
			s := top.succs[len(top.succs)-1-top.succIdx]
			top.succIdx++
			if !visited[s] {
				visited[s] = true
				stack = append(stack, frame{b: s, succs: f.BlockSuccs(s)})
				advanced = true
				break
			}
		}
		if advanced {
			continue
		}
		c.postorder = append(c.postorder, top.b)
		stack = stack[:len(stack)-1]
	}

	c.rpoNum = make([]int32, n)
	for i := range c.rpoNum {
		c.rpoNum[i] = -1
	}
	total := len(c.postorder)
	for i, b := range c.postorder {
		c.rpoNum[b] = int32(total - 1 - i)
	}
}

// computeDominators runs the Cooper-Harvey-Kennedy iterative dominator
// algorithm over RPO order, using RPO numbers to define the intersect
// "closer to root" comparison (the idiom read from fkuehnel's
// cmd/compile ssa dom.go intersect helper).
func (c *CFGInfo) computeDominators() error {
	f := c.f
	n := c.numBlocks
	entry := f.EntryBlock()

	idom := make([]Block, n)
	for i := range idom {
		idom[i] = BlockInvalid
	}
	idom[entry] = entry

	rpoBlocks := make([]Block, 0, n)
	for _, b := range c.postorder {
		rpoBlocks = append(rpoBlocks, b)
	}
	// reverse in place to get RPO order
	for i, j := 0, len(rpoBlocks)-1; i < j; i, j = i+1, j-1 {
		rpoBlocks[i], rpoBlocks[j] = rpoBlocks[j], rpoBlocks[i]
	}

	changed := true
	for changed {
		changed = false
		for _, b := range rpoBlocks {
			if b == entry {
				continue
			}
			if c.rpoNum[b] < 0 {
				continue // unreachable
			}
			var newIdom Block = BlockInvalid
			for _, p := range f.BlockPreds(b) {
				if c.rpoNum[p] < 0 || idom[p] == BlockInvalid {
					continue
				}
				if newIdom == BlockInvalid {
					newIdom = p
					continue
				}
				newIdom = intersectDominators(idom, c.rpoNum, newIdom, p)
			}
			if newIdom == BlockInvalid {
				return newBB(b)
			}
			if idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	c.idom = idom
	return nil
}

// intersectDominators walks two candidate dominators up the
// (partially-built) idom chain until they meet, comparing positions via
// RPO numbering (a block with a lower RPO number is "closer to the
// root" in CHK's finger algorithm, so the finger with the higher
// number is the one that walks up).
func intersectDominators(idom []Block, rpoNum []int32, a, b Block) Block {
	for a != b {
		for rpoNum[a] > rpoNum[b] {
			a = idom[a]
		}
		for rpoNum[b] > rpoNum[a] {
			b = idom[b]
		}
	}
	return a
}

// dominates reports whether a dominates b, in O(depth) by walking b's
// idom chain.
func (c *CFGInfo) dominates(a, b Block) bool {
	if a == b {
		return true
	}
	for b != c.f.EntryBlock() {
		b = c.idom[b]
		if b == a {
			return true
		}
		if b == BlockInvalid {
			return false
		}
	}
	return false
}

// computeLoopDepths computes approximate loop depth by counting
// back-edges (successor whose RPO number is <= the source's) entering
// and leaving each block in RPO order, maintaining a stack of
// outstanding back-edge counts; ported directly from the original
// allocator's approx_loop_depth computation (cfg.rs).
func (c *CFGInfo) computeLoopDepths() {
	f := c.f
	n := c.numBlocks

	backedgeIn := make([]int32, n)
	backedgeOut := make([]int32, n)
	for _, b := range c.postorder {
		for _, s := range f.BlockSuccs(b) {
			if c.rpoNum[s] < 0 || c.rpoNum[b] < 0 {
				continue
			}
			if c.rpoNum[s] <= c.rpoNum[b] {
				backedgeIn[s]++
				backedgeOut[b]++
			}
		}
	}

	c.approxLoopDepth = make([]int32, n)
	var backedgeStack []int32
	curDepth := int32(0)

	reachable := len(c.postorder)
	rpoOrder := make([]Block, reachable)
	for b := 0; b < n; b++ {
		if c.rpoNum[b] >= 0 {
			rpoOrder[c.rpoNum[b]] = Block(b)
		}
	}

	for i := 0; i < reachable; i++ {
		b := rpoOrder[i]
		if backedgeIn[b] > 0 {
			curDepth++
			backedgeStack = append(backedgeStack, backedgeIn[b])
		}
		c.approxLoopDepth[b] = curDepth

		for len(backedgeStack) > 0 && backedgeOut[b] > 0 {
			backedgeOut[b]--
			top := len(backedgeStack) - 1
			backedgeStack[top]--
			if backedgeStack[top] == 0 {
				curDepth--
				backedgeStack = backedgeStack[:top]
			}
		}
	}

	// loop transition points: block entries where depth strictly
	// exceeds at least one reachable predecessor's depth (a loop
	// header entered from outside the loop).
	for b := 0; b < n; b++ {
		if c.rpoNum[b] < 0 {
			continue
		}
		preds := f.BlockPreds(Block(b))
		isTransition := len(preds) == 0
		for _, p := range preds {
			if c.rpoNum[p] >= 0 && c.approxLoopDepth[p] < c.approxLoopDepth[b] {
				isTransition = true
			}
		}
		if isTransition && c.approxLoopDepth[b] > 0 {
			c.loopTransitionPoints = append(c.loopTransitionPoints, c.blockEntryFallback(Block(b)))
		}
	}
}

// blockEntryFallback computes a block's entry ProgPoint directly from
// Function, for use before computeInstBlockAndPoints has populated
// blockEntry (loop-depth runs before that pass).
func (c *CFGInfo) blockEntryFallback(b Block) ProgPoint {
	start, _ := c.f.BlockInsns(b)
	return MakeProgPoint(start, Before)
}

// computeInstBlockAndPoints records each instruction's owning block and
// each block's entry/exit program points.
func (c *CFGInfo) computeInstBlockAndPoints() error {
	f := c.f
	c.instBlock = make([]Block, f.NumInsts())
	for i := range c.instBlock {
		c.instBlock[i] = BlockInvalid
	}
	c.blockEntry = make([]ProgPoint, c.numBlocks)
	c.blockExit = make([]ProgPoint, c.numBlocks)

	for b := Block(0); int(b) < c.numBlocks; b++ {
		start, end := f.BlockInsns(b)
		if end <= start {
			return newBB(b)
		}
		for i := start; i < end; i++ {
			c.instBlock[i] = b
		}
		c.blockEntry[b] = MakeProgPoint(start, Before)
		c.blockExit[b] = MakeProgPoint(end-1, After)
	}
	return nil
}

// computePredPositions records, for each block, the successor index at
// which each of its predecessors reaches it -- needed when a
// predecessor has multiple successors (only possible when each such
// successor has exactly one predecessor, by the critical-edge
// invariant) so move insertion can place per-edge moves unambiguously.
func (c *CFGInfo) computePredPositions() {
	f := c.f
	c.predPos = make([][]int, c.numBlocks)
	for b := Block(0); int(b) < c.numBlocks; b++ {
		preds := f.BlockPreds(b)
		pos := make([]int, len(preds))
		for i, p := range preds {
			pos[i] = -1
			for si, s := range f.BlockSuccs(p) {
				if s == b {
					pos[i] = si
					break
				}
			}
		}
		c.predPos[b] = pos
	}
}

// computeVRegDefs scans every instruction and block-parameter list,
// recording the sole definition site of each vreg and failing with SSA
// if any vreg is defined more than once (§3 invariant 3).
func (c *CFGInfo) computeVRegDefs() error {
	f := c.f
	nv := f.NumVRegs()
	c.vregDefInst = make([]Inst, nv)
	c.vregDefBlock = make([]Block, nv)
	c.vregDefParamIdx = make([]int32, nv)
	defined := make([]bool, nv)
	for i := range c.vregDefInst {
		c.vregDefInst[i] = InstInvalid
		c.vregDefBlock[i] = BlockInvalid
		c.vregDefParamIdx[i] = -1
	}

	for b := Block(0); int(b) < c.numBlocks; b++ {
		for pi, v := range f.BlockParams(b) {
			if defined[v.ID()] {
				return newSSA(v)
			}
			defined[v.ID()] = true
			c.vregDefBlock[v.ID()] = b
			c.vregDefParamIdx[v.ID()] = int32(pi)
		}
	}
	for i := 0; i < f.NumInsts(); i++ {
		for _, op := range f.InstOperands(Inst(i)) {
			// A Mod rewrites an already-defined value in place, so it
			// is not a definition site of its own.
			if op.Kind != OperandDef {
				continue
			}
			v := op.VReg
			if defined[v.ID()] {
				return newSSA(v)
			}
			defined[v.ID()] = true
			c.vregDefInst[v.ID()] = Inst(i)
		}
	}
	return nil
}

// NumBlocks returns the number of blocks in the underlying function.
func (c *CFGInfo) NumBlocks() int { return c.numBlocks }

// RPONum returns b's index in reverse postorder.
func (c *CFGInfo) RPONum(b Block) int32 { return c.rpoNum[b] }

// Dominates reports whether a dominates b.
func (c *CFGInfo) Dominates(a, b Block) bool { return c.dominates(a, b) }

// LoopDepth returns the approximate loop nesting depth of b.
func (c *CFGInfo) LoopDepth(b Block) int32 { return c.approxLoopDepth[b] }

// BlockEntry returns b's entry ProgPoint.
func (c *CFGInfo) BlockEntry(b Block) ProgPoint { return c.blockEntry[b] }

// BlockExit returns b's exit ProgPoint.
func (c *CFGInfo) BlockExit(b Block) ProgPoint { return c.blockExit[b] }

// InstBlock returns the block owning instruction i.
func (c *CFGInfo) InstBlock(i Inst) Block { return c.instBlock[i] }

// VRegDef returns the definition site of the vreg identified by id: if
// definedAsParam is true, it is block parameter paramIdx of block;
// otherwise it is the def operand of inst.
func (c *CFGInfo) VRegDef(id VRegID) (inst Inst, block Block, paramIdx int32, definedAsParam bool) {
	if c.vregDefBlock[id] != BlockInvalid {
		return InstInvalid, c.vregDefBlock[id], c.vregDefParamIdx[id], true
	}
	return c.vregDefInst[id], BlockInvalid, -1, false
}
