package regalloc

// BlockParamOut records one value flowing across a CFG edge into a
// destination block's parameter (§4.2).
type BlockParamOut struct {
	FromVReg   VReg
	FromBlock  Block
	ToBlock    Block
	ToParamIdx int32
}

// BlockParamIn is the reciprocal of BlockParamOut, grouped by
// destination.
type BlockParamIn struct {
	ToBlock    Block
	ToParamIdx int32
	FromBlock  Block
	FromVReg   VReg
}

// Stats are diagnostic-only counters (§6.3).
type Stats struct {
	BundlesProcessed int
	Evictions        int
	Splits           int
	Spills           int
}

// Edit is one instruction inserted into the move program, located at a
// ProgPoint (§6.3).
type Edit struct {
	At   ProgPoint
	Move Move
}

// Move describes copying a value from one location to another as part
// of the resolved move program.
type Move struct {
	From, To Allocation
	VReg     VReg
}

// Env owns all per-allocation mutable state (§5). It is built fresh (or
// reset) per function and never shared across a concurrent call: there
// is exactly one Env per allocation invocation, and the allocation of
// one function is strictly single-threaded and synchronous.
type Env struct {
	f    Function
	mach *MachineEnv
	cfg  *CFGInfo

	// Arenas, indexed by their *ID types.
	ranges     []LiveRange
	bundles    []Bundle
	spillSets  []SpillSet
	spillSlots []SpillSlot

	// vregRanges[v] lists v's LiveRangeIDs in ascending start order.
	vregRanges [][]LiveRangeID

	// liveIn[b] / liveOut[b] are the fixed-point liveness sets, keyed
	// by VRegID.
	liveIn  []IntSet
	liveOut []IntSet

	blockParamOuts []BlockParamOut
	blockParamIns  []BlockParamIn

	// safepoints lists safepoint instructions in program order;
	// safepointIndex maps an Inst back to its position in safepoints.
	safepoints     []Inst
	safepointIndex map[Inst]int
	// safepointsPerVReg[v] lists, for reference-typed vregs only, the
	// safepoints falling within v's live ranges.
	safepointsPerVReg [][]Inst

	// spillWeightCap bounds the loop-depth exponent used in spill
	// weight (§4.3) so pathologically deep loop nests cannot overflow.
	spillWeightCap int32

	nextInsertionOrder uint64

	queue *bundleQueue

	// pregMaps[p] tracks the commitments held by preg p (§3
	// "Allocation state per PReg").
	pregMaps map[PReg]*pregCommitments

	spilledBundles []BundleID
	rangeOverrides map[LiveRangeID]Allocation
	slotOccupants  []slotOccupancy

	// roundRobin[c] rotates the starting offset into the preferred-preg
	// list for class c, so that repeated candidate enumerations spread
	// load across preferred registers rather than always trying the
	// first one (§4.4 step 3).
	roundRobin [NumRegClass]int

	stats Stats

	pendingMoves     []Edit
	edits            []Edit
	allocs           []Allocation
	instAllocOffsets []int32

	// progMoveSrcs/progMoveDsts/progMoveMerges track program-level move
	// instructions for §4.3's bookkeeping; indexed in parallel.
	progMoveInsts  []Inst
	progMoveSrcs   []LiveRangeID
	progMoveDsts   []LiveRangeID
	progMoveMerged []bool

	numSpillSlots int32

	stackmaps computedStackmaps

	// used guards against re-running a consumed Env: Run follows the
	// teacher's single-use pipeline (ion/mod.rs has no re-entry either),
	// so a second Run without an intervening Reset would silently
	// recompute liveness and bundles on top of already-populated arenas.
	used bool
}

// NewEnv constructs an Env for allocating f against mach. It validates
// mach and builds f's CFGInfo, returning any intake error (§4.1, §6.2)
// before any allocation state exists.
func NewEnv(f Function, mach *MachineEnv) (*Env, error) {
	if err := mach.validate(); err != nil {
		return nil, err
	}
	cfg, err := BuildCFGInfo(f)
	if err != nil {
		return nil, err
	}
	e := &Env{}
	e.reinit(f, mach, cfg)
	return e, nil
}

// Reset discards all allocation state so the Env can be reused for a
// different function, avoiding a fresh allocation of its arenas where
// the backing storage is large enough to reuse.
func (e *Env) Reset(f Function, mach *MachineEnv) error {
	if err := mach.validate(); err != nil {
		return err
	}
	cfg, err := BuildCFGInfo(f)
	if err != nil {
		return err
	}
	e.reinit(f, mach, cfg)
	return nil
}

func (e *Env) reinit(f Function, mach *MachineEnv, cfg *CFGInfo) {
	e.f = f
	e.mach = mach
	e.cfg = cfg

	e.ranges = e.ranges[:0]
	e.bundles = e.bundles[:0]
	e.spillSets = e.spillSets[:0]
	e.spillSlots = e.spillSlots[:0]

	e.vregRanges = make([][]LiveRangeID, f.NumVRegs())
	e.liveIn = make([]IntSet, f.NumBlocks())
	e.liveOut = make([]IntSet, f.NumBlocks())

	e.blockParamOuts = e.blockParamOuts[:0]
	e.blockParamIns = e.blockParamIns[:0]

	e.safepoints = e.safepoints[:0]
	e.safepointIndex = make(map[Inst]int)
	e.safepointsPerVReg = make([][]Inst, f.NumVRegs())

	e.spillWeightCap = 16

	e.nextInsertionOrder = 0
	e.pregMaps = make(map[PReg]*pregCommitments)

	e.spilledBundles = e.spilledBundles[:0]
	e.rangeOverrides = nil
	e.slotOccupants = e.slotOccupants[:0]
	e.stats = Stats{}

	e.pendingMoves = e.pendingMoves[:0]
	e.edits = e.edits[:0]
	e.allocs = e.allocs[:0]
	e.instAllocOffsets = make([]int32, f.NumInsts()+1)

	e.progMoveInsts = e.progMoveInsts[:0]
	e.progMoveSrcs = e.progMoveSrcs[:0]
	e.progMoveDsts = e.progMoveDsts[:0]
	e.progMoveMerged = e.progMoveMerged[:0]

	e.numSpillSlots = 0

	e.used = false
}

// Run executes the full pipeline (§2) and returns the produced Output,
// or a RegAllocError if allocation proves impossible (TooManyLiveRegs).
func (e *Env) Run() (*Output, error) {
	if e.used {
		panic("regalloc: Run called twice on the same Env without an intervening Reset")
	}
	e.used = true

	e.computeLiveness()
	if err := e.buildLiveRanges(); err != nil {
		return nil, err
	}
	e.mergeBundles()
	e.initializeQueue()

	if err := e.processBundles(); err != nil {
		return nil, err
	}
	if err := e.tryAllocateSpilledBundles(); err != nil {
		return nil, err
	}
	e.allocateSpillSlots()

	e.applyAllocationsAndInsertMoves()
	e.resolveInsertedMoves()
	e.eliminateRedundantMoves()
	e.computeStackmaps()

	return e.buildOutput(), nil
}
