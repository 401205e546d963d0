package regalloc

// mockBlock is one basic block of a mockFunc.
type mockBlock struct {
	start, end Inst
	succs      []Block
	preds      []Block
	params     []VReg
}

// mockInst is one instruction of a mockFunc.
type mockInst struct {
	ops             []Operand
	isBranch        bool
	isMove          bool
	isSafepoint     bool
	requiresStack   bool
	branchArgOffset uint32
	clobbers        []PReg
}

// mockFunc is a hand-built regalloc.Function, in the spirit of the
// fixed-table fakes wazero's own backend tests use instead of a full
// compiler front end.
type mockFunc struct {
	numVRegs int
	blocks   []mockBlock
	insts    []mockInst
	refVRegs map[VRegID]bool
	entry    Block
}

func newMockFunc(numVRegs int) *mockFunc {
	return &mockFunc{numVRegs: numVRegs, refVRegs: make(map[VRegID]bool)}
}

func (f *mockFunc) addBlock(params []VReg, insts ...mockInst) Block {
	b := Block(len(f.blocks))
	start := Inst(len(f.insts))
	f.insts = append(f.insts, insts...)
	end := Inst(len(f.insts))
	f.blocks = append(f.blocks, mockBlock{start: start, end: end, params: params})
	return b
}

func (f *mockFunc) link(from, to Block) {
	f.blocks[from].succs = append(f.blocks[from].succs, to)
	f.blocks[to].preds = append(f.blocks[to].preds, from)
}

func (f *mockFunc) markRef(v VReg) { f.refVRegs[v.ID()] = true }

func (f *mockFunc) NumBlocks() int            { return len(f.blocks) }
func (f *mockFunc) NumInsts() int             { return len(f.insts) }
func (f *mockFunc) NumVRegs() int             { return f.numVRegs }
func (f *mockFunc) EntryBlock() Block         { return f.entry }
func (f *mockFunc) BlockInsns(b Block) (Inst, Inst) {
	return f.blocks[b].start, f.blocks[b].end
}
func (f *mockFunc) BlockSuccs(b Block) []Block { return f.blocks[b].succs }
func (f *mockFunc) BlockPreds(b Block) []Block { return f.blocks[b].preds }
func (f *mockFunc) BlockParams(b Block) []VReg { return f.blocks[b].params }

func (f *mockFunc) InstOperands(i Inst) []Operand    { return f.insts[i].ops }
func (f *mockFunc) InstClobbers(i Inst) []PReg       { return f.insts[i].clobbers }
func (f *mockFunc) IsBranch(i Inst) bool             { return f.insts[i].isBranch }
func (f *mockFunc) IsMove(i Inst) bool               { return f.insts[i].isMove }
func (f *mockFunc) IsSafepoint(i Inst) bool          { return f.insts[i].isSafepoint }
func (f *mockFunc) RequiresRefsOnStack(i Inst) bool  { return f.insts[i].requiresStack }
func (f *mockFunc) BranchBlockparamArgOffset(_ Block, i Inst) uint32 {
	return f.insts[i].branchArgOffset
}
func (f *mockFunc) RefType(v VReg) bool { return f.refVRegs[v.ID()] }
func (f *mockFunc) StackmapRequest() (StackmapRequest, bool) {
	if len(f.refVRegs) == 0 {
		return StackmapRequest{}, false
	}
	req := StackmapRequest{}
	for id := range f.refVRegs {
		req.RefVRegs = append(req.RefVRegs, MakeVReg(id, RegClassInt))
	}
	return req, true
}

// def/use/mod build Operands for the Reg-constrained common case; the
// fixed/reuse/stack variants are spelled out explicitly at call sites
// that need them.
func def(v VReg) Operand { return MakeOperand(v, OperandDef, RegConstraint, OperandLate) }
func use(v VReg) Operand { return MakeOperand(v, OperandUse, RegConstraint, OperandEarly) }

func onePregEnv(class RegClass, n int, scratchHW PRegID) *MachineEnv {
	var mach MachineEnv
	for i := PRegID(0); i < PRegID(n); i++ {
		mach.PreferredPRegsByClass[class] = append(mach.PreferredPRegsByClass[class], MakePReg(i, class))
	}
	mach.ScratchByClass[class] = MakePReg(scratchHW, class)
	return &mach
}
