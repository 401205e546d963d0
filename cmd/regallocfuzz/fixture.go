package main

import "github.com/ionpass/regalloc/regalloc"

// fakeFunc is a hand-built regalloc.Function over a fixed instruction
// list, enough to drive the harness without a real compiler front end.
type fakeFunc struct {
	numVRegs int
	insts    []fakeInst
}

type fakeInst struct {
	ops        []regalloc.Operand
	isBranch   bool
	isMove     bool
	isSafept   bool
}

func (f *fakeFunc) NumBlocks() int               { return 1 }
func (f *fakeFunc) NumInsts() int                { return len(f.insts) }
func (f *fakeFunc) NumVRegs() int                { return f.numVRegs }
func (f *fakeFunc) EntryBlock() regalloc.Block    { return 0 }
func (f *fakeFunc) BlockInsns(regalloc.Block) (regalloc.Inst, regalloc.Inst) {
	return 0, regalloc.Inst(len(f.insts))
}
func (f *fakeFunc) BlockSuccs(regalloc.Block) []regalloc.Block { return nil }
func (f *fakeFunc) BlockPreds(regalloc.Block) []regalloc.Block { return nil }
func (f *fakeFunc) BlockParams(regalloc.Block) []regalloc.VReg { return nil }
func (f *fakeFunc) InstOperands(i regalloc.Inst) []regalloc.Operand {
	return f.insts[i].ops
}
func (f *fakeFunc) InstClobbers(regalloc.Inst) []regalloc.PReg { return nil }
func (f *fakeFunc) IsBranch(i regalloc.Inst) bool               { return f.insts[i].isBranch }
func (f *fakeFunc) IsMove(i regalloc.Inst) bool                 { return f.insts[i].isMove }
func (f *fakeFunc) IsSafepoint(i regalloc.Inst) bool            { return f.insts[i].isSafept }
func (f *fakeFunc) RequiresRefsOnStack(i regalloc.Inst) bool     { return f.insts[i].isSafept }
func (f *fakeFunc) BranchBlockparamArgOffset(regalloc.Block, regalloc.Inst) uint32 {
	return 0
}
func (f *fakeFunc) RefType(regalloc.VReg) bool { return false }
func (f *fakeFunc) StackmapRequest() (regalloc.StackmapRequest, bool) {
	return regalloc.StackmapRequest{}, false
}

// builtinAddFunction reproduces spec.md §8's "straight-line add"
// scenario: v0 = def; v1 = def; v2 = add v0, v1.
func builtinAddFunction() regalloc.Function {
	v0 := regalloc.MakeVReg(0, regalloc.RegClassInt)
	v1 := regalloc.MakeVReg(1, regalloc.RegClassInt)
	v2 := regalloc.MakeVReg(2, regalloc.RegClassInt)

	return &fakeFunc{
		numVRegs: 3,
		insts: []fakeInst{
			{ops: []regalloc.Operand{
				regalloc.MakeOperand(v0, regalloc.OperandDef, regalloc.RegConstraint, regalloc.OperandLate),
			}},
			{ops: []regalloc.Operand{
				regalloc.MakeOperand(v1, regalloc.OperandDef, regalloc.RegConstraint, regalloc.OperandLate),
			}},
			{ops: []regalloc.Operand{
				regalloc.MakeOperand(v2, regalloc.OperandDef, regalloc.ReuseConstraint(1), regalloc.OperandLate),
				regalloc.MakeOperand(v0, regalloc.OperandUse, regalloc.RegConstraint, regalloc.OperandEarly),
				regalloc.MakeOperand(v1, regalloc.OperandUse, regalloc.RegConstraint, regalloc.OperandEarly),
			}},
		},
	}
}

func builtinMachineEnv() *regalloc.MachineEnv {
	p0 := regalloc.MakePReg(0, regalloc.RegClassInt)
	p1 := regalloc.MakePReg(1, regalloc.RegClassInt)
	scratch := regalloc.MakePReg(2, regalloc.RegClassInt)

	var mach regalloc.MachineEnv
	mach.PreferredPRegsByClass[regalloc.RegClassInt] = []regalloc.PReg{p0, p1}
	mach.ScratchByClass[regalloc.RegClassInt] = scratch
	return &mach
}
