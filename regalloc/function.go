package regalloc

// Function is the read-only view of the input program the allocator
// operates over. Implementations are supplied by the caller; the core
// never mutates them and never retains references past the call to
// Env.Run. Queries are expected to be cheap (typically O(1) or backed by
// a pre-built slice) since several are called in the allocator's hot
// paths.
type Function interface {
	NumBlocks() int
	NumInsts() int
	NumVRegs() int
	EntryBlock() Block

	// BlockInsns returns the half-open instruction range [start, end)
	// owned by b, in program order.
	BlockInsns(b Block) (start, end Inst)
	BlockSuccs(b Block) []Block
	BlockPreds(b Block) []Block
	// BlockParams returns the vregs defined by b's block parameters, in
	// the order callers must supply matching branch arguments.
	BlockParams(b Block) []VReg

	InstOperands(i Inst) []Operand
	// InstClobbers returns pregs implicitly killed by i (e.g. caller-
	// saves around a call instruction), beyond its declared operands.
	InstClobbers(i Inst) []PReg

	IsBranch(i Inst) bool
	IsMove(i Inst) bool
	IsSafepoint(i Inst) bool
	// RequiresRefsOnStack reports whether i is a point at which every
	// live reference-typed vreg must already reside on the stack
	// (a stricter version of IsSafepoint used by some callers).
	RequiresRefsOnStack(i Inst) bool

	// BranchBlockparamArgOffset returns the index into InstOperands(i)
	// where the block-parameter-matching branch arguments begin, for a
	// branch i terminating block b.
	BranchBlockparamArgOffset(b Block, i Inst) uint32

	RefType(v VReg) bool

	// StackmapRequest returns the set of vregs the caller wants tracked
	// as references, or ok == false if none are named. The allocator
	// does not call it; see the StackmapRequest type.
	StackmapRequest() (StackmapRequest, bool)
}

// StackmapRequest names the reference-typed vregs a caller wants
// reported in Output.SafepointSlots. The allocator does not consult
// it: every vreg for which Function.RefType reports true and that is
// live in a stack slot at a safepoint appears in that safepoint's
// stackmap.
type StackmapRequest struct {
	RefVRegs []VReg
}
