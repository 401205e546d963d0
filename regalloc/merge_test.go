package regalloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestMergeBundlesReuseUnion exercises the full mergeBundles pass: a
// Reuse-constrained def must end up coalesced into the same bundle as
// the range it reuses, so the allocator never needs to move the value.
func TestMergeBundlesReuseUnion(t *testing.T) {
	v0 := MakeVReg(0, RegClassInt)
	v1 := MakeVReg(1, RegClassInt)
	v2 := MakeVReg(2, RegClassInt)

	f := newMockFunc(3)
	f.addBlock(nil,
		mockInst{ops: []Operand{def(v0)}},
		mockInst{ops: []Operand{def(v1)}},
		mockInst{ops: []Operand{
			MakeOperand(v2, OperandDef, ReuseConstraint(1), OperandLate),
			use(v0),
			use(v1),
		}},
	)

	env, err := NewEnv(f, onePregEnv(RegClassInt, 2, 2))
	require.NoError(t, err)

	env.computeLiveness()
	require.NoError(t, env.buildLiveRanges())
	env.mergeBundles()

	v0Range := env.vregRanges[v0.ID()][0]
	v2Range := env.vregRanges[v2.ID()][0]
	require.Equal(t, env.ranges[v0Range].Bundle, env.ranges[v2Range].Bundle,
		"reuse-constrained def must share its operand's bundle")

	v1Range := env.vregRanges[v1.ID()][0]
	require.NotEqual(t, env.ranges[v0Range].Bundle, env.ranges[v1Range].Bundle)
}

// newTestRange appends a standalone range+singleton-bundle pair to env
// and returns the range's own id (== the bundle's sole member), for
// directly exercising tryUnion's three rejection conditions without
// running the whole pipeline.
func newTestRange(e *Env, v VReg, from, to ProgPoint, uses ...UseInfo) LiveRangeID {
	rid := LiveRangeID(len(e.ranges))
	bid := BundleID(len(e.bundles))
	e.ranges = append(e.ranges, LiveRange{
		Range: CodeRange{From: from, To: to},
		VReg:  v,
		Uses:  uses,
		Bundle: bid,
	})
	e.bundles = append(e.bundles, Bundle{Ranges: []LiveRangeID{rid}, Alloc: AllocationInvalid, SpillSet: SpillSetIDInvalid, Hint: PRegInvalid})
	return rid
}

func newBareEnv(t *testing.T) *Env {
	t.Helper()
	f := newMockFunc(0)
	f.addBlock(nil, mockInst{})
	env, err := NewEnv(f, onePregEnv(RegClassInt, 2, 2))
	require.NoError(t, err)
	return env
}

func TestTryUnionRejectsClassMismatch(t *testing.T) {
	env := newBareEnv(t)
	p0 := MakeProgPoint(0, Before)
	a := newTestRange(env, MakeVReg(0, RegClassInt), p0, p0.next())
	b := newTestRange(env, MakeVReg(1, RegClassFloat), p0.next(), p0.next().next())

	uf := newUnionFind(len(env.ranges))
	require.False(t, env.tryUnion(uf, int32(a), int32(b)))
}

func TestTryUnionRejectsOverlap(t *testing.T) {
	env := newBareEnv(t)
	p0 := MakeProgPoint(0, Before)
	p1 := MakeProgPoint(0, After)
	a := newTestRange(env, MakeVReg(0, RegClassInt), p0, p1.next())
	b := newTestRange(env, MakeVReg(1, RegClassInt), p0, p1)

	uf := newUnionFind(len(env.ranges))
	require.False(t, env.tryUnion(uf, int32(a), int32(b)), "overlapping ranges must not be unioned into one bundle")
}

func TestTryUnionRejectsFixedConflict(t *testing.T) {
	env := newBareEnv(t)
	p0 := MakePReg(0, RegClassInt)
	p1 := MakePReg(1, RegClassInt)

	at := MakeProgPoint(0, Before)
	bt := MakeProgPoint(1, Before)
	a := newTestRange(env, MakeVReg(0, RegClassInt), at, at.next(),
		UseInfo{Operand: MakeOperand(MakeVReg(0, RegClassInt), OperandUse, FixedRegConstraint(p0), OperandEarly), Inst: 0, SlotInOperands: 0})
	b := newTestRange(env, MakeVReg(1, RegClassInt), bt, bt.next(),
		UseInfo{Operand: MakeOperand(MakeVReg(1, RegClassInt), OperandUse, FixedRegConstraint(p1), OperandEarly), Inst: 1, SlotInOperands: 0})

	uf := newUnionFind(len(env.ranges))
	require.False(t, env.tryUnion(uf, int32(a), int32(b)), "distinct fixed-register demands must conflict")
}

func TestTryUnionAcceptsCompatiblePair(t *testing.T) {
	env := newBareEnv(t)
	at := MakeProgPoint(0, Before)
	bt := MakeProgPoint(1, Before)
	a := newTestRange(env, MakeVReg(0, RegClassInt), at, at.next())
	b := newTestRange(env, MakeVReg(1, RegClassInt), bt, bt.next())

	uf := newUnionFind(len(env.ranges))
	require.True(t, env.tryUnion(uf, int32(a), int32(b)))
	require.Equal(t, uf.find(int32(a)), uf.find(int32(b)))
}
