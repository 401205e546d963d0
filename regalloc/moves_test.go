package regalloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newBareEnvForFunc builds an Env over a caller-provided Function,
// for tests that need full control over the instruction table (unlike
// newBareEnv's throwaway single-instruction function).
func newBareEnvForFunc(t *testing.T, f Function, mach *MachineEnv) *Env {
	t.Helper()
	env, err := NewEnv(f, mach)
	require.NoError(t, err)
	return env
}

// simulateMoves applies a sequence of resolved moves against a token
// map, as a minimal stand-in for actual register contents: every
// location starts holding the token named in initial (or "" if never
// mentioned), and each move overwrites its destination with whatever
// its source currently holds, in order.
func simulateMoves(moves []Move, initial map[Allocation]string) map[Allocation]string {
	state := make(map[Allocation]string)
	for k, v := range initial {
		state[k] = v
	}
	for _, m := range moves {
		state[m.To] = state[m.From]
	}
	return state
}

// TestResolveParallelMoveGroupBreaksSwapCycle is the classic two-move
// register swap: move0 wants pA's value into pB, move1 wants pB's
// value into pA, simultaneously. Without correct cycle breaking, one
// side silently loses its value (or reads its own already-overwritten
// destination instead of the original source).
func TestResolveParallelMoveGroupBreaksSwapCycle(t *testing.T) {
	env := newBareEnv(t)
	pA := RegAllocation(MakePReg(0, RegClassInt))
	pB := RegAllocation(MakePReg(1, RegClassInt))
	vA := MakeVReg(0, RegClassInt)
	vB := MakeVReg(1, RegClassInt)

	moves := []Move{
		{From: pA, To: pB, VReg: vA},
		{From: pB, To: pA, VReg: vB},
	}

	resolved := env.resolveParallelMoveGroup(moves)
	require.Len(t, resolved, 3, "a 2-cycle needs exactly one scratch save plus the two sides of the swap")

	final := simulateMoves(resolved, map[Allocation]string{pA: "A", pB: "B"})
	require.Equal(t, "B", final[pA], "pA must end up holding pB's original value")
	require.Equal(t, "A", final[pB], "pB must end up holding pA's original value")
}

// TestResolveParallelMoveGroupBreaksThreeCycle checks a three-way
// rotation (pA<-pB<-pC<-pA), which a naive swap-only fix would not
// cover.
func TestResolveParallelMoveGroupBreaksThreeCycle(t *testing.T) {
	env := newBareEnv(t)
	pA := RegAllocation(MakePReg(0, RegClassInt))
	pB := RegAllocation(MakePReg(1, RegClassInt))
	pC := RegAllocation(MakePReg(3, RegClassInt))
	v := MakeVReg(0, RegClassInt)

	moves := []Move{
		{From: pB, To: pA, VReg: v},
		{From: pC, To: pB, VReg: v},
		{From: pA, To: pC, VReg: v},
	}

	resolved := env.resolveParallelMoveGroup(moves)
	require.Len(t, resolved, 4, "a 3-cycle needs one scratch save plus three sides of the rotation")

	final := simulateMoves(resolved, map[Allocation]string{pA: "A", pB: "B", pC: "C"})
	require.Equal(t, "B", final[pA])
	require.Equal(t, "C", final[pB])
	require.Equal(t, "A", final[pC])
}

// TestResolveParallelMoveGroupAcyclicOrdering checks the plain
// dependency-chain case (no cycle): pC must be read before pB is
// overwritten, and pB before pA.
func TestResolveParallelMoveGroupAcyclicOrdering(t *testing.T) {
	env := newBareEnv(t)
	pA := RegAllocation(MakePReg(0, RegClassInt))
	pB := RegAllocation(MakePReg(1, RegClassInt))
	pC := RegAllocation(MakePReg(2, RegClassInt))
	v := MakeVReg(0, RegClassInt)

	moves := []Move{
		{From: pB, To: pA, VReg: v},
		{From: pC, To: pB, VReg: v},
	}

	resolved := env.resolveParallelMoveGroup(moves)
	require.Len(t, resolved, 2)

	final := simulateMoves(resolved, map[Allocation]string{pA: "A", pB: "B", pC: "C"})
	require.Equal(t, "B", final[pA])
	require.Equal(t, "C", final[pB])
}

// TestSwapCycleThroughChecker feeds breakCycleAndEmit's output for a
// two-register swap through checker_test.go's symbolic value-flow
// checker: v0 and v1 are defined into p0/p1, a swap is resolved
// between them, and the following instruction's uses must observe the
// swapped values, not their original registers' pre-swap contents.
func TestSwapCycleThroughChecker(t *testing.T) {
	v0 := MakeVReg(0, RegClassInt)
	v1 := MakeVReg(1, RegClassInt)
	p0 := RegAllocation(MakePReg(0, RegClassInt))
	p1 := RegAllocation(MakePReg(1, RegClassInt))

	f := newMockFunc(2)
	f.addBlock(nil,
		mockInst{ops: []Operand{def(v0)}},
		mockInst{ops: []Operand{def(v1)}},
		mockInst{ops: []Operand{use(v0), use(v1)}},
	)

	env := newBareEnvForFunc(t, f, onePregEnv(RegClassInt, 2, 2))
	swapped := env.resolveParallelMoveGroup([]Move{
		{From: p0, To: p1, VReg: v0},
		{From: p1, To: p0, VReg: v1},
	})

	out := &Output{
		InstAllocOffsets: []int32{0, 1, 2, 4},
		Allocs:           []Allocation{p0, p1, p1, p0},
	}
	for _, mv := range swapped {
		out.Edits = append(out.Edits, Edit{At: MakeProgPoint(2, Before), Move: mv})
	}

	checkMovesPreserveValues(t, f, out, []Block{0}, nil)
}
