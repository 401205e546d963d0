package regalloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequirementFoldLattice(t *testing.T) {
	any := Requirement{Kind: RequirementKindAny}
	reg := Requirement{Kind: RequirementKindReg}
	stack := Requirement{Kind: RequirementKindStack}
	p0 := MakePReg(0, RegClassInt)
	p1 := MakePReg(1, RegClassInt)
	fixed0 := Requirement{Kind: RequirementKindFixedReg, PReg: p0}
	fixed1 := Requirement{Kind: RequirementKindFixedReg, PReg: p1}

	require.Equal(t, any, RequirementUnknown().fold(any))
	require.Equal(t, reg, any.fold(reg))
	require.Equal(t, fixed0, reg.fold(fixed0))
	require.Equal(t, fixed0, fixed0.fold(fixed0))
	require.Equal(t, RequirementConflict, fixed0.fold(fixed1).Kind)
	require.Equal(t, RequirementConflict, stack.fold(reg).Kind)
	require.Equal(t, stack, stack.fold(stack))
	require.Equal(t, RequirementConflict, fixed0.fold(Requirement{Kind: RequirementConflict}).Kind)
}

func TestOperandRequirementMapping(t *testing.T) {
	v := MakeVReg(0, RegClassInt)
	p := MakePReg(1, RegClassInt)

	require.Equal(t, RequirementKindAny, operandRequirement(MakeOperand(v, OperandUse, AnyConstraint, OperandEarly)).Kind)
	require.Equal(t, RequirementKindReg, operandRequirement(MakeOperand(v, OperandUse, RegConstraint, OperandEarly)).Kind)
	require.Equal(t, RequirementKindStack, operandRequirement(MakeOperand(v, OperandUse, StackConstraint, OperandEarly)).Kind)
	fr := operandRequirement(MakeOperand(v, OperandDef, FixedRegConstraint(p), OperandLate))
	require.Equal(t, RequirementKindFixedReg, fr.Kind)
	require.True(t, fr.PReg.Equal(p))
	require.Equal(t, RequirementKindReg, operandRequirement(MakeOperand(v, OperandDef, ReuseConstraint(0), OperandLate)).Kind)
}
