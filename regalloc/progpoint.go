package regalloc

import "fmt"

// Inst is the dense identifier of an instruction within a Function.
type Inst int32

// InstInvalid is never a valid Inst.
const InstInvalid Inst = -1

// Block is the dense identifier of a basic block within a Function.
type Block int32

// BlockInvalid is never a valid Block.
const BlockInvalid Block = -1

// Phase distinguishes the two program points straddling one instruction.
type Phase uint8

const (
	// Before is the point at which the instruction's Early-pos operands
	// (and its block-entry liveness boundary) are evaluated.
	Before Phase = iota
	// After is the point at which the instruction's Late-pos operands
	// (and its block-exit liveness boundary) are evaluated.
	After
)

func (p Phase) String() string {
	if p == Before {
		return "before"
	}
	return "after"
}

// ProgPoint is the finest time coordinate in the allocator: an
// instruction paired with a phase, ordered lexicographically by
// (inst, phase). Live ranges are half-open [from, to) intervals over
// ProgPoints. Packed into a single int64 (inst<<1 | phase) so ProgPoint
// is comparable with plain `<` and usable as a map key, matching the
// teacher's habit of packing small composite keys into one ordinally-
// comparable integer (see VReg in reg.go for why that idiom was NOT
// extended to VReg/PReg, where mutability made the tradeoff the other
// way).
type ProgPoint int64

// ProgPointInvalid is never a valid ProgPoint.
const ProgPointInvalid ProgPoint = -1

// MakeProgPoint constructs the program point (inst, phase).
func MakeProgPoint(inst Inst, phase Phase) ProgPoint {
	return ProgPoint(int64(inst)<<1 | int64(phase))
}

// Inst returns the instruction component of p.
func (p ProgPoint) Inst() Inst { return Inst(int64(p) >> 1) }

// Phase returns the phase component of p.
func (p ProgPoint) Phase() Phase { return Phase(int64(p) & 1) }

// AtBefore returns the Before point of the same instruction as p.
func (p ProgPoint) AtBefore() ProgPoint { return MakeProgPoint(p.Inst(), Before) }

// AtAfter returns the After point of the same instruction as p.
func (p ProgPoint) AtAfter() ProgPoint { return MakeProgPoint(p.Inst(), After) }

// next returns the next program point in program order (After(i) then
// Before(i+1)).
func (p ProgPoint) next() ProgPoint {
	if p.Phase() == Before {
		return p.AtAfter()
	}
	return MakeProgPoint(p.Inst()+1, Before)
}

// prev returns the previous program point in program order.
func (p ProgPoint) prev() ProgPoint {
	if p.Phase() == After {
		return p.AtBefore()
	}
	return MakeProgPoint(p.Inst()-1, After)
}

func (p ProgPoint) String() string {
	if p == ProgPointInvalid {
		return "pp<invalid>"
	}
	return fmt.Sprintf("%s@%d", p.Phase(), p.Inst())
}

// OperandKind classifies how an operand touches its vreg's value.
type OperandKind uint8

const (
	// OperandUse reads the vreg's current value.
	OperandUse OperandKind = iota
	// OperandDef writes a new value to the vreg.
	OperandDef
	// OperandMod reads then writes the vreg at the same program point.
	OperandMod
)

func (k OperandKind) String() string {
	switch k {
	case OperandUse:
		return "use"
	case OperandDef:
		return "def"
	case OperandMod:
		return "mod"
	default:
		return "invalid-kind"
	}
}

// OperandPos selects which phase of the owning instruction an operand
// is evaluated at.
type OperandPos uint8

const (
	// OperandEarly resolves to the instruction's Before point.
	OperandEarly OperandPos = iota
	// OperandLate resolves to the instruction's After point.
	OperandLate
)

func (p OperandPos) String() string {
	if p == OperandEarly {
		return "early"
	}
	return "late"
}

// ConstraintKind names the shape a Constraint takes; Constraint.PReg and
// Constraint.ReuseIdx are only meaningful for the matching kind.
type ConstraintKind uint8

const (
	// ConstraintAny allows either a register or a stack slot.
	ConstraintAny ConstraintKind = iota
	// ConstraintReg requires some register, unspecified which.
	ConstraintReg
	// ConstraintFixedReg requires a specific physical register.
	ConstraintFixedReg
	// ConstraintReuse requires the same location as another operand
	// of the same instruction, identified by its index in inst_operands.
	ConstraintReuse
	// ConstraintStack requires a stack slot.
	ConstraintStack
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintAny:
		return "any"
	case ConstraintReg:
		return "reg"
	case ConstraintFixedReg:
		return "fixed-reg"
	case ConstraintReuse:
		return "reuse"
	case ConstraintStack:
		return "stack"
	default:
		return "invalid-constraint"
	}
}

// Constraint restricts where an operand's vreg may be assigned.
type Constraint struct {
	Kind     ConstraintKind
	PReg     PReg // valid iff Kind == ConstraintFixedReg
	ReuseIdx int  // valid iff Kind == ConstraintReuse; index into the owning instruction's operand list
}

// AnyConstraint is the unconstrained default.
var AnyConstraint = Constraint{Kind: ConstraintAny}

// RegConstraint requires any register.
var RegConstraint = Constraint{Kind: ConstraintReg}

// StackConstraint requires a stack slot.
var StackConstraint = Constraint{Kind: ConstraintStack}

// FixedRegConstraint requires exactly p.
func FixedRegConstraint(p PReg) Constraint {
	return Constraint{Kind: ConstraintFixedReg, PReg: p}
}

// ReuseConstraint ties this operand to operand index i of the same
// instruction.
func ReuseConstraint(i int) Constraint {
	return Constraint{Kind: ConstraintReuse, ReuseIdx: i}
}

func (c Constraint) String() string {
	switch c.Kind {
	case ConstraintFixedReg:
		return fmt.Sprintf("fixed(%s)", c.PReg)
	case ConstraintReuse:
		return fmt.Sprintf("reuse(%d)", c.ReuseIdx)
	default:
		return c.Kind.String()
	}
}

// Operand is one (vreg, kind, constraint, pos) reference appearing in
// an instruction's operand list.
type Operand struct {
	VReg       VReg
	Kind       OperandKind
	Constraint Constraint
	Pos        OperandPos
}

// MakeOperand constructs an Operand.
func MakeOperand(vreg VReg, kind OperandKind, constraint Constraint, pos OperandPos) Operand {
	return Operand{VReg: vreg, Kind: kind, Constraint: constraint, Pos: pos}
}

// point resolves the operand's program point within instruction inst
// from its Pos: Early gives the Before point, Late the After point.
// Every operand kind, Mod included, resolves the same way.
func (o Operand) point(inst Inst) ProgPoint {
	if o.Pos == OperandEarly {
		return MakeProgPoint(inst, Before)
	}
	return MakeProgPoint(inst, After)
}
