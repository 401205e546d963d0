package regalloc

// MachineEnv describes the physical register file available to the
// allocator, one slice pair per register class. Preferred pregs are
// tried before non-preferred ones in the candidate traversal order
// (§4.4 step 3); scratch pregs are reserved for parallel-move cycle
// breaking (§4.6) and are never assigned to a vreg.
type MachineEnv struct {
	// PreferredPRegsByClass[c] lists, in traversal order, the pregs of
	// class c the allocator should try first.
	PreferredPRegsByClass [NumRegClass][]PReg
	// NonPreferredPRegsByClass[c] lists the remaining allocatable pregs
	// of class c, tried after the preferred list is exhausted.
	NonPreferredPRegsByClass [NumRegClass][]PReg
	// ScratchByClass[c] is the preg reserved as move-cycle scratch for
	// class c. Must be set for every class the function actually uses.
	ScratchByClass [NumRegClass]PReg
}

// allRegs returns preferred followed by non-preferred pregs of c, the
// order walked by spill.go's spilled-bundle register pass and by
// validate.
func (m *MachineEnv) allRegs(c RegClass) []PReg {
	out := make([]PReg, 0, len(m.PreferredPRegsByClass[c])+len(m.NonPreferredPRegsByClass[c]))
	out = append(out, m.PreferredPRegsByClass[c]...)
	out = append(out, m.NonPreferredPRegsByClass[c]...)
	return out
}

// validate checks MachineEnv's own invariants: every class has a valid
// scratch preg distinct from the allocatable sets, and no class
// exceeds MaxPRegsPerClass allocatable registers (RegSet's bitmask
// width).
func (m *MachineEnv) validate() error {
	for c := RegClassInt; c < NumRegClass; c++ {
		allocatable := len(m.PreferredPRegsByClass[c]) + len(m.NonPreferredPRegsByClass[c])
		if allocatable > MaxPRegsPerClass {
			return newTooManyLiveRegs("MachineEnv declares more allocatable registers than MaxPRegsPerClass supports")
		}
		scratch := m.ScratchByClass[c]
		if allocatable > 0 && !scratch.Valid() {
			return newTooManyLiveRegs("MachineEnv is missing a scratch register for a class with allocatable registers")
		}
		for _, r := range m.allRegs(c) {
			if r.Equal(scratch) {
				return newTooManyLiveRegs("MachineEnv's scratch register must not also be allocatable")
			}
		}
	}
	return nil
}
