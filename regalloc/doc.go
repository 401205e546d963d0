// Package regalloc implements a backtracking, priority-driven register
// allocator for a low-level compiler intermediate representation.
//
// Given a Function expressed as a control-flow graph of basic blocks over
// instructions that reference virtual registers (VReg), Env assigns each
// operand to a physical register (PReg) or a spill slot, and produces the
// move program (Output.Edits) that reifies those assignments across the
// function body, block boundaries, and block parameters.
//
// The algorithm follows the "Ion" style used by backtracking allocators:
// live ranges are grouped into bundles, bundles are processed off a
// priority queue keyed by spill weight, and a bundle that cannot find a
// conflict-free register may evict lower-priority bundles, split itself,
// or ultimately spill. See References below for background.
//
// References:
//   - https://www.mozilla.org/en-US/security/advisories/ (Ion backtracking allocator overview)
//   - https://en.wikipedia.org/wiki/Chaitin%27s_algorithm (contrast: graph coloring)
//   - https://pfalcon.github.io/ssabook/latest/book-full.pdf: Chapter 9, for liveness analysis.
package regalloc
