package regalloc

import "github.com/bits-and-blooms/bitset"

// Hybrid-mode thresholds per spec.md §6.4.
const (
	intSetSparseThreshold = 512 // switch dense->list once an index reaches this
	intSetSortThreshold   = 16  // sort an unsorted list once it reaches this length
)

type intSetMode uint8

const (
	intSetEmpty intSetMode = iota
	intSetDense
	intSetUnsorted
	intSetSorted
)

// IntSet is a set of non-negative ints that switches representation
// based on the values it holds, so that it stays cheap for both the
// common small/dense case (liveness bitsets over a modest vreg count)
// and the rare sparse/large case. Grounded on the hybrid-mode contract
// of spec.md §6.4 and on the bits-and-blooms/bitset-backed dataflow sets
// in other_examples' CFG liveness pass (dense mode); list modes mirror
// the original regalloc2 IntSet (see DESIGN.md).
type IntSet struct {
	mode   intSetMode
	dense  *bitset.BitSet
	list   []int32 // unsorted (possibly with dups) or sorted (deduped), per mode
	sorted bool
}

// NewIntSet returns an empty IntSet.
func NewIntSet() IntSet { return IntSet{mode: intSetEmpty} }

// Clear resets the set to empty, releasing its backing storage.
func (s *IntSet) Clear() {
	s.mode = intSetEmpty
	s.dense = nil
	s.list = nil
}

// Empty reports whether the set has no members.
func (s *IntSet) Empty() bool {
	switch s.mode {
	case intSetEmpty:
		return true
	case intSetDense:
		return s.dense.None()
	default:
		return len(s.list) == 0
	}
}

// Add inserts val into the set.
func (s *IntSet) Add(val int) {
	v := uint(val)
	switch s.mode {
	case intSetEmpty:
		if val >= intSetSparseThreshold {
			s.mode = intSetSorted
			s.list = append(s.list[:0], int32(val))
		} else {
			s.mode = intSetDense
			s.dense = bitset.New(v + 1)
			s.dense.Set(v)
		}
	case intSetDense:
		if val >= intSetSparseThreshold {
			list := make([]int32, 0, s.dense.Count()+1)
			for i, ok := s.dense.NextSet(0); ok; i, ok = s.dense.NextSet(i + 1) {
				list = append(list, int32(i))
			}
			list = append(list, int32(val))
			s.mode = intSetUnsorted
			s.dense = nil
			s.list = list
		} else {
			s.dense.Set(v)
		}
	case intSetUnsorted:
		s.list = append(s.list, int32(val))
	case intSetSorted:
		s.mode = intSetUnsorted
		s.list = append(s.list, int32(val))
	}
}

// Remove deletes val from the set, if present.
func (s *IntSet) Remove(val int) {
	v := uint(val)
	switch s.mode {
	case intSetEmpty:
	case intSetDense:
		s.dense.Clear(v)
	case intSetUnsorted:
		out := s.list[:0]
		for _, e := range s.list {
			if int(e) != val {
				out = append(out, e)
			}
		}
		s.list = out
	case intSetSorted:
		i := sortedIndexOf(s.list, int32(val))
		if i >= 0 {
			s.list = append(s.list[:i], s.list[i+1:]...)
		}
	}
}

// Contains probes for val, lazily sorting an over-long unsorted list
// first (per spec.md §6.4's SORT_THRESHOLD).
func (s *IntSet) Contains(val int) bool {
	if s.mode == intSetUnsorted && len(s.list) >= intSetSortThreshold {
		s.sortList()
	}
	switch s.mode {
	case intSetEmpty:
		return false
	case intSetDense:
		return s.dense.Test(uint(val))
	case intSetUnsorted:
		for _, e := range s.list {
			if int(e) == val {
				return true
			}
		}
		return false
	case intSetSorted:
		return sortedIndexOf(s.list, int32(val)) >= 0
	}
	return false
}

func (s *IntSet) sortList() {
	sortInt32s(s.list)
	s.list = dedupSorted(s.list)
	s.mode = intSetSorted
}

// Merge unions other into s, returning true iff any element was newly
// added (idempotent union).
func (s *IntSet) Merge(other *IntSet) bool {
	if other.Empty() {
		return false
	}
	if s.Empty() {
		*s = other.clone()
		return true
	}

	// Fast path: both dense.
	if s.mode == intSetDense && other.mode == intSetDense {
		before := s.dense.Count()
		if other.dense.Len() > s.dense.Len() {
			grown := bitset.New(other.dense.Len())
			grown.InPlaceUnion(s.dense)
			s.dense = grown
		}
		s.dense.InPlaceUnion(other.dense)
		return s.dense.Count() != before
	}

	// General path: materialize both as element lists and re-add.
	changed := false
	other.Range(func(v int) {
		if !s.Contains(v) {
			s.Add(v)
			changed = true
		}
	})
	return changed
}

func (s IntSet) clone() IntSet {
	switch s.mode {
	case intSetDense:
		return IntSet{mode: intSetDense, dense: s.dense.Clone()}
	case intSetUnsorted, intSetSorted:
		list := make([]int32, len(s.list))
		copy(list, s.list)
		return IntSet{mode: s.mode, list: list}
	default:
		return IntSet{mode: intSetEmpty}
	}
}

// Range calls f once for every element of the set, in ascending order.
// An unsorted list is first sorted and deduplicated in place (as Sort
// does), so duplicates added in unsorted mode are visited only once.
func (s *IntSet) Range(f func(int)) {
	if s.mode == intSetUnsorted {
		s.sortList()
	}
	switch s.mode {
	case intSetEmpty:
	case intSetDense:
		for i, ok := s.dense.NextSet(0); ok; i, ok = s.dense.NextSet(i + 1) {
			f(int(i))
		}
	case intSetUnsorted, intSetSorted:
		for _, e := range s.list {
			f(int(e))
		}
	}
}

// Sort forces list modes into sorted, deduplicated order; a no-op for
// dense/empty modes (already canonically ordered).
func (s *IntSet) Sort() {
	if s.mode == intSetUnsorted {
		s.sortList()
	}
}

func sortedIndexOf(sorted []int32, v int32) int {
	lo, hi := 0, len(sorted)
	for lo < hi {
		mid := (lo + hi) / 2
		if sorted[mid] < v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(sorted) && sorted[lo] == v {
		return lo
	}
	return -1
}

func sortInt32s(s []int32) {
	// Insertion sort is adequate: lists only reach this path below
	// intSetSparseThreshold-scale counts in practice, and we want an
	// allocation-free stable sort without importing "sort" generics
	// machinery for a single int32 slice.
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && s[j] > v {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
}

func dedupSorted(s []int32) []int32 {
	if len(s) == 0 {
		return s
	}
	out := s[:1]
	for _, v := range s[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
