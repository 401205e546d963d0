package regalloc

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func collect(s *IntSet) []int {
	var out []int
	s.Range(func(v int) { out = append(out, v) })
	sort.Ints(out)
	return out
}

func TestIntSetDenseBasics(t *testing.T) {
	s := NewIntSet()
	require.True(t, s.Empty())

	s.Add(3)
	s.Add(10)
	s.Add(3)
	require.False(t, s.Empty())
	require.True(t, s.Contains(3))
	require.True(t, s.Contains(10))
	require.False(t, s.Contains(4))
	require.Equal(t, []int{3, 10}, collect(&s))

	s.Remove(3)
	require.False(t, s.Contains(3))
	require.Equal(t, []int{10}, collect(&s))
}

func TestIntSetPromotesToSparseAboveThreshold(t *testing.T) {
	s := NewIntSet()
	s.Add(intSetSparseThreshold + 5)
	require.True(t, s.Contains(intSetSparseThreshold+5))

	// Adding a dense-range value after starting sparse flips to unsorted list mode.
	s.Add(1)
	require.True(t, s.Contains(1))
	require.True(t, s.Contains(intSetSparseThreshold+5))
}

func TestIntSetDenseGrowsPastThresholdMidway(t *testing.T) {
	s := NewIntSet()
	for i := 0; i < 5; i++ {
		s.Add(i)
	}
	s.Add(intSetSparseThreshold + 1)
	// Promotion to a list must preserve every prior dense member.
	for i := 0; i < 5; i++ {
		require.True(t, s.Contains(i), "lost member %d across dense->list promotion", i)
	}
	require.True(t, s.Contains(intSetSparseThreshold+1))
}

func TestIntSetSortOnProbe(t *testing.T) {
	s := NewIntSet()
	for i := intSetSparseThreshold + intSetSortThreshold; i >= intSetSparseThreshold; i-- {
		s.Add(i)
	}
	// Still unsorted until a Contains probe crosses the sort threshold.
	require.True(t, s.Contains(intSetSparseThreshold))
	require.Equal(t, collect(&s)[0], intSetSparseThreshold)
}

func TestIntSetMergeDenseDense(t *testing.T) {
	a := NewIntSet()
	a.Add(1)
	a.Add(2)
	b := NewIntSet()
	b.Add(2)
	b.Add(3)

	changed := a.Merge(&b)
	require.True(t, changed)
	require.Equal(t, []int{1, 2, 3}, collect(&a))

	// Re-merging the same set changes nothing.
	changed = a.Merge(&b)
	require.False(t, changed)
}

func TestIntSetMergeEmptyOperands(t *testing.T) {
	a := NewIntSet()
	empty := NewIntSet()
	require.False(t, a.Merge(&empty))

	b := NewIntSet()
	b.Add(7)
	require.True(t, a.Merge(&b))
	require.Equal(t, []int{7}, collect(&a))
}

func TestIntSetMergeDenseWithSparseList(t *testing.T) {
	a := NewIntSet()
	a.Add(1)
	a.Add(2)

	b := NewIntSet()
	b.Add(intSetSparseThreshold + 100)

	require.True(t, a.Merge(&b))
	require.Equal(t, []int{1, 2, intSetSparseThreshold + 100}, collect(&a))
}

func TestIntSetClearResetsToEmpty(t *testing.T) {
	s := NewIntSet()
	s.Add(1)
	s.Clear()
	require.True(t, s.Empty())
	require.False(t, s.Contains(1))
}

func TestIntSetEqualHelper(t *testing.T) {
	a := NewIntSet()
	a.Add(1)
	a.Add(2)
	b := NewIntSet()
	b.Add(2)
	b.Add(1)
	require.True(t, intSetEqual(&a, &b))

	b.Add(3)
	require.False(t, intSetEqual(&a, &b))
}
