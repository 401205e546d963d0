package regalloc

// commitment is one bundle's claim on a contiguous range of program
// points on some PReg.
type commitment struct {
	rng    CodeRange
	bundle BundleID
}

// pregCommitments is the per-PReg "map preg -> sorted list of (range ->
// owning bundle)" of §3, supporting overlap queries in O(log n + k)
// where k is the number of conflicts found.
type pregCommitments struct {
	entries []commitment // kept sorted by rng.From
}

func (e *Env) commitmentsFor(p PReg) *pregCommitments {
	c, ok := e.pregMaps[p]
	if !ok {
		c = &pregCommitments{}
		e.pregMaps[p] = c
	}
	return c
}

// conflicts returns every commitment on p overlapping rng.
func (c *pregCommitments) conflicts(rng CodeRange) []commitment {
	// Binary search for the first entry whose range could overlap:
	// entries are sorted by From, and ranges within one preg's
	// commitment list may still abut/overlap only across the query
	// range since a preg can carry many bundles. A full scan from the
	// first candidate is bounded by the (small, in practice) number of
	// entries whose From < rng.To.
	lo, hi := 0, len(c.entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if c.entries[mid].rng.To <= rng.From {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	var out []commitment
	for i := lo; i < len(c.entries) && c.entries[i].rng.From < rng.To; i++ {
		if c.entries[i].rng.overlaps(rng) {
			out = append(out, c.entries[i])
		}
	}
	return out
}

// insert adds a new commitment, keeping entries sorted by From. Callers
// are responsible for having already checked (via conflicts) that no
// overlap exists, matching process.go's "commit only after a
// conflict-free candidate is found" invariant.
func (c *pregCommitments) insert(rng CodeRange, bundle BundleID) {
	idx := 0
	for idx < len(c.entries) && c.entries[idx].rng.From < rng.From {
		idx++
	}
	c.entries = append(c.entries, commitment{})
	copy(c.entries[idx+1:], c.entries[idx:])
	c.entries[idx] = commitment{rng: rng, bundle: bundle}
}

// remove deletes every commitment belonging to bundle on this preg.
func (c *pregCommitments) remove(bundle BundleID) {
	out := c.entries[:0]
	for _, e := range c.entries {
		if e.bundle != bundle {
			out = append(out, e)
		}
	}
	c.entries = out
}

// commitBundle inserts every range of bundle id onto preg p's
// commitment map.
func (e *Env) commitBundle(id BundleID, p PReg) {
	cm := e.commitmentsFor(p)
	for _, rid := range e.bundles[id].Ranges {
		cm.insert(e.ranges[rid].Range, id)
	}
	e.bundles[id].Alloc = RegAllocation(p)
}

// evictBundle removes bundle id's commitments from whichever preg it
// currently holds (Alloc must be a register allocation).
func (e *Env) evictBundle(id BundleID) {
	alloc := e.bundles[id].Alloc
	if !alloc.IsReg() {
		return
	}
	e.commitmentsFor(alloc.PReg).remove(id)
	e.bundles[id].Alloc = AllocationInvalid
}

// conflictsForBundle returns, for candidate preg p, the set of
// distinct bundles whose commitments overlap any range of bundle id,
// and the maximum spill weight among them (§4.4 step 3).
func (e *Env) conflictsForBundle(id BundleID, p PReg) (conflicting []BundleID, maxWeight float64) {
	cm := e.commitmentsFor(p)
	seen := make(map[BundleID]bool)
	for _, rid := range e.bundles[id].Ranges {
		for _, c := range cm.conflicts(e.ranges[rid].Range) {
			if c.bundle == id || seen[c.bundle] {
				continue
			}
			seen[c.bundle] = true
			conflicting = append(conflicting, c.bundle)
			if w := e.bundleSpillWeight(c.bundle); w > maxWeight {
				maxWeight = w
			}
		}
	}
	sortBundleIDs(conflicting)
	return conflicting, maxWeight
}

func sortBundleIDs(ids []BundleID) {
	for i := 1; i < len(ids); i++ {
		v := ids[i]
		j := i - 1
		for j >= 0 && ids[j] > v {
			ids[j+1] = ids[j]
			j--
		}
		ids[j+1] = v
	}
}
