package regalloc

import "container/heap"

// queueEntry is one bundle waiting to be processed, carrying the
// spill weight it had when pushed (recomputed whenever a bundle is
// split or re-queued after eviction, §4.4).
type queueEntry struct {
	bundle         BundleID
	weight         float64
	insertionOrder uint64
}

// bundleQueue is a max-heap over (spill_weight, insertion order),
// insertion order breaking ties so that processing is deterministic
// (§4.4, §5).
type bundleQueue struct {
	entries []queueEntry
}

func (q *bundleQueue) Len() int { return len(q.entries) }

func (q *bundleQueue) Less(i, j int) bool {
	a, b := q.entries[i], q.entries[j]
	if a.weight != b.weight {
		return a.weight > b.weight
	}
	return a.insertionOrder < b.insertionOrder
}

func (q *bundleQueue) Swap(i, j int) {
	q.entries[i], q.entries[j] = q.entries[j], q.entries[i]
}

func (q *bundleQueue) Push(x any) {
	q.entries = append(q.entries, x.(queueEntry))
}

func (q *bundleQueue) Pop() any {
	old := q.entries
	n := len(old)
	e := old[n-1]
	q.entries = old[:n-1]
	return e
}

// initializeQueue pushes every bundle produced by mergeBundles onto the
// priority queue, keyed by its spill weight (§2 "queue_bundles").
func (e *Env) initializeQueue() {
	e.queue = &bundleQueue{}
	heap.Init(e.queue)
	for i := range e.bundles {
		id := BundleID(i)
		e.pushBundle(id, e.bundleSpillWeight(id))
	}
}

func (e *Env) pushBundle(id BundleID, weight float64) {
	heap.Push(e.queue, queueEntry{
		bundle:         id,
		weight:         weight,
		insertionOrder: e.bundles[id].insertionOrder,
	})
}

func (e *Env) popBundle() (BundleID, bool) {
	if e.queue.Len() == 0 {
		return BundleIDInvalid, false
	}
	entry := heap.Pop(e.queue).(queueEntry)
	return entry.bundle, true
}
