// Package queue implements the bounded candidate heap used for top-k
// selection.
package queue

// CandidateItem represents a scored entry in the candidate queue.
// Value-based (no pointers) for cache locality and zero allocations.
type CandidateItem struct {
	ID       uint64  // Stored entry identifier
	Position uint32  // Insertion position of the entry in the store
	Distance float32 // Squared distance to the query
}

// worse reports whether a should be evicted before b: larger distance
// first, later insertion position on equal distance. The position rule is
// what makes result order deterministic for tied distances.
func worse(a, b CandidateItem) bool {
	if a.Distance != b.Distance {
		return a.Distance > b.Distance
	}
	return a.Position > b.Position
}

// MaxQueue is a binary max-heap of candidates ordered by (distance,
// position). The top element is the current worst candidate, so a bounded
// top-k selection evicts it whenever a better candidate arrives.
type MaxQueue struct {
	items []CandidateItem
}

// NewMax initializes a candidate queue with the given capacity hint.
func NewMax(capacity int) *MaxQueue {
	return &MaxQueue{
		items: make([]CandidateItem, 0, capacity),
	}
}

// Len returns the number of candidates in the queue.
func (pq *MaxQueue) Len() int { return len(pq.items) }

// TopItem returns the worst candidate currently held.
func (pq *MaxQueue) TopItem() (CandidateItem, bool) {
	if len(pq.items) == 0 {
		return CandidateItem{}, false
	}
	return pq.items[0], true
}

// PushItem inserts an item while maintaining the heap invariant.
func (pq *MaxQueue) PushItem(item CandidateItem) {
	pq.items = append(pq.items, item)
	pq.siftUp(len(pq.items) - 1)
}

// PopItem removes and returns the worst candidate.
func (pq *MaxQueue) PopItem() (CandidateItem, bool) {
	n := len(pq.items)
	if n == 0 {
		return CandidateItem{}, false
	}
	root := pq.items[0]
	last := pq.items[n-1]
	pq.items[n-1] = CandidateItem{}
	pq.items = pq.items[:n-1]
	if n-1 > 0 {
		pq.items[0] = last
		pq.siftDown(0)
	}
	return root, true
}

func (pq *MaxQueue) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !worse(pq.items[i], pq.items[p]) {
			return
		}
		pq.items[i], pq.items[p] = pq.items[p], pq.items[i]
		i = p
	}
}

func (pq *MaxQueue) siftDown(i int) {
	n := len(pq.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		worst := l
		r := l + 1
		if r < n && worse(pq.items[r], pq.items[l]) {
			worst = r
		}
		if !worse(pq.items[worst], pq.items[i]) {
			return
		}
		pq.items[i], pq.items[worst] = pq.items[worst], pq.items[i]
		i = worst
	}
}
