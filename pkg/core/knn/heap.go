package knn

import "container/heap"

// Candidate is a neighbour under consideration, identified by row index.
type Candidate struct {
	ID       int
	Distance float64
}

// worse reports whether a ranks after b: larger distance first, then larger ID.
func worse(a, b Candidate) bool {
	if a.Distance != b.Distance {
		return a.Distance > b.Distance
	}
	return a.ID > b.ID
}

// maxHeap keeps the k best candidates seen so far. The root is the worst of
// the best, so it can be replaced when a closer row turns up.
type maxHeap []Candidate

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return worse(h[i], h[j]) }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *maxHeap) Push(x any) { *h = append(*h, x.(Candidate)) }

func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

func newMaxHeap(capacity int) *maxHeap {
	h := make(maxHeap, 0, capacity)
	heap.Init(&h)
	return &h
}

// offer inserts c if the heap has room or c beats the current worst.
func (h *maxHeap) offer(c Candidate, k int) {
	if h.Len() < k {
		heap.Push(h, c)
		return
	}
	if k > 0 && worse((*h)[0], c) {
		(*h)[0] = c
		heap.Fix(h, 0)
	}
}

// drain empties the heap and returns its contents nearest first.
func (h *maxHeap) drain() []Candidate {
	out := make([]Candidate, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Candidate)
	}
	return out
}
