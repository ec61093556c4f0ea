package vector

import (
	"container/heap"
	"sort"
)

// InnerProduct scores two vectors; for unit vectors this is cosine similarity.
// Mismatched or empty vectors score 0.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

type ranked struct {
	res *Result
	seq int
}

// worse orders by score, then by arrival: on equal scores the earlier entry ranks higher.
func worse(a, b ranked) bool {
	if a.res.Score != b.res.Score {
		return a.res.Score < b.res.Score
	}
	return a.seq > b.seq
}

type rankHeap []ranked

func (h rankHeap) Len() int            { return len(h) }
func (h rankHeap) Less(i, j int) bool  { return worse(h[i], h[j]) }
func (h rankHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *rankHeap) Push(x interface{}) { *h = append(*h, x.(ranked)) }
func (h *rankHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topK keeps the k best results seen by offer, in insertion order for ties.
type topK struct {
	k    int
	seq  int
	heap rankHeap
}

func newTopK(k int) *topK {
	return &topK{k: k, heap: make(rankHeap, 0, k)}
}

func (t *topK) offer(r *Result) {
	c := ranked{res: r, seq: t.seq}
	t.seq++
	if len(t.heap) < t.k {
		heap.Push(&t.heap, c)
		return
	}
	if worse(t.heap[0], c) {
		t.heap[0] = c
		heap.Fix(&t.heap, 0)
	}
}

// results returns the kept results, best first.
func (t *topK) results() []*Result {
	sorted := append(rankHeap(nil), t.heap...)
	sort.Slice(sorted, func(i, j int) bool { return worse(sorted[j], sorted[i]) })
	out := make([]*Result, len(sorted))
	for i, c := range sorted {
		out[i] = c.res
	}
	return out
}
