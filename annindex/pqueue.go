package annindex

import "container/heap"

// item is an entry in a priorityQueue: a graph label and its distance to
// the vector currently being searched for.
type item struct {
	label    uint64
	distance float32
	index    int // maintained by heap.Interface
}

// priorityQueue implements heap.Interface. When max is true it behaves as
// a max-heap (top returns the largest distance, used for the bounded
// result set during a beam search); otherwise it is a min-heap (used for
// the candidate frontier during traversal).
type priorityQueue struct {
	max   bool
	items []*item
}

func (pq *priorityQueue) Len() int { return len(pq.items) }

func (pq *priorityQueue) Less(i, j int) bool {
	if pq.max {
		return pq.items[i].distance > pq.items[j].distance
	}
	return pq.items[i].distance < pq.items[j].distance
}

func (pq *priorityQueue) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
	pq.items[i].index, pq.items[j].index = i, j
}

func (pq *priorityQueue) Push(x any) {
	it := x.(*item)
	it.index = len(pq.items)
	pq.items = append(pq.items, it)
}

func (pq *priorityQueue) Pop() any {
	old := pq.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	pq.items = old[:n-1]
	return it
}

// top returns the head of the queue without removing it. The queue must
// be non-empty.
func (pq *priorityQueue) top() *item { return pq.items[0] }

func newQueue(max bool) *priorityQueue {
	pq := &priorityQueue{max: max}
	heap.Init(pq)
	return pq
}

func heapPush(pq *priorityQueue, it *item) {
	heap.Push(pq, it)
}

func heapPop(pq *priorityQueue) *item {
	return heap.Pop(pq).(*item)
}
