package frontier

import (
	"container/heap"

	"github.com/nao1215/k8crawler/internal/model"
)

// item is a queued entry plus its insertion sequence number.
type item struct {
	entry model.FrontierEntry
	seq   uint64
}

// before orders items by priority (high first), then by insertion order.
func (a item) before(b item) bool {
	if a.entry.Priority != b.entry.Priority {
		return a.entry.Priority > b.entry.Priority
	}
	return a.seq < b.seq
}

// hostQueue is a heap of the entries of one host.
type hostQueue []item

func (q hostQueue) Len() int           { return len(q) }
func (q hostQueue) Less(i, j int) bool { return q[i].before(q[j]) }
func (q hostQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *hostQueue) Push(x any) {
	*q = append(*q, x.(item)) //nolint:forcetypeassert // only items are pushed
}

func (q *hostQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = item{}
	*q = old[:n-1]
	return it
}

func (q *hostQueue) push(it item) {
	heap.Push(q, it)
}

func (q *hostQueue) pop() item {
	return heap.Pop(q).(item) //nolint:forcetypeassert // only items are pushed
}

func (q hostQueue) head() item {
	return q[0]
}
