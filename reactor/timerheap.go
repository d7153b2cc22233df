// File: reactor/timerheap.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"time"

	"github.com/momentics/hioload-reactor/api"
)

// task is a deadline-ordered unit of deferred work. Ownership transfers into
// the heap on scheduling and is consumed when the task fires.
type task struct {
	when time.Time
	fn   api.Callback
}

// taskHeap is a binary min-heap of tasks; the root holds the earliest
// deadline. Tasks with equal deadlines have no defined relative order.
type taskHeap []task

func (h taskHeap) Len() int           { return len(h) }
func (h taskHeap) Less(i, j int) bool { return h[i].when.Before(h[j].when) }
func (h taskHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	*h = append(*h, x.(task))
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = task{}
	*h = old[:n-1]
	return x
}
