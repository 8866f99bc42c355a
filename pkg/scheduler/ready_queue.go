package scheduler

import (
	"container/heap"

	"github.com/metasched/metasched/pkg/types"
)

// readyQueue tracks tasks whose predecessors have all completed, as a
// binary heap ordered by task id — the "sorted by task id ascending,
// deterministic tie-break" rule of spec.md §4.1, adapted from the
// teacher's OptimizedPriorityQueue (O(log n) push/pop instead of a
// re-sorted slice).
type readyQueue struct {
	heap   *idHeap
	queued map[types.TaskID]bool
}

func newReadyQueue(instance *types.ProblemInstance) *readyQueue {
	h := &idHeap{}
	heap.Init(h)
	q := &readyQueue{heap: h, queued: make(map[types.TaskID]bool, len(instance.Tasks))}
	for _, taskID := range instance.TaskIDsSorted() {
		if len(instance.Tasks[taskID].PredecessorIDs) == 0 {
			heap.Push(h, taskID)
			q.queued[taskID] = true
		}
	}
	return q
}

// selectReady promotes every not-yet-queued, not-yet-completed task whose
// predecessors are all in completed, then drains the whole heap in
// ascending task-id order — one "layer" of spec.md §4.1 step 1/2,
// including its redundant predecessors-complete check against staged
// insertion.
func (q *readyQueue) selectReady(completed map[types.TaskID]bool, tasks map[types.TaskID]types.Task) []types.TaskID {
	q.promote(completed, tasks)

	var selected []types.TaskID
	for q.heap.Len() > 0 {
		taskID := heap.Pop(q.heap).(types.TaskID)
		delete(q.queued, taskID)
		if completed[taskID] {
			continue
		}
		if predecessorsSatisfied(tasks[taskID], completed) {
			selected = append(selected, taskID)
		}
	}
	return selected
}

func (q *readyQueue) promote(completed map[types.TaskID]bool, tasks map[types.TaskID]types.Task) {
	for id, t := range tasks {
		if completed[id] || q.queued[id] {
			continue
		}
		if predecessorsSatisfied(t, completed) {
			heap.Push(q.heap, id)
			q.queued[id] = true
		}
	}
}

func predecessorsSatisfied(t types.Task, completed map[types.TaskID]bool) bool {
	for _, pred := range t.PredecessorIDs {
		if !completed[pred] {
			return false
		}
	}
	return true
}

// idHeap is a min-heap of task ids implementing container/heap.Interface.
type idHeap []types.TaskID

func (h idHeap) Len() int            { return len(h) }
func (h idHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x interface{}) { *h = append(*h, x.(types.TaskID)) }
func (h *idHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
