package irq

import "sync"

// Work is a deferred work item.
type Work struct {
	// Seq is stamped at enqueue time.
	Seq int64
	// Name describes the item in logs and traces, e.g. "hf_ready".
	Name string
	// Line is the interrupt line that produced the item.
	Line Line
	// Run executes the item in the low-priority context.
	Run func()
}

// workQueue is a thread-safe FIFO queue of work items.
//
// The queue is unbounded: a handler must never block or drop work because the
// application is slow to drain.
//
// Enqueue is called from the high tier (under the high-priority lock) and
// occasionally from the low tier; TryDequeue only from the drain.
type workQueue struct {
	mu    sync.Mutex
	items []Work
}

func newWorkQueue() *workQueue {
	return &workQueue{
		items: make([]Work, 0, 16),
	}
}

// Enqueue appends w to the back of the queue.
func (q *workQueue) Enqueue(w Work) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, w)
}

// TryDequeue removes and returns the front item.
// Returns (Work{}, false) if the queue is empty.
func (q *workQueue) TryDequeue() (Work, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Work{}, false
	}

	w := q.items[0]

	// Clear the slot so the closure can be collected.
	q.items[0] = Work{}

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return w, true
}

// Len returns the number of queued items.
func (q *workQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Reset drops every queued item.
func (q *workQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	clear(q.items)
	q.items = q.items[:0]
}
