// Package schedule provides the orchestrator-owned queue of delayed tasks
// used for conversational pacing. Every pending task is tracked so teardown
// cancels the whole queue instead of leaving fire-and-forget timers behind.
package schedule

import (
	"sync"
	"time"
)

// Queue schedules delayed tasks and cancels all of them on Stop.
type Queue struct {
	// afterFunc is swappable in tests.
	afterFunc func(time.Duration, func()) *time.Timer

	mu      sync.Mutex
	next    int
	pending map[int]*time.Timer
	stopped bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		afterFunc: time.AfterFunc,
		pending:   make(map[int]*time.Timer),
	}
}

// NewQueueWithAfterFunc creates a queue with a custom timer source.
func NewQueueWithAfterFunc(afterFunc func(time.Duration, func()) *time.Timer) *Queue {
	q := NewQueue()
	if afterFunc != nil {
		q.afterFunc = afterFunc
	}
	return q
}

// After runs fn once d elapses, unless the queue is stopped first. Tasks
// scheduled after Stop are dropped.
func (q *Queue) After(d time.Duration, fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return
	}
	id := q.next
	q.next++
	q.pending[id] = q.afterFunc(d, func() {
		q.mu.Lock()
		if q.stopped {
			q.mu.Unlock()
			return
		}
		delete(q.pending, id)
		q.mu.Unlock()
		fn()
	})
}

// Stop cancels every pending task. The queue accepts no further work.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopped = true
	for id, t := range q.pending {
		t.Stop()
		delete(q.pending, id)
	}
}

// PendingLen returns the number of tasks not yet fired.
func (q *Queue) PendingLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
