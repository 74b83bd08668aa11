// Package queue implements the thread-safe unbounded FIFO task queue:
// producers never block, Get blocks until non-empty, and FIFO discipline
// is the transmit-order invariant the rest of the comms core depends on.
package queue

import (
	"sync"

	"github.com/gpulayers/device-comms/internal/task"
)

// Queue is a thread-safe unbounded FIFO of *task.Message. The zero value is
// not ready for use; construct with New.
type Queue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	store []*task.Message
}

// New returns an empty, ready-to-use Queue.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Put appends a message to the tail of the queue and wakes one waiter.
// Never blocks: the queue is bounded only by available memory.
func (q *Queue) Put(m *task.Message) {
	q.mu.Lock()
	q.store = append(q.store, m)
	q.mu.Unlock()
	q.cond.Signal()
}

// Get blocks until the queue is non-empty, then removes and returns the
// message at the head: FIFO order == enqueue order == wire order.
func (q *Queue) Get() *task.Message {
	q.mu.Lock()
	for len(q.store) == 0 {
		q.cond.Wait()
	}
	m := q.store[0]
	q.store[0] = nil // avoid retaining the reference in the backing array
	q.store = q.store[1:]
	q.mu.Unlock()
	return m
}

// IsEmpty is a racy snapshot: the queue may not stay empty if other
// goroutines are still using it.
func (q *Queue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.store) == 0
}

// Len is a racy snapshot of the current queue depth, used only for
// metrics/diagnostics.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.store)
}
