// Package queue implements the per-connection outbound frame queue (C2):
// an unbounded, ordered FIFO of outbound text frames with a non-blocking,
// always-succeeding Enqueue and a blocking Dequeue consumed by exactly one
// writer goroutine per connection.
//
// The teacher's Client.send is a bounded buffered channel that drops a
// frame when full (internal/v1/session/client.go: "select { case c.send
// <- data: default: ... }"). This hub's delivery contract is different —
// "Enqueue is non-blocking and never fails while the queue is alive" — so
// the queue here grows instead of dropping, backed by a linked list
// guarded by a mutex and a condition variable, in the same spirit as the
// teacher's container/list-backed draw-order queues (internal/v1/session/room.go).
package queue

import (
	"container/list"
	"sync"
)

// Queue is a single producer-many / single consumer-one unbounded FIFO of
// outbound byte frames. The zero value is not usable; use New.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  *list.List
	closed bool
}

// New returns a ready-to-use Queue.
func New() *Queue {
	q := &Queue{items: list.New()}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends frame to the tail of the queue. It never blocks and
// never fails while the queue is open; once Close has been called,
// Enqueue silently drops frame and reports false, matching the
// EnqueueFailed error kind's "ignored by producers" contract (§7).
func (q *Queue) Enqueue(frame []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items.PushBack(frame)
	q.cond.Signal()
	return true
}

// Dequeue blocks until a frame is available or the queue is closed. The
// second return value is false only once the queue is closed and drained;
// the writer goroutine should exit its drain loop when it sees false.
func (q *Queue) Dequeue() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Len() == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.items.Len() == 0 {
		return nil, false
	}
	front := q.items.Front()
	q.items.Remove(front)
	return front.Value.([]byte), true
}

// Close marks the queue closed, waking any blocked Dequeue so the writer
// goroutine can observe the closure and exit. Subsequent Enqueue calls are
// no-ops. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// Len reports the current number of queued frames. Intended for tests and
// metrics, not for flow control.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}
