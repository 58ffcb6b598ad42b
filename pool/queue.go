package pool

import (
	"sync"

	"go.uber.org/atomic"
)

// Queue is a multi-producer/multi-consumer FIFO queue.
//
// A Queue starts valid; Invalidate flips it permanently invalid, waking
// every blocked producer and consumer. Operations on an invalid queue fail
// by returning false.
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    []interface{}
	valid    *atomic.Bool
}

// NewQueue returns an empty, valid queue.
func NewQueue() *Queue {
	q := &Queue{valid: atomic.NewBool(true)}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Push appends v without bound.
func (q *Queue) Push(v interface{}) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, v)
	q.notEmpty.Signal()
}

// TryPush appends v without blocking. It returns false if the queue has
// been invalidated.
func (q *Queue) TryPush(v interface{}) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.valid.Load() {
		return false
	}
	q.items = append(q.items, v)
	q.notEmpty.Signal()
	return true
}

// WaitPush appends v once the queue holds fewer than max items, blocking
// while it is full. It returns false if the queue was invalidated while
// waiting.
func (q *Queue) WaitPush(v interface{}, max int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) >= max && q.valid.Load() {
		q.notFull.Wait()
	}
	if !q.valid.Load() {
		return false
	}
	q.items = append(q.items, v)
	q.notEmpty.Signal()
	return true
}

// TryPop removes and returns the first item without blocking. It returns
// false if the queue is empty or invalid.
func (q *Queue) TryPop() (interface{}, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 || !q.valid.Load() {
		return nil, false
	}
	return q.pop(), true
}

// WaitPop removes and returns the first item, blocking while the queue is
// empty. It returns false if the queue was invalidated while waiting.
func (q *Queue) WaitPop() (interface{}, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && q.valid.Load() {
		q.notEmpty.Wait()
	}
	if !q.valid.Load() {
		return nil, false
	}
	return q.pop(), true
}

// Drain removes and returns every queued item, even after invalidation.
func (q *Queue) Drain() []interface{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	q.notFull.Broadcast()
	return items
}

// Clear discards all queued items, waking blocked producers.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
	q.notFull.Broadcast()
}

// Invalidate permanently invalidates the queue and wakes every waiter.
// All subsequent operations fail.
func (q *Queue) Invalidate() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.valid.Load() {
		return
	}
	q.valid.Store(false)
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Valid reports whether the queue has not been invalidated.
func (q *Queue) Valid() bool { return q.valid.Load() }

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Empty reports whether the queue holds no items.
func (q *Queue) Empty() bool { return q.Len() == 0 }

// pop removes the head; callers hold mu and guarantee non-empty.
func (q *Queue) pop() interface{} {
	v := q.items[0]
	q.items = q.items[1:]
	q.notFull.Signal()
	return v
}
