package interceptor

import (
	"sync"

	"github.com/vk/prompttrace/internal/tracking"
)

// linkItem is one pending artifact link. The record is a snapshot taken
// at enqueue time; it may be semantically stale by the time the worker
// processes it, which is an accepted tradeoff.
type linkItem struct {
	artifactPath string
	record       *tracking.Record
	metadata     map[string]any
}

// linkQueue is an unbounded FIFO feeding the background worker. Enqueue
// never blocks beyond the mutex; the worker blocks on pop until an item
// arrives or the queue closes.
type linkQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []linkItem
	closed bool
}

func newLinkQueue() *linkQueue {
	q := &linkQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends an item. Pushing to a closed queue is a silent no-op;
// shutdown races with late save hooks are not worth failing over.
func (q *linkQueue) push(item linkItem) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, item)
	q.cond.Signal()
}

// pop blocks until an item is available or the queue is closed and
// drained. The second return value is false once the queue is exhausted.
func (q *linkQueue) pop() (linkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return linkItem{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// close stops the queue. Items already enqueued are still drained.
func (q *linkQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// len reports the number of pending items.
func (q *linkQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
