// Package queue implements the bounded blocking queue spec.md §4.5
// describes: a capacity-bounded FIFO producer/consumer handoff built on
// two counting semaphores (free slots, available items) and a mutex-
// guarded doubly linked list whose nodes are drawn from a fixed-size
// pool.
//
// Grounded on original_source/pcQueue.c and pcQueue.h, and on
// _examples/yusing-goutils/eventqueue/queue.go (of which only the New
// constructor shape is kept; there are no Options and no callbacks); the teacher's
// ticker-driven batch-flush semantics are replaced with the strict
// single-item FIFO protocol spec.md requires, since batch flush isn't
// expressible under a strict bounded handoff.
//
// Node cells come from a small fixed-capacity free list of *node structs
// local to this package rather than mempool.FixedPool: queue elements are
// generic (T any) and may hold pointers, and mempool.FixedPool's byte
// cells are meant for pointer-free payloads (see sortedmap's and
// seglist's doc comments on the same constraint) — the free-list here
// gives the same O(1) alloc/free and fixed-depth capacity FixedPool gives
// for a byte payload, generalized to an arbitrary T.
package queue

import (
	"sync"

	cerr "github.com/coriolis-labs/concord/errs"
	"github.com/coriolis-labs/concord/sem"
)

type node[T any] struct {
	value T
	next  *node[T]
	prev  *node[T]
}

// Queue is a bounded FIFO of capacity elements, safe for concurrent
// producers and consumers.
type Queue[T any] struct {
	capacity int

	mu         sync.Mutex
	head, tail *node[T]
	freeHead   *node[T] // recycled node cells

	slots *sem.Semaphore // free slots, starts at capacity
	items *sem.Semaphore // occupied slots, starts at 0
}

// New creates an empty queue of the given capacity. capacity must be > 0.
func New[T any](capacity int) (*Queue[T], cerr.Error) {
	if capacity <= 0 {
		return nil, cerr.InvalidArgument("queue.New: capacity must be > 0")
	}
	slots, err := sem.New(capacity)
	if err != nil {
		return nil, err
	}
	// items starts at 0, but sem.New requires maxValue > 0; seed it at 1
	// and immediately drain it back to 0, the same trick package
	// workerpool uses for a future's result semaphore.
	items, err := sem.New(1)
	if err != nil {
		return nil, err
	}
	items.Down() //nolint:errcheck

	q := &Queue[T]{capacity: capacity, slots: slots, items: items}
	// Pre-link capacity free cells so alloc never needs a heap allocation
	// on the hot path beyond the first capacity uses.
	for range capacity {
		q.freeHead = &node[T]{next: q.freeHead}
	}
	return q, nil
}

func (q *Queue[T]) allocNode() *node[T] {
	n := q.freeHead
	if n == nil {
		n = &node[T]{}
	} else {
		q.freeHead = n.next
	}
	n.next, n.prev = nil, nil
	return n
}

func (q *Queue[T]) releaseNode(n *node[T]) {
	var zero T
	n.value = zero
	n.next = q.freeHead
	n.prev = nil
	q.freeHead = n
}

func (q *Queue[T]) pushLocked(value T) {
	n := q.allocNode()
	n.value = value
	n.prev = q.tail
	if q.tail != nil {
		q.tail.next = n
	} else {
		q.head = n
	}
	q.tail = n
}

func (q *Queue[T]) popLocked() T {
	n := q.head
	q.head = n.next
	if q.head != nil {
		q.head.prev = nil
	} else {
		q.tail = nil
	}
	value := n.value
	q.releaseNode(n)
	return value
}

// Enqueue blocks until a slot is free, then appends value. A zero value
// of T may be enqueued and dequeued verbatim; the queue ascribes no
// meaning to it (spec.md §4.5's sentinel-semantics note — callers that
// want a shutdown convention build it on top of this).
func (q *Queue[T]) Enqueue(value T) cerr.Error {
	if err := q.slots.Down(); err != nil {
		return err
	}

	q.mu.Lock()
	q.pushLocked(value)
	q.mu.Unlock()

	return q.items.Up()
}

// TimedEnqueue is Enqueue with a deadline on the initial slot wait only —
// per spec.md §4.5's "loose timeout" contract, once the wait succeeds the
// remaining steps are not deadline-checked, since they involve only
// bounded-time mutex operations.
func (q *Queue[T]) TimedEnqueue(value T, timeoutMillis int64) cerr.Error {
	if err := q.slots.TimedOp(-1, timeoutMillis); err != nil {
		return err
	}

	q.mu.Lock()
	q.pushLocked(value)
	q.mu.Unlock()

	return q.items.Up()
}

// Dequeue blocks until an item is available, then removes and returns the
// head of the queue.
func (q *Queue[T]) Dequeue() (T, cerr.Error) {
	var zero T
	if err := q.items.Down(); err != nil {
		return zero, err
	}

	q.mu.Lock()
	value := q.popLocked()
	q.mu.Unlock()

	if err := q.slots.Up(); err != nil {
		return zero, err
	}
	return value, nil
}

// TimedDequeue is Dequeue with a deadline on the initial item wait only,
// the same "loose timeout" contract TimedEnqueue documents.
func (q *Queue[T]) TimedDequeue(timeoutMillis int64) (T, cerr.Error) {
	var zero T
	if err := q.items.TimedOp(-1, timeoutMillis); err != nil {
		return zero, err
	}

	q.mu.Lock()
	value := q.popLocked()
	q.mu.Unlock()

	if err := q.slots.Up(); err != nil {
		return zero, err
	}
	return value, nil
}

// Len reports the number of items currently queued. Intended for
// debug/stats reporting; like sem.Semaphore.Value, it is stale the
// instant it is read under concurrent use.
func (q *Queue[T]) Len() int {
	return q.items.Value()
}

// Capacity reports the queue's fixed depth.
func (q *Queue[T]) Capacity() int {
	return q.capacity
}
