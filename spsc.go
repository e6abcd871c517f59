// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package spsc

import (
	"fmt"

	"code.hybscloud.com/atomix"
)

// Queue is a bounded single-producer single-consumer FIFO queue.
//
// Every slot carries two sequence markers. The producer owns writeSeq and
// stores it with release ordering once the value is in place; the consumer
// owns readSeq and stores it with release ordering once the value has been
// moved out. No memory location other than these counters is written by both
// sides, so neither Enqueue nor Dequeue takes a lock, retries or spins.
//
// Slot state for logical position k (physical index k&mask):
//
//	readSeq == k             available for write at k
//	writeSeq == k            full, readable at k
//	readSeq == k + capacity  available again one lap later
//
// Exactly one goroutine may call Enqueue and exactly one may call Dequeue.
// Violating this is not detected.
//
// Memory: O(capacity), allocated once by NewQueue or Resize.
type Queue[T any] struct {
	_          pad
	enqueuePos atomix.Uint64 // Next position the producer claims
	_          pad
	dequeuePos atomix.Uint64 // Next position the consumer claims
	_          pad
	slots      []slot[T]
	mask       uint64
	capacity   uint64
	release    func(*T)
	closed     bool
}

type slot[T any] struct {
	writeSeq atomix.Uint64 // Last position published by the producer
	readSeq  atomix.Uint64 // Position at which the producer may write again
	data     T
}

// NewQueue creates a queue holding at least capacity elements.
// Capacity rounds up to the next power of 2.
// Returns ErrInvalidCapacity if capacity < 1 or too large to round.
func NewQueue[T any](capacity int, opts ...Option[T]) (*Queue[T], error) {
	n, err := checkCapacity(capacity)
	if err != nil {
		return nil, err
	}

	var o options[T]
	for _, opt := range opts {
		opt(&o)
	}

	q := &Queue[T]{release: o.release}
	q.init(n)
	return q, nil
}

// MustNewQueue is like NewQueue but panics on an invalid capacity.
func MustNewQueue[T any](capacity int, opts ...Option[T]) *Queue[T] {
	q, err := NewQueue(capacity, opts...)
	if err != nil {
		panic(err)
	}
	return q
}

func checkCapacity(capacity int) (uint64, error) {
	if capacity < 1 || capacity > maxCapacity {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return uint64(roundToPow2(capacity)), nil
}

func (q *Queue[T]) init(n uint64) {
	q.slots = make([]slot[T], n)
	q.mask = n - 1
	q.capacity = n

	for i := uint64(0); i < n; i++ {
		q.slots[i].readSeq.StoreRelaxed(i)
		// Wraps below zero for the first lap, never equal to a position
		// the consumer can reach before the producer publishes.
		q.slots[i].writeSeq.StoreRelaxed(i - n)
	}

	q.enqueuePos.StoreRelaxed(0)
	q.dequeuePos.StoreRelease(0)
}

// Enqueue copies *elem into the queue (producer only).
// Returns ErrWouldBlock if the queue is full; the queue is left unchanged.
func (q *Queue[T]) Enqueue(elem *T) error {
	if q.closed {
		return ErrClosed
	}

	pos := q.enqueuePos.LoadRelaxed()
	s := &q.slots[pos&q.mask]
	if s.readSeq.LoadAcquire() != pos {
		return ErrWouldBlock
	}

	s.data = *elem
	s.writeSeq.StoreRelease(pos)
	q.enqueuePos.StoreRelease(pos + 1)
	return nil
}

// Dequeue removes and returns the oldest element (consumer only).
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *Queue[T]) Dequeue() (T, error) {
	var zero T
	if q.closed {
		return zero, ErrClosed
	}

	pos := q.dequeuePos.LoadRelaxed()
	s := &q.slots[pos&q.mask]
	if s.writeSeq.LoadAcquire() != pos {
		return zero, ErrWouldBlock
	}

	elem := s.data
	s.data = zero
	s.readSeq.StoreRelease(pos + q.capacity)
	q.dequeuePos.StoreRelease(pos + 1)
	return elem, nil
}

// Len returns the number of queued elements.
//
// The result is advisory: it may be stale by the time it is returned.
// Safe to call from any goroutine. Never use it to decide whether
// Enqueue or Dequeue will succeed.
func (q *Queue[T]) Len() int {
	deq := q.dequeuePos.LoadAcquire()
	enq := q.enqueuePos.LoadAcquire()
	if enq <= deq {
		return 0
	}
	if n := enq - deq; n < q.capacity {
		return int(n)
	}
	return int(q.capacity)
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return int(q.capacity)
}

// Clear discards every queued element, passing each to the release
// hook if one was configured.
//
// Not safe for concurrent use: the caller must ensure no Enqueue or
// Dequeue is in flight.
func (q *Queue[T]) Clear() {
	if q.closed {
		return
	}
	for {
		elem, err := q.Dequeue()
		if err != nil {
			return
		}
		if q.release != nil {
			q.release(&elem)
		}
	}
}

// Resize discards every queued element (see Clear), replaces the slot
// array with one holding at least capacity elements and resets both
// positions to zero.
//
// Not safe for concurrent use. On error the queue is unchanged.
func (q *Queue[T]) Resize(capacity int) error {
	if q.closed {
		return ErrClosed
	}
	n, err := checkCapacity(capacity)
	if err != nil {
		return err
	}

	q.Clear()
	q.init(n)
	return nil
}

// Close discards every queued element (see Clear) and releases the slot
// array. Later Enqueue, Dequeue and Resize calls return ErrClosed.
//
// Close must only run after both producer and consumer have stopped.
// Calling Close more than once is a no-op.
func (q *Queue[T]) Close() {
	if q.closed {
		return
	}
	q.Clear()
	q.slots = nil
	q.closed = true
}
