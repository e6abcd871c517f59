// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package spsc provides a bounded lock-free single-producer single-consumer
// FIFO queue for handing fixed-size items, typically audio sample blocks,
// from a fast producer (a capture callback) to a processing goroutine.
//
// # Quick Start
//
//	q, err := spsc.NewQueue[Block](64)
//	if err != nil {
//	    return err // ErrInvalidCapacity
//	}
//
//	// Producer goroutine
//	if err := q.Enqueue(&blk); spsc.IsWouldBlock(err) {
//	    dropped++ // queue full: drop or apply backpressure
//	}
//
//	// Consumer goroutine
//	blk, err := q.Dequeue()
//	if spsc.IsWouldBlock(err) {
//	    // queue empty: nothing to do this iteration
//	}
//
// # Algorithm
//
// The queue is a fixed array of slots indexed by position&(capacity-1).
// Two 64-bit positions grow monotonically: one owned by the producer, one by
// the consumer. Each slot carries a write marker, published by the producer
// with release ordering after the value is stored, and a read marker,
// published by the consumer with release ordering after the value is moved
// out. A side may touch a slot only when the other side's marker equals its
// own position, observed with acquire ordering.
//
// Per slot the state cycles forever:
//
//	AVAILABLE(k) --enqueue--> FULL(k) --dequeue--> AVAILABLE(k+capacity)
//
// Enqueue and Dequeue are wait-free: each is one attempt with no internal
// retry, spin or lock. Neither side can delay the other.
//
// # Capacity and Length
//
// Capacity rounds up to the next power of 2:
//
//	spsc.NewQueue[int](1)  // Actual capacity: 1
//	spsc.NewQueue[int](5)  // Actual capacity: 8
//	spsc.NewQueue[int](8)  // Actual capacity: 8
//	spsc.NewQueue[int](0)  // ErrInvalidCapacity
//
// Len is advisory only. It may be stale the moment it returns and must not
// gate correctness; use it for diagnostics and backpressure hints.
//
// # Error Handling
//
// A full or empty queue is reported as [ErrWouldBlock], sourced from
// [code.hybscloud.com/iox]. It is a control flow signal, never a panic.
//
//	spsc.IsWouldBlock(err) // true if queue full/empty
//	spsc.IsSemantic(err)   // true if control flow signal
//	spsc.IsNonFailure(err) // true if nil or ErrWouldBlock
//
// Callers that prefer waiting can compose it outside the queue with
// [EnqueueWait] and [DequeueWait], which honour a context deadline.
//
// # Non-concurrent Operations
//
// Clear, Resize and Close require that no Enqueue or Dequeue is in flight.
// They discard queued elements, passing each exactly once to the release
// hook configured with [WithRelease].
//
// # Thread Safety
//
// Exactly one goroutine may call Enqueue and exactly one may call Dequeue.
// Len and Cap may be called from any goroutine. Violating these constraints
// (e.g., two producers) causes undefined behavior including data corruption;
// it is not detected, since detecting it would need the synchronization the
// queue exists to avoid.
//
// # Race Detection
//
// Go's race detector cannot observe happens-before edges established through
// acquire-release orderings on separate variables. Slot data is guarded by
// the slot markers, so concurrent tests are skipped under -race via
// [RaceEnabled].
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause instructions
// in the caller-side wait helpers.
package spsc
