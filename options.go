// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package spsc

// Option configures a Queue at construction time.
type Option[T any] func(*options[T])

type options[T any] struct {
	release func(*T)
}

// WithRelease registers fn to be called exactly once for every element
// the queue discards instead of handing to the consumer: elements still
// queued at Clear, Resize or Close.
//
// Elements returned by Dequeue are owned by the caller and never passed
// to fn.
//
// Example:
//
//	pool := sync.Pool{New: func() any { return new(Block) }}
//	q, _ := spsc.NewQueue(64, spsc.WithRelease(func(b **Block) {
//	    pool.Put(*b)
//	}))
//	defer q.Close() // unconsumed blocks go back to the pool
func WithRelease[T any](fn func(*T)) Option[T] {
	return func(o *options[T]) {
		o.release = fn
	}
}

// maxCapacity is the largest capacity that still rounds to a power of 2
// representable as int.
const maxCapacity = 1 << (bitsPerInt - 2)

const bitsPerInt = 32 << (^uint(0) >> 63)

// roundToPow2 rounds n up to the next power of 2.
// n must be in [1, maxCapacity].
func roundToPow2(n int) int {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte
