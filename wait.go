// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package spsc

import (
	"context"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
)

// spinLimit bounds the busy-wait phase before falling back to backoff.
const spinLimit = 64

// EnqueueWait retries p.Enqueue until it succeeds, fails with an error
// other than ErrWouldBlock, or ctx is done.
//
// The waiting happens here, in the caller, never inside the queue: the
// first attempts spin with a CPU pause, later ones back off adaptively.
// One attempt is always made, even if ctx is already done.
//
// Not for use from latency-critical producers such as capture callbacks;
// those should treat ErrWouldBlock as "drop" instead.
func EnqueueWait[T any](ctx context.Context, p Producer[T], elem *T) error {
	sw := spin.Wait{}
	backoff := iox.Backoff{}
	for i := 0; ; i++ {
		err := p.Enqueue(elem)
		if !IsWouldBlock(err) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if i < spinLimit {
			sw.Once()
		} else {
			backoff.Wait()
		}
	}
}

// DequeueWait retries c.Dequeue until it yields an element, fails with an
// error other than ErrWouldBlock, or ctx is done.
func DequeueWait[T any](ctx context.Context, c Consumer[T]) (T, error) {
	sw := spin.Wait{}
	backoff := iox.Backoff{}
	for i := 0; ; i++ {
		elem, err := c.Dequeue()
		if !IsWouldBlock(err) {
			return elem, err
		}
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, err
		}
		if i < spinLimit {
			sw.Once()
		} else {
			backoff.Wait()
		}
	}
}
