// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package spsc_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/spsc"
)

// TestEnqueueWaitImmediate tests that EnqueueWait succeeds without waiting
// when there is room.
func TestEnqueueWaitImmediate(t *testing.T) {
	q := spsc.MustNewQueue[int](2)
	v := 7
	if err := spsc.EnqueueWait(context.Background(), q, &v); err != nil {
		t.Fatalf("EnqueueWait: %v", err)
	}
	got, err := spsc.DequeueWait(context.Background(), q)
	if err != nil || got != 7 {
		t.Fatalf("DequeueWait: got (%d, %v), want (7, nil)", got, err)
	}
}

// TestEnqueueWaitDeadline tests that a full queue yields the context error.
func TestEnqueueWaitDeadline(t *testing.T) {
	q := spsc.MustNewQueue[int](1)
	v := 1
	if err := q.Enqueue(&v); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := spsc.EnqueueWait(ctx, q, &v)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("EnqueueWait on full: got %v, want DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("EnqueueWait returned after %v, before the deadline", elapsed)
	}
	if q.Len() != 1 {
		t.Fatalf("Len: got %d, want 1", q.Len())
	}
}

// TestDequeueWaitCanceled tests that an empty queue yields the context error.
func TestDequeueWaitCanceled(t *testing.T) {
	q := spsc.MustNewQueue[int](4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, err := spsc.DequeueWait(ctx, q)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("DequeueWait on empty: got (%d, %v), want Canceled", v, err)
	}
}

// TestWaitPropagatesClosed tests that errors other than ErrWouldBlock are
// returned immediately.
func TestWaitPropagatesClosed(t *testing.T) {
	q := spsc.MustNewQueue[int](4)
	q.Close()

	v := 1
	if err := spsc.EnqueueWait(context.Background(), q, &v); !errors.Is(err, spsc.ErrClosed) {
		t.Fatalf("EnqueueWait after Close: got %v, want ErrClosed", err)
	}
	if _, err := spsc.DequeueWait(context.Background(), q); !errors.Is(err, spsc.ErrClosed) {
		t.Fatalf("DequeueWait after Close: got %v, want ErrClosed", err)
	}
}

// TestWaitConcurrent tests a blocking-style pipeline built on the helpers.
func TestWaitConcurrent(t *testing.T) {
	if spsc.RaceEnabled {
		t.Skip("skip: slot data is guarded by atomix markers the race detector cannot see")
	}

	q := spsc.MustNewQueue[int](4)
	const n = 20_000

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var prodErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range n {
			v := i
			if err := spsc.EnqueueWait(ctx, q, &v); err != nil {
				prodErr = err
				return
			}
		}
	}()

	for i := range n {
		v, err := spsc.DequeueWait(ctx, q)
		if err != nil {
			t.Fatalf("DequeueWait(%d): %v", i, err)
		}
		if v != i {
			t.Fatalf("DequeueWait(%d): got %d", i, v)
		}
	}
	wg.Wait()
	if prodErr != nil {
		t.Fatalf("EnqueueWait: %v", prodErr)
	}
}
