// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package spsc_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/spsc"
)

// releaseCounter records how often each value was passed to the release hook.
type releaseCounter map[int]int

func (rc releaseCounter) hook(v *int) {
	rc[*v]++
}

func (rc releaseCounter) check(t *testing.T, want ...int) {
	t.Helper()
	if len(rc) != len(want) {
		t.Fatalf("released %d distinct values, want %d: %v", len(rc), len(want), rc)
	}
	for _, v := range want {
		if rc[v] != 1 {
			t.Fatalf("value %d released %d times, want 1", v, rc[v])
		}
	}
}

// =============================================================================
// Clear
// =============================================================================

// TestQueueClear tests that Clear empties the queue and releases each
// queued element exactly once.
func TestQueueClear(t *testing.T) {
	rc := releaseCounter{}
	q := spsc.MustNewQueue(8, spsc.WithRelease(rc.hook))

	for i := range 6 {
		v := i
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	// Consumer takes two; they are its own now.
	for range 2 {
		if _, err := q.Dequeue(); err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
	}

	q.Clear()
	rc.check(t, 2, 3, 4, 5)

	if q.Len() != 0 {
		t.Fatalf("Len after Clear: got %d, want 0", q.Len())
	}
	if _, err := q.Dequeue(); !spsc.IsWouldBlock(err) {
		t.Fatalf("Dequeue after Clear: got %v, want ErrWouldBlock", err)
	}

	// The queue stays usable at full capacity.
	for i := range 8 {
		v := 100 + i
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("Enqueue after Clear (%d): %v", i, err)
		}
	}
	if v, err := q.Dequeue(); err != nil || v != 100 {
		t.Fatalf("Dequeue after Clear: got (%d, %v), want (100, nil)", v, err)
	}
}

// TestQueueClearWithoutHook tests Clear on a queue without a release hook.
func TestQueueClearWithoutHook(t *testing.T) {
	q := spsc.MustNewQueue[int](4)
	for i := range 3 {
		v := i
		q.Enqueue(&v)
	}
	q.Clear()
	if q.Len() != 0 {
		t.Fatalf("Len after Clear: got %d, want 0", q.Len())
	}
}

// =============================================================================
// Resize
// =============================================================================

// TestQueueResize tests that Resize discards queued elements, changes
// capacity and restarts positions.
func TestQueueResize(t *testing.T) {
	rc := releaseCounter{}
	q := spsc.MustNewQueue(4, spsc.WithRelease(rc.hook))

	for i := range 3 {
		v := i
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}

	if err := q.Resize(5); err != nil {
		t.Fatalf("Resize(5): %v", err)
	}
	rc.check(t, 0, 1, 2)

	if q.Cap() != 8 {
		t.Fatalf("Cap after Resize: got %d, want 8", q.Cap())
	}
	if q.Len() != 0 {
		t.Fatalf("Len after Resize: got %d, want 0", q.Len())
	}

	for i := range 8 {
		v := 10 + i
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("Enqueue after Resize (%d): %v", i, err)
		}
	}
	v := 99
	if err := q.Enqueue(&v); !spsc.IsWouldBlock(err) {
		t.Fatalf("Enqueue on full after Resize: got %v, want ErrWouldBlock", err)
	}
	for i := range 8 {
		got, err := q.Dequeue()
		if err != nil || got != 10+i {
			t.Fatalf("Dequeue after Resize: got (%d, %v), want (%d, nil)", got, err, 10+i)
		}
	}
}

// TestQueueResizeInvalid tests that a failed Resize leaves the queue intact.
func TestQueueResizeInvalid(t *testing.T) {
	q := spsc.MustNewQueue[int](4)
	v := 42
	q.Enqueue(&v)

	if err := q.Resize(0); !errors.Is(err, spsc.ErrInvalidCapacity) {
		t.Fatalf("Resize(0): got %v, want ErrInvalidCapacity", err)
	}
	if q.Cap() != 4 || q.Len() != 1 {
		t.Fatalf("after failed Resize: Cap %d Len %d, want 4 and 1", q.Cap(), q.Len())
	}
	if got, err := q.Dequeue(); err != nil || got != 42 {
		t.Fatalf("Dequeue: got (%d, %v), want (42, nil)", got, err)
	}
}

// TestQueueResizeShrink tests shrinking to a single slot.
func TestQueueResizeShrink(t *testing.T) {
	q := spsc.MustNewQueue[int](64)
	if err := q.Resize(1); err != nil {
		t.Fatalf("Resize(1): %v", err)
	}
	if q.Cap() != 1 {
		t.Fatalf("Cap: got %d, want 1", q.Cap())
	}
	v := 1
	if err := q.Enqueue(&v); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Enqueue(&v); !spsc.IsWouldBlock(err) {
		t.Fatalf("Enqueue on full: got %v, want ErrWouldBlock", err)
	}
}

// =============================================================================
// Close
// =============================================================================

// TestQueueCloseReleasesRemaining tests the teardown property: every element
// between the consumer and producer positions is released exactly once, and
// none that the consumer already took.
func TestQueueCloseReleasesRemaining(t *testing.T) {
	rc := releaseCounter{}
	q := spsc.MustNewQueue(4, spsc.WithRelease(rc.hook))

	// Advance positions past one lap so remaining items straddle the wrap.
	next := 0
	for range 3 {
		v := next
		next++
		q.Enqueue(&v)
	}
	for range 3 {
		q.Dequeue()
	}
	for range 4 {
		v := next
		next++
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("Enqueue(%d): %v", v, err)
		}
	}
	if _, err := q.Dequeue(); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}

	q.Close()
	rc.check(t, 4, 5, 6)

	// Idempotent
	q.Close()
	rc.check(t, 4, 5, 6)
}

// TestQueueClosed tests operations after Close.
func TestQueueClosed(t *testing.T) {
	q := spsc.MustNewQueue[int](4)
	q.Close()

	v := 1
	if err := q.Enqueue(&v); !errors.Is(err, spsc.ErrClosed) {
		t.Fatalf("Enqueue after Close: got %v, want ErrClosed", err)
	}
	if _, err := q.Dequeue(); !errors.Is(err, spsc.ErrClosed) {
		t.Fatalf("Dequeue after Close: got %v, want ErrClosed", err)
	}
	if err := q.Resize(8); !errors.Is(err, spsc.ErrClosed) {
		t.Fatalf("Resize after Close: got %v, want ErrClosed", err)
	}
	if spsc.IsWouldBlock(spsc.ErrClosed) {
		t.Fatal("ErrClosed must not be ErrWouldBlock")
	}
	if q.Len() != 0 {
		t.Fatalf("Len after Close: got %d, want 0", q.Len())
	}
	q.Clear()
}

// TestErrorClassification tests the iox-backed helpers.
func TestErrorClassification(t *testing.T) {
	if !spsc.IsWouldBlock(spsc.ErrWouldBlock) {
		t.Error("IsWouldBlock(ErrWouldBlock): got false")
	}
	if !spsc.IsSemantic(spsc.ErrWouldBlock) {
		t.Error("IsSemantic(ErrWouldBlock): got false")
	}
	if !spsc.IsNonFailure(nil) || !spsc.IsNonFailure(spsc.ErrWouldBlock) {
		t.Error("IsNonFailure: want true for nil and ErrWouldBlock")
	}
	if spsc.IsNonFailure(spsc.ErrInvalidCapacity) {
		t.Error("IsNonFailure(ErrInvalidCapacity): got true")
	}
}
