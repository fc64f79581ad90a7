// i2s_queue_test.go - Free slot queue behaviour tests.

package i2s

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestSlotQueueFIFO verifies that slots come back out in completion order.
func TestSlotQueueFIFO(t *testing.T) {
	q := newSlotQueue(3)
	for _, slot := range []int{2, 0, 1} {
		if evicted := q.put(slot); evicted {
			t.Fatalf("put(%d) evicted from a queue with room", slot)
		}
	}
	for _, want := range []int{2, 0, 1} {
		if got := q.get(); got != want {
			t.Fatalf("get() = %d, expected %d", got, want)
		}
	}
}

// TestSlotQueueEvictsOldest verifies the underrun path: a put into a full
// queue drops the oldest entry, keeps the newest, and reports the
// eviction.
func TestSlotQueueEvictsOldest(t *testing.T) {
	q := newSlotQueue(2)
	if q.put(0) || q.put(1) {
		t.Fatal("puts into an empty queue reported evictions")
	}
	if !q.put(2) {
		t.Fatal("put into a full queue did not report the eviction")
	}
	if got := q.depth(); got != 2 {
		t.Fatalf("depth %d after eviction, expected 2", got)
	}
	for _, want := range []int{1, 2} {
		if got := q.get(); got != want {
			t.Fatalf("get() = %d after eviction, expected %d", got, want)
		}
	}
}

// TestSlotQueueGetBlocks verifies that get waits for a completion instead
// of inventing a slot.
func TestSlotQueueGetBlocks(t *testing.T) {
	q := newSlotQueue(2)
	got := make(chan int, 1)
	go func() { got <- q.get() }()

	select {
	case slot := <-got:
		t.Fatalf("get() returned %d from an empty queue", slot)
	case <-time.After(20 * time.Millisecond):
	}

	q.put(5)
	select {
	case slot := <-got:
		if slot != 5 {
			t.Fatalf("get() = %d after put, expected 5", slot)
		}
	case <-time.After(time.Second):
		t.Fatal("get() did not wake after put")
	}
}

// TestSlotQueueGetContext verifies both sides of the context-bound
// receive: immediate delivery when a slot is queued, and a clean context
// error when the wait is abandoned.
func TestSlotQueueGetContext(t *testing.T) {
	q := newSlotQueue(2)
	q.put(3)
	slot, err := q.getContext(context.Background())
	if err != nil {
		t.Fatalf("getContext on a non-empty queue failed: %v", err)
	}
	if slot != 3 {
		t.Fatalf("getContext = %d, expected 3", slot)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := q.getContext(ctx)
		errc <- err
	}()
	cancel()
	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("getContext error %v, expected context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("getContext did not return after cancel")
	}
}

// TestSlotQueueDrainAll verifies that a drained queue reports empty and a
// later put still lands.
func TestSlotQueueDrainAll(t *testing.T) {
	q := newSlotQueue(3)
	q.put(0)
	q.put(1)
	q.drainAll()
	if got := q.depth(); got != 0 {
		t.Fatalf("depth %d after drainAll, expected 0", got)
	}
	if q.capacity() != 3 {
		t.Fatalf("capacity %d after drainAll, expected 3", q.capacity())
	}
	q.put(2)
	if got := q.get(); got != 2 {
		t.Fatalf("get() = %d after drain and put, expected 2", got)
	}
}
