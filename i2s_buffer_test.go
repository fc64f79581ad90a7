// i2s_buffer_test.go - Buffer pool and descriptor ring tests.

package i2s

import (
	"errors"
	"sync/atomic"
	"testing"
)

// TestNewBufferPoolRejectsBadGeometry verifies the floor on ring geometry:
// fewer than two buffers cannot form a circular chain, and a zero-length
// buffer would make the engine spin on nothing.
func TestNewBufferPoolRejectsBadGeometry(t *testing.T) {
	cases := []struct {
		name  string
		count int
		words int
	}{
		{"one buffer", 1, 64},
		{"zero buffers", 0, 64},
		{"negative count", -3, 64},
		{"zero words", 4, 0},
		{"negative words", 4, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newBufferPool(tc.count, tc.words)
			if err == nil {
				t.Fatalf("newBufferPool(%d, %d) accepted bad geometry", tc.count, tc.words)
			}
			var audioErr *AudioError
			if !errors.As(err, &audioErr) {
				t.Fatalf("error type %T, expected *AudioError", err)
			}
		})
	}
}

// TestBufferPoolSlotsIndependent verifies that slots do not alias each
// other and that zeroAll really clears every word.
func TestBufferPoolSlotsIndependent(t *testing.T) {
	pool, err := newBufferPool(3, 4)
	if err != nil {
		t.Fatalf("newBufferPool failed: %v", err)
	}
	if pool.Count() != 3 || pool.Words() != 4 {
		t.Fatalf("geometry %dx%d, expected 3x4", pool.Count(), pool.Words())
	}

	for slot := 0; slot < pool.Count(); slot++ {
		for i := 0; i < pool.Words(); i++ {
			atomic.StoreUint32(&pool.slot(slot)[i], uint32(slot*100+i))
		}
	}
	for slot := 0; slot < pool.Count(); slot++ {
		for i := 0; i < pool.Words(); i++ {
			if got := atomic.LoadUint32(&pool.slot(slot)[i]); got != uint32(slot*100+i) {
				t.Fatalf("slot %d word %d = %d, expected %d", slot, i, got, slot*100+i)
			}
		}
	}

	pool.zeroAll()
	for slot := 0; slot < pool.Count(); slot++ {
		for i := 0; i < pool.Words(); i++ {
			if got := atomic.LoadUint32(&pool.slot(slot)[i]); got != 0 {
				t.Fatalf("slot %d word %d = %d after zeroAll, expected 0", slot, i, got)
			}
		}
	}
}

// TestDescriptorRingLinkage verifies the circular chain: every descriptor
// aliases its pool slot, carries the byte length of a full block, links to
// the next slot, and the last descriptor wraps to the first.
func TestDescriptorRingLinkage(t *testing.T) {
	pool, err := newBufferPool(4, 8)
	if err != nil {
		t.Fatalf("newBufferPool failed: %v", err)
	}
	ring := newDescriptorRing(pool)
	if ring.Len() != 4 {
		t.Fatalf("ring length %d, expected 4", ring.Len())
	}

	for i := 0; i < ring.Len(); i++ {
		desc := ring.At(i)
		if desc.Slot != i {
			t.Fatalf("descriptor %d carries slot %d", i, desc.Slot)
		}
		if !desc.EOF || !desc.Owner {
			t.Fatalf("descriptor %d EOF=%v Owner=%v, expected both set", i, desc.EOF, desc.Owner)
		}
		if desc.Length != 8*4 || desc.Size != 8*4 {
			t.Fatalf("descriptor %d Length=%d Size=%d, expected %d", i, desc.Length, desc.Size, 8*4)
		}
		want := (i + 1) % 4
		if desc.Next != want {
			t.Fatalf("descriptor %d links to %d, expected %d", i, desc.Next, want)
		}
		if &desc.Buf[0] != &pool.slot(i)[0] {
			t.Fatalf("descriptor %d buffer does not alias pool slot %d", i, i)
		}
	}

	// A write through the pool must be visible through the descriptor.
	atomic.StoreUint32(&pool.slot(2)[5], 0xCAFEBABE)
	if got := atomic.LoadUint32(&ring.At(2).Buf[5]); got != 0xCAFEBABE {
		t.Fatalf("descriptor view reads 0x%08X, expected 0xCAFEBABE", got)
	}
}
