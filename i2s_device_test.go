// i2s_device_test.go - Transmit engine behaviour over the discard sink.

package i2s

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// collectSlots reads the next n completion slot indices, failing the test
// if the engine stalls.
func collectSlots(t *testing.T, ch <-chan int, n int) []int {
	t.Helper()
	out := make([]int, 0, n)
	deadline := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case s := <-ch:
			out = append(out, s)
		case <-deadline:
			t.Fatalf("collected %d completions, expected %d", len(out), n)
		}
	}
	return out
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(what)
		}
		time.Sleep(time.Millisecond)
	}
}

// attachCollector wires a completion handler that behaves like the real
// ISR - reads the finished slot, clears the interrupt - and forwards the
// slot index without ever blocking the engine.
func attachCollector(dev *I2STransceiver) <-chan int {
	slots := make(chan int, 64)
	dev.AttachInterrupt(func() {
		slot := int(dev.ReadRegister(I2S_OUT_EOF_DES_ADDR))
		dev.WriteRegister(I2S_INT_CLR, 0xFFFFFFFF)
		select {
		case slots <- slot:
		default:
		}
	})
	return slots
}

// TestTransceiverWalksRingInOrder verifies that the engine services the
// descriptor chain in link order and wraps back to the first slot.
func TestTransceiverWalksRingInOrder(t *testing.T) {
	dev, _, _ := newTestTransceiver(t, 4, 2)
	slots := attachCollector(dev)
	primeAndStart(dev, 0)
	defer dev.Close()

	got := collectSlots(t, slots, 8)
	want := []int{0, 1, 2, 3, 0, 1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("completion order %v, expected %v", got, want)
		}
	}
	dev.WriteRegister(I2S_CONF, 0)
}

// TestTransceiverStartStopResume verifies the TX_START edges: clearing the
// bit parks the engine between descriptors, setting it again resumes from
// the next unserviced slot rather than from zero.
func TestTransceiverStartStopResume(t *testing.T) {
	dev, _, _ := newTestTransceiver(t, 4, 2)
	slots := attachCollector(dev)
	primeAndStart(dev, 0)
	defer dev.Close()

	collectSlots(t, slots, 3)
	dev.WriteRegister(I2S_CONF, 0)
	if dev.IsStarted() {
		t.Fatal("engine still reported running after TX_START cleared")
	}

	dev.mu.RLock()
	expect := dev.walkPos
	dev.mu.RUnlock()
	for len(slots) > 0 {
		<-slots // Drop the backlog from before the stop
	}

	dev.WriteRegister(I2S_CONF, I2S_TX_START)
	if !dev.IsStarted() {
		t.Fatal("engine did not resume on the TX_START edge")
	}
	if first := collectSlots(t, slots, 1)[0]; first != expect {
		t.Fatalf("engine resumed at slot %d, expected %d", first, expect)
	}
	dev.WriteRegister(I2S_CONF, 0)
}

// TestTransceiverRequiresPriming verifies that TX_START alone does
// nothing: the engine only runs once descriptor DMA is enabled and the
// out link has been started.
func TestTransceiverRequiresPriming(t *testing.T) {
	dev, _, _ := newTestTransceiver(t, 2, 2)
	defer dev.Close()

	dev.WriteRegister(I2S_CONF, I2S_TX_START)
	if dev.IsStarted() {
		t.Fatal("engine ran without descriptor DMA enabled")
	}
	dev.WriteRegister(I2S_CONF, 0)

	dev.WriteRegister(I2S_FIFO_CONF, I2S_DSCR_EN)
	dev.WriteRegister(I2S_OUT_LINK, I2S_OUTLINK_START)
	dev.WriteRegister(I2S_CONF, I2S_TX_START)
	if !dev.IsStarted() {
		t.Fatal("engine did not start once primed")
	}
	dev.WriteRegister(I2S_CONF, 0)
	if dev.IsStarted() {
		t.Fatal("engine survived TX_START being cleared")
	}
}

// TestTransceiverOutLinkLatch verifies that the OUTLINK_START edge latches
// the descriptor index from the address field, so the ring can be entered
// anywhere.
func TestTransceiverOutLinkLatch(t *testing.T) {
	dev, _, _ := newTestTransceiver(t, 4, 2)
	slots := attachCollector(dev)
	primeAndStart(dev, 2)
	defer dev.Close()

	got := collectSlots(t, slots, 4)
	want := []int{2, 3, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("completion order %v from slot 2, expected %v", got, want)
		}
	}
	dev.WriteRegister(I2S_CONF, 0)
}

// TestTransceiverOwnershipParksEngine verifies the CHECK_OWNER path: the
// engine refuses a descriptor it does not own, latches OUT_DSCR_ERR and
// parks instead of streaming someone else's memory.
func TestTransceiverOwnershipParksEngine(t *testing.T) {
	dev, ring, _ := newTestTransceiver(t, 3, 2)
	slots := attachCollector(dev)
	defer dev.Close()

	dev.WriteRegister(I2S_LC_CONF, I2S_CHECK_OWNER)
	ring.At(1).Owner = false
	primeAndStart(dev, 0)

	waitUntil(t, "ownership error never latched", func() bool {
		return dev.ReadRegister(I2S_INT_RAW)&I2S_OUT_DSCR_ERR_INT != 0
	})
	if got := dev.BlocksSent(); got != 1 {
		t.Fatalf("engine sent %d blocks before parking, expected just slot 0", got)
	}
	for len(slots) > 0 {
		if s := <-slots; s != 0 {
			t.Fatalf("completion for slot %d arrived past the ownership fault", s)
		}
	}

	dev.WriteRegister(I2S_CONF, 0)
	if dev.IsStarted() {
		t.Fatal("parked engine did not shut down cleanly")
	}
}

// TestTransceiverIntClrSemantics verifies the interrupt register
// plumbing: write-1-to-clear against RAW, masked status following RAW and
// ENA, and INT_CLR itself reading as zero.
func TestTransceiverIntClrSemantics(t *testing.T) {
	dev, _, _ := newTestTransceiver(t, 2, 2)
	defer dev.Close()

	dev.WriteRegister(I2S_INT_ENA, I2S_OUT_EOF_INT)
	dev.raiseInterrupt(I2S_OUT_EOF_INT, nil)

	if dev.ReadRegister(I2S_INT_RAW)&I2S_OUT_EOF_INT == 0 {
		t.Fatal("EOF not latched in INT_RAW")
	}
	if dev.ReadRegister(I2S_INT_ST)&I2S_OUT_EOF_INT == 0 {
		t.Fatal("EOF not visible in the masked status")
	}

	// Clearing an unrelated bit leaves the latch alone.
	dev.WriteRegister(I2S_INT_CLR, I2S_OUT_DSCR_ERR_INT)
	if dev.ReadRegister(I2S_INT_RAW)&I2S_OUT_EOF_INT == 0 {
		t.Fatal("partial INT_CLR wiped an unrelated latch")
	}

	// Masking hides the latch without dropping it.
	dev.WriteRegister(I2S_INT_ENA, 0)
	if dev.ReadRegister(I2S_INT_ST) != 0 {
		t.Fatal("masked status non-zero with everything disabled")
	}
	if dev.ReadRegister(I2S_INT_RAW)&I2S_OUT_EOF_INT == 0 {
		t.Fatal("masking dropped the raw latch")
	}

	dev.WriteRegister(I2S_INT_CLR, 0xFFFFFFFF)
	if dev.ReadRegister(I2S_INT_RAW) != 0 || dev.ReadRegister(I2S_INT_ST) != 0 {
		t.Fatal("full INT_CLR left state latched")
	}
	if dev.ReadRegister(I2S_INT_CLR) != 0 {
		t.Fatal("INT_CLR must read as zero")
	}
}

// TestTransceiverTap verifies the monitor tap: every drained block passes
// through it with the slot's current contents, and a nil tap detaches.
func TestTransceiverTap(t *testing.T) {
	dev, ring, _ := newTestTransceiver(t, 2, 4)
	defer dev.Close()

	for slot := 0; slot < 2; slot++ {
		for i := 0; i < 4; i++ {
			atomic.StoreUint32(&ring.At(slot).Buf[i], uint32(slot*10+i))
		}
	}

	blocks := make(chan []uint32, 16)
	dev.SetTap(func(block []uint32) {
		cp := make([]uint32, len(block))
		copy(cp, block)
		select {
		case blocks <- cp:
		default:
		}
	})
	primeAndStart(dev, 0)

	for want := 0; want < 2; want++ {
		select {
		case block := <-blocks:
			if len(block) != 4 {
				t.Fatalf("tap block length %d, expected 4", len(block))
			}
			for i, v := range block {
				if v != uint32(want*10+i) {
					t.Fatalf("tap block %d word %d = %d, expected %d", want, i, v, want*10+i)
				}
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("tap never saw block %d", want)
		}
	}

	dev.SetTap(nil)
	dev.WriteRegister(I2S_CONF, 0)
}

// TestTransceiverRetunesSink verifies that the engine derives the true
// word rate from the divider registers when transmission starts and
// retunes a rate-capable sink to match.
func TestTransceiverRetunesSink(t *testing.T) {
	dev, _, out := newTestTransceiver(t, 2, 2)
	defer dev.Close()

	SolveRate(22050, false).apply(dev)
	if got := dev.deriveRate(); got != 21929 {
		t.Fatalf("derived rate %d, expected 21929 from the 22.05kHz dividers", got)
	}

	primeAndStart(dev, 0)
	want := int64(time.Second) / 21929
	if got := out.interval.Load(); got != want {
		t.Fatalf("sink interval %dns after start, expected %dns", got, want)
	}
	dev.WriteRegister(I2S_CONF, 0)
}

// TestTransceiverReset verifies the hard reset: engine stopped, register
// file and counters zeroed, walk position back at slot zero.
func TestTransceiverReset(t *testing.T) {
	dev, _, _ := newTestTransceiver(t, 2, 2)
	primeAndStart(dev, 0)
	defer dev.Close()

	waitUntil(t, "engine never sent a block", func() bool { return dev.BlocksSent() > 0 })

	dev.Reset()
	if dev.IsStarted() {
		t.Fatal("engine still running after Reset")
	}
	if dev.BlocksSent() != 0 {
		t.Fatalf("BlocksSent %d after Reset, expected 0", dev.BlocksSent())
	}
	if dev.ReadRegister(I2S_CONF) != 0 || dev.ReadRegister(I2S_OUT_LINK) != 0 {
		t.Fatal("register file not zeroed by Reset")
	}
}

// TestDriverOverTransceiver runs the whole stack: driver bring-up against
// the emulated peripheral, producer pushing through the free slot queue,
// engine recycling slots, flush, shutdown.
func TestDriverOverTransceiver(t *testing.T) {
	out := NewHeadlessOutput(I2S_DEFAULT_SAMPLE_RATE, false)
	dev := &I2STransceiver{output: out}

	d, err := Open(dev, Config{BufCount: 4, BufLen: 8})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 256; i++ {
			d.PushSample(uint32(i))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("producer starved, the engine is not recycling slots")
	}

	waitUntil(t, "sink never consumed a word", func() bool { return out.Consumed() > 0 })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.FlushContext(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if dev.IsStarted() {
		t.Fatal("engine still running after driver Close")
	}
	if err := dev.Close(); err != nil {
		t.Fatalf("transceiver Close failed: %v", err)
	}
}
