// i2s_test_helpers_test.go - Test helpers for the DMA buffer driver.

package i2s

import (
	"sync"
	"testing"
)

type regWrite struct {
	addr  uint32
	value uint32
}

// fakePeripheral is a register file with the interrupt plumbing of the real
// transceiver but no transmit engine. Tests mark slots finished by hand
// with raise(), which lets them single-step the driver through any
// completion order they like.
type fakePeripheral struct {
	mu      sync.Mutex
	regs    map[uint32]uint32
	ring    *DescriptorRing
	handler func()
	writes  []regWrite // Every register store, in order
}

func newFakePeripheral() *fakePeripheral {
	return &fakePeripheral{regs: make(map[uint32]uint32)}
}

func (f *fakePeripheral) ReadRegister(addr uint32) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regs[addr]
}

func (f *fakePeripheral) WriteRegister(addr uint32, value uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, regWrite{addr, value})
	if addr == I2S_INT_CLR {
		f.regs[I2S_INT_RAW] &^= value
	} else {
		f.regs[addr] = value
	}
	f.regs[I2S_INT_ST] = f.regs[I2S_INT_RAW] & f.regs[I2S_INT_ENA]
}

func (f *fakePeripheral) LoadOutLink(ring *DescriptorRing) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ring = ring
}

func (f *fakePeripheral) AttachInterrupt(handler func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
}

// raise marks slot finished and fires the completion handler, the way the
// transmit engine does after draining a descriptor with the EOF flag.
func (f *fakePeripheral) raise(slot int) {
	f.mu.Lock()
	f.regs[I2S_OUT_EOF_DES_ADDR] = uint32(slot)
	f.regs[I2S_INT_RAW] |= I2S_OUT_EOF_INT
	f.regs[I2S_INT_ST] = f.regs[I2S_INT_RAW] & f.regs[I2S_INT_ENA]
	handler := f.handler
	f.mu.Unlock()

	if handler != nil {
		handler()
	}
}

func (f *fakePeripheral) reg(addr uint32) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regs[addr]
}

func (f *fakePeripheral) writeLog() []regWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	log := make([]regWrite, len(f.writes))
	copy(log, f.writes)
	return log
}

func newTestDriver(t *testing.T, count, words int) (*Driver, *fakePeripheral) {
	t.Helper()
	hw := newFakePeripheral()
	d, err := Open(hw, Config{BufCount: count, BufLen: words})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return d, hw
}

// newTestTransceiver builds a transceiver over an unpaced discard sink, so
// the transmit engine runs flat out, with a descriptor ring already loaded.
func newTestTransceiver(t *testing.T, count, words int) (*I2STransceiver, *DescriptorRing, *HeadlessOutput) {
	t.Helper()
	pool, err := newBufferPool(count, words)
	if err != nil {
		t.Fatalf("newBufferPool failed: %v", err)
	}
	ring := newDescriptorRing(pool)
	out := NewHeadlessOutput(I2S_DEFAULT_SAMPLE_RATE, false)
	dev := &I2STransceiver{output: out}
	dev.LoadOutLink(ring)
	return dev, ring, out
}

// primeAndStart walks a transceiver through the minimum register writes
// that let the engine run: descriptor DMA on, EOF interrupt enabled, out
// link primed at slot startSlot, transmit started.
func primeAndStart(dev *I2STransceiver, startSlot int) {
	dev.WriteRegister(I2S_FIFO_CONF, I2S_DSCR_EN)
	setRegBits(dev, I2S_INT_ENA, 0x1, 1, I2S_OUT_EOF_INT_ENA_S)
	dev.WriteRegister(I2S_OUT_LINK, uint32(startSlot)|I2S_OUTLINK_START)
	dev.WriteRegister(I2S_CONF, I2S_TX_START)
}
