// i2s_device.go - Emulated I2S transceiver with a descriptor-walking transmit engine

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionI2S
Buy me a coffee: https://ko-fi.com/intuition/tip

License: GPLv3 or later
*/

package i2s

import (
	"sync"
	"sync/atomic"
	"time"
)

// I2STransceiver emulates the transmit half of an ESP32-style I2S
// peripheral: a register file, a DMA engine that walks the descriptor ring,
// and an interrupt line into the attached completion handler.
//
// ReadRegister and WriteRegister match the machine-bus onRead/onWrite
// callback shapes, so the device can be mapped into an I/O region as well
// as driven directly through the Peripheral interface.
//
// The engine starts on a rising I2S_TX_START edge once the out link has
// been primed with I2S_OUTLINK_START and I2S_DSCR_EN is set, and it keeps
// cycling the ring until transmission stops. Completion handlers run on the
// engine goroutine, one at a time.
type I2STransceiver struct {
	mu   sync.RWMutex
	regs [I2S_REG_COUNT]uint32 // Register file, indexed by word offset

	ring    *DescriptorRing // Installed by LoadOutLink
	handler func()          // Completion handler from AttachInterrupt
	output  AudioOutput

	// Transmit engine state
	walkPos    int // Descriptor the engine services next
	walking    bool
	walkerStop chan struct{}
	walkerDone chan struct{}

	tap atomic.Pointer[func(block []uint32)] // Optional monitor tap

	blocksSent atomic.Int64 // Descriptors drained since construction
}

// NewI2STransceiver creates a transceiver draining into the given audio
// backend. sampleRate seeds the backend; when transmission starts the
// engine retunes rate-capable backends from the divider registers.
func NewI2STransceiver(backend int, sampleRate int) (*I2STransceiver, error) {
	output, err := NewAudioOutput(backend, sampleRate)
	if err != nil {
		return nil, err
	}
	return &I2STransceiver{output: output}, nil
}

func regIndex(addr uint32) int {
	if addr < I2S_REG_BASE || addr > I2S_REG_END {
		return -1
	}
	return int(addr-I2S_REG_BASE) / 4
}

// ReadRegister returns a register value. I2S_INT_CLR is write-only and
// reads as zero; unmapped addresses also read as zero.
func (t *I2STransceiver) ReadRegister(addr uint32) uint32 {
	idx := regIndex(addr)
	if idx < 0 || addr == I2S_INT_CLR {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.regs[idx]
}

// WriteRegister stores a register value and applies its side effects.
func (t *I2STransceiver) WriteRegister(addr uint32, value uint32) {
	idx := regIndex(addr)
	if idx < 0 {
		return
	}

	t.mu.Lock()
	old := t.regs[idx]
	switch addr {
	case I2S_INT_CLR:
		// Write-1-to-clear against RAW, then refresh the masked status.
		t.regs[regIndex(I2S_INT_RAW)] &^= value
		t.refreshIntStatus()
		t.mu.Unlock()
		return
	case I2S_INT_ENA:
		t.regs[idx] = value
		t.refreshIntStatus()
		t.mu.Unlock()
		return
	case I2S_INT_RAW, I2S_INT_ST:
		// Engine-owned; writes land through INT_CLR only.
		t.mu.Unlock()
		return
	}
	t.regs[idx] = value
	t.mu.Unlock()

	switch addr {
	case I2S_CONF:
		t.handleConfWrite(old, value)
	case I2S_OUT_LINK:
		t.handleOutLinkWrite(old, value)
	}
}

// refreshIntStatus recomputes the masked status from RAW and ENA. Callers
// hold mu.
func (t *I2STransceiver) refreshIntStatus() {
	t.regs[regIndex(I2S_INT_ST)] = t.regs[regIndex(I2S_INT_RAW)] & t.regs[regIndex(I2S_INT_ENA)]
}

func (t *I2STransceiver) handleConfWrite(old, value uint32) {
	if value&I2S_TX_RESET != 0 && old&I2S_TX_RESET == 0 {
		t.stopWalker()
		t.mu.Lock()
		t.walkPos = 0
		t.mu.Unlock()
	}

	started := value&I2S_TX_START != 0
	wasStarted := old&I2S_TX_START != 0
	switch {
	case started && !wasStarted:
		t.startWalker()
	case !started && wasStarted:
		t.stopWalker()
	}
}

func (t *I2STransceiver) handleOutLinkWrite(old, value uint32) {
	if value&I2S_OUTLINK_START != 0 && old&I2S_OUTLINK_START == 0 {
		t.mu.Lock()
		t.walkPos = int(value & I2S_OUTLINK_ADDR)
		t.mu.Unlock()
	}
	if value&I2S_OUTLINK_STOP != 0 {
		t.stopWalker()
	}
}

// canWalk reports whether the engine has everything it needs to stream.
// Callers hold mu.
func (t *I2STransceiver) canWalk() bool {
	return t.ring != nil &&
		t.regs[regIndex(I2S_OUT_LINK)]&I2S_OUTLINK_START != 0 &&
		t.regs[regIndex(I2S_FIFO_CONF)]&I2S_DSCR_EN != 0
}

func (t *I2STransceiver) startWalker() {
	t.mu.Lock()
	if t.walking || !t.canWalk() {
		t.mu.Unlock()
		return
	}
	t.walking = true
	t.walkerStop = make(chan struct{})
	t.walkerDone = make(chan struct{})
	ring := t.ring
	handler := t.handler
	startPos := t.walkPos
	stop, done := t.walkerStop, t.walkerDone
	t.mu.Unlock()

	if rc, ok := t.output.(RateCapable); ok {
		if hz := t.deriveRate(); hz > 0 {
			rc.SetRate(hz)
		}
	}
	_ = t.output.Start()

	go t.walk(ring, handler, startPos, stop, done)
}

func (t *I2STransceiver) stopWalker() {
	t.mu.Lock()
	if !t.walking {
		t.mu.Unlock()
		return
	}
	t.walking = false
	stop, done := t.walkerStop, t.walkerDone
	t.mu.Unlock()

	close(stop)
	<-done
}

// walk is the transmit engine. It drains one descriptor per pass at
// whatever pace the audio backend accepts blocks, then reports the
// completion the way the hardware does: finished descriptor index into
// I2S_OUT_EOF_DES_ADDR, OUT_EOF raised, handler invoked while the masked
// status is non-zero.
func (t *I2STransceiver) walk(ring *DescriptorRing, handler func(), pos int, stop, done chan struct{}) {
	defer close(done)

	if pos < 0 || pos >= ring.Len() {
		pos = 0
	}
	var scratch []uint32
	for {
		select {
		case <-stop:
			t.mu.Lock()
			t.walkPos = pos
			t.mu.Unlock()
			return
		default:
		}

		desc := ring.At(pos)

		if t.checkOwner() && !desc.Owner {
			// Ownership violation parks the engine until it is reset.
			t.raiseInterrupt(I2S_OUT_DSCR_ERR_INT, handler)
			<-stop
			t.mu.Lock()
			t.walkPos = pos
			t.mu.Unlock()
			return
		}

		if !t.output.IsStarted() {
			// Keep cycling against a closed sink, but don't spin.
			time.Sleep(time.Millisecond)
		}

		words := desc.Length / 4
		if cap(scratch) < words {
			scratch = make([]uint32, words)
		}
		block := scratch[:words]
		for i := range block {
			block[i] = atomic.LoadUint32(&desc.Buf[i])
		}

		_ = t.output.WriteBlock(block)

		if fn := t.tap.Load(); fn != nil {
			(*fn)(block)
		}
		t.blocksSent.Add(1)

		if desc.EOF {
			t.mu.Lock()
			t.regs[regIndex(I2S_OUT_EOF_DES_ADDR)] = uint32(desc.Slot)
			t.mu.Unlock()
			t.raiseInterrupt(I2S_OUT_EOF_INT, handler)
		}

		pos = desc.Next
	}
}

func (t *I2STransceiver) checkOwner() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.regs[regIndex(I2S_LC_CONF)]&I2S_CHECK_OWNER != 0
}

func (t *I2STransceiver) raiseInterrupt(bit uint32, handler func()) {
	t.mu.Lock()
	t.regs[regIndex(I2S_INT_RAW)] |= bit
	t.refreshIntStatus()
	fire := t.regs[regIndex(I2S_INT_ST)] != 0 && handler != nil
	t.mu.Unlock()

	if fire {
		handler()
	}
}

// deriveRate computes the word strobe rate from the divider registers.
func (t *I2STransceiver) deriveRate() int {
	t.mu.RLock()
	sr := t.regs[regIndex(I2S_SAMPLE_RATE_CONF)]
	ck := t.regs[regIndex(I2S_CLKM_CONF)]
	t.mu.RUnlock()

	bck := int((sr >> I2S_TX_BCK_DIV_NUM_S) & I2S_TX_BCK_DIV_NUM)
	bits := int((sr >> I2S_TX_BITS_MOD_S) & I2S_TX_BITS_MOD)
	clkm := int((ck >> I2S_CLKM_DIV_NUM_S) & I2S_CLKM_DIV_NUM)
	if bck == 0 || bits == 0 || clkm == 0 {
		return 0
	}
	return I2S_BASE_CLOCK / (bck * clkm * bits * 2)
}

// LoadOutLink hands the engine the descriptor ring to walk.
func (t *I2STransceiver) LoadOutLink(ring *DescriptorRing) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ring = ring
}

// AttachInterrupt registers the completion handler. The engine invokes it
// from its own goroutine, one call at a time.
func (t *I2STransceiver) AttachInterrupt(handler func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// SetTap installs a monitor callback that sees every drained block. The
// engine reuses the block slice between calls, so the tap must copy
// anything it keeps. A nil fn removes the tap.
func (t *I2STransceiver) SetTap(fn func(block []uint32)) {
	if fn == nil {
		t.tap.Store(nil)
		return
	}
	t.tap.Store(&fn)
}

// Stop halts the transmit engine and the audio backend without touching
// the register file.
func (t *I2STransceiver) Stop() {
	t.stopWalker()
	_ = t.output.Stop()
}

// Close stops the engine and releases the audio backend.
func (t *I2STransceiver) Close() error {
	t.stopWalker()
	return t.output.Close()
}

// IsStarted reports whether the transmit engine is running.
func (t *I2STransceiver) IsStarted() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.walking
}

// BlocksSent reports how many descriptors the engine has drained.
func (t *I2STransceiver) BlocksSent() int64 {
	return t.blocksSent.Load()
}
