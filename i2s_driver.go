// i2s_driver.go - Circular DMA sample buffer driver for the I2S transceiver

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

// Package i2s drives an emulated I2S transmit peripheral through a
// circular chain of DMA sample buffers.
//
// The driver owns a pool of fixed-size slots linked into a ring that the
// transceiver cycles through endlessly. Finished slots come back through
// the completion interrupt and queue up for the producer. PushSample fills
// the queued slots one 32-bit stereo word at a time and blocks when every
// slot is in flight, so the output rate paces the producer. When the
// producer falls behind instead, the transceiver replays stale slots and
// the underrun counter climbs.
package i2s

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config carries the tunables for Open. Zero values pick the defaults.
type Config struct {
	BufCount  int  // DMA slots in the ring
	BufLen    int  // 32-bit sample words per slot
	Rate      int  // Initial sample rate in Hz
	WideWords bool // Let the rate search stretch frames past 16 bits per channel

	// Logf receives the rate change trace. nil silences it.
	Logf func(format string, args ...any)
}

func (c Config) withDefaults() Config {
	if c.BufCount == 0 {
		c.BufCount = DEFAULT_BUF_COUNT
	}
	if c.BufLen == 0 {
		c.BufLen = DEFAULT_BUF_LEN
	}
	if c.Rate == 0 {
		c.Rate = I2S_DEFAULT_SAMPLE_RATE
	}
	return c
}

// Driver owns the buffer pool, the free slot queue and the register-level
// conversation with the peripheral.
//
// PushSample, PushStereo, Flush and Close belong to a single producer
// goroutine. The counters and rate accessors are safe from anywhere.
type Driver struct {
	hw   Peripheral
	pool *BufferPool
	ring *DescriptorRing
	free *slotQueue

	mu   sync.Mutex // Guards rate config and the log sink
	rate RateConfig
	wide bool
	logf func(format string, args ...any)

	// Producer-side fill state, touched only by the producer goroutine
	cur []uint32
	pos int

	underruns atomic.Int64
	eofs      atomic.Int64 // Descriptor completions seen

	closed atomic.Bool
}

// DriverStats is a snapshot of the driver counters.
type DriverStats struct {
	Underruns       int64
	BlocksCompleted int64
	FreeSlots       int
	QueueCapacity   int
	Rate            RateConfig
}

// Open allocates the buffer ring, brings the peripheral up and starts
// transmission. The ring streams silence until the producer pushes
// samples.
func Open(hw Peripheral, cfg Config) (*Driver, error) {
	cfg = cfg.withDefaults()

	pool, err := newBufferPool(cfg.BufCount, cfg.BufLen)
	if err != nil {
		return nil, err
	}

	d := &Driver{
		hw:   hw,
		pool: pool,
		ring: newDescriptorRing(pool),
		// One slot is always on the wire, so the queue holds one fewer.
		free: newSlotQueue(cfg.BufCount - 1),
		wide: cfg.WideWords,
		logf: cfg.Logf,
	}
	d.initHardware(cfg.Rate)
	return d, nil
}

// initHardware walks the peripheral through its cold boot sequence and
// leaves it transmitting.
func (d *Driver) initHardware(rate int) {
	// Reset the DMA link controller, then the transceiver and its FIFOs.
	setRegMask(d.hw, I2S_LC_CONF, I2S_IN_RST|I2S_OUT_RST|I2S_AHBM_RST|I2S_AHBM_FIFO_RST)
	clearRegMask(d.hw, I2S_LC_CONF, I2S_IN_RST|I2S_OUT_RST|I2S_AHBM_RST|I2S_AHBM_FIFO_RST)
	setRegMask(d.hw, I2S_CONF, I2S_RX_RESET|I2S_TX_RESET|I2S_TX_FIFO_RESET|I2S_RX_FIFO_RESET)
	clearRegMask(d.hw, I2S_CONF, I2S_RX_RESET|I2S_TX_RESET|I2S_TX_FIFO_RESET|I2S_RX_FIFO_RESET)

	// Descriptor ownership checks on, EOF on send rather than on fetch.
	setRegMask(d.hw, I2S_LC_CONF, I2S_CHECK_OWNER|I2S_OUT_EOF_MODE)

	// Completion interrupt
	d.hw.AttachInterrupt(d.onTxComplete)
	setRegBits(d.hw, I2S_INT_ENA, 0x1, 1, I2S_OUT_EOF_INT_ENA_S)

	// Point the out link at slot zero. The receive link never runs, but
	// the engine still wants a valid descriptor on it, so it gets slot
	// one.
	d.hw.LoadOutLink(d.ring)
	setRegBits(d.hw, I2S_OUT_LINK, I2S_OUTLINK_ADDR, 0, 0)
	setRegBits(d.hw, I2S_IN_LINK, I2S_INLINK_ADDR, 1, 0)

	// Reset pulse on the transceiver proper, then a clean slate.
	clearRegMask(d.hw, I2S_CONF, I2S_RX_RESET|I2S_TX_RESET)
	setRegMask(d.hw, I2S_CONF, I2S_RX_RESET|I2S_TX_RESET)
	clearRegMask(d.hw, I2S_CONF, I2S_RX_RESET|I2S_TX_RESET)
	d.hw.WriteRegister(I2S_CONF, 0)
	d.hw.WriteRegister(I2S_CONF2, 0)

	// 16 bits per channel, watermarks at 32 words, then DMA mode on.
	clearRegMask(d.hw, I2S_FIFO_CONF, I2S_DSCR_EN|I2S_TX_FIFO_MOD_M|I2S_RX_FIFO_MOD_M)
	d.hw.WriteRegister(I2S_FIFO_CONF, (32<<I2S_TX_DATA_NUM_S)|(32<<I2S_RX_DATA_NUM_S))
	setRegMask(d.hw, I2S_FIFO_CONF, I2S_DSCR_EN)

	// Both directions binaural.
	d.hw.WriteRegister(I2S_CONF_CHAN, (0<<I2S_TX_CHAN_MOD_S)|(0<<I2S_RX_CHAN_MOD_S))

	setRegMask(d.hw, I2S_CONF, I2S_TX_MSB_SHIFT)

	d.SetRate(rate)
	d.hw.WriteRegister(I2S_TIMING, 1<<I2S_TX_WS_OUT_DELAY_S)

	d.hw.WriteRegister(I2S_INT_CLR, 0xFFFFFFFF)

	// Start transmission.
	setRegMask(d.hw, I2S_OUT_LINK, I2S_OUTLINK_START)
	setRegMask(d.hw, I2S_CONF, I2S_TX_START)
}

// onTxComplete runs each time a descriptor with the EOF flag finishes. It
// hands the finished slot back to the producer; when the producer has not
// kept up, the queue is already full and the oldest free slot gets
// evicted, which counts as an underrun.
func (d *Driver) onTxComplete() {
	st := d.hw.ReadRegister(I2S_INT_ST)
	if st == 0 {
		return
	}
	d.hw.WriteRegister(I2S_INT_CLR, 0xFFFFFFFF)

	if st&I2S_OUT_EOF_INT != 0 {
		slot := int(d.hw.ReadRegister(I2S_OUT_EOF_DES_ADDR))
		if d.free.put(slot) {
			d.underruns.Add(1)
		}
		d.eofs.Add(1)
	}
}

// PushSample appends one 32-bit stereo word, left channel in the low half
// and right in the high half. Call it at the sample rate or faster: when
// every slot is in flight it blocks until the transceiver hands one back,
// so the output rate regulates the producer.
func (d *Driver) PushSample(sample uint32) {
	if d.pos == d.pool.Words() || d.cur == nil {
		d.cur = d.pool.slot(d.free.get())
		d.pos = 0
	}
	atomic.StoreUint32(&d.cur[d.pos], sample)
	d.pos++
}

// PushSampleContext is PushSample with a context bound on the wait for a
// free slot. The sample is dropped when the context ends first.
func (d *Driver) PushSampleContext(ctx context.Context, sample uint32) error {
	if d.pos == d.pool.Words() || d.cur == nil {
		slot, err := d.free.getContext(ctx)
		if err != nil {
			return err
		}
		d.cur = d.pool.slot(slot)
		d.pos = 0
	}
	atomic.StoreUint32(&d.cur[d.pos], sample)
	d.pos++
	return nil
}

// PackSample concatenates two signed 16-bit channel values into the wire
// word, (right << 16) | left.
func PackSample(left, right int16) uint32 {
	return uint32(uint16(right))<<16 | uint32(uint16(left))
}

// PushStereo packs and pushes one frame.
func (d *Driver) PushStereo(left, right int16) {
	d.PushSample(PackSample(left, right))
}

// SetRate reprograms the clock dividers for a new sample rate and returns
// the configuration actually achieved. The trace line goes out before the
// registers change.
func (d *Driver) SetRate(rate int) RateConfig {
	d.mu.Lock()
	rc := SolveRate(rate, d.wide)
	d.rate = rc
	logf := d.logf
	d.mu.Unlock()

	if logf != nil {
		logf("ReqRate %d MDiv %d BckDiv %d Bits %d  Frq %d\n",
			rc.RequestedHz, rc.ClkmDiv, rc.BckDiv, rc.Bits, rc.ActualHz)
	}
	rc.apply(d.hw)
	return rc
}

// GetRateConfig returns the rate configuration currently programmed.
func (d *Driver) GetRateConfig() RateConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rate
}

// SetLogf replaces the rate change trace sink. nil silences it.
func (d *Driver) SetLogf(fn func(format string, args ...any)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logf = fn
}

// UnderrunCount reports how many times the transceiver finished a slot the
// producer had not refilled.
func (d *Driver) UnderrunCount() int64 {
	return d.underruns.Load()
}

// GetStats returns a snapshot of the driver counters.
func (d *Driver) GetStats() DriverStats {
	return DriverStats{
		Underruns:       d.underruns.Load(),
		BlocksCompleted: d.eofs.Load(),
		FreeSlots:       d.free.depth(),
		QueueCapacity:   d.free.capacity(),
		Rate:            d.GetRateConfig(),
	}
}

// Flush pads the slot being filled with silence, then waits until the
// transceiver has cycled the whole ring once, so every pushed sample has
// actually left the device. Producer goroutine only.
func (d *Driver) Flush() {
	_ = d.flush(context.Background())
}

// FlushContext is Flush with a deadline.
func (d *Driver) FlushContext(ctx context.Context) error {
	return d.flush(ctx)
}

func (d *Driver) flush(ctx context.Context) error {
	if d.cur != nil {
		for d.pos != d.pool.Words() {
			if err := d.PushSampleContext(ctx, 0); err != nil {
				return err
			}
		}
	}
	target := d.eofs.Load() + int64(d.pool.Count())
	for d.eofs.Load() < target {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
	return nil
}

// Stop halts transmission, leaving the register file and the ring intact.
func (d *Driver) Stop() {
	clearRegMask(d.hw, I2S_CONF, I2S_TX_START)
}

// Start resumes transmission after Stop.
func (d *Driver) Start() {
	setRegMask(d.hw, I2S_CONF, I2S_TX_START)
}

// Close stops transmission and detaches the ring. A partially filled slot
// is dropped; call Flush first to hear it.
func (d *Driver) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	clearRegMask(d.hw, I2S_CONF, I2S_TX_START)
	setRegMask(d.hw, I2S_OUT_LINK, I2S_OUTLINK_STOP)
	d.cur = nil
	d.pos = 0
	return nil
}
