// audio_backend_headless.go - Discard audio sink with optional real-time pacing

package i2s

import (
	"sync/atomic"
	"time"
)

// HeadlessOutput swallows sample blocks. In paced mode it sleeps at the
// configured sample rate first, so the transmit engine keeps hardware-like
// timing without a sound device; unpaced it accepts blocks as fast as they
// arrive, which is what the race tests and benchmarks want.
type HeadlessOutput struct {
	interval atomic.Int64 // Nanoseconds per sample word
	consumed atomic.Int64 // Sample words discarded so far
	started  atomic.Bool
	paced    bool
}

func NewHeadlessOutput(sampleRate int, paced bool) *HeadlessOutput {
	out := &HeadlessOutput{paced: paced}
	out.SetRate(sampleRate)
	return out
}

// SetRate retunes the pacing interval.
func (h *HeadlessOutput) SetRate(hz int) {
	if hz <= 0 {
		hz = I2S_DEFAULT_SAMPLE_RATE
	}
	h.interval.Store(int64(time.Second) / int64(hz))
}

func (h *HeadlessOutput) Start() error {
	h.started.Store(true)
	return nil
}

func (h *HeadlessOutput) Stop() error {
	h.started.Store(false)
	return nil
}

func (h *HeadlessOutput) Close() error {
	h.started.Store(false)
	return nil
}

func (h *HeadlessOutput) IsStarted() bool {
	return h.started.Load()
}

func (h *HeadlessOutput) WriteBlock(block []uint32) error {
	if !h.started.Load() {
		return nil
	}
	if h.paced {
		time.Sleep(time.Duration(int64(len(block)) * h.interval.Load()))
	}
	h.consumed.Add(int64(len(block)))
	return nil
}

// Consumed reports how many sample words have been discarded. Tests use it
// to watch the engine make progress.
func (h *HeadlessOutput) Consumed() int64 {
	return h.consumed.Load()
}
