//go:build !headless

// audio_backend_oto.go - OTO v3 audio output implementation

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
	"encoding/binary"
	"github.com/ebitengine/oto/v3"
	"sync"
	"sync/atomic"
	"time"
)

const OTO_RING_SIZE = 1 << 14 // Bytes; about 90ms of stereo S16LE at 44.1kHz

// OtoOutput bridges the push-model transmit engine onto oto's pull-model
// player through a lock-free byte ring. WriteBlock fills the ring and parks
// while it is full; the player's Read drains it and plays silence when it
// runs dry. Exactly one goroutine calls WriteBlock.
type OtoOutput struct {
	ctx     *oto.Context
	player  *oto.Player
	scratch []byte     // Staging for word to byte conversion
	started bool
	mu      sync.Mutex // Only for setup/control operations

	// SPSC byte ring between WriteBlock and the player's pull reads
	ring []byte
	head atomic.Uint64 // Total bytes consumed by Read
	_pad [56]byte      // Keep the producer index off the consumer's cache line
	tail atomic.Uint64 // Total bytes produced by WriteBlock
}

func NewOtoOutput(sampleRate int) (*OtoOutput, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, &AudioError{Operation: "oto context", Details: "context creation failed", Err: err}
	}
	<-ready

	return &OtoOutput{
		ctx:  ctx,
		ring: make([]byte, OTO_RING_SIZE),
	}, nil
}

// Read is the player's pull side. It drains whatever the ring holds and
// pads the remainder of p with silence, so a starved ring plays quiet
// rather than stalling the audio device.
func (o *OtoOutput) Read(p []byte) (n int, err error) {
	head := o.head.Load()
	avail := int(o.tail.Load() - head)
	got := min(avail, len(p))
	mask := uint64(len(o.ring) - 1)
	for i := 0; i < got; i++ {
		p[i] = o.ring[(head+uint64(i))&mask]
	}
	o.head.Add(uint64(got))
	for i := got; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}

func (o *OtoOutput) WriteBlock(block []uint32) error {
	if need := len(block) * 4; cap(o.scratch) < need {
		o.scratch = make([]byte, need)
	}
	buf := o.scratch[:len(block)*4]
	for i, w := range block {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}

	mask := uint64(len(o.ring) - 1)
	for len(buf) > 0 {
		if !o.IsStarted() {
			return nil
		}
		tail := o.tail.Load()
		free := len(o.ring) - int(tail-o.head.Load())
		if free == 0 {
			time.Sleep(time.Millisecond)
			continue
		}
		n := min(free, len(buf))
		for i := 0; i < n; i++ {
			o.ring[(tail+uint64(i))&mask] = buf[i]
		}
		o.tail.Add(uint64(n))
		buf = buf[n:]
	}
	return nil
}

func (o *OtoOutput) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		o.player = o.ctx.NewPlayer(o)
	}
	if !o.started {
		o.player.Play()
		o.started = true
	}
	return nil
}

func (o *OtoOutput) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started && o.player != nil {
		o.player.Pause()
		o.started = false
	}
	return nil
}

func (o *OtoOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.started = false
	if o.player != nil {
		err := o.player.Close()
		o.player = nil
		if err != nil {
			return &AudioError{Operation: "oto close", Details: "player close failed", Err: err}
		}
	}
	return nil
}

func (o *OtoOutput) IsStarted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.started
}
