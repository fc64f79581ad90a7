// main.go - i2splay, demo player for the IntuitionI2S transmit driver

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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/oov/audio/resampler"
	lua "github.com/yuin/gopher-lua"
	"golang.org/x/term"

	i2s "github.com/intuitionamiga/IntuitionI2S"
)

const resampleQuality = 10

func boilerPlate() {
	fmt.Println("\n\033[38;2;255;20;147m ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████\033[0m\n\033[38;2;255;50;147m▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀\033[0m\n\033[38;2;255;80;147m▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███\033[0m\n\033[38;2;255;110;147m░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄\033[0m\n\033[38;2;255;140;147m░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒\033[0m\n\033[38;2;255;170;147m░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░\033[0m\n\033[38;2;255;200;147m ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░\033[0m\n\033[38;2;255;230;147m ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░\033[0m\n\033[38;2;255;255;147m ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░\033[0m")
	fmt.Println("\nAn ESP32-style I2S transmit peripheral and its DMA buffer driver, in pure Go.")
	fmt.Println("(c) 2024 - 2026 Zayn Otley")
	fmt.Println("https://github.com/IntuitionAmiga/IntuitionI2S")
	fmt.Println("Buy me a coffee: https://ko-fi.com/intuition/tip")
	fmt.Println("License: GPLv3 or later")
}

func main() {
	boilerPlate()

	var (
		wavPath    string
		scriptPath string
		toneHz     float64
		rate       int
		wide       bool
		backend    string
		bufCount   int
		bufLen     int
		seconds    float64
		quiet      bool
		dumpPath   string
	)

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&wavPath, "wav", "", "WAV file to play")
	flagSet.StringVar(&scriptPath, "script", "", "Lua script defining generate(i, rate) -> left, right in [-1, 1]")
	flagSet.Float64Var(&toneHz, "tone", 440, "Sine tone frequency in Hz")
	flagSet.IntVar(&rate, "rate", i2s.I2S_DEFAULT_SAMPLE_RATE, "Requested sample rate in Hz")
	flagSet.BoolVar(&wide, "wide", false, "Let the divider search use 17, 18 and 19 bit words")
	flagSet.StringVar(&backend, "backend", "oto", "Audio backend: oto, alsa or headless")
	flagSet.IntVar(&bufCount, "bufcount", 0, "DMA slots in the ring (0 = driver default)")
	flagSet.IntVar(&bufLen, "buflen", 0, "32-bit sample words per slot (0 = driver default)")
	flagSet.Float64Var(&seconds, "seconds", 5, "Tone/script duration in seconds (0 = play until quit)")
	flagSet.BoolVar(&quiet, "quiet", false, "Suppress the divider trace")
	flagSet.StringVar(&dumpPath, "dump", "", "Capture the transmitted stream to a WAV file")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: ./i2splay [-wav file | -script file.lua | -tone hz] [-rate hz] [-wide] [-backend oto|alsa|headless]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if wavPath != "" && scriptPath != "" {
		fmt.Println("Error: select one source: -wav or -script (or neither for the test tone)")
		os.Exit(1)
	}

	var backendID int
	switch strings.ToLower(backend) {
	case "oto":
		backendID = i2s.AUDIO_BACKEND_OTO
	case "alsa":
		backendID = i2s.AUDIO_BACKEND_ALSA
	case "headless":
		backendID = i2s.AUDIO_BACKEND_HEADLESS
	default:
		fmt.Printf("Error: unknown backend %q, want oto, alsa or headless\n", backend)
		os.Exit(1)
	}

	dev, err := i2s.NewI2STransceiver(backendID, rate)
	if err != nil {
		fmt.Printf("Failed to initialize audio backend: %v\n", err)
		os.Exit(1)
	}

	var logf func(format string, args ...any)
	if !quiet {
		logf = func(format string, args ...any) { fmt.Printf(format, args...) }
	}

	drv, err := i2s.Open(dev, i2s.Config{
		BufCount:  bufCount,
		BufLen:    bufLen,
		Rate:      rate,
		WideWords: wide,
		Logf:      logf,
	})
	if err != nil {
		fmt.Printf("Failed to open driver: %v\n", err)
		os.Exit(1)
	}

	rc := drv.GetRateConfig()
	fmt.Printf("On the wire: %d Hz (%d Hz requested)\n", rc.ActualHz, rc.RequestedHz)

	var capture *wireCapture
	if dumpPath != "" {
		capture, err = newWireCapture(dumpPath, rc.ActualHz)
		if err != nil {
			fmt.Printf("Failed to open capture file: %v\n", err)
			os.Exit(1)
		}
		dev.SetTap(capture.tap)
	}

	fmt.Println("Keys: q quit, space pause/resume, u stats")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	keys := newKeyReader()
	keys.Start()
	go controlLoop(ctx, cancel, drv, keys)

	var frames int64
	if seconds > 0 {
		frames = int64(seconds * float64(rc.ActualHz))
	}

	switch {
	case wavPath != "":
		err = playWAV(ctx, drv, wavPath, rc.ActualHz)
	case scriptPath != "":
		fmt.Printf("Running script %s\n", scriptPath)
		err = playScript(ctx, drv, scriptPath, rc.ActualHz, frames)
	default:
		fmt.Printf("Playing %g Hz sine tone\n", toneHz)
		err = playTone(ctx, drv, toneHz, rc.ActualHz, frames)
	}

	keys.Stop()

	if err == nil {
		// Natural end of the source: let the ring drain before closing,
		// or the tail of the audio is cut off.
		drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if derr := drv.FlushContext(drainCtx); derr != nil {
			fmt.Printf("Drain timed out: %v\n", derr)
		}
		drainCancel()
	}

	stats := drv.GetStats()
	fmt.Printf("Done: %d blocks transmitted, %d underruns\n", stats.BlocksCompleted, stats.Underruns)

	drv.Close()
	dev.Close()

	if capture != nil {
		if cerr := capture.Close(); cerr != nil {
			fmt.Printf("Capture error: %v\n", cerr)
		} else {
			fmt.Printf("Captured %d frames to %s\n", capture.frames, dumpPath)
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Printf("Playback error: %v\n", err)
		os.Exit(1)
	}
}

// controlLoop applies single-key transport controls until the context ends.
// Pause works by halting the transmit engine: the producer then blocks on a
// full free queue until space opens up again, which is the same backpressure
// a saturated wire applies.
func controlLoop(ctx context.Context, cancel context.CancelFunc, drv *i2s.Driver, keys *keyReader) {
	paused := false
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-keys.keys:
			switch b {
			case 'q', 'Q', 0x03:
				cancel()
			case ' ':
				if paused {
					drv.Start()
					fmt.Printf("Resumed\r\n")
				} else {
					drv.Stop()
					fmt.Printf("Paused\r\n")
				}
				paused = !paused
			case 'u', 'U':
				s := drv.GetStats()
				fmt.Printf("blocks %d  underruns %d  free %d/%d\r\n",
					s.BlocksCompleted, s.Underruns, s.FreeSlots, s.QueueCapacity)
			}
		}
	}
}

// playTone pushes a fixed-frequency sine wave on both channels. rate must be
// the achieved wire rate, not the requested one, or the pitch drifts by the
// divider error.
func playTone(ctx context.Context, drv *i2s.Driver, freq float64, rate int, frames int64) error {
	step := 2 * math.Pi * freq / float64(rate)
	for i := int64(0); frames == 0 || i < frames; i++ {
		s := int16(0.8 * 32767 * math.Sin(step*float64(i)))
		if err := drv.PushSampleContext(ctx, i2s.PackSample(s, s)); err != nil {
			return err
		}
	}
	return nil
}

// playScript runs a Lua generator: the script defines generate(i, rate) and
// returns the left and right amplitudes for frame i as numbers in [-1, 1].
func playScript(ctx context.Context, drv *i2s.Driver, path string, rate int, frames int64) error {
	L := lua.NewState()
	defer L.Close()

	if err := L.DoFile(path); err != nil {
		return err
	}
	gen := L.GetGlobal("generate")
	if gen.Type() != lua.LTFunction {
		return fmt.Errorf("%s does not define generate(i, rate)", path)
	}

	for i := int64(0); frames == 0 || i < frames; i++ {
		if err := L.CallByParam(lua.P{Fn: gen, NRet: 2, Protect: true},
			lua.LNumber(i), lua.LNumber(rate)); err != nil {
			return err
		}
		r := float64(lua.LVAsNumber(L.Get(-1)))
		l := float64(lua.LVAsNumber(L.Get(-2)))
		L.Pop(2)
		if err := drv.PushSampleContext(ctx, i2s.PackSample(toPCM16(l), toPCM16(r))); err != nil {
			return err
		}
	}
	return nil
}

// playWAV decodes a mono or stereo WAV file, resamples it to the wire rate
// when the file rate differs, and pushes it through the driver.
func playWAV(ctx context.Context, drv *i2s.Driver, path string, outRate int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return fmt.Errorf("%s is not a playable WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return err
	}

	channels := int(dec.NumChans)
	srcRate := int(dec.SampleRate)
	if channels < 1 || channels > 2 {
		return fmt.Errorf("%d channel WAV not supported, need mono or stereo", channels)
	}
	if dec.BitDepth < 8 || dec.BitDepth > 32 {
		return fmt.Errorf("unsupported WAV bit depth %d", dec.BitDepth)
	}

	srcFrames := len(buf.Data) / channels
	fmt.Printf("Playing %s: %d Hz, %d-bit, %d channel, %d frames\n",
		path, srcRate, dec.BitDepth, channels, srcFrames)

	// Split into planar normalised floats. Mono plays on both channels.
	// 8-bit WAV data is unsigned, so recentre it around zero first.
	scale := float32(int(1) << (dec.BitDepth - 1))
	bias := 0
	if dec.BitDepth == 8 {
		bias = 128
	}
	left := make([]float32, srcFrames)
	right := make([]float32, srcFrames)
	for i := 0; i < srcFrames; i++ {
		left[i] = float32(buf.Data[i*channels]-bias) / scale
		if channels == 2 {
			right[i] = float32(buf.Data[i*channels+1]-bias) / scale
		} else {
			right[i] = left[i]
		}
	}

	if srcRate != outRate {
		r := resampler.New(2, srcRate, outRate, resampleQuality)
		left = resampleChannel(r, 0, left, srcRate, outRate)
		right = resampleChannel(r, 1, right, srcRate, outRate)
		if len(right) < len(left) {
			left = left[:len(right)]
		} else {
			right = right[:len(left)]
		}
	}

	for i := range left {
		if err := drv.PushSampleContext(ctx, i2s.PackSample(toPCM16(float64(left[i])), toPCM16(float64(right[i])))); err != nil {
			return err
		}
	}
	return nil
}

// resampleChannel runs one planar channel through the rate converter. The
// converter consumes input at its own pace, so feed it in chunks and advance
// by what it actually read.
func resampleChannel(r *resampler.Resampler, ch int, in []float32, srcRate, outRate int) []float32 {
	out := make([]float32, 0, len(in)*outRate/srcRate+64)
	chunk := make([]float32, 8192)
	for off := 0; off < len(in); {
		read, written := r.ProcessFloat32(ch, in[off:], chunk)
		out = append(out, chunk[:written]...)
		if read == 0 && written == 0 {
			break
		}
		off += read
	}
	// The converter sits on a window's worth of latency. Push zeros through
	// until it stops producing, or the last few milliseconds go missing.
	zeros := make([]float32, 256)
	for i := 0; i < 64; i++ {
		_, written := r.ProcessFloat32(ch, zeros, chunk)
		if written == 0 {
			break
		}
		out = append(out, chunk[:written]...)
	}
	return out
}

func toPCM16(v float64) int16 {
	switch {
	case v > 1:
		v = 1
	case v < -1:
		v = -1
	}
	return int16(v * 32767)
}

// wireCapture records the blocks the transmit engine actually drains, so
// the file reflects the wire: evicted slots, pause gaps and flush padding
// included. The tap runs on the engine goroutine and must never touch the
// disk, so blocks cross to a writer goroutine through a buffered channel
// and get dropped when the writer falls behind.
type wireCapture struct {
	f      *os.File
	enc    *wav.Encoder
	blocks chan []uint32
	done   chan struct{}
	frames int64
	err    error
}

func newWireCapture(path string, rate int) (*wireCapture, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	c := &wireCapture{
		f:      f,
		enc:    wav.NewEncoder(f, rate, 16, 2, 1),
		blocks: make(chan []uint32, 64),
		done:   make(chan struct{}),
	}
	go c.run()
	return c, nil
}

func (c *wireCapture) tap(block []uint32) {
	cp := make([]uint32, len(block))
	copy(cp, block)
	select {
	case c.blocks <- cp:
	default:
	}
}

func (c *wireCapture) run() {
	defer close(c.done)
	format := &goaudio.Format{SampleRate: c.enc.SampleRate, NumChannels: 2}
	for block := range c.blocks {
		buf := &goaudio.IntBuffer{Format: format, Data: make([]int, 2*len(block)), SourceBitDepth: 16}
		for i, w := range block {
			buf.Data[2*i] = int(int16(w & 0xFFFF))
			buf.Data[2*i+1] = int(int16(w >> 16))
		}
		if err := c.enc.Write(buf); err != nil {
			c.err = err
			return
		}
		c.frames += int64(len(block))
	}
}

// Close finalizes the WAV header. Only call it once the transceiver is
// stopped: the tap must not fire while the block channel is closing.
func (c *wireCapture) Close() error {
	close(c.blocks)
	<-c.done
	if err := c.enc.Close(); err != nil {
		c.f.Close()
		return err
	}
	if err := c.f.Sync(); err != nil {
		c.f.Close()
		return err
	}
	if err := c.f.Close(); err != nil {
		return err
	}
	return c.err
}

// keyReader reads raw stdin one byte at a time so single keypresses arrive
// without waiting for Enter. When stdin is not a terminal it fails quietly
// and playback simply runs without transport controls.
type keyReader struct {
	keys         chan byte
	stopCh       chan struct{}
	done         chan struct{}
	stopped      sync.Once
	fd           int
	nonblockSet  bool
	oldTermState *term.State
}

func newKeyReader() *keyReader {
	return &keyReader{
		keys:   make(chan byte, 8),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start sets stdin to raw non-blocking mode and begins reading in a
// goroutine. Call Stop() to restore stdin.
func (k *keyReader) Start() {
	k.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(k.fd)
	if err != nil {
		close(k.done)
		return
	}
	k.oldTermState = oldState

	if err := syscall.SetNonblock(k.fd, true); err != nil {
		_ = term.Restore(k.fd, k.oldTermState)
		k.oldTermState = nil
		close(k.done)
		return
	}
	k.nonblockSet = true

	go func() {
		defer close(k.done)
		buf := make([]byte, 1)

		for {
			select {
			case <-k.stopCh:
				return
			default:
			}

			n, err := syscall.Read(k.fd, buf)
			if n > 0 {
				select {
				case k.keys <- buf[0]:
				default:
				}
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
			if n == 0 {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()
}

// Stop terminates the reader goroutine and restores stdin.
func (k *keyReader) Stop() {
	k.stopped.Do(func() {
		close(k.stopCh)
	})
	<-k.done
	if k.nonblockSet {
		_ = syscall.SetNonblock(k.fd, false)
		k.nonblockSet = false
	}
	if k.oldTermState != nil {
		_ = term.Restore(k.fd, k.oldTermState)
		k.oldTermState = nil
	}
}
