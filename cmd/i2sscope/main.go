// main.go - i2sscope, oscilloscope view of the IntuitionI2S transmit stream

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
	"flag"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"

	i2s "github.com/intuitionamiga/IntuitionI2S"
)

const (
	screenW = 640
	screenH = 480
	barH    = 44

	// Two samples per pixel column keeps the trace dense at low
	// frequencies without smearing it at high ones.
	scopeWindow = 2 * screenW
)

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
		rate     int
		wide     bool
		backend  string
		bufCount int
		bufLen   int
	)

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.IntVar(&rate, "rate", i2s.I2S_DEFAULT_SAMPLE_RATE, "Requested sample rate in Hz")
	flagSet.BoolVar(&wide, "wide", false, "Let the divider search use 17, 18 and 19 bit words")
	flagSet.StringVar(&backend, "backend", "oto", "Audio backend: oto, alsa or headless")
	flagSet.IntVar(&bufCount, "bufcount", 0, "DMA slots in the ring (0 = driver default)")
	flagSet.IntVar(&bufLen, "buflen", 0, "32-bit sample words per slot (0 = driver default)")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: ./i2sscope [-rate hz] [-wide] [-backend oto|alsa|headless]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
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

	drv, err := i2s.Open(dev, i2s.Config{
		BufCount:  bufCount,
		BufLen:    bufLen,
		Rate:      rate,
		WideWords: wide,
		Logf:      func(format string, args ...any) { fmt.Printf(format, args...) },
	})
	if err != nil {
		fmt.Printf("Failed to open driver: %v\n", err)
		os.Exit(1)
	}

	rc := drv.GetRateConfig()
	fmt.Printf("On the wire: %d Hz (%d Hz requested)\n", rc.ActualHz, rc.RequestedHz)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	game := &scopeGame{drv: drv, dev: dev}
	dev.SetTap(game.tapBlock)
	go sweepProducer(ctx, drv, rc.ActualHz, &game.resetReq)

	ebiten.SetWindowSize(screenW, screenH)
	ebiten.SetWindowTitle("IntuitionI2S Scope (c) 2024 - 2026 Zayn Otley")
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)

	if err := ebiten.RunGame(game); err != nil {
		fmt.Printf("Ebiten error: %v\n", err)
	}

	cancel()
	drv.Close()
	dev.Close()
}

// sweepProducer pushes a phase-continuous sine that sweeps four octaves up
// and back down every ten seconds, so the scope has a changing waveform to
// show. Reset requests from the UI are applied here because Driver.Reset
// belongs to the producer goroutine.
func sweepProducer(ctx context.Context, drv *i2s.Driver, rate int, resetReq *atomic.Bool) {
	phase := 0.0
	n := 0
	for ctx.Err() == nil {
		if resetReq.Swap(false) {
			drv.Reset()
		}
		t := float64(n) / float64(rate)
		cycle := math.Mod(t, 10) / 10
		sweep := 1 - math.Abs(2*cycle-1)
		freq := 110 * math.Pow(16, sweep)
		phase += 2 * math.Pi * freq / float64(rate)
		s := int16(0.8 * 32767 * math.Sin(phase))
		if err := drv.PushSampleContext(ctx, i2s.PackSample(s, s)); err != nil {
			return
		}
		n++
	}
}

type scopeGame struct {
	drv *i2s.Driver
	dev *i2s.I2STransceiver

	mu   sync.Mutex
	ring [scopeWindow]int16 // rolling window of the left channel
	head int                // next write position

	trace [scopeWindow]int16 // draw-side copy, oldest first

	paused   bool
	resetReq atomic.Bool

	lastUnderruns int64
	flashFrames   int

	clipboardOnce sync.Once
	clipboardOK   bool
}

// tapBlock runs on the transmit engine goroutine for every drained
// descriptor, so it only copies and returns.
func (g *scopeGame) tapBlock(block []uint32) {
	g.mu.Lock()
	for _, w := range block {
		g.ring[g.head] = int16(w & 0xFFFF)
		g.head = (g.head + 1) % scopeWindow
	}
	g.mu.Unlock()
}

func (g *scopeGame) Update() error {
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		if g.paused {
			g.drv.Start()
		} else {
			g.drv.Stop()
		}
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.resetReq.Store(true)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		g.copyStats()
	}

	if u := g.drv.UnderrunCount(); u > g.lastUnderruns {
		g.lastUnderruns = u
		g.flashFrames = 30
	}
	if g.flashFrames > 0 {
		g.flashFrames--
	}
	return nil
}

func (g *scopeGame) Draw(screen *ebiten.Image) {
	g.mu.Lock()
	head := g.head
	for i := 0; i < scopeWindow; i++ {
		g.trace[i] = g.ring[(head+i)%scopeWindow]
	}
	g.mu.Unlock()

	g.drawTrace(screen)
	g.drawStatusBar(screen)
}

func (g *scopeGame) Layout(_, _ int) (int, int) {
	return screenW, screenH
}

func (g *scopeGame) drawTrace(screen *ebiten.Image) {
	traceColor := color.RGBA{0, 220, 90, 255}
	midColor := color.RGBA{50, 50, 50, 255}

	scopeH := screenH - barH
	mid := float64(scopeH) / 2
	amp := mid - 8

	ebitenutil.DrawLine(screen, 0, mid, screenW, mid, midColor)

	prevY := mid
	for x := 0; x < screenW; x++ {
		s := g.trace[x*scopeWindow/screenW]
		y := mid - float64(s)*amp/32768
		if x > 0 {
			ebitenutil.DrawLine(screen, float64(x-1), prevY, float64(x), y, traceColor)
		}
		prevY = y
	}
}

type statusToken struct {
	name    string
	enabled bool
}

func drawStatusLine(screen *ebiten.Image, x, baselineY int, label string, tokens []statusToken) {
	face := basicfont.Face7x13
	labelColor := color.RGBA{190, 190, 190, 255}
	offColor := color.RGBA{120, 120, 120, 255}
	onColor := color.RGBA{0, 220, 90, 255}

	text.Draw(screen, label, face, x, baselineY, labelColor)
	cursorX := x + text.BoundString(face, label).Dx() + 6

	for _, token := range tokens {
		c := offColor
		if token.enabled {
			c = onColor
		}
		text.Draw(screen, token.name, face, cursorX, baselineY, c)
		cursorX += text.BoundString(face, token.name).Dx() + 8
	}
}

func (g *scopeGame) drawStatusBar(screen *ebiten.Image) {
	s := g.drv.GetStats()
	y := screenH - barH
	ebitenutil.DrawRect(screen, 0, float64(y), screenW, barH, color.RGBA{0, 0, 0, 180})

	drawStatusLine(screen, 6, y+13, "I2S  ", []statusToken{
		{name: "TX", enabled: g.dev.IsStarted()},
		{name: "|", enabled: false},
		{name: "UNDERRUN", enabled: g.flashFrames > 0},
	})

	face := basicfont.Face7x13
	info := fmt.Sprintf("RATE %d/%d Hz  MDIV %d  BCK %d  BITS %d  BLOCKS %d  UNDERRUNS %d",
		s.Rate.ActualHz, s.Rate.RequestedHz, s.Rate.ClkmDiv, s.Rate.BckDiv, s.Rate.Bits,
		s.BlocksCompleted, s.Underruns)
	text.Draw(screen, info, face, 6, y+26, color.RGBA{190, 190, 190, 255})

	// Free-slot gauge: drains toward empty as the producer falls behind.
	gaugeW := 120
	gaugeX := 6 + text.BoundString(face, "FREE ").Dx()
	text.Draw(screen, "FREE ", face, 6, y+39, color.RGBA{190, 190, 190, 255})
	ebitenutil.DrawRect(screen, float64(gaugeX), float64(y+31), float64(gaugeW), 9, color.RGBA{60, 60, 60, 255})
	if s.QueueCapacity > 0 {
		fillW := gaugeW * s.FreeSlots / s.QueueCapacity
		ebitenutil.DrawRect(screen, float64(gaugeX), float64(y+31), float64(fillW), 9, color.RGBA{0, 220, 90, 255})
	}

	legend := "Q Quit  SPACE Pause  R Reset  C Copy stats"
	legendW := text.BoundString(face, legend).Dx()
	legendX := max(screenW-legendW-6, 6)
	text.Draw(screen, legend, face, legendX, y+39, color.RGBA{160, 160, 160, 255})
}

func (g *scopeGame) copyStats() {
	g.clipboardOnce.Do(func() {
		g.clipboardOK = clipboard.Init() == nil
	})
	if !g.clipboardOK {
		return
	}
	s := g.drv.GetStats()
	line := fmt.Sprintf("rate %d/%d Hz mdiv %d bck %d bits %d blocks %d underruns %d free %d/%d",
		s.Rate.ActualHz, s.Rate.RequestedHz, s.Rate.ClkmDiv, s.Rate.BckDiv, s.Rate.Bits,
		s.BlocksCompleted, s.Underruns, s.FreeSlots, s.QueueCapacity)
	clipboard.Write(clipboard.FmtText, []byte(line))
}
