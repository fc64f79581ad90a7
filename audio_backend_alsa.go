//go:build !headless

// audio_backend_alsa.go - ALSA audio output implementation

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

/*
#cgo LDFLAGS: -lasound
#cgo CFLAGS: -Ofast -march=native -mtune=native -flto
#include <alsa/asoundlib.h>
#include <stdlib.h>

static snd_pcm_t* openPCM(const char* device, int* err) {
    snd_pcm_t* handle;
    *err = snd_pcm_open(&handle, device, SND_PCM_STREAM_PLAYBACK, 0);
    return handle;
}

static int setupPCM(snd_pcm_t* handle, unsigned int rate) {
    snd_pcm_hw_params_t* params;
    int err;

    snd_pcm_hw_params_alloca(&params);
    err = snd_pcm_hw_params_any(handle, params);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_access(handle, params, SND_PCM_ACCESS_RW_INTERLEAVED);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_format(handle, params, SND_PCM_FORMAT_S16_LE);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_channels(handle, params, 2);
    if (err < 0) return err;

    err = snd_pcm_hw_params_set_rate(handle, params, rate, 0);
    if (err < 0) return err;

    err = snd_pcm_hw_params(handle, params);
    if (err < 0) return err;

    return snd_pcm_prepare(handle);
}

static int writePCM(snd_pcm_t* handle, short* frames, int nframes) {
    return snd_pcm_writei(handle, frames, nframes);
}

static void closePCM(snd_pcm_t* handle) {
    if (handle != NULL) {
        snd_pcm_drain(handle);
        snd_pcm_close(handle);
    }
}
*/
import "C"
import (
	"sync"
	"unsafe"
)

// ALSAOutput plays blocks straight through snd_pcm_writei. The write call
// itself blocks until the device has room, so no extra buffering sits
// between the transmit engine and the sound hardware.
type ALSAOutput struct {
	handle  *C.snd_pcm_t
	started bool
	playing bool
	mu      sync.Mutex
	frames  []C.short // Interleaved L/R staging buffer
}

func NewALSAOutput(sampleRate int) (*ALSAOutput, error) {
	var cerr C.int
	dev := C.CString("default")
	handle := C.openPCM(dev, &cerr)
	C.free(unsafe.Pointer(dev))
	if cerr < 0 {
		return nil, &AudioError{
			Operation: "alsa open",
			Details:   C.GoString(C.snd_strerror(cerr)),
		}
	}

	if cerr = C.setupPCM(handle, C.uint(sampleRate)); cerr < 0 {
		C.closePCM(handle)
		return nil, &AudioError{
			Operation: "alsa setup",
			Details:   C.GoString(C.snd_strerror(cerr)),
		}
	}

	return &ALSAOutput{handle: handle}, nil
}

func (a *ALSAOutput) WriteBlock(block []uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.playing || len(block) == 0 {
		return nil
	}

	if cap(a.frames) < len(block)*2 {
		a.frames = make([]C.short, len(block)*2)
	}
	frames := a.frames[:len(block)*2]
	for i, w := range block {
		frames[2*i] = C.short(int16(w))         // Left, low half
		frames[2*i+1] = C.short(int16(w >> 16)) // Right, high half
	}

	n := C.writePCM(a.handle, &frames[0], C.int(len(block)))
	if n < 0 {
		if n == -C.EPIPE {
			C.snd_pcm_prepare(a.handle)
			n = C.writePCM(a.handle, &frames[0], C.int(len(block)))
		}
		if n < 0 {
			return &AudioError{
				Operation: "alsa write",
				Details:   C.GoString(C.snd_strerror(C.int(n))),
			}
		}
	}
	return nil
}

func (a *ALSAOutput) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		a.started = true
		a.playing = true
	}
	return nil
}

func (a *ALSAOutput) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.playing {
		a.playing = false
		a.started = false
	}
	return nil
}

func (a *ALSAOutput) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.handle != nil {
		a.playing = false
		a.started = false
		C.closePCM(a.handle)
		a.handle = nil
	}
	return nil
}

func (a *ALSAOutput) IsStarted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.started
}
