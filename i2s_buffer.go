// i2s_buffer.go - DMA sample buffers and descriptor ring

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
	"fmt"
	"sync/atomic"
)

const (
	MIN_BUF_COUNT = 2 // One slot streaming, one filling
	MIN_BUF_LEN   = 1
)

// BufferPool is the circular DMA sample memory: a fixed set of slots of
// 32-bit sample words, allocated zeroed once and never resized. A slot is
// identified by its index.
//
// Slot words are accessed with atomic word operations. The transmit engine
// streams a slot the writer may still be filling when the writer has fallen
// behind, exactly as the DMA engine reads memory out from under a late
// producer; atomic access keeps every word tear-free either way.
type BufferPool struct {
	bufs  [][]uint32 // One sample buffer per slot
	words int        // 32-bit words per slot
}

func newBufferPool(count, words int) (*BufferPool, error) {
	if count < MIN_BUF_COUNT {
		return nil, &AudioError{
			Operation: "buffer pool",
			Details:   fmt.Sprintf("need at least %d DMA buffers, got %d", MIN_BUF_COUNT, count),
		}
	}
	if words < MIN_BUF_LEN {
		return nil, &AudioError{
			Operation: "buffer pool",
			Details:   fmt.Sprintf("need at least %d words per buffer, got %d", MIN_BUF_LEN, words),
		}
	}
	pool := &BufferPool{bufs: make([][]uint32, count), words: words}
	for i := range pool.bufs {
		pool.bufs[i] = make([]uint32, words)
	}
	return pool, nil
}

// Count returns the number of slots.
func (p *BufferPool) Count() int { return len(p.bufs) }

// Words returns the slot length in 32-bit sample words.
func (p *BufferPool) Words() int { return p.words }

func (p *BufferPool) slot(i int) []uint32 { return p.bufs[i] }

func (p *BufferPool) zeroAll() {
	for _, buf := range p.bufs {
		for i := range buf {
			atomic.StoreUint32(&buf[i], 0)
		}
	}
}

// DMADescriptor mirrors one hardware DMA list entry. Buf aliases the pool
// slot the descriptor streams; Next carries the ring index of the following
// descriptor instead of a physical address.
type DMADescriptor struct {
	Buf    []uint32 // Sample buffer this descriptor streams
	Slot   int      // Pool slot index, reported through I2S_OUT_EOF_DES_ADDR
	Length int      // Payload bytes
	Size   int      // Buffer capacity in bytes
	EOF    bool     // Raise I2S_OUT_EOF_INT once this block has been sent
	Owner  bool     // Set while the DMA engine owns the descriptor
	Next   int      // Ring index of the next descriptor
}

// DescriptorRing is the circular descriptor list the transmit engine walks.
// Built once at Open; the links never change afterwards.
type DescriptorRing struct {
	descs []DMADescriptor
}

func newDescriptorRing(pool *BufferPool) *DescriptorRing {
	ring := &DescriptorRing{descs: make([]DMADescriptor, pool.Count())}
	for i := range ring.descs {
		next := i + 1
		if i == pool.Count()-1 {
			next = 0
		}
		ring.descs[i] = DMADescriptor{
			Buf:    pool.slot(i),
			Slot:   i,
			Length: pool.Words() * 4,
			Size:   pool.Words() * 4,
			EOF:    true,
			Owner:  true,
			Next:   next,
		}
	}
	return ring
}

// At returns the descriptor at ring index i.
func (r *DescriptorRing) At(i int) *DMADescriptor { return &r.descs[i] }

// Len returns the number of descriptors in the ring.
func (r *DescriptorRing) Len() int { return len(r.descs) }
