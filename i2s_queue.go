// i2s_queue.go - Free-slot queue between the completion handler and the sample writer

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

import "context"

// slotQueue is the bounded FIFO of free slot indices. The completion
// handler is the only sender and the sample writer the only receiver. A
// buffered channel provides the ordering and the blocking receive; the one
// behaviour layered on top is the interrupt side's eviction, where a full
// queue drops its oldest entry to admit the newest.
type slotQueue struct {
	ch chan int
}

func newSlotQueue(depth int) *slotQueue {
	return &slotQueue{ch: make(chan int, depth)}
}

// put hands a freed slot to the writer side. It never blocks: when the
// queue is full the oldest entry is dropped first. Returns whether an entry
// was evicted so the caller can count the underrun.
//
// Single sender only. After the eviction the send cannot find the queue
// full again, so it always lands.
func (q *slotQueue) put(slot int) (evicted bool) {
	select {
	case q.ch <- slot:
		return false
	default:
	}
	select {
	case <-q.ch:
		evicted = true
	default:
		// The writer drained the queue between the two selects.
	}
	q.ch <- slot
	return evicted
}

// get blocks until a free slot is available.
func (q *slotQueue) get() int {
	return <-q.ch
}

// getContext is get with a deadline: it returns the context's error when
// the context ends before a slot frees up.
func (q *slotQueue) getContext(ctx context.Context) (int, error) {
	select {
	case slot := <-q.ch:
		return slot, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// depth returns how many free slots are queued right now.
func (q *slotQueue) depth() int { return len(q.ch) }

// capacity returns the fixed queue depth.
func (q *slotQueue) capacity() int { return cap(q.ch) }

// drainAll empties the queue. Only safe with both sides stopped.
func (q *slotQueue) drainAll() {
	for {
		select {
		case <-q.ch:
		default:
			return
		}
	}
}
