// SPDX-License-Identifier: MIT
/*
Package capture keeps the most recent block of synthesized samples for the
analysis path.

Thread Safety:
- Exactly one writer (the audio callback) calls Capture
- Exactly one reader (the render tick) calls Snapshot
- Handoff is a lock-free triple buffer, the writer never waits on the reader
- A snapshot always holds one complete publication, never a torn mix of two

Layout:

	writer ring ──Capture──▶ slots[writer] ──swap──▶ middle ──swap──▶ slots[reader]

The middle slot index and a "fresh" bit live in a single atomic word. The
writer publishes by swapping its slot into the middle, the reader picks the
middle up only when the fresh bit is set.
*/
package capture

import (
	"fmt"
	"sync/atomic"
)

const (
	slotMask uint32 = 0b011
	freshBit uint32 = 0b100
)

// Buffer is a fixed-capacity window over the latest synthesized samples.
type Buffer struct {
	size int

	// Writer-owned state.
	ring   []float64
	pos    int // Next write position in ring.
	filled int // Number of valid samples, saturates at size.
	writer uint32

	// Reader-owned state.
	reader uint32

	slots  [3][]float64
	middle atomic.Uint32
	count  atomic.Int64 // Fill level of the last publication.
}

// New creates a Buffer holding size samples.
func New(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("capture size must be positive, got %d", size)
	}

	b := &Buffer{
		size:   size,
		ring:   make([]float64, size),
		writer: 0,
		reader: 1,
	}
	for i := range b.slots {
		b.slots[i] = make([]float64, size)
	}
	b.middle.Store(2)
	return b, nil
}

// Size returns the capacity N of the window.
func (b *Buffer) Size() int {
	return b.size
}

// Capture appends samples to the window and publishes the result. Only the
// last Size() samples of a longer block are retained. Must only be called
// from a single goroutine.
func (b *Buffer) Capture(samples []float32) {
	if len(samples) == 0 {
		return
	}
	if len(samples) > b.size {
		samples = samples[len(samples)-b.size:]
	}

	for _, s := range samples {
		b.ring[b.pos] = float64(s)
		b.pos++
		if b.pos == b.size {
			b.pos = 0
		}
	}
	b.filled = min(b.filled+len(samples), b.size)

	// Linearize oldest to newest into the writer slot. The oldest sample
	// sits at pos once the ring has wrapped.
	dst := b.slots[b.writer]
	n := copy(dst, b.ring[b.pos:])
	copy(dst[n:], b.ring[:b.pos])

	b.count.Store(int64(b.filled))
	b.writer = b.middle.Swap(b.writer|freshBit) & slotMask
}

// Snapshot copies the most recently published window into dst, oldest
// sample first, and reports whether a new publication was picked up since
// the previous call. dst must hold at least Size() values. Must only be
// called from a single goroutine.
func (b *Buffer) Snapshot(dst []float64) bool {
	fresh := b.middle.Load()&freshBit != 0
	if fresh {
		b.reader = b.middle.Swap(b.reader) & slotMask
	}
	copy(dst, b.slots[b.reader])
	return fresh
}

// Len returns the number of valid samples in the last publication. It is
// below Size() only while the window is warming up.
func (b *Buffer) Len() int {
	return int(b.count.Load())
}

// Reset clears the writer state. It must not run concurrently with Capture.
func (b *Buffer) Reset() {
	clear(b.ring)
	b.pos = 0
	b.filled = 0
	b.count.Store(0)
}
