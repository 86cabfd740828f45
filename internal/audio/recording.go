// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	applog "minipiano/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// recorderBlocks is the number of callback blocks that can wait for the disk.
const recorderBlocks = 64

// Recorder writes mono float32 blocks to a PCM WAV file.
//
// Thread Safety:
//   - Enqueue is called from the audio callback and never blocks
//   - Blocks move through a fixed pool, free -> filled -> free
//   - Encoding and file I/O happen on the recorder goroutine only
//   - Blocks that find the pool empty are dropped and counted
//   - Close waits out in-flight Enqueue calls, later calls are counted as dropped
type Recorder struct {
	file    *os.File
	encoder *wav.Encoder
	intBuf  *audio.IntBuffer
	scale   float64

	free   chan []float32
	filled chan []float32
	done   chan struct{}
	wg     sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
	inFlight  atomic.Int32 // Enqueue calls between their closed check and return.
	dropped   atomic.Uint64
	frames    atomic.Uint64
}

// NewRecorder creates filename and starts the writer goroutine. blockSize
// is the largest block Enqueue accepts in one piece.
func NewRecorder(filename string, sampleRate, bitDepth, blockSize int) (*Recorder, error) {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	if blockSize <= 0 {
		return nil, fmt.Errorf("block size must be positive, got %d", blockSize)
	}

	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	r := &Recorder{
		file:    file,
		encoder: wav.NewEncoder(file, sampleRate, bitDepth, 1, 1),
		intBuf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: 1,
				SampleRate:  sampleRate,
			},
			Data:           make([]int, blockSize),
			SourceBitDepth: bitDepth,
		},
		scale:  float64(int64(1)<<(bitDepth-1) - 1),
		free:   make(chan []float32, recorderBlocks),
		filled: make(chan []float32, recorderBlocks),
		done:   make(chan struct{}),
	}
	for range recorderBlocks {
		r.free <- make([]float32, 0, blockSize)
	}

	r.wg.Add(1)
	go r.run()

	applog.Infof("Recorder: Writing %d-bit WAV to %s", bitDepth, filename)
	return r, nil
}

// Enqueue copies samples into pool blocks for the writer goroutine.
func (r *Recorder) Enqueue(samples []float32) {
	r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	if r.closed.Load() {
		r.dropped.Add(uint64(len(samples)))
		return
	}

	for len(samples) > 0 {
		var block []float32
		select {
		case block = <-r.free:
		default:
			r.dropped.Add(uint64(len(samples)))
			return
		}

		n := min(len(samples), cap(block))
		block = append(block[:0], samples[:n]...)
		samples = samples[n:]

		select {
		case r.filled <- block:
		default:
			r.dropped.Add(uint64(n))
			r.free <- block
		}
	}
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for {
		select {
		case block := <-r.filled:
			r.write(block)
		case <-r.done:
			// Drain what the callback managed to queue.
			for {
				select {
				case block := <-r.filled:
					r.write(block)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(block []float32) {
	data := r.intBuf.Data[:len(block)]
	for i, s := range block {
		data[i] = int(math.Round(float64(max(-1, min(1, s))) * r.scale))
	}
	r.intBuf.Data = data

	if err := r.encoder.Write(r.intBuf); err != nil {
		applog.Errorf("Recorder: Error writing to WAV file: %v", err)
	} else {
		r.frames.Add(uint64(len(block)))
	}
	r.intBuf.Data = r.intBuf.Data[:cap(r.intBuf.Data)]
	r.free <- block
}

// Dropped returns the number of samples lost because the writer fell behind.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Frames returns the number of samples written so far.
func (r *Recorder) Frames() uint64 {
	return r.frames.Load()
}

// Close flushes queued blocks, finalizes the WAV header and closes the file.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		// Once inFlight reads zero every later Enqueue sees closed, so the
		// drain in run picks up the last queued block.
		r.closed.Store(true)
		for r.inFlight.Load() > 0 {
			runtime.Gosched()
		}
		close(r.done)
		r.wg.Wait()

		if err := r.encoder.Close(); err != nil {
			r.closeErr = fmt.Errorf("failed to finalize WAV file: %w", err)
		}
		if err := r.file.Close(); err != nil && r.closeErr == nil {
			r.closeErr = err
		}
		if dropped := r.Dropped(); dropped > 0 {
			applog.Warnf("Recorder: Dropped %d samples", dropped)
		}
	})
	return r.closeErr
}
