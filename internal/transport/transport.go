// SPDX-License-Identifier: MIT
package transport

import "time"

// Frame is one analysis result as it leaves the process.
type Frame struct {
	Sequence   uint32    `json:"seq"`
	Timestamp  time.Time `json:"ts"`
	SampleRate float64   `json:"sample_rate"`
	Frequency  float64   `json:"frequency"` // Oscillator frequency when the frame was built.
	Waveform   string    `json:"waveform"`
	Method     string    `json:"method"`
	Bins       []float64 `json:"bins"`
}

// Clone returns a deep copy of the frame. Publishers reuse a single Frame,
// transports that hold on to one past Send must clone it first.
func (f *Frame) Clone() *Frame {
	c := *f
	c.Bins = make([]float64, len(f.Bins))
	copy(c.Bins, f.Bins)
	return &c
}

// Transport defines a generic interface for sending analysis frames.
// Implementations should be thread-safe and must not retain frame after Send
// returns.
type Transport interface {
	Send(frame *Frame) error
	Close() error
}
