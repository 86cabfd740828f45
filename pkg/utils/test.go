// SPDX-License-Identifier: MIT

// Package utils holds signal generators and fakes shared by the tests.
package utils

import (
	"math"
	"sync"

	"minipiano/internal/transport"
)

// MockTransport implements transport.Transport for testing.
type MockTransport struct {
	mu        sync.Mutex
	lastFrame *transport.Frame
	sends     int
	closed    bool
	SendErr   error
}

// Send stores a copy of the frame for later inspection instead of
// transmitting.
func (m *MockTransport) Send(frame *transport.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFrame = frame.Clone()
	m.sends++
	return m.SendErr
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// LastFrame returns the most recently sent frame, or nil.
func (m *MockTransport) LastFrame() *transport.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFrame
}

// Sends returns the number of Send calls.
func (m *MockTransport) Sends() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sends
}

// Closed reports whether Close was called.
func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ transport.Transport = (*MockTransport)(nil)

// GenerateComplexWave returns a 440 Hz tone with two harmonics, peak below 1.
func GenerateComplexWave(size int, sampleRate float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2 // 440Hz fundamental + harmonics
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// GenerateSineWave returns size samples of a sine at frequency, amplitude 0.9.
func GenerateSineWave(size int, sampleRate, frequency float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2*math.Pi*frequency*t) * 0.9)
	}
	return buffer
}

// FindPeakBin returns the index of the largest magnitude in
// [startBin, endBin], clamping the range to the slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
