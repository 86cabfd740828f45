// SPDX-License-Identifier: MIT
package synth

import (
	"testing"
	"time"

	"minipiano/internal/spectrum"
	"minipiano/internal/transport"
	"minipiano/pkg/utils"
)

func newTestPublisher(t *testing.T, transports ...*utils.MockTransport) (*Session, *spectrum.Analyzer, *Publisher) {
	t.Helper()
	s := newTestSession(t)
	a, err := spectrum.NewAnalyzer(s.Window(), s.Window().Size(), s.SampleRate(), spectrum.MethodFFT, spectrum.Rectangular)
	if err != nil {
		t.Fatalf("NewAnalyzer error: %v", err)
	}

	var ts []transport.Transport
	for _, mt := range transports {
		ts = append(ts, mt)
	}
	p, err := NewPublisher(10*time.Millisecond, s, a, ts...)
	if err != nil {
		t.Fatalf("NewPublisher error: %v", err)
	}
	return s, a, p
}

func TestNewPublisherValidation(t *testing.T) {
	s := newTestSession(t)
	a, _ := spectrum.NewAnalyzer(s.Window(), 128, 44100, spectrum.MethodFFT, spectrum.Rectangular)

	if _, err := NewPublisher(time.Millisecond, nil, a); err == nil {
		t.Error("expected error for nil session")
	}
	if _, err := NewPublisher(time.Millisecond, s, nil); err == nil {
		t.Error("expected error for nil analyzer")
	}
	if p, err := NewPublisher(0, s, a); err != nil || p.interval != 100*time.Millisecond {
		t.Errorf("zero interval should default to 100ms, got %v, %v", p, err)
	}
}

func TestPublisherTick(t *testing.T) {
	mt := &utils.MockTransport{}
	s, a, p := newTestPublisher(t, mt)

	// Bin 10 of a 128-point window at 44100 Hz.
	binFreq := 10 * 44100.0 / 128
	if err := s.SetBaseFrequency(binFreq); err != nil {
		t.Fatal(err)
	}
	s.SelectWaveform(0)
	out := make([]float32, 1024)
	s.Process(out)

	p.Tick()
	p.Tick()

	frame := mt.LastFrame()
	if frame == nil {
		t.Fatal("no frame sent")
	}
	if frame.Sequence != 2 || mt.Sends() != 2 {
		t.Errorf("Sequence = %d, Sends = %d, want 2/2", frame.Sequence, mt.Sends())
	}
	if frame.Frequency != binFreq || frame.Waveform != "sine" || frame.Method != "fft" {
		t.Errorf("frame metadata = %+v", frame)
	}
	if len(frame.Bins) != a.GetFFTSize() {
		t.Fatalf("len(Bins) = %d, want %d", len(frame.Bins), a.GetFFTSize())
	}
	if peak := utils.FindPeakBin(frame.Bins, 1, 64); peak != 10 {
		t.Errorf("peak bin = %d, want 10", peak)
	}
}

func TestPublisherStartStop(t *testing.T) {
	mt := &utils.MockTransport{}
	_, _, p := newTestPublisher(t, mt)

	p.Start()
	p.Start() // No-op while running.

	deadline := time.Now().Add(2 * time.Second)
	for mt.Sends() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	p.Stop()
	p.Stop()

	sent := mt.Sends()
	if sent < 3 {
		t.Fatalf("Sends() = %d, want at least 3", sent)
	}
	time.Sleep(30 * time.Millisecond)
	if mt.Sends() != sent {
		t.Error("publisher kept sending after Stop")
	}
}

func TestPublisherCloseClosesTransports(t *testing.T) {
	a, b := &utils.MockTransport{}, &utils.MockTransport{}
	_, _, p := newTestPublisher(t, a, b)
	p.Start()
	if err := p.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if !a.Closed() || !b.Closed() {
		t.Error("Close should close every transport")
	}
}
