// SPDX-License-Identifier: MIT

// Package synth owns the state shared by the audio callback, the render tick
// and input handling.
//
// Thread Safety:
//   - The oscillator belongs to the audio callback, nothing else touches it
//   - Control fields are atomics, loaded once per block by Process
//   - Control writers are serialized by a mutex the callback never takes
package synth

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"minipiano/internal/capture"
	"minipiano/internal/config"
	applog "minipiano/internal/log"
	"minipiano/internal/oscillator"
)

// NumNotes is the number of selectable notes, one octave inclusive.
const NumNotes = 13

// semitoneRatio is the equal-temperament step 2^(1/12).
var semitoneRatio = math.Pow(2, 1.0/12)

// Session ties one oscillator to the sample window it feeds.
type Session struct {
	sampleRate    float64
	amplitudeStep float64

	osc    *oscillator.Oscillator
	window *capture.Buffer

	// Float fields hold math.Float64bits values.
	baseFrequency atomic.Uint64
	frequency     atomic.Uint64
	amplitude     atomic.Uint64
	waveform      atomic.Uint32

	controlMu sync.Mutex
}

// NewSession builds a session from the synth, audio and analysis sections of
// cfg. The oscillator starts at the base frequency.
func NewSession(cfg *config.Config) (*Session, error) {
	waveform, err := oscillator.ParseWaveform(cfg.Synth.Waveform)
	if err != nil {
		return nil, err
	}
	if cfg.Audio.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", cfg.Audio.SampleRate)
	}
	if err := checkFrequency(cfg.Synth.BaseFrequency, cfg.Audio.SampleRate/2); err != nil {
		return nil, err
	}

	window, err := capture.New(cfg.Analysis.WindowSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create sample window: %w", err)
	}

	s := &Session{
		sampleRate:    cfg.Audio.SampleRate,
		amplitudeStep: cfg.Synth.AmplitudeStep,
		osc:           oscillator.New(waveform, cfg.Synth.BaseFrequency, cfg.Synth.Amplitude, cfg.Audio.SampleRate),
		window:        window,
	}
	storeFloat(&s.baseFrequency, cfg.Synth.BaseFrequency)
	storeFloat(&s.frequency, cfg.Synth.BaseFrequency)
	storeFloat(&s.amplitude, s.osc.Amplitude)
	s.waveform.Store(uint32(waveform))

	applog.Infof("Synth: Session ready (%s, %.2f Hz, amplitude %.2f, window %d)",
		waveform, cfg.Synth.BaseFrequency, s.osc.Amplitude, window.Size())
	return s, nil
}

func storeFloat(v *atomic.Uint64, f float64) {
	v.Store(math.Float64bits(f))
}

func loadFloat(v *atomic.Uint64) float64 {
	return math.Float64frombits(v.Load())
}

// checkFrequency accepts finite frequencies in (0, limit). Above Nyquist the
// oscillator would advance more than a cycle per sample.
func checkFrequency(f, limit float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return fmt.Errorf("frequency must be finite and positive, got %f", f)
	}
	if f >= limit {
		return fmt.Errorf("frequency %f Hz must be below %f Hz", f, limit)
	}
	return nil
}

// nyquist is the exclusive upper bound for every played frequency.
func (s *Session) nyquist() float64 {
	return s.sampleRate / 2
}

// Window returns the sample window filled by Process.
func (s *Session) Window() *capture.Buffer {
	return s.window
}

// SampleRate returns the session sample rate (Hz).
func (s *Session) SampleRate() float64 {
	return s.sampleRate
}

// Process is the audio callback body: it renders len(out) samples with the
// current controls and captures them for analysis. No allocations, no locks.
func (s *Session) Process(out []float32) {
	s.osc.Frequency = loadFloat(&s.frequency)
	s.osc.Amplitude = loadFloat(&s.amplitude)
	s.osc.Waveform = oscillator.Waveform(s.waveform.Load())

	s.osc.Process(out)
	s.window.Capture(out)
}

// BaseFrequency returns the frequency the note keys are relative to.
func (s *Session) BaseFrequency() float64 {
	return loadFloat(&s.baseFrequency)
}

// Frequency returns the frequency the oscillator is asked to play.
func (s *Session) Frequency() float64 {
	return loadFloat(&s.frequency)
}

// Amplitude returns the current peak amplitude.
func (s *Session) Amplitude() float64 {
	return loadFloat(&s.amplitude)
}

// Waveform returns the selected waveform.
func (s *Session) Waveform() oscillator.Waveform {
	return oscillator.Waveform(s.waveform.Load())
}

// SetBaseFrequency replaces the base frequency and plays it.
func (s *Session) SetBaseFrequency(f float64) error {
	if err := checkFrequency(f, s.nyquist()); err != nil {
		return err
	}
	s.controlMu.Lock()
	defer s.controlMu.Unlock()
	storeFloat(&s.baseFrequency, f)
	storeFloat(&s.frequency, f)
	return nil
}

// TransposeUp raises the base frequency by one semitone and plays it.
func (s *Session) TransposeUp() float64 {
	return s.transpose(semitoneRatio)
}

// TransposeDown lowers the base frequency by one semitone and plays it.
func (s *Session) TransposeDown() float64 {
	return s.transpose(1 / semitoneRatio)
}

func (s *Session) transpose(ratio float64) float64 {
	s.controlMu.Lock()
	defer s.controlMu.Unlock()

	base := loadFloat(&s.baseFrequency) * ratio
	if checkFrequency(base, s.nyquist()) != nil {
		return loadFloat(&s.baseFrequency)
	}
	storeFloat(&s.baseFrequency, base)
	storeFloat(&s.frequency, base)
	return base
}

// SelectNote plays the note semitone steps above the base frequency.
func (s *Session) SelectNote(semitone int) (float64, error) {
	if semitone < 0 || semitone >= NumNotes {
		return 0, fmt.Errorf("semitone must be in [0, %d], got %d", NumNotes-1, semitone)
	}
	s.controlMu.Lock()
	defer s.controlMu.Unlock()

	f := loadFloat(&s.baseFrequency) * math.Pow(2, float64(semitone)/12)
	if err := checkFrequency(f, s.nyquist()); err != nil {
		return loadFloat(&s.frequency), err
	}
	storeFloat(&s.frequency, f)
	return f, nil
}

// SelectWaveform switches the waveform without resetting the phase.
func (s *Session) SelectWaveform(w oscillator.Waveform) error {
	if !w.Valid() {
		return fmt.Errorf("unknown waveform %d", w)
	}
	s.waveform.Store(uint32(w))
	return nil
}

// CycleWaveform selects the next waveform and returns it.
func (s *Session) CycleWaveform() oscillator.Waveform {
	s.controlMu.Lock()
	defer s.controlMu.Unlock()
	w := s.Waveform().Next()
	s.waveform.Store(uint32(w))
	return w
}

// IncreaseAmplitude raises the amplitude by one step.
func (s *Session) IncreaseAmplitude() float64 {
	return s.adjustAmplitude(s.amplitudeStep)
}

// DecreaseAmplitude lowers the amplitude by one step, stopping at zero.
func (s *Session) DecreaseAmplitude() float64 {
	return s.adjustAmplitude(-s.amplitudeStep)
}

func (s *Session) adjustAmplitude(delta float64) float64 {
	s.controlMu.Lock()
	defer s.controlMu.Unlock()

	a := max(loadFloat(&s.amplitude)+delta, 0)
	storeFloat(&s.amplitude, a)
	return a
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName returns the nearest equal-temperament note for f, e.g. "A4" for
// 440 Hz. It returns "" for non-positive or non-finite input.
func NoteName(f float64) string {
	if checkFrequency(f, math.Inf(1)) != nil {
		return ""
	}
	// Semitones above C0, A4 = 440 Hz sits 57 semitones up.
	n := int(math.Round(12*math.Log2(f/440))) + 57
	if n < 0 {
		return ""
	}
	return fmt.Sprintf("%s%d", noteNames[n%12], n/12)
}
