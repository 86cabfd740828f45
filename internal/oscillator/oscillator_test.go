// SPDX-License-Identifier: MIT
package oscillator

import (
	"math"
	"testing"
)

const (
	testSampleRate = 44100

	// dyadicFrequency gives df = 1/32 at testSampleRate, every phase step is
	// exact in binary floating point.
	dyadicFrequency = testSampleRate / 32.0
)

func TestSinePhaseAfterHundredSamples(t *testing.T) {
	osc := New(Sine, 440, 1, testSampleRate)
	for range 100 {
		osc.Advance()
	}

	want := math.Mod(100*440.0/testSampleRate, 1)
	if math.Abs(osc.Phase-want) > 1e-9 {
		t.Errorf("Phase after 100 samples = %.12f, want %.12f", osc.Phase, want)
	}
}

func TestSinePhaseReturnsAfterOnePeriod(t *testing.T) {
	tests := []struct {
		name      string
		frequency float64
	}{
		{"441Hz", 441},
		{"882Hz", 882},
		{"4410Hz", 4410},
		{"Dyadic", dyadicFrequency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			osc := New(Sine, tt.frequency, 1, testSampleRate)
			osc.Phase = 0.25
			start := osc.Phase

			period := int(math.Round(testSampleRate / tt.frequency))
			for range period {
				osc.Advance()
			}

			// Distance on the unit circle so 0.9999999 and 0 compare equal.
			d := math.Abs(osc.Phase - start)
			d = math.Min(d, 1-d)
			if d > 1e-9 {
				t.Errorf("Phase after one period = %.12f, want %.12f", osc.Phase, start)
			}
		})
	}
}

func TestSineOutput(t *testing.T) {
	osc := New(Sine, dyadicFrequency, 0.5, testSampleRate)

	for i := range 64 {
		got := osc.Advance()
		want := 0.5 * math.Sin(2*math.Pi*float64(i%32)/32)
		if math.Abs(got-want) > 1e-12 {
			t.Fatalf("sample %d = %.12f, want %.12f", i, got, want)
		}
		if osc.Phase < 0 || osc.Phase >= 1 {
			t.Fatalf("sample %d left phase out of range: %f", i, osc.Phase)
		}
	}
}

func TestSquareHalfPeriods(t *testing.T) {
	const amplitude = 0.3
	osc := New(Square, dyadicFrequency, amplitude, testSampleRate)

	for i := range 96 {
		got := osc.Advance()
		want := -amplitude
		if i%32 < 16 {
			want = amplitude
		}
		if got != want {
			t.Fatalf("sample %d = %f, want %f", i, got, want)
		}
		if osc.Phase < -1 || osc.Phase >= 1 {
			t.Fatalf("sample %d left phase out of range: %f", i, osc.Phase)
		}
	}
}

func TestSquareValuesOnly(t *testing.T) {
	osc := New(Square, 440, 0.7, testSampleRate)
	positive := 0
	for range testSampleRate {
		switch osc.Advance() {
		case 0.7:
			positive++
		case -0.7:
		default:
			t.Fatal("square produced a value other than +/- amplitude")
		}
	}

	// One second at 440Hz, half of the samples should be positive.
	if math.Abs(float64(positive)-testSampleRate/2) > 440 {
		t.Errorf("positive samples = %d, want about %d", positive, testSampleRate/2)
	}
}

func TestTriangleBoundedAndSlope(t *testing.T) {
	tests := []struct {
		name      string
		frequency float64
		amplitude float64
	}{
		{"A4", 440, 1},
		{"Low", 27.5, 0.2},
		{"High", 9000, 0.8},
		{"Dyadic", dyadicFrequency, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			osc := New(Triangle, tt.frequency, tt.amplitude, testSampleRate)
			maxStep := 2*tt.amplitude*tt.frequency/testSampleRate + 1e-12

			prev := osc.Advance()
			for i := 1; i < 4*testSampleRate; i++ {
				got := osc.Advance()
				if math.Abs(got) > tt.amplitude+1e-12 {
					t.Fatalf("sample %d = %f exceeds amplitude %f", i, got, tt.amplitude)
				}
				if math.Abs(got-prev) > maxStep {
					t.Fatalf("sample %d jumped %f, slope bound %f", i, math.Abs(got-prev), maxStep)
				}
				prev = got
			}
		})
	}
}

func TestTriangleReversesAtPeaks(t *testing.T) {
	osc := New(Triangle, dyadicFrequency, 1, testSampleRate)

	var peak, trough float64
	for range 256 {
		v := osc.Advance()
		peak = math.Max(peak, v)
		trough = math.Min(trough, v)
	}
	if peak != 1 {
		t.Errorf("peak = %f, want 1", peak)
	}
	if trough != -1 {
		t.Errorf("trough = %f, want -1", trough)
	}
}

func TestSawtoothMonotonicWithSingleReset(t *testing.T) {
	osc := New(Sawtooth, dyadicFrequency, 1, testSampleRate)
	const period = 32

	// Skip the first reset so each window holds exactly one.
	for range 8 {
		osc.Advance()
	}
	for cycle := range 4 {
		resets := 0
		prev := osc.Advance()
		for i := 1; i < period; i++ {
			got := osc.Advance()
			if got < prev {
				resets++
			}
			prev = got
		}
		if resets != 1 {
			t.Errorf("cycle %d: %d resets, want 1", cycle, resets)
		}
	}
}

func TestSawtoothRange(t *testing.T) {
	osc := New(Sawtooth, 440, 0.4, testSampleRate)
	for i := range testSampleRate {
		v := osc.Advance()
		if v < -0.4-1e-12 || v >= 0.4 {
			t.Fatalf("sample %d = %f outside [-0.4, 0.4)", i, v)
		}
	}
}

func TestPhaseBoundedAboveNyquist(t *testing.T) {
	tests := []struct {
		waveform Waveform
		low      float64
		high     float64
	}{
		{Sine, 0, 1},
		{Square, -1, 1},
		{Triangle, -1, 1},
		{Sawtooth, -1, 1},
	}

	// Steps of 0.7 to 3.3 cycles per sample.
	for _, frequency := range []float64{0.7 * testSampleRate, 1.8 * testSampleRate, 3.3 * testSampleRate} {
		for _, tt := range tests {
			osc := New(tt.waveform, frequency, 0.5, testSampleRate)
			for i := range 4096 {
				if v := osc.Advance(); math.Abs(v) > 0.5 {
					t.Fatalf("%s at %.0f Hz: sample %d = %f exceeds amplitude", tt.waveform, frequency, i, v)
				}
				if osc.Phase < tt.low || osc.Phase > tt.high {
					t.Fatalf("%s at %.0f Hz: phase %f left [%g, %g]", tt.waveform, frequency, osc.Phase, tt.low, tt.high)
				}
			}
		}
	}
}

func TestWaveformSwitchKeepsPhase(t *testing.T) {
	osc := New(Sine, 440, 1, testSampleRate)
	for range 37 {
		osc.Advance()
	}
	phase := osc.Phase

	osc.Waveform = Sawtooth
	if osc.Phase != phase {
		t.Fatalf("switching waveform reset phase: got %f, want %f", osc.Phase, phase)
	}

	// The first sawtooth sample comes straight from the sine phase.
	if got := osc.Advance(); got != phase {
		t.Errorf("first sawtooth sample = %f, want %f", got, phase)
	}
}

func TestAmplitudeClamp(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{-1, 0},
		{0, 0},
		{0.2, 0.2},
		{math.NaN(), 0},
	}

	for _, tt := range tests {
		osc := New(Sine, 440, tt.input, testSampleRate)
		if osc.Amplitude != tt.expected {
			t.Errorf("New(amplitude=%f).Amplitude = %f, want %f", tt.input, osc.Amplitude, tt.expected)
		}
	}
}

func TestUnknownWaveformIsSilent(t *testing.T) {
	osc := New(Waveform(42), 440, 1, testSampleRate)
	buf := []float32{1, 1, 1, 1}
	osc.Process(buf)
	for i, v := range buf {
		if v != 0 {
			t.Errorf("buf[%d] = %f, want 0", i, v)
		}
	}
	if osc.Advance() != 0 || osc.Phase != 0 {
		t.Error("unknown waveform should not advance the phase")
	}
}

func TestProcessMatchesAdvance(t *testing.T) {
	for w := Sine; w < numWaveforms; w++ {
		t.Run(w.String(), func(t *testing.T) {
			a := New(w, 523.25, 0.6, testSampleRate)
			b := New(w, 523.25, 0.6, testSampleRate)

			buf := make([]float32, 512)
			a.Process(buf)
			for i, got := range buf {
				if want := float32(b.Advance()); got != want {
					t.Fatalf("sample %d: Process=%f Advance=%f", i, got, want)
				}
			}
		})
	}
}

func TestProcessZeroAllocs(t *testing.T) {
	buf := make([]float32, 512)
	for w := Sine; w < numWaveforms; w++ {
		osc := New(w, 440, 0.2, testSampleRate)
		allocs := testing.AllocsPerRun(100, func() {
			osc.Process(buf)
		})
		if allocs > 0 {
			t.Errorf("Expected zero allocations in %s Process, got %.1f", w, allocs)
		}
	}
}

func TestParseWaveform(t *testing.T) {
	tests := []struct {
		name    string
		want    Waveform
		wantErr bool
	}{
		{"sine", Sine, false},
		{"SQUARE", Square, false},
		{"tooth", Square, false},
		{" triangle ", Triangle, false},
		{"saw", Sawtooth, false},
		{"noise", Sine, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWaveform(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWaveform(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseWaveform(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestWaveformNextCycles(t *testing.T) {
	w := Sine
	seen := map[Waveform]bool{}
	for range numWaveforms {
		seen[w] = true
		w = w.Next()
	}
	if w != Sine || len(seen) != int(numWaveforms) {
		t.Errorf("Next did not cycle through all waveforms: ended at %v, saw %d", w, len(seen))
	}
}

func BenchmarkProcess(b *testing.B) {
	buf := make([]float32, 512)
	for w := Sine; w < numWaveforms; w++ {
		b.Run(w.String(), func(b *testing.B) {
			osc := New(w, 440, 0.2, testSampleRate)
			b.ReportAllocs()
			for b.Loop() {
				osc.Process(buf)
			}
		})
	}
}
