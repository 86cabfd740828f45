// SPDX-License-Identifier: MIT
package spectrum

import (
	"math"
	"math/cmplx"
	"math/rand/v2"
	"testing"

	"minipiano/pkg/utils"

	"github.com/mjibson/go-dsp/fft"
)

const tolerance = 1e-9

func randomSignal(rng *rand.Rand, n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = rng.Float64()*2 - 1
	}
	return x
}

func sineAtBin(n, bin int) []float64 {
	x := make([]float64, n)
	for t := range x {
		x[t] = math.Sin(2 * math.Pi * float64(bin*t) / float64(n))
	}
	return x
}

func assertCoefficients(t *testing.T, got, want []complex128, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for k := range want {
		if cmplx.Abs(got[k]-want[k]) > tol {
			t.Fatalf("bin %d: got %v, want %v", k, got[k], want[k])
		}
	}
}

func TestNewFFTRejectsNonPowerOfTwo(t *testing.T) {
	for _, n := range []int{0, -4, 3, 12, 100, 1000} {
		if _, err := NewFFT(n); err == nil {
			t.Errorf("NewFFT(%d) expected error, got nil", n)
		}
	}
}

func TestFFTDepth(t *testing.T) {
	tests := []struct {
		n     int
		depth int
	}{
		{1, 0},
		{2, 1},
		{8, 3},
		{128, 7},
		{1024, 10},
	}
	for _, tt := range tests {
		f, err := NewFFT(tt.n)
		if err != nil {
			t.Fatalf("NewFFT(%d) error: %v", tt.n, err)
		}
		if f.Len() != tt.n {
			t.Errorf("Len() = %d, want %d", f.Len(), tt.n)
		}
		if f.Depth() != tt.depth {
			t.Errorf("Depth() for %d = %d, want %d", tt.n, f.Depth(), tt.depth)
		}
	}
}

func TestFFTMatchesDFT(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for n := 1; n <= 1024; n *= 2 {
		src := randomSignal(rng, n)

		want := make([]complex128, n)
		DFT(want, src)

		f, err := NewFFT(n)
		if err != nil {
			t.Fatalf("NewFFT(%d) error: %v", n, err)
		}
		got := make([]complex128, n)
		f.Transform(got, src)

		assertCoefficients(t, got, want, tolerance*float64(n))
	}
}

func TestFFTMatchesGoDSP(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for _, n := range []int{2, 16, 128, 512} {
		src := randomSignal(rng, n)

		f, _ := NewFFT(n)
		got := make([]complex128, n)
		f.Transform(got, src)

		assertCoefficients(t, got, fft.FFTReal(src), tolerance*float64(n))
	}
}

func TestFFTLinearity(t *testing.T) {
	const n = 64
	rng := rand.New(rand.NewPCG(3, 5))
	x := randomSignal(rng, n)
	y := randomSignal(rng, n)
	a, b := 0.75, -1.5

	sum := make([]float64, n)
	for i := range sum {
		sum[i] = a*x[i] + b*y[i]
	}

	f, _ := NewFFT(n)
	fx := make([]complex128, n)
	fy := make([]complex128, n)
	fsum := make([]complex128, n)
	f.Transform(fx, x)
	f.Transform(fy, y)
	f.Transform(fsum, sum)

	want := make([]complex128, n)
	for k := range want {
		want[k] = complex(a, 0)*fx[k] + complex(b, 0)*fy[k]
	}
	assertCoefficients(t, fsum, want, tolerance*n)
}

func TestFFTBinAlignedSine(t *testing.T) {
	const (
		n   = 128
		bin = 5
	)
	f, _ := NewFFT(n)
	coeffs := make([]complex128, n)
	mags := make([]float64, n)
	// The generator peaks at 0.9 and rounds through float32.
	samples := utils.GenerateSineWave(n, 44100, bin*44100.0/n)
	src := make([]float64, n)
	for i, x := range samples {
		src[i] = float64(x)
	}
	f.Transform(coeffs, src)
	Magnitudes(mags, coeffs)

	const floatTolerance = 1e-5 * n
	for k, m := range mags {
		switch k {
		case bin, n - bin:
			if math.Abs(m-0.9*n/2) > floatTolerance {
				t.Errorf("bin %d magnitude = %f, want %f", k, m, 0.9*n/2)
			}
		default:
			if m > floatTolerance {
				t.Errorf("bin %d magnitude = %g, want ~0", k, m)
			}
		}
	}
}

func TestFFTStep(t *testing.T) {
	src := []float64{1, 1, 1, 1, 0, 0, 0, 0}
	f, _ := NewFFT(len(src))
	coeffs := make([]complex128, len(src))
	f.Transform(coeffs, src)

	if cmplx.Abs(coeffs[0]-4) > tolerance {
		t.Errorf("DC = %v, want 4", coeffs[0])
	}
	// Even bins other than DC vanish for a half-period step.
	for _, k := range []int{2, 4, 6} {
		if cmplx.Abs(coeffs[k]) > tolerance {
			t.Errorf("bin %d = %v, want 0", k, coeffs[k])
		}
	}
	// Real input gives conjugate-symmetric output.
	for k := 1; k < len(src); k++ {
		if cmplx.Abs(coeffs[k]-cmplx.Conj(coeffs[len(src)-k])) > tolerance {
			t.Errorf("bin %d not conjugate of bin %d", k, len(src)-k)
		}
	}
}

func TestDFTNonPowerOfTwo(t *testing.T) {
	const (
		n   = 100
		bin = 3
	)
	coeffs := make([]complex128, n)
	mags := make([]float64, n)
	DFT(coeffs, sineAtBin(n, bin))
	Magnitudes(mags, coeffs)

	if math.Abs(mags[bin]-n/2) > 1e-6 || math.Abs(mags[n-bin]-n/2) > 1e-6 {
		t.Errorf("peaks = %f, %f, want %d", mags[bin], mags[n-bin], n/2)
	}
	if mags[0] > 1e-6 {
		t.Errorf("DC = %g, want ~0", mags[0])
	}
}

func TestIdentity(t *testing.T) {
	src := []float64{0.5, -0.25, 1}
	dst := make([]float64, 3)
	Identity(dst, src)
	for i := range src {
		if dst[i] != src[i] {
			t.Fatalf("Identity = %v, want %v", dst, src)
		}
	}
}

func TestFFTZeroAllocs(t *testing.T) {
	f, _ := NewFFT(128)
	src := sineAtBin(128, 9)
	dst := make([]complex128, 128)
	mags := make([]float64, 128)

	allocs := testing.AllocsPerRun(100, func() {
		f.Transform(dst, src)
		Magnitudes(mags, dst)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Transform, got %.1f", allocs)
	}
}

func BenchmarkFFT128(b *testing.B) {
	f, _ := NewFFT(128)
	src := sineAtBin(128, 9)
	dst := make([]complex128, 128)
	b.ReportAllocs()
	for b.Loop() {
		f.Transform(dst, src)
	}
}

func BenchmarkFFT1024(b *testing.B) {
	f, _ := NewFFT(1024)
	src := sineAtBin(1024, 9)
	dst := make([]complex128, 1024)
	b.ReportAllocs()
	for b.Loop() {
		f.Transform(dst, src)
	}
}

func BenchmarkDFT128(b *testing.B) {
	src := sineAtBin(128, 9)
	dst := make([]complex128, 128)
	b.ReportAllocs()
	for b.Loop() {
		DFT(dst, src)
	}
}
