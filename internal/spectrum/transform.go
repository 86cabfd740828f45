// SPDX-License-Identifier: MIT
package spectrum

import (
	"fmt"
	"math"
	"math/cmplx"

	"minipiano/pkg/bitint"
)

// DFT computes the discrete Fourier transform of src into dst by direct
// summation. It works for any length and is O(n²), so it serves as the
// reference implementation and the fallback for sizes the FFT cannot take.
// dst must hold at least len(src) values.
func DFT(dst []complex128, src []float64) {
	n := len(src)
	for k := range n {
		var sum complex128
		for t, x := range src {
			// Reduce k*t modulo n before scaling to keep the angle small.
			angle := -2 * math.Pi * float64((k*t)%n) / float64(n)
			sin, cos := math.Sincos(angle)
			sum += complex(x*cos, x*sin)
		}
		dst[k] = sum
	}
}

// FFT is a recursive radix-2 decimation-in-time transform of a fixed size.
// Twiddle factors are computed once, and sub-transforms are addressed by
// offset and stride into the caller's buffers so Transform never allocates.
type FFT struct {
	n        int
	twiddles []complex128 // e^{-2πi·k/n} for k in [0, n/2).
}

// NewFFT prepares a transform of size n, which must be a power of two.
func NewFFT(n int) (*FFT, error) {
	if !bitint.IsPowerOfTwo(n) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", n)
	}

	twiddles := make([]complex128, n/2)
	for k := range twiddles {
		sin, cos := math.Sincos(-2 * math.Pi * float64(k) / float64(n))
		twiddles[k] = complex(cos, sin)
	}
	return &FFT{n: n, twiddles: twiddles}, nil
}

// Len returns the transform size.
func (f *FFT) Len() int {
	return f.n
}

// Depth returns the recursion depth of Transform, log2(Len()).
func (f *FFT) Depth() int {
	return bitint.Log2(f.n)
}

// Transform writes the n complex coefficients of src into dst. Both slices
// must hold at least Len() values; only the first Len() samples of src are
// read.
func (f *FFT) Transform(dst []complex128, src []float64) {
	f.transform(dst[:f.n], src, 0, 1)
}

// transform computes the DFT of src[offset], src[offset+stride], ... into
// out. The even half lands in out[:n/2] and the odd half in out[n/2:], then
// both are combined in place.
func (f *FFT) transform(out []complex128, src []float64, offset, stride int) {
	n := len(out)
	if n <= 1 {
		if n == 1 {
			out[0] = complex(src[offset], 0)
		}
		return
	}

	half := n / 2
	f.transform(out[:half], src, offset, 2*stride)
	f.transform(out[half:], src, offset+stride, 2*stride)

	// W_n^k = W_N^(k·stride), since n = N/stride at this depth.
	for k := range half {
		even := out[k]
		odd := f.twiddles[k*stride] * out[k+half]
		out[k] = even + odd
		out[k+half] = even - odd
	}
}

// Identity copies src into dst unchanged. It is the analysis mode that shows
// raw samples as bars, useful when debugging the capture path.
func Identity(dst []float64, src []float64) {
	copy(dst, src)
}

// Magnitudes writes |src[i]| into dst.
func Magnitudes(dst []float64, src []complex128) {
	for i, c := range src {
		dst[i] = cmplx.Abs(c)
	}
}
