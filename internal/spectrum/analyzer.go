// SPDX-License-Identifier: MIT

// Package spectrum turns the captured sample window into per-bin magnitudes.
// It provides the transforms themselves (DFT, FFT, Identity) and an Analyzer
// that owns the pre-allocated workspace used on every render tick.
package spectrum

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	applog "minipiano/internal/log"
	"minipiano/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// Method selects the transform used by an Analyzer.
type Method int32

const (
	MethodFFT      Method = iota // Recursive radix-2 FFT (power-of-two sizes).
	MethodDFT                    // Direct O(n²) DFT (any size).
	MethodGonum                  // gonum's real FFT, mirrored to n bins.
	MethodIdentity               // Raw samples, no transform.

	numMethods
)

// String returns the lower-case name of the method.
func (m Method) String() string {
	switch m {
	case MethodFFT:
		return "fft"
	case MethodDFT:
		return "dft"
	case MethodGonum:
		return "gonum"
	case MethodIdentity:
		return "identity"
	default:
		return "unknown"
	}
}

// Next returns the following method, wrapping at the end of the list.
func (m Method) Next() Method {
	return (m + 1) % numMethods
}

// needsPowerOfTwo reports whether the method only accepts power-of-two sizes.
func (m Method) needsPowerOfTwo() bool {
	return m == MethodFFT || m == MethodGonum
}

// ParseMethod converts a name (case-insensitive) to a Method, returns
// MethodFFT and an error if the name is unknown.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(name) {
	case "fft":
		return MethodFFT, nil
	case "dft":
		return MethodDFT, nil
	case "gonum":
		return MethodGonum, nil
	case "identity", "none", "raw":
		return MethodIdentity, nil
	default:
		return MethodFFT, fmt.Errorf("unknown analysis method: '%s'", name)
	}
}

// WindowFunc selects the taper applied to the samples before transforming.
type WindowFunc int

const (
	Rectangular WindowFunc = iota
	BartlettHann
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc
// enum, returns Rectangular and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "", "rectangular", "none":
		return Rectangular, nil
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Rectangular, fmt.Errorf("unknown window function name: '%s'", name)
	}
}

// applyWindow fills coeffs with the selected window.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case Rectangular:
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		applog.Warnf("Analysis: Unknown window function type %d, using rectangular", windowType)
	}
}

// Source provides torn-free copies of the sample window.
// *capture.Buffer satisfies it.
type Source interface {
	Snapshot(dst []float64) bool
}

// workspace holds the buffers reused on every Update.
type workspace struct {
	input     []float64    // Snapshot of the sample window.
	windowed  []float64    // input multiplied by the window coefficients.
	window    []float64    // Window coefficients.
	coeffs    []complex128 // Full n-bin transform output.
	half      []complex128 // n/2+1 bins for the gonum real FFT.
	magnitude []float64    // Published magnitudes, guarded by mu.
	mu        sync.RWMutex
}

// Analyzer computes a frequency array from a Source on demand. Update is
// meant for a single render goroutine; the getters are safe from any
// goroutine.
type Analyzer struct {
	source     Source
	size       int
	sampleRate float64
	method     atomic.Int32

	fft   *FFT         // nil unless size is a power of two.
	gonum *fourier.FFT // nil unless size is a power of two.

	workspace workspace
}

// NewAnalyzer creates an Analyzer over source with a window of size samples.
// If method needs a power-of-two size and size is not one, the analyzer
// falls back to the DFT.
func NewAnalyzer(source Source, size int, sampleRate float64, method Method, windowType WindowFunc) (*Analyzer, error) {
	if source == nil {
		return nil, fmt.Errorf("analyzer requires a sample source")
	}
	if size <= 0 {
		return nil, fmt.Errorf("analysis size must be positive, got %d", size)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	if method < 0 || method >= numMethods {
		return nil, fmt.Errorf("unknown analysis method %d", method)
	}

	a := &Analyzer{
		source:     source,
		size:       size,
		sampleRate: sampleRate,
	}

	if bitint.IsPowerOfTwo(size) {
		fft, err := NewFFT(size)
		if err != nil {
			return nil, err
		}
		a.fft = fft
		a.gonum = fourier.NewFFT(size)
	} else if method.needsPowerOfTwo() {
		applog.Warnf("Analysis: %s needs a power-of-two size, got %d; falling back to dft", method, size)
		method = MethodDFT
	}
	a.method.Store(int32(method))

	win := make([]float64, size)
	applyWindow(win, windowType)

	a.workspace = workspace{
		input:     make([]float64, size),
		windowed:  make([]float64, size),
		window:    win,
		coeffs:    make([]complex128, size),
		half:      make([]complex128, size/2+1),
		magnitude: make([]float64, size),
	}

	applog.Infof("Analysis: Initializing Analyzer (Size: %d, SampleRate: %.1f Hz, Method: %s)", size, sampleRate, method)
	return a, nil
}

// Method returns the transform currently in use.
func (a *Analyzer) Method() Method {
	return Method(a.method.Load())
}

// SetMethod switches the transform used by subsequent updates.
func (a *Analyzer) SetMethod(m Method) error {
	if m < 0 || m >= numMethods {
		return fmt.Errorf("unknown analysis method %d", m)
	}
	if m.needsPowerOfTwo() && a.fft == nil {
		return fmt.Errorf("%s needs a power-of-two size, got %d", m, a.size)
	}
	a.method.Store(int32(m))
	return nil
}

// CycleMethod moves to the next method usable at this size and returns it.
func (a *Analyzer) CycleMethod() Method {
	m := a.Method()
	for range numMethods {
		m = m.Next()
		if a.SetMethod(m) == nil {
			return m
		}
	}
	return a.Method()
}

// Update snapshots the source, transforms it and publishes the magnitudes.
// It reports whether the source had new samples since the previous call.
func (a *Analyzer) Update() bool {
	ws := &a.workspace
	fresh := a.source.Snapshot(ws.input)

	for i, x := range ws.input {
		ws.windowed[i] = x * ws.window[i]
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()

	switch a.Method() {
	case MethodFFT:
		a.fft.Transform(ws.coeffs, ws.windowed)
		Magnitudes(ws.magnitude, ws.coeffs)
	case MethodGonum:
		a.gonum.Coefficients(ws.half, ws.windowed)
		Magnitudes(ws.magnitude, ws.half)
		// Real input, the upper bins mirror the lower ones.
		for k := 1; k < a.size-len(ws.half)+1; k++ {
			ws.magnitude[a.size-k] = ws.magnitude[k]
		}
	case MethodDFT:
		DFT(ws.coeffs, ws.windowed)
		Magnitudes(ws.magnitude, ws.coeffs)
	case MethodIdentity:
		Identity(ws.magnitude, ws.windowed)
	}

	return fresh
}

// GetMagnitudes returns a copy of the latest magnitudes.
// NOTE: This method allocates; use GetMagnitudesInto on hot paths.
func (a *Analyzer) GetMagnitudes() []float64 {
	a.workspace.mu.RLock()
	defer a.workspace.mu.RUnlock()

	magCopy := make([]float64, len(a.workspace.magnitude))
	copy(magCopy, a.workspace.magnitude)
	return magCopy
}

// GetMagnitudesInto copies the latest magnitudes into dest, which must have
// exactly GetFFTSize() elements.
func (a *Analyzer) GetMagnitudesInto(dest []float64) error {
	a.workspace.mu.RLock()
	defer a.workspace.mu.RUnlock()

	if len(dest) != len(a.workspace.magnitude) {
		return fmt.Errorf("destination slice length %d does not match required length %d", len(dest), len(a.workspace.magnitude))
	}
	copy(dest, a.workspace.magnitude)
	return nil
}

// GetFrequencyForBin returns the analysis frequency (Hz) of a bin index.
// Bins above n/2 report the frequency of their mirror.
func (a *Analyzer) GetFrequencyForBin(binIndex int) float64 {
	if binIndex < 0 || binIndex >= a.size {
		return 0.0
	}
	if binIndex > a.size/2 {
		binIndex = a.size - binIndex
	}
	return float64(binIndex) * (a.sampleRate / float64(a.size))
}

// GetFFTSize returns the window size N.
func (a *Analyzer) GetFFTSize() int {
	return a.size
}

// GetSampleRate returns the configured sample rate (Hz).
func (a *Analyzer) GetSampleRate() float64 {
	return a.sampleRate
}

// Close logs the shutdown; the analyzer holds no external resources.
func (a *Analyzer) Close() error {
	applog.Debugf("Analysis: Closing Analyzer")
	return nil
}
