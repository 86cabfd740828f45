// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"math"
	"time"

	"minipiano/internal/oscillator"
	"minipiano/internal/spectrum"
	"minipiano/pkg/bitint"
)

// Core configuration constants that define the boundaries and defaults
// for the synthesizer and the analysis path.
const (
	DefaultDeviceID        = MinDeviceID // System default output device
	DefaultSampleRate      = 44100       // CD-quality audio
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultLowLatency      = false       // Standard latency mode

	DefaultBaseFrequency = 440.0 // Concert A
	DefaultAmplitude     = 0.2
	DefaultAmplitudeStep = 0.05
	DefaultWaveform      = "sine"

	DefaultWindowSize      = 128 // Power of two for the FFT
	DefaultMethod          = "fft"
	DefaultFFTWindow       = "rectangular"
	DefaultRefreshInterval = 100 * time.Millisecond // ~10Hz render tick
	DefaultRenderScale     = 0.52

	DefaultRecordingFormat = "wav"
	DefaultBitDepth        = 16

	DefaultWebSocketAddress = ":8080"
	DefaultUDPTargetAddress = "127.0.0.1:9090"

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer
	MaxWindowSize   = 1 << 16
)

// Config represents the application configuration, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`             // Enable debug mode (verbose logging).
	LogLevel  string          `yaml:"log_level"`         // Logging level ("debug", "info", "warn", "error").
	LogFile   string          `yaml:"log_file"`          // Log destination while the terminal UI owns the screen.
	Command   string          `yaml:"command,omitempty"` // A one-off command to execute instead of running the synth (e.g. "list").
	Audio     AudioConfig     `yaml:"audio"`             // Audio device settings.
	Synth     SynthConfig     `yaml:"synth"`             // Oscillator defaults and control steps.
	Analysis  AnalysisConfig  `yaml:"analysis"`          // Spectrum analysis settings.
	Recording RecordingConfig `yaml:"recording"`         // Recording of the synthesized output.
	Transport TransportConfig `yaml:"transport"`         // Spectrum streaming settings.
}

// AudioConfig holds settings related to the output device.
type AudioConfig struct {
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index for output (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (e.g., 44100, 48000).
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per callback (affects latency).
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
}

// SynthConfig holds the initial oscillator state.
type SynthConfig struct {
	BaseFrequency float64 `yaml:"base_frequency"` // Base frequency in Hz, the "C" key of the layout.
	Amplitude     float64 `yaml:"amplitude"`      // Initial amplitude.
	AmplitudeStep float64 `yaml:"amplitude_step"` // Step used by the volume keys.
	Waveform      string  `yaml:"waveform"`       // sine, square, triangle or sawtooth.
}

// AnalysisConfig holds settings for the spectrum analysis path.
type AnalysisConfig struct {
	WindowSize      int           `yaml:"window_size"`      // Samples per analysis window (power of two for fft/gonum).
	Method          string        `yaml:"method"`           // fft, dft, gonum or identity.
	FFTWindow       string        `yaml:"fft_window"`       // Taper applied before the transform (e.g. "rectangular", "hann").
	RefreshInterval time.Duration `yaml:"refresh_interval"` // Interval between analysis passes.
	RenderScale     float64       `yaml:"render_scale"`     // Magnitude to bar height scaling.
}

// RecordingConfig holds settings related to recording the output.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`     // Record the synthesized output to file.
	OutputFile string `yaml:"output_file"` // Output path, generated when empty.
	Format     string `yaml:"format"`      // File format (wav only).
	BitDepth   int    `yaml:"bit_depth"`   // Bit depth for recorded audio (16, 24 or 32).
}

// TransportConfig holds settings related to streaming analysis frames.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve frames over WebSocket.
	WebSocketAddress string        `yaml:"websocket_address"`  // Listen address for the WebSocket server.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send frames as UDP packets.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets.
	MinSendInterval  time.Duration `yaml:"min_send_interval"`  // Rate limit for WebSocket broadcasts.
	LogFrames        bool          `yaml:"log_frames"`         // Log a summary of each frame at debug level.
}

// NewConfig returns a Config populated with the built-in defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
		},
		Synth: SynthConfig{
			BaseFrequency: DefaultBaseFrequency,
			Amplitude:     DefaultAmplitude,
			AmplitudeStep: DefaultAmplitudeStep,
			Waveform:      DefaultWaveform,
		},
		Analysis: AnalysisConfig{
			WindowSize:      DefaultWindowSize,
			Method:          DefaultMethod,
			FFTWindow:       DefaultFFTWindow,
			RefreshInterval: DefaultRefreshInterval,
			RenderScale:     DefaultRenderScale,
		},
		Recording: RecordingConfig{
			Format:   DefaultRecordingFormat,
			BitDepth: DefaultBitDepth,
		},
		Transport: TransportConfig{
			WebSocketAddress: DefaultWebSocketAddress,
			UDPTargetAddress: DefaultUDPTargetAddress,
			MinSendInterval:  DefaultRefreshInterval,
		},
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Audio.OutputDevice < MinDeviceID {
		return fmt.Errorf("audio.output_device must be >= %d, got %d", MinDeviceID, c.Audio.OutputDevice)
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate must be within [%d, %d], got %.0f", MinSampleRate, MaxSampleRate, c.Audio.SampleRate)
	}
	if c.Audio.FramesPerBuffer <= 0 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer must be within [1, %d], got %d", MaxBufferFrames, c.Audio.FramesPerBuffer)
	}

	if !isPositive(c.Synth.BaseFrequency) || c.Synth.BaseFrequency >= c.Audio.SampleRate/2 {
		return fmt.Errorf("synth.base_frequency must be positive and below Nyquist, got %f", c.Synth.BaseFrequency)
	}
	if c.Synth.Amplitude < 0 || math.IsNaN(c.Synth.Amplitude) {
		return fmt.Errorf("synth.amplitude must be >= 0, got %f", c.Synth.Amplitude)
	}
	if !isPositive(c.Synth.AmplitudeStep) {
		return fmt.Errorf("synth.amplitude_step must be positive, got %f", c.Synth.AmplitudeStep)
	}
	if _, err := oscillator.ParseWaveform(c.Synth.Waveform); err != nil {
		return fmt.Errorf("synth.waveform: %w", err)
	}

	if c.Analysis.WindowSize <= 0 || c.Analysis.WindowSize > MaxWindowSize {
		return fmt.Errorf("analysis.window_size must be within [1, %d], got %d", MaxWindowSize, c.Analysis.WindowSize)
	}
	method, err := spectrum.ParseMethod(c.Analysis.Method)
	if err != nil {
		return fmt.Errorf("analysis.method: %w", err)
	}
	if (method == spectrum.MethodFFT || method == spectrum.MethodGonum) && !bitint.IsPowerOfTwo(c.Analysis.WindowSize) {
		return fmt.Errorf("analysis.window_size must be a power of two for %s, got %d (try %d or use method dft)",
			method, c.Analysis.WindowSize, bitint.NextPowerOfTwo(c.Analysis.WindowSize))
	}
	if _, err := spectrum.ParseWindowFunc(c.Analysis.FFTWindow); err != nil {
		return fmt.Errorf("analysis.fft_window: %w", err)
	}
	if c.Analysis.RefreshInterval <= 0 {
		return fmt.Errorf("analysis.refresh_interval must be positive, got %s", c.Analysis.RefreshInterval)
	}
	if !isPositive(c.Analysis.RenderScale) {
		return fmt.Errorf("analysis.render_scale must be positive, got %f", c.Analysis.RenderScale)
	}

	if c.Recording.Format != DefaultRecordingFormat {
		return fmt.Errorf("recording.format '%s' is not supported (wav only)", c.Recording.Format)
	}
	switch c.Recording.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("recording.bit_depth must be 16, 24 or 32, got %d", c.Recording.BitDepth)
	}

	if c.Transport.WebSocketEnabled && c.Transport.WebSocketAddress == "" {
		return fmt.Errorf("transport.websocket_address must be set when WebSocket is enabled")
	}
	if c.Transport.UDPEnabled && c.Transport.UDPTargetAddress == "" {
		return fmt.Errorf("transport.udp_target_address must be set when UDP is enabled")
	}
	if c.Transport.MinSendInterval < 0 {
		return fmt.Errorf("transport.min_send_interval must not be negative, got %s", c.Transport.MinSendInterval)
	}

	return nil
}

func isPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
