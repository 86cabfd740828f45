// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.Analysis.WindowSize != DefaultWindowSize {
		t.Errorf("WindowSize = %d, want %d", cfg.Analysis.WindowSize, DefaultWindowSize)
	}
	if cfg.Audio.SampleRate != DefaultSampleRate {
		t.Errorf("SampleRate = %f, want %d", cfg.Audio.SampleRate, DefaultSampleRate)
	}
	if cfg.Synth.BaseFrequency != 440 || cfg.Synth.Amplitude != 0.2 {
		t.Errorf("synth defaults = %+v", cfg.Synth)
	}
	if cfg.Analysis.RenderScale != 0.52 {
		t.Errorf("RenderScale = %f, want 0.52", cfg.Analysis.RenderScale)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_FileValues(t *testing.T) {
	path := writeTempConfig(t, `
log_level: debug
audio:
  sample_rate: 48000
  frames_per_buffer: 256
synth:
  base_frequency: 261.63
  waveform: triangle
analysis:
  window_size: 256
  method: gonum
  fft_window: hann
  refresh_interval: 50ms
transport:
  udp_enabled: true
  udp_target_address: 127.0.0.1:9999
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Audio.SampleRate != 48000 || cfg.Audio.FramesPerBuffer != 256 {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.Synth.BaseFrequency != 261.63 || cfg.Synth.Waveform != "triangle" {
		t.Errorf("synth = %+v", cfg.Synth)
	}
	// Unset keys keep their defaults.
	if cfg.Synth.Amplitude != DefaultAmplitude {
		t.Errorf("Amplitude = %f, want default %f", cfg.Synth.Amplitude, DefaultAmplitude)
	}
	if cfg.Analysis.RefreshInterval != 50*time.Millisecond {
		t.Errorf("RefreshInterval = %s, want 50ms", cfg.Analysis.RefreshInterval)
	}
	if !cfg.Transport.UDPEnabled || cfg.Transport.UDPTargetAddress != "127.0.0.1:9999" {
		t.Errorf("transport = %+v", cfg.Transport)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeTempConfig(t, "synth:\n  waveform: square\n")
	t.Setenv("ENV_SYNTH_WAVEFORM", "sawtooth")
	t.Setenv("ENV_ANALYSIS_WINDOW_SIZE", "512")
	t.Setenv("ENV_UDP_ENABLED", "true")
	t.Setenv("ENV_AUDIO_SAMPLE_RATE", "not-a-number")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Synth.Waveform != "sawtooth" {
		t.Errorf("Waveform = %s, want env override sawtooth", cfg.Synth.Waveform)
	}
	if cfg.Analysis.WindowSize != 512 {
		t.Errorf("WindowSize = %d, want 512", cfg.Analysis.WindowSize)
	}
	if !cfg.Transport.UDPEnabled {
		t.Error("UDPEnabled should be overridden to true")
	}
	if cfg.Audio.SampleRate != DefaultSampleRate {
		t.Errorf("unparsable override should be ignored, SampleRate = %f", cfg.Audio.SampleRate)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"Defaults", func(c *Config) {}, ""},
		{"Low Sample Rate", func(c *Config) { c.Audio.SampleRate = 100 }, "audio.sample_rate"},
		{"Zero Frames", func(c *Config) { c.Audio.FramesPerBuffer = 0 }, "audio.frames_per_buffer"},
		{"Bad Device", func(c *Config) { c.Audio.OutputDevice = -2 }, "audio.output_device"},
		{"Zero Frequency", func(c *Config) { c.Synth.BaseFrequency = 0 }, "synth.base_frequency"},
		{"Above Nyquist", func(c *Config) { c.Synth.BaseFrequency = 30000 }, "synth.base_frequency"},
		{"Negative Amplitude", func(c *Config) { c.Synth.Amplitude = -0.1 }, "synth.amplitude"},
		{"Zero Step", func(c *Config) { c.Synth.AmplitudeStep = 0 }, "synth.amplitude_step"},
		{"Bad Waveform", func(c *Config) { c.Synth.Waveform = "noise" }, "synth.waveform"},
		{"FFT Non Power Of Two", func(c *Config) { c.Analysis.WindowSize = 100 }, "try 128"},
		{"DFT Non Power Of Two", func(c *Config) {
			c.Analysis.WindowSize = 100
			c.Analysis.Method = "dft"
		}, ""},
		{"Bad Method", func(c *Config) { c.Analysis.Method = "wavelet" }, "analysis.method"},
		{"Bad Window", func(c *Config) { c.Analysis.FFTWindow = "kaiser" }, "analysis.fft_window"},
		{"Zero Refresh", func(c *Config) { c.Analysis.RefreshInterval = 0 }, "analysis.refresh_interval"},
		{"Zero Scale", func(c *Config) { c.Analysis.RenderScale = 0 }, "analysis.render_scale"},
		{"Bad Format", func(c *Config) { c.Recording.Format = "mp3" }, "recording.format"},
		{"Bad Bit Depth", func(c *Config) { c.Recording.BitDepth = 12 }, "recording.bit_depth"},
		{"UDP Without Address", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPTargetAddress = ""
		}, "transport.udp_target_address"},
		{"WebSocket Without Address", func(c *Config) {
			c.Transport.WebSocketEnabled = true
			c.Transport.WebSocketAddress = ""
		}, "transport.websocket_address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
