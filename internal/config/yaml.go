// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	applog "minipiano/internal/log"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when no path is given.
const DefaultConfigFile = "minipiano.yaml"

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty, it looks for DefaultConfigFile and falls back to the built-in
// defaults when none exists. Environment overrides are applied after the
// file, then the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides reads ENV_* variables on top of file values. Values that
// fail to parse are ignored with a warning.
func (c *Config) applyEnvOverrides() {
	// ENV_{...}
	// General overrides.
	envBool("ENV_DEBUG", &c.Debug)
	envString("ENV_LOG_LEVEL", &c.LogLevel)

	// ENV_AUDIO_{...}
	envInt("ENV_AUDIO_OUTPUT_DEVICE", &c.Audio.OutputDevice)
	envFloat("ENV_AUDIO_SAMPLE_RATE", &c.Audio.SampleRate)
	envInt("ENV_AUDIO_FRAMES_PER_BUFFER", &c.Audio.FramesPerBuffer)

	// ENV_SYNTH_{...}
	envFloat("ENV_SYNTH_BASE_FREQUENCY", &c.Synth.BaseFrequency)
	envFloat("ENV_SYNTH_AMPLITUDE", &c.Synth.Amplitude)
	envString("ENV_SYNTH_WAVEFORM", &c.Synth.Waveform)

	// ENV_ANALYSIS_{...}
	envInt("ENV_ANALYSIS_WINDOW_SIZE", &c.Analysis.WindowSize)
	envString("ENV_ANALYSIS_METHOD", &c.Analysis.Method)

	// ENV_WS_{...} and ENV_UDP_{...}
	// Specific to the transport layer.
	envBool("ENV_WS_ENABLED", &c.Transport.WebSocketEnabled)
	envString("ENV_WS_ADDRESS", &c.Transport.WebSocketAddress)
	envBool("ENV_UDP_ENABLED", &c.Transport.UDPEnabled)
	envString("ENV_UDP_TARGET_ADDRESS", &c.Transport.UDPTargetAddress)
	envDuration("ENV_MIN_SEND_INTERVAL", &c.Transport.MinSendInterval)
}

func envString(key string, dst *string) {
	if val, ok := os.LookupEnv(key); ok {
		*dst = val
		applog.Debugf("configuration: Overriding %s from env: %s", key, val)
	}
}

func envBool(key string, dst *bool) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			applog.Warnf("configuration: Ignoring %s=%q: %v", key, val, err)
			return
		}
		*dst = b
		applog.Debugf("configuration: Overriding %s from env: %v", key, b)
	}
}

func envInt(key string, dst *int) {
	if val, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(val)
		if err != nil {
			applog.Warnf("configuration: Ignoring %s=%q: %v", key, val, err)
			return
		}
		*dst = i
		applog.Debugf("configuration: Overriding %s from env: %d", key, i)
	}
}

func envFloat(key string, dst *float64) {
	if val, ok := os.LookupEnv(key); ok {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			applog.Warnf("configuration: Ignoring %s=%q: %v", key, val, err)
			return
		}
		*dst = f
		applog.Debugf("configuration: Overriding %s from env: %g", key, f)
	}
}

func envDuration(key string, dst *time.Duration) {
	if val, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(val)
		if err != nil {
			applog.Warnf("configuration: Ignoring %s=%q: %v", key, val, err)
			return
		}
		*dst = d
		applog.Debugf("configuration: Overriding %s from env: %s", key, d)
	}
}
