// SPDX-License-Identifier: MIT

// Package cmd parses the command line into a validated configuration.
package cmd

import (
	"fmt"
	"time"

	"minipiano/internal/config"
	"minipiano/pkg/build"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Commands understood by main, stored in Config.Command.
const (
	CommandPlay  = ""
	CommandList  = "list"
	CommandServe = "serve"
)

// flagValues receives the raw flag values. They are copied into the loaded
// configuration only when the user set them, so the config file and ENV_*
// overrides keep working for everything else.
type flagValues struct {
	configFile      string
	device          int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
	frequency       float64
	waveform        string
	windowSize      int
	method          string
	fftWindow       string
	record          bool
	output          string
	websocket       bool
	websocketAddr   string
	udp             bool
	udpAddr         string
	logLevel        string
	logFile         string
	verbose         bool
}

// ParseArgs runs the CLI over args. It returns a nil config and nil error
// when cobra handled the invocation itself, e.g. --help or --version.
func ParseArgs(args []string) (*config.Config, error) {
	buildInfo := build.GetBuildFlags()
	var (
		flags   flagValues
		options *config.Config
	)

	load := func(cmd *cobra.Command, command string) error {
		cfg, err := config.LoadConfig(flags.configFile)
		if err != nil {
			return err
		}
		applyFlags(cfg, cmd.Flags(), &flags)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid flags: %w", err)
		}
		cfg.Command = command
		options = cfg
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, CommandPlay)
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, CommandList)
		},
	}
	rootCmd.AddCommand(listCmd)

	// Serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Play without the terminal UI and stream the spectrum",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, CommandServe)
		},
	}
	rootCmd.AddCommand(serveCmd)

	pf := rootCmd.PersistentFlags()

	// Configuration File
	pf.StringVarP(&flags.configFile, "config", "C", "",
		"Path to a YAML config file (default ./"+config.DefaultConfigFile+" when present)")

	// Audio Device Configuration
	pf.IntVarP(&flags.device, "device", "d", config.DefaultDeviceID,
		"Specify output device ID. Use 'list' command to see available devices.")
	pf.Float64VarP(&flags.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.IntVarP(&flags.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	pf.BoolVarP(&flags.lowLatency, "low-latency", "l", false,
		"Use low latency mode for real-time processing")

	// Synth Configuration
	pf.Float64VarP(&flags.frequency, "frequency", "f", config.DefaultBaseFrequency,
		"Base frequency in Hz, the note on the 'a' key")
	pf.StringVarP(&flags.waveform, "waveform", "w", config.DefaultWaveform,
		"Initial waveform: sine, square, triangle or sawtooth")

	// Analysis Configuration
	pf.IntVarP(&flags.windowSize, "window-size", "n", config.DefaultWindowSize,
		"Samples per analysis window (power of two for fft and gonum)")
	pf.StringVarP(&flags.method, "method", "m", config.DefaultMethod,
		"Analysis method: fft, dft, gonum or identity")
	pf.StringVar(&flags.fftWindow, "fft-window", config.DefaultFFTWindow,
		"Window function applied before the transform (e.g. rectangular, hann)")

	// Recording Configuration
	pf.BoolVarP(&flags.record, "record", "r", false,
		"Record the synthesized output")
	pf.StringVarP(&flags.output, "output", "o", "",
		"Output file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")

	// Transport Configuration
	pf.BoolVar(&flags.websocket, "websocket", false,
		"Stream spectrum frames to WebSocket clients")
	pf.StringVar(&flags.websocketAddr, "websocket-addr", config.DefaultWebSocketAddress,
		"Listen address for the WebSocket server")
	pf.BoolVar(&flags.udp, "udp", false,
		"Send spectrum packets over UDP")
	pf.StringVar(&flags.udpAddr, "udp-addr", config.DefaultUDPTargetAddress,
		"Target address for UDP packets")

	// Debug Configuration
	pf.StringVar(&flags.logLevel, "log-level", "info",
		"Log level: debug, info, warn or error")
	pf.StringVar(&flags.logFile, "log-file", "",
		"Write logs to this file while the terminal UI is running")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false,
		"Show verbose output")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return options, nil
}

// applyFlags copies every flag the user set into cfg.
func applyFlags(cfg *config.Config, fs *pflag.FlagSet, f *flagValues) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}

	set("device", func() { cfg.Audio.OutputDevice = f.device })
	set("sample-rate", func() { cfg.Audio.SampleRate = f.sampleRate })
	set("frames-per-buffer", func() { cfg.Audio.FramesPerBuffer = f.framesPerBuffer })
	set("low-latency", func() { cfg.Audio.LowLatency = f.lowLatency })
	set("frequency", func() { cfg.Synth.BaseFrequency = f.frequency })
	set("waveform", func() { cfg.Synth.Waveform = f.waveform })
	set("window-size", func() { cfg.Analysis.WindowSize = f.windowSize })
	set("method", func() { cfg.Analysis.Method = f.method })
	set("fft-window", func() { cfg.Analysis.FFTWindow = f.fftWindow })
	set("record", func() { cfg.Recording.Enabled = f.record })
	set("output", func() { cfg.Recording.OutputFile = f.output })
	set("websocket", func() { cfg.Transport.WebSocketEnabled = f.websocket })
	set("websocket-addr", func() { cfg.Transport.WebSocketAddress = f.websocketAddr })
	set("udp", func() { cfg.Transport.UDPEnabled = f.udp })
	set("udp-addr", func() { cfg.Transport.UDPTargetAddress = f.udpAddr })
	set("log-level", func() { cfg.LogLevel = f.logLevel })
	set("log-file", func() { cfg.LogFile = f.logFile })
	set("verbose", func() { cfg.Debug = f.verbose })

	// Defaults
	if cfg.Recording.Enabled && cfg.Recording.OutputFile == "" {
		cfg.Recording.OutputFile = "recording-" +
			time.Now().UTC().Format("02-01-2006-150405") +
			"." + cfg.Recording.Format
	}
}
