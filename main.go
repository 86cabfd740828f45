// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"minipiano/cmd"
	"minipiano/internal/audio"
	"minipiano/internal/config"
	applog "minipiano/internal/log"
	"minipiano/internal/spectrum"
	"minipiano/internal/synth"
	"minipiano/internal/transport"
	"minipiano/internal/transport/udp"
	"minipiano/internal/tui"
	"minipiano/pkg/build"
)

// main is the entry point for the piano.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and the config file
//   - Initialize PortAudio
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Start the analysis publisher and transports
//   - Start the output stream driven by the synth session
//   - Start recording if enabled
//   - Run the terminal UI, or wait for a signal in serve mode
//
// 3. Shutdown Phase (Cold Path):
//   - run returns when the UI quits or a signal arrives
//   - Deferred release of every acquired resource, in reverse order
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds run without ldflags and keep the default build info.
	buildErr := build.Initialize()

	cfg, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if cfg == nil {
		return // Help or version output.
	}

	if err := applog.Configure(cfg.LogLevel, cfg.Debug); err != nil {
		log.Fatal(err)
	}
	if buildErr != nil {
		applog.Debugf("Build info unavailable (%v), using development defaults", buildErr)
	}

	// Limit OS threads: one for the audio callback, one for UI and I/O.
	runtime.GOMAXPROCS(2)

	if err := run(cfg); err != nil {
		applog.Fatalf("%v", err)
	}
}

// run owns every resource for the lifetime of the program. Returning from it
// releases them through the deferred calls.
func run(cfg *config.Config) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	// Handle one-off commands that don't require the output stream.
	if cfg.Command == cmd.CommandList {
		return audio.ListDevices(os.Stdout)
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	session, err := synth.NewSession(cfg)
	if err != nil {
		return err
	}

	method, err := spectrum.ParseMethod(cfg.Analysis.Method)
	if err != nil {
		return err
	}
	windowType, err := spectrum.ParseWindowFunc(cfg.Analysis.FFTWindow)
	if err != nil {
		return err
	}
	analyzer, err := spectrum.NewAnalyzer(session.Window(), cfg.Analysis.WindowSize, cfg.Audio.SampleRate, method, windowType)
	if err != nil {
		return err
	}
	defer analyzer.Close()

	transports, err := openTransports(cfg)
	if err != nil {
		return err
	}
	publisher, err := synth.NewPublisher(cfg.Analysis.RefreshInterval, session, analyzer, transports...)
	if err != nil {
		closeTransports(transports)
		return err
	}
	publisher.Start()
	defer publisher.Close()

	engine, err := audio.NewEngine(cfg, session)
	if err != nil {
		return err
	}
	defer engine.Close()

	// The first callback marks the start of the hot path.
	if err := engine.StartOutputStream(); err != nil {
		return err
	}

	if cfg.Recording.Enabled {
		if err := engine.StartRecording(cfg.Recording.OutputFile); err != nil {
			return err
		}
		defer func() {
			if err := engine.StopRecording(); err != nil {
				applog.Errorf("Error stopping recording: %v", err)
				return
			}
			fmt.Printf("\nRecording saved to: %s\n", cfg.Recording.OutputFile)
		}()
	}

	if cfg.Command == cmd.CommandServe {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		applog.Infof("Serving '%s', press Ctrl+C to stop", build.GetBuildFlags().Name)
		<-ctx.Done()
		return nil
	}

	// The terminal UI owns the screen, logs go to a file or nowhere.
	restore, err := redirectLogs(cfg.LogFile)
	if err != nil {
		return err
	}
	defer restore()

	return tui.Run(session, analyzer, cfg.Analysis.RefreshInterval, cfg.Analysis.RenderScale)
}

// openTransports creates every enabled transport. On failure the ones
// already opened are closed.
func openTransports(cfg *config.Config) ([]transport.Transport, error) {
	var transports []transport.Transport

	if cfg.Transport.WebSocketEnabled {
		ws, err := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress, cfg.Transport.MinSendInterval)
		if err != nil {
			return nil, fmt.Errorf("failed to start websocket transport: %w", err)
		}
		transports = append(transports, ws)
	}

	if cfg.Transport.UDPEnabled {
		u, err := udp.NewTransport(cfg.Transport.UDPTargetAddress)
		if err != nil {
			closeTransports(transports)
			return nil, fmt.Errorf("failed to start udp transport: %w", err)
		}
		transports = append(transports, u)
	}

	if cfg.Transport.LogFrames {
		transports = append(transports, transport.NewLoggingTransport())
	}

	return transports, nil
}

func closeTransports(transports []transport.Transport) {
	for _, t := range transports {
		if err := t.Close(); err != nil {
			applog.Warnf("Error closing transport: %v", err)
		}
	}
}

// redirectLogs sends log output to path, or discards it when path is empty.
// The returned func restores stderr.
func redirectLogs(path string) (func(), error) {
	if path == "" {
		applog.SetOutput(io.Discard)
		return func() { applog.SetOutput(os.Stderr) }, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	applog.SetOutput(f)
	return func() {
		applog.SetOutput(os.Stderr)
		f.Close()
	}, nil
}
