// SPDX-License-Identifier: MIT
/*
Package audio plays the synthesized signal through PortAudio with:
- A mono float32 output stream driven by the synth session
- WAV recording of the output through a lock-free block pool
- Device discovery and listing

Thread Safety:
- The output callback touches only the session and the recorder queue
- Recording state is an atomic pointer, swapped by Start/StopRecording
- Pre-allocates buffers to avoid GC in hot path
*/
package audio

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"minipiano/internal/config"
	applog "minipiano/internal/log"
	"minipiano/internal/synth"

	"github.com/gordonklaus/portaudio"
)

// Engine owns the output stream and the optional recorder.
type Engine struct {
	config  *config.Config
	session *synth.Session

	outputDevice  *portaudio.DeviceInfo
	outputLatency time.Duration
	outputStream  *portaudio.Stream

	recorder atomic.Pointer[Recorder]
}

// NewEngine resolves the configured output device. PortAudio must already
// be initialized.
func NewEngine(cfg *config.Config, session *synth.Session) (*Engine, error) {
	if session == nil {
		return nil, fmt.Errorf("engine requires a synth session")
	}

	outputDevice, err := OutputDevice(cfg.Audio.OutputDevice)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cfg,
		session:      session,
		outputDevice: outputDevice,
	}

	if cfg.Audio.LowLatency {
		engine.outputLatency = outputDevice.DefaultLowOutputLatency
	} else {
		engine.outputLatency = outputDevice.DefaultHighOutputLatency
	}

	applog.Infof("Audio: Output device '%s' (latency %s)", outputDevice.Name, engine.outputLatency)
	return engine, nil
}

// StartOutputStream opens the mono output stream and starts playback.
func (e *Engine) StartOutputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 0, // No input device
			Device:   nil,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   e.outputDevice,
			Latency:  e.outputLatency,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.config.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processOutputStream)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	e.outputStream = stream

	if err := e.outputStream.Start(); err != nil {
		e.outputStream.Close()
		e.outputStream = nil
		return fmt.Errorf("failed to start output stream: %w", err)
	}

	return nil
}

// StopOutputStream stops and closes the stream if it is open.
func (e *Engine) StopOutputStream() error {
	if e.outputStream != nil {
		if err := e.outputStream.Stop(); err != nil {
			return err
		}

		if err := e.outputStream.Close(); err != nil {
			return err
		}

		e.outputStream = nil
	}

	return nil
}

// processOutputStream is the audio callback. It must fill len(out) samples.
// Performance Critical:
// - Uses pre-allocated buffers only
// - No locks, no logging, no dynamic allocations
func (e *Engine) processOutputStream(out []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.session.Process(out)

	if rec := e.recorder.Load(); rec != nil {
		rec.Enqueue(out)
	}
}

// StartRecording begins writing the output to filename.
func (e *Engine) StartRecording(filename string) error {
	if e.recorder.Load() != nil {
		return fmt.Errorf("already recording")
	}

	rec, err := NewRecorder(filename, int(e.config.Audio.SampleRate), e.config.Recording.BitDepth, e.config.Audio.FramesPerBuffer)
	if err != nil {
		return err
	}
	if !e.recorder.CompareAndSwap(nil, rec) {
		rec.Close()
		return fmt.Errorf("already recording")
	}
	return nil
}

// StopRecording detaches the recorder from the callback and finalizes the
// file. It is a no-op when not recording.
func (e *Engine) StopRecording() error {
	rec := e.recorder.Swap(nil)
	if rec == nil {
		return nil
	}
	return rec.Close()
}

// IsRecording reports whether output is being written to disk.
func (e *Engine) IsRecording() bool {
	return e.recorder.Load() != nil
}

// Close stops recording and playback.
func (e *Engine) Close() error {
	if err := e.StopRecording(); err != nil {
		return err
	}

	if err := e.StopOutputStream(); err != nil {
		return err
	}

	return nil
}
