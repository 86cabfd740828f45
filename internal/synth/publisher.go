// SPDX-License-Identifier: MIT
package synth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	applog "minipiano/internal/log"
	"minipiano/internal/spectrum"
	"minipiano/internal/transport"
)

// Publisher runs the analysis tick. On every tick it refreshes the analyzer
// from the session window and hands the resulting frame to each transport.
// It is the only goroutine that calls Analyzer.Update.
type Publisher struct {
	session    *Session
	analyzer   *spectrum.Analyzer
	transports []transport.Transport
	interval   time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	// Reused on every tick; transports copy what they keep.
	frame transport.Frame
}

// NewPublisher creates a Publisher. A non-positive interval defaults to
// 100ms.
func NewPublisher(interval time.Duration, session *Session, analyzer *spectrum.Analyzer, transports ...transport.Transport) (*Publisher, error) {
	if session == nil {
		return nil, fmt.Errorf("publisher: session cannot be nil")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("publisher: analyzer cannot be nil")
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
		applog.Warnf("Publisher: Invalid interval provided, defaulting to %s", interval)
	}

	applog.Infof("Publisher: Initializing (Interval: %s, Bins: %d, Transports: %d)", interval, analyzer.GetFFTSize(), len(transports))
	return &Publisher{
		session:    session,
		analyzer:   analyzer,
		transports: transports,
		interval:   interval,
		frame: transport.Frame{
			SampleRate: analyzer.GetSampleRate(),
			Bins:       make([]float64, analyzer.GetFFTSize()),
		},
	}, nil
}

// Start launches the tick goroutine. Calling Start while running is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("Publisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Debugf("Publisher: Goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.Tick()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop ends the tick goroutine and waits for it. Safe to call repeatedly.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Debugf("Publisher: Goroutine finished.")
}

// Tick runs one analysis pass and fans the frame out. It must not run
// concurrently with itself; Start guarantees that for the tick goroutine.
func (p *Publisher) Tick() {
	p.analyzer.Update()
	if len(p.transports) == 0 {
		return
	}

	if err := p.analyzer.GetMagnitudesInto(p.frame.Bins); err != nil {
		applog.Errorf("Publisher: Error getting magnitudes: %v", err)
		return
	}
	p.frame.Sequence++
	p.frame.Timestamp = time.Now()
	p.frame.Frequency = p.session.Frequency()
	p.frame.Waveform = p.session.Waveform().String()
	p.frame.Method = p.analyzer.Method().String()

	for _, t := range p.transports {
		if err := t.Send(&p.frame); err != nil {
			applog.Debugf("Publisher: Send error: %v", err)
		}
	}
}

// Close stops the goroutine and closes every transport.
func (p *Publisher) Close() error {
	p.Stop()
	var errs []error
	for _, t := range p.transports {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
