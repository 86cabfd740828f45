// SPDX-License-Identifier: MIT
package transport

import (
	applog "minipiano/internal/log"
)

// LoggingTransport implements the Transport interface by logging a summary
// of each frame at debug level.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the strongest bin of the frame.
func (lt *LoggingTransport) Send(frame *Frame) error {
	peak, peakBin := 0.0, 0
	usable := min(len(frame.Bins)/2+1, len(frame.Bins))
	for i, v := range frame.Bins[:usable] {
		if v > peak {
			peak, peakBin = v, i
		}
	}
	applog.Debugf("LOG_TRANSPORT: frame %d, %.2f Hz %s, peak bin %d (%.3f)",
		frame.Sequence, frame.Frequency, frame.Waveform, peakBin, peak)
	return nil // Logging transport never fails to "send"
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("LOG_TRANSPORT: Close called.")
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
