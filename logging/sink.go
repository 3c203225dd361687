package logging

import (
	"sync"

	"go.uber.org/zap/zapcore"
)

// SinkAppender forwards every entry, rendered as a single line, to a host supplied callback.
// This is how embedding applications receive progress output from a calibration run.
type SinkAppender struct {
	mu   sync.Mutex
	sink func(string)
}

// NewSinkAppender returns an appender that calls sink once per log entry.
func NewSinkAppender(sink func(string)) *SinkAppender {
	return &SinkAppender{sink: sink}
}

// Write renders the entry and hands it to the sink. A panicking sink is swallowed so host
// bugs cannot break the caller that is logging.
func (sa *SinkAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	line := formatEntry(entry, fields, false)
	sa.mu.Lock()
	defer sa.mu.Unlock()
	defer func() {
		//nolint:errcheck
		recover()
	}()
	sa.sink(line)
	return nil
}

// Sync is a no-op.
func (sa *SinkAppender) Sync() error {
	return nil
}
