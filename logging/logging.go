// Package logging contains the leveled, appender based logger used throughout handeye.
package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Logger is a leveled logger writing to a set of appenders. The C-prefixed variants add the
// fields attached to ctx with WithFields.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	CDebugw(ctx context.Context, msg string, keysAndValues ...interface{})

	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	CInfow(ctx context.Context, msg string, keysAndValues ...interface{})

	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	CWarnw(ctx context.Context, msg string, keysAndValues ...interface{})

	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	CErrorw(ctx context.Context, msg string, keysAndValues ...interface{})

	AddAppender(appender Appender)
	// Sublogger returns a logger named "<name>.<subname>" sharing this logger's level and
	// appenders.
	Sublogger(subname string) Logger
	SetLevel(level Level)
	GetLevel() Level
	// Sync flushes every appender.
	Sync() error
}

// NewLogger returns a logger that writes Info+ entries to stdout in UTC.
func NewLogger(name string) Logger {
	return newAppenderLogger(name, INFO, true, NewStdoutAppender())
}

// NewBlankLogger returns a Debug+ logger in UTC with no appenders.
func NewBlankLogger(name string) Logger {
	return newAppenderLogger(name, DEBUG, true)
}

// NewSinkLogger returns a logger whose entries go to sink. A nil sink falls back to stdout.
func NewSinkLogger(name string, sink func(string)) Logger {
	if sink == nil {
		return NewLogger(name)
	}
	logger := NewBlankLogger(name)
	logger.SetLevel(INFO)
	logger.AddAppender(NewSinkAppender(sink))
	return logger
}

// NewTestLogger returns a new logger that outputs Debug+ logs to the test in local time.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is like NewTestLogger but also saves logs to an in memory observer.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	observerCore, observedLogs := observer.New(zap.LevelEnablerFunc(zapcore.DebugLevel.Enabled))
	return newAppenderLogger("", DEBUG, false, NewTestAppender(tb), observerCore), observedLogs
}
