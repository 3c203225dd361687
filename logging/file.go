package logging

import (
	"fmt"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileAppender writes log lines to a size-rotated file.
type FileAppender struct {
	out *lumberjack.Logger
}

// NewFileAppender creates an appender writing to filename, rotating it at maxSizeMB and
// keeping maxBackups compressed copies.
func NewFileAppender(filename string, maxSizeMB, maxBackups int) *FileAppender {
	return &FileAppender{out: &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   true,
	}}
}

// Write appends the entry to the file.
func (fa *FileAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	_, err := fmt.Fprintln(fa.out, formatEntry(entry, fields, true))
	return err
}

// Sync is a no-op, lumberjack does not buffer.
func (fa *FileAppender) Sync() error {
	return nil
}

// Close closes the underlying file.
func (fa *FileAppender) Close() error {
	return fa.out.Close()
}
