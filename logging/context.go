package logging

import (
	"context"

	"go.uber.org/zap/zapcore"
)

type fieldsKey struct{}

// WithFields returns a context whose C*w log entries carry the given key/value pairs, such as
// the id of the calibration run that is logging. Fields accumulate across nested calls.
func WithFields(ctx context.Context, keysAndValues ...interface{}) context.Context {
	fields := append(append([]zapcore.Field{}, contextFields(ctx)...), pairsToFields(keysAndValues)...)
	return context.WithValue(ctx, fieldsKey{}, fields)
}

func contextFields(ctx context.Context) []zapcore.Field {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).([]zapcore.Field)
	return fields
}
