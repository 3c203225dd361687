package logging

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// callerSkip is the number of frames between emit and the code that called a Logger method:
// emit, the logs/logf/logw helper, then the exported method.
const callerSkip = 3

// appenderLogger fans entries out to its appenders. Subloggers share the parent's level and
// appenders, so one SetLevel call on the root applies to every component logger.
type appenderLogger struct {
	name      string
	level     AtomicLevel
	utc       bool
	appenders *[]Appender
}

func newAppenderLogger(name string, level Level, utc bool, appenders ...Appender) *appenderLogger {
	list := append([]Appender{}, appenders...)
	return &appenderLogger{name: name, level: NewAtomicLevelAt(level), utc: utc, appenders: &list}
}

func (l *appenderLogger) AddAppender(appender Appender) {
	*l.appenders = append(*l.appenders, appender)
}

func (l *appenderLogger) SetLevel(level Level) {
	l.level.Set(level)
}

func (l *appenderLogger) GetLevel() Level {
	return l.level.Get()
}

func (l *appenderLogger) Sublogger(subname string) Logger {
	name := subname
	if l.name != "" {
		name = l.name + "." + subname
	}
	return &appenderLogger{name: name, level: l.level, utc: l.utc, appenders: l.appenders}
}

func (l *appenderLogger) Sync() error {
	var err error
	for _, appender := range *l.appenders {
		err = multierr.Append(err, appender.Sync())
	}
	return err
}

func (l *appenderLogger) enabled(level Level) bool {
	return level >= l.level.Get()
}

func (l *appenderLogger) emit(ctx context.Context, level Level, msg string, fields []zapcore.Field) {
	entry := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       time.Now(),
		LoggerName: l.name,
		Message:    msg,
	}
	if l.utc {
		entry.Time = entry.Time.UTC()
	}
	if pc, file, line, ok := runtime.Caller(callerSkip); ok {
		entry.Caller = zapcore.NewEntryCaller(pc, file, line, true)
	}
	fields = append(fields, contextFields(ctx)...)
	for _, appender := range *l.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprintln(os.Stderr, "log appender:", err)
		}
	}
}

func (l *appenderLogger) logs(ctx context.Context, level Level, args []interface{}) {
	if l.enabled(level) {
		l.emit(ctx, level, fmt.Sprint(args...), nil)
	}
}

func (l *appenderLogger) logf(ctx context.Context, level Level, template string, args []interface{}) {
	if l.enabled(level) {
		l.emit(ctx, level, fmt.Sprintf(template, args...), nil)
	}
}

func (l *appenderLogger) logw(ctx context.Context, level Level, msg string, keysAndValues []interface{}) {
	if l.enabled(level) {
		l.emit(ctx, level, msg, pairsToFields(keysAndValues))
	}
}

// pairsToFields turns alternating keys and values into zap fields. A trailing key with no value
// is kept with a placeholder.
func pairsToFields(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.String(key, "(missing value)"))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

func (l *appenderLogger) Debug(args ...interface{}) { l.logs(context.Background(), DEBUG, args) }
func (l *appenderLogger) Info(args ...interface{})  { l.logs(context.Background(), INFO, args) }
func (l *appenderLogger) Warn(args ...interface{})  { l.logs(context.Background(), WARN, args) }
func (l *appenderLogger) Error(args ...interface{}) { l.logs(context.Background(), ERROR, args) }

func (l *appenderLogger) Debugf(template string, args ...interface{}) {
	l.logf(context.Background(), DEBUG, template, args)
}

func (l *appenderLogger) Infof(template string, args ...interface{}) {
	l.logf(context.Background(), INFO, template, args)
}

func (l *appenderLogger) Warnf(template string, args ...interface{}) {
	l.logf(context.Background(), WARN, template, args)
}

func (l *appenderLogger) Errorf(template string, args ...interface{}) {
	l.logf(context.Background(), ERROR, template, args)
}

func (l *appenderLogger) Debugw(msg string, keysAndValues ...interface{}) {
	l.logw(context.Background(), DEBUG, msg, keysAndValues)
}

func (l *appenderLogger) Infow(msg string, keysAndValues ...interface{}) {
	l.logw(context.Background(), INFO, msg, keysAndValues)
}

func (l *appenderLogger) Warnw(msg string, keysAndValues ...interface{}) {
	l.logw(context.Background(), WARN, msg, keysAndValues)
}

func (l *appenderLogger) Errorw(msg string, keysAndValues ...interface{}) {
	l.logw(context.Background(), ERROR, msg, keysAndValues)
}

func (l *appenderLogger) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.logw(ctx, DEBUG, msg, keysAndValues)
}

func (l *appenderLogger) CInfow(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.logw(ctx, INFO, msg, keysAndValues)
}

func (l *appenderLogger) CWarnw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.logw(ctx, WARN, msg, keysAndValues)
}

func (l *appenderLogger) CErrorw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.logw(ctx, ERROR, msg, keysAndValues)
}
