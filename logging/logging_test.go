package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewBlankLogger("calib")
	logger.AddAppender(NewWriterAppender(&buf))
	logger.SetLevel(WARN)

	logger.Info("hidden")
	logger.Warnf("point %d timed out", 3)
	test.That(t, buf.String(), test.ShouldNotContainSubstring, "hidden")
	test.That(t, buf.String(), test.ShouldContainSubstring, "WARN")
	test.That(t, buf.String(), test.ShouldContainSubstring, "calib")
	test.That(t, buf.String(), test.ShouldContainSubstring, "point 3 timed out")
	test.That(t, logger.GetLevel(), test.ShouldEqual, WARN)
}

func TestContextFields(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	ctx := WithFields(context.Background(), "run", "r1")
	ctx = WithFields(ctx, "point", 3)

	logger.CWarnw(ctx, "timed out", "stage", "dither")
	logger.Warnw("plain")

	entries := logs.All()
	test.That(t, entries, test.ShouldHaveLength, 2)
	test.That(t, entries[0].ContextMap(), test.ShouldResemble, map[string]interface{}{
		"stage": "dither",
		"run":   "r1",
		"point": int64(3),
	})
	test.That(t, entries[1].ContextMap(), test.ShouldBeEmpty)
}

func TestSubloggerSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewBlankLogger("calib")
	logger.AddAppender(NewWriterAppender(&buf))
	motion := logger.Sublogger("motion")

	logger.SetLevel(ERROR)
	motion.Warn("hidden")
	test.That(t, buf.Len(), test.ShouldEqual, 0)
	test.That(t, motion.GetLevel(), test.ShouldEqual, ERROR)

	logger.SetLevel(DEBUG)
	motion.Debugf("poll %d", 7)
	test.That(t, buf.String(), test.ShouldContainSubstring, "calib.motion")
	test.That(t, buf.String(), test.ShouldContainSubstring, "poll 7")
}

func TestCallerIsLoggingSite(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Info("here")
	logger.Errorf("there %d", 1)
	logger.CDebugw(context.Background(), "and here")
	for _, entry := range logs.All() {
		test.That(t, entry.Caller.Defined, test.ShouldBeTrue)
		test.That(t, filepath.Base(entry.Caller.File), test.ShouldEqual, "logging_test.go")
	}
}

func TestUnpairedKey(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Infow("odd", "point", 1, "dangling")
	test.That(t, logs.All()[0].ContextMap()["dangling"], test.ShouldEqual, "(missing value)")
}

func TestStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewBlankLogger("")
	logger.AddAppender(NewWriterAppender(&buf))
	logger.Infow("captured", "point", 2, "dist", 0.001)

	line := strings.TrimSpace(buf.String())
	parts := strings.Split(line, "\t")
	test.That(t, parts[len(parts)-1], test.ShouldEqual, `{"point":2,"dist":0.001}`)
	test.That(t, parts[1], test.ShouldEqual, "INFO")
}

func TestSinkLogger(t *testing.T) {
	var lines []string
	logger := NewSinkLogger("calib", func(s string) { lines = append(lines, s) })
	logger.Debug("not forwarded")
	logger.Info("Moving to Point 1")
	logger.Sublogger("motion").Warn("retry")

	test.That(t, len(lines), test.ShouldEqual, 2)
	test.That(t, lines[0], test.ShouldContainSubstring, "Moving to Point 1")
	test.That(t, lines[1], test.ShouldContainSubstring, "calib.motion")
}

func TestSinkAppenderSwallowsPanics(t *testing.T) {
	logger := NewSinkLogger("calib", func(string) { panic("host bug") })
	logger.Error("still fine")
	test.That(t, logger.Sync(), test.ShouldBeNil)
}

func TestObservedTestLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Warnw("capture failed", "point", 4)
	test.That(t, logs.FilterMessage("capture failed").Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].ContextMap()["point"], test.ShouldEqual, int64(4))
}

func TestFileAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calib.log")
	fa := NewFileAppender(path, 1, 1)
	logger := NewBlankLogger("calib")
	logger.AddAppender(fa)
	logger.Info("written to disk")
	test.That(t, fa.Close(), test.ShouldBeNil)

	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldContainSubstring, "written to disk")
}

func TestLevelFromString(t *testing.T) {
	level, err := LevelFromString("DEBUG")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, DEBUG)

	_, err = LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
}
