// Package camera defines the capture trigger fired at every calibration point, and a trigger
// that saves frames from an image source to disk.
package camera

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"go.viam.com/handeye/logging"
)

// DefaultCaptureDir is where FileTrigger writes frames when no directory is configured.
const DefaultCaptureDir = "workspace/captures"

// frameTimeFormat is the timestamp layout embedded in frame file names.
const frameTimeFormat = "20060102_150405"

// Trigger captures an image for a calibration point. It is called synchronously once the arm has
// settled, so it may block until the exposure is done.
type Trigger interface {
	Capture(ctx context.Context, pointIndex int) error
}

// TriggerFunc adapts a function to a Trigger.
type TriggerFunc func(ctx context.Context, pointIndex int) error

// Capture calls f.
func (f TriggerFunc) Capture(ctx context.Context, pointIndex int) error {
	return f(ctx, pointIndex)
}

// Source is anything that can produce a single frame.
type Source interface {
	Read(ctx context.Context) (image.Image, error)
}

// FrameFileName is the file name a frame for pointIndex captured at t is saved under.
func FrameFileName(pointIndex int, t time.Time) string {
	return fmt.Sprintf("calib_pt%d_%s.jpg", pointIndex, t.Format(frameTimeFormat))
}

// FileTrigger reads a frame from a Source and saves it as a JPEG.
type FileTrigger struct {
	source  Source
	dir     string
	quality int
	clk     clock.Clock
	logger  logging.Logger
}

// NewFileTrigger returns a trigger writing into dir, which is created on first capture.
func NewFileTrigger(source Source, dir string, logger logging.Logger) *FileTrigger {
	return newFileTrigger(source, dir, clock.New(), logger)
}

func newFileTrigger(source Source, dir string, clk clock.Clock, logger logging.Logger) *FileTrigger {
	if dir == "" {
		dir = DefaultCaptureDir
	}
	return &FileTrigger{source: source, dir: dir, quality: 95, clk: clk, logger: logger}
}

// Capture grabs one frame and writes it to disk.
func (ft *FileTrigger) Capture(ctx context.Context, pointIndex int) error {
	img, err := ft.source.Read(ctx)
	if err != nil {
		return errors.Wrapf(err, "reading frame for point %d", pointIndex)
	}
	if img == nil {
		return errors.Errorf("no frame for point %d", pointIndex)
	}
	if err := os.MkdirAll(ft.dir, 0o750); err != nil {
		return errors.Wrap(err, "creating capture directory")
	}
	path := filepath.Join(ft.dir, FrameFileName(pointIndex, ft.clk.Now()))
	if err := imaging.Save(img, path, imaging.JPEGQuality(ft.quality)); err != nil {
		return errors.Wrapf(err, "saving %s", path)
	}
	ft.logger.CDebugw(ctx, "saved calibration frame", "point", pointIndex, "path", path)
	return nil
}
