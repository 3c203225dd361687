package sequencer

import (
	"fmt"

	"github.com/pkg/errors"

	"go.viam.com/handeye/calibration/motion"
	"go.viam.com/handeye/spatialmath"
)

// ErrConnectionUnavailable is returned when the robot link is absent or cannot be made ready.
// A run that hits it stops before any motion.
var ErrConnectionUnavailable = errors.New("robot connection unavailable")

// Stage names the move of a point that did not converge.
type Stage string

// The moves made for a point.
const (
	StageBase    Stage = "base"
	StageDither  Stage = "dither"
	StageRestore Stage = "restore"
)

// ConvergenceTimeoutError is returned when the arm did not reach a target in time.
type ConvergenceTimeoutError struct {
	PointIndex int
	Stage      Stage
	Target     spatialmath.Pose
	Result     motion.Result
}

func (e *ConvergenceTimeoutError) Error() string {
	return fmt.Sprintf("point %d: %s move to %s not reached after %d polls (last %s)",
		e.PointIndex, e.Stage, e.Target, e.Result.Polls, e.Result.Last)
}

// CaptureError wraps a failed or panicking capture trigger. The point is still recorded.
type CaptureError struct {
	PointIndex int
	Err        error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("point %d: capture failed: %v", e.PointIndex, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// FileWriteError is returned when the data file could not be written. The records are still
// in the report.
type FileWriteError struct {
	Path string
	Err  error
}

func (e *FileWriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *FileWriteError) Unwrap() error {
	return e.Err
}
