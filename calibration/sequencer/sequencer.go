// Package sequencer runs a calibration: it moves the arm through generated targets, captures an
// image at each one, and writes the measured tool poses.
package sequencer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/handeye/calibration/motion"
	"go.viam.com/handeye/calibration/record"
	"go.viam.com/handeye/calibration/store"
	"go.viam.com/handeye/calibration/trajectory"
	"go.viam.com/handeye/components/arm"
	"go.viam.com/handeye/components/camera"
	"go.viam.com/handeye/logging"
	"go.viam.com/handeye/operation"
	"go.viam.com/handeye/spatialmath"
)

// Recorder persists finished runs.
type Recorder interface {
	SaveRun(ctx context.Context, run store.Run) error
}

// Report is the outcome of a run.
type Report struct {
	ID      uuid.UUID
	Recipe  trajectory.Recipe
	Started time.Time
	// Records holds one entry per captured point, in capture order.
	Records []record.Record
	// Completed is true when every target was visited.
	Completed bool
	// DataFile is where the records were written, if anything was written.
	DataFile string
	// Err combines every failure absorbed during the run. Use multierr.Errors to split it.
	Err error
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithClock sets the clock used for polling and settling.
func WithClock(clk clock.Clock) Option {
	return func(s *Sequencer) {
		s.clk = clk
	}
}

// WithRecorder persists each finished run.
func WithRecorder(r Recorder) Option {
	return func(s *Sequencer) {
		s.recorder = r
	}
}

// Sequencer drives calibration runs against one arm. Only one run may be active at a time.
type Sequencer struct {
	link     arm.Link
	poses    arm.PoseProvider
	capture  camera.Trigger
	conf     Config
	logger   logging.Logger
	clk      clock.Clock
	recorder Recorder

	sync  *motion.Synchronizer
	opMgr operation.SingleOperationManager
}

// New returns a sequencer. capture may be nil, in which case points are recorded without a
// trigger.
func New(
	link arm.Link,
	poses arm.PoseProvider,
	capture camera.Trigger,
	conf Config,
	logger logging.Logger,
	opts ...Option,
) *Sequencer {
	if logger == nil {
		logger = logging.NewLogger("handeye")
	}
	s := &Sequencer{
		link:    link,
		poses:   poses,
		capture: capture,
		conf:    conf,
		logger:  logger,
		clk:     clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sync = motion.NewSynchronizer(link, poses, s.clk, logger.Sublogger("motion"))
	return s
}

// Running reports whether a run is in progress.
func (s *Sequencer) Running() bool {
	return s.opMgr.OpRunning()
}

// Cancel stops the active run after its current poll or settle.
func (s *Sequencer) Cancel() {
	s.opMgr.CancelRunning()
}

// Run executes recipe around center and blocks until it finishes. Failures never escape as
// errors or panics; they are logged and collected in Report.Err.
func (s *Sequencer) Run(ctx context.Context, recipe trajectory.Recipe, center spatialmath.Pose) *Report {
	report := &Report{Recipe: recipe, Started: s.clk.Now()}
	label := "calibration"
	if recipe != nil {
		label = fmt.Sprintf("%s calibration", recipe.Mode())
	}
	op, opCtx, done, err := s.opMgr.Start(ctx, label)
	if err != nil {
		s.logger.CErrorw(ctx, "refusing to start run", "error", err)
		report.Err = err
		return report
	}
	defer done()
	report.ID = op.ID

	runCtx := logging.WithFields(opCtx, "run", report.ID.String())
	s.execute(runCtx, recipe, center, report)
	if report.Err != nil {
		s.logger.CWarnw(runCtx, "calibration run finished with errors",
			"records", len(report.Records), "completed", report.Completed, "error", report.Err)
	}
	return report
}

func (s *Sequencer) fail(ctx context.Context, report *Report, err error) {
	s.logger.CErrorw(ctx, "calibration error", "error", err)
	report.Err = multierr.Append(report.Err, err)
}

func (s *Sequencer) execute(ctx context.Context, recipe trajectory.Recipe, center spatialmath.Pose, report *Report) {
	if err := s.conf.Validate(); err != nil {
		s.fail(ctx, report, errors.Wrap(err, "invalid sequencer config"))
		return
	}
	points, err := trajectory.Generate(recipe, center)
	if err != nil {
		s.fail(ctx, report, err)
		return
	}
	if err := s.prepare(ctx); err != nil {
		s.fail(ctx, report, err)
		s.persist(ctx, report)
		return
	}

	s.logger.CInfow(ctx, "starting calibration", "mode", recipe.Mode(), "points", len(points))
	visited := 0
	for _, pt := range points {
		if err := ctx.Err(); err != nil {
			s.fail(ctx, report, errors.Wrapf(err, "run stopped before point %d", pt.Index))
			break
		}
		var proceed bool
		if pt.Dither == nil {
			proceed = s.runGridPoint(ctx, pt, report)
		} else {
			proceed = s.runPyramidPoint(ctx, pt, report)
		}
		if !proceed {
			break
		}
		visited++
	}
	report.Completed = visited == len(points)

	s.flush(ctx, recipe.Mode(), report)
	s.persist(ctx, report)

	if ctx.Err() != nil {
		s.logger.CWarnw(ctx, "run cancelled, not returning to center")
		return
	}
	s.logger.CInfow(ctx, "calibration finished, returning to center", "records", len(report.Records))
	s.sync.Submit(ctx, center, s.conf.HomeSpeeds)
}

// prepare makes sure the link is up, powered, and unbraked.
func (s *Sequencer) prepare(ctx context.Context) error {
	if s.link == nil || !s.link.IsConnected() {
		return ErrConnectionUnavailable
	}
	if s.poses == nil {
		return errors.Wrap(ErrConnectionUnavailable, "no pose provider")
	}
	if err := s.link.PowerOn(ctx); err != nil {
		return errors.Wrapf(ErrConnectionUnavailable, "power on: %v", err)
	}
	if err := s.link.BrakeRelease(ctx); err != nil {
		return errors.Wrapf(ErrConnectionUnavailable, "brake release: %v", err)
	}
	return nil
}

// runGridPoint visits a grid target. It returns false when the run must stop.
func (s *Sequencer) runGridPoint(ctx context.Context, pt trajectory.TargetPoint, report *Report) bool {
	s.logger.Infof("moving to point %d", pt.Index)
	res, err := s.sync.MoveAndWait(ctx, pt.Base, s.conf.BaseSpeeds, s.conf.GridBase)
	if err != nil {
		s.fail(ctx, report, errors.Wrapf(err, "point %d", pt.Index))
		return false
	}
	if res.Outcome == motion.TimedOut {
		s.fail(ctx, report, &ConvergenceTimeoutError{PointIndex: pt.Index, Stage: StageBase, Target: pt.Base, Result: res})
		return false
	}
	if err := s.sync.Sleep(ctx, s.conf.GridSettle); err != nil {
		s.fail(ctx, report, errors.Wrapf(err, "point %d", pt.Index))
		return false
	}
	s.recordAndCapture(ctx, pt.Index, report)
	return true
}

// runPyramidPoint visits a pyramid target: base, tilted dither, capture, and back to base.
// Only cancellation stops the run; timeouts are collected and the point continues.
func (s *Sequencer) runPyramidPoint(ctx context.Context, pt trajectory.TargetPoint, report *Report) bool {
	s.logger.Infof("moving to point %d (layer %d, corner %d)", pt.Index, pt.Layer, pt.Corner)
	steps := []struct {
		stage  Stage
		target spatialmath.Pose
		speeds motion.Speeds
		crit   motion.Criterion
	}{
		{StageBase, pt.Base, s.conf.BaseSpeeds, s.conf.PyramidBase},
		{StageDither, *pt.Dither, s.conf.DitherSpeeds, s.conf.Dither},
	}
	for _, step := range steps {
		res, err := s.sync.MoveAndWait(ctx, step.target, step.speeds, step.crit)
		if err != nil {
			s.fail(ctx, report, errors.Wrapf(err, "point %d", pt.Index))
			return false
		}
		if res.Outcome == motion.TimedOut {
			s.fail(ctx, report, &ConvergenceTimeoutError{PointIndex: pt.Index, Stage: step.stage, Target: step.target, Result: res})
		}
	}
	if err := s.sync.Sleep(ctx, s.conf.PyramidSettle); err != nil {
		s.fail(ctx, report, errors.Wrapf(err, "point %d", pt.Index))
		return false
	}
	s.recordAndCapture(ctx, pt.Index, report)

	s.logger.Debugf("restoring point %d to base", pt.Index)
	res, err := s.sync.MoveAndWait(ctx, pt.Base, s.conf.BaseSpeeds, s.conf.Restore)
	if err != nil {
		s.fail(ctx, report, errors.Wrapf(err, "point %d", pt.Index))
		return false
	}
	if res.Outcome == motion.TimedOut {
		s.fail(ctx, report, &ConvergenceTimeoutError{PointIndex: pt.Index, Stage: StageRestore, Target: pt.Base, Result: res})
	}
	return true
}

// recordAndCapture samples the pose, appends the record, then fires the capture trigger.
func (s *Sequencer) recordAndCapture(ctx context.Context, index int, report *Report) {
	measured, err := arm.CurrentPose(ctx, s.poses)
	if err != nil {
		s.fail(ctx, report, errors.Wrapf(err, "point %d: sampling pose, recording zero pose", index))
		measured = spatialmath.Pose{}
	}
	rec := record.Record{PointIndex: index, Measured: measured}
	report.Records = append(report.Records, rec)
	s.logger.Infof("point %d data: %s", index, rec)

	if s.capture == nil {
		return
	}
	if err := s.safeCapture(ctx, index); err != nil {
		s.fail(ctx, report, &CaptureError{PointIndex: index, Err: err})
		return
	}
	s.logger.Debugf("capture %d done", index)
}

func (s *Sequencer) safeCapture(ctx context.Context, index int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("capture panicked: %v", r)
		}
	}()
	return s.capture.Capture(ctx, index)
}

// flush writes the records gathered so far. Records stay in the report if the write fails.
func (s *Sequencer) flush(ctx context.Context, mode trajectory.Mode, report *Report) {
	path := s.conf.DataFile(mode)
	if err := record.WriteFile(path, report.Records); err != nil {
		s.fail(ctx, report, &FileWriteError{Path: path, Err: err})
		return
	}
	report.DataFile = path
	s.logger.CInfow(ctx, "calibration data saved", "path", path, "records", len(report.Records))
}

func (s *Sequencer) persist(ctx context.Context, report *Report) {
	if s.recorder == nil {
		return
	}
	run := store.Run{
		ID:        report.ID,
		Started:   report.Started,
		Finished:  s.clk.Now(),
		Completed: report.Completed,
		DataFile:  report.DataFile,
		Records:   report.Records,
	}
	if report.Recipe != nil {
		run.Mode = string(report.Recipe.Mode())
		if raw, err := json.Marshal(report.Recipe); err == nil {
			run.Recipe = string(raw)
		}
	}
	if report.Err != nil {
		run.Error = report.Err.Error()
	}
	if err := s.recorder.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		s.logger.CErrorw(ctx, "saving run history", "error", err)
	}
}

// RunSequence runs recipe around center with default parameters and returns the records. Log
// lines go to logSink, or stdout when it is nil.
func RunSequence(
	ctx context.Context,
	link arm.Link,
	recipe trajectory.Recipe,
	center spatialmath.Pose,
	poses arm.PoseProvider,
	capture camera.Trigger,
	logSink func(string),
) []record.Record {
	logger := logging.NewSinkLogger("handeye", logSink)
	return New(link, poses, capture, DefaultConfig(), logger).Run(ctx, recipe, center).Records
}
