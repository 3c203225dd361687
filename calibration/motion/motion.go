// Package motion submits fire-and-forget linear moves and infers arrival by polling the tool pose.
package motion

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/handeye/components/arm"
	"go.viam.com/handeye/logging"
	"go.viam.com/handeye/spatialmath"
)

// Speeds parameterizes a linear move: Accel in m/s^2, Speed in m/s.
type Speeds struct {
	Accel float64
	Speed float64
}

// Criterion decides when a move has arrived. It is fixed for the duration of one wait.
type Criterion struct {
	// PositionTolerance is the translation distance in meters under which the arm has arrived.
	PositionTolerance float64
	// OrientationTolerance is the rotation vector distance in radians. Zero skips the check.
	OrientationTolerance float64
	MaxAttempts          int
	PollInterval         time.Duration
}

// Validate checks that the criterion can ever be met.
func (c Criterion) Validate() error {
	if c.PositionTolerance <= 0 {
		return errors.Errorf("position tolerance must be positive, got %v", c.PositionTolerance)
	}
	if c.OrientationTolerance < 0 {
		return errors.Errorf("orientation tolerance must not be negative, got %v", c.OrientationTolerance)
	}
	if c.MaxAttempts < 1 {
		return errors.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.PollInterval < 0 {
		return errors.Errorf("poll interval must not be negative, got %v", c.PollInterval)
	}
	return nil
}

// met is false for NaN distances, so corrupt telemetry never converges.
func (c Criterion) met(target, actual spatialmath.Pose) bool {
	return target.TranslationDistance(actual) < c.PositionTolerance &&
		(c.OrientationTolerance == 0 || target.RotationDistance(actual) < c.OrientationTolerance)
}

// Outcome is how a wait ended.
type Outcome int

// The two outcomes of a wait.
const (
	Converged Outcome = iota
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Converged:
		return "converged"
	case TimedOut:
		return "timed out"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result describes a finished wait.
type Result struct {
	Outcome Outcome
	// Polls is how many pose reads were made.
	Polls int
	// Last is the last pose successfully read. It is the zero pose if every read failed.
	Last spatialmath.Pose
	// Submitted reports whether the controller accepted the move command.
	Submitted bool
}

// Synchronizer drives a link and watches a pose provider.
type Synchronizer struct {
	link   arm.Link
	poses  arm.PoseProvider
	clk    clock.Clock
	logger logging.Logger
}

// NewSynchronizer returns a synchronizer. A nil clock means the wall clock.
func NewSynchronizer(link arm.Link, poses arm.PoseProvider, clk clock.Clock, logger logging.Logger) *Synchronizer {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = logging.NewLogger("motion")
	}
	return &Synchronizer{link: link, poses: poses, clk: clk, logger: logger}
}

// Submit sends a move without waiting for it. It reports whether the controller accepted it.
func (s *Synchronizer) Submit(ctx context.Context, target spatialmath.Pose, speeds Speeds) bool {
	ok := s.link.MoveL(ctx, target, speeds.Accel, speeds.Speed)
	if !ok {
		s.logger.CWarnw(ctx, "move command not accepted", "target", target.String())
	}
	return ok
}

// MoveAndWait submits one linear move to target and polls until the criterion is met or the
// attempts run out. A rejected submit is logged and polling still happens, since the arm may
// already be at the target. The only error returned is a context error.
func (s *Synchronizer) MoveAndWait(
	ctx context.Context, target spatialmath.Pose, speeds Speeds, crit Criterion,
) (Result, error) {
	if err := crit.Validate(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	submitted := s.Submit(ctx, target, speeds)
	res, err := s.Wait(ctx, target, crit)
	res.Submitted = submitted
	return res, err
}

// Wait polls the pose provider until target is reached under crit.
func (s *Synchronizer) Wait(ctx context.Context, target spatialmath.Pose, crit Criterion) (Result, error) {
	if err := crit.Validate(); err != nil {
		return Result{}, err
	}
	var res Result
	for attempt := 1; attempt <= crit.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Polls = attempt
		actual, err := arm.CurrentPose(ctx, s.poses)
		if err != nil {
			s.logger.CDebugw(ctx, "pose read failed", "attempt", attempt, "error", err)
		} else {
			res.Last = actual
			if crit.met(target, actual) {
				res.Outcome = Converged
				return res, nil
			}
		}
		if attempt < crit.MaxAttempts {
			if err := s.Sleep(ctx, crit.PollInterval); err != nil {
				return res, err
			}
		}
	}
	res.Outcome = TimedOut
	return res, nil
}

// Sleep blocks for d on the synchronizer's clock or until ctx is done.
func (s *Synchronizer) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := s.clk.Timer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
