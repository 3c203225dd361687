// Package fake implements a fake arm that arrives at commanded poses after a configurable number
// of pose reads. It is meant for tests and dry runs.
package fake

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/handeye/components/arm"
	"go.viam.com/handeye/logging"
	"go.viam.com/handeye/spatialmath"
)

// Config is used for converting config attributes.
type Config struct {
	// StartPose is the initial tool pose in millimeters and degrees.
	StartPose []float64 `json:"start_pose,omitempty"`
	// PollsToArrive is the number of pose reads after a move before the arm reports the target.
	PollsToArrive int `json:"polls_to_arrive,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.StartPose != nil && len(conf.StartPose) != 6 {
		return errors.Errorf("%s: start_pose needs 6 values, got %d", path, len(conf.StartPose))
	}
	if conf.PollsToArrive < 0 {
		return errors.Errorf("%s: polls_to_arrive must not be negative", path)
	}
	return nil
}

// Move is a motion command the fake accepted.
type Move struct {
	Target spatialmath.Pose
	Accel  float64
	Speed  float64
	Script string
}

// ErrPoseUnavailable is returned by CurrentPose when PoseErr is set without a specific error.
var ErrPoseUnavailable = errors.New("fake arm pose unavailable")

// Arm is a fake arm that can simply read and set properties.
type Arm struct {
	logger logging.Logger

	mu sync.Mutex
	// Connected is reported by IsConnected. MoveL is refused while it is false.
	Connected bool
	// PowerOnErr and BrakeErr are returned by PowerOn and BrakeRelease.
	PowerOnErr error
	BrakeErr   error
	// RejectMoves makes MoveL report the command as not accepted.
	RejectMoves bool
	// PollsToArrive is how many pose reads it takes for an accepted move to complete.
	PollsToArrive int
	// ArrivalFunc overrides PollsToArrive per move. A negative result means the arm never
	// arrives and keeps reporting its previous pose.
	ArrivalFunc func(index int, m Move) int
	// PoseErr, if set, is returned from every CurrentPose call.
	PoseErr error

	pose           spatialmath.Pose
	target         spatialmath.Pose
	pollsRemaining int
	moves          []Move
	poweredOn      bool
	brakeReleased  bool
	poseReads      int
	CloseCount     int
}

// NewArm returns a new connected fake arm resting at start.
func NewArm(start spatialmath.Pose, logger logging.Logger) *Arm {
	return &Arm{
		logger:    logger,
		Connected: true,
		pose:      start,
		target:    start,
	}
}

// NewArmFromConfig builds a fake arm from config attributes.
func NewArmFromConfig(conf *Config, logger logging.Logger) (*Arm, error) {
	start := spatialmath.Pose{}
	if conf.StartPose != nil {
		var err error
		start, err = spatialmath.NewPoseFromMillimetersDegrees(conf.StartPose)
		if err != nil {
			return nil, err
		}
	}
	a := NewArm(start, logger)
	a.PollsToArrive = conf.PollsToArrive
	return a, nil
}

// IsConnected reports the Connected flag.
func (a *Arm) IsConnected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Connected
}

// PowerOn records the call and returns PowerOnErr.
func (a *Arm) PowerOn(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.PowerOnErr != nil {
		return a.PowerOnErr
	}
	a.poweredOn = true
	return nil
}

// BrakeRelease records the call and returns BrakeErr.
func (a *Arm) BrakeRelease(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.BrakeErr != nil {
		return a.BrakeErr
	}
	a.brakeReleased = true
	return nil
}

// MoveL records the move and starts counting down pose reads toward the target.
func (a *Arm) MoveL(ctx context.Context, target spatialmath.Pose, accel, speed float64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.Connected || a.RejectMoves {
		return false
	}
	m := Move{Target: target, Accel: accel, Speed: speed, Script: arm.MoveLScript(target, accel, speed)}
	index := len(a.moves)
	a.moves = append(a.moves, m)

	polls := a.PollsToArrive
	if a.ArrivalFunc != nil {
		polls = a.ArrivalFunc(index, m)
	}
	if polls < 0 {
		if a.logger != nil {
			a.logger.Debugw("fake arm will not reach target", "target", target.String())
		}
		a.target = a.pose
		a.pollsRemaining = 0
		return true
	}
	a.target = target
	a.pollsRemaining = polls
	return true
}

// CurrentPose returns the pose in millimeters and degrees, advancing any pending move by one read.
func (a *Arm) CurrentPose(ctx context.Context) ([]float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.poseReads++
	if a.PoseErr != nil {
		return nil, a.PoseErr
	}
	if a.pollsRemaining > 0 {
		a.pollsRemaining--
	}
	if a.pollsRemaining == 0 {
		a.pose = a.target
	}
	return a.pose.MillimetersDegrees(), nil
}

// Pose returns the current pose without counting as a read.
func (a *Arm) Pose() spatialmath.Pose {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pose
}

// SetPose teleports the arm and cancels any pending move.
func (a *Arm) SetPose(p spatialmath.Pose) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pose = p
	a.target = p
	a.pollsRemaining = 0
}

// Moves returns a copy of every accepted move in order.
func (a *Arm) Moves() []Move {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Move(nil), a.moves...)
}

// PoseReads returns how many times CurrentPose was called.
func (a *Arm) PoseReads() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.poseReads
}

// Enabled reports whether both PowerOn and BrakeRelease have succeeded.
func (a *Arm) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.poweredOn && a.brakeReleased
}

// Close does nothing.
func (a *Arm) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.CloseCount++
	return nil
}
