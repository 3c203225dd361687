// Package sim implements an arm that simulates linear tool motion over time. It offers an API to do
// so in a completely deterministic manner for testing.
package sim

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/handeye/logging"
	"go.viam.com/handeye/spatialmath"
	hutils "go.viam.com/handeye/utils"
)

// operation has the following logical states/invariants:
// 1. Default constructed -- no operation in flight
// 2. Operation started -> hasTarget == true, done == false, stopped == false
// 3. Operation successful -> done == true
// 4. Operation failed -> stopped == true
type operation struct {
	hasTarget bool
	target    spatialmath.Pose
	// linear speed in meters per second for this move
	speed   float64
	done    bool
	stopped bool
}

func (op operation) isMoving() bool {
	return op.hasTarget && !op.done && !op.stopped
}

const (
	defaultAngularSpeedDegs = 90.0
	defaultTickInterval     = 10 * time.Millisecond
)

// Config is used for converting config attributes.
type Config struct {
	// StartPose is the initial tool pose in millimeters and degrees.
	StartPose []float64 `json:"start_pose,omitempty"`

	// AngularSpeedDegs is how quickly each rotation vector component moves, in degrees per second.
	AngularSpeedDegs float64 `json:"angular_speed_degs,omitempty"`

	// SpeedScale multiplies the commanded linear speed. Values above 1 make dry runs faster.
	SpeedScale float64 `json:"speed_scale,omitempty"`

	// SimulateTime controls whether the arm will spin up and manage a background goroutine for
	// continually updating time to a real-world value.
	SimulateTime bool `json:"simulate_time,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.StartPose != nil && len(conf.StartPose) != 6 {
		return errors.Errorf("%s: start_pose needs 6 values, got %d", path, len(conf.StartPose))
	}
	if conf.AngularSpeedDegs < 0 {
		return errors.Errorf("%s: angular_speed_degs must not be negative", path)
	}
	if conf.SpeedScale < 0 {
		return errors.Errorf("%s: speed_scale must not be negative", path)
	}
	return nil
}

// Arm is a simulated arm. Motion is only advanced by updateForTime, either from tests or from a
// background ticker when time simulation is on.
type Arm struct {
	angularSpeed float64
	speedScale   float64
	clk          clock.Clock

	// lifetime management
	closed atomic.Bool

	// operational properties
	mu sync.Mutex
	// `pose` is always atomically updated along with `lastUpdated`.
	pose          spatialmath.Pose
	lastUpdated   time.Time
	operation     operation
	poweredOn     bool
	brakeReleased bool

	timeSimulation *utils.StoppableWorkers

	logger logging.Logger
}

// NewArm builds a simulated arm from config attributes.
func NewArm(conf *Config, logger logging.Logger) (*Arm, error) {
	return newArm(conf, clock.New(), logger)
}

func newArm(conf *Config, clk clock.Clock, logger logging.Logger) (*Arm, error) {
	if err := conf.Validate("sim"); err != nil {
		return nil, err
	}
	start := spatialmath.Pose{}
	if conf.StartPose != nil {
		var err error
		if start, err = spatialmath.NewPoseFromMillimetersDegrees(conf.StartPose); err != nil {
			return nil, err
		}
	}
	angular := defaultAngularSpeedDegs
	if conf.AngularSpeedDegs > 0 {
		angular = conf.AngularSpeedDegs
	}
	scale := 1.0
	if conf.SpeedScale > 0 {
		scale = conf.SpeedScale
	}

	ret := &Arm{
		angularSpeed: hutils.DegToRad(angular),
		speedScale:   scale,
		clk:          clk,
		pose:         start,
		logger:       logger,
	}

	if conf.SimulateTime {
		// When simulating time, avoid ever letting the zero value be visible. Lest the first
		// movement be unpredictable.
		ret.lastUpdated = clk.Now()
		ret.timeSimulation = utils.NewStoppableWorkerWithTicker(defaultTickInterval, func(_ context.Context) {
			ret.updateForTime(clk.Now())
		})
	}
	return ret, nil
}

// Simulated arms only update their position when `updateForTime` is called. This can be used by
// tests for deterministic passage of time. Or can be called by a background goroutine to follow a
// realtime clock.
//
// The translation follows a straight line at the commanded speed. Each rotation vector component
// moves independently at the angular speed and finishes on its own schedule.
func (sa *Arm) updateForTime(now time.Time) {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	if !sa.operation.isMoving() {
		sa.lastUpdated = now
		return
	}

	elapsed := now.Sub(sa.lastUpdated).Seconds()
	sa.lastUpdated = now
	if elapsed <= 0 {
		return
	}
	const epsilon = 1e-9
	target := sa.operation.target
	stillMoving := false

	diff := target.Point().Sub(sa.pose.Point())
	remaining := diff.Norm()
	toTravel := elapsed * sa.operation.speed
	if toTravel > remaining-epsilon {
		sa.pose[spatialmath.X] = target[spatialmath.X]
		sa.pose[spatialmath.Y] = target[spatialmath.Y]
		sa.pose[spatialmath.Z] = target[spatialmath.Z]
	} else {
		step := diff.Mul(toTravel / remaining)
		sa.pose[spatialmath.X] += step.X
		sa.pose[spatialmath.Y] += step.Y
		sa.pose[spatialmath.Z] += step.Z
		stillMoving = true
	}

	toTurn := elapsed * sa.angularSpeed
	for c := spatialmath.RX; c <= spatialmath.RZ; c++ {
		diffRads := target[c] - sa.pose[c]
		if toTurn > math.Abs(diffRads)-epsilon {
			sa.pose[c] = target[c]
			continue
		}
		sa.pose[c] += math.Copysign(toTurn, diffRads)
		stillMoving = true
	}

	if !stillMoving {
		sa.operation.done = true
	}
}

// IsConnected is true until Close is called.
func (sa *Arm) IsConnected() bool {
	return !sa.closed.Load()
}

// PowerOn powers the simulated arm.
func (sa *Arm) PowerOn(ctx context.Context) error {
	if sa.closed.Load() {
		return errors.New("simulated arm is closed")
	}
	sa.mu.Lock()
	defer sa.mu.Unlock()
	sa.poweredOn = true
	return nil
}

// BrakeRelease releases the brakes. The arm must be powered.
func (sa *Arm) BrakeRelease(ctx context.Context) error {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	if !sa.poweredOn {
		return errors.New("cannot release brakes before power on")
	}
	sa.brakeReleased = true
	return nil
}

// MoveL starts a linear move and returns immediately. Moves are refused while the brakes are set.
func (sa *Arm) MoveL(ctx context.Context, target spatialmath.Pose, accel, speed float64) bool {
	if sa.closed.Load() || speed <= 0 {
		return false
	}
	sa.mu.Lock()
	defer sa.mu.Unlock()
	if !sa.poweredOn || !sa.brakeReleased {
		sa.logger.Warnw("simulated arm refused move with brakes engaged", "target", target.String())
		return false
	}
	// A new command preempts the one in flight.
	sa.operation = operation{
		hasTarget: true,
		target:    target,
		speed:     speed * sa.speedScale,
	}
	return true
}

// CurrentPose returns the simulated tool pose in millimeters and degrees.
func (sa *Arm) CurrentPose(ctx context.Context) ([]float64, error) {
	if sa.closed.Load() {
		return nil, errors.New("simulated arm is closed")
	}
	sa.mu.Lock()
	defer sa.mu.Unlock()
	return sa.pose.MillimetersDegrees(), nil
}

// IsMoving reports whether a move is in flight.
func (sa *Arm) IsMoving(ctx context.Context) (bool, error) {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	return sa.operation.isMoving(), nil
}

// Stop halts the move in flight.
func (sa *Arm) Stop(ctx context.Context) error {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	// Only set `stopped` if we are moving. Otherwise the information that distinguishes whether the
	// arm stopped moving because it reached the goal, or because it was stopped is lost.
	if !sa.operation.isMoving() {
		return nil
	}
	sa.operation.stopped = true
	return nil
}

// Close stops time simulation.
func (sa *Arm) Close(ctx context.Context) error {
	sa.closed.Store(true)
	if sa.timeSimulation != nil {
		sa.timeSimulation.Stop()
	}
	return nil
}
