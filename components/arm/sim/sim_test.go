package sim

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"go.viam.com/handeye/components/arm"
	"go.viam.com/handeye/logging"
	"go.viam.com/handeye/spatialmath"
)

var _ arm.Arm = (*Arm)(nil)

func newTestArm(t *testing.T, conf *Config) (*Arm, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	a, err := newArm(conf, mock, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	a.lastUpdated = mock.Now()
	return a, mock
}

func TestMoveRequiresEnable(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestArm(t, &Config{})
	test.That(t, a.MoveL(ctx, spatialmath.Pose{0.1}, 0.5, 0.2), test.ShouldBeFalse)
	test.That(t, a.BrakeRelease(ctx), test.ShouldNotBeNil)
	test.That(t, a.PowerOn(ctx), test.ShouldBeNil)
	test.That(t, a.BrakeRelease(ctx), test.ShouldBeNil)
	test.That(t, a.MoveL(ctx, spatialmath.Pose{0.1}, 0.5, 0.2), test.ShouldBeTrue)
	test.That(t, a.MoveL(ctx, spatialmath.Pose{0.1}, 0.5, 0), test.ShouldBeFalse)
}

func TestLinearMotion(t *testing.T) {
	ctx := context.Background()
	a, mock := newTestArm(t, &Config{StartPose: []float64{0, 0, 0, 0, 0, 0}, AngularSpeedDegs: 10})
	test.That(t, a.PowerOn(ctx), test.ShouldBeNil)
	test.That(t, a.BrakeRelease(ctx), test.ShouldBeNil)

	// 0.1m at 0.2m/s takes half a second. 2 degrees at 10 deg/s takes 0.2 seconds.
	target := spatialmath.Pose{0.06, 0.08, 0, 0, 0, 0.0349066}
	test.That(t, a.MoveL(ctx, target, 0.5, 0.2), test.ShouldBeTrue)

	mock.Add(250 * time.Millisecond)
	a.updateForTime(mock.Now())
	pose, err := arm.CurrentPose(ctx, a)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose[spatialmath.X], test.ShouldAlmostEqual, 0.03, 1e-9)
	test.That(t, pose[spatialmath.Y], test.ShouldAlmostEqual, 0.04, 1e-9)
	test.That(t, pose[spatialmath.RZ], test.ShouldAlmostEqual, 0.0349066, 1e-6)
	moving, err := a.IsMoving(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, moving, test.ShouldBeTrue)

	mock.Add(250 * time.Millisecond)
	a.updateForTime(mock.Now())
	pose, err = arm.CurrentPose(ctx, a)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.AlmostEqual(target, 1e-6), test.ShouldBeTrue)
	moving, err = a.IsMoving(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, moving, test.ShouldBeFalse)
}

func TestStop(t *testing.T) {
	ctx := context.Background()
	a, mock := newTestArm(t, &Config{SpeedScale: 2})
	test.That(t, a.PowerOn(ctx), test.ShouldBeNil)
	test.That(t, a.BrakeRelease(ctx), test.ShouldBeNil)
	test.That(t, a.MoveL(ctx, spatialmath.Pose{1}, 0.5, 0.1), test.ShouldBeTrue)

	mock.Add(time.Second)
	a.updateForTime(mock.Now())
	test.That(t, a.Stop(ctx), test.ShouldBeNil)
	mock.Add(time.Second)
	a.updateForTime(mock.Now())

	pose, err := arm.CurrentPose(ctx, a)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose[spatialmath.X], test.ShouldAlmostEqual, 0.2, 1e-9)

	test.That(t, a.Close(ctx), test.ShouldBeNil)
	test.That(t, a.IsConnected(), test.ShouldBeFalse)
	_, err = a.CurrentPose(ctx)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConfigValidate(t *testing.T) {
	test.That(t, (&Config{}).Validate("arm"), test.ShouldBeNil)
	test.That(t, (&Config{StartPose: []float64{1, 2}}).Validate("arm"), test.ShouldNotBeNil)
	test.That(t, (&Config{AngularSpeedDegs: -1}).Validate("arm"), test.ShouldNotBeNil)
	test.That(t, (&Config{SpeedScale: -1}).Validate("arm"), test.ShouldNotBeNil)
}

func TestSimulateTime(t *testing.T) {
	a, err := NewArm(&Config{SimulateTime: true}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.timeSimulation, test.ShouldNotBeNil)
	test.That(t, a.Close(context.Background()), test.ShouldBeNil)
}
