package fake

import (
	"context"
	"errors"
	"testing"

	"go.viam.com/test"

	"go.viam.com/handeye/components/arm"
	"go.viam.com/handeye/logging"
	"go.viam.com/handeye/spatialmath"
)

var _ arm.Arm = (*Arm)(nil)

func TestArrivesAfterPolls(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	a := NewArm(spatialmath.Pose{}, logger)
	a.PollsToArrive = 3

	target := spatialmath.Pose{0.1, 0.2, 0.3, 0, 0, 0}
	test.That(t, a.MoveL(ctx, target, 0.5, 0.2), test.ShouldBeTrue)

	for i := 0; i < 2; i++ {
		p, err := arm.CurrentPose(ctx, a)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, p.AlmostEqual(spatialmath.Pose{}, 1e-9), test.ShouldBeTrue)
	}
	p, err := arm.CurrentPose(ctx, a)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.AlmostEqual(target, 1e-9), test.ShouldBeTrue)
	test.That(t, a.PoseReads(), test.ShouldEqual, 3)

	moves := a.Moves()
	test.That(t, moves, test.ShouldHaveLength, 1)
	test.That(t, moves[0].Script, test.ShouldEqual, arm.MoveLScript(target, 0.5, 0.2))
}

func TestRejectAndDisconnect(t *testing.T) {
	ctx := context.Background()
	a := NewArm(spatialmath.Pose{}, logging.NewTestLogger(t))
	a.RejectMoves = true
	test.That(t, a.MoveL(ctx, spatialmath.Pose{1}, 0.5, 0.2), test.ShouldBeFalse)

	a.RejectMoves = false
	a.Connected = false
	test.That(t, a.IsConnected(), test.ShouldBeFalse)
	test.That(t, a.MoveL(ctx, spatialmath.Pose{1}, 0.5, 0.2), test.ShouldBeFalse)
	test.That(t, a.Moves(), test.ShouldBeEmpty)
}

func TestNeverArrives(t *testing.T) {
	ctx := context.Background()
	start := spatialmath.Pose{0.4, 0, 0.4, 0, 0, 0}
	a := NewArm(start, logging.NewTestLogger(t))
	a.ArrivalFunc = func(index int, m Move) int { return -1 }

	test.That(t, a.MoveL(ctx, spatialmath.Pose{}, 0.5, 0.2), test.ShouldBeTrue)
	for i := 0; i < 5; i++ {
		p, err := arm.CurrentPose(ctx, a)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, p.AlmostEqual(start, 1e-9), test.ShouldBeTrue)
	}
}

func TestEnableAndErrors(t *testing.T) {
	ctx := context.Background()
	a := NewArm(spatialmath.Pose{}, logging.NewTestLogger(t))
	test.That(t, a.Enabled(), test.ShouldBeFalse)
	test.That(t, a.PowerOn(ctx), test.ShouldBeNil)
	test.That(t, a.BrakeRelease(ctx), test.ShouldBeNil)
	test.That(t, a.Enabled(), test.ShouldBeTrue)

	broken := NewArm(spatialmath.Pose{}, logging.NewTestLogger(t))
	broken.PowerOnErr = errors.New("estop engaged")
	test.That(t, broken.PowerOn(ctx), test.ShouldBeError, broken.PowerOnErr)

	broken.PoseErr = ErrPoseUnavailable
	_, err := broken.CurrentPose(ctx)
	test.That(t, err, test.ShouldBeError, ErrPoseUnavailable)

	test.That(t, a.Close(ctx), test.ShouldBeNil)
	test.That(t, a.CloseCount, test.ShouldEqual, 1)
}

func TestConfig(t *testing.T) {
	conf := &Config{StartPose: []float64{400, 0, 300, 180, 0, 0}, PollsToArrive: 2}
	test.That(t, conf.Validate("arm"), test.ShouldBeNil)
	a, err := NewArmFromConfig(conf, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.Pose()[spatialmath.X], test.ShouldAlmostEqual, 0.4)
	test.That(t, a.PollsToArrive, test.ShouldEqual, 2)

	test.That(t, (&Config{StartPose: []float64{1}}).Validate("arm"), test.ShouldNotBeNil)
	test.That(t, (&Config{PollsToArrive: -1}).Validate("arm"), test.ShouldNotBeNil)
}
