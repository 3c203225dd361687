package motion

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"go.viam.com/handeye/components/arm"
	"go.viam.com/handeye/components/arm/fake"
	"go.viam.com/handeye/logging"
	"go.viam.com/handeye/spatialmath"
)

var (
	baseSpeeds = Speeds{Accel: 0.5, Speed: 0.2}
	target     = spatialmath.Pose{0.1, 0.2, 0.3, 0, 0, 0}
)

func translationOnly(attempts int) Criterion {
	return Criterion{PositionTolerance: 0.002, MaxAttempts: attempts}
}

func TestConvergesAfterThreePolls(t *testing.T) {
	logger := logging.NewTestLogger(t)
	a := fake.NewArm(spatialmath.Pose{}, logger)
	a.PollsToArrive = 3
	s := NewSynchronizer(a, a, nil, logger)

	res, err := s.MoveAndWait(context.Background(), target, baseSpeeds, translationOnly(10))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldEqual, Converged)
	test.That(t, res.Polls, test.ShouldEqual, 3)
	test.That(t, res.Submitted, test.ShouldBeTrue)
	test.That(t, res.Last.AlmostEqual(target, 1e-9), test.ShouldBeTrue)
	test.That(t, a.PoseReads(), test.ShouldEqual, 3)

	moves := a.Moves()
	test.That(t, moves, test.ShouldHaveLength, 1)
	test.That(t, moves[0].Accel, test.ShouldEqual, 0.5)
	test.That(t, moves[0].Speed, test.ShouldEqual, 0.2)
}

func TestTimesOut(t *testing.T) {
	logger := logging.NewTestLogger(t)
	a := fake.NewArm(spatialmath.Pose{}, logger)
	a.PollsToArrive = 3
	s := NewSynchronizer(a, a, nil, logger)

	res, err := s.MoveAndWait(context.Background(), target, baseSpeeds, translationOnly(2))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldEqual, TimedOut)
	test.That(t, res.Polls, test.ShouldEqual, 2)
	test.That(t, a.PoseReads(), test.ShouldEqual, 2)
	test.That(t, res.Outcome.String(), test.ShouldEqual, "timed out")
}

func TestOrientationTolerance(t *testing.T) {
	logger := logging.NewTestLogger(t)
	// in position, but rotated 0.1 rad and never moving
	a := fake.NewArm(target.Add(spatialmath.RZ, 0.1), logger)
	a.ArrivalFunc = func(int, fake.Move) int { return -1 }
	s := NewSynchronizer(a, a, nil, logger)

	res, err := s.MoveAndWait(context.Background(), target, baseSpeeds, translationOnly(5))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldEqual, Converged)
	test.That(t, res.Polls, test.ShouldEqual, 1)

	withRotation := Criterion{PositionTolerance: 0.002, OrientationTolerance: 0.05, MaxAttempts: 5}
	res, err = s.MoveAndWait(context.Background(), target, baseSpeeds, withRotation)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldEqual, TimedOut)
	test.That(t, res.Polls, test.ShouldEqual, 5)
}

func TestPoseReadErrorsCountAsAttempts(t *testing.T) {
	logger := logging.NewTestLogger(t)
	a := fake.NewArm(target, logger)
	a.PoseErr = fake.ErrPoseUnavailable
	s := NewSynchronizer(a, a, nil, logger)

	res, err := s.MoveAndWait(context.Background(), target, baseSpeeds, translationOnly(4))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldEqual, TimedOut)
	test.That(t, res.Polls, test.ShouldEqual, 4)
	test.That(t, res.Last, test.ShouldResemble, spatialmath.Pose{})
}

func TestNaNTelemetryNeverConverges(t *testing.T) {
	logger := logging.NewTestLogger(t)
	a := fake.NewArm(target, logger)
	for _, tc := range []struct {
		name string
		pose []float64
		crit Criterion
	}{
		{"position", []float64{math.NaN(), 200, 300, 0, 0, 0}, translationOnly(5)},
		{
			"orientation",
			[]float64{100, 200, 300, math.NaN(), 0, 0},
			Criterion{PositionTolerance: 0.002, OrientationTolerance: 0.05, MaxAttempts: 5},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			poses := arm.PoseProviderFunc(func(ctx context.Context) ([]float64, error) {
				return tc.pose, nil
			})
			s := NewSynchronizer(a, poses, nil, logger)

			res, err := s.MoveAndWait(context.Background(), target, baseSpeeds, tc.crit)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Outcome, test.ShouldEqual, TimedOut)
			test.That(t, res.Polls, test.ShouldEqual, 5)
		})
	}
}

func TestNilLoggerAndClock(t *testing.T) {
	a := fake.NewArm(spatialmath.Pose{}, nil)
	a.RejectMoves = true
	s := NewSynchronizer(a, a, nil, nil)
	res, err := s.MoveAndWait(context.Background(), spatialmath.Pose{}, baseSpeeds, translationOnly(1))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldEqual, Converged)
	test.That(t, res.Submitted, test.ShouldBeFalse)
}

func TestRejectedSubmitStillPolls(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	a := fake.NewArm(target, logger)
	a.RejectMoves = true
	s := NewSynchronizer(a, a, nil, logger)

	res, err := s.MoveAndWait(context.Background(), target, baseSpeeds, translationOnly(3))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Submitted, test.ShouldBeFalse)
	test.That(t, res.Outcome, test.ShouldEqual, Converged)
	test.That(t, logs.FilterMessageSnippet("not accepted").Len(), test.ShouldEqual, 1)
}

func TestInvalidCriterion(t *testing.T) {
	logger := logging.NewTestLogger(t)
	a := fake.NewArm(spatialmath.Pose{}, logger)
	s := NewSynchronizer(a, a, nil, logger)
	for _, crit := range []Criterion{
		{PositionTolerance: 0, MaxAttempts: 1},
		{PositionTolerance: 0.002, MaxAttempts: 0},
		{PositionTolerance: 0.002, OrientationTolerance: -1, MaxAttempts: 1},
		{PositionTolerance: 0.002, MaxAttempts: 1, PollInterval: -time.Second},
	} {
		_, err := s.MoveAndWait(context.Background(), target, baseSpeeds, crit)
		test.That(t, err, test.ShouldNotBeNil)
	}
	test.That(t, a.Moves(), test.ShouldBeEmpty)
}

func TestPollIntervalUsesClock(t *testing.T) {
	logger := logging.NewTestLogger(t)
	a := fake.NewArm(spatialmath.Pose{}, logger)
	a.PollsToArrive = 3
	mock := clock.NewMock()
	s := NewSynchronizer(a, a, mock, logger)

	crit := Criterion{PositionTolerance: 0.002, MaxAttempts: 10, PollInterval: 100 * time.Millisecond}
	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	start := mock.Now()
	go func() {
		res, err := s.MoveAndWait(context.Background(), target, baseSpeeds, crit)
		done <- outcome{res, err}
	}()

	var got outcome
	for waiting := true; waiting; {
		select {
		case got = <-done:
			waiting = false
		default:
			mock.Add(10 * time.Millisecond)
			time.Sleep(time.Millisecond)
		}
	}
	test.That(t, got.err, test.ShouldBeNil)
	test.That(t, got.res.Outcome, test.ShouldEqual, Converged)
	test.That(t, got.res.Polls, test.ShouldEqual, 3)
	// two sleeps between three polls
	test.That(t, mock.Now().Sub(start), test.ShouldBeGreaterThanOrEqualTo, 200*time.Millisecond)
}

func TestCancellation(t *testing.T) {
	logger := logging.NewTestLogger(t)
	a := fake.NewArm(spatialmath.Pose{}, logger)
	a.ArrivalFunc = func(int, fake.Move) int { return -1 }
	s := NewSynchronizer(a, a, clock.NewMock(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	crit := Criterion{PositionTolerance: 0.002, MaxAttempts: 100, PollInterval: time.Hour}
	errs := make(chan error, 1)
	go func() {
		_, err := s.MoveAndWait(ctx, target, baseSpeeds, crit)
		errs <- err
	}()
	cancel()
	select {
	case err := <-errs:
		test.That(t, err, test.ShouldEqual, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("wait did not honor cancellation")
	}

	_, err := s.MoveAndWait(ctx, target, baseSpeeds, crit)
	test.That(t, err, test.ShouldEqual, context.Canceled)
}

func TestSleep(t *testing.T) {
	logger := logging.NewTestLogger(t)
	a := fake.NewArm(spatialmath.Pose{}, logger)
	s := NewSynchronizer(a, a, nil, logger)
	test.That(t, s.Sleep(context.Background(), 0), test.ShouldBeNil)
	test.That(t, s.Sleep(context.Background(), time.Millisecond), test.ShouldBeNil)
}
