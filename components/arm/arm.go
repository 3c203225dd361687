// Package arm defines the interfaces the calibration engine uses to talk to a robot arm
// controller: a fire-and-forget motion command channel and a tool pose feed.
package arm

import (
	"context"
	"fmt"
	"strings"

	"go.viam.com/handeye/spatialmath"
)

// Link is the command side of a robot controller connection.
type Link interface {
	// IsConnected reports whether the command channel is usable.
	IsConnected() bool
	// PowerOn powers the arm. It is safe to call on an already powered arm.
	PowerOn(ctx context.Context) error
	// BrakeRelease releases the joint brakes.
	BrakeRelease(ctx context.Context) error
	// MoveL submits a linear move to target with the given acceleration (m/s^2) and speed (m/s).
	// It does not wait for the motion; the result only says whether the controller accepted
	// the command.
	MoveL(ctx context.Context, target spatialmath.Pose, accel, speed float64) bool
}

// PoseProvider reports the actual tool pose as [x,y,z,rx,ry,rz] in millimeters and degrees.
// Implementations must be cheap enough to call at 10Hz or faster.
type PoseProvider interface {
	CurrentPose(ctx context.Context) ([]float64, error)
}

// PoseProviderFunc adapts a function to a PoseProvider.
type PoseProviderFunc func(ctx context.Context) ([]float64, error)

// CurrentPose calls f.
func (f PoseProviderFunc) CurrentPose(ctx context.Context) ([]float64, error) {
	return f(ctx)
}

// Arm is a controller that both accepts motion and reports its pose.
type Arm interface {
	Link
	PoseProvider
	Close(ctx context.Context) error
}

// CurrentPose reads the provider and converts the result to meters and radians.
func CurrentPose(ctx context.Context, provider PoseProvider) (spatialmath.Pose, error) {
	values, err := provider.CurrentPose(ctx)
	if err != nil {
		return spatialmath.Pose{}, err
	}
	return spatialmath.NewPoseFromMillimetersDegrees(values)
}

// MoveLScript renders the controller script line for a linear move. Poses are sent as a plain
// list rather than p[...] since some controllers reject the pose literal in secondary programs.
func MoveLScript(target spatialmath.Pose, accel, speed float64) string {
	parts := make([]string, len(target))
	for i, v := range target {
		parts[i] = fmt.Sprintf("%.6f", v)
	}
	return fmt.Sprintf("movel([%s], a=%.3f, v=%.3f)\n", strings.Join(parts, ","), accel, speed)
}
