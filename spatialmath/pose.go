package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/handeye/utils"
)

// Component indexes one of the six scalars of a Pose.
type Component int

// The six pose components, in controller order.
const (
	X Component = iota
	Y
	Z
	RX
	RY
	RZ
)

var componentNames = [6]string{"x", "y", "z", "rx", "ry", "rz"}

func (c Component) String() string {
	if c < X || c > RZ {
		return fmt.Sprintf("Component(%d)", int(c))
	}
	return componentNames[c]
}

// IsRotation reports whether the component belongs to the rotation vector.
func (c Component) IsRotation() bool {
	return c >= RX && c <= RZ
}

// Pose is a tool pose as robot controllers report it: translation in meters followed by an
// R3 axis-angle rotation vector in radians.
type Pose [6]float64

// NewPose builds a pose from a point in meters and a rotation vector in radians.
func NewPose(pt, aa r3.Vector) Pose {
	return Pose{pt.X, pt.Y, pt.Z, aa.X, aa.Y, aa.Z}
}

// NewPoseFromMillimetersDegrees converts a six element [x,y,z,rx,ry,rz] slice given in
// millimeters and degrees, the unit system of pose providers and data entry.
func NewPoseFromMillimetersDegrees(values []float64) (Pose, error) {
	if len(values) < 6 {
		return Pose{}, errors.Errorf("pose needs 6 values, got %d", len(values))
	}
	var p Pose
	for i := X; i <= Z; i++ {
		p[i] = utils.MMToMeters(values[i])
	}
	for i := RX; i <= RZ; i++ {
		p[i] = utils.DegToRad(values[i])
	}
	return p, nil
}

// MillimetersDegrees returns the pose as [x,y,z,rx,ry,rz] in millimeters and degrees.
func (p Pose) MillimetersDegrees() []float64 {
	out := make([]float64, 6)
	for i := X; i <= Z; i++ {
		out[i] = utils.MetersToMM(p[i])
	}
	for i := RX; i <= RZ; i++ {
		out[i] = utils.RadToDeg(p[i])
	}
	return out
}

// Point returns the translation in meters.
func (p Pose) Point() r3.Vector {
	return r3.Vector{X: p[X], Y: p[Y], Z: p[Z]}
}

// AxisAngle returns the R3 rotation vector in radians.
func (p Pose) AxisAngle() r3.Vector {
	return r3.Vector{X: p[RX], Y: p[RY], Z: p[RZ]}
}

// RotationMatrix returns the orientation of the pose as a rotation matrix.
func (p Pose) RotationMatrix() *RotationMatrix {
	return AxisAngleToMatrix(p.AxisAngle())
}

// Add returns a copy of the pose with delta added to a single component.
func (p Pose) Add(c Component, delta float64) Pose {
	p[c] += delta
	return p
}

// TranslationDistance is the euclidean distance between the translations of two poses.
func (p Pose) TranslationDistance(o Pose) float64 {
	return p.Point().Sub(o.Point()).Norm()
}

// RotationDistance is the euclidean distance between the rotation vectors of two poses.
// This is a component-wise comparison and is only meaningful for nearby orientations.
func (p Pose) RotationDistance(o Pose) float64 {
	return p.AxisAngle().Sub(o.AxisAngle()).Norm()
}

// AlmostEqual reports whether every component is within tol.
func (p Pose) AlmostEqual(o Pose, tol float64) bool {
	for i := range p {
		if math.Abs(p[i]-o[i]) > tol {
			return false
		}
	}
	return true
}

// String formats the pose in meters and radians.
func (p Pose) String() string {
	return fmt.Sprintf("[%.6f, %.6f, %.6f, %.6f, %.6f, %.6f]", p[X], p[Y], p[Z], p[RX], p[RY], p[RZ])
}
