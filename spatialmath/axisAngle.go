package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// See here for a thorough explanation: https://en.wikipedia.org/wiki/Axis%E2%80%93angle_representation
// Basic explanation: Imagine a 3d cartesian grid centered at 0,0,0, and a sphere of radius 1 centered at
// that same point. An orientation can be expressed by first specifying an axis, i.e. a line from the origin
// to a point on that sphere, represented by (rx, ry, rz), and a rotation around that axis, theta.
// These four numbers can be used as-is (R4), or they can be converted to R3, where theta is multiplied by each of
// the unit sphere components to give a vector whose length is theta and whose direction is the original axis.
// Robot controllers speak R3, so that is what Pose carries.

// angleEpsilon is the tolerance used to detect the identity and 180 degree branches.
const angleEpsilon = 1e-6

// R4AA represents an R4 axis angle.
type R4AA struct {
	Theta float64 `json:"th"`
	RX    float64 `json:"x"`
	RY    float64 `json:"y"`
	RZ    float64 `json:"z"`
}

// NewR4AA creates an empty R4AA struct.
func NewR4AA() *R4AA {
	return &R4AA{Theta: 0, RX: 0, RY: 0, RZ: 1}
}

// ToR3 converts an R4 angle axis to R3.
func (r4 *R4AA) ToR3() r3.Vector {
	return r3.Vector{X: r4.RX * r4.Theta, Y: r4.RY * r4.Theta, Z: r4.RZ * r4.Theta}
}

// Axis returns the rotation axis as a vector.
func (r4 *R4AA) Axis() r3.Vector {
	return r3.Vector{X: r4.RX, Y: r4.RY, Z: r4.RZ}
}

// Normalize scales the x, y, and z components of a R4 axis angle to be on the unit sphere.
// A zero axis is replaced with +Z, matching NewR4AA.
func (r4 *R4AA) Normalize() {
	norm := math.Sqrt(r4.RX*r4.RX + r4.RY*r4.RY + r4.RZ*r4.RZ)
	if norm < 1e-9 {
		r4.RX, r4.RY, r4.RZ = 0, 0, 1
		return
	}
	r4.RX /= norm
	r4.RY /= norm
	r4.RZ /= norm
}

// R3ToR4 converts an R3 angle axis to R4.
func R3ToR4(aa r3.Vector) *R4AA {
	theta := aa.Norm()
	if theta < angleEpsilon {
		return NewR4AA()
	}
	return &R4AA{theta, aa.X / theta, aa.Y / theta, aa.Z / theta}
}

// MatrixToAxisAngle converts a rotation matrix to an R3 rotation vector.
//
// The general acos formula loses precision near 0 and pi, so those are handled separately.
// At pi the recovered axis sign is arbitrary: k and -k describe the same rotation.
func MatrixToAxisAngle(m *RotationMatrix) r3.Vector {
	r11, r12, r13 := m.At(0, 0), m.At(0, 1), m.At(0, 2)
	r21, r22, r23 := m.At(1, 0), m.At(1, 1), m.At(1, 2)
	r31, r32, r33 := m.At(2, 0), m.At(2, 1), m.At(2, 2)

	trace := r11 + r22 + r33
	var theta float64
	var axis r3.Vector

	switch {
	case trace >= 3-angleEpsilon:
		return r3.Vector{}
	case trace <= -1+angleEpsilon:
		// R = 2kkᵀ - I, so the largest diagonal gives the best conditioned k_i and the
		// symmetric off-diagonal sums are 4·k_i·k_j.
		theta = math.Pi
		switch {
		case r11 > r22 && r11 > r33:
			k := math.Sqrt((r11 + 1) / 2)
			d := 4 * k
			axis = r3.Vector{X: k, Y: (r12 + r21) / d, Z: (r13 + r31) / d}
		case r22 > r33:
			k := math.Sqrt((r22 + 1) / 2)
			d := 4 * k
			axis = r3.Vector{X: (r12 + r21) / d, Y: k, Z: (r23 + r32) / d}
		default:
			k := math.Sqrt((r33 + 1) / 2)
			d := 4 * k
			axis = r3.Vector{X: (r13 + r31) / d, Y: (r23 + r32) / d, Z: k}
		}
	default:
		theta = math.Acos((trace - 1) / 2)
		s := 2 * math.Sin(theta)
		axis = r3.Vector{X: (r32 - r23) / s, Y: (r13 - r31) / s, Z: (r21 - r12) / s}
	}

	aa := &R4AA{Theta: theta, RX: axis.X, RY: axis.Y, RZ: axis.Z}
	aa.Normalize()
	return aa.ToR3()
}

// AxisAngleToMatrix converts an R3 rotation vector to a rotation matrix using Rodrigues' formula.
func AxisAngleToMatrix(aa r3.Vector) *RotationMatrix {
	theta := aa.Norm()
	if theta < angleEpsilon {
		return NewIdentityRotationMatrix()
	}
	kx, ky, kz := aa.X/theta, aa.Y/theta, aa.Z/theta
	c := math.Cos(theta)
	s := math.Sin(theta)
	v := 1 - c

	return &RotationMatrix{
		X: r3.Vector{X: kx*kx*v + c, Y: kx*ky*v + kz*s, Z: kx*kz*v - ky*s},
		Y: r3.Vector{X: kx*ky*v - kz*s, Y: ky*ky*v + c, Z: ky*kz*v + kx*s},
		Z: r3.Vector{X: kx*kz*v + ky*s, Y: ky*kz*v - kx*s, Z: kz*kz*v + c},
	}
}
