package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// RotationMatrix is a 3x3 rotation given by its three basis vectors, which are the matrix columns:
//
//	R = [X.x Y.x Z.x]
//	    [X.y Y.y Z.y]
//	    [X.z Y.z Z.z]
type RotationMatrix struct {
	X r3.Vector
	Y r3.Vector
	Z r3.Vector
}

// NewIdentityRotationMatrix returns the identity rotation.
func NewIdentityRotationMatrix() *RotationMatrix {
	return &RotationMatrix{
		X: r3.Vector{X: 1},
		Y: r3.Vector{Y: 1},
		Z: r3.Vector{Z: 1},
	}
}

// NewRotationMatrixFromRows builds a rotation matrix from row-major values.
func NewRotationMatrixFromRows(rows [9]float64) *RotationMatrix {
	return &RotationMatrix{
		X: r3.Vector{X: rows[0], Y: rows[3], Z: rows[6]},
		Y: r3.Vector{X: rows[1], Y: rows[4], Z: rows[7]},
		Z: r3.Vector{X: rows[2], Y: rows[5], Z: rows[8]},
	}
}

// At returns the element at the given row and column.
func (rm *RotationMatrix) At(row, col int) float64 {
	var c r3.Vector
	switch col {
	case 0:
		c = rm.X
	case 1:
		c = rm.Y
	default:
		c = rm.Z
	}
	switch row {
	case 0:
		return c.X
	case 1:
		return c.Y
	default:
		return c.Z
	}
}

// Trace returns the sum of the diagonal.
func (rm *RotationMatrix) Trace() float64 {
	return rm.X.X + rm.Y.Y + rm.Z.Z
}

// Mul returns rm * other.
func (rm *RotationMatrix) Mul(other *RotationMatrix) *RotationMatrix {
	col := func(v r3.Vector) r3.Vector {
		return rm.X.Mul(v.X).Add(rm.Y.Mul(v.Y)).Add(rm.Z.Mul(v.Z))
	}
	return &RotationMatrix{X: col(other.X), Y: col(other.Y), Z: col(other.Z)}
}

// Transpose returns the transpose, which for a rotation is its inverse.
func (rm *RotationMatrix) Transpose() *RotationMatrix {
	return &RotationMatrix{
		X: r3.Vector{X: rm.X.X, Y: rm.Y.X, Z: rm.Z.X},
		Y: r3.Vector{X: rm.X.Y, Y: rm.Y.Y, Z: rm.Z.Y},
		Z: r3.Vector{X: rm.X.Z, Y: rm.Y.Z, Z: rm.Z.Z},
	}
}

// Dense returns the matrix as a gonum dense matrix.
func (rm *RotationMatrix) Dense() *mat.Dense {
	data := make([]float64, 0, 9)
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			data = append(data, rm.At(row, col))
		}
	}
	return mat.NewDense(3, 3, data)
}

// IsOrthonormal reports whether RᵀR is the identity and det(R) is +1, both within tol.
func (rm *RotationMatrix) IsOrthonormal(tol float64) bool {
	d := rm.Dense()
	var prod mat.Dense
	prod.Mul(d.T(), d)
	ident := mat.NewDiagDense(3, []float64{1, 1, 1})
	if !mat.EqualApprox(&prod, ident, tol) {
		return false
	}
	return math.Abs(mat.Det(d)-1) <= tol
}

// AlmostEqual reports whether every element of rm is within tol of other.
func (rm *RotationMatrix) AlmostEqual(other *RotationMatrix, tol float64) bool {
	return mat.EqualApprox(rm.Dense(), other.Dense(), tol)
}
