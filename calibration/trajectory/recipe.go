// Package trajectory generates the ordered target poses of a calibration run from a recipe.
package trajectory

import (
	"github.com/pkg/errors"

	"go.viam.com/handeye/spatialmath"
)

// DefaultGridStepMM is the grid spacing used when a config does not set one.
const DefaultGridStepMM = 50.0

// Mode names a recipe kind. It is also what the data file and the run store are keyed by.
type Mode string

// The supported generation modes.
const (
	ModeGrid9   Mode = "grid9"
	ModePyramid Mode = "pyramid"
)

// Recipe describes how to generate a set of target points. It is implemented by Grid9 and Pyramid
// only.
type Recipe interface {
	Mode() Mode
	Validate() error
	// PointCount is the number of targets Generate produces for this recipe.
	PointCount() int
	isRecipe()
}

// Grid9 is a 3x3 grid in the plane orthogonal to Normal, centered on the start pose.
type Grid9 struct {
	StepMM float64
	// Normal is the axis held constant. Only X, Y and Z are valid; the zero value is X.
	Normal spatialmath.Component
}

// Mode returns ModeGrid9.
func (Grid9) Mode() Mode { return ModeGrid9 }

// PointCount is always 9.
func (Grid9) PointCount() int { return 9 }

func (Grid9) isRecipe() {}

// Validate checks the step and normal.
func (g Grid9) Validate() error {
	if g.StepMM <= 0 {
		return errors.Errorf("grid step must be positive, got %v mm", g.StepMM)
	}
	if g.Normal.IsRotation() || g.Normal < spatialmath.X {
		return errors.Errorf("grid normal must be x, y or z, got %v", g.Normal)
	}
	return nil
}

// Pyramid is a stack of square layers shrinking from BaseWidthMM to TopWidthMM over HeightMM along
// Direction. Every corner is visited once with a tilt toward the pyramid axis.
type Pyramid struct {
	Layers      int
	BaseWidthMM float64
	TopWidthMM  float64
	HeightMM    float64
	TiltDeg     float64
	Direction   Direction
}

// Mode returns ModePyramid.
func (Pyramid) Mode() Mode { return ModePyramid }

// PointCount is four corners per layer.
func (p Pyramid) PointCount() int { return 4 * p.Layers }

func (Pyramid) isRecipe() {}

// Validate checks the layer count, dimensions and direction.
func (p Pyramid) Validate() error {
	if p.Layers < 1 {
		return errors.Errorf("pyramid needs at least one layer, got %d", p.Layers)
	}
	if p.BaseWidthMM <= 0 {
		return errors.Errorf("base width must be positive, got %v mm", p.BaseWidthMM)
	}
	if p.TopWidthMM < 0 {
		return errors.Errorf("top width must not be negative, got %v mm", p.TopWidthMM)
	}
	if p.HeightMM < 0 {
		return errors.Errorf("height must not be negative, got %v mm", p.HeightMM)
	}
	if p.TiltDeg <= -90 || p.TiltDeg >= 90 {
		return errors.Errorf("tilt must be within (-90, 90) degrees, got %v", p.TiltDeg)
	}
	_, err := p.Direction.axes()
	return err
}

// Direction selects the world axis, and its sense, that the pyramid grows along.
type Direction string

// The six supported directions.
const (
	DirectionXPlus  Direction = "X+"
	DirectionXMinus Direction = "X-"
	DirectionYPlus  Direction = "Y+"
	DirectionYMinus Direction = "Y-"
	DirectionZPlus  Direction = "Z+"
	DirectionZMinus Direction = "Z-"
)

// Directions lists every valid direction.
var Directions = []Direction{
	DirectionXPlus, DirectionXMinus, DirectionYPlus, DirectionYMinus, DirectionZPlus, DirectionZMinus,
}

// axisRoles assigns pose components to the pyramid's geometry. rot1 is tilted by the width2
// position and rot2 by the width1 position.
type axisRoles struct {
	height, width1, width2 spatialmath.Component
	rot1, rot2             spatialmath.Component
	heightSign             float64
}

// spin is the rotation component about the height axis.
func (a axisRoles) spin() spatialmath.Component {
	return spatialmath.RX + a.height
}

var directionTable = map[Direction]axisRoles{
	DirectionZPlus:  {spatialmath.Z, spatialmath.X, spatialmath.Y, spatialmath.RX, spatialmath.RY, 1},
	DirectionZMinus: {spatialmath.Z, spatialmath.X, spatialmath.Y, spatialmath.RX, spatialmath.RY, -1},
	DirectionYPlus:  {spatialmath.Y, spatialmath.X, spatialmath.Z, spatialmath.RX, spatialmath.RZ, 1},
	DirectionYMinus: {spatialmath.Y, spatialmath.X, spatialmath.Z, spatialmath.RX, spatialmath.RZ, -1},
	DirectionXPlus:  {spatialmath.X, spatialmath.Y, spatialmath.Z, spatialmath.RY, spatialmath.RZ, 1},
	DirectionXMinus: {spatialmath.X, spatialmath.Y, spatialmath.Z, spatialmath.RY, spatialmath.RZ, -1},
}

func (d Direction) axes() (axisRoles, error) {
	roles, ok := directionTable[d]
	if !ok {
		return axisRoles{}, errors.Errorf("unknown pyramid direction %q", string(d))
	}
	return roles, nil
}

// ParseDirection accepts the six direction names, case insensitively for the axis letter.
func ParseDirection(s string) (Direction, error) {
	if len(s) == 2 && s[0] >= 'a' && s[0] <= 'z' {
		s = string(s[0]-'a'+'A') + s[1:]
	}
	d := Direction(s)
	if _, err := d.axes(); err != nil {
		return "", err
	}
	return d, nil
}
