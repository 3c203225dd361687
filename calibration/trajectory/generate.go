package trajectory

import (
	"github.com/pkg/errors"

	"go.viam.com/handeye/spatialmath"
	"go.viam.com/handeye/utils"
)

const (
	// topTiltReduction is how much smaller the tilt is on the top layer than on the bottom.
	topTiltReduction = 0.6
	// spinDeg is added to the spin about the height axis to vary captured orientations.
	spinDeg = 2.0
	// ditherHeightShift nudges the dither pose along the height axis so the controller plans a
	// real linear move instead of a pure reorientation.
	ditherHeightShift = 0.0001
)

// cornerSigns are the (width1, width2) signs of the four corners in traversal order.
var cornerSigns = [4][2]float64{
	{-1, -1},
	{-1, 1},
	{1, 1},
	{1, -1},
}

// TargetPoint is one pose of a calibration run.
type TargetPoint struct {
	// Index is 1-based and is what records and captured images are labeled with.
	Index int
	// Layer and Corner locate a pyramid point. Grid points have Layer 0 and Corner -1.
	Layer  int
	Corner int
	Base   spatialmath.Pose
	// Dither is the tilted pose captured at a pyramid point. It is nil for grid points.
	Dither *spatialmath.Pose
}

// Generate returns the ordered targets of recipe around center.
func Generate(recipe Recipe, center spatialmath.Pose) ([]TargetPoint, error) {
	if recipe == nil {
		return nil, errors.New("no recipe")
	}
	if err := recipe.Validate(); err != nil {
		return nil, err
	}
	switch r := recipe.(type) {
	case Grid9:
		return generateGrid(r, center), nil
	case Pyramid:
		return generatePyramid(r, center), nil
	default:
		return nil, errors.Errorf("unsupported recipe type %T", recipe)
	}
}

// gridPlane returns the fast and slow in-plane axes for a grid normal.
func gridPlane(normal spatialmath.Component) (fast, slow spatialmath.Component) {
	switch normal {
	case spatialmath.Y:
		return spatialmath.X, spatialmath.Z
	case spatialmath.Z:
		return spatialmath.X, spatialmath.Y
	default:
		return spatialmath.Y, spatialmath.Z
	}
}

func generateGrid(g Grid9, center spatialmath.Pose) []TargetPoint {
	step := utils.MMToMeters(g.StepMM)
	steps := []float64{-step, 0, step}
	fast, slow := gridPlane(g.Normal)

	points := make([]TargetPoint, 0, g.PointCount())
	for _, ds := range steps {
		for _, df := range steps {
			points = append(points, TargetPoint{
				Index:  len(points) + 1,
				Corner: -1,
				Base:   center.Add(slow, ds).Add(fast, df),
			})
		}
	}
	return points
}

// layerRatio is 0 on the bottom layer and 1 on the top layer.
func layerRatio(layers, layer int) float64 {
	if layers <= 1 {
		return 0
	}
	return float64(layer) / float64(layers-1)
}

// LayerWidthMM is the side length of a pyramid layer.
func LayerWidthMM(p Pyramid, layer int) float64 {
	ratio := layerRatio(p.Layers, layer)
	return p.BaseWidthMM - (p.BaseWidthMM-p.TopWidthMM)*ratio
}

// TiltMagnitude is the inward tilt in radians applied on a pyramid layer. It shrinks linearly to
// 40% of TiltDeg on the top layer.
func TiltMagnitude(p Pyramid, layer int) float64 {
	ratio := layerRatio(p.Layers, layer)
	return utils.DegToRad(p.TiltDeg) * (1 - ratio*topTiltReduction)
}

func generatePyramid(p Pyramid, center spatialmath.Pose) []TargetPoint {
	// Validate has already checked the direction.
	roles, _ := p.Direction.axes()
	height := utils.MMToMeters(p.HeightMM)

	points := make([]TargetPoint, 0, p.PointCount())
	for layer := 0; layer < p.Layers; layer++ {
		ratio := layerRatio(p.Layers, layer)
		layerOffset := height * ratio * roles.heightSign
		halfWidth := utils.MMToMeters(LayerWidthMM(p, layer)) / 2
		tilt := TiltMagnitude(p, layer)

		for corner, signs := range cornerSigns {
			base := center.
				Add(roles.height, layerOffset).
				Add(roles.width1, signs[0]*halfWidth).
				Add(roles.width2, signs[1]*halfWidth)
			dither := ditherPose(base, roles, corner, tilt)
			points = append(points, TargetPoint{
				Index:  len(points) + 1,
				Layer:  layer,
				Corner: corner,
				Base:   base,
				Dither: &dither,
			})
		}
	}
	return points
}

// ditherPose tilts base toward the pyramid axis by adding to the rotation vector components. This
// is a small angle approximation, not a composed rotation.
func ditherPose(base spatialmath.Pose, roles axisRoles, corner int, tilt float64) spatialmath.Pose {
	signW1, signW2 := cornerSigns[corner][0], cornerSigns[corner][1]
	modifier := 1.0
	if corner == 1 || corner == 3 {
		modifier = -1
	}
	spin := spinDeg
	if corner%2 != 0 {
		spin = -spinDeg
	}
	return base.
		Add(roles.rot1, -signW2*tilt*modifier).
		Add(roles.rot2, -signW1*tilt*modifier).
		Add(roles.spin(), utils.DegToRad(spin)).
		Add(roles.height, ditherHeightShift)
}
