package trajectory

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"go.viam.com/handeye/spatialmath"
	"go.viam.com/handeye/utils"
)

// planeAxes returns the two axes a recipe's points spread over.
func planeAxes(recipe Recipe) (spatialmath.Component, spatialmath.Component, error) {
	switch r := recipe.(type) {
	case Grid9:
		fast, slow := gridPlane(r.Normal)
		return fast, slow, nil
	case Pyramid:
		roles, err := r.Direction.axes()
		if err != nil {
			return 0, 0, err
		}
		return roles.width1, roles.width2, nil
	default:
		return 0, 0, errors.Errorf("unsupported recipe type %T", recipe)
	}
}

// Plot renders the traversal of points projected onto the recipe's plane, in millimeters, as a
// PNG at path. Each pyramid layer gets its own color and every point is labeled with its index.
func Plot(recipe Recipe, points []TargetPoint, path string) error {
	if len(points) == 0 {
		return errors.New("no points to plot")
	}
	ax1, ax2, err := planeAxes(recipe)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s calibration path (%d points)", recipe.Mode(), len(points))
	p.X.Label.Text = ax1.String() + " (mm)"
	p.Y.Label.Text = ax2.String() + " (mm)"
	p.Add(plotter.NewGrid())

	project := func(pose spatialmath.Pose) plotter.XY {
		return plotter.XY{X: utils.MetersToMM(pose[ax1]), Y: utils.MetersToMM(pose[ax2])}
	}

	pathXYs := make(plotter.XYs, len(points))
	labels := make([]string, len(points))
	layers := map[int]plotter.XYs{}
	maxLayer := 0
	for i, pt := range points {
		xy := project(pt.Base)
		pathXYs[i] = xy
		labels[i] = strconv.Itoa(pt.Index)
		layers[pt.Layer] = append(layers[pt.Layer], xy)
		if pt.Layer > maxLayer {
			maxLayer = pt.Layer
		}
	}

	line, err := plotter.NewLine(pathXYs)
	if err != nil {
		return err
	}
	line.Color = plotutil.Color(0)
	line.Width = vg.Points(0.5)
	line.Dashes = []vg.Length{vg.Points(3), vg.Points(2)}
	p.Add(line)

	for layer := 0; layer <= maxLayer; layer++ {
		xys, ok := layers[layer]
		if !ok {
			continue
		}
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		scatter.Color = plotutil.Color(layer + 1)
		scatter.Radius = vg.Points(3)
		p.Add(scatter)
		if recipe.Mode() == ModePyramid {
			p.Legend.Add(fmt.Sprintf("layer %d", layer+1), scatter)
		}
	}

	names, err := plotter.NewLabels(plotter.XYLabels{XYs: pathXYs, Labels: labels})
	if err != nil {
		return err
	}
	p.Add(names)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.Wrap(err, "creating plot directory")
		}
	}
	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}
