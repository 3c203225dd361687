package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"go.viam.com/handeye/calibration/trajectory"
	"go.viam.com/handeye/spatialmath"
)

// PointsAction prints the configured recipe's targets around the configured center.
func PointsAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	recipe, err := cfg.Recipe.Convert()
	if err != nil {
		return err
	}
	center := spatialmath.Pose{}
	if cfg.Center != nil {
		if center, err = spatialmath.NewPoseFromMillimetersDegrees(cfg.Center); err != nil {
			return err
		}
	}
	points, err := trajectory.Generate(recipe, center)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(c.App.Writer)
	t.AppendHeader(table.Row{"#", "Layer", "Corner", "Base (mm, deg)", "Capture (mm, deg)"})
	for _, pt := range points {
		capture := pt.Base
		corner := "-"
		if pt.Dither != nil {
			capture = *pt.Dither
			corner = fmt.Sprintf("%d", pt.Corner)
		}
		t.AppendRow(table.Row{pt.Index, pt.Layer, corner, formatMMDeg(pt.Base), formatMMDeg(capture)})
	}
	t.AppendFooter(table.Row{"", "", "", "mode " + string(recipe.Mode()), fmt.Sprintf("%d points", len(points))})
	t.Render()

	if path := c.String(flagPlot); path != "" {
		if err := trajectory.Plot(recipe, points, path); err != nil {
			return err
		}
		printf(c.App.Writer, "plot written to %s", path)
	}
	return nil
}

func formatMMDeg(p spatialmath.Pose) string {
	v := p.MillimetersDegrees()
	return fmt.Sprintf("%.1f, %.1f, %.1f, %.2f, %.2f, %.2f", v[0], v[1], v[2], v[3], v[4], v[5])
}
