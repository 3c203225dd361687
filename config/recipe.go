package config

import (
	"strings"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/handeye/calibration/trajectory"
	"go.viam.com/handeye/spatialmath"
)

// Recipe is the serialized form of a trajectory recipe. Fields that do not apply to Mode are
// ignored.
type Recipe struct {
	Mode string `json:"mode"`

	StepMM float64 `json:"step_mm,omitempty"`
	// Normal is "x", "y" or "z".
	Normal string `json:"normal,omitempty"`

	Layers      int     `json:"layers,omitempty"`
	BaseWidthMM float64 `json:"base_width_mm,omitempty"`
	TopWidthMM  float64 `json:"top_width_mm,omitempty"`
	HeightMM    float64 `json:"height_mm,omitempty"`
	TiltDeg     float64 `json:"tilt_deg,omitempty"`
	Direction   string  `json:"direction,omitempty"`
}

// DefaultRecipe is the 9 point grid in the plane facing the X axis.
func DefaultRecipe() Recipe {
	return Recipe{Mode: string(trajectory.ModeGrid9), StepMM: trajectory.DefaultGridStepMM, Normal: "x"}
}

// Validate ensures the recipe converts.
func (r *Recipe) Validate(path string) error {
	if r.Mode == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "mode")
	}
	if _, err := r.Convert(); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	return nil
}

// Convert builds the trajectory recipe.
func (r *Recipe) Convert() (trajectory.Recipe, error) {
	var out trajectory.Recipe
	switch trajectory.Mode(r.Mode) {
	case trajectory.ModeGrid9:
		normal, err := parseAxis(r.Normal)
		if err != nil {
			return nil, err
		}
		step := r.StepMM
		if step == 0 {
			step = trajectory.DefaultGridStepMM
		}
		out = trajectory.Grid9{StepMM: step, Normal: normal}
	case trajectory.ModePyramid:
		dir, err := trajectory.ParseDirection(r.Direction)
		if err != nil {
			return nil, err
		}
		out = trajectory.Pyramid{
			Layers:      r.Layers,
			BaseWidthMM: r.BaseWidthMM,
			TopWidthMM:  r.TopWidthMM,
			HeightMM:    r.HeightMM,
			TiltDeg:     r.TiltDeg,
			Direction:   dir,
		}
	default:
		return nil, errors.Errorf("unknown mode %q", r.Mode)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseAxis(s string) (spatialmath.Component, error) {
	switch strings.ToLower(s) {
	case "", "x":
		return spatialmath.X, nil
	case "y":
		return spatialmath.Y, nil
	case "z":
		return spatialmath.Z, nil
	default:
		return 0, errors.Errorf("unknown axis %q", s)
	}
}
