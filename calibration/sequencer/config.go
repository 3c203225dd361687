package sequencer

import (
	"time"

	"github.com/pkg/errors"

	"go.viam.com/handeye/calibration/motion"
	"go.viam.com/handeye/calibration/record"
	"go.viam.com/handeye/calibration/trajectory"
)

// Config holds the motion parameters and output locations of a run.
type Config struct {
	// GridBase is used for grid points. A timeout aborts the rest of the run.
	GridBase motion.Criterion
	// PyramidBase is used for pyramid base poses. A timeout is logged and the point continues.
	PyramidBase motion.Criterion
	Dither      motion.Criterion
	Restore     motion.Criterion

	BaseSpeeds   motion.Speeds
	DitherSpeeds motion.Speeds
	HomeSpeeds   motion.Speeds

	GridSettle    time.Duration
	PyramidSettle time.Duration

	// GridFile and PyramidFile are where the records of each mode are written.
	GridFile    string
	PyramidFile string
}

// DefaultConfig returns the parameters the calibration rig was tuned with.
func DefaultConfig() Config {
	const (
		poll            = 100 * time.Millisecond
		positionTol     = 0.002
		ditherRotTol    = 0.05
		moveAccel       = 0.5
		moveSpeed       = 0.2
		ditherSpeed     = 0.1
		gridAttempts    = 100
		pyramidAttempts = 200
		adjustAttempts  = 50
		gridSettle      = 500 * time.Millisecond
		pyramidSettle   = 1500 * time.Millisecond
	)
	return Config{
		GridBase:      motion.Criterion{PositionTolerance: positionTol, MaxAttempts: gridAttempts, PollInterval: poll},
		PyramidBase:   motion.Criterion{PositionTolerance: positionTol, MaxAttempts: pyramidAttempts, PollInterval: poll},
		Dither:        motion.Criterion{PositionTolerance: positionTol, OrientationTolerance: ditherRotTol, MaxAttempts: adjustAttempts, PollInterval: poll},
		Restore:       motion.Criterion{PositionTolerance: positionTol, MaxAttempts: adjustAttempts, PollInterval: poll},
		BaseSpeeds:    motion.Speeds{Accel: moveAccel, Speed: moveSpeed},
		DitherSpeeds:  motion.Speeds{Accel: moveAccel, Speed: ditherSpeed},
		HomeSpeeds:    motion.Speeds{Accel: moveAccel, Speed: moveSpeed},
		GridSettle:    gridSettle,
		PyramidSettle: pyramidSettle,
		GridFile:      record.DefaultGridFile,
		PyramidFile:   record.DefaultPyramidFile,
	}
}

// Validate checks every criterion and speed.
func (c Config) Validate() error {
	for name, crit := range map[string]motion.Criterion{
		"grid_base":    c.GridBase,
		"pyramid_base": c.PyramidBase,
		"dither":       c.Dither,
		"restore":      c.Restore,
	} {
		if err := crit.Validate(); err != nil {
			return errors.Wrap(err, name)
		}
	}
	for name, s := range map[string]motion.Speeds{
		"base_speeds":   c.BaseSpeeds,
		"dither_speeds": c.DitherSpeeds,
		"home_speeds":   c.HomeSpeeds,
	} {
		if s.Accel <= 0 || s.Speed <= 0 {
			return errors.Errorf("%s: accel and speed must be positive, got a=%v v=%v", name, s.Accel, s.Speed)
		}
	}
	if c.GridSettle < 0 || c.PyramidSettle < 0 {
		return errors.New("settle times must not be negative")
	}
	return nil
}

// DataFile returns where records of the given mode are written.
func (c Config) DataFile(mode trajectory.Mode) string {
	if mode == trajectory.ModePyramid {
		if c.PyramidFile != "" {
			return c.PyramidFile
		}
		return record.DefaultPyramidFile
	}
	if c.GridFile != "" {
		return c.GridFile
	}
	return record.DefaultGridFile
}
