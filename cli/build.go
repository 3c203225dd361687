package cli

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/handeye/components/arm"
	"go.viam.com/handeye/components/arm/fake"
	"go.viam.com/handeye/components/arm/sim"
	"go.viam.com/handeye/components/arm/universalrobots"
	"go.viam.com/handeye/components/camera"
	fakecamera "go.viam.com/handeye/components/camera/fake"
	"go.viam.com/handeye/config"
	"go.viam.com/handeye/logging"
)

// newArm connects the configured arm. forceSim swaps in a simulated arm that follows the
// wall clock and starts at the configured center.
func newArm(ctx context.Context, cfg *config.Config, forceSim bool, logger logging.Logger) (arm.Arm, error) {
	if forceSim && cfg.Arm.Model != config.ArmModelSim {
		return sim.NewArm(&sim.Config{StartPose: cfg.Center, SimulateTime: true}, logger)
	}
	switch cfg.Arm.Model {
	case config.ArmModelFake:
		var conf fake.Config
		if err := convert(&cfg.Arm, &conf); err != nil {
			return nil, err
		}
		return fake.NewArmFromConfig(&conf, logger)
	case config.ArmModelSim:
		var conf sim.Config
		if err := convert(&cfg.Arm, &conf); err != nil {
			return nil, err
		}
		if forceSim {
			conf.SimulateTime = true
		}
		return sim.NewArm(&conf, logger)
	case config.ArmModelUR:
		var conf universalrobots.Config
		if err := convert(&cfg.Arm, &conf); err != nil {
			return nil, err
		}
		return universalrobots.Connect(ctx, &conf, logger)
	default:
		return nil, errors.Errorf("unknown arm model %q", cfg.Arm.Model)
	}
}

// newTrigger builds the configured camera and a trigger that saves its frames to dir.
func newTrigger(cfg *config.Config, dir string, logger logging.Logger) (camera.Trigger, error) {
	switch cfg.Camera.Model {
	case config.CameraModelFake:
		var conf fakecamera.Config
		if err := convert(&cfg.Camera.Component, &conf); err != nil {
			return nil, err
		}
		cam, err := fakecamera.NewCamera(&conf)
		if err != nil {
			return nil, err
		}
		return camera.NewFileTrigger(cam, dir, logger), nil
	default:
		return nil, errors.Errorf("unknown camera model %q", cfg.Camera.Model)
	}
}

type validator interface {
	Validate(path string) error
}

func convert(c *config.Component, out validator) error {
	if err := c.ConvertAttributes(out); err != nil {
		return err
	}
	return out.Validate(c.Model)
}
