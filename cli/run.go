package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/handeye/calibration/sequencer"
	"go.viam.com/handeye/calibration/store"
	"go.viam.com/handeye/components/arm"
	"go.viam.com/handeye/spatialmath"
)

// RunAction runs the configured recipe and prints the collected records. Interrupting the
// process stops the run after the current poll; records gathered so far are still saved.
func RunAction(c *cli.Context) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := newLogger(c, cfg)
	if err != nil {
		return err
	}
	defer func() {
		//nolint:errcheck
		logger.Sync()
	}()
	recipe, err := cfg.Recipe.Convert()
	if err != nil {
		return err
	}
	workdir := c.String(flagWorkdir)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	robot, err := newArm(ctx, cfg, c.Bool(flagSim), logger.Sublogger("arm"))
	if err != nil {
		return errors.Wrap(err, "connecting to arm")
	}
	defer func() {
		err = multierr.Combine(err, robot.Close(context.Background()))
	}()

	trigger, err := newTrigger(cfg, cfg.CaptureDir(workdir), logger.Sublogger("camera"))
	if err != nil {
		return err
	}

	var opts []sequencer.Option
	if path := cfg.StorePath(workdir); path != "" {
		st, openErr := store.Open(path, logger.Sublogger("store"))
		if openErr != nil {
			return openErr
		}
		defer func() {
			err = multierr.Combine(err, st.Close())
		}()
		opts = append(opts, sequencer.WithRecorder(st))
	}

	var center spatialmath.Pose
	if cfg.Center != nil {
		center, err = spatialmath.NewPoseFromMillimetersDegrees(cfg.Center)
	} else {
		center, err = arm.CurrentPose(ctx, robot)
	}
	if err != nil {
		return errors.Wrap(err, "determining calibration center")
	}

	seq := sequencer.New(robot, robot, trigger, cfg.SequencerConfig(workdir), logger.Sublogger("sequencer"), opts...)
	report := seq.Run(ctx, recipe, center)

	printf(c.App.Writer, "run %s: %d of %d points recorded", report.ID, len(report.Records), recipe.PointCount())
	if report.DataFile != "" {
		printf(c.App.Writer, "data written to %s", report.DataFile)
	}
	if len(report.Records) > 0 {
		renderRecords(c.App.Writer, report.Records)
	}
	for _, e := range multierr.Errors(report.Err) {
		printf(c.App.ErrWriter, "error: %v", e)
	}
	if !report.Completed {
		return errors.New("calibration did not complete")
	}
	return nil
}
