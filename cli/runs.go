package cli

import (
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/handeye/calibration/store"
	"go.viam.com/handeye/logging"
)

func openStore(c *cli.Context) (*store.Store, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	path := cfg.StorePath(c.String(flagWorkdir))
	if path == "" {
		return nil, errors.New("run history is disabled in the config")
	}
	logger := logging.NewBlankLogger("store")
	return store.Open(path, logger)
}

func runIDArg(c *cli.Context) (uuid.UUID, error) {
	if c.NArg() != 1 {
		return uuid.Nil, errors.New("expected exactly one RUN_ID argument")
	}
	return uuid.Parse(c.Args().First())
}

// ListRunsAction prints the run history.
func ListRunsAction(c *cli.Context) (err error) {
	st, err := openStore(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, st.Close())
	}()
	runs, err := st.ListRuns(c.Context, c.Int(flagLimit))
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		printf(c.App.Writer, "no runs recorded")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(c.App.Writer)
	t.AppendHeader(table.Row{"ID", "Mode", "Started", "Duration", "Records", "Status"})
	for _, run := range runs {
		status := "completed"
		if !run.Completed {
			status = "incomplete"
		}
		if run.Error != "" {
			status += " with errors"
		}
		t.AppendRow(table.Row{
			run.ID.String(),
			run.Mode,
			run.Started.Local().Format(time.DateTime),
			run.Finished.Sub(run.Started).Round(time.Second).String(),
			run.RecordCount,
			status,
		})
	}
	t.Render()
	return nil
}

// ShowRunAction prints one run and its records.
func ShowRunAction(c *cli.Context) (err error) {
	id, err := runIDArg(c)
	if err != nil {
		return err
	}
	st, err := openStore(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, st.Close())
	}()
	run, err := st.Get(c.Context, id)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "run %s (%s) started %s", run.ID, run.Mode, run.Started.Local().Format(time.DateTime))
	printf(c.App.Writer, "recipe: %s", run.Recipe)
	if run.DataFile != "" {
		printf(c.App.Writer, "data file: %s", run.DataFile)
	}
	if run.Error != "" {
		printf(c.App.Writer, "errors: %s", run.Error)
	}
	renderRecords(c.App.Writer, run.Records)
	return nil
}

// DeleteRunAction removes a run from the history.
func DeleteRunAction(c *cli.Context) (err error) {
	id, err := runIDArg(c)
	if err != nil {
		return err
	}
	st, err := openStore(c)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, st.Close())
	}()
	if err := st.Delete(c.Context, id); err != nil {
		return err
	}
	printf(c.App.Writer, "deleted run %s", id)
	return nil
}
