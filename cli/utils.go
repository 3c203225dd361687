package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"go.viam.com/handeye/calibration/record"
	"go.viam.com/handeye/config"
	"go.viam.com/handeye/logging"
)

// printf prints a message with no decoration.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// loadConfig reads the --config file, or returns the defaults when none is given.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String(flagConfig)
	if path == "" {
		return config.Default(), nil
	}
	return config.Read(path)
}

func newLogger(c *cli.Context, cfg *config.Config) (logging.Logger, error) {
	logger, err := cfg.NewLogger("handeye")
	if err != nil {
		return nil, err
	}
	if c.Bool(flagDebug) {
		logger.SetLevel(logging.DEBUG)
	}
	return logger, nil
}

func renderRecords(w io.Writer, records []record.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Point", "X (m)", "Y (m)", "Z (m)", "Rx (rad)", "Ry (rad)", "Rz (rad)"})
	for _, r := range records {
		row := table.Row{r.PointIndex}
		for _, v := range r.Measured {
			row = append(row, fmt.Sprintf("%.6f", v))
		}
		t.AppendRow(row)
	}
	t.Render()
}
