package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"go.viam.com/handeye/calibration/record"
)

// RecordsAction prints a data file. Without an argument, the grid data file is read.
func RecordsAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		path = cfg.SequencerConfig(c.String(flagWorkdir)).GridFile
	}
	records, err := record.ReadFile(path)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s: %d records", path, len(records))
	renderRecords(c.App.Writer, records)
	if len(records) == 0 {
		return nil
	}

	summary, err := record.Summarize(records)
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.SetOutputMirror(c.App.Writer)
	t.AppendHeader(table.Row{"Axis", "Min", "Max", "Mean", "Std dev", "Span"})
	for _, axis := range summary {
		t.AppendRow(table.Row{
			axis.Component.String(),
			fmt.Sprintf("%.6f", axis.Min),
			fmt.Sprintf("%.6f", axis.Max),
			fmt.Sprintf("%.6f", axis.Mean),
			fmt.Sprintf("%.6f", axis.StdDev),
			fmt.Sprintf("%.6f", axis.Span()),
		})
	}
	t.Render()
	return nil
}
