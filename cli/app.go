// Package cli contains the handeye command line tool.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	flagConfig  = "config"
	flagDebug   = "debug"
	flagWorkdir = "workdir"
	flagPlot    = "plot"
	flagSim     = "sim"
	flagLimit   = "limit"
)

// NewApp returns the handeye app with Writer set to out and ErrWriter set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "handeye",
		Usage:           "collect hand-eye calibration poses and images",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  flagWorkdir,
				Usage: "resolve relative output paths against `DIR`",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "points",
				Usage:     "print the targets of the configured recipe",
				UsageText: "handeye [global options] points [--plot FILE]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagPlot,
						Usage: "also render the targets to a PNG `FILE`",
					},
				},
				Action: PointsAction,
			},
			{
				Name:  "run",
				Usage: "run a calibration with the configured arm and camera",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  flagSim,
						Usage: "use a simulated arm regardless of the configured model",
					},
				},
				Action: RunAction,
			},
			{
				Name:      "records",
				Usage:     "print a calibration data file",
				ArgsUsage: "[FILE]",
				Action:    RecordsAction,
			},
			{
				Name:      "schema",
				Usage:     "print the JSON schema of the config file or of a model's attributes",
				ArgsUsage: "[arm/fake|arm/sim|arm/ur|camera/fake]",
				Action:    SchemaAction,
			},
			{
				Name:            "runs",
				Usage:           "work with the run history",
				HideHelpCommand: true,
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "list past runs, newest first",
						Flags: []cli.Flag{
							&cli.IntFlag{
								Name:  flagLimit,
								Value: 20,
								Usage: "show at most `N` runs, 0 for all",
							},
						},
						Action: ListRunsAction,
					},
					{
						Name:      "show",
						Usage:     "print the records of a run",
						ArgsUsage: "RUN_ID",
						Action:    ShowRunAction,
					},
					{
						Name:      "delete",
						Usage:     "delete a run",
						ArgsUsage: "RUN_ID",
						Action:    DeleteRunAction,
					},
				},
			},
		},
	}
}
