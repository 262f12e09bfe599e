// Package cli contains the localplanner command line tool.
package cli

import (
	"io"
	"time"

	"github.com/urfave/cli/v2"
)

// Flags.
const (
	configFlag     = "config"
	debugFlag      = "debug"
	logFileFlag    = "log-file"
	goalFlag       = "goal"
	durationFlag   = "duration"
	vizOutFlag     = "viz-out"
	transformFlag  = "transform"
	frontFlag      = "static-front-threshold"
	minDynamicFlag = "min-dynamic-points"
)

const defaultRunLength = time.Minute

var app = &cli.App{
	Name:            "localplanner",
	Usage:           "track global plans with a local planner",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    debugFlag,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.StringFlag{
			Name:  logFileFlag,
			Usage: "also write logs to `FILE`, rotated by size",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "run",
			Usage:     "drive a simulated robot to a goal",
			UsageText: "localplanner run [--config FILE] [--goal x,y,yaw] [other options]",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:    configFlag,
					Aliases: []string{"c"},
					Usage:   "load configuration from `FILE` and reload it when it changes",
				},
				&cli.StringFlag{
					Name:  goalFlag,
					Value: "1,0,0",
					Usage: "goal pose as x,y,yaw in the global frame",
				},
				&cli.DurationFlag{
					Name:  durationFlag,
					Value: defaultRunLength,
					Usage: "give up when the goal is not reached within this long",
				},
				&cli.PathFlag{
					Name:  vizOutFlag,
					Usage: "write visualization messages to `FILE` as JSON lines",
				},
			},
			Action: RunAction,
		},
		{
			Name:      "validate",
			Usage:     "validate a configuration file",
			UsageText: "localplanner validate --config FILE",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     configFlag,
					Aliases:  []string{"c"},
					Required: true,
					Usage:    "configuration `FILE` to validate",
				},
			},
			Action: ValidateAction,
		},
		{
			Name:      "filter",
			Usage:     "split point clouds into static points and dynamic candidates",
			UsageText: "localplanner filter --transform FILE <cloud.csv> [<cloud.csv>...]",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     transformFlag,
					Required: true,
					Usage:    "sensor to base transform `FILE` holding x,y,z,qx,qy,qz,qw",
				},
				&cli.Float64Flag{
					Name:  frontFlag,
					Value: 3,
					Usage: "points further ahead than this many meters are static",
				},
				&cli.IntFlag{
					Name:  minDynamicFlag,
					Value: 50,
					Usage: "dynamic candidates needed before classifying a cloud",
				},
			},
			Action: FilterAction,
		},
		{
			Name:      "schema",
			Usage:     "print the JSON schema of the configuration file",
			UsageText: "localplanner schema",
			Action:    SchemaAction,
		},
	},
}

// NewApp returns the app with the given output writers.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
