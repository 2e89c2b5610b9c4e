// Package main replays the sensor topics of a rosbag through a sensor bridge and reports what would
// have been forwarded to the trajectory builder.
package main

import (
	"context"
	"os"

	"github.com/edaniels/golog"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const (
	flagConfig = "config"
	flagBag    = "bag"
	flagDebug  = "debug"
	flagQuiet  = "quiet"
)

func main() {
	app := &cli.App{
		Name:  "replay",
		Usage: "replay rosbag sensor topics through a sensor bridge",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     flagConfig,
				Aliases:  []string{"c"},
				Usage:    "JSON5 file describing the bridge, topics and static transforms",
				Required: true,
			},
			&cli.StringFlag{
				Name:     flagBag,
				Aliases:  []string{"b"},
				Usage:    "rosbag to replay",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "log every dropped observation",
			},
			&cli.BoolFlag{
				Name:  flagQuiet,
				Usage: "only print the summary",
			},
		},
		Action: runReplay,
	}
	if err := app.Run(os.Args); err != nil {
		golog.Global().Fatal(err)
	}
}

func runReplay(c *cli.Context) error {
	var logger golog.Logger
	switch {
	case c.Bool(flagQuiet):
		logger = zap.NewNop().Sugar()
	case c.Bool(flagDebug):
		logger = golog.NewDebugLogger("replay")
	default:
		logger = golog.NewDevelopmentLogger("replay")
	}

	conf, err := readReplayConfig(c.String(flagConfig))
	if err != nil {
		return err
	}
	summary, err := replayBag(context.Background(), c.String(flagBag), conf, logger)
	if err != nil {
		return err
	}
	summary.print(c.App.Writer)
	return nil
}
