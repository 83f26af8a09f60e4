// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package main

import (
	"github.com/petenewcomb/poolsim/chart"
	"github.com/petenewcomb/poolsim/otsim"
	"github.com/petenewcomb/poolsim/playback"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func (e *env) chartCommand() *cli.Command {
	return &cli.Command{
		Name:  "chart",
		Usage: "render a Gantt chart of a schedule",
		Flags: append(configFlags(),
			&cli.PathFlag{
				Name:     "out",
				Aliases:  []string{"o"},
				Required: true,
				Usage:    "write the chart to this file (.svg, .png or .pdf)",
			},
			&cli.DurationFlag{
				Name:  "at",
				Usage: "show the schedule as seen at this virtual time (default: the end of the run)",
			},
		),
		Action: e.chart,
	}
}

func (e *env) chart(c *cli.Context) error {
	s, err := scenarioFromFlags(c)
	if err != nil {
		return err
	}
	result := otsim.Simulate(c.Context, s.Config())

	var view *playback.View
	if at := c.Duration("at"); at > 0 && at < result.Total {
		v := playback.ComputeView(result, at)
		view = &v
	}
	p, err := chart.Gantt(result, view)
	if err != nil {
		return err
	}
	path := c.Path("out")
	if err := chart.Save(p, path); err != nil {
		return err
	}
	e.logger.Info("Wrote chart", zap.String("path", path), zap.Stringer("config", result.Config))
	return nil
}
