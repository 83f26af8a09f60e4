// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package main

import (
	"fmt"
	"os"

	"github.com/petenewcomb/poolsim"
	"github.com/petenewcomb/poolsim/chart"
	"github.com/petenewcomb/poolsim/internal/sweep"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/perf/benchunit"
)

func (e *env) sweepCommand() *cli.Command {
	grid := sweep.DefaultGrid()
	var durations, modes []string
	for _, d := range grid.Durations {
		durations = append(durations, d.String())
	}
	for _, m := range grid.Modes {
		modes = append(modes, m.String())
	}
	return &cli.Command{
		Name:  "sweep",
		Usage: "simulate a grid of configurations and report throughput",
		Flags: []cli.Flag{
			&cli.IntSliceFlag{
				Name:  "workers",
				Value: cli.NewIntSlice(grid.Workers...),
				Usage: "worker counts to simulate",
			},
			&cli.IntSliceFlag{
				Name:  "tasks",
				Value: cli.NewIntSlice(grid.Tasks...),
				Usage: "task counts to simulate",
			},
			&cli.StringSliceFlag{
				Name:  "duration",
				Value: cli.NewStringSlice(durations...),
				Usage: "task duration classes to simulate",
			},
			&cli.StringSliceFlag{
				Name:  "sync",
				Value: cli.NewStringSlice(modes...),
				Usage: "synchronization modes to simulate",
			},
			&cli.PathFlag{
				Name:  "from",
				Usage: "read results in Go benchmark format from this file instead of simulating",
			},
			&cli.PathFlag{
				Name:  "out",
				Usage: "write results in Go benchmark format to this file instead of standard output",
			},
			&cli.PathFlag{
				Name:  "chart",
				Usage: "render a throughput chart to this file (.svg, .png or .pdf)",
			},
		},
		Action: e.sweep,
	}
}

func (e *env) sweep(c *cli.Context) error {
	var points []sweep.Point
	if path := c.Path("from"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if points, err = sweep.Read(f, path); err != nil {
			return err
		}
	} else {
		grid, err := gridFromFlags(c)
		if err != nil {
			return err
		}
		points = sweep.Run(grid)
	}
	e.logger.Debug("Sweep", zap.Int("points", len(points)))

	if path := c.Path("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := sweep.Write(f, points); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		for _, p := range points {
			fmt.Fprintf(c.App.Writer, "%s\t%v\t%s tasks/s\n",
				p.Name(), p.Total, benchunit.Scale(p.Throughput, benchunit.Decimal))
		}
	} else if err := sweep.Write(c.App.Writer, points); err != nil {
		return err
	}

	if path := c.Path("chart"); path != "" {
		p, err := chart.Throughput(points)
		if err != nil {
			return err
		}
		if err := chart.Save(p, path); err != nil {
			return err
		}
		e.logger.Info("Wrote chart", zap.String("path", path))
	}
	return nil
}

func gridFromFlags(c *cli.Context) (sweep.Grid, error) {
	g := sweep.Grid{
		Workers: c.IntSlice("workers"),
		Tasks:   c.IntSlice("tasks"),
	}
	for _, s := range c.StringSlice("duration") {
		d, err := poolsim.ParseDurationClass(s)
		if err != nil {
			return g, err
		}
		g.Durations = append(g.Durations, d)
	}
	for _, s := range c.StringSlice("sync") {
		m, err := poolsim.ParseSyncMode(s)
		if err != nil {
			return g, err
		}
		g.Modes = append(g.Modes, m)
	}
	return g, nil
}
