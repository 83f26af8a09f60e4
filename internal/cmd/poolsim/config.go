// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package main

import (
	"github.com/petenewcomb/poolsim"
	"github.com/petenewcomb/poolsim/internal/scenario"
	"github.com/urfave/cli/v2"
)

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Value:   poolsim.DefaultConfig.Workers,
			Usage:   "number of workers in the pool",
		},
		&cli.IntFlag{
			Name:    "tasks",
			Aliases: []string{"t"},
			Value:   poolsim.DefaultConfig.Tasks,
			Usage:   "number of tasks to run",
		},
		&cli.StringFlag{
			Name:    "duration",
			Aliases: []string{"d"},
			Value:   poolsim.DurationMedium.String(),
			Usage:   "task duration class (short, medium, long)",
		},
		&cli.StringFlag{
			Name:    "sync",
			Aliases: []string{"s"},
			Value:   poolsim.DefaultConfig.Sync.String(),
			Usage:   "synchronization mode (none, lock, atomic)",
		},
		&cli.PathFlag{
			Name:  "scenario",
			Usage: "load the configuration from a YAML scenario file",
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "scenario to select from --scenario (default: the first)",
		},
	}
}

// scenarioFromFlags resolves the configuration flags. Explicitly set flags
// override the values of a scenario loaded with --scenario, and the result
// must lie within the control bounds.
func scenarioFromFlags(c *cli.Context) (scenario.Scenario, error) {
	s := scenario.Default()
	if path := c.Path("scenario"); path != "" {
		f, err := scenario.LoadFile(path)
		if err != nil {
			return s, err
		}
		if s, err = f.Lookup(c.String("name")); err != nil {
			return s, err
		}
	}
	if c.IsSet("workers") {
		s.Workers = c.Int("workers")
	}
	if c.IsSet("tasks") {
		s.Tasks = c.Int("tasks")
	}
	if c.IsSet("duration") {
		d, err := poolsim.ParseDurationClass(c.String("duration"))
		if err != nil {
			return s, err
		}
		s.Duration = d
	}
	if c.IsSet("sync") {
		m, err := poolsim.ParseSyncMode(c.String("sync"))
		if err != nil {
			return s, err
		}
		s.Sync = m
	}
	return s, s.Validate()
}
