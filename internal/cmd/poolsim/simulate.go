// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package main

import (
	"fmt"

	"github.com/petenewcomb/poolsim/otsim"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func (e *env) simulateCommand() *cli.Command {
	return &cli.Command{
		Name:   "simulate",
		Usage:  "compute a schedule and print it",
		Flags:  configFlags(),
		Action: e.simulate,
	}
}

func (e *env) simulate(c *cli.Context) error {
	s, err := scenarioFromFlags(c)
	if err != nil {
		return err
	}
	result := otsim.Simulate(c.Context, s.Config())
	e.logger.Debug("Simulated", zap.Stringer("config", result.Config), zap.Duration("total", result.Total))

	w := c.App.Writer
	fmt.Fprintf(w, "%#v\n", result)
	fmt.Fprintf(w, "fingerprint=%016x\n", result.Fingerprint())
	return nil
}
