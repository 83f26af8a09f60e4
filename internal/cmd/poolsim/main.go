// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Command poolsim simulates a worker pool executing uniform tasks under a
// choice of synchronization strategy, plays schedules back in real time, and
// charts the results.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env holds the process-wide state set up before any command runs.
type env struct {
	logger *zap.Logger
	tp     *sdktrace.TracerProvider
}

func newApp() *cli.App {
	e := &env{logger: zap.NewNop()}
	return &cli.App{
		Name:  "poolsim",
		Usage: "simulate worker pools contending for shared state",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "minimum level of log messages (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "log JSON instead of human-readable text",
			},
			&cli.BoolFlag{
				Name:  "trace",
				Usage: "print OpenTelemetry spans to standard error",
			},
		},
		Before: e.setup,
		After:  e.teardown,
		Commands: []*cli.Command{
			e.simulateCommand(),
			e.playCommand(),
			e.sweepCommand(),
			e.chartCommand(),
		},
	}
}

func (e *env) setup(c *cli.Context) error {
	level, err := zapcore.ParseLevel(c.String("log-level"))
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	var cfg zap.Config
	if c.Bool("log-json") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	e.logger = logger
	zap.ReplaceGlobals(logger)

	if c.Bool("trace") {
		exporter, err := stdouttrace.New(
			stdouttrace.WithWriter(c.App.ErrWriter),
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return err
		}
		e.tp = sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithBatcher(exporter),
		)
		otel.SetTracerProvider(e.tp)
	}
	return nil
}

func (e *env) teardown(c *cli.Context) error {
	if e.tp != nil {
		if err := e.tp.Shutdown(context.Background()); err != nil {
			e.logger.Warn("Error shutting down tracer provider", zap.Error(err))
		}
	}
	_ = e.logger.Sync()
	return nil
}
