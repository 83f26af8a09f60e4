// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/petenewcomb/poolsim/otsim"
	"github.com/petenewcomb/poolsim/playback"
	"github.com/petenewcomb/poolsim/promsim"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func (e *env) playCommand() *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "play a schedule back in real time",
		Flags: append(configFlags(),
			&cli.DurationFlag{
				Name:  "min-window",
				Value: playback.DefaultMinWindow,
				Usage: "shortest wall-clock time a playback may take",
			},
			&cli.DurationFlag{
				Name:  "max-window",
				Value: playback.DefaultMaxWindow,
				Usage: "longest wall-clock time a playback may take",
			},
			&cli.DurationFlag{
				Name:  "frame-interval",
				Value: playback.DefaultFrameInterval,
				Usage: "wall-clock time between frames",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "serve Prometheus metrics at this address during playback",
			},
		),
		Action: e.play,
	}
}

func (e *env) play(c *cli.Context) error {
	s, err := scenarioFromFlags(c)
	if err != nil {
		return err
	}
	lo, hi := c.Duration("min-window"), c.Duration("max-window")
	if lo <= 0 || lo > hi {
		return fmt.Errorf("invalid display window [%v, %v]", lo, hi)
	}
	interval := c.Duration("frame-interval")
	if interval <= 0 {
		return fmt.Errorf("invalid frame interval %v", interval)
	}

	ctx := c.Context
	result := otsim.Simulate(ctx, s.Config())

	metrics, err := otsim.NewMetricsObserver(otel.GetMeterProvider().Meter("poolsim"))
	if err != nil {
		return err
	}
	observers := playback.MultiObserver{
		otsim.LoggingObserver(e.logger),
		otsim.TracingObserver(ctx),
		metrics,
	}

	if addr := c.String("metrics-addr"); addr != "" {
		reg := prom.NewRegistry()
		exporter, err := promsim.NewExporter(reg, promsim.Options{})
		if err != nil {
			return err
		}
		exporter.ObserveResult(result)
		observers = append(observers, exporter)

		stop, err := e.serveMetrics(addr, reg)
		if err != nil {
			return err
		}
		defer stop()
	}

	w := c.App.Writer
	done := make(chan struct{})
	observers = append(observers, playback.ObserverFuncs{
		RunStartedFunc: func(run *playback.Run) {
			fmt.Fprintf(w, "%v: playing %v of virtual time in %v\n", run.Result.Config, run.Result.Total, run.Window)
		},
		FrameFunc: progressPrinter(w),
		RunCompletedFunc: func(run *playback.Run, view playback.View) {
			fmt.Fprintf(w, "done: %v\n", view.Metrics)
			close(done)
		},
	})

	loop := playback.NewFrameLoop(interval)
	driver := playback.NewDriver(loop,
		playback.WithObserver(observers),
		playback.WithLogger(e.logger),
		playback.WithDisplayWindow(lo, hi),
	)

	loopCtx, cancel := context.WithCancel(ctx)
	loopDone := make(chan error, 1)
	go func() {
		loopDone <- loop.Run(loopCtx)
	}()

	driver.Start(result)
	select {
	case <-done:
	case <-ctx.Done():
		driver.Reset()
	}
	cancel()
	if err := <-loopDone; !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

// progressPrinter returns a frame callback that prints the metrics whenever
// another task completes.
func progressPrinter(w io.Writer) func(*playback.Run, playback.View) {
	completed := 0
	return func(run *playback.Run, view playback.View) {
		if view.Metrics.Completed == completed {
			return
		}
		completed = view.Metrics.Completed
		fmt.Fprintf(w, "%v\n", view.Metrics)
	}
}

func (e *env) serveMetrics(addr string, reg *prom.Registry) (stop func(), err error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	e.logger.Info("Serving metrics", zap.Stringer("addr", ln.Addr()))
	go func() {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
