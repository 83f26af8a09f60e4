// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package promsim exports simulations and playback runs as Prometheus metrics.
package promsim

import (
	"errors"
	"fmt"

	"github.com/petenewcomb/poolsim"
	"github.com/petenewcomb/poolsim/playback"
	prom "github.com/prometheus/client_golang/prometheus"
)

// Options controls collector configuration.
type Options struct {
	// Namespace prefixes every metric name. Defaults to "poolsim".
	Namespace string
	// MakespanBuckets are the histogram buckets, in seconds, for simulated
	// makespans. Defaults to exponential buckets from 50ms to about 25s.
	MakespanBuckets []float64
}

// Exporter adapts simulation results and playback runs to Prometheus
// collectors. It implements [playback.Observer]; the gauges describe the run
// most recently started, completed or advanced.
type Exporter struct {
	completed   prom.Gauge
	elapsed     prom.Gauge
	throughput  prom.Gauge
	runs        *prom.CounterVec
	simulations *prom.CounterVec
	makespan    *prom.HistogramVec
}

var _ playback.Observer = (*Exporter)(nil)

// NewExporter creates the exporter's collectors and registers them with reg,
// or with the default registerer if reg is nil. Collectors already registered
// by an earlier exporter with the same namespace are shared.
func NewExporter(reg prom.Registerer, opts Options) (*Exporter, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "poolsim"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.MakespanBuckets
	if len(buckets) == 0 {
		buckets = prom.ExponentialBuckets(0.05, 2, 10)
	}

	completed := prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Subsystem: "playback",
		Name:      "completed_tasks",
		Help:      "Tasks completed so far in the current playback run.",
	})
	elapsed := prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Subsystem: "playback",
		Name:      "elapsed_seconds",
		Help:      "Virtual time elapsed in the current playback run.",
	})
	throughput := prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Subsystem: "playback",
		Name:      "throughput_tasks_per_second",
		Help:      "Completed tasks per second of virtual time in the current playback run.",
	})
	runs := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Subsystem: "playback",
		Name:      "runs_total",
		Help:      "Total number of playback runs, by outcome.",
	}, []string{"outcome"})
	simulations := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "simulations_total",
		Help:      "Total number of schedules computed, by synchronization mode.",
	}, []string{"sync"})
	makespan := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "makespan_seconds",
		Help:      "Virtual makespan of computed schedules, by synchronization mode.",
		Buckets:   buckets,
	}, []string{"sync"})

	var err error
	if completed, err = registerCollector(reg, completed); err != nil {
		return nil, err
	}
	if elapsed, err = registerCollector(reg, elapsed); err != nil {
		return nil, err
	}
	if throughput, err = registerCollector(reg, throughput); err != nil {
		return nil, err
	}
	if runs, err = registerCollector(reg, runs); err != nil {
		return nil, err
	}
	if simulations, err = registerCollector(reg, simulations); err != nil {
		return nil, err
	}
	if makespan, err = registerCollector(reg, makespan); err != nil {
		return nil, err
	}

	return &Exporter{
		completed:   completed,
		elapsed:     elapsed,
		throughput:  throughput,
		runs:        runs,
		simulations: simulations,
		makespan:    makespan,
	}, nil
}

// ObserveResult counts a computed schedule and records its makespan.
func (e *Exporter) ObserveResult(result *poolsim.Result) {
	if e == nil || result == nil {
		return
	}
	mode := result.Config.Sync.String()
	e.simulations.WithLabelValues(mode).Inc()
	e.makespan.WithLabelValues(mode).Observe(result.Total.Seconds())
}

func (e *Exporter) RunStarted(run *playback.Run) {
	if e == nil {
		return
	}
	e.runs.WithLabelValues("started").Inc()
	e.setMetrics(playback.Metrics{})
}

func (e *Exporter) Frame(run *playback.Run, view playback.View) {
	if e == nil {
		return
	}
	e.setMetrics(view.Metrics)
}

func (e *Exporter) RunCompleted(run *playback.Run, view playback.View) {
	if e == nil {
		return
	}
	e.runs.WithLabelValues("completed").Inc()
	e.setMetrics(view.Metrics)
}

func (e *Exporter) RunCanceled(run *playback.Run) {
	if e == nil {
		return
	}
	e.runs.WithLabelValues("canceled").Inc()
}

func (e *Exporter) setMetrics(m playback.Metrics) {
	e.completed.Set(float64(m.Completed))
	e.elapsed.Set(m.Elapsed.Seconds())
	e.throughput.Set(m.Throughput)
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
