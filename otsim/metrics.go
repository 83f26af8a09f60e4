// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otsim

import (
	"context"

	"github.com/petenewcomb/poolsim/playback"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsObserver records playback runs with OpenTelemetry instruments:
//   - poolsim.playback.runs counts runs by outcome (started, completed or
//     canceled);
//   - poolsim.playback.frames counts frames;
//   - poolsim.playback.makespan records the makespan of completed runs in
//     milliseconds.
type MetricsObserver struct {
	runs     metric.Int64Counter
	frames   metric.Int64Counter
	makespan metric.Float64Histogram
}

var _ playback.Observer = (*MetricsObserver)(nil)

// NewMetricsObserver creates the observer's instruments with meter.
func NewMetricsObserver(meter metric.Meter) (*MetricsObserver, error) {
	var o MetricsObserver
	var err error
	if o.runs, err = meter.Int64Counter("poolsim.playback.runs",
		metric.WithDescription("Playback runs, by outcome.")); err != nil {
		return nil, err
	}
	if o.frames, err = meter.Int64Counter("poolsim.playback.frames",
		metric.WithDescription("Playback frames that did not complete a run.")); err != nil {
		return nil, err
	}
	if o.makespan, err = meter.Float64Histogram("poolsim.playback.makespan",
		metric.WithDescription("Makespan of completed playback runs."),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	return &o, nil
}

func (o *MetricsObserver) outcome(name string) metric.AddOption {
	return metric.WithAttributes(attribute.String("playback.outcome", name))
}

func (o *MetricsObserver) RunStarted(run *playback.Run) {
	o.runs.Add(context.Background(), 1, o.outcome("started"))
}

func (o *MetricsObserver) Frame(run *playback.Run, view playback.View) {
	o.frames.Add(context.Background(), 1)
}

func (o *MetricsObserver) RunCompleted(run *playback.Run, view playback.View) {
	ctx := context.Background()
	o.runs.Add(ctx, 1, o.outcome("completed"))
	o.makespan.Record(ctx, float64(run.Result.Total.Microseconds())/1000,
		metric.WithAttributes(ConfigAttributes(run.Result.Config)...))
}

func (o *MetricsObserver) RunCanceled(run *playback.Run) {
	o.runs.Add(context.Background(), 1, o.outcome("canceled"))
}
