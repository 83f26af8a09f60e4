// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package otsim instruments simulations and playback with OpenTelemetry
// tracing and metrics and with zap structured logging.
package otsim

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/petenewcomb/poolsim"
	"github.com/petenewcomb/poolsim/playback"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "otsim"

// ConfigAttributes describes config as span or metric attributes.
func ConfigAttributes(config poolsim.Config) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("poolsim.workers", config.Workers),
		attribute.Int("poolsim.tasks", config.Tasks),
		attribute.String("poolsim.base_duration", config.BaseDuration.String()),
		attribute.String("poolsim.sync", config.Sync.String()),
	}
}

// Simulate runs [poolsim.Simulate] in a span named "poolsim.Simulate" and
// counts the simulation, by synchronization mode, with the global meter
// provider.
func Simulate(ctx context.Context, config poolsim.Config) *poolsim.Result {
	tracer := otel.Tracer(instrumentationName)
	ctx, span := tracer.Start(ctx, "poolsim.Simulate", trace.WithAttributes(ConfigAttributes(config)...))
	defer span.End()

	meter := otel.GetMeterProvider().Meter(instrumentationName)
	simulations, _ := meter.Int64Counter("poolsim.simulations",
		metric.WithDescription("Schedules computed, by synchronization mode."))

	result := poolsim.Simulate(config)

	simulations.Add(ctx, 1, metric.WithAttributes(attribute.String("poolsim.sync", result.Config.Sync.String())))
	span.SetAttributes(
		attribute.Int64("poolsim.total_ms", result.Total.Milliseconds()),
		attribute.Float64("poolsim.throughput", result.Throughput),
		attribute.String("poolsim.fingerprint", fmt.Sprintf("%016x", result.Fingerprint())),
	)
	return result
}

// TracingObserver returns an observer that records each playback run as a
// span named "poolsim.Playback", a child of any span in ctx. The span gets an
// event whenever more tasks have completed and ends when the run completes or
// is canceled.
func TracingObserver(ctx context.Context) playback.Observer {
	return &tracingObserver{
		ctx:  ctx,
		runs: make(map[uuid.UUID]*tracedRun),
	}
}

type tracingObserver struct {
	ctx  context.Context
	mu   sync.Mutex
	runs map[uuid.UUID]*tracedRun
}

type tracedRun struct {
	span      trace.Span
	completed int
}

func (o *tracingObserver) RunStarted(run *playback.Run) {
	tracer := otel.Tracer(instrumentationName)
	attrs := append(ConfigAttributes(run.Result.Config),
		attribute.String("playback.run", run.ID.String()),
		attribute.String("playback.window", run.Window.String()),
		attribute.Float64("playback.time_scale", run.TimeScale),
	)
	_, span := tracer.Start(o.ctx, "poolsim.Playback", trace.WithAttributes(attrs...))

	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs[run.ID] = &tracedRun{span: span}
}

func (o *tracingObserver) Frame(run *playback.Run, view playback.View) {
	o.mu.Lock()
	defer o.mu.Unlock()
	tr := o.runs[run.ID]
	if tr == nil || view.Metrics.Completed == tr.completed {
		return
	}
	tr.completed = view.Metrics.Completed
	tr.span.AddEvent("progress", trace.WithAttributes(metricsAttributes(view.Metrics)...))
}

func (o *tracingObserver) RunCompleted(run *playback.Run, view playback.View) {
	tr := o.take(run)
	if tr == nil {
		return
	}
	tr.span.AddEvent("completed", trace.WithAttributes(metricsAttributes(view.Metrics)...))
	tr.span.SetAttributes(attribute.String("playback.outcome", "completed"))
	tr.span.SetStatus(codes.Ok, "")
	tr.span.End()
}

func (o *tracingObserver) RunCanceled(run *playback.Run) {
	tr := o.take(run)
	if tr == nil {
		return
	}
	tr.span.AddEvent("canceled")
	tr.span.SetAttributes(attribute.String("playback.outcome", "canceled"))
	tr.span.End()
}

func (o *tracingObserver) take(run *playback.Run) *tracedRun {
	o.mu.Lock()
	defer o.mu.Unlock()
	tr := o.runs[run.ID]
	delete(o.runs, run.ID)
	return tr
}

func metricsAttributes(m playback.Metrics) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("playback.completed", m.Completed),
		attribute.String("playback.elapsed", m.Elapsed.String()),
		attribute.Float64("playback.throughput", m.Throughput),
	}
}
