// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otsim

import (
	"sync"

	"github.com/google/uuid"
	"github.com/petenewcomb/poolsim/playback"
	"go.uber.org/zap"
)

// LoggingObserver returns an observer that logs the lifecycle of playback
// runs. Starts, completions and cancellations are logged at info level and
// frames that complete more tasks at debug level.
func LoggingObserver(logger *zap.Logger) playback.Observer {
	return &loggingObserver{
		logger:    logger.With(zap.String("component", "otsim")),
		completed: make(map[uuid.UUID]int),
	}
}

type loggingObserver struct {
	logger    *zap.Logger
	mu        sync.Mutex
	completed map[uuid.UUID]int
}

func (o *loggingObserver) RunStarted(run *playback.Run) {
	o.logger.Info("Playback started",
		zap.Stringer("run", run.ID),
		zap.Stringer("config", run.Result.Config),
		zap.Duration("total", run.Result.Total),
		zap.Duration("window", run.Window),
		zap.Float64("timeScale", run.TimeScale))
}

func (o *loggingObserver) Frame(run *playback.Run, view playback.View) {
	o.mu.Lock()
	changed := o.completed[run.ID] != view.Metrics.Completed
	o.completed[run.ID] = view.Metrics.Completed
	o.mu.Unlock()
	if !changed {
		return
	}
	o.logger.Debug("Playback progress",
		zap.Stringer("run", run.ID),
		zap.Int("completed", view.Metrics.Completed),
		zap.Duration("elapsed", view.Metrics.Elapsed),
		zap.Float64("throughput", view.Metrics.Throughput))
}

func (o *loggingObserver) RunCompleted(run *playback.Run, view playback.View) {
	o.forget(run)
	o.logger.Info("Playback completed",
		zap.Stringer("run", run.ID),
		zap.Int("completed", view.Metrics.Completed),
		zap.Duration("elapsed", view.Metrics.Elapsed),
		zap.Float64("throughput", view.Metrics.Throughput))
}

func (o *loggingObserver) RunCanceled(run *playback.Run) {
	o.forget(run)
	o.logger.Info("Playback canceled", zap.Stringer("run", run.ID))
}

func (o *loggingObserver) forget(run *playback.Run) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.completed, run.ID)
}
