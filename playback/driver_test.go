// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package playback_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/petenewcomb/poolsim"
	"github.com/petenewcomb/poolsim/playback"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const ms = time.Millisecond

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// serial finishes its three tasks at 100ms, 200ms and 300ms and so replays
// over the minimum window at a time scale of 0.2.
func serial() *poolsim.Result {
	return poolsim.Simulate(poolsim.Config{Workers: 1, Tasks: 3, BaseDuration: 100 * ms})
}

// recorder logs observer notifications as strings of the form "kind:run",
// where run is the index of the run in order of first appearance.
type recorder struct {
	runs   []*playback.Run
	events []string
	views  []playback.View
}

func (r *recorder) runIndex(run *playback.Run) int {
	for i, known := range r.runs {
		if known == run {
			return i
		}
	}
	r.runs = append(r.runs, run)
	return len(r.runs) - 1
}

func (r *recorder) add(kind string, run *playback.Run) {
	r.events = append(r.events, fmt.Sprintf("%s:%d", kind, r.runIndex(run)))
}

func (r *recorder) RunStarted(run *playback.Run) {
	r.add("started", run)
}

func (r *recorder) Frame(run *playback.Run, view playback.View) {
	r.add("frame", run)
	r.views = append(r.views, view)
}

func (r *recorder) RunCompleted(run *playback.Run, view playback.View) {
	r.add("completed", run)
	r.views = append(r.views, view)
}

func (r *recorder) RunCanceled(run *playback.Run) {
	r.add("canceled", run)
}

// lazyCancelClock never manages to cancel a tick, so every scheduled tick
// runs.
type lazyCancelClock struct {
	*playback.ManualClock
}

func (lazyCancelClock) Cancel(playback.TickHandle) {}

func TestDriverPlaysToCompletion(t *testing.T) {
	chk := require.New(t)
	result := serial()
	clock := playback.NewManualClock(epoch)
	rec := &recorder{}
	d := playback.NewDriver(clock, playback.WithObserver(rec))
	chk.Equal(playback.Idle, d.State())
	chk.Nil(d.Run())

	run := d.Start(result)
	chk.Equal(playback.Running, d.State())
	chk.Same(run, d.Run())
	chk.Equal(epoch, run.StartedAt)
	chk.Equal(1500*ms, run.Window)
	chk.InDelta(0.2, run.TimeScale, 1e-12)
	chk.Equal(1, clock.Pending())

	v := d.View()
	chk.Equal(run.ID, v.RunID)
	chk.Len(v.Tasks, 3)
	chk.Zero(v.Metrics.Completed)
	chk.Zero(v.Metrics.Throughput)

	// 600ms of wall-clock time is 120ms of virtual time.
	chk.Equal(1, clock.AdvanceAndStep(600*ms))
	v = d.View()
	chk.Equal(playback.Running, d.State())
	chk.Equal(1, v.Metrics.Completed)
	chk.InDelta(120*ms, v.Elapsed, float64(ms))
	chk.InDelta(1/0.12, v.Metrics.Throughput, 0.01)
	chk.True(v.Tasks[0].Completed)
	chk.True(v.Tasks[1].Active)
	chk.InDelta(0.2, v.Tasks[1].Progress, 0.01)

	clock.AdvanceAndStep(600 * ms)
	chk.Equal(2, d.View().Metrics.Completed)

	clock.AdvanceAndStep(300 * ms)
	chk.Equal(playback.Completed, d.State())
	v = d.View()
	chk.Equal(3, v.Metrics.Completed)
	chk.Equal(300*ms, v.Elapsed)
	chk.Equal(result.Throughput, v.Metrics.Throughput)
	chk.Zero(clock.Pending())

	chk.Equal([]string{"started:0", "frame:0", "frame:0", "completed:0"}, rec.events)
	chk.Equal(v, rec.views[len(rec.views)-1])
}

func TestDriverStopsAfterCompletion(t *testing.T) {
	chk := require.New(t)
	clock := playback.NewManualClock(epoch)
	d := playback.NewDriver(clock)
	d.Start(serial())
	clock.AdvanceAndStep(2 * time.Second)
	chk.Equal(playback.Completed, d.State())
	before := d.View()

	for range 5 {
		chk.Zero(clock.AdvanceAndStep(time.Second))
	}
	chk.Equal(playback.Completed, d.State())
	chk.Equal(before, d.View())
}

func TestDriverZeroLengthRun(t *testing.T) {
	chk := require.New(t)
	result := poolsim.Simulate(poolsim.Config{Workers: 2, Tasks: 4})
	chk.Zero(result.Total)

	clock := playback.NewManualClock(epoch)
	rec := &recorder{}
	d := playback.NewDriver(clock, playback.WithObserver(rec))
	run := d.Start(result)
	chk.Equal(1.0, run.TimeScale)

	clock.Step()
	chk.Equal(playback.Completed, d.State())
	v := d.View()
	chk.Equal(4, v.Metrics.Completed)
	chk.Zero(v.Elapsed)
	chk.Zero(v.Metrics.Throughput)
	chk.Equal([]string{"started:0", "completed:0"}, rec.events)
}

func TestDriverResetIsIdempotent(t *testing.T) {
	chk := require.New(t)
	clock := playback.NewManualClock(epoch)
	rec := &recorder{}
	d := playback.NewDriver(clock, playback.WithObserver(rec))

	// Resetting an idle driver does nothing.
	d.Reset()
	chk.Equal(playback.Idle, d.State())
	chk.Empty(rec.events)

	d.Start(serial())
	clock.AdvanceAndStep(100 * ms)
	d.Reset()
	chk.Equal(playback.Idle, d.State())
	chk.Nil(d.Run())
	chk.Equal(playback.View{}, d.View())
	chk.Zero(clock.Pending())
	once := append([]string(nil), rec.events...)
	chk.Equal([]string{"started:0", "frame:0", "canceled:0"}, once)

	d.Reset()
	chk.Equal(playback.Idle, d.State())
	chk.Equal(playback.View{}, d.View())
	chk.Equal(once, rec.events)
}

func TestDriverResetAfterCompletion(t *testing.T) {
	chk := require.New(t)
	clock := playback.NewManualClock(epoch)
	rec := &recorder{}
	d := playback.NewDriver(clock, playback.WithObserver(rec))
	d.Start(serial())
	clock.AdvanceAndStep(time.Minute)
	d.Reset()
	chk.Equal(playback.Idle, d.State())
	chk.Equal([]string{"started:0", "completed:0"}, rec.events)
}

func TestDriverRestartWhileRunning(t *testing.T) {
	chk := require.New(t)
	clock := playback.NewManualClock(epoch)
	rec := &recorder{}
	d := playback.NewDriver(clock, playback.WithObserver(rec))

	first := d.Start(serial())
	clock.AdvanceAndStep(100 * ms)
	second := d.Start(poolsim.Simulate(poolsim.DefaultConfig))
	chk.NotEqual(first.ID, second.ID)
	chk.Same(second, d.Run())
	chk.Equal(playback.Running, d.State())
	chk.Equal(1, clock.Pending())
	chk.Zero(d.View().Metrics.Completed)

	clock.AdvanceAndStep(time.Minute)
	chk.Equal(playback.Completed, d.State())
	chk.Equal([]string{"started:0", "frame:0", "canceled:0", "started:1", "completed:1"}, rec.events)
}

func TestDriverRestartAfterCompletion(t *testing.T) {
	chk := require.New(t)
	clock := playback.NewManualClock(epoch)
	rec := &recorder{}
	d := playback.NewDriver(clock, playback.WithObserver(rec))
	d.Start(serial())
	clock.AdvanceAndStep(time.Minute)
	d.Start(serial())
	chk.Equal(playback.Running, d.State())
	chk.Equal([]string{"started:0", "completed:0", "started:1"}, rec.events)
}

func TestDriverIgnoresStaleTicks(t *testing.T) {
	chk := require.New(t)
	clock := lazyCancelClock{playback.NewManualClock(epoch)}
	rec := &recorder{}
	d := playback.NewDriver(clock, playback.WithObserver(rec))

	d.Start(serial())
	d.Reset()
	second := d.Start(poolsim.Simulate(poolsim.Config{Workers: 1, Tasks: 3, BaseDuration: 900 * ms}))
	chk.Equal(2, clock.Pending())

	// Both ticks run; only the second run's tick may touch the driver.
	chk.Equal(2, clock.AdvanceAndStep(600*ms))
	chk.Equal(1, clock.Pending())
	chk.Same(second, d.Run())
	chk.Equal(playback.Running, d.State())
	chk.Equal([]string{"started:0", "canceled:0", "started:1", "frame:1"}, rec.events)
	chk.Equal(second.ID, d.View().RunID)
}

func TestDriverObserverMayRestart(t *testing.T) {
	chk := require.New(t)
	clock := playback.NewManualClock(epoch)
	rec := &recorder{}
	var d *playback.Driver
	restarted := false
	d = playback.NewDriver(clock, playback.WithObserver(playback.MultiObserver{
		rec,
		playback.ObserverFuncs{
			RunCompletedFunc: func(*playback.Run, playback.View) {
				if !restarted {
					restarted = true
					d.Start(serial())
				}
			},
		},
	}))
	d.Start(serial())
	clock.AdvanceAndStep(time.Minute)
	chk.Equal(playback.Running, d.State())
	chk.Equal([]string{"started:0", "completed:0", "started:1"}, rec.events)
	chk.Equal(1, clock.Pending())
}

func TestDriverLogsLifecycle(t *testing.T) {
	chk := require.New(t)
	core, logs := observer.New(zapcore.DebugLevel)
	clock := playback.NewManualClock(epoch)
	d := playback.NewDriver(clock, playback.WithLogger(zap.New(core)))
	run := d.Start(serial())
	d.Reset()

	entries := logs.AllUntimed()
	chk.Len(entries, 2)
	chk.Equal("playback started", entries[0].Message)
	chk.Equal("playback canceled", entries[1].Message)
	chk.Equal(run.ID.String(), entries[1].ContextMap()["run"])
}

func TestDisplayWindowOption(t *testing.T) {
	chk := require.New(t)
	clock := playback.NewManualClock(epoch)
	d := playback.NewDriver(clock, playback.WithDisplayWindow(10*ms, 20*ms))
	run := d.Start(serial())
	chk.Equal(20*ms, run.Window)
	chk.InDelta(15.0, run.TimeScale, 1e-9)

	chk.Panics(func() { playback.WithDisplayWindow(0, time.Second) })
	chk.Panics(func() { playback.WithDisplayWindow(2*time.Second, time.Second) })
	chk.Panics(func() { playback.NewDriver(nil) })
	chk.Panics(func() { d.Start(nil) })
}

func TestStateString(t *testing.T) {
	chk := require.New(t)
	chk.Equal("idle", playback.Idle.String())
	chk.Equal("running", playback.Running.String())
	chk.Equal("completed", playback.Completed.String())
	chk.Equal("State(7)", playback.State(7).String())
}
