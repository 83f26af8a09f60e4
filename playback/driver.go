// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/petenewcomb/poolsim"
	"go.uber.org/zap"
)

// State is the lifecycle state of a [Driver].
type State int

const (
	Idle State = iota
	Running
	Completed
)

var stateNames = [...]string{
	Idle:      "idle",
	Running:   "running",
	Completed: "completed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Run is one replay of a simulation result.
type Run struct {
	// ID distinguishes this run from every other run of any driver.
	ID uuid.UUID
	// Result is the schedule being replayed.
	Result *poolsim.Result
	// StartedAt is the clock reading when the run started.
	StartedAt time.Time
	// Window is the wall-clock duration over which the run is replayed.
	Window time.Duration
	// TimeScale is the virtual time that passes per unit of wall-clock time.
	TimeScale float64
}

// VirtualElapsed maps wall-clock time since StartedAt to virtual time within
// the run, clamped to [0, Result.Total].
func (r *Run) VirtualElapsed(wall time.Duration) time.Duration {
	if wall >= r.Window {
		return r.Result.Total
	}
	if wall <= 0 {
		return 0
	}
	return min(time.Duration(float64(wall)*r.TimeScale), r.Result.Total)
}

// Option configures a [Driver].
type Option func(*Driver)

// WithObserver sets the observer notified of run lifecycle events. Use
// [MultiObserver] to notify more than one.
func WithObserver(o Observer) Option {
	return func(d *Driver) {
		d.observer = o
	}
}

// WithLogger sets the logger for run lifecycle messages.
func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) {
		d.logger = l
	}
}

// WithDisplayWindow sets the bounds of the wall-clock window over which runs
// are replayed. It panics unless 0 < lo <= hi.
func WithDisplayWindow(lo, hi time.Duration) Option {
	if lo <= 0 || hi < lo {
		panic("invalid display window bounds")
	}
	return func(d *Driver) {
		d.minWindow = lo
		d.maxWindow = hi
	}
}

// Driver replays simulation results in real time. It advances a [View] on
// every clock tick until the run's makespan has been shown, compressing or
// stretching virtual time so that each run lasts between the display window
// bounds.
//
// Start and Reset may be called from any goroutine. Ticks run on the clock's
// frame goroutine.
type Driver struct {
	clock     Clock
	observer  Observer
	logger    *zap.Logger
	minWindow time.Duration
	maxWindow time.Duration

	mu        sync.Mutex
	state     State
	run       *Run
	view      View
	pending   TickHandle
	events    []event
	notifying bool
}

type eventKind int

const (
	eventStarted eventKind = iota
	eventFrame
	eventCompleted
	eventCanceled
)

type event struct {
	kind eventKind
	run  *Run
	view View
}

// NewDriver returns an idle driver paced by clock.
func NewDriver(clock Clock, opts ...Option) *Driver {
	if clock == nil {
		panic("clock must be non-nil")
	}
	d := &Driver{
		clock:     clock,
		observer:  ObserverFuncs{},
		logger:    zap.NewNop(),
		minWindow: DefaultMinWindow,
		maxWindow: DefaultMaxWindow,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the driver's lifecycle state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Run returns the current or most recently completed run, or nil if the
// driver is idle.
func (d *Driver) Run() *Run {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.run
}

// View returns a copy of the latest view.
func (d *Driver) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view.Clone()
}

// Start begins replaying result and returns the new run. A run that is still
// playing is canceled first, exactly as if Reset had been called.
func (d *Driver) Start(result *poolsim.Result) *Run {
	if result == nil {
		panic("result must be non-nil")
	}
	d.mu.Lock()
	canceled := d.retire()
	window := DisplayWindow(result.Total, d.minWindow, d.maxWindow)
	run := &Run{
		ID:        uuid.New(),
		Result:    result,
		StartedAt: d.clock.Now(),
		Window:    window,
		TimeScale: TimeScale(result.Total, window),
	}
	d.state = Running
	d.run = run
	d.view = ComputeView(result, 0)
	d.view.RunID = run.ID
	d.schedule(run)
	if canceled != nil {
		d.events = append(d.events, event{kind: eventCanceled, run: canceled})
	}
	d.events = append(d.events, event{kind: eventStarted, run: run})
	d.unlockAndNotify()
	return run
}

// Reset cancels any pending tick, clears the view and returns the driver to
// [Idle]. It may be called at any time, and calling it again has no further
// effect.
func (d *Driver) Reset() {
	d.mu.Lock()
	canceled := d.retire()
	d.state = Idle
	d.run = nil
	d.view = View{}
	if canceled != nil {
		d.events = append(d.events, event{kind: eventCanceled, run: canceled})
	}
	d.unlockAndNotify()
}

// retire cancels the pending tick, if any, and returns the run it belonged to
// if that run was still playing. d.mu must be held.
func (d *Driver) retire() *Run {
	if d.pending != 0 {
		d.clock.Cancel(d.pending)
		d.pending = 0
	}
	if d.state == Running {
		return d.run
	}
	return nil
}

// schedule arranges the next tick of run. d.mu must be held.
func (d *Driver) schedule(run *Run) {
	id := run.ID
	d.pending = d.clock.ScheduleTick(func() {
		d.tick(id)
	})
}

func (d *Driver) tick(id uuid.UUID) {
	d.mu.Lock()
	if d.state != Running || d.run.ID != id {
		// Left over from a run that has since been reset or replaced.
		d.mu.Unlock()
		return
	}
	run := d.run
	d.pending = 0

	// Elapsed never decreases, even if the clock does.
	elapsed := max(run.VirtualElapsed(d.clock.Now().Sub(run.StartedAt)), d.view.Elapsed)
	done := elapsed >= run.Result.Total
	if done {
		d.state = Completed
		d.view = FinalView(run.Result)
	} else {
		d.view = ComputeView(run.Result, elapsed)
		d.schedule(run)
	}
	d.view.RunID = run.ID
	kind := eventFrame
	if done {
		kind = eventCompleted
	}
	d.events = append(d.events, event{kind: kind, run: run, view: d.view})
	d.unlockAndNotify()
}

// unlockAndNotify releases d.mu and delivers queued events in the order they
// were queued. Only one goroutine delivers at a time; events queued while
// another goroutine is delivering, including by observers themselves, are left
// for that goroutine. d.mu must be held.
func (d *Driver) unlockAndNotify() {
	if d.notifying {
		d.mu.Unlock()
		return
	}
	d.notifying = true
	for len(d.events) > 0 {
		events := d.events
		d.events = nil
		d.mu.Unlock()
		for _, ev := range events {
			d.deliver(ev)
		}
		d.mu.Lock()
	}
	d.notifying = false
	d.mu.Unlock()
}

func (d *Driver) deliver(ev event) {
	switch ev.kind {
	case eventStarted:
		d.logger.Debug("playback started",
			zap.Stringer("run", ev.run.ID),
			zap.Stringer("config", ev.run.Result.Config),
			zap.Duration("total", ev.run.Result.Total),
			zap.Duration("window", ev.run.Window),
			zap.Float64("timeScale", ev.run.TimeScale),
		)
		d.observer.RunStarted(ev.run)
	case eventFrame:
		d.observer.Frame(ev.run, ev.view)
	case eventCompleted:
		d.logger.Debug("playback completed",
			zap.Stringer("run", ev.run.ID),
			zap.Int("completed", ev.view.Metrics.Completed),
			zap.Float64("throughput", ev.view.Metrics.Throughput),
		)
		d.observer.RunCompleted(ev.run, ev.view)
	case eventCanceled:
		d.logger.Debug("playback canceled", zap.Stringer("run", ev.run.ID))
		d.observer.RunCanceled(ev.run)
	}
}
