// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package playback

import (
	"time"

	"github.com/gammazero/deque"
)

// A Clock supplies wall-clock time and animation frames to a [Driver].
//
// ScheduleTick arranges for fn to be called once, on the clock's frame
// goroutine, at the next frame boundary. Callbacks scheduled while a frame is
// being processed run at the following frame. Cancel prevents a scheduled
// callback from running if it has not been dispatched yet; cancellation is
// best effort, which is why the driver also checks the identity of the run a
// tick was scheduled for.
type Clock interface {
	Now() time.Time
	ScheduleTick(fn func()) TickHandle
	Cancel(h TickHandle)
}

// TickHandle identifies a scheduled tick. The zero value never identifies a
// tick.
type TickHandle uint64

type scheduledTick struct {
	handle TickHandle
	fn     func()
}

// tickQueue is the FIFO of callbacks waiting for the next frame.
type tickQueue struct {
	pending deque.Deque[scheduledTick]
	last    TickHandle
}

func (q *tickQueue) push(fn func()) TickHandle {
	q.last++
	q.pending.PushBack(scheduledTick{handle: q.last, fn: fn})
	return q.last
}

func (q *tickQueue) cancel(h TickHandle) bool {
	i := q.pending.Index(func(t scheduledTick) bool {
		return t.handle == h
	})
	if i < 0 {
		return false
	}
	q.pending.Remove(i)
	return true
}

// take removes and returns every pending callback in scheduling order.
func (q *tickQueue) take() []func() {
	fns := make([]func(), 0, q.pending.Len())
	for q.pending.Len() > 0 {
		fns = append(fns, q.pending.PopFront().fn)
	}
	return fns
}

func (q *tickQueue) len() int {
	return q.pending.Len()
}

// ManualClock is a [Clock] whose time and frames advance only when told to. It
// makes playback fully deterministic, which is what tests and step-by-step
// tools need. A ManualClock is not safe for concurrent use.
type ManualClock struct {
	now   time.Time
	ticks tickQueue
}

var _ Clock = (*ManualClock)(nil)

// NewManualClock returns a clock that reads start until advanced.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	return c.now
}

func (c *ManualClock) ScheduleTick(fn func()) TickHandle {
	return c.ticks.push(fn)
}

func (c *ManualClock) Cancel(h TickHandle) {
	c.ticks.cancel(h)
}

// Advance moves the clock forward by d without running any frame. It panics if
// d is negative.
func (c *ManualClock) Advance(d time.Duration) {
	if d < 0 {
		panic("clock cannot move backwards")
	}
	c.now = c.now.Add(d)
}

// Step runs one frame: every callback that was pending when Step was called,
// in scheduling order. It returns the number of callbacks run.
func (c *ManualClock) Step() int {
	fns := c.ticks.take()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// AdvanceAndStep advances the clock by d and then runs one frame.
func (c *ManualClock) AdvanceAndStep(d time.Duration) int {
	c.Advance(d)
	return c.Step()
}

// Pending returns the number of callbacks waiting for the next frame.
func (c *ManualClock) Pending() int {
	return c.ticks.len()
}
