// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package playback

import (
	"context"
	"sync"
	"time"

	"github.com/petenewcomb/poolsim/internal/timerp"
)

// DefaultFrameInterval paces a [FrameLoop] at 60 frames per second.
const DefaultFrameInterval = time.Second / 60

// FrameLoop is a real-time [Clock]. Its frames are produced by [FrameLoop.Run],
// which dispatches every scheduled callback on its own goroutine, one frame
// per interval, much like a display refresh callback. ScheduleTick and Cancel
// may be called from any goroutine.
type FrameLoop struct {
	interval time.Duration

	mu    sync.Mutex
	ticks tickQueue
}

var _ Clock = (*FrameLoop)(nil)

// NewFrameLoop returns a loop that produces a frame every interval. It panics
// if interval is not positive.
func NewFrameLoop(interval time.Duration) *FrameLoop {
	if interval <= 0 {
		panic("frame interval must be positive")
	}
	return &FrameLoop{interval: interval}
}

func (l *FrameLoop) Now() time.Time {
	return time.Now()
}

func (l *FrameLoop) ScheduleTick(fn func()) TickHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticks.push(fn)
}

func (l *FrameLoop) Cancel(h TickHandle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ticks.cancel(h)
}

// Run produces frames until ctx is done, then returns ctx.Err(). At each frame
// it runs the callbacks that were pending when the frame began; callbacks they
// schedule wait for the next frame. Run must not be called concurrently with
// itself.
func (l *FrameLoop) Run(ctx context.Context) error {
	for {
		timer := timerp.Get(l.interval)
		select {
		case <-ctx.Done():
			timerp.Put(timer)
			return ctx.Err()
		case <-timer.C:
		}
		timerp.Put(timer)

		l.mu.Lock()
		fns := l.ticks.take()
		l.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	}
}
