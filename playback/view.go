// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package playback

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/petenewcomb/poolsim"
)

// Default bounds of the wall-clock window a run is replayed over.
const (
	DefaultMinWindow = 1500 * time.Millisecond
	DefaultMaxWindow = 7 * time.Second
)

// DisplayWindow returns the wall-clock duration over which a run with makespan
// total is replayed: total clamped to [lo, hi].
func DisplayWindow(total, lo, hi time.Duration) time.Duration {
	return min(max(total, lo), hi)
}

// TimeScale returns the virtual time that passes per unit of wall-clock time
// when total is replayed over window. It is 1 when either is not positive.
func TimeScale(total, window time.Duration) float64 {
	if total <= 0 || window <= 0 {
		return 1
	}
	return float64(total) / float64(window)
}

// TaskView is the presentation state of one task at some virtual time.
type TaskView struct {
	poolsim.Task
	Completed bool
	Active    bool
	Progress  float64
}

// Metrics summarizes a view.
type Metrics struct {
	// Completed is the number of tasks finished so far.
	Completed int
	// Elapsed is the virtual time of the view.
	Elapsed time.Duration
	// Throughput is Completed per second of Elapsed.
	Throughput float64
}

func (m Metrics) String() string {
	return fmt.Sprintf("completed=%d elapsed=%.2fs throughput=%.1f/s", m.Completed, m.Elapsed.Seconds(), m.Throughput)
}

// View is a snapshot of a run at a single virtual time. The Tasks slice is
// shared with observers and must be treated as read-only.
type View struct {
	// RunID identifies the run the view belongs to, or is zero for the empty
	// view of an idle driver.
	RunID   uuid.UUID
	Elapsed time.Duration
	Tasks   []TaskView
	Metrics Metrics
}

// Clone returns a copy of v that does not share its Tasks slice.
func (v View) Clone() View {
	v.Tasks = slices.Clone(v.Tasks)
	return v
}

// ComputeView returns the view of result at virtual time elapsed. It depends on
// nothing else, so replaying the same elapsed time always yields the same view.
func ComputeView(result *poolsim.Result, elapsed time.Duration) View {
	v := View{
		Elapsed: elapsed,
		Tasks:   make([]TaskView, len(result.Tasks)),
	}
	for i := range result.Tasks {
		t := &result.Tasks[i]
		tv := TaskView{
			Task:      *t,
			Completed: t.CompletedAt(elapsed),
			Active:    t.ActiveAt(elapsed),
			Progress:  t.ProgressAt(elapsed),
		}
		if tv.Completed {
			v.Metrics.Completed++
		}
		v.Tasks[i] = tv
	}
	v.Metrics.Elapsed = elapsed
	v.Metrics.Throughput = poolsim.Throughput(v.Metrics.Completed, elapsed)
	return v
}

// FinalView returns the view of a finished run: every task complete and the
// simulator's exact throughput.
func FinalView(result *poolsim.Result) View {
	// Every task finishes by Total, so only the throughput needs snapping.
	v := ComputeView(result, result.Total)
	v.Metrics.Throughput = result.Throughput
	return v
}
