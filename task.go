// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package poolsim

import (
	"fmt"
	"time"
)

// Task is one simulated unit of work and the slot the simulator assigned it.
// All times are virtual offsets from the start of the run.
type Task struct {
	// ID is the task's 0-based position in submission order.
	ID int
	// Worker is the index of the worker that executes the task.
	Worker int
	// Start is when the worker picked the task up.
	Start time.Duration
	// Finish is when the worker became free again.
	Finish time.Duration
	// Duration is Finish - Start, including any synchronization cost.
	Duration time.Duration
	// LockWait is how long the task waited for the shared lock before
	// entering its critical section. It is always zero outside [SyncLock].
	LockWait time.Duration
}

// LockEnteredAt returns the virtual time at which the task entered the shared
// critical section. Outside [SyncLock] this is the same as Start.
func (t *Task) LockEnteredAt() time.Duration {
	return t.Start + t.LockWait
}

// ActiveAt reports whether the task is in progress at virtual time elapsed,
// that is whether elapsed lies in [Start, Finish).
func (t *Task) ActiveAt(elapsed time.Duration) bool {
	return elapsed >= t.Start && elapsed < t.Finish
}

// CompletedAt reports whether the task has finished by virtual time elapsed.
func (t *Task) CompletedAt(elapsed time.Duration) bool {
	return elapsed >= t.Finish
}

// ProgressAt returns the fraction of the task done at virtual time elapsed, in
// the range [0, 1].
func (t *Task) ProgressAt(elapsed time.Duration) float64 {
	switch {
	case t.CompletedAt(elapsed):
		return 1
	case !t.ActiveAt(elapsed) || t.Duration <= 0:
		return 0
	default:
		return float64(elapsed-t.Start) / float64(t.Duration)
	}
}

// Format implements fmt.Formatter for pretty-printing a task.
func (t *Task) Format(f fmt.State, verb rune) {
	if verb != 'v' && verb != 's' {
		panic("unsupported verb")
	}
	if f.Flag('#') {
		_, _ = fmt.Fprintf(f, "Task#%d: worker=%d start=%v finish=%v", t.ID, t.Worker, t.Start, t.Finish)
		if t.LockWait > 0 {
			_, _ = fmt.Fprintf(f, " lockWait=%v", t.LockWait)
		}
	} else {
		_, _ = fmt.Fprintf(f, "Task#%d", t.ID)
	}
}
