// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package poolsim

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Result is the complete schedule computed by [Simulate]. It is never modified
// after Simulate returns.
type Result struct {
	// Config is the normalized configuration the schedule was computed for.
	Config Config
	// Tasks holds every task in ID order.
	Tasks []Task
	// Total is the makespan: the latest time at which any worker becomes
	// free, or zero if no task ran.
	Total time.Duration
	// Throughput is the number of tasks completed per second of virtual time
	// over the whole run, or zero if Total is zero.
	Throughput float64
}

// Throughput returns count tasks per second of elapsed virtual time, or zero
// when elapsed is not positive.
func Throughput(count int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(count) / elapsed.Seconds()
}

// WorkerTasks returns the tasks assigned to worker w, ordered by start time.
func (r *Result) WorkerTasks(w int) []Task {
	var tasks []Task
	for _, t := range r.Tasks {
		if t.Worker == w {
			tasks = append(tasks, t)
		}
	}
	// Tasks are assigned in ID order and a worker never takes a new task
	// before its previous one finishes, so ID order is start order.
	return tasks
}

// Fingerprint returns a hash of the configuration and the full schedule. Two
// results have the same fingerprint exactly when they describe the same
// schedule, barring hash collisions.
func (r *Result) Fingerprint() uint64 {
	d := xxhash.New()
	buf := make([]byte, 0, 6*8)
	put := func(vs ...int64) {
		buf = buf[:0]
		for _, v := range vs {
			buf = binary.LittleEndian.AppendUint64(buf, uint64(v))
		}
		_, _ = d.Write(buf)
	}
	put(int64(r.Config.Workers), int64(r.Config.Tasks), int64(r.Config.BaseDuration), int64(r.Config.Sync))
	for i := range r.Tasks {
		t := &r.Tasks[i]
		put(int64(t.ID), int64(t.Worker), int64(t.Start), int64(t.Finish), int64(t.Duration), int64(t.LockWait))
	}
	put(int64(r.Total))
	return d.Sum64()
}

// Format implements fmt.Formatter for pretty-printing a result. The %#v form
// lists every worker's tasks.
func (r *Result) Format(f fmt.State, verb rune) {
	if verb != 'v' && verb != 's' {
		panic("unsupported verb")
	}
	_, _ = fmt.Fprintf(f, "Result{%v total=%v throughput=%.1f/s}", r.Config, r.Total, r.Throughput)
	if f.Flag('#') {
		r.Dump(f, "  ")
	}
}

// Dump writes one line per worker followed by one line per task.
func (r *Result) Dump(fs fmt.State, indent string) {
	for w := range r.Config.Workers {
		tasks := r.WorkerTasks(w)
		var busy time.Duration
		for _, t := range tasks {
			busy += t.Duration
		}
		_, _ = fmt.Fprintf(fs, "\n%sWorker#%d: tasks=%d busy=%v", indent, w, len(tasks), busy)
		for i := range tasks {
			_, _ = fmt.Fprintf(fs, "\n%s  %#v", indent, &tasks[i])
		}
	}
}
