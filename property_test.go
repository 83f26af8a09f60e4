// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package poolsim_test

import (
	"slices"
	"testing"
	"time"

	"github.com/petenewcomb/poolsim"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// drawConfig draws a configuration that includes out-of-range values so that
// clamping is exercised along with the normal paths.
func drawConfig(t *rapid.T) poolsim.Config {
	return poolsim.Config{
		Workers:      rapid.IntRange(-2, 20).Draw(t, "Workers"),
		Tasks:        rapid.IntRange(-2, 120).Draw(t, "Tasks"),
		BaseDuration: time.Duration(rapid.Int64Range(-10, 1000).Draw(t, "BaseDurationMillis")) * time.Millisecond,
		Sync:         rapid.SampledFrom(poolsim.SyncModes).Draw(t, "Sync"),
	}
}

func TestSimulateIsDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chk := require.New(t)
		cfg := drawConfig(t)
		a := poolsim.Simulate(cfg)
		b := poolsim.Simulate(cfg)
		chk.Equal(a, b)
		chk.Equal(a.Fingerprint(), b.Fingerprint())
	})
}

func TestSimulateWorkerIntervalsNeverOverlap(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chk := require.New(t)
		r := poolsim.Simulate(drawConfig(t))
		chk.Len(r.Tasks, r.Config.Tasks)
		for w := range r.Config.Workers {
			tasks := r.WorkerTasks(w)
			for i := range tasks {
				chk.GreaterOrEqual(tasks[i].Start, time.Duration(0))
				chk.GreaterOrEqual(tasks[i].Finish, tasks[i].Start)
				chk.Equal(tasks[i].Finish-tasks[i].Start, tasks[i].Duration)
				if i > 0 {
					chk.LessOrEqual(tasks[i-1].Finish, tasks[i].Start, "worker %d tasks %v and %v overlap", w, &tasks[i-1], &tasks[i])
				}
			}
		}
	})
}

func TestSimulateLockHoldsNeverOverlap(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chk := require.New(t)
		cfg := drawConfig(t)
		cfg.Sync = poolsim.SyncLock
		r := poolsim.Simulate(cfg)

		enters := make([]time.Duration, 0, len(r.Tasks))
		for i := range r.Tasks {
			enters = append(enters, r.Tasks[i].LockEnteredAt())
		}
		slices.Sort(enters)
		for i := 1; i < len(enters); i++ {
			chk.LessOrEqual(enters[i-1]+poolsim.LockCost, enters[i])
		}
	})
}

func TestSimulateMatchesLinearScan(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chk := require.New(t)
		cfg := drawConfig(t)
		r := poolsim.Simulate(cfg)
		cfg = cfg.Normalize()

		// Reference: scan workers in index order for the earliest available.
		availableAt := make([]time.Duration, cfg.Workers)
		var lockAvailableAt time.Duration
		for i := range cfg.Tasks {
			w := 0
			for candidate := 1; candidate < cfg.Workers; candidate++ {
				if availableAt[candidate] < availableAt[w] {
					w = candidate
				}
			}
			start := availableAt[w]
			var finish time.Duration
			switch cfg.Sync {
			case poolsim.SyncLock:
				enter := max(start, lockAvailableAt)
				lockAvailableAt = enter + poolsim.LockCost
				finish = enter + poolsim.LockCost + cfg.BaseDuration
			case poolsim.SyncAtomic:
				finish = start + cfg.BaseDuration + poolsim.AtomicCost
			default:
				finish = start + cfg.BaseDuration
			}
			availableAt[w] = finish

			chk.Equal(w, r.Tasks[i].Worker, "task %d", i)
			chk.Equal(start, r.Tasks[i].Start, "task %d", i)
			chk.Equal(finish, r.Tasks[i].Finish, "task %d", i)
		}
		var total time.Duration
		if len(availableAt) > 0 {
			total = slices.Max(availableAt)
		}
		chk.Equal(total, r.Total)
	})
}

func TestSimulateThroughputMatchesMakespan(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chk := require.New(t)
		r := poolsim.Simulate(drawConfig(t))
		if r.Total > 0 {
			chk.InEpsilon(float64(r.Config.Tasks)/(float64(r.Total)/float64(time.Second)), r.Throughput, 1e-9)
		} else {
			chk.Zero(r.Throughput)
		}
	})
}

func TestSimulateAtomicDoesNotSerialize(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chk := require.New(t)
		workers := rapid.IntRange(2, 16).Draw(t, "Workers")
		base := time.Duration(rapid.IntRange(1, 1000).Draw(t, "BaseDurationMillis")) * time.Millisecond
		r := poolsim.Simulate(poolsim.Config{Workers: workers, Tasks: workers, BaseDuration: base, Sync: poolsim.SyncAtomic})

		// With one task per worker every task starts immediately, so the
		// [start, start+base) windows of any two tasks overlap.
		for i := 1; i < len(r.Tasks); i++ {
			chk.NotEqual(r.Tasks[0].Worker, r.Tasks[i].Worker)
			chk.Less(r.Tasks[i].Start, r.Tasks[0].Start+base)
		}
		chk.Equal(base+poolsim.AtomicCost, r.Total)
	})
}

func TestSimulateLockNeverFasterThanNone(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chk := require.New(t)
		cfg := drawConfig(t)
		cfg.Sync = poolsim.SyncNone
		none := poolsim.Simulate(cfg)
		cfg.Sync = poolsim.SyncAtomic
		atomic := poolsim.Simulate(cfg)
		cfg.Sync = poolsim.SyncLock
		lock := poolsim.Simulate(cfg)
		chk.LessOrEqual(none.Total, atomic.Total)
		chk.LessOrEqual(atomic.Total, lock.Total)
	})
}
