// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package playback_test

import (
	"testing"
	"time"

	"github.com/petenewcomb/poolsim"
	"github.com/petenewcomb/poolsim/playback"
	"pgregory.net/rapid"
)

func drawResult(t *rapid.T) *poolsim.Result {
	return poolsim.Simulate(poolsim.Config{
		Workers:      rapid.IntRange(1, 16).Draw(t, "workers"),
		Tasks:        rapid.IntRange(0, 100).Draw(t, "tasks"),
		BaseDuration: rapid.SampledFrom(poolsim.DurationClasses).Draw(t, "duration").BaseDuration(),
		Sync:         rapid.SampledFrom(poolsim.SyncModes).Draw(t, "sync"),
	})
}

// Once a task is shown complete it stays complete, elapsed time never goes
// backwards, and playback always ends within the display window.
func TestPlaybackIsMonotonicAndTerminates(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		result := drawResult(t)
		clock := playback.NewManualClock(epoch)
		d := playback.NewDriver(clock)
		run := d.Start(result)

		prev := d.View()
		var wall time.Duration
		for d.State() == playback.Running {
			step := time.Duration(rapid.Int64Range(0, int64(500*ms)).Draw(t, "step"))
			wall += step
			clock.AdvanceAndStep(step)

			v := d.View()
			if v.Elapsed < prev.Elapsed {
				t.Fatalf("elapsed went from %v to %v", prev.Elapsed, v.Elapsed)
			}
			if v.Metrics.Completed < prev.Metrics.Completed {
				t.Fatalf("completed went from %d to %d", prev.Metrics.Completed, v.Metrics.Completed)
			}
			for i := range v.Tasks {
				if prev.Tasks[i].Completed && !v.Tasks[i].Completed {
					t.Fatalf("task %d reverted to incomplete", i)
				}
			}
			if wall >= run.Window && d.State() != playback.Completed {
				t.Fatalf("still %v after %v of a %v window", d.State(), wall, run.Window)
			}
			prev = v
		}

		final := d.View()
		if final.Metrics.Completed != len(result.Tasks) {
			t.Fatalf("completed %d of %d tasks", final.Metrics.Completed, len(result.Tasks))
		}
		if final.Metrics.Throughput != result.Throughput {
			t.Fatalf("final throughput %v, want %v", final.Metrics.Throughput, result.Throughput)
		}
	})
}

// A view computed at any time agrees with the tasks' own predicates.
func TestComputeViewMatchesTaskPredicates(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		result := drawResult(t)
		elapsed := time.Duration(rapid.Int64Range(0, int64(result.Total)).Draw(t, "elapsed"))
		v := playback.ComputeView(result, elapsed)
		completed := 0
		for i := range result.Tasks {
			task := &result.Tasks[i]
			tv := v.Tasks[i]
			if tv.Completed != task.CompletedAt(elapsed) || tv.Active != task.ActiveAt(elapsed) {
				t.Fatalf("task %d: view %+v disagrees at %v", i, tv, elapsed)
			}
			if tv.Completed && tv.Active {
				t.Fatalf("task %d both completed and active", i)
			}
			if tv.Progress < 0 || tv.Progress > 1 {
				t.Fatalf("task %d progress %v out of range", i, tv.Progress)
			}
			if tv.Completed {
				completed++
			}
		}
		if completed != v.Metrics.Completed {
			t.Fatalf("metrics count %d, tasks say %d", v.Metrics.Completed, completed)
		}
	})
}
