// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package poolsim

import (
	"cmp"
	"time"

	"github.com/addrummond/heap"
)

// Simulate computes the schedule a pool of config.Workers workers would follow
// to execute config.Tasks uniform tasks submitted all at once. The
// configuration is normalized first (see [Config.Normalize]).
//
// Tasks are handed out in submission order, each to the worker that becomes
// free first; ties go to the worker with the lowest index. This greedy
// assignment is not guaranteed to minimize the makespan, but it is fully
// deterministic: Simulate has no hidden state and calling it twice with the
// same configuration yields identical results.
//
// The synchronization mode adds a cost to every task:
//
//   - [SyncNone] adds nothing.
//   - [SyncLock] makes each task hold a single lock, shared by all workers,
//     for [LockCost] before doing its work. A task whose worker is free while
//     another task holds the lock waits for it.
//   - [SyncAtomic] adds [AtomicCost] to each task without any waiting.
func Simulate(config Config) *Result {
	config = config.Normalize()
	result := &Result{
		Config: config,
		Tasks:  make([]Task, 0, config.Tasks),
	}

	var workers heap.Heap[workerSlot, heap.Min]
	for w := range config.Workers {
		heap.PushOrderable(&workers, workerSlot{Index: w})
	}

	var lockAvailableAt time.Duration
	for id := range config.Tasks {
		slot, _ := heap.PopOrderable(&workers)
		start := slot.AvailableAt

		var finish, lockWait time.Duration
		switch config.Sync {
		case SyncLock:
			enter := max(start, lockAvailableAt)
			lockAvailableAt = enter + LockCost
			lockWait = enter - start
			finish = enter + LockCost + config.BaseDuration
		case SyncAtomic:
			finish = start + config.BaseDuration + AtomicCost
		default:
			finish = start + config.BaseDuration
		}

		result.Tasks = append(result.Tasks, Task{
			ID:       id,
			Worker:   slot.Index,
			Start:    start,
			Finish:   finish,
			Duration: finish - start,
			LockWait: lockWait,
		})
		result.Total = max(result.Total, finish)

		slot.AvailableAt = finish
		heap.PushOrderable(&workers, slot)
	}

	result.Throughput = Throughput(config.Tasks, result.Total)
	return result
}

// workerSlot tracks when a worker will next be free.
type workerSlot struct {
	Index       int
	AvailableAt time.Duration
}

// Cmp orders slots by availability, then by worker index, so the minimum slot
// is the one a scan in index order for the earliest available worker would
// pick.
func (a *workerSlot) Cmp(b *workerSlot) int {
	if c := cmp.Compare(a.AvailableAt, b.AvailableAt); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}
