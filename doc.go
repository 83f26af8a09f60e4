// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package poolsim models how a fixed-size pool of worker threads would schedule
// a batch of uniform tasks. It does not run anything concurrently: [Simulate]
// is a pure function that computes, in virtual time, which worker runs each
// task and when, and how much the chosen synchronization discipline slows the
// batch down.
//
// Three disciplines are modeled. With [SyncNone] tasks share nothing. With
// [SyncLock] every task must hold one shared lock for a fixed cost, so lock
// holds are serialized across all workers and contention grows with the pool.
// With [SyncAtomic] every task pays a smaller fixed cost for an atomic
// increment that never blocks other tasks.
//
// The resulting [Result] is immutable. The [github.com/petenewcomb/poolsim/playback]
// package replays it in real time, compressing or stretching virtual time into
// a bounded display window, and the [github.com/petenewcomb/poolsim/chart]
// package draws it.
package poolsim
