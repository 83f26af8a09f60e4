// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package playback replays a precomputed [poolsim.Result] in real time.
//
// A [Driver] maps wall-clock time onto the virtual timeline of a result so that
// any run, however long its makespan, plays back over a display window of a
// few seconds. On every tick of its [Clock] it recomputes a [View] of which
// tasks have completed and how many tasks per second the pool has achieved so
// far, and when the makespan is reached it snaps the view to the simulator's
// exact final figures.
//
// [FrameLoop] drives playback in real time; [ManualClock] drives it one step
// at a time, which makes every frame reproducible.
package playback
