// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package poolsim

import (
	"fmt"
	"strings"
	"time"
)

// LockCost is the virtual time a task spends holding the shared lock in
// [SyncLock] mode. Only one task may hold the lock at a time.
const LockCost = 20 * time.Millisecond

// AtomicCost is the fixed virtual time a task spends on its atomic increment in
// [SyncAtomic] mode. Atomic increments never wait for one another.
const AtomicCost = 5 * time.Millisecond

// DefaultConfig matches the initial settings of the playground controls.
var DefaultConfig = Config{
	Workers:      4,
	Tasks:        20,
	BaseDuration: DurationMedium.BaseDuration(),
	Sync:         SyncNone,
}

// Config describes one simulation run: a pool of Workers executing Tasks
// uniform tasks, each taking BaseDuration of virtual time plus whatever the
// chosen synchronization mode adds.
type Config struct {
	Workers      int
	Tasks        int
	BaseDuration time.Duration
	Sync         SyncMode
}

// Normalize returns a copy of c with out-of-range values clamped: at least one
// worker, no negative task count and no negative base duration. [Simulate]
// normalizes its input, so callers need not do so themselves.
func (c Config) Normalize() Config {
	c.Workers = max(1, c.Workers)
	c.Tasks = max(0, c.Tasks)
	c.BaseDuration = max(0, c.BaseDuration)
	return c
}

func (c Config) String() string {
	return fmt.Sprintf("workers=%d tasks=%d base=%v sync=%v", c.Workers, c.Tasks, c.BaseDuration, c.Sync)
}

// SyncMode selects how tasks contend for the single piece of shared data they
// all update.
type SyncMode int

const (
	// SyncNone models tasks that share nothing.
	SyncNone SyncMode = iota
	// SyncLock models a shared counter guarded by a mutex: every task holds
	// the lock for [LockCost], and lock holds are serialized across all
	// workers.
	SyncLock
	// SyncAtomic models a shared counter updated with an atomic increment
	// costing [AtomicCost] per task, without serialization.
	SyncAtomic
)

var syncModeNames = [...]string{
	SyncNone:   "none",
	SyncLock:   "lock",
	SyncAtomic: "atomic",
}

// SyncModes lists every synchronization mode in declaration order.
var SyncModes = []SyncMode{SyncNone, SyncLock, SyncAtomic}

func (m SyncMode) String() string {
	if m < 0 || int(m) >= len(syncModeNames) {
		return fmt.Sprintf("SyncMode(%d)", int(m))
	}
	return syncModeNames[m]
}

// ParseSyncMode returns the mode named s ("none", "lock" or "atomic"). Case is
// ignored.
func ParseSyncMode(s string) (SyncMode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, n := range syncModeNames {
		if n == name {
			return SyncMode(m), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSyncMode, s)
}

func (m SyncMode) MarshalText() ([]byte, error) {
	if m < 0 || int(m) >= len(syncModeNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSyncMode, int(m))
	}
	return []byte(syncModeNames[m]), nil
}

func (m *SyncMode) UnmarshalText(text []byte) error {
	parsed, err := ParseSyncMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// DurationClass is the coarse task length offered by the playground controls.
// Each class maps to a fixed base duration.
type DurationClass int

const (
	DurationShort DurationClass = iota
	DurationMedium
	DurationLong
)

var durationClasses = [...]struct {
	name string
	base time.Duration
}{
	DurationShort:  {"short", 100 * time.Millisecond},
	DurationMedium: {"medium", 400 * time.Millisecond},
	DurationLong:   {"long", 900 * time.Millisecond},
}

// DurationClasses lists every duration class from shortest to longest.
var DurationClasses = []DurationClass{DurationShort, DurationMedium, DurationLong}

// BaseDuration returns the virtual time a task of class d takes before any
// synchronization cost. It returns zero for an unknown class.
func (d DurationClass) BaseDuration() time.Duration {
	if d < 0 || int(d) >= len(durationClasses) {
		return 0
	}
	return durationClasses[d].base
}

func (d DurationClass) String() string {
	if d < 0 || int(d) >= len(durationClasses) {
		return fmt.Sprintf("DurationClass(%d)", int(d))
	}
	return durationClasses[d].name
}

// ParseDurationClass returns the class named s ("short", "medium" or "long").
// Case is ignored.
func ParseDurationClass(s string) (DurationClass, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d, c := range durationClasses {
		if c.name == name {
			return DurationClass(d), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDurationClass, s)
}

func (d DurationClass) MarshalText() ([]byte, error) {
	if d < 0 || int(d) >= len(durationClasses) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDurationClass, int(d))
	}
	return []byte(durationClasses[d].name), nil
}

func (d *DurationClass) UnmarshalText(text []byte) error {
	parsed, err := ParseDurationClass(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
