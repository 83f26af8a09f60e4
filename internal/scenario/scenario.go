// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package scenario loads named simulation configurations from YAML files:
//
//	scenarios:
//	  - name: contended
//	    workers: 4
//	    tasks: 20
//	    duration: medium
//	    sync: lock
//
// Fields left out of a scenario take the playground defaults.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/petenewcomb/poolsim"
	"gopkg.in/yaml.v3"
)

type constError string

func (e constError) Error() string {
	return string(e)
}

const ErrOutOfBounds = constError("value out of bounds")
const ErrUnknownScenario = constError("unknown scenario")
const ErrDuplicateScenario = constError("duplicate scenario name")
const ErrEmpty = constError("no scenarios")

// Bounds of the playground controls.
const (
	MinWorkers = 1
	MaxWorkers = 16
	MinTasks   = 5
	MaxTasks   = 100
	TaskStep   = 5
)

// File is the top-level document of a scenario file.
type File struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Scenario is one named configuration.
type Scenario struct {
	Name     string                `yaml:"name"`
	Workers  int                   `yaml:"workers"`
	Tasks    int                   `yaml:"tasks"`
	Duration poolsim.DurationClass `yaml:"duration"`
	Sync     poolsim.SyncMode      `yaml:"sync"`
}

// Default returns the unnamed scenario matching the playground's initial
// settings.
func Default() Scenario {
	return Scenario{
		Workers:  poolsim.DefaultConfig.Workers,
		Tasks:    poolsim.DefaultConfig.Tasks,
		Duration: poolsim.DurationMedium,
		Sync:     poolsim.DefaultConfig.Sync,
	}
}

var scenarioKeys = map[string]bool{
	"name":     true,
	"workers":  true,
	"tasks":    true,
	"duration": true,
	"sync":     true,
}

// UnmarshalYAML decodes a scenario on top of [Default]. Unknown keys are
// errors.
func (s *Scenario) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(value.Content); i += 2 {
			key := value.Content[i]
			if !scenarioKeys[key.Value] {
				return fmt.Errorf("line %d: unknown scenario field %q", key.Line, key.Value)
			}
		}
	}
	type plain Scenario
	p := plain(Default())
	if err := value.Decode(&p); err != nil {
		return err
	}
	*s = Scenario(p)
	return nil
}

// Validate reports every way in which s lies outside the playground controls.
// Range errors wrap [ErrOutOfBounds].
func (s Scenario) Validate() error {
	var errs []error
	if s.Workers < MinWorkers || s.Workers > MaxWorkers {
		errs = append(errs, fmt.Errorf("workers %d not in [%d, %d]: %w", s.Workers, MinWorkers, MaxWorkers, ErrOutOfBounds))
	}
	if s.Tasks < MinTasks || s.Tasks > MaxTasks {
		errs = append(errs, fmt.Errorf("tasks %d not in [%d, %d]: %w", s.Tasks, MinTasks, MaxTasks, ErrOutOfBounds))
	} else if s.Tasks%TaskStep != 0 {
		errs = append(errs, fmt.Errorf("tasks %d not a multiple of %d: %w", s.Tasks, TaskStep, ErrOutOfBounds))
	}
	if s.Duration.BaseDuration() == 0 {
		errs = append(errs, fmt.Errorf("%w: %v", poolsim.ErrUnknownDurationClass, s.Duration))
	}
	if _, err := s.Sync.MarshalText(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		if s.Name != "" {
			return fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		return err
	}
	return nil
}

// Config returns the simulator configuration for s.
func (s Scenario) Config() poolsim.Config {
	return poolsim.Config{
		Workers:      s.Workers,
		Tasks:        s.Tasks,
		BaseDuration: s.Duration.BaseDuration(),
		Sync:         s.Sync,
	}
}

// Validate checks every scenario and that no two share a name.
func (f *File) Validate() error {
	if len(f.Scenarios) == 0 {
		return ErrEmpty
	}
	var errs []error
	seen := make(map[string]bool, len(f.Scenarios))
	for i, s := range f.Scenarios {
		if s.Name == "" {
			s.Name = fmt.Sprintf("#%d", i)
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateScenario, s.Name))
		}
		seen[s.Name] = true
		if err := s.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Lookup returns the scenario called name. An empty name selects the first
// scenario.
func (f *File) Lookup(name string) (Scenario, error) {
	if name == "" && len(f.Scenarios) > 0 {
		return f.Scenarios[0], nil
	}
	for _, s := range f.Scenarios {
		if s.Name == name {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
}

// Load decodes and validates a scenario file. Unknown keys are errors.
func Load(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("decoding scenarios: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFile is [Load] applied to the named file.
func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	f, err := Load(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Write encodes f as YAML.
func Write(w io.Writer, f *File) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}
