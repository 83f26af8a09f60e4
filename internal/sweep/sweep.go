// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package sweep simulates every combination of a grid of configurations and
// exchanges the results in the Go benchmark format, so that sweeps can be
// compared with benchstat.
package sweep

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/petenewcomb/poolsim"
	"golang.org/x/perf/benchfmt"
	"golang.org/x/perf/benchproc"
)

type constError string

func (e constError) Error() string {
	return string(e)
}

const ErrMalformed = constError("malformed sweep result")

// Units of the values recorded for each point.
const (
	UnitMakespan   = "makespan-ms"
	UnitThroughput = "tasks/s"
)

const benchmarkName = "Simulate"

// Grid lists the values to combine. Every field must be non-empty for the grid
// to produce any points.
type Grid struct {
	Workers   []int
	Tasks     []int
	Durations []poolsim.DurationClass
	Modes     []poolsim.SyncMode
}

// DefaultGrid compares every synchronization mode across pool sizes for the
// playground's default workload.
func DefaultGrid() Grid {
	return Grid{
		Workers:   []int{1, 2, 4, 8, 16},
		Tasks:     []int{poolsim.DefaultConfig.Tasks},
		Durations: []poolsim.DurationClass{poolsim.DurationMedium},
		Modes:     poolsim.SyncModes,
	}
}

// Len returns the number of points in the grid.
func (g Grid) Len() int {
	return len(g.Workers) * len(g.Tasks) * len(g.Durations) * len(g.Modes)
}

// Point is the outcome of simulating one configuration of a grid.
type Point struct {
	Duration   poolsim.DurationClass
	Config     poolsim.Config
	Total      time.Duration
	Throughput float64
}

// Name returns the benchmark name of p, without the "Benchmark" prefix.
func (p Point) Name() string {
	return fmt.Sprintf("%s/workers=%d/tasks=%d/duration=%v/sync=%v",
		benchmarkName, p.Config.Workers, p.Config.Tasks, p.Duration, p.Config.Sync)
}

// Run simulates every point of g. Points are ordered by duration class, then
// task count, then mode, then worker count.
func Run(g Grid) []Point {
	points := make([]Point, 0, g.Len())
	for _, d := range g.Durations {
		for _, tasks := range g.Tasks {
			for _, mode := range g.Modes {
				for _, workers := range g.Workers {
					r := poolsim.Simulate(poolsim.Config{
						Workers:      workers,
						Tasks:        tasks,
						BaseDuration: d.BaseDuration(),
						Sync:         mode,
					})
					points = append(points, Point{
						Duration:   d,
						Config:     r.Config,
						Total:      r.Total,
						Throughput: r.Throughput,
					})
				}
			}
		}
	}
	return points
}

// Write emits one benchmark result per point.
func Write(w io.Writer, points []Point) error {
	bw := benchfmt.NewWriter(w)
	for _, p := range points {
		res := &benchfmt.Result{
			Config: []benchfmt.Config{
				{Key: "pkg", Value: []byte("github.com/petenewcomb/poolsim"), File: true},
			},
			Name:  benchfmt.Name(p.Name()),
			Iters: 1,
			Values: []benchfmt.Value{
				{Value: float64(p.Total) / float64(time.Millisecond), Unit: UnitMakespan},
				{Value: p.Throughput, Unit: UnitThroughput},
			},
		}
		if err := bw.Write(res); err != nil {
			return err
		}
	}
	return nil
}

// Read parses the results of a sweep written by [Write]. Results of other
// benchmarks are skipped. name labels syntax errors.
func Read(r io.Reader, name string) ([]Point, error) {
	var pp benchproc.ProjectionParser
	keyP, err := pp.Parse("/workers,/tasks,/duration,/sync", nil)
	if err != nil {
		return nil, err
	}
	fields := keyP.Fields()

	var points []Point
	var errs []error
	br := benchfmt.NewReader(r, name)
	for br.Scan() {
		var res *benchfmt.Result
		switch rec := br.Result(); rec := rec.(type) {
		case *benchfmt.Result:
			res = rec
		case *benchfmt.SyntaxError:
			errs = append(errs, rec)
			continue
		default:
			continue
		}
		if string(res.Name.Base()) != benchmarkName {
			continue
		}

		key := keyP.Project(res)
		p, err := parsePoint(res, func(i int) string {
			return key.Get(fields[i])
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Name, err))
			continue
		}
		points = append(points, p)
	}
	if err := br.Err(); err != nil {
		errs = append(errs, err)
	}
	return points, errors.Join(errs...)
}

func parsePoint(res *benchfmt.Result, field func(i int) string) (Point, error) {
	var p Point
	var err error
	if p.Config.Workers, err = strconv.Atoi(field(0)); err != nil {
		return p, fmt.Errorf("%w: workers: %w", ErrMalformed, err)
	}
	if p.Config.Tasks, err = strconv.Atoi(field(1)); err != nil {
		return p, fmt.Errorf("%w: tasks: %w", ErrMalformed, err)
	}
	if p.Duration, err = poolsim.ParseDurationClass(field(2)); err != nil {
		return p, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if p.Config.Sync, err = poolsim.ParseSyncMode(field(3)); err != nil {
		return p, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	p.Config.BaseDuration = p.Duration.BaseDuration()

	makespan, ok := res.Value(UnitMakespan)
	if !ok {
		return p, fmt.Errorf("%w: no %s value", ErrMalformed, UnitMakespan)
	}
	p.Total = time.Duration(math.Round(makespan * float64(time.Millisecond)))
	if p.Throughput, ok = res.Value(UnitThroughput); !ok {
		return p, fmt.Errorf("%w: no %s value", ErrMalformed, UnitThroughput)
	}
	return p, nil
}
