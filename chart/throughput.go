// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package chart

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/petenewcomb/poolsim/internal/sweep"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Throughput plots the throughput of each point against its worker count, one
// line per combination of workload and synchronization mode.
func Throughput(points []sweep.Point) (*plot.Plot, error) {
	p := newPlot("Pool throughput", "Workers", "Tasks / second")
	p.Legend.Left = true

	var keys []string
	series := make(map[string]plotter.XYs)
	var workers []int
	for _, pt := range points {
		key := fmt.Sprintf("%v, %d %v tasks", pt.Config.Sync, pt.Config.Tasks, pt.Duration)
		if _, ok := series[key]; !ok {
			keys = append(keys, key)
		}
		series[key] = append(series[key], plotter.XY{X: float64(pt.Config.Workers), Y: pt.Throughput})
		if !slices.Contains(workers, pt.Config.Workers) {
			workers = append(workers, pt.Config.Workers)
		}
	}
	if len(keys) == 0 {
		return p, nil
	}

	palette, err := brewer.GetPalette(brewer.TypeQualitative, "Dark2", min(max(len(keys), 3), 8))
	if err != nil {
		return nil, err
	}
	colors := palette.Colors()

	for i, key := range keys {
		xys := series[key]
		slices.SortFunc(xys, func(a, b plotter.XY) int {
			switch {
			case a.X < b.X:
				return -1
			case a.X > b.X:
				return 1
			}
			return 0
		})
		line, dots, err := plotter.NewLinePoints(xys)
		if err != nil {
			return nil, err
		}
		line.Color = colors[i%len(colors)]
		line.Width = vg.Points(1.5)
		dots.Color = line.Color
		p.Add(line, dots)
		p.Legend.Add(key, line, dots)
	}

	slices.Sort(workers)
	ticks := make([]plot.Tick, len(workers))
	for i, w := range workers {
		ticks[i] = plot.Tick{Value: float64(w), Label: strconv.Itoa(w)}
	}
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.ConstantTicks(ticks)
	if p.X.Min == p.X.Max {
		p.X.Min /= 2
		p.X.Max *= 2
	}
	p.Y.Min = 0
	return p, nil
}
