// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package chart renders simulation schedules and sweeps with gonum/plot.
package chart

import (
	"image/color"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

// Size of saved charts.
const (
	Width  = 9 * vg.Inch
	Height = 6 * vg.Inch
)

var gray = color.Gray{128}

// newPlot returns an empty plot styled in muted gray on a transparent
// background, so charts read on both light and dark pages.
func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()

	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	p.Title.TextStyle.Color = gray
	p.X.Color = gray
	p.Y.Color = gray
	p.X.Label.TextStyle.Color = gray
	p.Y.Label.TextStyle.Color = gray
	p.X.Tick.Color = gray
	p.Y.Tick.Color = gray
	p.X.Tick.Label.Color = gray
	p.Y.Tick.Label.Color = gray
	p.Legend.TextStyle.Color = gray

	p.Legend.Top = true
	p.Legend.Padding = 1 * vg.Millimeter
	p.BackgroundColor = color.Transparent
	return p
}

// Save writes p to path, creating its directory if needed. The format follows
// the file extension: svg, png, pdf, eps, jpg, tif or tex.
func Save(p *plot.Plot, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return p.Save(Width, Height, path)
}

// Write renders p to w in the named format, as accepted by [Save].
func Write(w io.Writer, p *plot.Plot, format string) error {
	wt, err := p.WriterTo(Width, Height, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
