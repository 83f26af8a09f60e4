// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package chart

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/petenewcomb/poolsim"
	"github.com/petenewcomb/poolsim/playback"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// SpanState classifies a stretch of a worker's timeline.
type SpanState int

const (
	SpanLockWait SpanState = iota
	SpanCompleted
	SpanActive
	SpanPending
)

var spanStates = [...]struct {
	name  string
	color color.Color
}{
	SpanLockWait:  {"waiting for lock", color.RGBA{R: 0xe4, G: 0x1a, B: 0x1c, A: 0xff}},
	SpanCompleted: {"completed", color.RGBA{R: 0x4d, G: 0xaf, B: 0x4a, A: 0xff}},
	SpanActive:    {"in progress", color.RGBA{R: 0x37, G: 0x7e, B: 0xb8, A: 0xff}},
	SpanPending:   {"pending", color.RGBA{R: 0xbd, G: 0xbd, B: 0xbd, A: 0xff}},
}

func (s SpanState) String() string {
	if s < 0 || int(s) >= len(spanStates) {
		return fmt.Sprintf("SpanState(%d)", int(s))
	}
	return spanStates[s].name
}

// Span is a stretch of one worker's timeline spent in a single state.
type Span struct {
	Task   int
	Worker int
	From   time.Duration
	To     time.Duration
	State  SpanState
}

// Spans splits every task of view into the stretches shown on a Gantt chart:
// the time spent waiting for the lock, followed by the task's work divided at
// the view's elapsed time into done and not yet done. Empty stretches are
// omitted.
func Spans(view *playback.View) []Span {
	var spans []Span
	add := func(tv *playback.TaskView, from, to time.Duration, state SpanState) {
		if to > from {
			spans = append(spans, Span{Task: tv.ID, Worker: tv.Worker, From: from, To: to, State: state})
		}
	}
	for i := range view.Tasks {
		tv := &view.Tasks[i]
		work := tv.LockEnteredAt()
		add(tv, tv.Start, work, SpanLockWait)
		switch {
		case tv.Completed:
			add(tv, work, tv.Finish, SpanCompleted)
		case tv.Active:
			cut := min(max(view.Elapsed, work), tv.Finish)
			add(tv, work, cut, SpanActive)
			add(tv, cut, tv.Finish, SpanPending)
		default:
			add(tv, work, tv.Finish, SpanPending)
		}
	}
	return spans
}

// Gantt charts result as seen at view: one row per worker and one bar per
// task, colored by progress. A nil view shows the finished run.
func Gantt(result *poolsim.Result, view *playback.View) (*plot.Plot, error) {
	if view == nil {
		final := playback.FinalView(result)
		view = &final
	}

	p := newPlot(
		fmt.Sprintf("Pool schedule (%v)", result.Config),
		fmt.Sprintf("Virtual time (ms): %v", view.Metrics),
		"",
	)
	names := make([]string, result.Config.Workers)
	for w := range names {
		names[w] = fmt.Sprintf("worker %d", w)
	}
	p.NominalY(names...)

	var byState [len(spanStates)][]Span
	for _, s := range Spans(view) {
		byState[s.State] = append(byState[s.State], s)
	}
	for state, spans := range byState {
		if len(spans) == 0 {
			continue
		}
		b := newTaskBars(spans, SpanState(state))
		p.Add(b)
		p.Legend.Add(SpanState(state).String(), b)
	}

	total := milliseconds(result.Total)
	if view.Elapsed < result.Total {
		cursor, err := plotter.NewLine(plotter.XYs{
			{X: milliseconds(view.Elapsed), Y: -0.5},
			{X: milliseconds(view.Elapsed), Y: float64(result.Config.Workers) - 0.5},
		})
		if err != nil {
			return nil, err
		}
		cursor.Color = gray
		cursor.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(cursor)
	}

	p.X.Min = 0
	p.X.Max = math.Max(total, 1)
	p.Y.Min = -0.5
	p.Y.Max = float64(result.Config.Workers) - 0.5
	return p, nil
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// taskBars draws horizontal bars for spans on a worker-per-row chart whose X
// axis is in milliseconds.
type taskBars struct {
	Spans []Span

	// Width is the thickness of each bar.
	Width vg.Length

	// Color is the fill color of the bars.
	Color color.Color

	// LineStyle is the style of the outline of the bars.
	draw.LineStyle
}

func newTaskBars(spans []Span, state SpanState) *taskBars {
	b := &taskBars{
		Spans:     spans,
		Width:     vg.Points(16),
		Color:     spanStates[state].color,
		LineStyle: plotter.DefaultLineStyle,
	}
	b.LineStyle.Color = color.White
	b.LineStyle.Width = vg.Points(0.5)
	return b
}

// Plot implements the plot.Plotter interface.
func (b *taskBars) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	for _, s := range b.Spans {
		row := trY(float64(s.Worker))
		if !c.ContainsY(row) {
			continue
		}
		rowMin := row - b.Width/2
		rowMax := rowMin + b.Width
		xMin := trX(milliseconds(s.From))
		xMax := trX(milliseconds(s.To))

		pts := []vg.Point{
			{X: xMin, Y: rowMin},
			{X: xMin, Y: rowMax},
			{X: xMax, Y: rowMax},
			{X: xMax, Y: rowMin},
		}
		c.FillPolygon(b.Color, c.ClipPolygonX(pts))

		pts = append(pts, pts[0])
		c.StrokeLines(b.LineStyle, c.ClipLinesX(pts)...)
	}
}

// DataRange implements the plot.DataRanger interface.
func (b *taskBars) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin, ymin = math.Inf(1), math.Inf(1)
	xmax, ymax = math.Inf(-1), math.Inf(-1)
	for _, s := range b.Spans {
		xmin = math.Min(xmin, milliseconds(s.From))
		xmax = math.Max(xmax, milliseconds(s.To))
		ymin = math.Min(ymin, float64(s.Worker))
		ymax = math.Max(ymax, float64(s.Worker))
	}
	return xmin, xmax, ymin, ymax
}

// Thumbnail fulfills the plot.Thumbnailer interface.
func (b *taskBars) Thumbnail(c *draw.Canvas) {
	pts := []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Min.Y},
	}
	c.FillPolygon(b.Color, c.ClipPolygonY(pts))
}
