package dashboard

import (
	"fmt"
	"math"

	"github.com/nadmax/bidboard/internal/board"
)

// Layout of the three stacked charts. The total height grows with the
// number of tasks and is split 60/20/20 between them.
const (
	chartWidth     = 960.0
	labelMargin    = 200.0
	rightMargin    = 20.0
	topMargin      = 10.0
	axisHeight     = 24.0
	baseHeight     = 1000.0
	heightPerRow   = 50.0
	tickCount      = 5
	donutHole      = 0.3
	noteLineHeight = 13.0

	plannedColor   = "#1f4fd1"
	loggedColor    = "#ff8c1a"
	referenceColor = "#2e9e44"

	PlannedLabel = "Planned days"
	LoggedLabel  = "Logged days"
)

type Bar struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	Color  string
	Label  string
	Value  float64
}

type Tick struct {
	Pos   float64
	Label string
}

type Note struct {
	X    float64
	Y    float64
	Text string
}

type TaskRow struct {
	Label   string
	LabelY  float64
	Planned Bar
	Logged  Bar
}

// TaskChart is the grouped horizontal bar chart of planned and logged days
// per task.
type TaskChart struct {
	Width      float64
	Height     float64
	PlotLeft   float64
	PlotTop    float64
	PlotBottom float64
	Rows       []TaskRow
	Ticks      []Tick
}

type Segment struct {
	Label   string
	Color   string
	Value   float64
	Percent float64
	Dash    float64
	Gap     float64
	Offset  float64
}

// DonutChart compares the two totals. Segments are drawn as stroked circles,
// so each one is described by its dash length and offset along the ring.
type DonutChart struct {
	Width       float64
	Height      float64
	CX          float64
	CY          float64
	Radius      float64
	StrokeWidth float64
	Segments    []Segment
	Empty       bool
}

// ComparisonChart is the vertical bar chart of the reference value and the
// two totals, with the reference breakdown written inside its bar.
type ComparisonChart struct {
	Width      float64
	Height     float64
	BaseY      float64
	Bars       []Bar
	Ticks      []Tick
	Annotation []Note
}

type Charts struct {
	Height     float64
	Tasks      TaskChart
	Totals     DonutChart
	Comparison ComparisonChart
}

func ChartHeight(tasks int) float64 {
	return baseHeight + heightPerRow*float64(tasks)
}

func buildCharts(view *board.View) *Charts {
	height := ChartHeight(view.Series.Len())

	return &Charts{
		Height:     height,
		Tasks:      buildTaskChart(view, height*0.6),
		Totals:     buildDonut(view, height*0.2),
		Comparison: buildComparison(view, height*0.2),
	}
}

func buildTaskChart(view *board.View, height float64) TaskChart {
	s := view.Series
	c := TaskChart{
		Width:      chartWidth,
		Height:     round(height),
		PlotLeft:   labelMargin,
		PlotTop:    topMargin,
		PlotBottom: round(height - axisHeight),
		Rows:       make([]TaskRow, 0, s.Len()),
	}

	maxValue := 0.0
	for i := range s.Names {
		maxValue = math.Max(maxValue, math.Max(s.PlannedDays[i], s.LoggedDays[i]))
	}
	axisMax := niceCeil(maxValue)
	plotWidth := chartWidth - labelMargin - rightMargin
	scale := func(v float64) float64 { return round(v / axisMax * plotWidth) }

	c.Ticks = ticks(axisMax, func(v float64) float64 { return round(labelMargin + v/axisMax*plotWidth) })

	if s.Len() == 0 {
		return c
	}

	band := (c.PlotBottom - c.PlotTop) / float64(s.Len())
	barHeight := band * 0.35
	for i, name := range s.Names {
		top := c.PlotTop + band*float64(i)
		c.Rows = append(c.Rows, TaskRow{
			Label:  name,
			LabelY: round(top + band/2),
			Planned: Bar{
				X: labelMargin, Y: round(top + band*0.15), Width: scale(s.PlannedDays[i]), Height: round(barHeight),
				Color: plannedColor, Label: PlannedLabel, Value: s.PlannedDays[i],
			},
			Logged: Bar{
				X: labelMargin, Y: round(top + band*0.5), Width: scale(s.LoggedDays[i]), Height: round(barHeight),
				Color: loggedColor, Label: LoggedLabel, Value: s.LoggedDays[i],
			},
		})
	}

	return c
}

func buildDonut(view *board.View, height float64) DonutChart {
	outer := math.Max(math.Min(height/2-topMargin, 140), 20)
	inner := outer * donutHole

	c := DonutChart{
		Width:       chartWidth,
		Height:      round(height),
		CX:          round(labelMargin + outer),
		CY:          round(height / 2),
		Radius:      round((outer + inner) / 2),
		StrokeWidth: round(outer - inner),
	}

	values := []struct {
		label string
		color string
		value float64
	}{
		{PlannedLabel, plannedColor, view.Series.TotalPlannedDays},
		{LoggedLabel, loggedColor, view.Series.TotalLoggedDays},
	}

	total := 0.0
	for _, v := range values {
		total += v.value
	}
	if total <= 0 {
		c.Empty = true
		return c
	}

	circumference := 2 * math.Pi * c.Radius
	offset := 0.0
	for _, v := range values {
		fraction := v.value / total
		dash := circumference * fraction
		c.Segments = append(c.Segments, Segment{
			Label:   v.label,
			Color:   v.color,
			Value:   v.value,
			Percent: round(fraction * 100),
			Dash:    round(dash),
			Gap:     round(circumference - dash),
			Offset:  round(-offset),
		})
		offset += dash
	}

	return c
}

func buildComparison(view *board.View, height float64) ComparisonChart {
	c := ComparisonChart{
		Width:  chartWidth,
		Height: round(height),
		BaseY:  round(height - axisHeight),
	}

	type entry struct {
		label string
		color string
		value float64
	}
	var entries []entry
	if view.Reference.Enabled() {
		entries = append(entries, entry{view.Reference.Label, referenceColor, view.Reference.Days})
	}
	entries = append(entries,
		entry{PlannedLabel, plannedColor, view.Series.TotalPlannedDays},
		entry{LoggedLabel, loggedColor, view.Series.TotalLoggedDays},
	)

	maxValue := 0.0
	for _, e := range entries {
		maxValue = math.Max(maxValue, e.value)
	}
	axisMax := niceCeil(maxValue)
	plotHeight := c.BaseY - topMargin

	c.Ticks = ticks(axisMax, func(v float64) float64 { return round(c.BaseY - v/axisMax*plotHeight) })

	slot := (chartWidth - labelMargin - rightMargin) / float64(len(entries))
	for i, e := range entries {
		h := round(e.value / axisMax * plotHeight)
		c.Bars = append(c.Bars, Bar{
			X:      round(labelMargin + slot*float64(i) + slot*0.15),
			Y:      round(c.BaseY - h),
			Width:  round(slot * 0.7),
			Height: h,
			Color:  e.color,
			Label:  e.label,
			Value:  e.value,
		})
	}

	if view.Reference.Enabled() {
		ref := c.Bars[0]
		for i, item := range view.Reference.Breakdown {
			c.Annotation = append(c.Annotation, Note{
				X:    round(ref.X + 6),
				Y:    round(ref.Y + noteLineHeight*float64(i+1)),
				Text: fmt.Sprintf("%s: %s", item.Label, trimFloat(item.Days)),
			})
		}
	}

	return c
}

func ticks(axisMax float64, pos func(float64) float64) []Tick {
	out := make([]Tick, 0, tickCount+1)
	for i := 0; i <= tickCount; i++ {
		v := axisMax * float64(i) / tickCount
		out = append(out, Tick{Pos: pos(v), Label: trimFloat(v)})
	}
	return out
}

// niceCeil rounds v up to 1, 2, 2.5 or 5 times a power of ten. Zero and
// negative values map to 1 so scales never divide by zero.
func niceCeil(v float64) float64 {
	if v <= 0 {
		return 1
	}

	magnitude := math.Pow(10, math.Floor(math.Log10(v)))
	for _, step := range []float64{1, 2, 2.5, 5, 10} {
		if candidate := step * magnitude; candidate >= v {
			return candidate
		}
	}
	return 10 * magnitude
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}

func trimFloat(v float64) string {
	return fmt.Sprintf("%g", round(v))
}
