package chart

import (
	"io"
	"math"
	"strings"

	"github.com/pkg/errors"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var ErrNoData = errors.New("nothing to draw")

const (
	width  = 1024
	height = 512
)

func colour(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

func pick(colours []string, i int) string {
	if len(colours) == 0 {
		return "#999999"
	}
	return colours[i%len(colours)]
}

func style(hex string) gochart.Style {
	c := colour(hex)
	return gochart.Style{FillColor: c, StrokeColor: c, StrokeWidth: 1}
}

// RenderBar draws the first dataset of d as a PNG bar chart
func RenderBar(w io.Writer, d Data) error {
	if d.Empty() || len(d.Datasets) == 0 {
		return ErrNoData
	}

	ds := d.Datasets[0]
	bars := make([]gochart.Value, 0, len(d.Labels))
	top := 1.0
	for i, label := range d.Labels {
		v := 0.0
		if i < len(ds.Values) {
			v = sanitize(ds.Values[i])
		}
		top = math.Max(top, v)
		bars = append(bars, gochart.Value{Label: label, Value: v, Style: style(pick(ds.Colours, i))})
	}

	bw := barWidth(len(bars))
	bc := gochart.BarChart{
		Title:      d.Title,
		Background: gochart.Style{Padding: gochart.Box{Top: 40}},
		Width:      width,
		Height:     height,
		BarWidth:   bw,
		BarSpacing: bw / 2,
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: top},
		},
		Bars: bars,
	}

	return errors.Wrap(bc.Render(gochart.PNG, w), "could not render bar chart")
}

// RenderStacked draws every dataset of d stacked per label
func RenderStacked(w io.Writer, d Data) error {
	if d.Empty() {
		return ErrNoData
	}

	total := 0.0
	bars := make([]gochart.StackedBar, 0, len(d.Labels))
	for i, label := range d.Labels {
		bar := gochart.StackedBar{Name: label}
		for _, ds := range d.Datasets {
			v := 0.0
			if i < len(ds.Values) {
				v = sanitize(ds.Values[i])
			}
			total += v
			bar.Values = append(bar.Values, gochart.Value{Label: ds.Label, Value: v, Style: style(pick(ds.Colours, 0))})
		}
		bars = append(bars, bar)
	}

	if total <= 0 {
		return ErrNoData
	}

	sbc := gochart.StackedBarChart{
		Title:      d.Title,
		Background: gochart.Style{Padding: gochart.Box{Top: 40}},
		Width:      width,
		Height:     height,
		BarSpacing: 8,
		Bars:       bars,
	}

	return errors.Wrap(sbc.Render(gochart.PNG, w), "could not render stacked chart")
}

// RenderPie draws the first dataset of d as a pie
func RenderPie(w io.Writer, d Data) error {
	if d.Empty() || len(d.Datasets) == 0 {
		return ErrNoData
	}

	ds := d.Datasets[0]
	total := 0.0
	values := make([]gochart.Value, 0, len(d.Labels))
	for i, label := range d.Labels {
		v := 0.0
		if i < len(ds.Values) {
			v = sanitize(ds.Values[i])
		}
		total += v
		values = append(values, gochart.Value{Label: label, Value: v, Style: style(pick(ds.Colours, i))})
	}

	if total <= 0 {
		return ErrNoData
	}

	pc := gochart.PieChart{
		Title:  d.Title,
		Width:  height,
		Height: height,
		Values: values,
	}

	return errors.Wrap(pc.Render(gochart.PNG, w), "could not render pie chart")
}

func barWidth(n int) int {
	if n <= 0 {
		return 40
	}
	w := (width - 100) / n / 2
	if w < 4 {
		return 4
	}
	if w > 80 {
		return 80
	}
	return w
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
