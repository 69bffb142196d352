// Package chart projects an aligned dataset onto a dual-series area chart.
// It holds no state besides the dataset passed to each call.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/kilianp07/evload/core/model"
)

const (
	ManagedSeriesName   = "With Energy Management"
	UnmanagedSeriesName = "Without Energy Management"

	ManagedColor   = "4285F4"
	UnmanagedColor = "DB4437"

	TimeAxisName  = "Time"
	PowerAxisName = "Electric Power (kW)"

	// fillAlpha is 40% opacity.
	fillAlpha = 102
)

// ErrEmptyDataset is returned when there is nothing to draw.
var ErrEmptyDataset = errors.New("empty dataset")

// Format selects the output encoding.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ParseFormat accepts "png" or "svg" in any case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatPNG:
		return FormatPNG, nil
	case FormatSVG:
		return FormatSVG, nil
	default:
		return "", fmt.Errorf("unsupported chart format %q", s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// Options controls the rendered size and series shape.
type Options struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Step   bool   `json:"step"`
	Title  string `json:"title"`
}

// DefaultOptions mirrors the dashboard layout.
func DefaultOptions() Options {
	return Options{Width: 1200, Height: 500, Step: true}
}

// Build returns the chart definition for ds without rendering it.
func Build(ds model.ChartDataset, opts Options) (gochart.Chart, error) {
	if ds.Len() == 0 {
		return gochart.Chart{}, ErrEmptyDataset
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		d := DefaultOptions()
		opts.Width, opts.Height = d.Width, d.Height
	}
	managed, unmanaged := ds.Managed(), ds.Unmanaged()

	c := gochart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 50, Left: 12, Right: 12, Bottom: 50},
		},
		XAxis: gochart.XAxis{
			Name:      TimeAxisName,
			Range:     &gochart.ContinuousRange{Min: 0, Max: math.Max(float64(ds.Len()-1), 1)},
			Ticks:     timeTicks(ds.Labels()),
			TickStyle: gochart.Style{TextRotationDegrees: -45},
		},
		YAxis: gochart.YAxis{
			Name:           PowerAxisName,
			Range:          powerRange(managed, unmanaged),
			GridMajorStyle: gochart.Style{StrokeColor: drawing.ColorFromHex("E0E0E0"), StrokeWidth: 1},
		},
		Series: []gochart.Series{
			series(ManagedSeriesName, ManagedColor, managed, opts.Step),
			series(UnmanagedSeriesName, UnmanagedColor, unmanaged, opts.Step),
		},
	}
	c.Elements = []gochart.Renderable{gochart.LegendThin(&c)}
	return c, nil
}

// Render draws ds in the requested format to w.
func Render(ds model.ChartDataset, format Format, opts Options, w io.Writer) error {
	c, err := Build(ds, opts)
	if err != nil {
		return err
	}
	switch format {
	case FormatSVG:
		return c.Render(gochart.SVG, w)
	case FormatPNG, "":
		return c.Render(gochart.PNG, w)
	default:
		return fmt.Errorf("unsupported chart format %q", format)
	}
}

func series(name, hex string, values []float64, step bool) gochart.ContinuousSeries {
	col := drawing.ColorFromHex(hex)
	xs, ys := points(values, step)
	return gochart.ContinuousSeries{
		Name: name,
		Style: gochart.Style{
			StrokeColor: col,
			StrokeWidth: 2,
			FillColor:   col.WithAlpha(fillAlpha),
		},
		XValues: xs,
		YValues: ys,
	}
}

// points places value i at x=i. In step mode the level changes half way
// between two samples, the same shape as a step-after-midpoint curve.
func points(values []float64, step bool) ([]float64, []float64) {
	if len(values) == 1 {
		return []float64{0, 1}, []float64{values[0], values[0]}
	}
	if !step {
		xs := make([]float64, len(values))
		for i := range values {
			xs[i] = float64(i)
		}
		return xs, append([]float64(nil), values...)
	}
	xs := make([]float64, 0, 2*len(values))
	ys := make([]float64, 0, 2*len(values))
	xs, ys = append(xs, 0), append(ys, values[0])
	for i := 1; i < len(values); i++ {
		mid := float64(i) - 0.5
		xs = append(xs, mid, mid)
		ys = append(ys, values[i-1], values[i])
	}
	xs, ys = append(xs, float64(len(values)-1)), append(ys, values[len(values)-1])
	return xs, ys
}

// timeTicks labels every other sample, starting with the first.
func timeTicks(labels []string) []gochart.Tick {
	ticks := make([]gochart.Tick, 0, len(labels)/2+1)
	for i := 0; i < len(labels); i += 2 {
		ticks = append(ticks, gochart.Tick{Value: float64(i), Label: labels[i]})
	}
	return ticks
}

func powerRange(series ...[]float64) *gochart.ContinuousRange {
	lo, hi := 0.0, 0.0
	for _, s := range series {
		for _, v := range s {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if hi == lo {
		hi = lo + 1
	}
	return &gochart.ContinuousRange{Min: lo, Max: hi * 1.1}
}
