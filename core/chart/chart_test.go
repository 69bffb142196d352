package chart

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evload/core/model"
)

func dataset(n int) model.ChartDataset {
	ds := model.ChartDataset{RunID: "run"}
	for i := 0; i < n; i++ {
		ds.Records = append(ds.Records, model.AlignedRecord{
			Time:             fmt.Sprintf("%02d:%02d", i/2, (i%2)*30),
			ManagedPowerKW:   20 + float64(i%5),
			UnmanagedPowerKW: 10 + float64(i),
		})
	}
	return ds
}

func TestRenderPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(dataset(model.WindowSize), FormatPNG, DefaultOptions(), &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")), "not a PNG")
}

func TestRenderSVG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(dataset(model.WindowSize), FormatSVG, Options{Width: 800, Height: 400}, &buf))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<svg"), "not an SVG document")
	assert.Contains(t, out, ManagedSeriesName)
	assert.Contains(t, out, UnmanagedSeriesName)
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Render(model.ChartDataset{}, FormatPNG, DefaultOptions(), &buf), ErrEmptyDataset)
	assert.Error(t, Render(dataset(2), Format("gif"), DefaultOptions(), &buf))
}

func TestRenderConstantSeries(t *testing.T) {
	ds := model.ChartDataset{Records: []model.AlignedRecord{{Time: "00:00"}, {Time: "00:30"}}}
	var buf bytes.Buffer
	require.NoError(t, Render(ds, FormatSVG, DefaultOptions(), &buf))
}

func TestBuildKeepsLabelOrder(t *testing.T) {
	ds := dataset(6)
	ds.Records[2].Time = "zz"
	c, err := Build(ds, DefaultOptions())
	require.NoError(t, err)
	var labels []string
	for _, tick := range c.XAxis.Ticks {
		labels = append(labels, tick.Label)
	}
	assert.Equal(t, []string{"00:00", "zz", "02:00"}, labels)
	require.Len(t, c.Series, 2)
	assert.Equal(t, ManagedSeriesName, c.Series[0].GetName())
	assert.Equal(t, UnmanagedSeriesName, c.Series[1].GetName())
}

func TestPointsStep(t *testing.T) {
	xs, ys := points([]float64{1, 2, 3}, true)
	assert.Equal(t, []float64{0, 0.5, 0.5, 1.5, 1.5, 2}, xs)
	assert.Equal(t, []float64{1, 1, 2, 2, 3, 3}, ys)

	xs, ys = points([]float64{1, 2, 3}, false)
	assert.Equal(t, []float64{0, 1, 2}, xs)
	assert.Equal(t, []float64{1, 2, 3}, ys)

	xs, ys = points([]float64{4}, true)
	assert.Equal(t, []float64{0, 1}, xs)
	assert.Equal(t, []float64{4, 4}, ys)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" SVG ")
	require.NoError(t, err)
	assert.Equal(t, FormatSVG, f)
	assert.Equal(t, "image/svg+xml", f.ContentType())
	assert.Equal(t, "image/png", FormatPNG.ContentType())
	_, err = ParseFormat("jpeg")
	assert.Error(t, err)
}
