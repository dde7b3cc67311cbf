package recorder

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/talgya/resistance-sim/internal/config"
)

// ErrTooFewTimesteps is returned when there is not enough data to plot.
var ErrTooFewTimesteps = errors.New("chart needs at least two timesteps")

var palette = []drawing.Color{
	{R: 214, G: 39, B: 40, A: 255},
	{R: 255, G: 127, B: 14, A: 255},
	{R: 148, G: 103, B: 189, A: 255},
	{R: 140, G: 86, B: 75, A: 255},
	{R: 227, G: 119, B: 194, A: 255},
	{R: 23, G: 190, B: 207, A: 255},
	{R: 64, G: 64, B: 64, A: 255},
	{R: 44, G: 160, B: 44, A: 255},
	{R: 31, G: 119, B: 180, A: 255},
	{R: 188, G: 189, B: 34, A: 255},
}

func color(i int) drawing.Color {
	return palette[i%len(palette)]
}

// Chart describes one rendered graph of a run.
type Chart struct {
	Title  string
	X      []float64
	Series []Series
	// Stacked draws each series filled on top of the ones before it.
	Stacked bool
	Width   int
	Height  int
}

// Render writes the chart to w as a PNG.
func (c Chart) Render(w io.Writer) error {
	if len(c.X) < 2 {
		return ErrTooFewTimesteps
	}
	for _, s := range c.Series {
		if len(s.Values) != len(c.X) {
			return fmt.Errorf("series %q has %d values for %d timesteps", s.Name, len(s.Values), len(c.X))
		}
	}

	var series []chart.Series
	if c.Stacked {
		series = stackedSeries(c.X, c.Series)
	} else {
		for i, s := range c.Series {
			series = append(series, chart.ContinuousSeries{
				Name:    s.Name,
				XValues: c.X,
				YValues: s.Values,
				Style:   chart.Style{StrokeColor: color(i), StrokeWidth: 2.0},
			})
		}
	}

	width, height := c.Width, c.Height
	if width == 0 {
		width = 1024
	}
	if height == 0 {
		height = 576
	}
	graph := chart.Chart{
		Title:  c.Title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name: "Time / timesteps",
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		YAxis: chart.YAxis{
			Name: "# People",
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart %q: %w", c.Title, err)
	}
	return nil
}

// stackedSeries turns disjoint series into cumulative filled bands. The
// tallest band is drawn first so the smaller ones paint over it.
func stackedSeries(x []float64, in []Series) []chart.Series {
	cum := make([][]float64, len(in))
	running := make([]float64, len(x))
	for i, s := range in {
		for j, v := range s.Values {
			running[j] += v
		}
		cum[i] = append([]float64(nil), running...)
	}
	out := make([]chart.Series, 0, len(in))
	for i := len(in) - 1; i >= 0; i-- {
		out = append(out, chart.ContinuousSeries{
			Name:    in[i].Name,
			XValues: x,
			YValues: cum[i],
			Style: chart.Style{
				StrokeColor: color(i),
				FillColor:   color(i).WithAlpha(200),
				StrokeWidth: 1.0,
			},
		})
	}
	return out
}

// RenderFile writes the chart as a PNG file at path.
func (c Chart) RenderFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close chart file: %w", cerr)
		}
	}()
	return c.Render(f)
}

// TallyChart builds the chart for a finished tally in the given graph style.
func TallyChart(title, graphType string, t *Tally, label func(tier int) string) Chart {
	c := Chart{Title: title, X: t.Timesteps()}
	if graphType == config.GraphStackplot {
		c.Stacked = true
		c.Series = t.Stack(label)
	} else {
		c.Series = t.Lines(label)
	}
	return c
}
