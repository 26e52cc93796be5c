package app

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/jlgabriel/Condor-UDP-Middleware/internal/storage"
)

// SeriesData accumulates one variable's samples and tracks the bounds needed
// to scale the chart.
type SeriesData struct {
	Variable string
	Points   []SeriesPoint

	TimestampStart time.Time
	TimestampEnd   time.Time
	ValueMin       float64
	ValueMax       float64

	// ConvertedCount is the number of samples that had a unit conversion
	// applied when recorded.
	ConvertedCount int
}

type SeriesPoint struct {
	Timestamp time.Time
	Value     float64
}

func NewSeriesData(variable string) *SeriesData {
	return &SeriesData{
		Variable: variable,
		ValueMin: math.Inf(1),
		ValueMax: math.Inf(-1),
	}
}

// Update folds one sample into the series.
func (s *SeriesData) Update(sample storage.Sample) {
	if len(s.Points) == 0 || sample.Timestamp.Before(s.TimestampStart) {
		s.TimestampStart = sample.Timestamp
	}
	if len(s.Points) == 0 || sample.Timestamp.After(s.TimestampEnd) {
		s.TimestampEnd = sample.Timestamp
	}

	s.ValueMin = min(s.ValueMin, sample.Value)
	s.ValueMax = max(s.ValueMax, sample.Value)
	if sample.Converted {
		s.ConvertedCount++
	}

	s.Points = append(s.Points, SeriesPoint{
		Timestamp: sample.Timestamp,
		Value:     sample.Value,
	})
}

var (
	chartBackground = color.RGBA{R: 16, G: 16, B: 24, A: 255}
	chartGrid       = color.RGBA{R: 48, G: 48, B: 64, A: 255}
	chartLine       = color.RGBA{R: 80, G: 200, B: 120, A: 255}
)

// ChartRenderer draws a time-series polyline chart for one variable.
type ChartRenderer struct {
	width  int
	height int
}

func NewChartRenderer(width, height int) *ChartRenderer {
	return &ChartRenderer{width: width, height: height}
}

// Render draws the series onto a new image.
func (r *ChartRenderer) Render(series *SeriesData) (*image.RGBA, error) {
	if len(series.Points) == 0 {
		return nil, fmt.Errorf("no samples to render for variable %q", series.Variable)
	}

	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	for y := 0; y < r.height; y++ {
		for x := 0; x < r.width; x++ {
			img.SetRGBA(x, y, chartBackground)
		}
	}

	// Horizontal grid lines at quarter intervals.
	for i := 1; i < 4; i++ {
		y := r.height * i / 4
		for x := 0; x < r.width; x++ {
			img.SetRGBA(x, y, chartGrid)
		}
	}

	span := series.TimestampEnd.Sub(series.TimestampStart).Seconds()
	valueMin := series.ValueMin
	valueRange := series.ValueMax - series.ValueMin
	if valueRange == 0 {
		// flat series renders as a centered line
		valueRange = 1
		valueMin -= 0.5
	}

	var prevX, prevY int
	for i, p := range series.Points {
		x := 0
		if span > 0 {
			x = int(p.Timestamp.Sub(series.TimestampStart).Seconds() / span * float64(r.width-1))
		}
		y := r.height - 1 - int((p.Value-valueMin)/valueRange*float64(r.height-1))

		if i > 0 {
			drawLine(img, prevX, prevY, x, y, chartLine)
		} else {
			img.SetRGBA(x, y, chartLine)
		}

		prevX, prevY = x, y
	}

	return img, nil
}

// drawLine draws a straight segment between two points using integer DDA.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := x1 - x0
	dy := y1 - y0

	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		img.SetRGBA(x0, y0, c)
		return
	}

	for i := 0; i <= steps; i++ {
		x := x0 + dx*i/steps
		y := y0 + dy*i/steps
		img.SetRGBA(x, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
