package app

import (
	"testing"
	"time"

	"github.com/jlgabriel/Condor-UDP-Middleware/internal/storage"
)

func TestSeriesData_Update(t *testing.T) {
	base := time.Now()
	s := NewSeriesData("altitude")

	s.Update(storage.Sample{Timestamp: base.Add(time.Second), Value: 120, Converted: true})
	s.Update(storage.Sample{Timestamp: base, Value: 100})
	s.Update(storage.Sample{Timestamp: base.Add(2 * time.Second), Value: 80, Converted: true})

	if len(s.Points) != 3 {
		t.Fatalf("Expected 3 points, got %d", len(s.Points))
	}
	if !s.TimestampStart.Equal(base) || !s.TimestampEnd.Equal(base.Add(2*time.Second)) {
		t.Errorf("Unexpected time bounds: %s .. %s", s.TimestampStart, s.TimestampEnd)
	}
	if s.ValueMin != 80 || s.ValueMax != 120 {
		t.Errorf("Unexpected value bounds: %f .. %f", s.ValueMin, s.ValueMax)
	}
	if s.ConvertedCount != 2 {
		t.Errorf("Expected 2 converted samples, got %d", s.ConvertedCount)
	}
}

func TestChartRenderer_Render(t *testing.T) {
	base := time.Now()
	s := NewSeriesData("vario")
	for i := 0; i < 10; i++ {
		s.Update(storage.Sample{Timestamp: base.Add(time.Duration(i) * time.Second), Value: float64(i % 4)})
	}

	r := NewChartRenderer(400, 200)
	img, err := r.Render(s)
	if err != nil {
		t.Fatalf("Render() failed: %s", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 400 || bounds.Dy() != 200 {
		t.Errorf("Unexpected image size: %s", bounds)
	}

	// the polyline must have left some trace
	var linePixels int
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			if img.RGBAAt(x, y) == chartLine {
				linePixels++
			}
		}
	}
	if linePixels == 0 {
		t.Error("Rendered chart contains no line pixels")
	}
}

func TestChartRenderer_RenderFlatSeries(t *testing.T) {
	base := time.Now()
	s := NewSeriesData("altitude")
	for i := 0; i < 5; i++ {
		s.Update(storage.Sample{Timestamp: base.Add(time.Duration(i) * time.Second), Value: 42})
	}

	r := NewChartRenderer(400, 200)
	img, err := r.Render(s)
	if err != nil {
		t.Fatalf("Render() failed: %s", err)
	}

	// a flat series must not hug the chart edges
	for x := 0; x < 400; x++ {
		if img.RGBAAt(x, 0) == chartLine || img.RGBAAt(x, 199) == chartLine {
			t.Fatal("Flat series rendered on the chart edge")
		}
	}
}

func TestChartRenderer_RenderEmptySeries(t *testing.T) {
	r := NewChartRenderer(400, 200)
	if _, err := r.Render(NewSeriesData("altitude")); err == nil {
		t.Error("Expected error rendering an empty series")
	}
}
