package app

import (
	"fmt"
	"image"
	"time"

	"github.com/golang/freetype"
	"golang.org/x/image/font"
)

const (
	dpi     float64 = 72
	size    float64 = 14
	margin  int     = 5
	tickLen int     = 20
)

// Annotator draws time and value scales onto a rendered chart.
type Annotator struct {
	context *freetype.Context
}

// NewAnnotator creates an annotator from raw TTF font data.
func NewAnnotator(fontBytes []byte) (*Annotator, error) {
	parsedFont, err := freetype.ParseFont(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	context := freetype.NewContext()
	context.SetDPI(dpi)
	context.SetFont(parsedFont)
	context.SetFontSize(size)
	context.SetSrc(image.White)
	context.SetHinting(font.HintingFull)

	return &Annotator{context: context}, nil
}

func (a *Annotator) Annotate(img *image.RGBA, series *SeriesData) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	ops := []struct {
		msg string
		fn  func(*image.RGBA, *SeriesData) error
	}{
		{"drawing time scale", a.drawTimeScale},
		{"drawing value scale", a.drawValueScale},
		{"drawing info", a.drawInfo},
	}
	for _, op := range ops {
		if err := op.fn(img, series); err != nil {
			return fmt.Errorf("%s: %w", op.msg, err)
		}
	}

	return nil
}

func (a *Annotator) drawTimeScale(img *image.RGBA, series *SeriesData) error {
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()

	count := width / 300
	if count == 0 {
		count = 1
	}

	span := series.TimestampEnd.Sub(series.TimestampStart)
	for si := 0; si < count; si++ {
		offset := time.Duration(int64(span) / int64(count) * int64(si))
		px := width / count * si

		// guideline on the exact timestamp
		for i := 0; i < tickLen; i++ {
			img.Set(px, height-1-i, image.White)
		}

		label := series.TimestampStart.Add(offset).Local().Format("15:04:05")
		pt := freetype.Pt(px+margin, height-margin)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return err
		}
	}

	return nil
}

func (a *Annotator) drawValueScale(img *image.RGBA, series *SeriesData) error {
	height := img.Bounds().Dy()

	valueRange := series.ValueMax - series.ValueMin
	for si := 0; si <= 4; si++ {
		value := series.ValueMax - valueRange*float64(si)/4
		py := height * si / 4

		for i := 0; i < tickLen; i++ {
			img.Set(i, py, image.White)
		}

		textY := py + int(size) + margin
		if si == 4 {
			textY = py - margin
		}

		pt := freetype.Pt(tickLen+margin, textY)
		if _, err := a.context.DrawString(fmt.Sprintf("%.4g", value), pt); err != nil {
			return err
		}
	}

	return nil
}

func (a *Annotator) drawInfo(img *image.RGBA, series *SeriesData) error {
	label := fmt.Sprintf("%s  (%d samples, %s)",
		series.Variable,
		len(series.Points),
		series.TimestampEnd.Sub(series.TimestampStart).Round(time.Second))

	pt := freetype.Pt(img.Bounds().Dx()/2, int(size)+margin)
	_, err := a.context.DrawString(label, pt)
	return err
}
