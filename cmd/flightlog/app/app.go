// Package app renders a chart of one telemetry variable from a recorded
// middleware session database.
package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jlgabriel/Condor-UDP-Middleware/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.New(config.DBPath)
	defer store.Close()

	if config.ListVariables {
		return listVariables(ctx, store, config, logger)
	}

	return renderSeries(ctx, store, config, logger)
}

func listVariables(ctx context.Context, store *storage.Store, config *Config, logger *slog.Logger) error {
	session, err := store.Session(ctx, config.SessionID)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	variables, err := store.Variables(ctx, config.SessionID)
	if err != nil {
		return fmt.Errorf("listing variables: %w", err)
	}

	logger.Info("session",
		slog.Int64("id", session.ID),
		slog.String("started", session.StartTime.Local().Format(time.DateTime)),
		slog.String("input", session.InputEndpoint),
		slog.String("output", session.OutputEndpoint))

	for _, name := range variables {
		fmt.Println(name)
	}
	return nil
}

func renderSeries(ctx context.Context, store *storage.Store, config *Config, logger *slog.Logger) error {
	iter, err := store.Samples(config.SessionID, config.Variable)
	if err != nil {
		return fmt.Errorf("reading samples: %w", err)
	}
	defer iter.Close()

	series := NewSeriesData(config.Variable)
	for iter.Next() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		series.Update(iter.Current())
	}
	if err = iter.Error(); err != nil {
		return err
	}

	logger.Info("finished reading samples",
		slog.Group("stats",
			slog.String("samples", humanize.Comma(int64(len(series.Points)))),
			slog.String("converted", humanize.Comma(int64(series.ConvertedCount))),
			slog.String("minTimestamp", series.TimestampStart.Local().Format(time.DateTime)),
			slog.String("maxTimestamp", series.TimestampEnd.Local().Format(time.DateTime)),
			slog.String("minValue", fmt.Sprintf("%.4g", series.ValueMin)),
			slog.String("maxValue", fmt.Sprintf("%.4g", series.ValueMax)),
		))

	renderer := NewChartRenderer(config.Width, config.Height)

	logger.Info("rendering chart",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.Int("width", config.Width),
			slog.Int("height", config.Height),
		))

	img, err := renderer.Render(series)
	if err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}

	if !config.NoAnnotations && config.FontFile != "" {
		fontBytes, err := os.ReadFile(config.FontFile)
		if err != nil {
			return fmt.Errorf("reading font file: %w", err)
		}

		annotator, err := NewAnnotator(fontBytes)
		if err != nil {
			return fmt.Errorf("creating annotator: %w", err)
		}

		if err = annotator.Annotate(img, series); err != nil {
			return fmt.Errorf("annotating chart: %w", err)
		}
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	switch config.Format {
	case ImagePNG:
		err = png.Encode(out, img)

	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	}
	return err
}
