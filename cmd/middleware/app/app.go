package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jlgabriel/Condor-UDP-Middleware/internal/bridge"
	"github.com/jlgabriel/Condor-UDP-Middleware/internal/settings"
)

// NewLogger builds the application logger from the logging settings. When
// file logging is enabled, output goes to a rotating log file capped by size
// and backup count; otherwise it goes to stdout.
func NewLogger(config *settings.LogSettings) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(config.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", config.Level, err)
	}

	var w io.Writer = os.Stdout
	if config.ToFile {
		w = &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxFiles,
		}
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// Run starts the bridge and keeps it running until the context is
// cancelled.
func Run(ctx context.Context, config *settings.Settings, logger *slog.Logger) error {
	b := bridge.New(config, bridge.WithLogger(logger))

	if err := b.Start(); err != nil {
		return fmt.Errorf("failed to start bridge: %w", err)
	}

	<-ctx.Done()

	b.Stop()
	return nil
}
