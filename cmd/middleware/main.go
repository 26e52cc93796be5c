package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jlgabriel/Condor-UDP-Middleware/cmd/middleware/app"
	"github.com/jlgabriel/Condor-UDP-Middleware/internal/settings"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	var configPath string
	flag.StringVar(&configPath, "c", "middleware.yaml", "Path to the settings file")
	flag.Parse()

	config, err := settings.Load(configPath)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to load settings: %s", err.Error()), slog.String("path", configPath))
		os.Exit(1)
	}

	if err = config.Validate(); err != nil {
		logger.Error(fmt.Sprintf("invalid settings: %s", err.Error()), slog.String("path", configPath))
		os.Exit(1)
	}

	logger, err = app.NewLogger(&config.Logging)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = app.Run(ctx, config, logger); err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}
