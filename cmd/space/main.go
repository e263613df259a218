package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/smartcowork/choreo"
	"github.com/smartcowork/choreo/internal/space"
	_ "github.com/smartcowork/choreo/transport/transports"
)

func main() {
	configFile := flag.String("config", "", "optional messaging config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := choreo.NewSlogServiceLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := choreo.LoadConfig(space.ServiceName, *configFile)
	if err != nil {
		logger.Error("Failed to load messaging config", err, nil)
		os.Exit(1)
	}

	b, err := choreo.New(ctx, cfg, logger, choreo.Dependencies{})
	if err != nil {
		logger.Error("Failed to create event bus", err, nil)
		os.Exit(1)
	}

	svc := space.NewService(space.NewInMemoryRepository(), b, logger)
	if err := space.RegisterHandlers(b, svc); err != nil {
		logger.Error("Failed to register handlers", err, nil)
		os.Exit(1)
	}

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event bus stopped", err, choreo.LogFields{"service": space.ServiceName})
		os.Exit(1)
	}
}
