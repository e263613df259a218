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
	"github.com/smartcowork/choreo/internal/notification"
	_ "github.com/smartcowork/choreo/transport/transports"
)

func main() {
	configFile := flag.String("config", "", "optional messaging config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := choreo.NewSlogServiceLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := choreo.LoadConfig(notification.ServiceName, *configFile)
	if err != nil {
		logger.Error("Failed to load messaging config", err, nil)
		os.Exit(1)
	}

	// Delivery jobs are worth tracing individually, so this service adds the
	// job lifecycle hooks on top of the default chain.
	b, err := choreo.New(ctx, cfg, logger, choreo.Dependencies{
		Middlewares: []choreo.MiddlewareRegistration{
			choreo.JobHooksMiddleware(choreo.LoggingHooks(logger)),
		},
	})
	if err != nil {
		logger.Error("Failed to create event bus", err, nil)
		os.Exit(1)
	}

	svc := notification.NewService(notification.NewInMemoryStore(), logger)
	if err := notification.RegisterHandlers(b, svc); err != nil {
		logger.Error("Failed to register handlers", err, nil)
		os.Exit(1)
	}

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event bus stopped", err, choreo.LogFields{"service": notification.ServiceName})
		os.Exit(1)
	}
}
