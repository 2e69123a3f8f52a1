package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hmuro/slack-archiver/internal/app"
	"github.com/hmuro/slack-archiver/internal/platform/config"
)

func main() {
	mode := flag.String("mode", "serve", "Service mode (serve, capture)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	archiveStore, err := app.NewStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize archive store")
	}

	application := app.New(cfg, archiveStore, &logger)

	if err := runMode(ctx, application, *mode); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func runMode(ctx context.Context, application *app.App, mode string) error {
	switch mode {
	case "serve":
		return application.RunServe(ctx)
	case "capture":
		return application.RunCapture(ctx)
	default:
		log.Fatalf("Usage: %s --mode=[serve|capture]", os.Args[0])

		return nil
	}
}
