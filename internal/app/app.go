// Package app wires the archiver's dependencies and exposes its two
// operational modes:
//
//   - Serve mode: HTTP surface for triggering captures and browsing the
//     archive, plus an optional scheduled capture ticker
//   - Capture mode: one capture run and exit, for cron-style deployments
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hmuro/slack-archiver/internal/archive/pipeline"
	"github.com/hmuro/slack-archiver/internal/archive/store"
	"github.com/hmuro/slack-archiver/internal/platform/config"
	"github.com/hmuro/slack-archiver/internal/platform/observability"
	"github.com/hmuro/slack-archiver/internal/platform/worker"
	"github.com/hmuro/slack-archiver/internal/slack"
	"github.com/hmuro/slack-archiver/internal/web"
)

// App holds the application dependencies and provides methods to run the
// different modes.
type App struct {
	cfg    *config.Config
	store  store.Store
	runner *pipeline.Runner
	logger *zerolog.Logger
}

func New(cfg *config.Config, archiveStore store.Store, logger *zerolog.Logger) *App {
	client := slack.New(cfg.SlackBotToken, slack.Options{
		BaseURL:      cfg.SlackBaseURL,
		MinInterval:  cfg.APIMinInterval,
		JoinCooldown: cfg.JoinCooldown,
		Timeout:      cfg.APITimeout,
	}, logger)

	return &App{
		cfg:    cfg,
		store:  archiveStore,
		runner: pipeline.NewRunner(cfg, client, archiveStore, logger),
		logger: logger,
	}
}

// NewStore builds the configured archive store backend.
func NewStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StorageBackend {
	case config.BackendGCS:
		return store.NewGCS(ctx, cfg.GCSBucket)
	case config.BackendLocal:
		return store.NewLocal(cfg.ArchiveRoot)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// RunCapture performs a single capture run.
func (a *App) RunCapture(ctx context.Context) error {
	summary, err := a.runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("capture run: %w", err)
	}

	a.logger.Info().
		Str("run_id", summary.RunID).
		Int("archived", summary.Archived).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("capture complete")

	return nil
}

// RunServe starts the HTTP surface and, when configured, the scheduled
// capture ticker. It blocks until the context is canceled.
func (a *App) RunServe(ctx context.Context) error {
	users, err := web.LoadUsers(a.cfg.BasicAuthFile)
	if err != nil {
		return fmt.Errorf("basic auth setup: %w", err)
	}

	webServer := web.NewServer(a.store, a.runner.Run, users, a.logger)

	if a.cfg.CaptureInterval > 0 {
		go a.runScheduledCaptures(ctx)
	}

	srv := observability.NewServer(a.cfg.HTTPPort, a.store.Ping, webServer.Router(), a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}

func (a *App) runScheduledCaptures(ctx context.Context) {
	task := worker.Task{
		Name:     "scheduled-capture",
		Interval: a.cfg.CaptureInterval,
		Run: func(taskCtx context.Context) {
			if err := a.RunCapture(taskCtx); err != nil {
				a.logger.Error().Err(err).Msg("scheduled capture failed")
			}
		},
	}

	if err := worker.RunTicker(ctx, task, a.logger); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Warn().Err(err).Msg("capture ticker stopped")
	}
}
