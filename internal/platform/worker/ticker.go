// Package worker provides the ticker loop driving scheduled captures.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const logFieldTask = "task"

// Task is a named function invoked on every tick.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
}

// RunTicker runs the task at its interval until the context is canceled.
// The first invocation waits one full interval; a deployment restart right
// after a capture should not trigger another one immediately.
func RunTicker(ctx context.Context, task Task, logger *zerolog.Logger) error {
	logger.Info().Str(logFieldTask, task.Name).Dur("interval", task.Interval).Msg("starting ticker loop")

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Str(logFieldTask, task.Name).Msg("ticker loop stopped")
			return fmt.Errorf("ticker loop %s: %w", task.Name, ctx.Err())
		case <-ticker.C:
			task.Run(ctx)
		}
	}
}
