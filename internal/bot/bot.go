// Package bot implements the core bot functionality: the event dispatcher,
// the conversation engine, the reminder sweep, and their lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Runner is a long-running component driven by the orchestrator.
type Runner interface {
	Run(ctx context.Context) error
}

// Bot ties the dispatcher, the scheduler, and any extra runners (the HTTP
// surface) together and manages graceful shutdown.
type Bot struct {
	logger     *slog.Logger
	dispatcher *Dispatcher
	scheduler  *Scheduler
	extra      []Runner
}

// NewBot creates the orchestrator.
func NewBot(logger *slog.Logger, dispatcher *Dispatcher, scheduler *Scheduler, extra ...Runner) *Bot {
	return &Bot{
		logger:     logger.With("component", "bot_orchestrator"),
		dispatcher: dispatcher,
		scheduler:  scheduler,
		extra:      extra,
	}
}

// Run starts all components and blocks until the context is cancelled or a
// component fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.dispatcher.Run(gCtx)
	})

	g.Go(func() error {
		if err := b.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	for _, r := range b.extra {
		runner := r
		g.Go(func() error {
			return runner.Run(gCtx)
		})
	}

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
