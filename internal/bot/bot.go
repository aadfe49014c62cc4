// Package bot runs the relay bot: the Telegram listener, the relay drain loop,
// and the maintenance scheduler, stopping them together on shutdown.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Listener receives platform updates until ctx is done. *bot.Bot implements it.
type Listener interface {
	Start(ctx context.Context)
}

// Drainer processes queued relay requests until ctx is done.
type Drainer interface {
	Run(ctx context.Context) error
}

// TaskScheduler runs the maintenance tasks.
type TaskScheduler interface {
	Start() error
	Stop() error
}

// Bot manages the lifecycle of the bot's long-running components.
type Bot struct {
	logger    *slog.Logger
	listener  Listener
	pipeline  Drainer
	scheduler TaskScheduler
}

// NewBot creates a Bot.
func NewBot(logger *slog.Logger, listener Listener, pipeline Drainer, scheduler TaskScheduler) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		listener:  listener,
		pipeline:  pipeline,
		scheduler: scheduler,
	}
}

// Run starts every component and blocks until ctx is cancelled or one of them
// fails. The listener stops first so no new requests are queued while the
// pipeline drops what is left.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Telegram bot listener...")
		b.listener.Start(gCtx)
		b.logger.Info("Telegram bot listener stopped.")

		if gCtx.Err() == nil {
			b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		if err := b.pipeline.Run(gCtx); err != nil {
			return fmt.Errorf("relay pipeline failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")
		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
