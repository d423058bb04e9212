package engineobs

import (
	"context"
	"log/slog"
	"time"

	"meme-trading-bot/internal/interfaces"
	"meme-trading-bot/internal/trace"
)

type observableBot struct {
	bot interfaces.Bot
	log *slog.Logger
}

var _ interfaces.Bot = (*observableBot)(nil)

// Wrap adds spans and timing logs around the bot lifecycle.
func Wrap(bot interfaces.Bot, log *slog.Logger) interfaces.Bot {
	return &observableBot{bot: bot, log: log}
}

func (ob *observableBot) Start(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "bot.Start")
	defer span.End()

	start := time.Now()
	err := ob.bot.Start(ctx)
	if err != nil {
		ob.log.Error("bot start failed", "error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return err
	}
	ob.log.Info("bot start completed",
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (ob *observableBot) Pause() error {
	if err := ob.bot.Pause(); err != nil {
		ob.log.Error("bot pause failed", "error", err)
		return err
	}
	ob.log.Info("bot pause completed")
	return nil
}

func (ob *observableBot) Resume(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "bot.Resume")
	defer span.End()

	if err := ob.bot.Resume(ctx); err != nil {
		ob.log.Error("bot resume failed", "error", err)
		return err
	}
	ob.log.Info("bot resume completed")
	return nil
}

func (ob *observableBot) Shutdown(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "bot.Shutdown")
	defer span.End()

	start := time.Now()
	err := ob.bot.Shutdown(ctx)
	if err != nil {
		ob.log.Error("bot shutdown failed", "error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return err
	}
	ob.log.Info("bot shutdown completed",
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
