package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"meme-trading-bot/internal/analyzer"
	"meme-trading-bot/internal/chain"
	"meme-trading-bot/internal/clock"
	"meme-trading-bot/internal/engine"
	"meme-trading-bot/internal/engine/engineobs"
	"meme-trading-bot/internal/executor"
	"meme-trading-bot/internal/executor/executorobs"
	"meme-trading-bot/internal/interfaces"
	"meme-trading-bot/internal/logger"
	"meme-trading-bot/internal/marketdata"
	"meme-trading-bot/internal/recall"
	"meme-trading-bot/internal/report"
	"meme-trading-bot/internal/risk"
	"meme-trading-bot/internal/scanner"
	"meme-trading-bot/internal/signal"
	"meme-trading-bot/internal/store"
	"meme-trading-bot/internal/trace"
)

// system bundles everything main needs to run and tear down.
type system struct {
	cfg   *store.Config
	log   *slog.Logger
	bot   interfaces.Bot
	store *recall.Store
	repo  *report.Summarizer
}

func initializeSystem() (*system, error) {
	_ = godotenv.Load()

	cfg, err := store.LoadConfig(configPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if err := trace.Init(); err != nil {
		log.Warn("tracer init failed, continuing without tracing", "error", err)
	}

	clk := clock.System()
	recallStore := recall.New(recall.NewFileSink(cfg.Recall.SnapshotPath), clk, log)
	recallStore.Restore()
	if removed := recallStore.Cleanup(cfg.Recall.RetentionDays); removed > 0 {
		log.Info("stale records dropped on startup", "removed", removed)
	}

	gate := risk.New(risk.Config{
		MaxPositionSize:  cfg.Risk.MaxPositionSize,
		MaxDailyLoss:     cfg.Risk.MaxDailyLoss,
		MaxDrawdown:      cfg.Risk.MaxDrawdown,
		MaxOpenPositions: cfg.Risk.MaxOpenPositions,
	}, log)

	chainClient, err := chain.NewClient(cfg.Chain.WalletPath, time.Now().UnixNano(), log)
	if err != nil {
		return nil, fmt.Errorf("chain client: %w", err)
	}

	exec := initializeExecutor(cfg, chainClient, gate, log)
	market := initializeMarketData(cfg, clk, log)
	scan := initializeScanner(cfg, log)

	bot := engine.New(engine.Config{
		TradingInterval: time.Duration(cfg.TradingIntervalSeconds) * time.Second,
		ScanInterval:    time.Duration(cfg.Scan.IntervalSeconds) * time.Second,
		ScanEnabled:     cfg.Scan.Enabled,
	},
		market, exec, scan,
		analyzer.New(recallStore, log),
		signal.New(signal.Config{
			StopLossPct:   cfg.Risk.StopLossPct,
			TakeProfitPct: cfg.Risk.TakeProfitPct,
		}, clk, log),
		gate, recallStore, clk, log,
	)

	return &system{
		cfg:   cfg,
		log:   log,
		bot:   engineobs.Wrap(bot, log),
		store: recallStore,
		repo:  report.NewSummarizer(recallStore, cfg.Report.OutDir, clk, log),
	}, nil
}

func initializeExecutor(cfg *store.Config, chainClient *chain.Client, gate *risk.Gate, log *slog.Logger) interfaces.Executor {
	if cfg.Mode == "DRY_RUN" {
		log.Warn("running in DRY_RUN mode, orders are simulated")
	}
	// LIVE order routing is not implemented; both modes fill on paper,
	// LIVE still quotes fees through the chain client.
	paper := executor.NewPaper(cfg.Portfolio.InitialValue, chainClient, gate, log)
	return executorobs.Wrap(paper, log)
}

func initializeMarketData(cfg *store.Config, clk clock.Clock, log *slog.Logger) interfaces.MarketData {
	if cfg.DataSource == "LIVE" {
		log.Info("using LIVE quotes from DexScreener")
		return marketdata.NewDexScreener(cfg.Universe, clk, log)
	}
	log.Info("using MOCK market data")
	return marketdata.NewMock(cfg.Universe, time.Now().UnixNano(), clk, log)
}

func initializeScanner(cfg *store.Config, log *slog.Logger) interfaces.Scanner {
	if !cfg.Scan.Enabled {
		return nil
	}
	if cfg.DataSource == "LIVE" {
		return scanner.NewLive(cfg.Scan.MaxTokens, 15*time.Second, log)
	}
	return scanner.NewMock(cfg.Scan.MaxTokens, time.Now().UnixNano(), log)
}

func configPath() string {
	if v := os.Getenv("BOT_CONFIG"); v != "" {
		return v
	}
	return "config.yaml"
}

func shutdown(ctx context.Context, sys *system) {
	if err := sys.bot.Shutdown(ctx); err != nil {
		sys.log.Error("shutdown incomplete", "error", err)
	}
	if path, err := sys.repo.SummarizeToday(); err != nil {
		sys.log.Warn("daily summary failed", "error", err)
	} else if path != "" {
		sys.log.Info("daily summary written", "path", path)
	}
	if err := trace.Shutdown(ctx); err != nil {
		sys.log.Warn("tracer shutdown failed", "error", err)
	}
}
