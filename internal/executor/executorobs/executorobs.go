package executorobs

import (
	"context"
	"log/slog"
	"time"

	"meme-trading-bot/internal/interfaces"
	"meme-trading-bot/internal/trace"
	"meme-trading-bot/internal/types"
)

type observableExecutor struct {
	exec interfaces.Executor
	log  *slog.Logger
}

var _ interfaces.Executor = (*observableExecutor)(nil)

// Wrap adds spans and timing logs around execution calls.
func Wrap(exec interfaces.Executor, log *slog.Logger) interfaces.Executor {
	return &observableExecutor{exec: exec, log: log}
}

func (oe *observableExecutor) Execute(ctx context.Context, sig types.TradingSignal) (types.ExecutionResult, error) {
	ctx, span := trace.StartSpan(ctx, "executor.Execute")
	defer span.End()

	start := time.Now()
	result, err := oe.exec.Execute(ctx, sig)
	if err != nil {
		oe.log.Error("execution failed", "error", err,
			"symbol", sig.Symbol,
			"action", string(sig.Action),
			"duration_ms", time.Since(start).Milliseconds())
		return result, err
	}

	oe.log.Info("execution completed",
		"symbol", sig.Symbol,
		"action", string(sig.Action),
		"quantity", sig.Quantity,
		"status", string(result.Status),
		"order_id", result.ID,
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

func (oe *observableExecutor) PortfolioSnapshot() types.PortfolioSnapshot {
	return oe.exec.PortfolioSnapshot()
}

func (oe *observableExecutor) CloseAllPositions(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "executor.CloseAllPositions")
	defer span.End()

	start := time.Now()
	err := oe.exec.CloseAllPositions(ctx)
	if err != nil {
		oe.log.Error("close all positions failed", "error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return err
	}
	oe.log.Info("all positions closed",
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
