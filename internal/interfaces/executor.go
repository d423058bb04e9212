package interfaces

import (
	"context"

	"meme-trading-bot/internal/types"
)

// Executor owns the portfolio and carries out validated signals.
type Executor interface {
	Execute(ctx context.Context, sig types.TradingSignal) (types.ExecutionResult, error)
	PortfolioSnapshot() types.PortfolioSnapshot
	CloseAllPositions(ctx context.Context) error
}
