package interfaces

import (
	"context"

	"meme-trading-bot/internal/types"
)

// Scanner discovers trending meme tokens for the scan timer.
type Scanner interface {
	Scan(ctx context.Context) ([]types.TrendingToken, error)
}
