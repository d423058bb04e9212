package interfaces

import (
	"context"

	"meme-trading-bot/internal/types"
)

// MarketData supplies market samples for the enabled universe. It may
// fail per-symbol; callers must tolerate partial or empty results.
type MarketData interface {
	CurrentSamples(ctx context.Context) ([]types.MarketSample, error)
	Sample(ctx context.Context, symbol string) (*types.MarketSample, error)
}
