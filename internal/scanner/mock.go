package scanner

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"

	"meme-trading-bot/internal/types"
)

var mockPool = []types.TrendingToken{
	{Symbol: "DOGE", Name: "Dogcoin", Price: 0.18, Volume24h: 9.5e8},
	{Symbol: "PEPE", Name: "Pepe", Price: 0.000012, Volume24h: 6.1e8},
	{Symbol: "WIF", Name: "dogwifhat", Price: 2.4, Volume24h: 4.2e8},
	{Symbol: "BONK", Name: "Bonk", Price: 0.000031, Volume24h: 3.8e8},
	{Symbol: "SHIB", Name: "Shiba Inu", Price: 0.000024, Volume24h: 3.1e8},
	{Symbol: "FLOKI", Name: "Floki", Price: 0.00019, Volume24h: 1.9e8},
	{Symbol: "MEW", Name: "cat in a dogs world", Price: 0.0072, Volume24h: 1.1e8},
	{Symbol: "POPCAT", Name: "Popcat", Price: 0.81, Volume24h: 0.9e8},
}

// Mock synthesizes trending tokens from a fixed pool with randomized
// momentum, for runs without network access.
type Mock struct {
	maxTokens int
	log       *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewMock(maxTokens int, seed int64, log *slog.Logger) *Mock {
	return &Mock{
		maxTokens: maxTokens,
		log:       log,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

func (m *Mock) Scan(ctx context.Context) ([]types.TrendingToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.maxTokens
	if n > len(mockPool) {
		n = len(mockPool)
	}

	tokens := make([]types.TrendingToken, 0, n)
	for _, idx := range m.rng.Perm(len(mockPool))[:n] {
		tok := mockPool[idx]
		tok.Momentum = m.rng.Float64()*0.4 - 0.1
		tok.Source = "mock"
		tokens = append(tokens, tok)
	}
	m.log.Debug("mock scan complete", "tokens", len(tokens))
	return tokens, nil
}
