package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"meme-trading-bot/internal/clock"
	"meme-trading-bot/internal/ta"
	"meme-trading-bot/internal/types"
)

const (
	historyCap   = 250
	rsiPeriod    = 14
	macdFast     = 12
	macdSlow     = 26
	maWindow     = 20
	volWindow    = 20
	minWarmupLen = 30
)

// Mock generates a bounded random walk per symbol and derives the
// optional indicators from the walk history. Indicators stay absent
// until enough history has accumulated, which exercises the sparse
// indicator handling downstream.
type Mock struct {
	mu      sync.Mutex
	symbols []string
	prices  map[string][]float64
	volumes map[string][]float64
	base    map[string]float64
	rng     *rand.Rand
	clk     clock.Clock
	log     *slog.Logger
}

func NewMock(symbols []string, seed int64, clk clock.Clock, log *slog.Logger) *Mock {
	return &Mock{
		symbols: append([]string(nil), symbols...),
		prices:  make(map[string][]float64),
		volumes: make(map[string][]float64),
		base:    make(map[string]float64),
		rng:     rand.New(rand.NewSource(seed)),
		clk:     clk,
		log:     log,
	}
}

// AddSymbol grows the universe at runtime; the scanner uses this for
// newly trending tokens.
func (m *Mock) AddSymbol(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.symbols {
		if s == symbol {
			return
		}
	}
	m.symbols = append(m.symbols, symbol)
}

func (m *Mock) CurrentSamples(ctx context.Context) ([]types.MarketSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	samples := make([]types.MarketSample, 0, len(m.symbols))
	for _, symbol := range m.symbols {
		samples = append(samples, m.nextSampleLocked(symbol))
	}
	return samples, nil
}

func (m *Mock) Sample(ctx context.Context, symbol string) (*types.MarketSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.symbols {
		if s == symbol {
			sample := m.nextSampleLocked(symbol)
			return &sample, nil
		}
	}
	return nil, fmt.Errorf("marketdata: unknown symbol %q", symbol)
}

// nextSampleLocked advances the walk one step and emits a sample.
func (m *Mock) nextSampleLocked(symbol string) types.MarketSample {
	base, ok := m.base[symbol]
	if !ok {
		// Meme tokens trade in wildly different magnitudes.
		base = 0.0001 * float64(1+m.rng.Intn(10000))
		m.base[symbol] = base
	}

	history := m.prices[symbol]
	last := base
	if len(history) > 0 {
		last = history[len(history)-1]
	}

	// Bounded walk: ±3% step, drifting back toward base.
	step := (m.rng.Float64() - 0.5) * 0.06
	drift := (base - last) / base * 0.01
	price := last * (1 + step + drift)
	if price <= 0 {
		price = base
	}
	volume := m.rng.Float64() * 1_000_000

	history = append(history, price)
	if len(history) > historyCap {
		history = history[len(history)-historyCap:]
	}
	m.prices[symbol] = history

	volHistory := append(m.volumes[symbol], volume)
	if len(volHistory) > historyCap {
		volHistory = volHistory[len(volHistory)-historyCap:]
	}
	m.volumes[symbol] = volHistory

	sample := types.MarketSample{
		Symbol:    symbol,
		Price:     price,
		Volume:    volume,
		Timestamp: m.clk.Now(),
	}
	if len(history) >= minWarmupLen {
		sample.Indicators = types.Indicators{
			RSI:        ptr(ta.RSI(history, rsiPeriod)),
			MACD:       ptr(ta.MACD(history, macdFast, macdSlow)),
			MA:         ptr(ta.SMA(history, maWindow)),
			Volatility: ptr(ta.Volatility(history, volWindow)),
		}
	}
	return sample
}

func ptr(v float64) *float64 { return &v }
