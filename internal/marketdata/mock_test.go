package marketdata

import (
	"context"
	"testing"
	"time"

	"meme-trading-bot/internal/clock"
	"meme-trading-bot/internal/logger"
)

func TestMockProducesSamplesForUniverse(t *testing.T) {
	clk := &clock.Fixed{T: time.Now()}
	m := NewMock([]string{"DOGE", "PEPE"}, 1, clk, logger.Discard())

	samples, err := m.CurrentSamples(context.Background())
	if err != nil {
		t.Fatalf("CurrentSamples failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	for _, s := range samples {
		if s.Price <= 0 {
			t.Errorf("%s: price must be positive, got %f", s.Symbol, s.Price)
		}
		if s.Volume < 0 {
			t.Errorf("%s: volume must be non-negative, got %f", s.Symbol, s.Volume)
		}
	}
}

func TestMockIndicatorsAppearAfterWarmup(t *testing.T) {
	clk := &clock.Fixed{T: time.Now()}
	m := NewMock([]string{"DOGE"}, 1, clk, logger.Discard())
	ctx := context.Background()

	first, _ := m.Sample(ctx, "DOGE")
	if first.Indicators.RSI != nil {
		t.Error("indicators should be absent before warmup")
	}

	for i := 0; i < 40; i++ {
		m.Sample(ctx, "DOGE")
	}
	warm, _ := m.Sample(ctx, "DOGE")
	if warm.Indicators.RSI == nil || warm.Indicators.MACD == nil || warm.Indicators.MA == nil || warm.Indicators.Volatility == nil {
		t.Errorf("indicators should be present after warmup: %+v", warm.Indicators)
	}
}

func TestMockUnknownSymbol(t *testing.T) {
	clk := &clock.Fixed{T: time.Now()}
	m := NewMock([]string{"DOGE"}, 1, clk, logger.Discard())

	if _, err := m.Sample(context.Background(), "NOPE"); err == nil {
		t.Error("expected error for unknown symbol")
	}

	m.AddSymbol("NOPE")
	if _, err := m.Sample(context.Background(), "NOPE"); err != nil {
		t.Errorf("symbol should be known after AddSymbol: %v", err)
	}
}
