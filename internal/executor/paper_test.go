package executor

import (
	"context"
	"path/filepath"
	"testing"

	"meme-trading-bot/internal/chain"
	"meme-trading-bot/internal/logger"
	"meme-trading-bot/internal/risk"
	"meme-trading-bot/internal/types"
)

func newPaper(t *testing.T, initial float64) (*Paper, *risk.Gate) {
	t.Helper()
	client, err := chain.NewClient(filepath.Join(t.TempDir(), "wallet.key"), 1, logger.Discard())
	if err != nil {
		t.Fatalf("chain client: %v", err)
	}
	gate := risk.New(risk.Config{MaxPositionSize: 1000, MaxOpenPositions: 5}, logger.Discard())
	return NewPaper(initial, client, gate, logger.Discard()), gate
}

func buy(symbol string, qty, price float64) types.TradingSignal {
	return types.TradingSignal{Symbol: symbol, Action: types.ActionBuy, Quantity: qty, Price: price}
}

func sell(symbol string, qty, price float64) types.TradingSignal {
	return types.TradingSignal{Symbol: symbol, Action: types.ActionSell, Quantity: qty, Price: price}
}

func TestBuyOpensPosition(t *testing.T) {
	p, _ := newPaper(t, 10000)

	result, err := p.Execute(context.Background(), buy("DOGE", 100, 2))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Status != types.ExecExecuted {
		t.Fatalf("status = %s (%s)", result.Status, result.Message)
	}

	snap := p.PortfolioSnapshot()
	if len(snap.Positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(snap.Positions))
	}
	pos := snap.Positions[0]
	if pos.Symbol != "DOGE" || pos.Quantity != 100 || pos.AvgPrice != 2 {
		t.Errorf("unexpected position: %+v", pos)
	}
	// Cash dropped by notional + fee, position valued at last price.
	if snap.CurrentValue >= 10000 {
		t.Errorf("the fee should leave value below initial, got %f", snap.CurrentValue)
	}
}

func TestBuyAveragesPrice(t *testing.T) {
	p, _ := newPaper(t, 10000)
	ctx := context.Background()

	p.Execute(ctx, buy("DOGE", 100, 2))
	p.Execute(ctx, buy("DOGE", 100, 4))

	snap := p.PortfolioSnapshot()
	if len(snap.Positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(snap.Positions))
	}
	if got := snap.Positions[0].AvgPrice; got != 3 {
		t.Errorf("average price = %f, want 3", got)
	}
	if got := snap.Positions[0].Quantity; got != 200 {
		t.Errorf("quantity = %f, want 200", got)
	}
}

func TestBuyFailsWithoutCash(t *testing.T) {
	p, _ := newPaper(t, 100)

	result, err := p.Execute(context.Background(), buy("DOGE", 1000, 2))
	if err != nil {
		t.Fatalf("a rejected fill is not an error: %v", err)
	}
	if result.Status != types.ExecFailed {
		t.Errorf("status = %s, want failed", result.Status)
	}
	if snap := p.PortfolioSnapshot(); len(snap.Positions) != 0 {
		t.Errorf("failed fill must not open a position: %+v", snap.Positions)
	}
}

func TestSellRealizesLossIntoGate(t *testing.T) {
	p, gate := newPaper(t, 10000)
	ctx := context.Background()

	p.Execute(ctx, buy("DOGE", 100, 2))
	result, err := p.Execute(ctx, sell("DOGE", 100, 1))
	if err != nil || result.Status != types.ExecExecuted {
		t.Fatalf("sell failed: %v %+v", err, result)
	}

	// 100 shares down 1.0 each, plus fees.
	if got := gate.DailyLoss(); got <= 100 {
		t.Errorf("daily loss should include the realized loss and fee, got %f", got)
	}
	if snap := p.PortfolioSnapshot(); len(snap.Positions) != 0 {
		t.Errorf("full sell should close the position: %+v", snap.Positions)
	}
}

func TestSellWithoutPositionFails(t *testing.T) {
	p, _ := newPaper(t, 10000)

	result, err := p.Execute(context.Background(), sell("DOGE", 10, 2))
	if err != nil {
		t.Fatalf("a rejected fill is not an error: %v", err)
	}
	if result.Status != types.ExecFailed {
		t.Errorf("status = %s, want failed", result.Status)
	}
}

func TestCloseAllPositions(t *testing.T) {
	p, gate := newPaper(t, 10000)
	ctx := context.Background()

	p.Execute(ctx, buy("DOGE", 100, 2))
	p.Execute(ctx, buy("PEPE", 1000, 0.5))

	if err := p.CloseAllPositions(ctx); err != nil {
		t.Fatalf("CloseAllPositions failed: %v", err)
	}
	snap := p.PortfolioSnapshot()
	if len(snap.Positions) != 0 {
		t.Errorf("expected flat book, got %+v", snap.Positions)
	}

	assessment := gate.AssessRisk(nil, snap)
	if assessment.RiskScore >= 30 {
		t.Errorf("flat book after round-trip fees should stay low risk, got %d", assessment.RiskScore)
	}
}
