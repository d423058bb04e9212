package risk

import (
	"testing"

	"meme-trading-bot/internal/logger"
	"meme-trading-bot/internal/types"
)

func newGate() *Gate {
	return New(Config{
		MaxPositionSize:  1000,
		MaxDailyLoss:     500,
		MaxDrawdown:      0.2,
		MaxOpenPositions: 3,
	}, logger.Discard())
}

func healthyPortfolio() types.PortfolioSnapshot {
	return types.PortfolioSnapshot{InitialValue: 10000, CurrentValue: 10000}
}

func TestAssessRiskCleanPortfolio(t *testing.T) {
	g := newGate()

	got := g.AssessRisk(nil, healthyPortfolio())
	if !got.IsAcceptable || got.RiskScore != 0 || got.RiskLevel != types.RiskLow {
		t.Errorf("clean state should score 0/low/acceptable, got %+v", got)
	}
	if got.MaxPositionSize != 1000 {
		t.Errorf("full position size at score 0, got %f", got.MaxPositionSize)
	}
}

func TestAssessRiskMediumStillAcceptable(t *testing.T) {
	g := newGate()
	g.UpdateDailyLoss(500)

	// Daily loss alone: score 50, medium, acceptable, 0.3x sizing.
	got := g.AssessRisk(nil, healthyPortfolio())
	if got.RiskScore != 50 {
		t.Errorf("score = %d, want 50", got.RiskScore)
	}
	if !got.IsAcceptable {
		t.Error("score 50 must still be acceptable")
	}
	if got.RiskLevel != types.RiskMedium {
		t.Errorf("level = %s, want medium", got.RiskLevel)
	}
	if got.MaxPositionSize != 300 {
		t.Errorf("position ceiling = %f, want 300", got.MaxPositionSize)
	}
}

func TestAssessRiskRejectsAtSeventy(t *testing.T) {
	g := newGate()
	g.UpdateDailyLoss(500)

	// Daily loss (50) + drawdown (40): score 90.
	drawn := types.PortfolioSnapshot{InitialValue: 10000, CurrentValue: 7000}
	got := g.AssessRisk(nil, drawn)
	if got.RiskScore != 90 {
		t.Errorf("score = %d, want 90", got.RiskScore)
	}
	if got.IsAcceptable {
		t.Error("score 90 must be rejected")
	}
	if got.RiskLevel != types.RiskHigh {
		t.Errorf("level = %s, want high", got.RiskLevel)
	}
	if got.MaxPositionSize != 100 {
		t.Errorf("position ceiling = %f, want 100", got.MaxPositionSize)
	}
	if len(got.Warnings) != 2 {
		t.Errorf("expected 2 warnings, got %v", got.Warnings)
	}
}

func TestAssessRiskCountsOpenPositionsAndHighAnalyses(t *testing.T) {
	g := newGate()
	g.UpdateOpenPositions(3)

	analyses := []types.MarketAnalysis{
		{Symbol: "DOGE", RiskLevel: types.RiskLow},
		{Symbol: "PEPE", RiskLevel: types.RiskHigh},
	}
	got := g.AssessRisk(analyses, healthyPortfolio())
	if got.RiskScore != 50 {
		t.Errorf("positions (30) + high analysis (20) = 50, got %d", got.RiskScore)
	}
}

func TestGainIsNotDrawdown(t *testing.T) {
	g := newGate()

	up := types.PortfolioSnapshot{InitialValue: 10000, CurrentValue: 12000}
	if got := g.AssessRisk(nil, up); got.RiskScore != 0 {
		t.Errorf("a gain must not score as drawdown, got %d", got.RiskScore)
	}
}

func TestValidateSignalPassesAtScoreTwenty(t *testing.T) {
	g := newGate()
	stop, take := -5.0, 10.0

	sig := types.TradingSignal{
		Symbol:     "DOGE",
		Action:     types.ActionBuy,
		Quantity:   10,
		Price:      2,
		Confidence: 0.5, // below 0.6: +20
		StopLoss:   &stop,
		TakeProfit: &take,
	}
	got := g.ValidateSignal(sig)
	if got.RiskScore != 20 {
		t.Errorf("score = %d, want 20", got.RiskScore)
	}
	if !got.IsValid {
		t.Error("score 20 must pass validation")
	}
}

func TestValidateSignalRejectsAtFifty(t *testing.T) {
	g := newGate()

	// Oversized (30) + low confidence (20): score 50 rejects.
	sig := types.TradingSignal{
		Symbol:     "DOGE",
		Action:     types.ActionBuy,
		Quantity:   1000,
		Price:      2,
		Confidence: 0.5,
		StopLoss:   new(float64),
		TakeProfit: new(float64),
	}
	got := g.ValidateSignal(sig)
	if got.RiskScore != 50 {
		t.Errorf("score = %d, want 50", got.RiskScore)
	}
	if got.IsValid {
		t.Error("score 50 must fail validation")
	}
}

func TestValidateSignalMissingExitsAndPositionCap(t *testing.T) {
	g := newGate()
	g.UpdateOpenPositions(3)

	sig := types.TradingSignal{
		Symbol:     "DOGE",
		Action:     types.ActionBuy,
		Quantity:   10,
		Price:      2,
		Confidence: 0.8,
	}
	got := g.ValidateSignal(sig)
	if got.RiskScore != 40 {
		t.Errorf("missing exits (15) + at cap (25) = 40, got %d", got.RiskScore)
	}
	if !got.IsValid {
		t.Error("score 40 must still pass")
	}
}

func TestDailyLossFloorAndReset(t *testing.T) {
	g := newGate()

	g.UpdateDailyLoss(100)
	g.UpdateDailyLoss(-300)
	if got := g.DailyLoss(); got != 0 {
		t.Errorf("daily loss must not go negative, got %f", got)
	}

	g.UpdateDailyLoss(250)
	g.ResetDailyLoss()
	if got := g.DailyLoss(); got != 0 {
		t.Errorf("reset should zero the counter, got %f", got)
	}
}
