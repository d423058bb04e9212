package signal

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"meme-trading-bot/internal/clock"
	"meme-trading-bot/internal/types"
)

const (
	minConfidence   = 0.4
	confidenceBoost = 0.1
	confidenceCap   = 0.95
	positionFrac    = 0.1
)

// Config carries the stop-loss/take-profit magnitudes; the generator
// applies the sign per action.
type Config struct {
	StopLossPct   float64
	TakeProfitPct float64
}

// Generator turns classifications plus a risk assessment into order
// proposals. A hold decision never leaves this package.
type Generator struct {
	cfg Config
	clk clock.Clock
	log *slog.Logger
}

func New(cfg Config, clk clock.Clock, log *slog.Logger) *Generator {
	return &Generator{cfg: cfg, clk: clk, log: log}
}

// Generate evaluates each classification in turn and returns the batch
// sorted by confidence descending so the strongest signals execute
// first.
func (g *Generator) Generate(ctx context.Context, analyses []types.MarketAnalysis, assessment types.RiskAssessment, prices map[string]float64) []types.TradingSignal {
	signals := make([]types.TradingSignal, 0, len(analyses))
	for _, analysis := range analyses {
		sig, ok := g.generateOne(analysis, assessment, prices[analysis.Symbol])
		if !ok {
			continue
		}
		signals = append(signals, sig)
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Confidence > signals[j].Confidence
	})
	return signals
}

func (g *Generator) generateOne(analysis types.MarketAnalysis, assessment types.RiskAssessment, price float64) (types.TradingSignal, bool) {
	// Both the local and the portfolio-level read must agree to block.
	if analysis.RiskLevel == types.RiskHigh && assessment.RiskLevel == types.RiskHigh {
		g.log.Debug("signal suppressed, risk agreement",
			"symbol", analysis.Symbol)
		return types.TradingSignal{}, false
	}
	if analysis.Confidence < minConfidence {
		return types.TradingSignal{}, false
	}

	action := pickAction(analysis)
	if action == types.ActionHold {
		return types.TradingSignal{}, false
	}

	confidence := math.Min(analysis.Confidence+confidenceBoost, confidenceCap)
	quantity := math.Round(positionFrac * assessment.MaxPositionSize * confidence)

	stop, take := g.cfg.StopLossPct, g.cfg.TakeProfitPct
	if action == types.ActionBuy {
		stop = -stop
	} else {
		take = -take
	}

	return types.TradingSignal{
		Symbol:     analysis.Symbol,
		Action:     action,
		Quantity:   quantity,
		Price:      price,
		Strategy:   "trend_follow",
		Confidence: confidence,
		StopLoss:   &stop,
		TakeProfit: &take,
		Timestamp:  g.clk.Now(),
	}, true
}

// pickAction requires both the voted trend and a confirming tag.
func pickAction(analysis types.MarketAnalysis) types.Action {
	switch analysis.Trend {
	case types.TrendBullish:
		if hasTagContaining(analysis.Signals, "bullish") {
			return types.ActionBuy
		}
	case types.TrendBearish:
		if hasTagContaining(analysis.Signals, "bearish") {
			return types.ActionSell
		}
	}
	return types.ActionHold
}

func hasTagContaining(tags []string, substr string) bool {
	for _, tag := range tags {
		if strings.Contains(tag, substr) {
			return true
		}
	}
	return false
}
