package risk

import (
	"log/slog"
	"sync"

	"meme-trading-bot/internal/types"
)

const (
	scoreDailyLoss     = 50
	scoreDrawdown      = 40
	scoreOpenPositions = 30
	scoreHighAnalysis  = 20

	scoreOversized     = 30
	scoreLowConfidence = 20
	scoreMissingExits  = 15
	scoreAtPositionCap = 25

	assessRejectAt   = 70
	assessMediumAt   = 30
	validateRejectAt = 50

	minSignalConfidence = 0.6
)

// Config carries the portfolio-level limits the gate enforces.
type Config struct {
	MaxPositionSize  float64
	MaxDailyLoss     float64
	MaxDrawdown      float64
	MaxOpenPositions int
}

// Gate scores every cycle and every signal against the configured
// limits. Rejections are verdict values, never errors. The counters
// are fed back by the execution provider.
type Gate struct {
	cfg Config
	log *slog.Logger

	mu            sync.Mutex
	dailyLoss     float64
	openPositions int
}

func New(cfg Config, log *slog.Logger) *Gate {
	return &Gate{cfg: cfg, log: log}
}

// AssessRisk scores the portfolio-level state. Scores of 70 and above
// reject the whole cycle; lower scores still shrink the position
// ceiling in steps.
func (g *Gate) AssessRisk(analyses []types.MarketAnalysis, portfolio types.PortfolioSnapshot) types.RiskAssessment {
	g.mu.Lock()
	dailyLoss, openPositions := g.dailyLoss, g.openPositions
	g.mu.Unlock()

	score := 0
	var warnings []string

	if g.cfg.MaxDailyLoss > 0 && dailyLoss >= g.cfg.MaxDailyLoss {
		score += scoreDailyLoss
		warnings = append(warnings, "daily loss limit reached")
	}
	if dd := drawdown(portfolio); dd > g.cfg.MaxDrawdown {
		score += scoreDrawdown
		warnings = append(warnings, "drawdown limit exceeded")
	}
	if g.cfg.MaxOpenPositions > 0 && openPositions >= g.cfg.MaxOpenPositions {
		score += scoreOpenPositions
		warnings = append(warnings, "open position limit reached")
	}
	if anyHighRisk(analyses) {
		score += scoreHighAnalysis
		warnings = append(warnings, "high risk market conditions")
	}

	assessment := types.RiskAssessment{
		IsAcceptable:    score < assessRejectAt,
		RiskLevel:       levelFor(score),
		RiskScore:       score,
		Warnings:        warnings,
		MaxPositionSize: g.cfg.MaxPositionSize * positionScale(score),
	}
	if !assessment.IsAcceptable {
		g.log.Warn("cycle rejected by risk gate",
			"score", score, "warnings", warnings)
	}
	return assessment
}

// ValidateSignal scores one signal. The threshold is deliberately
// lower than the cycle-level one: a cycle that squeaked through can
// still lose individual signals here.
func (g *Gate) ValidateSignal(signal types.TradingSignal) types.SignalValidation {
	g.mu.Lock()
	openPositions := g.openPositions
	g.mu.Unlock()

	score := 0
	var warnings []string

	if g.cfg.MaxPositionSize > 0 && signal.Quantity*signal.Price > g.cfg.MaxPositionSize {
		score += scoreOversized
		warnings = append(warnings, "position value exceeds limit")
	}
	if signal.Confidence < minSignalConfidence {
		score += scoreLowConfidence
		warnings = append(warnings, "low confidence signal")
	}
	if signal.StopLoss == nil || signal.TakeProfit == nil {
		score += scoreMissingExits
		warnings = append(warnings, "missing stop-loss or take-profit")
	}
	if g.cfg.MaxOpenPositions > 0 && openPositions >= g.cfg.MaxOpenPositions {
		score += scoreAtPositionCap
		warnings = append(warnings, "at open position limit")
	}

	return types.SignalValidation{
		IsValid:   score < validateRejectAt,
		RiskScore: score,
		Warnings:  warnings,
	}
}

// UpdateDailyLoss adds a realized loss delta. Profitable closes pass a
// negative delta; the running total never goes below zero.
func (g *Gate) UpdateDailyLoss(delta float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dailyLoss += delta
	if g.dailyLoss < 0 {
		g.dailyLoss = 0
	}
}

func (g *Gate) UpdateOpenPositions(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.openPositions = n
}

func (g *Gate) ResetDailyLoss() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dailyLoss = 0
}

func (g *Gate) DailyLoss() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dailyLoss
}

func drawdown(p types.PortfolioSnapshot) float64 {
	if p.InitialValue <= 0 {
		return 0
	}
	dd := (p.InitialValue - p.CurrentValue) / p.InitialValue
	if dd < 0 {
		return 0
	}
	return dd
}

func anyHighRisk(analyses []types.MarketAnalysis) bool {
	for _, a := range analyses {
		if a.RiskLevel == types.RiskHigh {
			return true
		}
	}
	return false
}

func levelFor(score int) types.RiskLevel {
	switch {
	case score >= assessRejectAt:
		return types.RiskHigh
	case score >= assessMediumAt:
		return types.RiskMedium
	default:
		return types.RiskLow
	}
}

// positionScale shrinks the position ceiling in steps as risk mounts.
func positionScale(score int) float64 {
	switch {
	case score >= 70:
		return 0.1
	case score >= 50:
		return 0.3
	case score >= 30:
		return 0.6
	default:
		return 1.0
	}
}
