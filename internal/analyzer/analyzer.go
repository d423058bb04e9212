package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"meme-trading-bot/internal/recall"
	"meme-trading-bot/internal/types"
)

const (
	rsiOversold    = 30
	rsiOverbought  = 70
	highVolatility = 0.05

	historyLimit      = 50
	minHistoryRecords = 10
)

// Analyzer classifies market samples with stateless indicator
// thresholds plus pattern lookups against prior cycle records for the
// same symbol.
type Analyzer struct {
	store *recall.Store
	log   *slog.Logger
}

func New(store *recall.Store, log *slog.Logger) *Analyzer {
	return &Analyzer{store: store, log: log}
}

// Analyze classifies a batch. One bad sample never blocks the others:
// a per-symbol failure is logged and replaced by a safe default.
func (a *Analyzer) Analyze(ctx context.Context, samples []types.MarketSample) []types.MarketAnalysis {
	out := make([]types.MarketAnalysis, 0, len(samples))
	for _, sample := range samples {
		analysis, err := a.analyzeOne(ctx, sample)
		if err != nil {
			a.log.Warn("analysis failed, using safe default",
				"symbol", sample.Symbol, "error", err)
			analysis = safeDefault(sample.Symbol)
		}
		out = append(out, analysis)
	}
	return out
}

func (a *Analyzer) analyzeOne(ctx context.Context, sample types.MarketSample) (types.MarketAnalysis, error) {
	if sample.Symbol == "" || sample.Price <= 0 {
		return types.MarketAnalysis{}, fmt.Errorf("invalid sample for %q: price %f", sample.Symbol, sample.Price)
	}

	tags := technicalTags(sample)
	techCount := len(tags)

	history, err := a.symbolHistory(sample.Symbol)
	if err != nil {
		return types.MarketAnalysis{}, fmt.Errorf("history lookup: %w", err)
	}
	patternTags := patternTags(sample, history)
	tags = append(tags, patternTags...)

	trend := voteTrend(tags)
	strength := strengthScore(tags, sample.Indicators.Volatility)
	confidence := confidenceScore(techCount, len(patternTags))

	return types.MarketAnalysis{
		Symbol:     sample.Symbol,
		Trend:      trend,
		Strength:   strength,
		Confidence: confidence,
		Signals:    tags,
		RiskLevel:  riskLevel(sample.Indicators.Volatility, confidence, strength),
	}, nil
}

// symbolHistory pulls up to the 50 most relevant cycle records tagged
// with the symbol and returns that symbol's samples oldest-first.
func (a *Analyzer) symbolHistory(symbol string) ([]types.MarketSample, error) {
	kind := recall.KindCycle
	records, err := a.store.Query(recall.Filter{
		Kind:  &kind,
		Tags:  []string{symbol},
		Limit: historyLimit,
	})
	if err != nil {
		return nil, err
	}
	if len(records) < minHistoryRecords {
		return nil, nil
	}

	// Relevance order is not chronological; re-sort for series math.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	samples := make([]types.MarketSample, 0, len(records))
	for _, rec := range records {
		cycle, ok := rec.Payload.(recall.CyclePayload)
		if !ok {
			continue
		}
		if s, ok := cycle.SampleFor(symbol); ok {
			samples = append(samples, s)
		}
	}
	return samples, nil
}

// technicalTags applies the stateless indicator thresholds. Absent
// indicators contribute no tag.
func technicalTags(sample types.MarketSample) []string {
	var tags []string
	ind := sample.Indicators

	if ind.RSI != nil {
		if *ind.RSI < rsiOversold {
			tags = append(tags, "rsi_oversold")
		} else if *ind.RSI > rsiOverbought {
			tags = append(tags, "rsi_overbought")
		}
	}
	if ind.MACD != nil {
		if *ind.MACD > 0 {
			tags = append(tags, "macd_bullish")
		} else {
			tags = append(tags, "macd_bearish")
		}
	}
	if ind.MA != nil {
		if sample.Price > *ind.MA {
			tags = append(tags, "price_above_ma")
		} else {
			tags = append(tags, "price_below_ma")
		}
	}
	if ind.Volatility != nil {
		if *ind.Volatility > highVolatility {
			tags = append(tags, "high_volatility")
		} else {
			tags = append(tags, "low_volatility")
		}
	}
	return tags
}

// voteTrend tallies bullish against bearish tag hits. A weak majority
// (margin of one) stays neutral on purpose.
func voteTrend(tags []string) types.Trend {
	bullish, bearish := 0, 0
	for _, tag := range tags {
		if strings.Contains(tag, "bullish") || strings.Contains(tag, "above") || strings.Contains(tag, "oversold") {
			bullish++
		}
		if strings.Contains(tag, "bearish") || strings.Contains(tag, "below") || strings.Contains(tag, "overbought") {
			bearish++
		}
	}
	switch {
	case bullish > bearish+1:
		return types.TrendBullish
	case bearish > bullish+1:
		return types.TrendBearish
	default:
		return types.TrendNeutral
	}
}

func strengthScore(tags []string, volatility *float64) float64 {
	strength := 0.5
	for _, tag := range tags {
		if strings.Contains(tag, "strong") {
			strength += 0.1
		}
		if strings.Contains(tag, "weak") {
			strength -= 0.1
		}
	}
	if volatility != nil {
		strength += *volatility * 0.5
	}
	if strength < 0 {
		return 0
	}
	if strength > 1 {
		return 1
	}
	return strength
}

func confidenceScore(techTags, patternTags int) float64 {
	confidence := 0.5 + 0.05*float64(techTags) + 0.03*float64(patternTags)
	if confidence > 0.95 {
		return 0.95
	}
	return confidence
}

func riskLevel(volatility *float64, confidence, strength float64) types.RiskLevel {
	score := 0
	if volatility != nil && *volatility > 0.1 {
		score += 2
	}
	if confidence < 0.4 {
		score += 2
	}
	if strength > 0.8 {
		score++
	}
	switch {
	case score >= 3:
		return types.RiskHigh
	case score >= 1:
		return types.RiskMedium
	default:
		return types.RiskLow
	}
}

func safeDefault(symbol string) types.MarketAnalysis {
	return types.MarketAnalysis{
		Symbol:     symbol,
		Trend:      types.TrendNeutral,
		Strength:   0.5,
		Confidence: 0.3,
		Signals:    []string{"analysis_failed"},
		RiskLevel:  types.RiskMedium,
	}
}
