package analyzer

import (
	"context"
	"testing"
	"time"

	"meme-trading-bot/internal/clock"
	"meme-trading-bot/internal/logger"
	"meme-trading-bot/internal/recall"
	"meme-trading-bot/internal/types"
)

func newAnalyzer(t *testing.T) (*Analyzer, *recall.Store, *clock.Fixed) {
	t.Helper()
	clk := &clock.Fixed{T: time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)}
	store := recall.New(nil, clk, logger.Discard())
	return New(store, logger.Discard()), store, clk
}

func f(v float64) *float64 { return &v }

func sample(symbol string, price float64, ind types.Indicators) types.MarketSample {
	return types.MarketSample{Symbol: symbol, Price: price, Volume: 100, Indicators: ind}
}

func TestTrendVoteBullishMajority(t *testing.T) {
	a, _, _ := newAnalyzer(t)

	// rsi_oversold + macd_bullish + price_above_ma: 3 bullish, 0 bearish.
	s := sample("DOGE", 2.0, types.Indicators{RSI: f(25), MACD: f(0.5), MA: f(1.5)})
	got := a.Analyze(context.Background(), []types.MarketSample{s})[0]
	if got.Trend != types.TrendBullish {
		t.Errorf("expected bullish, got %s (tags %v)", got.Trend, got.Signals)
	}
}

func TestTrendVoteWeakMajorityStaysNeutral(t *testing.T) {
	a, _, _ := newAnalyzer(t)

	// macd_bullish alone: 1 vs 0 is not a >1 margin.
	s := sample("DOGE", 2.0, types.Indicators{MACD: f(0.5)})
	got := a.Analyze(context.Background(), []types.MarketSample{s})[0]
	if got.Trend != types.TrendNeutral {
		t.Errorf("a margin of one must stay neutral, got %s", got.Trend)
	}
}

func TestTechnicalTags(t *testing.T) {
	a, _, _ := newAnalyzer(t)

	s := sample("DOGE", 1.0, types.Indicators{RSI: f(80), MACD: f(-0.1), MA: f(1.5), Volatility: f(0.01)})
	got := a.Analyze(context.Background(), []types.MarketSample{s})[0]

	want := []string{"rsi_overbought", "macd_bearish", "price_below_ma", "low_volatility"}
	if len(got.Signals) != len(want) {
		t.Fatalf("expected tags %v, got %v", want, got.Signals)
	}
	for i, tag := range want {
		if got.Signals[i] != tag {
			t.Errorf("tag[%d] = %s, want %s", i, got.Signals[i], tag)
		}
	}
	if got.Trend != types.TrendBearish {
		t.Errorf("3 bearish vs 0 bullish should classify bearish, got %s", got.Trend)
	}
}

func TestAbsentIndicatorsContributeNothing(t *testing.T) {
	a, _, _ := newAnalyzer(t)

	got := a.Analyze(context.Background(), []types.MarketSample{sample("DOGE", 1.0, types.Indicators{})})[0]
	if len(got.Signals) != 0 {
		t.Errorf("no indicators should mean no tags, got %v", got.Signals)
	}
	if got.Confidence != 0.5 {
		t.Errorf("confidence base should be 0.5, got %f", got.Confidence)
	}
}

func TestBadSampleYieldsSafeDefaultWithoutBlockingBatch(t *testing.T) {
	a, _, _ := newAnalyzer(t)

	bad := types.MarketSample{Symbol: "BAD", Price: -1}
	good := sample("DOGE", 1.0, types.Indicators{MACD: f(1)})
	got := a.Analyze(context.Background(), []types.MarketSample{bad, good})

	if len(got) != 2 {
		t.Fatalf("batch must not shrink, got %d", len(got))
	}
	def := got[0]
	if def.Trend != types.TrendNeutral || def.Strength != 0.5 || def.Confidence != 0.3 || def.RiskLevel != types.RiskMedium {
		t.Errorf("wrong safe default: %+v", def)
	}
	if len(def.Signals) != 1 || def.Signals[0] != "analysis_failed" {
		t.Errorf("safe default should carry analysis_failed, got %v", def.Signals)
	}
	if got[1].Symbol != "DOGE" || len(got[1].Signals) == 0 {
		t.Errorf("good sample should still be analyzed: %+v", got[1])
	}
}

func TestPatternTagsRequireMinimumHistory(t *testing.T) {
	a, store, clk := newAnalyzer(t)
	ctx := context.Background()

	seedCycles(store, clk, "DOGE", []float64{1, 2, 3}, 100)

	s := sample("DOGE", 3.1, types.Indicators{})
	got := a.Analyze(ctx, []types.MarketSample{s})[0]
	if len(got.Signals) != 0 {
		t.Errorf("below 10 records pattern analysis must be skipped, got %v", got.Signals)
	}
}

func TestPatternTagsUptrendContinuation(t *testing.T) {
	a, store, clk := newAnalyzer(t)
	ctx := context.Background()

	// 12 cycles with strictly increasing prices.
	prices := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	seedCycles(store, clk, "DOGE", prices, 100)

	s := sample("DOGE", 12.1, types.Indicators{})
	got := a.Analyze(ctx, []types.MarketSample{s})[0]

	if !hasTag(got.Signals, "uptrend_continuation") {
		t.Errorf("expected uptrend_continuation, got %v", got.Signals)
	}
	if !hasTag(got.Signals, "near_resistance") {
		t.Errorf("price at the observed maximum should tag near_resistance, got %v", got.Signals)
	}
}

func TestHistoryReSortedChronologically(t *testing.T) {
	a, store, clk := newAnalyzer(t)
	ctx := context.Background()

	// Mixed importances push relevance order far from insertion
	// order; the trend math still needs the series oldest-first.
	prices := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	for i, p := range prices {
		imp := 0.2
		if i%3 == 0 {
			imp = 0.9
		}
		store.Append(recall.KindCycle, recall.CyclePayload{
			Samples: []types.MarketSample{{Symbol: "DOGE", Price: p, Volume: 100, Timestamp: clk.Now()}},
		}, []string{"DOGE"}, imp)
		clk.Advance(time.Minute)
	}

	got := a.Analyze(ctx, []types.MarketSample{sample("DOGE", 12.5, types.Indicators{})})[0]
	if !hasTag(got.Signals, "uptrend_continuation") {
		t.Errorf("strictly increasing history must tag uptrend_continuation, got %v", got.Signals)
	}
}

func TestPatternTagsVolumeSpike(t *testing.T) {
	a, store, clk := newAnalyzer(t)
	ctx := context.Background()

	prices := []float64{5, 4, 5, 4, 5, 4, 5, 4, 5, 4, 5, 4}
	seedCycles(store, clk, "DOGE", prices, 100)

	s := types.MarketSample{Symbol: "DOGE", Price: 4.5, Volume: 1000}
	got := a.Analyze(ctx, []types.MarketSample{s})[0]
	if !hasTag(got.Signals, "high_volume") {
		t.Errorf("10x trailing volume should tag high_volume, got %v", got.Signals)
	}

	quiet := types.MarketSample{Symbol: "DOGE", Price: 4.5, Volume: 10}
	got = a.Analyze(ctx, []types.MarketSample{quiet})[0]
	if !hasTag(got.Signals, "low_volume") {
		t.Errorf("a tenth of trailing volume should tag low_volume, got %v", got.Signals)
	}
}

func TestConfidenceAccumulates(t *testing.T) {
	a, _, _ := newAnalyzer(t)

	s := sample("DOGE", 2.0, types.Indicators{RSI: f(25), MACD: f(0.5), MA: f(1.5), Volatility: f(0.01)})
	got := a.Analyze(context.Background(), []types.MarketSample{s})[0]

	// 4 technical tags, no pattern tags: 0.5 + 4*0.05.
	if diff := got.Confidence - 0.7; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("confidence = %f, want 0.7", got.Confidence)
	}
}

func TestRiskLevelScoring(t *testing.T) {
	a, _, _ := newAnalyzer(t)

	calm := sample("DOGE", 2.0, types.Indicators{Volatility: f(0.01)})
	if got := a.Analyze(context.Background(), []types.MarketSample{calm})[0]; got.RiskLevel != types.RiskLow {
		t.Errorf("calm market should be low risk, got %s", got.RiskLevel)
	}

	volatile := sample("DOGE", 2.0, types.Indicators{Volatility: f(0.2)})
	if got := a.Analyze(context.Background(), []types.MarketSample{volatile})[0]; got.RiskLevel != types.RiskMedium {
		t.Errorf("high volatility alone scores 2 points, medium, got %s", got.RiskLevel)
	}
}

func seedCycles(store *recall.Store, clk *clock.Fixed, symbol string, prices []float64, volume float64) {
	for _, p := range prices {
		store.Append(recall.KindCycle, recall.CyclePayload{
			Samples: []types.MarketSample{{Symbol: symbol, Price: p, Volume: volume, Timestamp: clk.Now()}},
		}, []string{symbol}, 0.5)
		clk.Advance(time.Minute)
	}
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
