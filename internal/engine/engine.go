package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"meme-trading-bot/internal/analyzer"
	"meme-trading-bot/internal/clock"
	"meme-trading-bot/internal/interfaces"
	"meme-trading-bot/internal/recall"
	"meme-trading-bot/internal/risk"
	"meme-trading-bot/internal/signal"
	"meme-trading-bot/internal/types"
)

// State is the orchestrator's lifecycle phase.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
)

// Config holds the timer periods. The trading and scan timers are
// fully independent; pausing stops both, resuming re-arms both.
type Config struct {
	TradingInterval time.Duration
	ScanInterval    time.Duration
	ScanEnabled     bool
}

// Bot drives the trading and scan cycles off two independent tickers.
// Pause and Shutdown cancel the ticker context; in-flight ticks finish
// and Resume arms a fresh pair, so at most one ticker of each kind is
// ever live.
type Bot struct {
	cfg      Config
	market   interfaces.MarketData
	executor interfaces.Executor
	scanner  interfaces.Scanner
	analyzer *analyzer.Analyzer
	gen      *signal.Generator
	gate     *risk.Gate
	store    *recall.Store
	clk      clock.Clock
	log      *slog.Logger

	mu      sync.Mutex
	state   State
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var _ interfaces.Bot = (*Bot)(nil)

func New(cfg Config, market interfaces.MarketData, executor interfaces.Executor, scanner interfaces.Scanner,
	an *analyzer.Analyzer, gen *signal.Generator, gate *risk.Gate, store *recall.Store,
	clk clock.Clock, log *slog.Logger) *Bot {
	return &Bot{
		cfg:      cfg,
		market:   market,
		executor: executor,
		scanner:  scanner,
		analyzer: an,
		gen:      gen,
		gate:     gate,
		store:    store,
		clk:      clk,
		log:      log,
		state:    StateIdle,
	}
}

func (b *Bot) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bot) isRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Start arms the tickers. Valid only from idle.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateIdle {
		b.mu.Unlock()
		return fmt.Errorf("cannot start from state %q", b.state)
	}
	b.state = StateRunning
	b.running = true
	b.mu.Unlock()

	b.log.Info("bot started",
		"trading_interval", b.cfg.TradingInterval,
		"scan_enabled", b.cfg.ScanEnabled)
	b.armTickers(ctx)
	return nil
}

// Pause cancels the ticker context so both ticker goroutines exit
// before Resume arms new ones. A tick already past its select runs to
// completion.
func (b *Bot) Pause() error {
	b.mu.Lock()
	if b.state != StateRunning {
		b.mu.Unlock()
		return fmt.Errorf("cannot pause from state %q", b.state)
	}
	b.state = StatePaused
	b.running = false
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	b.log.Info("bot paused")
	return nil
}

// Resume re-arms both tickers from scratch.
func (b *Bot) Resume(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StatePaused {
		b.mu.Unlock()
		return fmt.Errorf("cannot resume from state %q", b.state)
	}
	b.state = StateRunning
	b.running = true
	b.mu.Unlock()

	b.log.Info("bot resumed")
	b.armTickers(ctx)
	return nil
}

// Shutdown stops the tickers, liquidates the book and flushes the
// recall store. Terminal.
func (b *Bot) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if b.state == StateStopped {
		b.mu.Unlock()
		return nil
	}
	b.state = StateStopped
	b.running = false
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	b.wg.Wait()

	if err := b.executor.CloseAllPositions(ctx); err != nil {
		b.log.Error("close positions on shutdown failed", "error", err)
		return err
	}
	if err := b.store.SaveSnapshot(); err != nil {
		b.log.Warn("final snapshot failed", "error", err)
	}
	b.log.Info("bot stopped")
	return nil
}

func (b *Bot) armTickers(ctx context.Context) {
	tickCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()

	b.runTicker(tickCtx, b.cfg.TradingInterval, b.TradingTick)
	if b.cfg.ScanEnabled && b.scanner != nil {
		b.runTicker(tickCtx, b.cfg.ScanInterval, b.ScanTick)
	}
}

// runTicker loops on its own ticker until the context ends or the
// running flag is observed false.
func (b *Bot) runTicker(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !b.isRunning() {
					return
				}
				fn(ctx)
			}
		}
	}()
}

// TradingTick runs one full trading cycle. Exactly one cycle record is
// appended no matter what happens inside; per-symbol and per-signal
// failures are logged and skipped.
func (b *Bot) TradingTick(ctx context.Context) {
	samples, err := b.market.CurrentSamples(ctx)
	if err != nil {
		b.log.Warn("market samples unavailable", "error", err)
	}

	analyses := b.analyzer.Analyze(ctx, samples)
	portfolio := b.executor.PortfolioSnapshot()
	assessment := b.gate.AssessRisk(analyses, portfolio)

	executed := 0
	if assessment.IsAcceptable {
		executed = b.runSignals(ctx, analyses, assessment, samples)
	}

	importance := 0.5
	if executed > 0 {
		importance = 0.8
	}
	_, err = b.store.Append(recall.KindCycle, recall.CyclePayload{
		Samples:    samples,
		Analyses:   analyses,
		Assessment: assessment,
		Portfolio:  portfolio,
	}, cycleTags(samples), importance)
	if err != nil {
		b.log.Error("cycle record append failed", "error", err)
	}

	b.log.Info("trading cycle complete",
		"symbols", len(samples),
		"risk_score", assessment.RiskScore,
		"acceptable", assessment.IsAcceptable,
		"trades", executed)
}

func (b *Bot) runSignals(ctx context.Context, analyses []types.MarketAnalysis, assessment types.RiskAssessment, samples []types.MarketSample) int {
	prices := make(map[string]float64, len(samples))
	for _, s := range samples {
		prices[s.Symbol] = s.Price
	}

	signals := b.gen.Generate(ctx, analyses, assessment, prices)
	executed := 0
	for _, sig := range signals {
		if _, err := b.store.Append(recall.KindSignal, recall.SignalPayload{
			Symbol:     sig.Symbol,
			Action:     sig.Action,
			Quantity:   sig.Quantity,
			Price:      sig.Price,
			Strategy:   sig.Strategy,
			Confidence: sig.Confidence,
		}, []string{sig.Symbol}, sig.Confidence); err != nil {
			b.log.Warn("signal record append failed", "symbol", sig.Symbol, "error", err)
		}

		validation := b.gate.ValidateSignal(sig)
		if !validation.IsValid {
			b.log.Info("signal rejected",
				"symbol", sig.Symbol,
				"score", validation.RiskScore,
				"warnings", validation.Warnings)
			continue
		}

		result, err := b.executor.Execute(ctx, sig)
		if err != nil {
			b.log.Error("execution failed", "symbol", sig.Symbol, "error", err)
			continue
		}
		if result.Status == types.ExecExecuted {
			executed++
		}

		if _, err := b.store.Append(recall.KindTrade, recall.TradePayload{
			Symbol:     sig.Symbol,
			Action:     sig.Action,
			Quantity:   sig.Quantity,
			Price:      sig.Price,
			OrderID:    result.ID,
			Status:     result.Status,
			Message:    result.Message,
			Confidence: sig.Confidence,
		}, []string{sig.Symbol}, 0.8); err != nil {
			b.log.Warn("trade record append failed", "symbol", sig.Symbol, "error", err)
		}
	}
	return executed
}

// ScanTick records each trending token as a market event and feeds new
// symbols into the data provider when it accepts them.
func (b *Bot) ScanTick(ctx context.Context) {
	tokens, err := b.scanner.Scan(ctx)
	if err != nil {
		b.log.Warn("scan failed", "error", err)
		return
	}

	adder, expandable := b.market.(interface{ AddSymbol(string) })
	for _, tok := range tokens {
		if _, err := b.store.Append(recall.KindMarketEvent, recall.MarketEventPayload{
			Symbol: tok.Symbol,
			Event:  "trending",
			Price:  tok.Price,
			Volume: tok.Volume24h,
			Source: tok.Source,
		}, []string{tok.Symbol, "scan"}, scanImportance(tok.Momentum)); err != nil {
			b.log.Warn("market event append failed", "symbol", tok.Symbol, "error", err)
			continue
		}
		if expandable {
			adder.AddSymbol(tok.Symbol)
		}
	}
	b.log.Info("scan cycle complete", "tokens", len(tokens))
}

func cycleTags(samples []types.MarketSample) []string {
	tags := make([]string, 0, len(samples))
	for _, s := range samples {
		tags = append(tags, s.Symbol)
	}
	return tags
}

// scanImportance maps momentum to record importance: a mover is worth
// remembering longer than a flat listing.
func scanImportance(momentum float64) float64 {
	imp := 0.4 + momentum
	if imp < 0.1 {
		return 0.1
	}
	if imp > 0.9 {
		return 0.9
	}
	return imp
}
