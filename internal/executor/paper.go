package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"meme-trading-bot/internal/chain"
	"meme-trading-bot/internal/risk"
	"meme-trading-bot/internal/types"
)

// Paper simulates execution against an in-memory portfolio. Buys use
// average-price accounting; sells realize PnL against the average and
// feed the loss back into the risk gate.
type Paper struct {
	client *chain.Client
	gate   *risk.Gate
	log    *slog.Logger

	mu           sync.Mutex
	initialValue float64
	cash         float64
	positions    map[string]*types.Position
	lastPrice    map[string]float64
}

func NewPaper(initialValue float64, client *chain.Client, gate *risk.Gate, log *slog.Logger) *Paper {
	return &Paper{
		client:       client,
		gate:         gate,
		log:          log,
		initialValue: initialValue,
		cash:         initialValue,
		positions:    make(map[string]*types.Position),
		lastPrice:    make(map[string]float64),
	}
}

// Execute fills the signal at its quoted price, less the simulated
// chain fee. A fill the portfolio cannot afford fails without error.
func (p *Paper) Execute(ctx context.Context, sig types.TradingSignal) (types.ExecutionResult, error) {
	if sig.Quantity <= 0 || sig.Price <= 0 {
		return types.ExecutionResult{
			ID:      uuid.NewString(),
			Status:  types.ExecFailed,
			Message: fmt.Sprintf("unfillable signal: qty %f price %f", sig.Quantity, sig.Price),
		}, nil
	}

	txSig, err := p.client.SimulateSwap(ctx, sig)
	if err != nil {
		return types.ExecutionResult{}, fmt.Errorf("swap simulation: %w", err)
	}

	notional := sig.Quantity * sig.Price
	fee := p.client.QuoteFee(notional)

	p.mu.Lock()
	defer p.mu.Unlock()

	var result types.ExecutionResult
	switch sig.Action {
	case types.ActionBuy:
		result = p.fillBuy(sig, notional, fee)
	case types.ActionSell:
		result = p.fillSell(sig, notional, fee)
	default:
		return types.ExecutionResult{
			ID:      uuid.NewString(),
			Status:  types.ExecFailed,
			Message: fmt.Sprintf("unsupported action %q", sig.Action),
		}, nil
	}

	if result.Status == types.ExecExecuted {
		p.lastPrice[sig.Symbol] = sig.Price
		p.gate.UpdateOpenPositions(len(p.positions))
		p.log.Info("order filled",
			"symbol", sig.Symbol,
			"action", string(sig.Action),
			"quantity", sig.Quantity,
			"price", sig.Price,
			"tx", txSig.String())
	}
	return result, nil
}

func (p *Paper) fillBuy(sig types.TradingSignal, notional, fee float64) types.ExecutionResult {
	cost := notional + fee
	if cost > p.cash {
		return types.ExecutionResult{
			ID:      uuid.NewString(),
			Status:  types.ExecFailed,
			Message: fmt.Sprintf("insufficient cash: need %.2f, have %.2f", cost, p.cash),
		}
	}

	p.cash -= cost
	pos, ok := p.positions[sig.Symbol]
	if !ok {
		p.positions[sig.Symbol] = &types.Position{
			Symbol:   sig.Symbol,
			Quantity: sig.Quantity,
			AvgPrice: sig.Price,
		}
	} else {
		total := pos.Quantity + sig.Quantity
		pos.AvgPrice = (pos.AvgPrice*pos.Quantity + notional) / total
		pos.Quantity = total
	}
	return types.ExecutionResult{ID: uuid.NewString(), Status: types.ExecExecuted, Message: "filled"}
}

func (p *Paper) fillSell(sig types.TradingSignal, notional, fee float64) types.ExecutionResult {
	pos, ok := p.positions[sig.Symbol]
	if !ok || pos.Quantity < sig.Quantity {
		return types.ExecutionResult{
			ID:      uuid.NewString(),
			Status:  types.ExecFailed,
			Message: fmt.Sprintf("insufficient position in %s", sig.Symbol),
		}
	}

	p.cash += notional - fee
	realized := (sig.Price-pos.AvgPrice)*sig.Quantity - fee
	pos.Quantity -= sig.Quantity
	if pos.Quantity == 0 {
		delete(p.positions, sig.Symbol)
	}

	// The gate tracks losses only; a profit shrinks the running total.
	p.gate.UpdateDailyLoss(-realized)
	return types.ExecutionResult{ID: uuid.NewString(), Status: types.ExecExecuted, Message: "filled"}
}

// PortfolioSnapshot values open positions at their last fill price.
func (p *Paper) PortfolioSnapshot() types.PortfolioSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := types.PortfolioSnapshot{
		InitialValue: p.initialValue,
		CurrentValue: p.cash,
	}
	for _, pos := range p.positions {
		price, ok := p.lastPrice[pos.Symbol]
		if !ok {
			price = pos.AvgPrice
		}
		value := pos.Quantity * price
		snap.CurrentValue += value
		snap.Positions = append(snap.Positions, types.Position{
			Symbol:   pos.Symbol,
			Quantity: pos.Quantity,
			AvgPrice: pos.AvgPrice,
			Value:    value,
		})
	}
	return snap
}

// CloseAllPositions liquidates everything at the last known price.
func (p *Paper) CloseAllPositions(ctx context.Context) error {
	p.mu.Lock()
	symbols := make([]string, 0, len(p.positions))
	for sym := range p.positions {
		symbols = append(symbols, sym)
	}
	p.mu.Unlock()

	for _, sym := range symbols {
		p.mu.Lock()
		pos, ok := p.positions[sym]
		if !ok {
			p.mu.Unlock()
			continue
		}
		qty := pos.Quantity
		price, havePrice := p.lastPrice[sym]
		if !havePrice {
			price = pos.AvgPrice
		}
		p.mu.Unlock()

		sig := types.TradingSignal{
			Symbol:   sym,
			Action:   types.ActionSell,
			Quantity: qty,
			Price:    price,
			Strategy: "liquidation",
		}
		result, err := p.Execute(ctx, sig)
		if err != nil {
			return fmt.Errorf("close %s: %w", sym, err)
		}
		if result.Status != types.ExecExecuted {
			p.log.Warn("liquidation not filled", "symbol", sym, "message", result.Message)
		}
	}
	return nil
}
