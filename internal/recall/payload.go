package recall

import (
	"encoding/json"
	"fmt"

	"meme-trading-bot/internal/types"
)

// Kind tags a record variant. The four kinds are closed: Append rejects
// anything else at the boundary.
type Kind string

const (
	KindCycle       Kind = "cycle"
	KindTrade       Kind = "trade"
	KindSignal      Kind = "signal"
	KindMarketEvent Kind = "market_event"
)

// IsValid returns true if the kind is one of the known variants.
func (k Kind) IsValid() bool {
	switch k {
	case KindCycle, KindTrade, KindSignal, KindMarketEvent:
		return true
	}
	return false
}

// Payload is the kind-specific body of a record. Each kind has exactly
// one payload shape. Fields exposes the flat field map used by
// similarity scoring and pattern matching.
type Payload interface {
	Kind() Kind
	Fields() map[string]any
}

// CyclePayload summarizes one full trading cycle.
type CyclePayload struct {
	Samples    []types.MarketSample    `json:"samples"`
	Analyses   []types.MarketAnalysis  `json:"analyses"`
	Assessment types.RiskAssessment    `json:"assessment"`
	Portfolio  types.PortfolioSnapshot `json:"portfolio"`
}

func (CyclePayload) Kind() Kind { return KindCycle }

func (p CyclePayload) Fields() map[string]any {
	return map[string]any{
		"sample_count": float64(len(p.Samples)),
		"risk_score":   float64(p.Assessment.RiskScore),
		"risk_level":   string(p.Assessment.RiskLevel),
		"acceptable":   p.Assessment.IsAcceptable,
	}
}

// SampleFor returns the cycle's sample for a symbol, if present.
func (p CyclePayload) SampleFor(symbol string) (types.MarketSample, bool) {
	for _, s := range p.Samples {
		if s.Symbol == symbol {
			return s, true
		}
	}
	return types.MarketSample{}, false
}

// TradePayload records one execution result.
type TradePayload struct {
	Symbol     string                `json:"symbol"`
	Action     types.Action          `json:"action"`
	Quantity   float64               `json:"quantity"`
	Price      float64               `json:"price"`
	OrderID    string                `json:"order_id"`
	Status     types.ExecutionStatus `json:"status"`
	Message    string                `json:"message,omitempty"`
	Confidence float64               `json:"confidence"`
}

func (TradePayload) Kind() Kind { return KindTrade }

func (p TradePayload) Fields() map[string]any {
	return map[string]any{
		"symbol":     p.Symbol,
		"action":     string(p.Action),
		"quantity":   p.Quantity,
		"price":      p.Price,
		"status":     string(p.Status),
		"confidence": p.Confidence,
	}
}

// SignalPayload records a generated signal.
type SignalPayload struct {
	Symbol     string       `json:"symbol"`
	Action     types.Action `json:"action"`
	Quantity   float64      `json:"quantity"`
	Price      float64      `json:"price"`
	Strategy   string       `json:"strategy"`
	Confidence float64      `json:"confidence"`
}

func (SignalPayload) Kind() Kind { return KindSignal }

func (p SignalPayload) Fields() map[string]any {
	return map[string]any{
		"symbol":     p.Symbol,
		"action":     string(p.Action),
		"quantity":   p.Quantity,
		"price":      p.Price,
		"strategy":   p.Strategy,
		"confidence": p.Confidence,
	}
}

// MarketEventPayload records a scan hit or other market observation.
type MarketEventPayload struct {
	Symbol string  `json:"symbol"`
	Event  string  `json:"event"`
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
	Source string  `json:"source,omitempty"`
}

func (MarketEventPayload) Kind() Kind { return KindMarketEvent }

func (p MarketEventPayload) Fields() map[string]any {
	return map[string]any{
		"symbol": p.Symbol,
		"event":  p.Event,
		"price":  p.Price,
		"volume": p.Volume,
	}
}

// decodePayload rebuilds the concrete payload for a kind from snapshot
// JSON. Unknown kinds are rejected, matching Append.
func decodePayload(kind Kind, raw json.RawMessage) (Payload, error) {
	switch kind {
	case KindCycle:
		var p CyclePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case KindTrade:
		var p TradePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case KindSignal:
		var p SignalPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case KindMarketEvent:
		var p MarketEventPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown record kind %q", kind)
}
