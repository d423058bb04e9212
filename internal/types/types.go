package types

import "time"

// Trend classifies the direction of a market analysis.
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

// RiskLevel buckets a risk score into coarse bands.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Action is the side of a trading signal.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Indicators carries the optional technical indicators attached to a
// sample. Absent indicators are nil and contribute nothing downstream.
type Indicators struct {
	RSI        *float64 `json:"rsi,omitempty"`
	MACD       *float64 `json:"macd,omitempty"`
	MA         *float64 `json:"ma,omitempty"`
	Volatility *float64 `json:"volatility,omitempty"`
}

// MarketSample is one observation of a token's market state.
type MarketSample struct {
	Symbol     string     `json:"symbol"`
	Price      float64    `json:"price"`
	Volume     float64    `json:"volume"`
	Timestamp  time.Time  `json:"timestamp"`
	Indicators Indicators `json:"indicators"`
}

// MarketAnalysis is the per-symbol classification produced by the
// analyzer. It is transient: it only persists as part of a cycle record.
type MarketAnalysis struct {
	Symbol     string    `json:"symbol"`
	Trend      Trend     `json:"trend"`
	Strength   float64   `json:"strength"`
	Confidence float64   `json:"confidence"`
	Signals    []string  `json:"signals"`
	RiskLevel  RiskLevel `json:"risk_level"`
}

// TradingSignal is a concrete order proposal. Confidence is hard-capped
// at 0.95. Stop-loss and take-profit are signed percentages: negative
// stop / positive take for a buy, mirrored for a sell.
type TradingSignal struct {
	Symbol     string    `json:"symbol"`
	Action     Action    `json:"action"`
	Quantity   float64   `json:"quantity"`
	Price      float64   `json:"price"`
	Strategy   string    `json:"strategy"`
	Confidence float64   `json:"confidence"`
	StopLoss   *float64  `json:"stop_loss,omitempty"`
	TakeProfit *float64  `json:"take_profit,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// RiskAssessment is the aggregate gate verdict for one cycle.
// A rejection is a value, not an error.
type RiskAssessment struct {
	IsAcceptable    bool      `json:"is_acceptable"`
	RiskLevel       RiskLevel `json:"risk_level"`
	RiskScore       int       `json:"risk_score"`
	Warnings        []string  `json:"warnings"`
	MaxPositionSize float64   `json:"max_position_size"`
}

// SignalValidation is the per-signal gate verdict. Its threshold is
// deliberately different from the aggregate one.
type SignalValidation struct {
	IsValid   bool     `json:"is_valid"`
	RiskScore int      `json:"risk_score"`
	Warnings  []string `json:"warnings"`
}

// Position is an open holding, owned by the execution provider.
type Position struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	AvgPrice float64 `json:"avg_price"`
	Value    float64 `json:"value"`
}

// PortfolioSnapshot is the read-only view the core uses for drawdown.
type PortfolioSnapshot struct {
	InitialValue float64    `json:"initial_value"`
	CurrentValue float64    `json:"current_value"`
	Positions    []Position `json:"positions"`
}

// ExecutionStatus is the terminal state of an execution attempt.
type ExecutionStatus string

const (
	ExecExecuted ExecutionStatus = "executed"
	ExecFailed   ExecutionStatus = "failed"
	ExecPending  ExecutionStatus = "pending"
)

// ExecutionResult is what the execution provider reports back.
type ExecutionResult struct {
	ID      string          `json:"id"`
	Status  ExecutionStatus `json:"status"`
	Message string          `json:"message"`
}

// TrendingToken is one hit from a meme-token scan.
type TrendingToken struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Volume24h float64 `json:"volume_24h"`
	Momentum  float64 `json:"momentum"`
	Source    string  `json:"source"`
}
