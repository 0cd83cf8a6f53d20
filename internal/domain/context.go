package domain

import "time"

// MarketData is a point-in-time quote snapshot for one symbol.
type MarketData struct {
	Symbol        string    `json:"symbol"`
	CurrentPrice  float64   `json:"current_price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        int64     `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
}

// PositionSnapshot is the state of one open position at evaluation time.
type PositionSnapshot struct {
	Symbol                   string  `json:"symbol"`
	Quantity                 float64 `json:"quantity"`
	EntryPrice               float64 `json:"entry_price"`
	CurrentPrice             float64 `json:"current_price"`
	MarketValue              float64 `json:"market_value"`
	UnrealizedProfitLoss     float64 `json:"unrealized_profit_loss"`
	UnrealizedProfitLossPct  float64 `json:"unrealized_profit_loss_percent"`
}

// MarketStatus carries both the level (IsOpen) and the transition edges
// (JustOpened/JustClosed) of the market clock. market_event thresholds react
// to the edges only, so they fire once per transition rather than on every
// cycle the market happens to be open.
type MarketStatus struct {
	IsOpen     bool `json:"is_open"`
	JustOpened bool `json:"just_opened"`
	JustClosed bool `json:"just_closed"`
}

// IndicatorSnapshot holds the latest computed technical indicator values for
// one symbol. Pointers are nil when there was not enough candle history to
// compute the indicator.
type IndicatorSnapshot struct {
	Symbol        string   `json:"symbol"`
	Price         float64  `json:"price"`
	SMA           *float64 `json:"sma,omitempty"`
	RSI           *float64 `json:"rsi,omitempty"`
	MACD          *float64 `json:"macd,omitempty"`
	MACDSignal    *float64 `json:"macd_signal,omitempty"`
	MACDHist      *float64 `json:"macd_hist,omitempty"`
	BollingerUp   *float64 `json:"bollinger_upper,omitempty"`
	BollingerMid  *float64 `json:"bollinger_middle,omitempty"`
	BollingerLow  *float64 `json:"bollinger_lower,omitempty"`
}

// Headline is a single news item attached to a symbol.
type Headline struct {
	Symbol      string    `json:"symbol"`
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}

// StrategyPerformance summarizes a strategy's returns for evaluation.
type StrategyPerformance struct {
	StrategyID      string  `json:"strategy_id"`
	ReturnPercent   float64 `json:"return_percent"`
	DrawdownPercent float64 `json:"drawdown_percent"`
}

// EvaluationContext is the ephemeral bundle of market, position, and system
// data a threshold is checked against. It is built fresh each cycle and never
// persisted. Every sub-object is optional: a nil field means the data source
// was unavailable this cycle, and any predicate needing it evaluates to
// false rather than erroring.
type EvaluationContext struct {
	MarketData   map[string]*MarketData
	Positions    map[string]*PositionSnapshot
	MarketStatus *MarketStatus
	Indicators   map[string]*IndicatorSnapshot
	News         map[string][]Headline
	Strategies   map[string]*StrategyPerformance
	GeneratedAt  time.Time
}

// Quote returns the market data for symbol, or nil when absent.
func (c *EvaluationContext) Quote(symbol string) *MarketData {
	if c == nil || c.MarketData == nil {
		return nil
	}
	return c.MarketData[symbol]
}

// Position returns the position snapshot for symbol, or nil when absent.
func (c *EvaluationContext) Position(symbol string) *PositionSnapshot {
	if c == nil || c.Positions == nil {
		return nil
	}
	return c.Positions[symbol]
}

// IndicatorsFor returns the indicator snapshot for symbol, or nil when absent.
func (c *EvaluationContext) IndicatorsFor(symbol string) *IndicatorSnapshot {
	if c == nil || c.Indicators == nil {
		return nil
	}
	return c.Indicators[symbol]
}

// NewsFor returns the headlines for symbol; empty when absent.
func (c *EvaluationContext) NewsFor(symbol string) []Headline {
	if c == nil || c.News == nil {
		return nil
	}
	return c.News[symbol]
}

// StrategyFor returns the performance summary for a strategy id, or nil.
func (c *EvaluationContext) StrategyFor(id string) *StrategyPerformance {
	if c == nil || c.Strategies == nil {
		return nil
	}
	return c.Strategies[id]
}
