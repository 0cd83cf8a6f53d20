// Package domain defines the core entities of the alert engine — thresholds,
// notifications, bot instances, and the evaluation context — together with
// the store interfaces that persistence layers implement and the sentinel
// errors shared across packages.
package domain

import "time"

// ThresholdType identifies the kind of condition an AlertThreshold watches.
// The set is closed: the evaluator switches exhaustively over these values.
type ThresholdType string

const (
	ThresholdPrice              ThresholdType = "price"
	ThresholdPriceChangePercent ThresholdType = "price_change_percent"
	ThresholdVolume             ThresholdType = "volume"
	ThresholdPositionPnL        ThresholdType = "position_profit_loss"
	ThresholdStrategyPerf       ThresholdType = "strategy_performance"
	ThresholdMarketEvent        ThresholdType = "market_event"
	ThresholdTechnicalIndicator ThresholdType = "technical_indicator"
	ThresholdNews               ThresholdType = "news"
)

// Valid reports whether t is one of the known threshold types.
func (t ThresholdType) Valid() bool {
	switch t {
	case ThresholdPrice, ThresholdPriceChangePercent, ThresholdVolume,
		ThresholdPositionPnL, ThresholdStrategyPerf, ThresholdMarketEvent,
		ThresholdTechnicalIndicator, ThresholdNews:
		return true
	}
	return false
}

// PriceDirection selects which side of a price level triggers an alert.
type PriceDirection string

const (
	DirectionAbove PriceDirection = "above"
	DirectionBelow PriceDirection = "below"
)

// Severity ranks how urgently a triggered threshold should be surfaced.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IndicatorKind selects the technical_indicator sub-case.
type IndicatorKind string

const (
	IndicatorMA        IndicatorKind = "ma"
	IndicatorRSI       IndicatorKind = "rsi"
	IndicatorMACD      IndicatorKind = "macd"
	IndicatorBollinger IndicatorKind = "bollinger"
)

// ThresholdConditions is the type-specific payload of a threshold. Only the
// fields relevant to the threshold's type are consulted; pointers distinguish
// "not configured" from a legitimate zero value so absence never satisfies a
// comparison by accident.
type ThresholdConditions struct {
	Symbol string `json:"symbol,omitempty"`

	// price
	Price     *float64       `json:"price,omitempty"`
	Direction PriceDirection `json:"direction,omitempty"`

	// price_change_percent
	ChangePercent *float64 `json:"change_percent,omitempty"`

	// volume
	Volume *int64 `json:"volume,omitempty"`

	// position_profit_loss: percent bound takes precedence when both are set.
	ProfitLossPercent *float64 `json:"profit_loss_percent,omitempty"`
	ProfitLossAmount  *float64 `json:"profit_loss_amount,omitempty"`

	// strategy_performance
	StrategyID      string   `json:"strategy_id,omitempty"`
	ReturnPercent   *float64 `json:"return_percent,omitempty"`
	DrawdownPercent *float64 `json:"drawdown_percent,omitempty"`

	// market_event
	OnOpen  bool `json:"on_open,omitempty"`
	OnClose bool `json:"on_close,omitempty"`

	// technical_indicator
	Indicator IndicatorKind `json:"indicator,omitempty"`
	Period    int           `json:"period,omitempty"`
	// Upper/lower bounds for rsi (overbought/oversold levels).
	Upper *float64 `json:"upper,omitempty"`
	Lower *float64 `json:"lower,omitempty"`

	// news
	Keywords []string `json:"keywords,omitempty"`
}

// Throttle bounds how often a single threshold may fire.
type Throttle struct {
	CooldownMinutes int `json:"cooldown_minutes"`
	MaxPerDay       int `json:"max_per_day"` // 0 means unlimited
}

// NotificationSettings carries the delivery preferences attached to a
// threshold: which channels to notify, at what severity, and how the trigger
// rate is throttled.
type NotificationSettings struct {
	Channels []Channel `json:"channels"`
	Severity Severity  `json:"severity"`
	Throttle Throttle  `json:"throttle"`
}

// AlertThreshold is a user-owned rule pairing a condition with notification
// delivery preferences. The engine mutates only LastTriggered; everything
// else is owned by the user through the CRUD surface.
type AlertThreshold struct {
	ID            string               `json:"id"`
	UserID        string               `json:"user_id"`
	Type          ThresholdType        `json:"type"`
	Enabled       bool                 `json:"enabled"`
	Conditions    ThresholdConditions  `json:"conditions"`
	Notifications NotificationSettings `json:"notifications"`
	LastTriggered *time.Time           `json:"last_triggered,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}
