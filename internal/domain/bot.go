package domain

import "time"

// BotStatus is the lifecycle state of a trading bot instance.
type BotStatus string

const (
	BotIdle    BotStatus = "idle"
	BotRunning BotStatus = "running"
	BotPaused  BotStatus = "paused"
)

// BotRuntime tracks the current run segment and the accumulated uptime.
// StartedAt is the segment origin, shifted forward on resume so the distance
// to now is always the time actually spent running; PausedAt marks a pause
// in effect within the segment. UptimeSeconds only advances when a segment
// ends (stop).
type BotRuntime struct {
	StartedAt     *time.Time `json:"started_at,omitempty"`
	PausedAt      *time.Time `json:"paused_at,omitempty"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`
	UptimeSeconds int64      `json:"uptime_seconds"`
}

// BotPerformance is a coarse performance summary for display.
type BotPerformance struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	RealizedPnL   float64 `json:"realized_pnl"`
	ReturnPercent float64 `json:"return_percent"`
}

// BotInstance is a user-owned bot runtime entity. It is created idle and
// transitioned only through the lifecycle manager's start/pause/stop
// operations; deletion is allowed only while idle.
type BotInstance struct {
	ID               string         `json:"id"`
	UserID           string         `json:"user_id"`
	StrategyID       string         `json:"strategy_id"`
	APIIntegrationID string         `json:"api_integration_id"`
	Symbols          []string       `json:"symbols"`
	Status           BotStatus      `json:"status"`
	Runtime          BotRuntime     `json:"runtime"`
	Performance      BotPerformance `json:"performance"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}
