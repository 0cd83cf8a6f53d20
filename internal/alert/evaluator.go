// Package alert implements the evaluation and dispatch engine: the per-type
// threshold predicates, the cooldown/throttle gate, the notification
// composer, the multi-channel dispatcher, and the per-user pipeline that
// chains them together.
package alert

import (
	"fmt"
	"math"
	"strings"

	"alphawatch/internal/domain"
)

// Evaluate reports whether the threshold's condition holds against the given
// context. It dispatches on the threshold type to a pure predicate; absence
// of the data a predicate needs means "condition not met", never an error.
// Malformed conditions surface as ErrInvalidConditions so the pipeline can
// skip the threshold without touching its siblings.
//
// Evaluate has no side effects and is safe to call concurrently for
// different thresholds.
func Evaluate(t domain.AlertThreshold, ectx *domain.EvaluationContext) (bool, error) {
	switch t.Type {
	case domain.ThresholdPrice:
		return evalPrice(t.Conditions, ectx)
	case domain.ThresholdPriceChangePercent:
		return evalPriceChangePercent(t.Conditions, ectx)
	case domain.ThresholdVolume:
		return evalVolume(t.Conditions, ectx)
	case domain.ThresholdPositionPnL:
		return evalPositionPnL(t.Conditions, ectx)
	case domain.ThresholdStrategyPerf:
		return evalStrategyPerformance(t.Conditions, ectx)
	case domain.ThresholdMarketEvent:
		return evalMarketEvent(t.Conditions, ectx)
	case domain.ThresholdTechnicalIndicator:
		return evalTechnicalIndicator(t.Conditions, ectx)
	case domain.ThresholdNews:
		return evalNews(t.Conditions, ectx)
	default:
		return false, fmt.Errorf("evaluate threshold %s: %w: %q", t.ID, domain.ErrUnknownType, t.Type)
	}
}

// evalPrice triggers when the current price is strictly beyond the configured
// level in the configured direction.
func evalPrice(c domain.ThresholdConditions, ectx *domain.EvaluationContext) (bool, error) {
	if c.Price == nil || c.Symbol == "" {
		return false, fmt.Errorf("price conditions: %w: symbol and price are required", domain.ErrInvalidConditions)
	}
	md := ectx.Quote(c.Symbol)
	if md == nil {
		return false, nil
	}
	switch c.Direction {
	case domain.DirectionAbove:
		return md.CurrentPrice > *c.Price, nil
	case domain.DirectionBelow:
		return md.CurrentPrice < *c.Price, nil
	default:
		return false, fmt.Errorf("price conditions: %w: direction %q", domain.ErrInvalidConditions, c.Direction)
	}
}

// evalPriceChangePercent triggers when the absolute intraday move exceeds the
// configured absolute percentage, whichever direction it went.
func evalPriceChangePercent(c domain.ThresholdConditions, ectx *domain.EvaluationContext) (bool, error) {
	if c.ChangePercent == nil || c.Symbol == "" {
		return false, fmt.Errorf("price_change_percent conditions: %w: symbol and change_percent are required", domain.ErrInvalidConditions)
	}
	md := ectx.Quote(c.Symbol)
	if md == nil {
		return false, nil
	}
	return math.Abs(md.ChangePercent) > math.Abs(*c.ChangePercent), nil
}

func evalVolume(c domain.ThresholdConditions, ectx *domain.EvaluationContext) (bool, error) {
	if c.Volume == nil || c.Symbol == "" {
		return false, fmt.Errorf("volume conditions: %w: symbol and volume are required", domain.ErrInvalidConditions)
	}
	md := ectx.Quote(c.Symbol)
	if md == nil {
		return false, nil
	}
	return md.Volume > *c.Volume, nil
}

// evalPositionPnL triggers when the position's unrealized P&L exceeds the
// configured bound in absolute value. The percent bound takes precedence when
// both percent and amount are configured.
func evalPositionPnL(c domain.ThresholdConditions, ectx *domain.EvaluationContext) (bool, error) {
	if c.Symbol == "" || (c.ProfitLossPercent == nil && c.ProfitLossAmount == nil) {
		return false, fmt.Errorf("position_profit_loss conditions: %w: symbol and a percent or amount bound are required", domain.ErrInvalidConditions)
	}
	pos := ectx.Position(c.Symbol)
	if pos == nil {
		return false, nil
	}
	if c.ProfitLossPercent != nil {
		return math.Abs(pos.UnrealizedProfitLossPct) >= math.Abs(*c.ProfitLossPercent), nil
	}
	return math.Abs(pos.UnrealizedProfitLoss) >= math.Abs(*c.ProfitLossAmount), nil
}

func evalStrategyPerformance(c domain.ThresholdConditions, ectx *domain.EvaluationContext) (bool, error) {
	if c.StrategyID == "" || (c.ReturnPercent == nil && c.DrawdownPercent == nil) {
		return false, fmt.Errorf("strategy_performance conditions: %w: strategy_id and a return or drawdown bound are required", domain.ErrInvalidConditions)
	}
	perf := ectx.StrategyFor(c.StrategyID)
	if perf == nil {
		return false, nil
	}
	if c.ReturnPercent != nil && math.Abs(perf.ReturnPercent) >= math.Abs(*c.ReturnPercent) {
		return true, nil
	}
	if c.DrawdownPercent != nil && perf.DrawdownPercent >= math.Abs(*c.DrawdownPercent) {
		return true, nil
	}
	return false, nil
}

// evalMarketEvent is edge-triggered: it fires on the JustOpened/JustClosed
// transition flags, not on the steady-state IsOpen level, so a threshold
// fires once per transition instead of every cycle the market is open.
func evalMarketEvent(c domain.ThresholdConditions, ectx *domain.EvaluationContext) (bool, error) {
	if !c.OnOpen && !c.OnClose {
		return false, fmt.Errorf("market_event conditions: %w: at least one of on_open/on_close is required", domain.ErrInvalidConditions)
	}
	ms := ectx.MarketStatus
	if ms == nil {
		return false, nil
	}
	if c.OnOpen && ms.JustOpened {
		return true, nil
	}
	if c.OnClose && ms.JustClosed {
		return true, nil
	}
	return false, nil
}

func evalTechnicalIndicator(c domain.ThresholdConditions, ectx *domain.EvaluationContext) (bool, error) {
	if c.Symbol == "" {
		return false, fmt.Errorf("technical_indicator conditions: %w: symbol is required", domain.ErrInvalidConditions)
	}
	snap := ectx.IndicatorsFor(c.Symbol)
	if snap == nil {
		return false, nil
	}

	switch c.Indicator {
	case domain.IndicatorMA:
		// Price crossing the moving average in the configured direction.
		if snap.SMA == nil {
			return false, nil
		}
		switch c.Direction {
		case domain.DirectionAbove:
			return snap.Price > *snap.SMA, nil
		case domain.DirectionBelow:
			return snap.Price < *snap.SMA, nil
		default:
			return false, fmt.Errorf("technical_indicator ma: %w: direction %q", domain.ErrInvalidConditions, c.Direction)
		}
	case domain.IndicatorRSI:
		if snap.RSI == nil {
			return false, nil
		}
		if c.Upper == nil && c.Lower == nil {
			return false, fmt.Errorf("technical_indicator rsi: %w: upper or lower bound is required", domain.ErrInvalidConditions)
		}
		if c.Upper != nil && *snap.RSI >= *c.Upper {
			return true, nil
		}
		if c.Lower != nil && *snap.RSI <= *c.Lower {
			return true, nil
		}
		return false, nil
	case domain.IndicatorMACD:
		// MACD line relative to its signal line.
		if snap.MACD == nil || snap.MACDSignal == nil {
			return false, nil
		}
		switch c.Direction {
		case domain.DirectionAbove:
			return *snap.MACD > *snap.MACDSignal, nil
		case domain.DirectionBelow:
			return *snap.MACD < *snap.MACDSignal, nil
		default:
			return false, fmt.Errorf("technical_indicator macd: %w: direction %q", domain.ErrInvalidConditions, c.Direction)
		}
	case domain.IndicatorBollinger:
		// Price escaping the band envelope.
		if snap.BollingerUp == nil || snap.BollingerLow == nil {
			return false, nil
		}
		return snap.Price > *snap.BollingerUp || snap.Price < *snap.BollingerLow, nil
	default:
		return false, fmt.Errorf("technical_indicator conditions: %w: indicator %q", domain.ErrInvalidConditions, c.Indicator)
	}
}

// evalNews triggers when a headline for the symbol contains any configured
// keyword (case-insensitive). With no keywords, any headline triggers.
func evalNews(c domain.ThresholdConditions, ectx *domain.EvaluationContext) (bool, error) {
	if c.Symbol == "" {
		return false, fmt.Errorf("news conditions: %w: symbol is required", domain.ErrInvalidConditions)
	}
	headlines := ectx.NewsFor(c.Symbol)
	if len(headlines) == 0 {
		return false, nil
	}
	if len(c.Keywords) == 0 {
		return true, nil
	}
	for _, h := range headlines {
		title := strings.ToLower(h.Title)
		for _, kw := range c.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(title, strings.ToLower(kw)) {
				return true, nil
			}
		}
	}
	return false, nil
}
