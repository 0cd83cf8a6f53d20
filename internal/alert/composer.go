package alert

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"alphawatch/internal/domain"
)

// Compose turns a triggered threshold plus the context it triggered against
// into an unsaved Notification. Title and message come from a fixed per-type
// template; the metadata map carries the concrete values the message
// references so the UI can render structured chips without re-parsing text.
// Given identical inputs the title, message, and metadata are identical —
// only the generated id differs.
func Compose(t domain.AlertThreshold, ectx *domain.EvaluationContext, now time.Time) domain.Notification {
	n := domain.Notification{
		ID:          uuid.New().String(),
		UserID:      t.UserID,
		ThresholdID: t.ID,
		Type:        t.Type,
		Severity:    t.Notifications.Severity,
		Metadata:    map[string]string{},
		CreatedAt:   now,
	}

	c := t.Conditions
	if c.Symbol != "" {
		n.Metadata["symbol"] = c.Symbol
	}

	switch t.Type {
	case domain.ThresholdPrice:
		md := ectx.Quote(c.Symbol)
		n.Title = fmt.Sprintf("Price alert: %s", c.Symbol)
		if md != nil {
			n.Message = fmt.Sprintf("%s is trading at %.2f, %s your alert level of %.2f.",
				c.Symbol, md.CurrentPrice, directionWord(c.Direction), deref(c.Price))
			n.Metadata["price"] = fmt.Sprintf("%.2f", md.CurrentPrice)
		}
		n.Metadata["target_price"] = fmt.Sprintf("%.2f", deref(c.Price))
		n.Metadata["direction"] = string(c.Direction)

	case domain.ThresholdPriceChangePercent:
		md := ectx.Quote(c.Symbol)
		n.Title = fmt.Sprintf("Price move: %s", c.Symbol)
		if md != nil {
			n.Message = fmt.Sprintf("%s moved %+.2f%% today (now %.2f), beyond your %.2f%% alert.",
				c.Symbol, md.ChangePercent, md.CurrentPrice, deref(c.ChangePercent))
			n.Metadata["change_percent"] = fmt.Sprintf("%.2f", md.ChangePercent)
			n.Metadata["price"] = fmt.Sprintf("%.2f", md.CurrentPrice)
		}

	case domain.ThresholdVolume:
		md := ectx.Quote(c.Symbol)
		n.Title = fmt.Sprintf("Volume spike: %s", c.Symbol)
		if md != nil {
			n.Message = fmt.Sprintf("%s volume reached %d shares, above your %d alert level.",
				c.Symbol, md.Volume, derefInt(c.Volume))
			n.Metadata["volume"] = fmt.Sprintf("%d", md.Volume)
		}

	case domain.ThresholdPositionPnL:
		pos := ectx.Position(c.Symbol)
		n.Title = fmt.Sprintf("Position P&L: %s", c.Symbol)
		if pos != nil {
			n.Message = fmt.Sprintf("Your %s position is at %+.2f (%+.2f%%) unrealized.",
				c.Symbol, pos.UnrealizedProfitLoss, pos.UnrealizedProfitLossPct)
			n.Metadata["unrealized_pnl"] = fmt.Sprintf("%.2f", pos.UnrealizedProfitLoss)
			n.Metadata["unrealized_pnl_percent"] = fmt.Sprintf("%.2f", pos.UnrealizedProfitLossPct)
		}

	case domain.ThresholdStrategyPerf:
		perf := ectx.StrategyFor(c.StrategyID)
		n.Title = "Strategy performance alert"
		n.Metadata["strategy_id"] = c.StrategyID
		if perf != nil {
			n.Message = fmt.Sprintf("Strategy %s is at %+.2f%% return with %.2f%% drawdown.",
				c.StrategyID, perf.ReturnPercent, perf.DrawdownPercent)
			n.Metadata["return_percent"] = fmt.Sprintf("%.2f", perf.ReturnPercent)
			n.Metadata["drawdown_percent"] = fmt.Sprintf("%.2f", perf.DrawdownPercent)
		}

	case domain.ThresholdMarketEvent:
		ms := ectx.MarketStatus
		switch {
		case ms != nil && ms.JustOpened:
			n.Title = "Market open"
			n.Message = "The market just opened."
			n.Metadata["event"] = "open"
		case ms != nil && ms.JustClosed:
			n.Title = "Market close"
			n.Message = "The market just closed."
			n.Metadata["event"] = "close"
		default:
			n.Title = "Market event"
			n.Message = "A market event occurred."
		}

	case domain.ThresholdTechnicalIndicator:
		snap := ectx.IndicatorsFor(c.Symbol)
		n.Title = fmt.Sprintf("Indicator alert: %s %s", c.Symbol, strings.ToUpper(string(c.Indicator)))
		n.Metadata["indicator"] = string(c.Indicator)
		if snap != nil {
			n.Message = indicatorMessage(c, snap)
			n.Metadata["price"] = fmt.Sprintf("%.2f", snap.Price)
		}

	case domain.ThresholdNews:
		headlines := ectx.NewsFor(c.Symbol)
		n.Title = fmt.Sprintf("News: %s", c.Symbol)
		if len(headlines) > 0 {
			n.Message = fmt.Sprintf("%s: %q (%s)", c.Symbol, headlines[0].Title, headlines[0].Source)
			n.Metadata["headline"] = headlines[0].Title
			n.Metadata["source"] = headlines[0].Source
		}

	default:
		n.Title = "Alert triggered"
	}

	if n.Message == "" {
		n.Message = n.Title
	}
	return n
}

func indicatorMessage(c domain.ThresholdConditions, snap *domain.IndicatorSnapshot) string {
	switch c.Indicator {
	case domain.IndicatorMA:
		if snap.SMA != nil {
			return fmt.Sprintf("%s is at %.2f, %s its %d-period moving average of %.2f.",
				c.Symbol, snap.Price, directionWord(c.Direction), c.Period, *snap.SMA)
		}
	case domain.IndicatorRSI:
		if snap.RSI != nil {
			return fmt.Sprintf("%s RSI(%d) is at %.1f.", c.Symbol, c.Period, *snap.RSI)
		}
	case domain.IndicatorMACD:
		if snap.MACD != nil && snap.MACDSignal != nil {
			return fmt.Sprintf("%s MACD %.3f crossed %s its signal line %.3f.",
				c.Symbol, *snap.MACD, directionWord(c.Direction), *snap.MACDSignal)
		}
	case domain.IndicatorBollinger:
		if snap.BollingerUp != nil && snap.BollingerLow != nil {
			return fmt.Sprintf("%s at %.2f is outside its Bollinger bands [%.2f, %.2f].",
				c.Symbol, snap.Price, *snap.BollingerLow, *snap.BollingerUp)
		}
	}
	return fmt.Sprintf("%s indicator condition met for %s.", strings.ToUpper(string(c.Indicator)), c.Symbol)
}

func directionWord(d domain.PriceDirection) string {
	if d == domain.DirectionBelow {
		return "below"
	}
	return "above"
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func derefInt(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
