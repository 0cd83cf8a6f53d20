// Package indicator computes technical indicator snapshots from candle
// history using go-talib. The context builder attaches the snapshots to the
// evaluation context; the technical_indicator predicate only reads them.
package indicator

import (
	"github.com/markcheno/go-talib"

	"alphawatch/internal/domain"
)

const (
	defaultPeriod    = 14
	macdFast         = 12
	macdSlow         = 26
	macdSignalPeriod = 9
	bollingerStdDev  = 2.0
)

// Snapshot computes the latest SMA, RSI, MACD, and Bollinger values for one
// symbol from its close prices. Indicators that lack enough history stay nil
// in the result, which downstream predicates treat as "cannot trigger".
func Snapshot(symbol string, closes []float64, period int) *domain.IndicatorSnapshot {
	if len(closes) == 0 {
		return nil
	}
	if period <= 0 {
		period = defaultPeriod
	}

	snap := &domain.IndicatorSnapshot{
		Symbol: symbol,
		Price:  closes[len(closes)-1],
	}

	if len(closes) >= period {
		sma := talib.Sma(closes, period)
		snap.SMA = last(sma)
	}

	// RSI needs period+1 observations for the first defined value.
	if len(closes) > period {
		rsi := talib.Rsi(closes, period)
		snap.RSI = last(rsi)
	}

	if len(closes) >= macdSlow+macdSignalPeriod {
		macdLine, signalLine, hist := talib.Macd(closes, macdFast, macdSlow, macdSignalPeriod)
		snap.MACD = last(macdLine)
		snap.MACDSignal = last(signalLine)
		snap.MACDHist = last(hist)
	}

	if len(closes) >= period {
		upper, middle, lower := talib.BBands(closes, period, bollingerStdDev, bollingerStdDev, talib.SMA)
		snap.BollingerUp = last(upper)
		snap.BollingerMid = last(middle)
		snap.BollingerLow = last(lower)
	}

	return snap
}

// last returns a pointer to the final element of a talib output series, or
// nil when the series is empty or the final value is still in the indicator's
// zero-filled warmup region.
func last(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	v := series[len(series)-1]
	return &v
}
