// Package feed assembles per-cycle evaluation contexts from the market data,
// position, and performance providers. The builder also converts the market
// clock's open/closed level into just-opened/just-closed edges by comparing
// against the previous cycle, so market_event thresholds stay edge-triggered.
package feed

import (
	"context"
	"log/slog"
	"sync"

	"alphawatch/internal/domain"
	"alphawatch/internal/indicator"
)

// candleHistory is how many closes the builder requests per symbol; enough
// for MACD(12,26,9) plus warmup.
const candleHistory = 120

// MarketDataProvider supplies quotes, candle closes, headlines, and the
// market clock. Implementations wrap the brokerage/market-data vendors; a
// returned error for one symbol leaves that symbol absent from the context
// rather than failing the cycle.
type MarketDataProvider interface {
	Quote(ctx context.Context, symbol string) (*domain.MarketData, error)
	CandleCloses(ctx context.Context, symbol string, limit int) ([]float64, error)
	Headlines(ctx context.Context, symbol string) ([]domain.Headline, error)
	MarketOpen(ctx context.Context) (bool, error)
}

// PositionProvider supplies a user's open positions.
type PositionProvider interface {
	OpenPositions(ctx context.Context, userID string) ([]domain.PositionSnapshot, error)
}

// PerformanceProvider supplies per-strategy performance summaries.
type PerformanceProvider interface {
	StrategyPerformance(ctx context.Context, userID string) ([]domain.StrategyPerformance, error)
}

// Builder constructs evaluation contexts. It keeps the previous cycle's
// market-open level to detect transitions; that state is shared across users
// within a cycle and guarded for concurrent use.
type Builder struct {
	market      MarketDataProvider
	positions   PositionProvider
	performance PerformanceProvider
	clock       domain.Clock
	logger      *slog.Logger

	mu        sync.Mutex
	prevOpen  bool
	prevKnown bool
}

// NewBuilder creates a Builder. positions and performance may be nil when the
// surrounding application has no such provider; the corresponding context
// sub-objects then stay absent.
func NewBuilder(
	market MarketDataProvider,
	positions PositionProvider,
	performance PerformanceProvider,
	clock domain.Clock,
	logger *slog.Logger,
) *Builder {
	return &Builder{
		market:      market,
		positions:   positions,
		performance: performance,
		clock:       clock,
		logger:      logger.With(slog.String("component", "context_builder")),
	}
}

// MarketStatus reads the market clock once and derives the transition edges
// relative to the previous call. The first call after startup reports no
// edges: a process restart must not replay an open/close event.
func (b *Builder) MarketStatus(ctx context.Context) *domain.MarketStatus {
	open, err := b.market.MarketOpen(ctx)
	if err != nil {
		b.logger.WarnContext(ctx, "market clock unavailable", slog.String("error", err.Error()))
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	status := &domain.MarketStatus{IsOpen: open}
	if b.prevKnown {
		status.JustOpened = open && !b.prevOpen
		status.JustClosed = !open && b.prevOpen
	}
	b.prevOpen = open
	b.prevKnown = true
	return status
}

// Build assembles a fresh evaluation context for one user covering the given
// symbols. Provider failures degrade to absent data, logged at warn; the
// returned context is always usable.
func (b *Builder) Build(ctx context.Context, userID string, symbols []string, status *domain.MarketStatus) *domain.EvaluationContext {
	ectx := &domain.EvaluationContext{
		MarketData:   make(map[string]*domain.MarketData),
		Positions:    make(map[string]*domain.PositionSnapshot),
		Indicators:   make(map[string]*domain.IndicatorSnapshot),
		News:         make(map[string][]domain.Headline),
		Strategies:   make(map[string]*domain.StrategyPerformance),
		MarketStatus: status,
		GeneratedAt:  b.clock.Now(),
	}

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			return ectx
		}

		quote, err := b.market.Quote(ctx, symbol)
		if err != nil {
			b.logger.WarnContext(ctx, "quote unavailable",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		} else if quote != nil {
			ectx.MarketData[symbol] = quote
		}

		closes, err := b.market.CandleCloses(ctx, symbol, candleHistory)
		if err != nil {
			b.logger.WarnContext(ctx, "candles unavailable",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		} else if snap := indicator.Snapshot(symbol, closes, 0); snap != nil {
			ectx.Indicators[symbol] = snap
		}

		headlines, err := b.market.Headlines(ctx, symbol)
		if err != nil {
			b.logger.WarnContext(ctx, "headlines unavailable",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		} else if len(headlines) > 0 {
			ectx.News[symbol] = headlines
		}
	}

	if b.positions != nil {
		positions, err := b.positions.OpenPositions(ctx, userID)
		if err != nil {
			b.logger.WarnContext(ctx, "positions unavailable",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
		for i := range positions {
			pos := positions[i]
			ectx.Positions[pos.Symbol] = &pos
		}
	}

	if b.performance != nil {
		perfs, err := b.performance.StrategyPerformance(ctx, userID)
		if err != nil {
			b.logger.WarnContext(ctx, "strategy performance unavailable",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
		for i := range perfs {
			perf := perfs[i]
			ectx.Strategies[perf.StrategyID] = &perf
		}
	}

	return ectx
}

// SymbolsFor collects the distinct symbols referenced by a set of thresholds
// so the builder only fetches data the cycle will actually evaluate.
func SymbolsFor(thresholds []domain.AlertThreshold) []string {
	seen := make(map[string]bool, len(thresholds))
	var symbols []string
	for _, t := range thresholds {
		s := t.Conditions.Symbol
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		symbols = append(symbols, s)
	}
	return symbols
}
