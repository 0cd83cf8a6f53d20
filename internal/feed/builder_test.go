package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"alphawatch/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// fakeMarket serves canned data and a scriptable market clock.
type fakeMarket struct {
	quotes    map[string]*domain.MarketData
	closes    map[string][]float64
	headlines map[string][]domain.Headline
	open      bool
	clockErr  error
	quoteErr  error
}

func (f *fakeMarket) Quote(_ context.Context, symbol string) (*domain.MarketData, error) {
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return f.quotes[symbol], nil
}

func (f *fakeMarket) CandleCloses(_ context.Context, symbol string, _ int) ([]float64, error) {
	return f.closes[symbol], nil
}

func (f *fakeMarket) Headlines(_ context.Context, symbol string) ([]domain.Headline, error) {
	return f.headlines[symbol], nil
}

func (f *fakeMarket) MarketOpen(_ context.Context) (bool, error) {
	if f.clockErr != nil {
		return false, f.clockErr
	}
	return f.open, nil
}

func TestMarketStatusEdgeDetection(t *testing.T) {
	market := &fakeMarket{open: false}
	b := NewBuilder(market, nil, nil, fixedClock{time.Now()}, testLogger())
	ctx := context.Background()

	// First observation after startup: no edges, a restart must not replay
	// an open/close event.
	st := b.MarketStatus(ctx)
	if st == nil || st.IsOpen || st.JustOpened || st.JustClosed {
		t.Fatalf("first observation: %+v, want closed with no edges", st)
	}

	// Closed -> open: the open edge fires exactly once.
	market.open = true
	st = b.MarketStatus(ctx)
	if !st.IsOpen || !st.JustOpened || st.JustClosed {
		t.Errorf("open transition: %+v, want JustOpened", st)
	}
	st = b.MarketStatus(ctx)
	if !st.IsOpen || st.JustOpened {
		t.Errorf("steady open: %+v, want no edge", st)
	}

	// Open -> closed: the close edge fires.
	market.open = false
	st = b.MarketStatus(ctx)
	if st.IsOpen || !st.JustClosed || st.JustOpened {
		t.Errorf("close transition: %+v, want JustClosed", st)
	}
}

func TestMarketStatusUnavailableClock(t *testing.T) {
	market := &fakeMarket{open: true}
	b := NewBuilder(market, nil, nil, fixedClock{time.Now()}, testLogger())
	ctx := context.Background()

	b.MarketStatus(ctx) // seed: open

	// Clock outage: status degrades to nil, previous level is kept.
	market.clockErr = errors.New("clock: 503")
	if st := b.MarketStatus(ctx); st != nil {
		t.Errorf("unavailable clock: got %+v, want nil", st)
	}

	// Recovery while still open: no spurious edge.
	market.clockErr = nil
	if st := b.MarketStatus(ctx); st.JustOpened || st.JustClosed {
		t.Errorf("recovery: %+v, want no edge", st)
	}
}

func TestBuildDegradesPerSymbol(t *testing.T) {
	now := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	market := &fakeMarket{
		quotes: map[string]*domain.MarketData{
			"AAPL": {Symbol: "AAPL", CurrentPrice: 151, Volume: 1000},
		},
		headlines: map[string][]domain.Headline{
			"AAPL": {{Symbol: "AAPL", Title: "Apple beats earnings"}},
		},
	}
	b := NewBuilder(market, nil, nil, fixedClock{now}, testLogger())

	ectx := b.Build(context.Background(), "u1", []string{"AAPL", "MSFT"}, nil)

	if !ectx.GeneratedAt.Equal(now) {
		t.Errorf("generatedAt: got %v", ectx.GeneratedAt)
	}
	if ectx.Quote("AAPL") == nil {
		t.Error("AAPL quote should be present")
	}
	// MSFT has no data anywhere: absent, not an error.
	if ectx.Quote("MSFT") != nil {
		t.Error("MSFT quote should be absent")
	}
	if len(ectx.NewsFor("AAPL")) != 1 {
		t.Errorf("AAPL headlines: got %d", len(ectx.NewsFor("AAPL")))
	}
}

func TestBuildQuoteOutageLeavesContextUsable(t *testing.T) {
	market := &fakeMarket{quoteErr: errors.New("data api: 500")}
	b := NewBuilder(market, nil, nil, fixedClock{time.Now()}, testLogger())

	ectx := b.Build(context.Background(), "u1", []string{"AAPL"}, nil)
	if ectx == nil {
		t.Fatal("context must always be usable")
	}
	if ectx.Quote("AAPL") != nil {
		t.Error("failed quote must leave the symbol absent")
	}
}

func TestSymbolsFor(t *testing.T) {
	thresholds := []domain.AlertThreshold{
		{Conditions: domain.ThresholdConditions{Symbol: "AAPL"}},
		{Conditions: domain.ThresholdConditions{Symbol: "MSFT"}},
		{Conditions: domain.ThresholdConditions{Symbol: "AAPL"}},
		{Conditions: domain.ThresholdConditions{}}, // market_event style, no symbol
	}

	got := SymbolsFor(thresholds)
	if len(got) != 2 || got[0] != "AAPL" || got[1] != "MSFT" {
		t.Errorf("SymbolsFor: got %v, want [AAPL MSFT]", got)
	}
}
