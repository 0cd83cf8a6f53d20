// Package alpaca is the REST client for the Alpaca market data and trading
// APIs. It supplies quotes, daily bars, news, the market clock, and open
// positions to the evaluation context builder.
package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"alphawatch/internal/domain"
)

// maxHeadlines bounds how many news items are fetched per symbol.
const maxHeadlines = 10

// Config holds the endpoints and credentials for the Alpaca APIs.
type Config struct {
	// DataHost is the market data API root, e.g. "https://data.alpaca.markets".
	DataHost string
	// TradingHost is the trading API root, used for the market clock and
	// positions, e.g. "https://paper-api.alpaca.markets".
	TradingHost string
	APIKey      string
	APISecret   string
}

// Client is the REST client. It is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New creates a Client with a default 30-second request timeout.
func New(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// snapshot mirrors the data API's per-symbol snapshot response.
type snapshot struct {
	LatestTrade struct {
		Price     float64   `json:"p"`
		Timestamp time.Time `json:"t"`
	} `json:"latestTrade"`
	DailyBar struct {
		Close  float64 `json:"c"`
		Volume int64   `json:"v"`
	} `json:"dailyBar"`
	PrevDailyBar struct {
		Close float64 `json:"c"`
	} `json:"prevDailyBar"`
}

// Quote returns a point-in-time quote for symbol, with change computed
// against the previous daily close.
func (c *Client) Quote(ctx context.Context, symbol string) (*domain.MarketData, error) {
	path := fmt.Sprintf("/v2/stocks/%s/snapshot", url.PathEscape(symbol))

	body, err := c.doGet(ctx, c.cfg.DataHost+path)
	if err != nil {
		return nil, fmt.Errorf("alpaca: quote %s: %w", symbol, err)
	}

	var snap snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("alpaca: decode snapshot %s: %w", symbol, err)
	}

	price := snap.LatestTrade.Price
	if price == 0 {
		price = snap.DailyBar.Close
	}

	md := &domain.MarketData{
		Symbol:       symbol,
		CurrentPrice: price,
		Volume:       snap.DailyBar.Volume,
		Timestamp:    snap.LatestTrade.Timestamp,
	}
	if prev := snap.PrevDailyBar.Close; prev > 0 {
		md.Change = price - prev
		md.ChangePercent = (price - prev) / prev * 100
	}
	if md.Timestamp.IsZero() {
		md.Timestamp = time.Now().UTC()
	}

	return md, nil
}

// barsResponse mirrors the data API's historical bars response.
type barsResponse struct {
	Bars []struct {
		Close float64 `json:"c"`
	} `json:"bars"`
	NextPageToken *string `json:"next_page_token"`
}

// CandleCloses returns up to limit daily closing prices for symbol, oldest
// first.
func (c *Client) CandleCloses(ctx context.Context, symbol string, limit int) ([]float64, error) {
	params := url.Values{}
	params.Set("timeframe", "1Day")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("adjustment", "split")

	path := fmt.Sprintf("/v2/stocks/%s/bars?%s", url.PathEscape(symbol), params.Encode())

	body, err := c.doGet(ctx, c.cfg.DataHost+path)
	if err != nil {
		return nil, fmt.Errorf("alpaca: bars %s: %w", symbol, err)
	}

	var resp barsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("alpaca: decode bars %s: %w", symbol, err)
	}

	closes := make([]float64, 0, len(resp.Bars))
	for _, b := range resp.Bars {
		closes = append(closes, b.Close)
	}
	return closes, nil
}

// newsResponse mirrors the data API's news response.
type newsResponse struct {
	News []struct {
		Headline  string    `json:"headline"`
		Source    string    `json:"source"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"news"`
}

// Headlines returns recent news items mentioning symbol.
func (c *Client) Headlines(ctx context.Context, symbol string) ([]domain.Headline, error) {
	params := url.Values{}
	params.Set("symbols", symbol)
	params.Set("limit", strconv.Itoa(maxHeadlines))

	body, err := c.doGet(ctx, c.cfg.DataHost+"/v1beta1/news?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("alpaca: news %s: %w", symbol, err)
	}

	var resp newsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("alpaca: decode news %s: %w", symbol, err)
	}

	out := make([]domain.Headline, 0, len(resp.News))
	for _, n := range resp.News {
		out = append(out, domain.Headline{
			Symbol:      symbol,
			Title:       n.Headline,
			Source:      n.Source,
			PublishedAt: n.CreatedAt,
		})
	}
	return out, nil
}

// clockResponse mirrors the trading API's market clock response.
type clockResponse struct {
	IsOpen bool `json:"is_open"`
}

// MarketOpen reports whether the market is currently open per the exchange
// calendar.
func (c *Client) MarketOpen(ctx context.Context) (bool, error) {
	body, err := c.doGet(ctx, c.cfg.TradingHost+"/v2/clock")
	if err != nil {
		return false, fmt.Errorf("alpaca: clock: %w", err)
	}

	var resp clockResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("alpaca: decode clock: %w", err)
	}
	return resp.IsOpen, nil
}

// apiPosition mirrors the trading API's position response.
type apiPosition struct {
	Symbol         string `json:"symbol"`
	Qty            string `json:"qty"`
	AvgEntryPrice  string `json:"avg_entry_price"`
	CurrentPrice   string `json:"current_price"`
	MarketValue    string `json:"market_value"`
	UnrealizedPL   string `json:"unrealized_pl"`
	UnrealizedPLPC string `json:"unrealized_plpc"`
}

// OpenPositions returns the account's open positions. The trading API is
// account-scoped, so userID is ignored; multi-tenant deployments front this
// with per-user credentials.
func (c *Client) OpenPositions(ctx context.Context, userID string) ([]domain.PositionSnapshot, error) {
	body, err := c.doGet(ctx, c.cfg.TradingHost+"/v2/positions")
	if err != nil {
		return nil, fmt.Errorf("alpaca: positions: %w", err)
	}

	var positions []apiPosition
	if err := json.Unmarshal(body, &positions); err != nil {
		return nil, fmt.Errorf("alpaca: decode positions: %w", err)
	}

	out := make([]domain.PositionSnapshot, 0, len(positions))
	for _, p := range positions {
		snap := domain.PositionSnapshot{
			Symbol:       p.Symbol,
			Quantity:     parseFloat(p.Qty),
			EntryPrice:   parseFloat(p.AvgEntryPrice),
			CurrentPrice: parseFloat(p.CurrentPrice),
			MarketValue:  parseFloat(p.MarketValue),
		}
		snap.UnrealizedProfitLoss = parseFloat(p.UnrealizedPL)
		// The API reports the fraction; the evaluator works in percent.
		snap.UnrealizedProfitLossPct = parseFloat(p.UnrealizedPLPC) * 100
		out = append(out, snap)
	}
	return out, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// doGet sends an authenticated GET request and returns the response body.
func (c *Client) doGet(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("APCA-API-KEY-ID", c.cfg.APIKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.cfg.APISecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
