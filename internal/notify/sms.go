package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"alphawatch/internal/domain"
)

// SMSConfig holds the parameters for the HTTP SMS gateway.
type SMSConfig struct {
	GatewayURL string
	APIKey     string
	SenderID   string
}

// SMSSender delivers notifications via an HTTP SMS gateway that accepts a
// JSON POST of {to, from, body}.
type SMSSender struct {
	cfg       SMSConfig
	client    *http.Client
	recipient Recipient
}

// NewSMSSender creates an SMSSender with a default 10-second HTTP timeout.
func NewSMSSender(cfg SMSConfig, recipient Recipient) *SMSSender {
	return &SMSSender{
		cfg:       cfg,
		client:    &http.Client{Timeout: 10 * time.Second},
		recipient: recipient,
	}
}

// Channel returns domain.ChannelSMS.
func (s *SMSSender) Channel() domain.Channel { return domain.ChannelSMS }

// Send resolves the user's phone number and posts the message to the gateway.
// SMS bodies are kept short: title plus message, truncated to 160 characters.
func (s *SMSSender) Send(ctx context.Context, n *domain.Notification) error {
	phone, err := s.recipient.PhoneNumber(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("sms: resolve phone for user %s: %w", n.UserID, err)
	}

	text := truncateRunes(n.Title+": "+n.Message, 160)

	payload := map[string]string{
		"to":   phone,
		"from": s.cfg.SenderID,
		"body": text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sms: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sms: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sms: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// truncateRunes shortens s to at most max runes, reserving three for an
// ellipsis, without splitting a multi-byte rune.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-3]) + "..."
}

// Compile-time interface check.
var _ Sender = (*SMSSender)(nil)
