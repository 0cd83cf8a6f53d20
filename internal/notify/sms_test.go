package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"alphawatch/internal/domain"
)

type fakeRecipient struct {
	phone string
}

func (r *fakeRecipient) EmailAddress(context.Context, string) (string, error) { return "", nil }
func (r *fakeRecipient) PhoneNumber(context.Context, string) (string, error)  { return r.phone, nil }
func (r *fakeRecipient) DeviceTokens(context.Context, string) ([]string, error) {
	return nil, nil
}

func TestSMSSendTruncatesLongBody(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode gateway payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSMSSender(SMSConfig{GatewayURL: srv.URL, SenderID: "alphawatch"}, &fakeRecipient{phone: "+15551234"})

	// A body of multi-byte runes long enough to force truncation. A byte-index
	// cut would land mid-rune and produce invalid UTF-8.
	n := &domain.Notification{
		UserID:  "u1",
		Title:   "Price alert",
		Message: strings.Repeat("é", 200),
	}
	if err := s.Send(context.Background(), n); err != nil {
		t.Fatalf("send: %v", err)
	}

	body := got["body"]
	if !utf8.ValidString(body) {
		t.Fatalf("gateway body is not valid UTF-8: %q", body)
	}
	if count := utf8.RuneCountInString(body); count > 160 {
		t.Errorf("body rune count: got %d, want <= 160", count)
	}
	if !strings.HasSuffix(body, "...") {
		t.Errorf("truncated body should end with ellipsis, got %q", body)
	}
	if got["to"] != "+15551234" {
		t.Errorf("to: got %q", got["to"])
	}
}

func TestSMSSendShortBodyUntouched(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSMSSender(SMSConfig{GatewayURL: srv.URL}, &fakeRecipient{phone: "+15551234"})

	n := &domain.Notification{UserID: "u1", Title: "Volume spike", Message: "TSLA volume above 1M"}
	if err := s.Send(context.Background(), n); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["body"] != "Volume spike: TSLA volume above 1M" {
		t.Errorf("body: got %q", got["body"])
	}
}
