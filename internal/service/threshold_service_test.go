package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"alphawatch/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fptr(f float64) *float64 { return &f }
func iptr(v int64) *int64     { return &v }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type memThresholdStore struct {
	mu         sync.Mutex
	thresholds map[string]domain.AlertThreshold
}

func newMemThresholdStore() *memThresholdStore {
	return &memThresholdStore{thresholds: map[string]domain.AlertThreshold{}}
}

func (s *memThresholdStore) Create(_ context.Context, t domain.AlertThreshold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholds[t.ID] = t
	return nil
}

func (s *memThresholdStore) Update(_ context.Context, t domain.AlertThreshold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.thresholds[t.ID]; !ok {
		return domain.ErrNotFound
	}
	s.thresholds[t.ID] = t
	return nil
}

func (s *memThresholdStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.thresholds[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.thresholds, id)
	return nil
}

func (s *memThresholdStore) GetByID(_ context.Context, id string) (domain.AlertThreshold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.thresholds[id]
	if !ok {
		return domain.AlertThreshold{}, domain.ErrNotFound
	}
	return t, nil
}

func (s *memThresholdStore) ListByUser(_ context.Context, userID string, _ domain.ListOpts) ([]domain.AlertThreshold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AlertThreshold
	for _, t := range s.thresholds {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memThresholdStore) ListEnabled(_ context.Context, userID string) ([]domain.AlertThreshold, error) {
	return nil, nil
}

func (s *memThresholdStore) ListActiveUserIDs(_ context.Context) ([]string, error) { return nil, nil }

func (s *memThresholdStore) UpdateLastTriggered(_ context.Context, id string, _ *time.Time, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.thresholds[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.LastTriggered = &now
	s.thresholds[id] = t
	return nil
}

func validPriceThreshold() domain.AlertThreshold {
	return domain.AlertThreshold{
		UserID:  "u1",
		Type:    domain.ThresholdPrice,
		Enabled: true,
		Conditions: domain.ThresholdConditions{
			Symbol:    "AAPL",
			Price:     fptr(150),
			Direction: domain.DirectionAbove,
		},
		Notifications: domain.NotificationSettings{
			Channels: []domain.Channel{domain.ChannelApp, domain.ChannelEmail},
		},
	}
}

func TestCreateAssignsIdentityAndDefaults(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	svc := NewThresholdService(newMemThresholdStore(), fixedClock{now}, testLogger())

	created, err := svc.Create(context.Background(), validPriceThreshold())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Error("id must be assigned")
	}
	if !created.CreatedAt.Equal(now) || !created.UpdatedAt.Equal(now) {
		t.Errorf("timestamps: created %v updated %v, want %v", created.CreatedAt, created.UpdatedAt, now)
	}
	if created.LastTriggered != nil {
		t.Error("lastTriggered must start unset")
	}
	if created.Notifications.Severity != domain.SeverityMedium {
		t.Errorf("severity default: got %q, want medium", created.Notifications.Severity)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewThresholdService(newMemThresholdStore(), fixedClock{time.Now()}, testLogger())
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*domain.AlertThreshold)
		wantErr error
	}{
		{
			"missing user",
			func(th *domain.AlertThreshold) { th.UserID = "" },
			domain.ErrInvalidConditions,
		},
		{
			"unknown type",
			func(th *domain.AlertThreshold) { th.Type = "astrology" },
			domain.ErrUnknownType,
		},
		{
			"price without level",
			func(th *domain.AlertThreshold) { th.Conditions.Price = nil },
			domain.ErrInvalidConditions,
		},
		{
			"price with bad direction",
			func(th *domain.AlertThreshold) { th.Conditions.Direction = "sideways" },
			domain.ErrInvalidConditions,
		},
		{
			"bad channel",
			func(th *domain.AlertThreshold) {
				th.Notifications.Channels = []domain.Channel{"carrier_pigeon"}
			},
			domain.ErrInvalidChannel,
		},
		{
			"negative cooldown",
			func(th *domain.AlertThreshold) { th.Notifications.Throttle.CooldownMinutes = -1 },
			domain.ErrInvalidConditions,
		},
		{
			"negative daily cap",
			func(th *domain.AlertThreshold) { th.Notifications.Throttle.MaxPerDay = -1 },
			domain.ErrInvalidConditions,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			th := validPriceThreshold()
			tc.mutate(&th)
			_, err := svc.Create(ctx, th)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCreateValidationPerType(t *testing.T) {
	svc := NewThresholdService(newMemThresholdStore(), fixedClock{time.Now()}, testLogger())
	ctx := context.Background()

	tests := []struct {
		name string
		th   domain.AlertThreshold
		ok   bool
	}{
		{
			"market_event without edges",
			domain.AlertThreshold{
				UserID: "u1",
				Type:   domain.ThresholdMarketEvent,
			},
			false,
		},
		{
			"market_event on open",
			domain.AlertThreshold{
				UserID:     "u1",
				Type:       domain.ThresholdMarketEvent,
				Conditions: domain.ThresholdConditions{OnOpen: true},
			},
			true,
		},
		{
			"rsi without bounds",
			domain.AlertThreshold{
				UserID: "u1",
				Type:   domain.ThresholdTechnicalIndicator,
				Conditions: domain.ThresholdConditions{
					Symbol:    "AAPL",
					Indicator: domain.IndicatorRSI,
					Period:    14,
				},
			},
			false,
		},
		{
			"rsi with upper bound",
			domain.AlertThreshold{
				UserID: "u1",
				Type:   domain.ThresholdTechnicalIndicator,
				Conditions: domain.ThresholdConditions{
					Symbol:    "AAPL",
					Indicator: domain.IndicatorRSI,
					Period:    14,
					Upper:     fptr(70),
				},
			},
			true,
		},
		{
			"position pnl without symbol",
			domain.AlertThreshold{
				UserID: "u1",
				Type:   domain.ThresholdPositionPnL,
				Conditions: domain.ThresholdConditions{
					ProfitLossPercent: fptr(5),
				},
			},
			false,
		},
		{
			"position pnl with symbol and percent bound",
			domain.AlertThreshold{
				UserID: "u1",
				Type:   domain.ThresholdPositionPnL,
				Conditions: domain.ThresholdConditions{
					Symbol:            "AAPL",
					ProfitLossPercent: fptr(5),
				},
			},
			true,
		},
		{
			"news without symbol",
			domain.AlertThreshold{
				UserID:     "u1",
				Type:       domain.ThresholdNews,
				Conditions: domain.ThresholdConditions{Keywords: []string{"earnings"}},
			},
			false,
		},
		{
			"news without keywords",
			domain.AlertThreshold{
				UserID:     "u1",
				Type:       domain.ThresholdNews,
				Conditions: domain.ThresholdConditions{Symbol: "AAPL"},
			},
			false,
		},
		{
			"strategy perf with drawdown bound",
			domain.AlertThreshold{
				UserID: "u1",
				Type:   domain.ThresholdStrategyPerf,
				Conditions: domain.ThresholdConditions{
					StrategyID:      "momo-1",
					DrawdownPercent: fptr(10),
				},
			},
			true,
		},
		{
			"volume negative",
			domain.AlertThreshold{
				UserID: "u1",
				Type:   domain.ThresholdVolume,
				Conditions: domain.ThresholdConditions{
					Symbol: "AAPL",
					Volume: iptr(-1),
				},
			},
			false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.th)
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestUpdatePreservesEngineOwnedFields(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fired := created.Add(time.Hour)
	later := created.Add(24 * time.Hour)

	store := newMemThresholdStore()
	svc := NewThresholdService(store, fixedClock{created}, testLogger())

	th, err := svc.Create(context.Background(), validPriceThreshold())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.UpdateLastTriggered(context.Background(), th.ID, nil, fired); err != nil {
		t.Fatalf("UpdateLastTriggered: %v", err)
	}

	svc = NewThresholdService(store, fixedClock{later}, testLogger())
	edit := th
	edit.UserID = "someone-else" // attempted ownership change is ignored
	edit.Conditions.Price = fptr(175)
	edit.LastTriggered = nil

	updated, err := svc.Update(context.Background(), edit)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.UserID != "u1" {
		t.Errorf("userID must be preserved, got %q", updated.UserID)
	}
	if updated.LastTriggered == nil || !updated.LastTriggered.Equal(fired) {
		t.Errorf("lastTriggered must be preserved, got %v", updated.LastTriggered)
	}
	if !updated.CreatedAt.Equal(created) {
		t.Errorf("createdAt must be preserved, got %v", updated.CreatedAt)
	}
	if !updated.UpdatedAt.Equal(later) {
		t.Errorf("updatedAt must advance, got %v", updated.UpdatedAt)
	}
	if *updated.Conditions.Price != 175 {
		t.Errorf("condition edit must apply, got %v", *updated.Conditions.Price)
	}
}

func TestUpdateMissingThreshold(t *testing.T) {
	svc := NewThresholdService(newMemThresholdStore(), fixedClock{time.Now()}, testLogger())
	th := validPriceThreshold()
	th.ID = "nope"
	_, err := svc.Update(context.Background(), th)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
