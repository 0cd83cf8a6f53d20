package alert

import (
	"context"
	"testing"
	"time"

	"alphawatch/internal/domain"
)

func gateThreshold(enabled bool, cooldownMinutes, maxPerDay int, lastTriggered *time.Time) domain.AlertThreshold {
	return domain.AlertThreshold{
		ID:            "t-gate",
		UserID:        "u1",
		Type:          domain.ThresholdPrice,
		Enabled:       enabled,
		LastTriggered: lastTriggered,
		Notifications: domain.NotificationSettings{
			Throttle: domain.Throttle{
				CooldownMinutes: cooldownMinutes,
				MaxPerDay:       maxPerDay,
			},
		},
	}
}

func TestGateDisabledThreshold(t *testing.T) {
	g := NewGate(newFakeNotificationStore(), testLogger())
	pass, err := g.ShouldEvaluate(context.Background(), gateThreshold(false, 0, 0, nil), time.Now())
	if err != nil {
		t.Fatalf("ShouldEvaluate: %v", err)
	}
	if pass {
		t.Error("disabled threshold must be suppressed")
	}
}

func TestGateCooldown(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	g := NewGate(newFakeNotificationStore(), testLogger())

	// Fired 10 minutes ago with a 30-minute cooldown: suppressed.
	last := now.Add(-10 * time.Minute)
	pass, err := g.ShouldEvaluate(context.Background(), gateThreshold(true, 30, 0, &last), now)
	if err != nil {
		t.Fatalf("ShouldEvaluate: %v", err)
	}
	if pass {
		t.Error("threshold inside cooldown window must be suppressed")
	}

	// Fired 31 minutes ago: window expired.
	last = now.Add(-31 * time.Minute)
	pass, err = g.ShouldEvaluate(context.Background(), gateThreshold(true, 30, 0, &last), now)
	if err != nil {
		t.Fatalf("ShouldEvaluate: %v", err)
	}
	if !pass {
		t.Error("threshold past cooldown window must pass")
	}

	// Never fired: no cooldown applies.
	pass, err = g.ShouldEvaluate(context.Background(), gateThreshold(true, 30, 0, nil), now)
	if err != nil {
		t.Fatalf("ShouldEvaluate: %v", err)
	}
	if !pass {
		t.Error("never-fired threshold must pass")
	}
}

func TestGateDailyCap(t *testing.T) {
	store := newFakeNotificationStore()
	store.countByThresh["t-gate"] = 3
	g := NewGate(store, testLogger())
	now := time.Now()

	pass, err := g.ShouldEvaluate(context.Background(), gateThreshold(true, 0, 3, nil), now)
	if err != nil {
		t.Fatalf("ShouldEvaluate: %v", err)
	}
	if pass {
		t.Error("threshold at its daily cap must be suppressed")
	}

	pass, err = g.ShouldEvaluate(context.Background(), gateThreshold(true, 0, 4, nil), now)
	if err != nil {
		t.Fatalf("ShouldEvaluate: %v", err)
	}
	if !pass {
		t.Error("threshold under its daily cap must pass")
	}

	// MaxPerDay zero means unlimited: the store is not even consulted.
	store.countErr = context.DeadlineExceeded
	pass, err = g.ShouldEvaluate(context.Background(), gateThreshold(true, 0, 0, nil), now)
	if err != nil {
		t.Fatalf("ShouldEvaluate: %v", err)
	}
	if !pass {
		t.Error("unlimited threshold must pass without a count lookup")
	}
}

func TestCooldownEnd(t *testing.T) {
	last := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	if end := CooldownEnd(nil, 30); !end.IsZero() {
		t.Errorf("nil lastTriggered: got %v, want zero time", end)
	}
	if end := CooldownEnd(&last, 0); !end.IsZero() {
		t.Errorf("zero cooldown: got %v, want zero time", end)
	}
	want := last.Add(30 * time.Minute)
	if end := CooldownEnd(&last, 30); !end.Equal(want) {
		t.Errorf("got %v, want %v", end, want)
	}
}
