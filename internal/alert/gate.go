package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"alphawatch/internal/domain"
)

// CooldownEnd returns the instant at which a threshold's cooldown window
// expires. A nil lastTriggered or non-positive cooldown means no window is in
// effect and the zero time is returned.
func CooldownEnd(lastTriggered *time.Time, cooldownMinutes int) time.Time {
	if lastTriggered == nil || cooldownMinutes <= 0 {
		return time.Time{}
	}
	return lastTriggered.Add(time.Duration(cooldownMinutes) * time.Minute)
}

// Gate decides whether a threshold should be evaluated at all this cycle. It
// applies, in order: the enabled flag, the cooldown window, and the daily
// cap. The cooldown is a local timestamp comparison and runs before the store
// lookup the daily cap needs, so suppressed thresholds cost nothing.
type Gate struct {
	notifications domain.NotificationStore
	logger        *slog.Logger
}

// NewGate creates a Gate backed by the given notification store, which is
// consulted only for the MaxPerDay count.
func NewGate(notifications domain.NotificationStore, logger *slog.Logger) *Gate {
	return &Gate{
		notifications: notifications,
		logger:        logger.With(slog.String("component", "throttle_gate")),
	}
}

// ShouldEvaluate reports whether the threshold passes all suppression checks
// at the given instant. The daily cap counts notifications in the trailing
// 24 hours (rolling window, not calendar day).
func (g *Gate) ShouldEvaluate(ctx context.Context, t domain.AlertThreshold, now time.Time) (bool, error) {
	if !t.Enabled {
		return false, nil
	}

	if end := CooldownEnd(t.LastTriggered, t.Notifications.Throttle.CooldownMinutes); !end.IsZero() && now.Before(end) {
		g.logger.DebugContext(ctx, "threshold in cooldown",
			slog.String("threshold_id", t.ID),
			slog.Time("cooldown_end", end),
		)
		return false, nil
	}

	if maxPerDay := t.Notifications.Throttle.MaxPerDay; maxPerDay > 0 {
		count, err := g.notifications.CountByThreshold(ctx, t.ID, now.Add(-24*time.Hour))
		if err != nil {
			return false, fmt.Errorf("gate: count notifications for threshold %s: %w", t.ID, err)
		}
		if count >= maxPerDay {
			g.logger.DebugContext(ctx, "threshold hit daily cap",
				slog.String("threshold_id", t.ID),
				slog.Int("count", count),
				slog.Int("max_per_day", maxPerDay),
			)
			return false, nil
		}
	}

	return true, nil
}
