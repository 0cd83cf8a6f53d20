package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"alphawatch/internal/domain"
)

// busChannelPrefix is the EventBus channel prefix for per-user notification
// events consumed by the WebSocket hub.
const busChannelPrefix = "ch:notify:"

// BusChannel returns the EventBus channel carrying one user's notifications.
func BusChannel(userID string) string { return busChannelPrefix + userID }

// CycleStats summarizes one pipeline run for one user.
type CycleStats struct {
	Evaluated  int
	Suppressed int
	Triggered  int
	Skipped    int // thresholds skipped due to configuration errors
}

// Pipeline runs one user's thresholds through the gate → evaluator →
// composer → dispatch sequence and persists the results. Thresholds are
// independent: a configuration error on one is logged and skipped without
// affecting its siblings, and the run is abortable between thresholds — each
// threshold's sequence is the unit of atomicity, not the whole cycle.
type Pipeline struct {
	thresholds    domain.ThresholdStore
	notifications domain.NotificationStore
	gate          *Gate
	dispatcher    *Dispatcher
	bus           domain.EventBus
	clock         domain.Clock
	logger        *slog.Logger
}

// NewPipeline creates a Pipeline. The bus is optional; with a nil bus the
// in-app live feed publish is skipped (the notification row still exists).
func NewPipeline(
	thresholds domain.ThresholdStore,
	notifications domain.NotificationStore,
	gate *Gate,
	dispatcher *Dispatcher,
	bus domain.EventBus,
	clock domain.Clock,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		thresholds:    thresholds,
		notifications: notifications,
		gate:          gate,
		dispatcher:    dispatcher,
		bus:           bus,
		clock:         clock,
		logger:        logger.With(slog.String("component", "alert_pipeline")),
	}
}

// RunUser evaluates all enabled thresholds for one user against the supplied
// context. It returns early with ctx.Err() only between thresholds.
func (p *Pipeline) RunUser(ctx context.Context, userID string, ectx *domain.EvaluationContext) (CycleStats, error) {
	thresholds, err := p.thresholds.ListEnabled(ctx, userID)
	if err != nil {
		return CycleStats{}, fmt.Errorf("pipeline: list enabled thresholds for user %s: %w", userID, err)
	}
	return p.RunThresholds(ctx, thresholds, ectx)
}

// RunThresholds evaluates an already-loaded threshold set against the
// supplied context. The scheduler uses it when it has fetched the thresholds
// up front to know which symbols the context must cover.
func (p *Pipeline) RunThresholds(ctx context.Context, thresholds []domain.AlertThreshold, ectx *domain.EvaluationContext) (CycleStats, error) {
	var stats CycleStats
	for _, t := range thresholds {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		p.runThreshold(ctx, t, ectx, &stats)
	}
	return stats, nil
}

// runThreshold executes one threshold's gate→evaluate→compose→dispatch→persist
// sequence. Errors are contained here so sibling thresholds are unaffected.
func (p *Pipeline) runThreshold(ctx context.Context, t domain.AlertThreshold, ectx *domain.EvaluationContext, stats *CycleStats) {
	now := p.clock.Now()

	pass, err := p.gate.ShouldEvaluate(ctx, t, now)
	if err != nil {
		stats.Skipped++
		p.logger.WarnContext(ctx, "throttle gate failed, skipping threshold",
			slog.String("threshold_id", t.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if !pass {
		stats.Suppressed++
		return
	}

	stats.Evaluated++
	triggered, err := Evaluate(t, ectx)
	if err != nil {
		stats.Skipped++
		level := slog.LevelWarn
		if !errors.Is(err, domain.ErrInvalidConditions) {
			level = slog.LevelError
		}
		p.logger.Log(ctx, level, "threshold evaluation failed, skipping",
			slog.String("threshold_id", t.ID),
			slog.String("type", string(t.Type)),
			slog.String("error", err.Error()),
		)
		return
	}
	if !triggered {
		return
	}
	stats.Triggered++

	n := Compose(t, ectx, now)
	if err := p.notifications.Create(ctx, n); err != nil {
		p.logger.ErrorContext(ctx, "persist notification failed",
			slog.String("threshold_id", t.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	p.publish(ctx, &n)

	p.dispatcher.Dispatch(ctx, &n, t)
	if err := p.notifications.UpdateDeliveries(ctx, n.ID, n.DeliveredChannels); err != nil {
		p.logger.ErrorContext(ctx, "persist delivery outcome failed",
			slog.String("notification_id", n.ID),
			slog.String("error", err.Error()),
		)
	}

	// The threshold counts as fired once the trigger decision was made, no
	// matter how the external channels fared: the in-app channel always
	// succeeds. The guarded update keeps two overlapping cycles from both
	// claiming the same trigger.
	if err := p.thresholds.UpdateLastTriggered(ctx, t.ID, t.LastTriggered, now); err != nil {
		p.logger.WarnContext(ctx, "update lastTriggered failed",
			slog.String("threshold_id", t.ID),
			slog.String("error", err.Error()),
		)
	}

	p.logger.InfoContext(ctx, "threshold fired",
		slog.String("threshold_id", t.ID),
		slog.String("user_id", t.UserID),
		slog.String("type", string(t.Type)),
		slog.String("notification_id", n.ID),
	)
}

// publish pushes the composed notification onto the user's bus channel for
// live in-app delivery. Publish failures are logged, never escalated: the
// persisted row is the source of truth for the app channel.
func (p *Pipeline) publish(ctx context.Context, n *domain.Notification) {
	if p.bus == nil {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return
	}
	if err := p.bus.Publish(ctx, BusChannel(n.UserID), payload); err != nil {
		p.logger.WarnContext(ctx, "publish notification event failed",
			slog.String("notification_id", n.ID),
			slog.String("error", err.Error()),
		)
	}
}
