// Package engine schedules the alert evaluation cycles and the notification
// retention archiver as long-running loops under one errgroup.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"alphawatch/internal/alert"
	"alphawatch/internal/domain"
	"alphawatch/internal/feed"
)

// defaultUserConcurrency bounds how many users' pipelines run at once within
// a cycle. Users touch disjoint threshold sets and store rows, so they are
// safe to fan out.
const defaultUserConcurrency = 8

// Orchestrator drives periodic evaluation cycles across all active users and
// the daily retention archive run.
type Orchestrator struct {
	thresholds      domain.ThresholdStore
	pipeline        *alert.Pipeline
	builder         *feed.Builder
	archiver        *Archiver
	cycleInterval   time.Duration
	userConcurrency int
	logger          *slog.Logger
}

// NewOrchestrator creates an Orchestrator. The archiver may be nil when cold
// storage is not configured; the archive loop is then skipped.
func NewOrchestrator(
	thresholds domain.ThresholdStore,
	pipeline *alert.Pipeline,
	builder *feed.Builder,
	archiver *Archiver,
	cycleInterval time.Duration,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		thresholds:      thresholds,
		pipeline:        pipeline,
		builder:         builder,
		archiver:        archiver,
		cycleInterval:   cycleInterval,
		userConcurrency: defaultUserConcurrency,
		logger:          logger.With(slog.String("component", "orchestrator")),
	}
}

// SetUserConcurrency overrides the per-cycle user fan-out bound. Values
// below 1 are ignored.
func (o *Orchestrator) SetUserConcurrency(n int) {
	if n >= 1 {
		o.userConcurrency = n
	}
}

// Run starts the evaluation loop and, when configured, the archive loop, and
// blocks until the context is cancelled. A clean shutdown returns nil.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.InfoContext(ctx, "engine starting",
		slog.Duration("cycle_interval", o.cycleInterval),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := o.runCycleLoop(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("evaluation loop: %w", err)
	})

	if o.archiver != nil {
		g.Go(func() error {
			err := o.archiver.RunLoop(ctx)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("archive loop: %w", err)
		})
	}

	err := g.Wait()
	if err != nil {
		o.logger.Error("engine stopped with error", slog.String("error", err.Error()))
		return err
	}
	o.logger.Info("engine stopped cleanly")
	return nil
}

// runCycleLoop runs one cycle immediately, then on every tick.
func (o *Orchestrator) runCycleLoop(ctx context.Context) error {
	if err := o.RunCycle(ctx); err != nil {
		o.logger.ErrorContext(ctx, "evaluation cycle failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(o.cycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := o.RunCycle(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				o.logger.ErrorContext(ctx, "evaluation cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RunCycle executes a single evaluation cycle: read the market clock once,
// then run every active user's pipeline concurrently (bounded). One user's
// failure is logged without aborting the other users' pipelines.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	start := time.Now()

	userIDs, err := o.thresholds.ListActiveUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("cycle: list active users: %w", err)
	}
	if len(userIDs) == 0 {
		return nil
	}

	// One clock read per cycle so every user observes the same open/close
	// edge exactly once.
	status := o.builder.MarketStatus(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.userConcurrency)

	for _, userID := range userIDs {
		g.Go(func() error {
			thresholds, err := o.thresholds.ListEnabled(gctx, userID)
			if err != nil {
				o.logger.WarnContext(gctx, "list thresholds failed",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				return nil
			}
			if len(thresholds) == 0 {
				return nil
			}

			ectx := o.builder.Build(gctx, userID, feed.SymbolsFor(thresholds), status)
			stats, err := o.pipeline.RunThresholds(gctx, thresholds, ectx)
			if err != nil {
				// Only context cancellation escapes RunThresholds.
				return err
			}
			if stats.Triggered > 0 || stats.Skipped > 0 {
				o.logger.InfoContext(gctx, "user cycle complete",
					slog.String("user_id", userID),
					slog.Int("evaluated", stats.Evaluated),
					slog.Int("suppressed", stats.Suppressed),
					slog.Int("triggered", stats.Triggered),
					slog.Int("skipped", stats.Skipped),
				)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	o.logger.DebugContext(ctx, "cycle complete",
		slog.Int("users", len(userIDs)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}
