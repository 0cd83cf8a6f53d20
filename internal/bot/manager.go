// Package bot implements the trading bot lifecycle state machine: idle →
// running → paused transitions with cumulative uptime bookkeeping. Uptime
// equals total wall-clock time spent running, excludes paused intervals, and
// is never double-counted across pause/resume cycles.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"alphawatch/internal/domain"
)

// lockTTL bounds how long a transition may hold a bot's lock. Transitions are
// short; the TTL only matters if a process dies mid-transition.
const lockTTL = 10 * time.Second

// elapsedSeconds returns the whole seconds between start and end, floored,
// never negative.
func elapsedSeconds(start, end time.Time) int64 {
	if end.Before(start) {
		return 0
	}
	return int64(end.Sub(start).Seconds())
}

// segmentEnd picks the end of the current run segment: the pause instant when
// a pause was in effect, otherwise now. Using pausedAt rather than now is
// what keeps paused time out of the uptime total.
func segmentEnd(pausedAt *time.Time, now time.Time) time.Time {
	if pausedAt != nil {
		return *pausedAt
	}
	return now
}

// Manager executes lifecycle transitions on bot instances. Transitions on the
// same instance are serialized through the lock manager (keyed by bot id), so
// concurrent start/pause/stop calls cannot interleave their read-modify-write
// of the runtime bookkeeping.
type Manager struct {
	store  domain.BotStore
	locks  domain.LockManager
	clock  domain.Clock
	logger *slog.Logger
}

// NewManager creates a Manager over the given store and lock manager.
func NewManager(store domain.BotStore, locks domain.LockManager, clock domain.Clock, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		locks:  locks,
		clock:  clock,
		logger: logger.With(slog.String("component", "bot_manager")),
	}
}

// Start transitions a bot from idle or paused to running. On a fresh start
// (startedAt unset) it stamps the segment origin; on resume it shifts the
// origin forward by the paused duration, so the eventual stop folds only the
// time actually spent running. Starting an already running bot returns
// ErrBotAlreadyRunning without mutation.
func (m *Manager) Start(ctx context.Context, botID string) (domain.BotInstance, error) {
	return m.transition(ctx, botID, "start", func(b *domain.BotInstance, now time.Time) error {
		if b.Status == domain.BotRunning {
			return domain.ErrBotAlreadyRunning
		}
		switch {
		case b.Runtime.StartedAt == nil:
			t := now
			b.Runtime.StartedAt = &t
		case b.Runtime.PausedAt != nil:
			t := b.Runtime.StartedAt.Add(now.Sub(*b.Runtime.PausedAt))
			b.Runtime.StartedAt = &t
		}
		b.Runtime.PausedAt = nil
		b.Status = domain.BotRunning
		return nil
	})
}

// Pause transitions a running bot to paused, stamping the pause instant.
// startedAt is left untouched: it still marks when the current run segment
// began. Pausing a bot that is not running returns ErrBotNotRunning.
func (m *Manager) Pause(ctx context.Context, botID string) (domain.BotInstance, error) {
	return m.transition(ctx, botID, "pause", func(b *domain.BotInstance, now time.Time) error {
		if b.Status != domain.BotRunning {
			return domain.ErrBotNotRunning
		}
		t := now
		b.Runtime.PausedAt = &t
		b.Status = domain.BotPaused
		return nil
	})
}

// Stop transitions a running or paused bot to idle and folds the elapsed run
// segment into the uptime total. The segment ends at the pause instant when
// the bot was paused, so paused time never counts. Stopping an idle bot
// returns ErrBotAlreadyIdle.
func (m *Manager) Stop(ctx context.Context, botID string) (domain.BotInstance, error) {
	return m.transition(ctx, botID, "stop", func(b *domain.BotInstance, now time.Time) error {
		if b.Status == domain.BotIdle {
			return domain.ErrBotAlreadyIdle
		}
		if b.Runtime.StartedAt != nil {
			end := segmentEnd(b.Runtime.PausedAt, now)
			b.Runtime.UptimeSeconds += elapsedSeconds(*b.Runtime.StartedAt, end)
		}
		b.Runtime.StartedAt = nil
		b.Runtime.PausedAt = nil
		b.Status = domain.BotIdle
		return nil
	})
}

// Delete removes a bot instance. Only idle bots may be deleted; callers must
// stop a running or paused bot first (ErrBotNotIdle otherwise).
func (m *Manager) Delete(ctx context.Context, botID string) error {
	unlock, err := m.locks.Acquire(ctx, lockKey(botID), lockTTL)
	if err != nil {
		return fmt.Errorf("bot %s: acquire lock: %w", botID, err)
	}
	defer unlock()

	b, err := m.store.GetByID(ctx, botID)
	if err != nil {
		return fmt.Errorf("bot %s: load: %w", botID, err)
	}
	if b.Status != domain.BotIdle {
		return fmt.Errorf("bot %s: delete: %w", botID, domain.ErrBotNotIdle)
	}
	if err := m.store.Delete(ctx, botID); err != nil {
		return fmt.Errorf("bot %s: delete: %w", botID, err)
	}
	m.logger.InfoContext(ctx, "bot deleted", slog.String("bot_id", botID))
	return nil
}

// Heartbeat stamps the bot's last-heartbeat marker. It is a plain update, not
// a transition, and does not take the lock.
func (m *Manager) Heartbeat(ctx context.Context, botID string) error {
	if err := m.store.UpdateHeartbeat(ctx, botID, m.clock.Now()); err != nil {
		return fmt.Errorf("bot %s: heartbeat: %w", botID, err)
	}
	return nil
}

// transition runs one serialized read-mutate-write cycle. A rejected
// transition returns the instance untouched: mutate operates on a copy and
// nothing is written unless it succeeds.
func (m *Manager) transition(
	ctx context.Context,
	botID, name string,
	mutate func(*domain.BotInstance, time.Time) error,
) (domain.BotInstance, error) {
	unlock, err := m.locks.Acquire(ctx, lockKey(botID), lockTTL)
	if err != nil {
		return domain.BotInstance{}, fmt.Errorf("bot %s: acquire lock: %w", botID, err)
	}
	defer unlock()

	b, err := m.store.GetByID(ctx, botID)
	if err != nil {
		return domain.BotInstance{}, fmt.Errorf("bot %s: load: %w", botID, err)
	}

	now := m.clock.Now()
	prev := b.Status
	if err := mutate(&b, now); err != nil {
		return b, fmt.Errorf("bot %s: %s: %w", botID, name, err)
	}
	b.UpdatedAt = now

	if err := m.store.Update(ctx, b); err != nil {
		return domain.BotInstance{}, fmt.Errorf("bot %s: persist %s: %w", botID, name, err)
	}

	m.logger.InfoContext(ctx, "bot transition",
		slog.String("bot_id", botID),
		slog.String("transition", name),
		slog.String("from", string(prev)),
		slog.String("to", string(b.Status)),
		slog.Int64("uptime_seconds", b.Runtime.UptimeSeconds),
	)
	return b, nil
}

func lockKey(botID string) string { return "bot:" + botID }
