package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit      int
	Offset     int
	Since      *time.Time
	Until      *time.Time
	UnreadOnly bool
}

// ThresholdStore persists alert thresholds.
type ThresholdStore interface {
	Create(ctx context.Context, t AlertThreshold) error
	Update(ctx context.Context, t AlertThreshold) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (AlertThreshold, error)
	ListByUser(ctx context.Context, userID string, opts ListOpts) ([]AlertThreshold, error)
	// ListEnabled returns the enabled thresholds for one user, the set a
	// single evaluation cycle operates on.
	ListEnabled(ctx context.Context, userID string) ([]AlertThreshold, error)
	// ListActiveUserIDs returns the distinct user ids that have at least one
	// enabled threshold, so the scheduler knows whose pipelines to run.
	ListActiveUserIDs(ctx context.Context) ([]string, error)
	// UpdateLastTriggered advances a threshold's lastTriggered marker only if
	// it still holds prev, so two overlapping cycles cannot both claim the
	// same trigger. It returns ErrNotFound when the guard does not match.
	UpdateLastTriggered(ctx context.Context, id string, prev *time.Time, now time.Time) error
}

// NotificationStore persists notifications and their delivery bookkeeping.
type NotificationStore interface {
	Create(ctx context.Context, n Notification) error
	UpdateDeliveries(ctx context.Context, id string, deliveries []ChannelDelivery) error
	MarkRead(ctx context.Context, id string, readAt time.Time) error
	MarkDeleted(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Notification, error)
	ListByUser(ctx context.Context, userID string, opts ListOpts) ([]Notification, error)
	// CountByThreshold counts notifications a threshold has produced since
	// the given instant; the throttle gate uses it for the daily cap.
	CountByThreshold(ctx context.Context, thresholdID string, since time.Time) (int, error)
	// ListBefore returns notifications created before the cutoff, oldest
	// first, for archival. DeleteIDs prunes exactly the exported rows, so
	// rows sharing a boundary timestamp beyond one batch are never lost.
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]Notification, error)
	DeleteIDs(ctx context.Context, ids []string) (int64, error)
}

// BotStore persists bot instances.
type BotStore interface {
	Create(ctx context.Context, b BotInstance) error
	Update(ctx context.Context, b BotInstance) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (BotInstance, error)
	ListByUser(ctx context.Context, userID string) ([]BotInstance, error)
	UpdateHeartbeat(ctx context.Context, id string, at time.Time) error
}

// LockManager provides distributed mutual exclusion keyed by string. Bot
// lifecycle transitions acquire a lock per bot id so concurrent start/pause/
// stop calls on the same instance are serialized.
type LockManager interface {
	// Acquire obtains the lock for key with the given TTL and returns an
	// unlock function. It returns ErrLockHeld when another party holds it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter bounds how often an action keyed by string may happen. The
// HTTP layer uses it for per-client request limiting.
type RateLimiter interface {
	// Allow reports whether one more action under key fits inside the
	// window, counting it if so.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Event is one message delivered through the EventBus. Channel is the
// concrete channel the event was published on, which matters to subscribers
// listening on a pattern.
type Event struct {
	Channel string
	Payload []byte
}

// EventBus publishes engine events (composed notifications, bot transitions)
// to interested subscribers such as the WebSocket hub. Subscribe accepts
// glob-style patterns ("ch:notify:*").
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, pattern string) (<-chan Event, error)
}

// Clock abstracts time.Now so cooldown and uptime arithmetic is unit-testable
// without a real clock.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock backed by time.Now.
type RealClock struct{}

// Now returns the current UTC time.
func (RealClock) Now() time.Time { return time.Now().UTC() }
