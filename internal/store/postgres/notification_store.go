package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"alphawatch/internal/domain"
)

// NotificationStore implements domain.NotificationStore using PostgreSQL.
type NotificationStore struct {
	pool *pgxpool.Pool
}

// NewNotificationStore creates a NotificationStore backed by the given pool.
func NewNotificationStore(pool *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{pool: pool}
}

const notificationColumns = `
	id, user_id, threshold_id, type, severity, title, message, metadata,
	delivered_channels, is_read, is_deleted, created_at, read_at`

func scanNotification(row pgx.Row) (domain.Notification, error) {
	var n domain.Notification
	err := row.Scan(
		&n.ID, &n.UserID, &n.ThresholdID, &n.Type, &n.Severity,
		&n.Title, &n.Message, &n.Metadata,
		&n.DeliveredChannels, &n.IsRead, &n.IsDeleted, &n.CreatedAt, &n.ReadAt,
	)
	return n, err
}

// Create inserts a new notification.
func (s *NotificationStore) Create(ctx context.Context, n domain.Notification) error {
	const query = `
		INSERT INTO notifications (
			id, user_id, threshold_id, type, severity, title, message,
			metadata, delivered_channels, is_read, is_deleted, created_at, read_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	deliveries := n.DeliveredChannels
	if deliveries == nil {
		deliveries = []domain.ChannelDelivery{}
	}
	_, err := s.pool.Exec(ctx, query,
		n.ID, n.UserID, n.ThresholdID, string(n.Type), string(n.Severity),
		n.Title, n.Message, n.Metadata, deliveries,
		n.IsRead, n.IsDeleted, n.CreatedAt, n.ReadAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create notification %s: %w", n.ID, err)
	}
	return nil
}

// UpdateDeliveries replaces the delivery bookkeeping of a notification.
func (s *NotificationStore) UpdateDeliveries(ctx context.Context, id string, deliveries []domain.ChannelDelivery) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET delivered_channels = $2 WHERE id = $1`,
		id, deliveries,
	)
	if err != nil {
		return fmt.Errorf("postgres: update deliveries for notification %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update deliveries for notification %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// MarkRead flags a notification as read.
func (s *NotificationStore) MarkRead(ctx context.Context, id string, readAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = $2 WHERE id = $1`,
		id, readAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: mark notification %s read: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: mark notification %s read: %w", id, domain.ErrNotFound)
	}
	return nil
}

// MarkDeleted soft-deletes a notification; it stays queryable for archival.
func (s *NotificationStore) MarkDeleted(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_deleted = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: mark notification %s deleted: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: mark notification %s deleted: %w", id, domain.ErrNotFound)
	}
	return nil
}

// GetByID fetches one notification.
func (s *NotificationStore) GetByID(ctx context.Context, id string) (domain.Notification, error) {
	query := `SELECT` + notificationColumns + ` FROM notifications WHERE id = $1`

	n, err := scanNotification(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Notification{}, fmt.Errorf("postgres: notification %s: %w", id, domain.ErrNotFound)
		}
		return domain.Notification{}, fmt.Errorf("postgres: get notification %s: %w", id, err)
	}
	return n, nil
}

// ListByUser returns a user's non-deleted notifications, newest first.
func (s *NotificationStore) ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Notification, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 AND is_deleted = FALSE`
	args := []any{userID, limit, opts.Offset}
	if opts.UnreadOnly {
		query += ` AND is_read = FALSE`
	}
	if opts.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, len(args)+1)
		args = append(args, *opts.Since)
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list notifications for user %s: %w", userID, err)
	}
	defer rows.Close()

	return collectNotifications(rows)
}

// CountByThreshold counts notifications a threshold produced since the given
// instant. The throttle gate uses it to enforce the daily cap.
func (s *NotificationStore) CountByThreshold(ctx context.Context, thresholdID string, since time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE threshold_id = $1 AND created_at >= $2`,
		thresholdID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count notifications for threshold %s: %w", thresholdID, err)
	}
	return count, nil
}

// ListBefore returns notifications created before the cutoff, oldest first.
func (s *NotificationStore) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Notification, error) {
	query := `SELECT` + notificationColumns + `
		FROM notifications
		WHERE created_at < $1
		ORDER BY created_at
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list notifications before %v: %w", cutoff, err)
	}
	defer rows.Close()

	return collectNotifications(rows)
}

// DeleteIDs removes the given notifications and returns how many rows were
// pruned. The archiver passes the ids it just exported.
func (s *NotificationStore) DeleteIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM notifications WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete %d notifications: %w", len(ids), err)
	}
	return tag.RowsAffected(), nil
}

func collectNotifications(rows pgx.Rows) ([]domain.Notification, error) {
	var out []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Compile-time interface check.
var _ domain.NotificationStore = (*NotificationStore)(nil)
