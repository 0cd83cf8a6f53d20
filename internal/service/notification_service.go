package service

import (
	"context"
	"fmt"
	"log/slog"

	"alphawatch/internal/domain"
)

// NotificationService exposes the user-facing notification feed: listing,
// read-state changes, and soft deletion. Creation happens inside the
// evaluation pipeline, never through this surface.
type NotificationService struct {
	notifications domain.NotificationStore
	clock         domain.Clock
	logger        *slog.Logger
}

// NewNotificationService creates a NotificationService with all required
// dependencies.
func NewNotificationService(notifications domain.NotificationStore, clock domain.Clock, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		clock:         clock,
		logger:        logger,
	}
}

// Get retrieves a single notification by id.
func (s *NotificationService) Get(ctx context.Context, id string) (domain.Notification, error) {
	n, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("notification_service: get %q: %w", id, err)
	}
	return n, nil
}

// ListByUser returns a user's notifications, newest first. Soft-deleted
// entries are excluded by the store.
func (s *NotificationService) ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Notification, error) {
	out, err := s.notifications.ListByUser(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("notification_service: list by user %q: %w", userID, err)
	}
	return out, nil
}

// MarkRead stamps a notification as read at the current time. Marking an
// already-read notification is a no-op at the store level.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	if err := s.notifications.MarkRead(ctx, id, s.clock.Now()); err != nil {
		return fmt.Errorf("notification_service: mark read %q: %w", id, err)
	}
	return nil
}

// Delete soft-deletes a notification. The row stays in place for the
// retention archiver; it just disappears from list results.
func (s *NotificationService) Delete(ctx context.Context, id string) error {
	if err := s.notifications.MarkDeleted(ctx, id); err != nil {
		return fmt.Errorf("notification_service: delete %q: %w", id, err)
	}
	s.logger.DebugContext(ctx, "notification_service: soft-deleted notification",
		slog.String("notification_id", id),
	)
	return nil
}
