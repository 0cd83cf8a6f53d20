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

// ThresholdStore implements domain.ThresholdStore using PostgreSQL.
type ThresholdStore struct {
	pool *pgxpool.Pool
}

// NewThresholdStore creates a ThresholdStore backed by the given pool.
func NewThresholdStore(pool *pgxpool.Pool) *ThresholdStore {
	return &ThresholdStore{pool: pool}
}

const thresholdColumns = `
	id, user_id, type, enabled, conditions, notifications,
	last_triggered, created_at, updated_at`

func scanThreshold(row pgx.Row) (domain.AlertThreshold, error) {
	var t domain.AlertThreshold
	err := row.Scan(
		&t.ID, &t.UserID, &t.Type, &t.Enabled, &t.Conditions, &t.Notifications,
		&t.LastTriggered, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

// Create inserts a new threshold.
func (s *ThresholdStore) Create(ctx context.Context, t domain.AlertThreshold) error {
	const query = `
		INSERT INTO alert_thresholds (
			id, user_id, type, enabled, conditions, notifications,
			last_triggered, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.UserID, string(t.Type), t.Enabled, t.Conditions, t.Notifications,
		t.LastTriggered, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create threshold %s: %w", t.ID, err)
	}
	return nil
}

// Update rewrites a threshold's user-editable fields. LastTriggered is not
// touched here; the engine owns it through UpdateLastTriggered.
func (s *ThresholdStore) Update(ctx context.Context, t domain.AlertThreshold) error {
	const query = `
		UPDATE alert_thresholds SET
			type          = $2,
			enabled       = $3,
			conditions    = $4,
			notifications = $5,
			updated_at    = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		t.ID, string(t.Type), t.Enabled, t.Conditions, t.Notifications,
	)
	if err != nil {
		return fmt.Errorf("postgres: update threshold %s: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update threshold %s: %w", t.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a threshold.
func (s *ThresholdStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM alert_thresholds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete threshold %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: delete threshold %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// GetByID fetches one threshold.
func (s *ThresholdStore) GetByID(ctx context.Context, id string) (domain.AlertThreshold, error) {
	query := `SELECT` + thresholdColumns + ` FROM alert_thresholds WHERE id = $1`

	t, err := scanThreshold(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AlertThreshold{}, fmt.Errorf("postgres: threshold %s: %w", id, domain.ErrNotFound)
		}
		return domain.AlertThreshold{}, fmt.Errorf("postgres: get threshold %s: %w", id, err)
	}
	return t, nil
}

// ListByUser returns a user's thresholds, newest first.
func (s *ThresholdStore) ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.AlertThreshold, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT` + thresholdColumns + `
		FROM alert_thresholds
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, userID, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list thresholds for user %s: %w", userID, err)
	}
	defer rows.Close()

	return collectThresholds(rows)
}

// ListEnabled returns all enabled thresholds for one user.
func (s *ThresholdStore) ListEnabled(ctx context.Context, userID string) ([]domain.AlertThreshold, error) {
	query := `SELECT` + thresholdColumns + `
		FROM alert_thresholds
		WHERE user_id = $1 AND enabled = TRUE
		ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list enabled thresholds for user %s: %w", userID, err)
	}
	defer rows.Close()

	return collectThresholds(rows)
}

// ListActiveUserIDs returns the distinct user ids with enabled thresholds.
func (s *ThresholdStore) ListActiveUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT user_id FROM alert_thresholds WHERE enabled = TRUE ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateLastTriggered advances last_triggered guarded by its previous value,
// so two overlapping cycles cannot both record the same trigger. A failed
// guard surfaces as ErrNotFound.
func (s *ThresholdStore) UpdateLastTriggered(ctx context.Context, id string, prev *time.Time, now time.Time) error {
	const query = `
		UPDATE alert_thresholds
		SET last_triggered = $3, updated_at = NOW()
		WHERE id = $1 AND last_triggered IS NOT DISTINCT FROM $2`

	tag, err := s.pool.Exec(ctx, query, id, prev, now)
	if err != nil {
		return fmt.Errorf("postgres: update last_triggered for threshold %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update last_triggered for threshold %s: stale guard: %w", id, domain.ErrNotFound)
	}
	return nil
}

func collectThresholds(rows pgx.Rows) ([]domain.AlertThreshold, error) {
	var out []domain.AlertThreshold
	for rows.Next() {
		t, err := scanThreshold(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan threshold: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Compile-time interface check.
var _ domain.ThresholdStore = (*ThresholdStore)(nil)
