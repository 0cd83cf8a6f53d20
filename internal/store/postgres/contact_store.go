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

// ContactStore resolves per-user delivery endpoints for the outbound
// notification channels. It satisfies the notify package's Recipient
// interface.
type ContactStore struct {
	pool *pgxpool.Pool
}

// NewContactStore creates a ContactStore backed by the given pool.
func NewContactStore(pool *pgxpool.Pool) *ContactStore {
	return &ContactStore{pool: pool}
}

// Upsert creates or replaces a user's contact endpoints.
func (s *ContactStore) Upsert(ctx context.Context, userID, email, phone string, deviceTokens []string) error {
	const query = `
		INSERT INTO user_contacts (user_id, email, phone, device_tokens, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			device_tokens = EXCLUDED.device_tokens,
			updated_at = EXCLUDED.updated_at`

	if deviceTokens == nil {
		deviceTokens = []string{}
	}
	_, err := s.pool.Exec(ctx, query, userID, email, phone, deviceTokens, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("postgres: upsert contacts for user %s: %w", userID, err)
	}
	return nil
}

// EmailAddress returns the user's email endpoint. A user without a stored
// email resolves to ErrNotFound so the delivery records as failed.
func (s *ContactStore) EmailAddress(ctx context.Context, userID string) (string, error) {
	return s.endpoint(ctx, userID, "email")
}

// PhoneNumber returns the user's SMS endpoint.
func (s *ContactStore) PhoneNumber(ctx context.Context, userID string) (string, error) {
	return s.endpoint(ctx, userID, "phone")
}

func (s *ContactStore) endpoint(ctx context.Context, userID, column string) (string, error) {
	// column is one of the fixed names above, never caller input.
	query := fmt.Sprintf(`SELECT %s FROM user_contacts WHERE user_id = $1`, column)

	var value string
	err := s.pool.QueryRow(ctx, query, userID).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("postgres: contacts for user %s: %w", userID, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("postgres: contacts for user %s: %w", userID, err)
	}
	if value == "" {
		return "", fmt.Errorf("postgres: no %s on file for user %s: %w", column, userID, domain.ErrNotFound)
	}
	return value, nil
}

// DeviceTokens returns the user's registered push device tokens.
func (s *ContactStore) DeviceTokens(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT device_tokens FROM user_contacts WHERE user_id = $1`

	var tokens []string
	err := s.pool.QueryRow(ctx, query, userID).Scan(&tokens)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres: contacts for user %s: %w", userID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: contacts for user %s: %w", userID, err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("postgres: no device tokens on file for user %s: %w", userID, domain.ErrNotFound)
	}
	return tokens, nil
}
