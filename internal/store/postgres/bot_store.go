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

// BotStore implements domain.BotStore using PostgreSQL. Runtime markers are
// plain columns so transitions stay cheap to query; the performance summary
// is a JSONB blob.
type BotStore struct {
	pool *pgxpool.Pool
}

// NewBotStore creates a BotStore backed by the given pool.
func NewBotStore(pool *pgxpool.Pool) *BotStore {
	return &BotStore{pool: pool}
}

const botColumns = `
	id, user_id, strategy_id, api_integration_id, symbols, status,
	started_at, paused_at, last_heartbeat, uptime_seconds, performance,
	created_at, updated_at`

func scanBot(row pgx.Row) (domain.BotInstance, error) {
	var b domain.BotInstance
	err := row.Scan(
		&b.ID, &b.UserID, &b.StrategyID, &b.APIIntegrationID, &b.Symbols, &b.Status,
		&b.Runtime.StartedAt, &b.Runtime.PausedAt, &b.Runtime.LastHeartbeat,
		&b.Runtime.UptimeSeconds, &b.Performance,
		&b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

// Create inserts a new bot instance.
func (s *BotStore) Create(ctx context.Context, b domain.BotInstance) error {
	const query = `
		INSERT INTO bot_instances (
			id, user_id, strategy_id, api_integration_id, symbols, status,
			started_at, paused_at, last_heartbeat, uptime_seconds, performance,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())`

	_, err := s.pool.Exec(ctx, query,
		b.ID, b.UserID, b.StrategyID, b.APIIntegrationID, b.Symbols, string(b.Status),
		b.Runtime.StartedAt, b.Runtime.PausedAt, b.Runtime.LastHeartbeat,
		b.Runtime.UptimeSeconds, b.Performance, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create bot %s: %w", b.ID, err)
	}
	return nil
}

// Update rewrites a bot's mutable state.
func (s *BotStore) Update(ctx context.Context, b domain.BotInstance) error {
	const query = `
		UPDATE bot_instances SET
			strategy_id        = $2,
			api_integration_id = $3,
			symbols            = $4,
			status             = $5,
			started_at         = $6,
			paused_at          = $7,
			last_heartbeat     = $8,
			uptime_seconds     = $9,
			performance        = $10,
			updated_at         = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		b.ID, b.StrategyID, b.APIIntegrationID, b.Symbols, string(b.Status),
		b.Runtime.StartedAt, b.Runtime.PausedAt, b.Runtime.LastHeartbeat,
		b.Runtime.UptimeSeconds, b.Performance,
	)
	if err != nil {
		return fmt.Errorf("postgres: update bot %s: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update bot %s: %w", b.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a bot instance.
func (s *BotStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM bot_instances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete bot %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: delete bot %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// GetByID fetches one bot instance.
func (s *BotStore) GetByID(ctx context.Context, id string) (domain.BotInstance, error) {
	query := `SELECT` + botColumns + ` FROM bot_instances WHERE id = $1`

	b, err := scanBot(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.BotInstance{}, fmt.Errorf("postgres: bot %s: %w", id, domain.ErrNotFound)
		}
		return domain.BotInstance{}, fmt.Errorf("postgres: get bot %s: %w", id, err)
	}
	return b, nil
}

// ListByUser returns a user's bot instances, newest first.
func (s *BotStore) ListByUser(ctx context.Context, userID string) ([]domain.BotInstance, error) {
	query := `SELECT` + botColumns + `
		FROM bot_instances
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bots for user %s: %w", userID, err)
	}
	defer rows.Close()

	var out []domain.BotInstance
	for rows.Next() {
		b, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan bot: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateHeartbeat stamps a bot's last-heartbeat marker.
func (s *BotStore) UpdateHeartbeat(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE bot_instances SET last_heartbeat = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("postgres: update heartbeat for bot %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update heartbeat for bot %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Compile-time interface check.
var _ domain.BotStore = (*BotStore)(nil)
