package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"alphawatch/internal/bot"
	"alphawatch/internal/domain"
)

// BotService handles bot instance CRUD and delegates lifecycle transitions
// to the bot manager, which serializes them under a per-bot lock. Successful
// transitions are also announced on the event bus so connected dashboards
// update without polling.
type BotService struct {
	bots    domain.BotStore
	manager *bot.Manager
	bus     domain.EventBus
	clock   domain.Clock
	logger  *slog.Logger
}

// NewBotService creates a BotService with all required dependencies. The bus
// may be nil, in which case transitions are not announced.
func NewBotService(bots domain.BotStore, manager *bot.Manager, bus domain.EventBus, clock domain.Clock, logger *slog.Logger) *BotService {
	return &BotService{
		bots:    bots,
		manager: manager,
		bus:     bus,
		clock:   clock,
		logger:  logger,
	}
}

// Create persists a new bot instance. Bots are born idle with zero
// accumulated uptime regardless of what the caller supplies.
func (s *BotService) Create(ctx context.Context, b domain.BotInstance) (domain.BotInstance, error) {
	if b.UserID == "" {
		return domain.BotInstance{}, fmt.Errorf("bot_service: create: missing user_id: %w", domain.ErrInvalidConditions)
	}
	if b.StrategyID == "" {
		return domain.BotInstance{}, fmt.Errorf("bot_service: create: missing strategy_id: %w", domain.ErrInvalidConditions)
	}

	now := s.clock.Now()
	b.ID = uuid.NewString()
	b.Status = domain.BotIdle
	b.Runtime = domain.BotRuntime{}
	b.CreatedAt = now
	b.UpdatedAt = now

	if err := s.bots.Create(ctx, b); err != nil {
		return domain.BotInstance{}, fmt.Errorf("bot_service: create: %w", err)
	}

	s.logger.InfoContext(ctx, "bot_service: created bot",
		slog.String("bot_id", b.ID),
		slog.String("user_id", b.UserID),
		slog.String("strategy_id", b.StrategyID),
	)

	return b, nil
}

// Get retrieves a bot instance by id.
func (s *BotService) Get(ctx context.Context, id string) (domain.BotInstance, error) {
	b, err := s.bots.GetByID(ctx, id)
	if err != nil {
		return domain.BotInstance{}, fmt.Errorf("bot_service: get %q: %w", id, err)
	}
	return b, nil
}

// ListByUser returns the bot instances owned by a user.
func (s *BotService) ListByUser(ctx context.Context, userID string) ([]domain.BotInstance, error) {
	out, err := s.bots.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("bot_service: list by user %q: %w", userID, err)
	}
	return out, nil
}

// Start transitions a bot to running.
func (s *BotService) Start(ctx context.Context, id string) (domain.BotInstance, error) {
	b, err := s.manager.Start(ctx, id)
	if err == nil {
		s.publishTransition(ctx, b)
	}
	return b, err
}

// Pause transitions a running bot to paused.
func (s *BotService) Pause(ctx context.Context, id string) (domain.BotInstance, error) {
	b, err := s.manager.Pause(ctx, id)
	if err == nil {
		s.publishTransition(ctx, b)
	}
	return b, err
}

// Stop transitions a running or paused bot back to idle, folding the
// finished segment into accumulated uptime.
func (s *BotService) Stop(ctx context.Context, id string) (domain.BotInstance, error) {
	b, err := s.manager.Stop(ctx, id)
	if err == nil {
		s.publishTransition(ctx, b)
	}
	return b, err
}

// publishTransition announces a committed lifecycle change on the event bus.
// Publish failures are logged, never surfaced: the transition already
// happened.
func (s *BotService) publishTransition(ctx context.Context, b domain.BotInstance) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(b)
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, "ch:bot:"+b.ID, payload); err != nil {
		s.logger.WarnContext(ctx, "bot_service: publish transition failed",
			slog.String("bot_id", b.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Delete removes an idle bot instance. The manager rejects deletion of a
// running or paused bot with ErrBotNotIdle.
func (s *BotService) Delete(ctx context.Context, id string) error {
	return s.manager.Delete(ctx, id)
}

// Heartbeat records liveness for a running bot.
func (s *BotService) Heartbeat(ctx context.Context, id string) error {
	return s.manager.Heartbeat(ctx, id)
}
