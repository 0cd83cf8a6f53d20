// Package service contains the coordination layer between the HTTP surface
// and the stores: input validation, id/timestamp assignment, and delegation
// to the lifecycle manager for bot transitions.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"alphawatch/internal/domain"
)

// ThresholdService handles the user-facing CRUD surface for alert thresholds.
// It owns validation; the engine only ever sees thresholds that passed it.
type ThresholdService struct {
	thresholds domain.ThresholdStore
	clock      domain.Clock
	logger     *slog.Logger
}

// NewThresholdService creates a ThresholdService with all required dependencies.
func NewThresholdService(thresholds domain.ThresholdStore, clock domain.Clock, logger *slog.Logger) *ThresholdService {
	return &ThresholdService{
		thresholds: thresholds,
		clock:      clock,
		logger:     logger,
	}
}

// Create validates and persists a new threshold. The ID, CreatedAt, and
// UpdatedAt fields are assigned here; LastTriggered starts unset.
func (s *ThresholdService) Create(ctx context.Context, t domain.AlertThreshold) (domain.AlertThreshold, error) {
	if err := validateThreshold(&t); err != nil {
		return domain.AlertThreshold{}, err
	}

	now := s.clock.Now()
	t.ID = uuid.NewString()
	t.LastTriggered = nil
	t.CreatedAt = now
	t.UpdatedAt = now

	if err := s.thresholds.Create(ctx, t); err != nil {
		return domain.AlertThreshold{}, fmt.Errorf("threshold_service: create: %w", err)
	}

	s.logger.InfoContext(ctx, "threshold_service: created threshold",
		slog.String("threshold_id", t.ID),
		slog.String("user_id", t.UserID),
		slog.String("type", string(t.Type)),
	)

	return t, nil
}

// Update validates and persists changes to an existing threshold. The stored
// LastTriggered and CreatedAt are preserved; only user-owned fields change.
func (s *ThresholdService) Update(ctx context.Context, t domain.AlertThreshold) (domain.AlertThreshold, error) {
	if t.ID == "" {
		return domain.AlertThreshold{}, fmt.Errorf("threshold_service: update: missing id: %w", domain.ErrInvalidConditions)
	}
	if err := validateThreshold(&t); err != nil {
		return domain.AlertThreshold{}, err
	}

	existing, err := s.thresholds.GetByID(ctx, t.ID)
	if err != nil {
		return domain.AlertThreshold{}, fmt.Errorf("threshold_service: update get %q: %w", t.ID, err)
	}

	t.UserID = existing.UserID
	t.LastTriggered = existing.LastTriggered
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = s.clock.Now()

	if err := s.thresholds.Update(ctx, t); err != nil {
		return domain.AlertThreshold{}, fmt.Errorf("threshold_service: update %q: %w", t.ID, err)
	}

	return t, nil
}

// Delete removes a threshold by id.
func (s *ThresholdService) Delete(ctx context.Context, id string) error {
	if err := s.thresholds.Delete(ctx, id); err != nil {
		return fmt.Errorf("threshold_service: delete %q: %w", id, err)
	}
	s.logger.InfoContext(ctx, "threshold_service: deleted threshold", slog.String("threshold_id", id))
	return nil
}

// Get retrieves a threshold by id.
func (s *ThresholdService) Get(ctx context.Context, id string) (domain.AlertThreshold, error) {
	t, err := s.thresholds.GetByID(ctx, id)
	if err != nil {
		return domain.AlertThreshold{}, fmt.Errorf("threshold_service: get %q: %w", id, err)
	}
	return t, nil
}

// ListByUser returns the thresholds owned by a user.
func (s *ThresholdService) ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.AlertThreshold, error) {
	out, err := s.thresholds.ListByUser(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("threshold_service: list by user %q: %w", userID, err)
	}
	return out, nil
}

// validateThreshold checks the cross-field consistency of a threshold and
// normalizes its notification settings. All failures wrap
// domain.ErrInvalidConditions so the HTTP layer maps them to 400.
func validateThreshold(t *domain.AlertThreshold) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("threshold_service: "+format+": %w", append(args, domain.ErrInvalidConditions)...)
	}

	if t.UserID == "" {
		return invalid("missing user_id")
	}
	if !t.Type.Valid() {
		return fmt.Errorf("threshold_service: type %q: %w", t.Type, domain.ErrUnknownType)
	}

	c := &t.Conditions
	switch t.Type {
	case domain.ThresholdPrice:
		if c.Symbol == "" {
			return invalid("price: missing symbol")
		}
		if c.Price == nil {
			return invalid("price: missing price level")
		}
		if c.Direction != domain.DirectionAbove && c.Direction != domain.DirectionBelow {
			return invalid("price: direction must be above or below, got %q", c.Direction)
		}
	case domain.ThresholdPriceChangePercent:
		if c.Symbol == "" {
			return invalid("price_change_percent: missing symbol")
		}
		if c.ChangePercent == nil {
			return invalid("price_change_percent: missing change_percent")
		}
	case domain.ThresholdVolume:
		if c.Symbol == "" {
			return invalid("volume: missing symbol")
		}
		if c.Volume == nil || *c.Volume < 0 {
			return invalid("volume: missing or negative volume")
		}
	case domain.ThresholdPositionPnL:
		if c.Symbol == "" {
			return invalid("position_profit_loss: missing symbol")
		}
		if c.ProfitLossPercent == nil && c.ProfitLossAmount == nil {
			return invalid("position_profit_loss: need profit_loss_percent or profit_loss_amount")
		}
	case domain.ThresholdStrategyPerf:
		if c.StrategyID == "" {
			return invalid("strategy_performance: missing strategy_id")
		}
		if c.ReturnPercent == nil && c.DrawdownPercent == nil {
			return invalid("strategy_performance: need return_percent or drawdown_percent")
		}
	case domain.ThresholdMarketEvent:
		if !c.OnOpen && !c.OnClose {
			return invalid("market_event: need on_open or on_close")
		}
	case domain.ThresholdTechnicalIndicator:
		if c.Symbol == "" {
			return invalid("technical_indicator: missing symbol")
		}
		switch c.Indicator {
		case domain.IndicatorMA, domain.IndicatorMACD, domain.IndicatorBollinger:
		case domain.IndicatorRSI:
			if c.Upper == nil && c.Lower == nil {
				return invalid("technical_indicator: rsi needs upper or lower bound")
			}
		default:
			return invalid("technical_indicator: unknown indicator %q", c.Indicator)
		}
		if c.Period < 0 {
			return invalid("technical_indicator: negative period")
		}
	case domain.ThresholdNews:
		if c.Symbol == "" {
			return invalid("news: missing symbol")
		}
		if len(c.Keywords) == 0 {
			return invalid("news: missing keywords")
		}
	}

	n := &t.Notifications
	for _, ch := range n.Channels {
		if !ch.Valid() {
			return fmt.Errorf("threshold_service: channel %q: %w", ch, domain.ErrInvalidChannel)
		}
	}
	if n.Severity == "" {
		n.Severity = domain.SeverityMedium
	}
	if n.Throttle.CooldownMinutes < 0 {
		return invalid("throttle: negative cooldown_minutes")
	}
	if n.Throttle.MaxPerDay < 0 {
		return invalid("throttle: negative max_per_day")
	}

	return nil
}
