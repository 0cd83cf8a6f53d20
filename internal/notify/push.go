package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"

	"alphawatch/internal/domain"
)

// PushConfig holds APNs token-based authentication parameters.
type PushConfig struct {
	KeyPath    string // path to the .p8 signing key
	KeyID      string
	TeamID     string
	Topic      string // app bundle id
	Production bool
}

// PushSender delivers notifications to the user's registered devices via the
// Apple Push Notification service.
type PushSender struct {
	client    *apns2.Client
	topic     string
	recipient Recipient
}

// NewPushSender creates a PushSender with token-based APNs auth. It fails if
// the signing key cannot be loaded.
func NewPushSender(cfg PushConfig, recipient Recipient) (*PushSender, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("push: load apns auth key %s: %w", cfg.KeyPath, err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &PushSender{
		client:    client,
		topic:     cfg.Topic,
		recipient: recipient,
	}, nil
}

// Channel returns domain.ChannelPush.
func (s *PushSender) Channel() domain.Channel { return domain.ChannelPush }

// Send pushes the notification to every registered device token. Per-device
// failures are collected; Send fails only when no device accepted the push,
// so one stale token does not mark the whole channel failed.
func (s *PushSender) Send(ctx context.Context, n *domain.Notification) error {
	tokens, err := s.recipient.DeviceTokens(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("push: resolve device tokens for user %s: %w", n.UserID, err)
	}
	if len(tokens) == 0 {
		return fmt.Errorf("push: user %s has no registered devices", n.UserID)
	}

	pl := payload.NewPayload().
		AlertTitle(n.Title).
		AlertBody(n.Message).
		Sound("default").
		Custom("notification_id", n.ID).
		Custom("severity", string(n.Severity))

	var failures []string
	delivered := 0
	for _, deviceToken := range tokens {
		res, err := s.client.PushWithContext(ctx, &apns2.Notification{
			DeviceToken: deviceToken,
			Topic:       s.topic,
			Payload:     pl,
		})
		if err != nil {
			failures = append(failures, err.Error())
			continue
		}
		if !res.Sent() {
			failures = append(failures, res.Reason)
			continue
		}
		delivered++
	}

	if delivered == 0 {
		return fmt.Errorf("push: all %d devices failed: %s", len(tokens), strings.Join(failures, "; "))
	}
	return nil
}

// Compile-time interface check.
var _ Sender = (*PushSender)(nil)
