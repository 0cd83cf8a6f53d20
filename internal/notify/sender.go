// Package notify provides the delivery-channel implementations behind the
// dispatch coordinator. Each external channel (email, SMS, push) implements
// the Sender interface; the coordinator treats them uniformly and records
// per-channel outcomes, so a sender only has to deliver or return an error.
package notify

import (
	"context"

	"alphawatch/internal/domain"
)

// Recipient resolves per-user delivery endpoints (email address, phone
// number, device tokens). The surrounding application supplies it; senders
// ask it for the endpoint matching their channel.
type Recipient interface {
	EmailAddress(ctx context.Context, userID string) (string, error)
	PhoneNumber(ctx context.Context, userID string) (string, error)
	DeviceTokens(ctx context.Context, userID string) ([]string, error)
}

// Sender delivers a composed notification over one channel. Send returns an
// error on failure; the dispatch coordinator records it as a failed delivery
// entry and moves on to the next channel.
type Sender interface {
	// Channel identifies which delivery channel this sender serves.
	Channel() domain.Channel
	// Send delivers the notification to the user it addresses.
	Send(ctx context.Context, n *domain.Notification) error
}
