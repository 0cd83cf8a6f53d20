package domain

import "time"

// Channel is a notification delivery mechanism. The app channel represents
// the in-app notification record itself and is always present in a dispatch
// result.
type Channel string

const (
	ChannelApp   Channel = "app"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// Valid reports whether ch is a known delivery channel.
func (ch Channel) Valid() bool {
	switch ch {
	case ChannelApp, ChannelEmail, ChannelSMS, ChannelPush:
		return true
	}
	return false
}

// DeliveryStatus is the outcome of one channel delivery attempt.
type DeliveryStatus string

const (
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// ChannelDelivery records the outcome of dispatching one notification to one
// channel. Entries are appended in the order channels are processed; a failed
// entry carries the reason so the UI can show why a channel did not deliver.
type ChannelDelivery struct {
	Channel       Channel        `json:"channel"`
	Status        DeliveryStatus `json:"status"`
	FailureReason string         `json:"failure_reason,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// Notification is a composed alert ready for (or after) dispatch. Once
// dispatched it is immutable except for delivery bookkeeping and read state.
type Notification struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	ThresholdID       string            `json:"threshold_id"`
	Type              ThresholdType     `json:"type"`
	Severity          Severity          `json:"severity"`
	Title             string            `json:"title"`
	Message           string            `json:"message"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	DeliveredChannels []ChannelDelivery `json:"delivered_channels"`
	IsRead            bool              `json:"is_read"`
	IsDeleted         bool              `json:"is_deleted"`
	CreatedAt         time.Time         `json:"created_at"`
	ReadAt            *time.Time        `json:"read_at,omitempty"`
}

// DeliveryFor returns the delivery entry for ch, or nil if ch was not part of
// this notification's dispatch.
func (n *Notification) DeliveryFor(ch Channel) *ChannelDelivery {
	for i := range n.DeliveredChannels {
		if n.DeliveredChannels[i].Channel == ch {
			return &n.DeliveredChannels[i]
		}
	}
	return nil
}
