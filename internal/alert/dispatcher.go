package alert

import (
	"context"
	"log/slog"
	"time"

	"alphawatch/internal/domain"
	"alphawatch/internal/notify"
)

// defaultChannelTimeout bounds a single channel delivery attempt when no
// timeout is configured, so a hanging SMTP or gateway connection cannot stall
// the rest of the dispatch.
const defaultChannelTimeout = 15 * time.Second

// Dispatcher delivers a composed notification to each configured channel
// independently and records the per-channel outcome on the notification.
// Failure is local: a failing channel is recorded and the loop continues.
// Dispatch never returns an error — the caller always gets the notification
// back with one delivery entry per configured channel.
type Dispatcher struct {
	senders        map[domain.Channel]notify.Sender
	channelTimeout time.Duration
	clock          domain.Clock
	logger         *slog.Logger
}

// NewDispatcher creates a Dispatcher over the given senders. A sender is
// looked up by the channel it serves; configured channels without a sender
// are recorded as failed with a descriptive reason rather than dropped.
func NewDispatcher(senders []notify.Sender, channelTimeout time.Duration, clock domain.Clock, logger *slog.Logger) *Dispatcher {
	byChannel := make(map[domain.Channel]notify.Sender, len(senders))
	for _, s := range senders {
		byChannel[s.Channel()] = s
	}
	if channelTimeout <= 0 {
		channelTimeout = defaultChannelTimeout
	}
	return &Dispatcher{
		senders:        byChannel,
		channelTimeout: channelTimeout,
		clock:          clock,
		logger:         logger.With(slog.String("component", "dispatcher")),
	}
}

// Dispatch populates n.DeliveredChannels for every channel in the threshold's
// settings. The app channel is appended first and is always delivered — it
// represents the notification record's own existence. Every other configured
// channel (deduplicated, app skipped) is attempted under a bounded timeout;
// outcomes are appended in processing order.
func (d *Dispatcher) Dispatch(ctx context.Context, n *domain.Notification, t domain.AlertThreshold) *domain.Notification {
	n.DeliveredChannels = append(n.DeliveredChannels, domain.ChannelDelivery{
		Channel:   domain.ChannelApp,
		Status:    domain.DeliveryDelivered,
		Timestamp: d.clock.Now(),
	})

	seen := map[domain.Channel]bool{domain.ChannelApp: true}
	for _, ch := range t.Notifications.Channels {
		if seen[ch] {
			continue
		}
		seen[ch] = true
		n.DeliveredChannels = append(n.DeliveredChannels, d.deliver(ctx, ch, n))
	}

	return n
}

func (d *Dispatcher) deliver(ctx context.Context, ch domain.Channel, n *domain.Notification) domain.ChannelDelivery {
	sender, ok := d.senders[ch]
	if !ok {
		return domain.ChannelDelivery{
			Channel:       ch,
			Status:        domain.DeliveryFailed,
			FailureReason: "no sender configured for channel",
			Timestamp:     d.clock.Now(),
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.channelTimeout)
	defer cancel()

	if err := sender.Send(sendCtx, n); err != nil {
		d.logger.WarnContext(ctx, "channel delivery failed",
			slog.String("notification_id", n.ID),
			slog.String("channel", string(ch)),
			slog.String("error", err.Error()),
		)
		return domain.ChannelDelivery{
			Channel:       ch,
			Status:        domain.DeliveryFailed,
			FailureReason: err.Error(),
			Timestamp:     d.clock.Now(),
		}
	}

	return domain.ChannelDelivery{
		Channel:   ch,
		Status:    domain.DeliveryDelivered,
		Timestamp: d.clock.Now(),
	}
}
