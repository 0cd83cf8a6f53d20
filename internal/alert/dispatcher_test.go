package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"alphawatch/internal/domain"
	"alphawatch/internal/notify"
)

func dispatchThreshold(channels ...domain.Channel) domain.AlertThreshold {
	return domain.AlertThreshold{
		ID:     "t-dispatch",
		UserID: "u1",
		Type:   domain.ThresholdPrice,
		Notifications: domain.NotificationSettings{
			Channels: channels,
		},
	}
}

func TestDispatchAppChannelAlwaysFirst(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	email := &fakeSender{channel: domain.ChannelEmail}
	d := NewDispatcher([]notify.Sender{email}, time.Second, clock, testLogger())

	n := &domain.Notification{ID: "n1", UserID: "u1"}
	d.Dispatch(context.Background(), n, dispatchThreshold(domain.ChannelEmail))

	if len(n.DeliveredChannels) != 2 {
		t.Fatalf("deliveries: got %d, want 2", len(n.DeliveredChannels))
	}
	first := n.DeliveredChannels[0]
	if first.Channel != domain.ChannelApp || first.Status != domain.DeliveryDelivered {
		t.Errorf("first delivery must be app/delivered, got %s/%s", first.Channel, first.Status)
	}
	if n.DeliveredChannels[1].Channel != domain.ChannelEmail {
		t.Errorf("second delivery: got %s", n.DeliveredChannels[1].Channel)
	}
	if len(email.sent) != 1 {
		t.Errorf("email sender calls: got %d, want 1", len(email.sent))
	}
}

func TestDispatchFailingChannelIsolated(t *testing.T) {
	clock := newFakeClock(time.Now())
	email := &fakeSender{channel: domain.ChannelEmail, err: errors.New("smtp: connection refused")}
	sms := &fakeSender{channel: domain.ChannelSMS}
	d := NewDispatcher([]notify.Sender{email, sms}, time.Second, clock, testLogger())

	n := &domain.Notification{ID: "n1", UserID: "u1"}
	d.Dispatch(context.Background(), n, dispatchThreshold(domain.ChannelEmail, domain.ChannelSMS))

	emailDelivery := n.DeliveryFor(domain.ChannelEmail)
	if emailDelivery == nil || emailDelivery.Status != domain.DeliveryFailed {
		t.Fatalf("email delivery: got %+v, want failed", emailDelivery)
	}
	if emailDelivery.FailureReason == "" {
		t.Error("failed delivery must carry a reason")
	}

	smsDelivery := n.DeliveryFor(domain.ChannelSMS)
	if smsDelivery == nil || smsDelivery.Status != domain.DeliveryDelivered {
		t.Fatalf("sms delivery: got %+v, want delivered despite email failure", smsDelivery)
	}
}

// hangingSender never returns until its context expires, like a stalled SMTP
// connection.
type hangingSender struct {
	channel domain.Channel
}

func (s *hangingSender) Channel() domain.Channel { return s.channel }

func (s *hangingSender) Send(ctx context.Context, _ *domain.Notification) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDispatchSlowChannelTimesOutAndIsRecordedFailed(t *testing.T) {
	email := &hangingSender{channel: domain.ChannelEmail}
	sms := &fakeSender{channel: domain.ChannelSMS}
	d := NewDispatcher([]notify.Sender{email, sms}, 50*time.Millisecond, newFakeClock(time.Now()), testLogger())

	n := &domain.Notification{ID: "n1", UserID: "u1"}
	done := make(chan struct{})
	go func() {
		d.Dispatch(context.Background(), n, dispatchThreshold(domain.ChannelEmail, domain.ChannelSMS))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch stalled on a hanging channel")
	}

	emailDelivery := n.DeliveryFor(domain.ChannelEmail)
	if emailDelivery == nil || emailDelivery.Status != domain.DeliveryFailed {
		t.Fatalf("email delivery: got %+v, want failed after timeout", emailDelivery)
	}
	if emailDelivery.FailureReason == "" {
		t.Error("timed-out delivery must carry a reason")
	}

	smsDelivery := n.DeliveryFor(domain.ChannelSMS)
	if smsDelivery == nil || smsDelivery.Status != domain.DeliveryDelivered {
		t.Fatalf("sms delivery: got %+v, want delivered despite the email stall", smsDelivery)
	}
}

func TestDispatchUnconfiguredChannelRecordedFailed(t *testing.T) {
	d := NewDispatcher(nil, time.Second, newFakeClock(time.Now()), testLogger())

	n := &domain.Notification{ID: "n1", UserID: "u1"}
	d.Dispatch(context.Background(), n, dispatchThreshold(domain.ChannelPush))

	push := n.DeliveryFor(domain.ChannelPush)
	if push == nil || push.Status != domain.DeliveryFailed {
		t.Fatalf("push delivery: got %+v, want failed", push)
	}
	if push.FailureReason == "" {
		t.Error("unconfigured channel must record a failure reason")
	}
}

func TestDispatchDeduplicatesChannels(t *testing.T) {
	email := &fakeSender{channel: domain.ChannelEmail}
	d := NewDispatcher([]notify.Sender{email}, time.Second, newFakeClock(time.Now()), testLogger())

	n := &domain.Notification{ID: "n1", UserID: "u1"}
	// app listed explicitly plus email twice: one app entry, one email entry.
	d.Dispatch(context.Background(), n, dispatchThreshold(domain.ChannelApp, domain.ChannelEmail, domain.ChannelEmail))

	if len(n.DeliveredChannels) != 2 {
		t.Fatalf("deliveries: got %d, want 2 (app deduplicated, email once)", len(n.DeliveredChannels))
	}
	if len(email.sent) != 1 {
		t.Errorf("email sender calls: got %d, want 1", len(email.sent))
	}
}
