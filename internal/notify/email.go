package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-mail/mail"

	"alphawatch/internal/domain"
)

// EmailConfig holds SMTP connection parameters for the email sender.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailSender delivers notifications over SMTP.
type EmailSender struct {
	dialer    *mail.Dialer
	from      string
	recipient Recipient
}

// NewEmailSender creates an EmailSender with a 10-second dial timeout.
func NewEmailSender(cfg EmailConfig, recipient Recipient) *EmailSender {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.Timeout = 10 * time.Second
	return &EmailSender{
		dialer:    d,
		from:      cfg.From,
		recipient: recipient,
	}
}

// Channel returns domain.ChannelEmail.
func (s *EmailSender) Channel() domain.Channel { return domain.ChannelEmail }

// Send resolves the user's email address and delivers the notification as a
// plain-text message. DialAndSend has no context support, so it runs in a
// goroutine and the call abandons it when ctx expires; the dialer's own
// timeout bounds how long the goroutine can linger.
func (s *EmailSender) Send(ctx context.Context, n *domain.Notification) error {
	addr, err := s.recipient.EmailAddress(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("email: resolve address for user %s: %w", n.UserID, err)
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", addr)
	m.SetHeader("Subject", fmt.Sprintf("[%s] %s", n.Severity, n.Title))
	m.SetBody("text/plain", n.Message)

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("email: send to %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("email: send to %s: %w", addr, ctx.Err())
	}
}

// Compile-time interface check.
var _ Sender = (*EmailSender)(nil)
