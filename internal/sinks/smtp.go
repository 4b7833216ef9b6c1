package sinks

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"portal-notifier/internal/common/config"
	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/models"
	"portal-notifier/internal/notifier"
)

// MailSender is the part of *mail.Client the SMTP sink uses.
type MailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPEmailSink sends multipart text/HTML mail over SMTP.
type SMTPEmailSink struct {
	client    MailSender
	fromEmail string
	logger    logger.Logger
}

// NewSMTPClient builds a go-mail client from configuration. Authentication
// is only enabled when a username and password are both set.
func NewSMTPClient(cfg config.SMTPConfig) (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(time.Duration(cfg.Timeout) * time.Millisecond),
	}

	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	if cfg.UseTLS {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return client, nil
}

func NewSMTPEmailSink(client MailSender, fromEmail string, log logger.Logger) *SMTPEmailSink {
	return &SMTPEmailSink{
		client:    client,
		fromEmail: fromEmail,
		logger:    log.WithFields(map[string]interface{}{"sink": "smtp"}),
	}
}

func (s *SMTPEmailSink) SendEmail(ctx context.Context, msg notifier.EmailMessage) error {
	m, err := s.buildMessage(msg)
	if err != nil {
		return err
	}

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return err
	}

	s.logger.Debug("email sent", map[string]interface{}{
		"notificationId": msg.NotificationID,
		"kind":           string(msg.Kind),
	})
	return nil
}

func (s *SMTPEmailSink) buildMessage(msg notifier.EmailMessage) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.fromEmail); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetImportance(importanceOf(msg.Priority))
	m.SetGenHeader(mail.Header("X-Notification-Kind"), string(msg.Kind))
	if msg.NotificationID != "" {
		m.SetGenHeader(mail.Header("X-Notification-Id"), msg.NotificationID)
	}

	m.SetBodyString(mail.TypeTextPlain, msg.TextBody)
	if msg.HTMLBody != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTMLBody)
	}
	return m, nil
}

func importanceOf(p models.Priority) mail.Importance {
	switch p {
	case models.PriorityLow:
		return mail.ImportanceLow
	case models.PriorityHigh:
		return mail.ImportanceHigh
	case models.PriorityUrgent:
		return mail.ImportanceUrgent
	default:
		return mail.ImportanceNormal
	}
}
