package mailer

import (
	"context"

	"gopkg.in/gomail.v2"

	"github.com/virtucloud/virtucloud-backend/pkg/config"
	"github.com/virtucloud/virtucloud-backend/pkg/logger"
)

// Mailer sends transactional email. When SMTP is not configured it degrades to
// a no-op so local environments never need a mail relay.
type Mailer struct {
	cfg    config.SMTPConfig
	logger *logger.Logger
	send   func(*gomail.Message) error
}

// New builds a Mailer from the SMTP configuration.
func New(cfg config.SMTPConfig, logg *logger.Logger) *Mailer {
	m := &Mailer{cfg: cfg, logger: logg}
	if cfg.Configured() {
		dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
		m.send = func(msg *gomail.Message) error {
			return dialer.DialAndSend(msg)
		}
	}
	return m
}

// Enabled reports whether mail will actually be delivered.
func (m *Mailer) Enabled() bool {
	return m != nil && m.send != nil
}

// Send delivers an HTML email to a single recipient.
func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if !m.Enabled() {
		if m != nil && m.logger != nil {
			ctx = m.logger.WithFields(ctx, map[string]any{"subject": subject})
			m.logger.Info(ctx, "smtp not configured, skipping email")
		}
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.send(msg); err != nil {
		if m.logger != nil {
			m.logger.Error(ctx, "sending email", err)
		}
		return err
	}
	return nil
}
