package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sudosos-ledger/internal/config"
)

// Mail is one rendered notification
type Mail struct {
	ToName    string
	ToEmail   string
	Subject   string
	PlainText string
	HTML      string
}

// Mailer sends notifications to members
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// NewMailer returns a SendGrid mailer, or a logging mailer when mail is disabled
func NewMailer(cfg config.MailConfig, logger *slog.Logger) Mailer {
	if !cfg.Enabled() {
		logger.Info("SendGrid API key not set, notifications are only logged")
		return &LogMailer{logger: logger}
	}
	return NewSendGridMailer(cfg, logger)
}

type sendFunc func(ctx context.Context, msg *mail.SGMailV3) (statusCode int, body string, err error)

// SendGridMailer delivers mail through the SendGrid v3 API
type SendGridMailer struct {
	from   *mail.Email
	send   sendFunc
	logger *slog.Logger
}

func NewSendGridMailer(cfg config.MailConfig, logger *slog.Logger) *SendGridMailer {
	client := sendgrid.NewSendClient(cfg.SendGridAPIKey)
	return &SendGridMailer{
		from: mail.NewEmail(cfg.FromName, cfg.FromEmail),
		send: func(ctx context.Context, msg *mail.SGMailV3) (int, string, error) {
			resp, err := client.SendWithContext(ctx, msg)
			if err != nil {
				return 0, "", err
			}
			return resp.StatusCode, resp.Body, nil
		},
		logger: logger,
	}
}

func (s *SendGridMailer) Send(ctx context.Context, m Mail) error {
	msg := mail.NewSingleEmail(s.from, m.Subject, mail.NewEmail(m.ToName, m.ToEmail), m.PlainText, m.HTML)

	status, body, err := s.send(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if status >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", status, body)
	}

	s.logger.Debug("Notification mailed", "to", m.ToEmail, "subject", m.Subject, "status", status)
	return nil
}

// LogMailer only logs what would have been sent
type LogMailer struct {
	logger *slog.Logger
}

func (l *LogMailer) Send(_ context.Context, m Mail) error {
	l.logger.Info("Notification (mail disabled)", "to", m.ToEmail, "subject", m.Subject)
	return nil
}
