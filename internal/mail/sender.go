// Package mail delivers outbound email.
package mail

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	gomail "github.com/wneessen/go-mail"
)

// Sender delivers an HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// SMTPConfig holds the relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	cfg SMTPConfig
}

var _ Sender = (*SMTPSender)(nil)

// NewSMTPSender creates an SMTP-backed sender.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Message builds the message SMTPSender would deliver.
func (s *SMTPSender) Message(to, subject, html string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, oops.Code("MAIL_INVALID_FROM").With("from", s.cfg.From).Wrap(err)
	}
	if err := msg.To(to); err != nil {
		return nil, oops.Code("MAIL_INVALID_TO").Wrap(err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, html)
	return msg, nil
}

// Send delivers the message.
func (s *SMTPSender) Send(ctx context.Context, to, subject, html string) error {
	msg, err := s.Message(to, subject, html)
	if err != nil {
		return err
	}

	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}

	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return oops.Code("MAIL_CLIENT_FAILED").With("host", s.cfg.Host).Wrap(err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("host", s.cfg.Host).Wrap(err)
	}
	return nil
}

// LogSender writes messages to the logger instead of sending them. Used when
// no SMTP host is configured.
type LogSender struct {
	logger *slog.Logger
}

var _ Sender = (*LogSender)(nil)

// NewLogSender creates a sender that only logs.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the recipient and subject. The body can carry a live reset
// token, so it is only written at debug level.
func (s *LogSender) Send(ctx context.Context, to, subject, html string) error {
	s.logger.InfoContext(ctx, "email not sent: no smtp host configured",
		"to", to,
		"subject", subject,
	)
	s.logger.DebugContext(ctx, "unsent email body", "to", to, "body", html)
	return nil
}
