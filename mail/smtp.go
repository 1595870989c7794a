package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gomail "github.com/wneessen/go-mail"
)

// SMTPConfig holds SMTP delivery settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Timeout  time.Duration
}

// Configured reports whether credentials are present.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.Username != "" && c.Password != ""
}

// SMTPMailer sends through an authenticated SMTP relay with STARTTLS.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer validates cfg.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SMTPMailer{cfg: cfg}, nil
}

// Send delivers msg. A fresh connection is used per message; the volume is
// a handful of messages per user action.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	gm := gomail.NewMsg()
	if m.cfg.FromName != "" {
		if err := gm.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
			return fmt.Errorf("mail: from: %w", err)
		}
	} else if err := gm.From(m.cfg.From); err != nil {
		return fmt.Errorf("mail: from: %w", err)
	}
	if err := gm.To(msg.To); err != nil {
		return fmt.Errorf("mail: to: %w", err)
	}
	gm.Subject(msg.Subject)
	gm.SetBodyString(gomail.TypeTextHTML, msg.HTML)
	if msg.Text != "" {
		gm.AddAlternativeString(gomail.TypeTextPlain, msg.Text)
	}

	client, err := gomail.NewClient(m.cfg.Host,
		gomail.WithPort(m.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.cfg.Username),
		gomail.WithPassword(m.cfg.Password),
		gomail.WithTLSPortPolicy(gomail.TLSMandatory),
		gomail.WithTimeout(m.cfg.Timeout),
	)
	if err != nil {
		return fmt.Errorf("mail: client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, gm); err != nil {
		return fmt.Errorf("mail: send: %w", err)
	}
	return nil
}

// LogMailer logs a redacted line instead of sending. It is the development
// sender when no SMTP credentials are configured and must not be used in
// production, where it would report every message as delivered.
type LogMailer struct {
	Logger zerolog.Logger
}

func (l LogMailer) Send(_ context.Context, msg Message) error {
	l.Logger.Info().
		Str("to", redact(msg.To)).
		Str("subject", msg.Subject).
		Msg("mail delivery skipped: no SMTP credentials configured")
	return nil
}

// Unconfigured fails every delivery with ErrNotConfigured. It stands in for
// a missing sender in production so callers see the failure.
type Unconfigured struct{}

func (Unconfigured) Send(context.Context, Message) error {
	return ErrNotConfigured
}

// LogOnly reports whether s only logs messages.
func LogOnly(s Sender) bool {
	switch s.(type) {
	case LogMailer, *LogMailer:
		return true
	}
	return false
}
