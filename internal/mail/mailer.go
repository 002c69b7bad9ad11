// Package mail composes notification mails from templates and delivers them
// through the provider registry.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/victorlap/suspicious-login/internal/mail/provider"
	"github.com/victorlap/suspicious-login/internal/mail/retry"
	"github.com/victorlap/suspicious-login/internal/metrics"
)

// ErrNoRecipients is returned when a message has no recipient.
var ErrNoRecipients = errors.New("no recipients specified")

// Transport delivers a rendered email. *provider.Registry implements it.
type Transport interface {
	Send(ctx context.Context, req *provider.EmailRequest) error
}

// Mailer creates messages and templates and sends them.
type Mailer struct {
	transport   Transport
	from        string
	productName string
	retryCfg    retry.Config
	metrics     metrics.Recorder
}

// Option configures a Mailer.
type Option func(*Mailer)

// WithProductName sets the name shown in template headers and footers.
func WithProductName(name string) Option {
	return func(m *Mailer) { m.productName = name }
}

// WithRetry sets the transport retry policy.
func WithRetry(cfg retry.Config) Option {
	return func(m *Mailer) { m.retryCfg = cfg }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(m *Mailer) {
		if rec != nil {
			m.metrics = rec
		}
	}
}

// NewMailer creates a mailer sending as from.
func NewMailer(transport Transport, from string, opts ...Option) *Mailer {
	m := &Mailer{
		transport: transport,
		from:      from,
		retryCfg:  retry.DefaultConfig(),
		metrics:   metrics.NewNoOp(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateMessage returns an empty message with the sender set.
func (m *Mailer) CreateMessage() *Message {
	return &Message{From: m.from}
}

// CreateEmailTemplate returns an empty template identified by id.
func (m *Mailer) CreateEmailTemplate(id string) *EmailTemplate {
	return &EmailTemplate{id: id, productName: m.productName}
}

// Send validates msg and delivers it, retrying transient transport errors.
func (m *Mailer) Send(ctx context.Context, msg *Message) error {
	if msg == nil {
		return fmt.Errorf("message is nil")
	}
	if err := validateRecipients(msg.To); err != nil {
		return err
	}

	from := msg.From
	if from == "" {
		from = m.from
	}
	req := &provider.EmailRequest{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		Body:    msg.Text,
		HTML:    msg.HTML,
	}

	err := retry.WithRetry(ctx, m.retryCfg, "send_email", func() error {
		return m.transport.Send(ctx, req)
	})
	if err != nil {
		m.metrics.RecordFailed()
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.metrics.RecordSent()
	slog.Debug("Email delivered",
		"to", strings.Join(msg.To, ", "),
		"subject", msg.Subject,
	)
	return nil
}

func validateRecipients(recipients []string) error {
	if len(recipients) == 0 {
		return ErrNoRecipients
	}
	for _, r := range recipients {
		if !strings.Contains(r, "@") {
			return fmt.Errorf("invalid email address format: %q (missing @ symbol)", r)
		}
	}
	return nil
}
