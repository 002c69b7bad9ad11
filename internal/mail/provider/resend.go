package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// ResendAPI is the subset of the Resend emails service used here.
type ResendAPI interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendProvider sends mail through the Resend API.
type ResendProvider struct {
	emails ResendAPI
}

// NewResendProvider creates a provider for apiKey. An empty key yields an
// unconfigured provider.
func NewResendProvider(apiKey string) *ResendProvider {
	if apiKey == "" {
		slog.Warn("Resend API key not set, Resend provider will be unavailable")
		return &ResendProvider{}
	}

	client := resend.NewClient(apiKey)
	slog.Info("Resend email provider initialized")
	return &ResendProvider{emails: client.Emails}
}

// NewResendProviderWithAPI wraps an existing emails service.
func NewResendProviderWithAPI(api ResendAPI) *ResendProvider {
	return &ResendProvider{emails: api}
}

func (p *ResendProvider) Name() string { return "resend" }

func (p *ResendProvider) IsConfigured() bool { return p.emails != nil }

// Send sends an email via Resend. Both text and HTML parts are sent when present.
func (p *ResendProvider) Send(ctx context.Context, req *EmailRequest) error {
	if p.emails == nil {
		return fmt.Errorf("Resend client not initialized")
	}
	if len(req.To) == 0 {
		return fmt.Errorf("no recipients specified")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    req.From,
		To:      req.To,
		Subject: req.Subject,
		Text:    req.Body,
		Html:    req.HTML,
	}

	result, err := p.emails.Send(params)
	if err != nil {
		return fmt.Errorf("Resend send failed: %w", err)
	}

	slog.Info("Email sent via Resend",
		"email_id", result.Id,
		"to", req.To,
	)
	return nil
}
