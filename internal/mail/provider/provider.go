// Package provider implements the mail transports (SES, Resend, SMTP) and a
// registry that picks a configured one with fallback.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNoProvider is returned when no registered provider is configured.
var ErrNoProvider = errors.New("no configured email provider available")

// EmailRequest is a fully rendered email ready for a transport.
type EmailRequest struct {
	From    string
	To      []string
	Subject string
	Body    string // plain text
	HTML    string // optional
}

// Provider is a mail transport.
type Provider interface {
	Name() string
	Send(ctx context.Context, req *EmailRequest) error
	IsConfigured() bool
}

// Registry holds providers and sends through the primary one, falling back
// in order when it is unconfigured or fails.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
	primary   string
	fallback  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider, replacing one with the same name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[p.Name()]; !exists {
		r.order = append(r.order, p.Name())
	}
	r.providers[p.Name()] = p
	slog.Info("Registered email provider", "name", p.Name(), "configured", p.IsConfigured())
}

// SetPrimary selects the provider tried first.
func (r *Registry) SetPrimary(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		return fmt.Errorf("provider %q not registered", name)
	}
	r.primary = name
	return nil
}

// SetFallback sets the providers tried after the primary, in order.
func (r *Registry) SetFallback(names ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		if _, ok := r.providers[name]; !ok {
			return fmt.Errorf("provider %q not registered", name)
		}
	}
	r.fallback = names
	return nil
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// List returns provider names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// candidates returns configured providers: primary, fallbacks, then the
// rest in registration order, without duplicates.
func (r *Registry) candidates() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var out []Provider
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		if p, ok := r.providers[name]; ok && p.IsConfigured() {
			out = append(out, p)
		}
	}

	add(r.primary)
	for _, name := range r.fallback {
		add(name)
	}
	for _, name := range r.order {
		add(name)
	}
	return out
}

// Send delivers req through the first configured provider that accepts it.
// When every provider fails, the first provider's error is returned.
func (r *Registry) Send(ctx context.Context, req *EmailRequest) error {
	cands := r.candidates()
	if len(cands) == 0 {
		return ErrNoProvider
	}

	var firstErr error
	for i, p := range cands {
		err := p.Send(ctx, req)
		if err == nil {
			if i > 0 {
				slog.Warn("Email sent via fallback provider", "provider", p.Name(), "primary", cands[0].Name())
			}
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
		if ctx.Err() != nil {
			break
		}
		slog.Warn("Email provider failed", "provider", p.Name(), "error", err)
	}
	return firstErr
}
