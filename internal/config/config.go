// Package config holds the suspicious-login service configuration.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Supported mail providers.
const (
	ProviderSMTP   = "smtp"
	ProviderSES    = "ses"
	ProviderResend = "resend"
)

// Config holds all configuration parameters for the service.
type Config struct {
	KafkaBrokers    string
	EventsTopic     string
	ConsumerGroupID string
	Workers         int
	DispatchTimeout time.Duration // per event, across all listeners

	PostgresDSN string
	RedisAddr   string // empty disables metrics
	HTTPPort    string

	MetricsInterval time.Duration

	MailFrom      string
	ProductName   string
	MailProvider  string
	MailFallbacks string // comma-separated provider names

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPTimeout  time.Duration

	AWSRegion    string
	ResendAPIKey string

	Language string
}

// Validate checks that required fields are set and have valid values.
func (c *Config) Validate() error {
	if c.KafkaBrokers == "" {
		return fmt.Errorf("kafka-brokers cannot be empty")
	}
	if c.EventsTopic == "" {
		return fmt.Errorf("events-topic cannot be empty")
	}
	if c.ConsumerGroupID == "" {
		return fmt.Errorf("consumer-group-id cannot be empty")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.DispatchTimeout <= 0 {
		return fmt.Errorf("dispatch-timeout must be positive")
	}
	if c.PostgresDSN == "" {
		return fmt.Errorf("postgres-dsn cannot be empty")
	}
	if c.HTTPPort == "" {
		return fmt.Errorf("http-port cannot be empty")
	}
	if c.MailFrom == "" {
		return fmt.Errorf("mail-from cannot be empty")
	}
	if !strings.Contains(c.MailFrom, "@") {
		return fmt.Errorf("mail-from must be an email address")
	}
	if c.RedisAddr != "" && c.MetricsInterval <= 0 {
		return fmt.Errorf("metrics-interval must be positive")
	}

	if !validProvider(c.MailProvider) {
		return fmt.Errorf("mail-provider must be one of smtp, ses, resend")
	}
	for _, name := range c.Fallbacks() {
		if !validProvider(name) {
			return fmt.Errorf("mail-fallback contains unknown provider %q", name)
		}
	}

	switch c.MailProvider {
	case ProviderSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("smtp-host cannot be empty")
		}
		if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
			return fmt.Errorf("smtp-port must be between 1 and 65535")
		}
	case ProviderSES:
		if c.AWSRegion == "" {
			return fmt.Errorf("aws-region cannot be empty")
		}
	case ProviderResend:
		if c.ResendAPIKey == "" {
			return fmt.Errorf("resend-api-key cannot be empty")
		}
	}
	return nil
}

// Fallbacks returns the fallback provider names in order.
func (c *Config) Fallbacks() []string {
	var out []string
	for _, p := range strings.Split(c.MailFallbacks, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MetricsEnabled reports whether a Redis address is configured.
func (c *Config) MetricsEnabled() bool {
	return c.RedisAddr != ""
}

func validProvider(name string) bool {
	switch name {
	case ProviderSMTP, ProviderSES, ProviderResend:
		return true
	}
	return false
}
