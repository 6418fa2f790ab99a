// Package factory builds the notification registry from configuration.
package factory

import (
	"log/slog"

	"agentconsent/internal/notification"
	"agentconsent/internal/notification/email"
	"agentconsent/internal/notification/sms"
	"agentconsent/internal/platform/config"
	"agentconsent/internal/platform/tracer"
	"agentconsent/pkg/platform/circuit"
)

// FromConfig registers a provider for every channel whose credentials are set.
// Channels left unconfigured are absent, so lookups fail with
// provider_not_configured. client may be nil to use a default HTTP client.
func FromConfig(cfg *config.Config, client notification.HTTPDoer, tr tracer.Tracer, logger *slog.Logger) *notification.Registry {
	registry := notification.NewRegistry()

	if cfg.Twilio.Configured() {
		registry.Register(sms.New(sms.Config{
			AccountSID:  cfg.Twilio.AccountSID,
			AuthToken:   cfg.Twilio.AuthToken,
			PhoneNumber: cfg.Twilio.PhoneNumber,
			BaseURL:     cfg.Twilio.BaseURL,
			HTTPClient:  client,
			Breaker:     circuit.New("twilio"),
			Tracer:      tr,
			Logger:      logger,
		}))
	}
	if cfg.SendGrid.Configured() {
		registry.Register(email.New(email.Config{
			APIKey:     cfg.SendGrid.APIKey,
			FromEmail:  cfg.SendGrid.FromEmail,
			BaseURL:    cfg.SendGrid.BaseURL,
			HTTPClient: client,
			Breaker:    circuit.New("sendgrid"),
			Tracer:     tr,
			Logger:     logger,
		}))
	}

	if logger != nil {
		logger.Info("notification providers registered", "providers", registry.Names())
	}
	return registry
}
