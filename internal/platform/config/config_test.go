package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("AUTH_PROVIDER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, AuthAPIKey, cfg.Auth.Provider)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, time.Minute, cfg.Consent.ExpirySweepInterval)
	assert.Equal(t, "agentconsent.consent.events", cfg.Kafka.Topic)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 120, cfg.RateLimit.ToolRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Zero(t, cfg.Kafka.AuditBuffer, "audit events are written synchronously by default")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "Production")
	t.Setenv("AUTH_PROVIDER", "oauth")
	t.Setenv("CONSENT_BASE_URL", "https://consent.example.com/")
	t.Setenv("EXPIRY_SWEEP_INTERVAL", "30s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "secret")
	t.Setenv("TWILIO_PHONE_NUMBER", "+15550001111")
	t.Setenv("AUDIT_ASYNC_BUFFER", "256")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, AuthOAuth, cfg.Auth.Provider)
	assert.Equal(t, "https://consent.example.com", cfg.Consent.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Consent.ExpirySweepInterval)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.Twilio.Configured())
	assert.False(t, cfg.SendGrid.Configured())
	assert.Equal(t, 256, cfg.Kafka.AuditBuffer)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"bad env", "ENV", "staging", "ENV must be one of"},
		{"bad auth provider", "AUTH_PROVIDER", "saml", "AUTH_PROVIDER must be one of"},
		{"bad duration", "EXPIRY_SWEEP_INTERVAL", "soon", "EXPIRY_SWEEP_INTERVAL"},
		{"non-positive sweep", "EXPIRY_SWEEP_INTERVAL", "0s", "must be positive"},
		{"bad int", "DB_MAX_OPEN_CONNS", "many", "DB_MAX_OPEN_CONNS"},
		{"bad log level", "LOG_LEVEL", "loud", "LOG_LEVEL"},
		{"negative rate limit", "RATE_LIMIT_WEB_REQUESTS", "-1", "must not be negative"},
		{"negative audit buffer", "AUDIT_ASYNC_BUFFER", "-5", "AUDIT_ASYNC_BUFFER must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseAPIKeys(t *testing.T) {
	got := ParseAPIKeys(" key1:client-a , key2:client-b,broken,:nokey,key3:a:b ")
	assert.Equal(t, map[string]string{
		"key1": "client-a",
		"key2": "client-b",
		"key3": "a:b",
	}, got)
	assert.Empty(t, ParseAPIKeys(""))
}
