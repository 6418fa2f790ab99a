package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment names accepted in ENV.
const (
	EnvTest        = "test"
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Authentication provider names accepted in AUTH_PROVIDER.
const (
	AuthAPIKey = "api_key"
	AuthOAuth  = "oauth"
	AuthNone   = "none"
)

// Config is the full process configuration. It is built once by Load and passed
// down to constructors.
type Config struct {
	Env       string
	LogLevel  slog.Level
	Server    Server
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Auth      AuthConfig
	Twilio    TwilioConfig
	SendGrid  SendGridConfig
	Consent   ConsentConfig
	RateLimit RateLimitConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	TrustedProxies  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers        string
	Topic          string
	OutboxInterval time.Duration
	OutboxBatch    int
	// AuditBuffer > 0 queues audit events in memory before they reach the
	// outbox. Queued events are lost on crash and dropped when the queue is full.
	AuditBuffer int
}

type AuthConfig struct {
	Provider      string
	APIKeys       string
	BootstrapKey  string
	OAuthIssuer   string
	OAuthAudience string
	OAuthSecret   string
}

type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string
	BaseURL     string
}

// Configured reports whether every credential Twilio needs is present.
func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.PhoneNumber != ""
}

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	BaseURL   string
}

func (c SendGridConfig) Configured() bool {
	return c.APIKey != "" && c.FromEmail != ""
}

// ConsentConfig tunes the consent domain.
type ConsentConfig struct {
	BaseURL             string
	ExpirySweepInterval time.Duration
	CacheTTL            time.Duration
}

// RateLimitConfig sets per-window allowances. A zero request count disables
// that class.
type RateLimitConfig struct {
	ToolRequests int
	WebRequests  int
	Window       time.Duration
}

func (c Config) IsTest() bool       { return c.Env == EnvTest }
func (c Config) IsProduction() bool { return c.Env == EnvProduction }

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var errs []error
	dur := func(key string, def time.Duration) time.Duration {
		d, err := durationEnv(key, def)
		errs = append(errs, err)
		return d
	}
	num := func(key string, def int) int {
		n, err := intEnv(key, def)
		errs = append(errs, err)
		return n
	}

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	errs = append(errs, err)

	cfg := Config{
		Env:      strings.ToLower(getEnv("ENV", EnvDevelopment)),
		LogLevel: level,
		Server: Server{
			Addr:            getEnv("AGENTCONSENT_ADDR", ":8080"),
			ReadTimeout:     dur("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    dur("HTTP_WRITE_TIMEOUT", 15*time.Second),
			RequestTimeout:  dur("HTTP_REQUEST_TIMEOUT", 10*time.Second),
			ShutdownTimeout: dur("SHUTDOWN_TIMEOUT", 15*time.Second),
			MaxBodyBytes:    int64(num("HTTP_MAX_BODY_BYTES", 1<<20)),
			TrustedProxies:  os.Getenv("TRUSTED_PROXIES"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    num("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    num("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: dur("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     num("REDIS_POOL_SIZE", 10),
			MinIdleConns: num("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  dur("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  dur("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: dur("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:        os.Getenv("KAFKA_BROKERS"),
			Topic:          getEnv("KAFKA_CONSENT_TOPIC", "agentconsent.consent.events"),
			OutboxInterval: dur("OUTBOX_POLL_INTERVAL", time.Second),
			OutboxBatch:    num("OUTBOX_BATCH_SIZE", 100),
			AuditBuffer:    num("AUDIT_ASYNC_BUFFER", 0),
		},
		Auth: AuthConfig{
			Provider:      strings.ToLower(getEnv("AUTH_PROVIDER", AuthAPIKey)),
			APIKeys:       os.Getenv("API_KEYS"),
			BootstrapKey:  os.Getenv("MCP_BOOTSTRAP_KEY"),
			OAuthIssuer:   os.Getenv("OAUTH_ISSUER_URL"),
			OAuthAudience: os.Getenv("OAUTH_AUDIENCE"),
			OAuthSecret:   os.Getenv("OAUTH_SIGNING_SECRET"),
		},
		Twilio: TwilioConfig{
			AccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
			PhoneNumber: os.Getenv("TWILIO_PHONE_NUMBER"),
			BaseURL:     getEnv("TWILIO_BASE_URL", "https://api.twilio.com"),
		},
		SendGrid: SendGridConfig{
			APIKey:    os.Getenv("SENDGRID_API_KEY"),
			FromEmail: os.Getenv("SENDGRID_FROM_EMAIL"),
			BaseURL:   getEnv("SENDGRID_BASE_URL", "https://api.sendgrid.com"),
		},
		Consent: ConsentConfig{
			BaseURL:             strings.TrimRight(os.Getenv("CONSENT_BASE_URL"), "/"),
			ExpirySweepInterval: dur("EXPIRY_SWEEP_INTERVAL", time.Minute),
			CacheTTL:            dur("CONSENT_CACHE_TTL", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			ToolRequests: num("RATE_LIMIT_TOOL_REQUESTS", 120),
			WebRequests:  num("RATE_LIMIT_WEB_REQUESTS", 60),
			Window:       dur("RATE_LIMIT_WINDOW", time.Minute),
		},
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field rules that a single env var cannot express.
func (c Config) Validate() error {
	var errs []error
	switch c.Env {
	case EnvTest, EnvDevelopment, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("ENV must be one of test, development, production; got %q", c.Env))
	}
	switch c.Auth.Provider {
	case AuthAPIKey, AuthOAuth, AuthNone:
	default:
		errs = append(errs, fmt.Errorf("AUTH_PROVIDER must be one of api_key, oauth, none; got %q", c.Auth.Provider))
	}
	if c.Consent.ExpirySweepInterval <= 0 {
		errs = append(errs, errors.New("EXPIRY_SWEEP_INTERVAL must be positive"))
	}
	if c.RateLimit.ToolRequests < 0 || c.RateLimit.WebRequests < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_TOOL_REQUESTS and RATE_LIMIT_WEB_REQUESTS must not be negative"))
	}
	if c.Kafka.OutboxBatch <= 0 {
		errs = append(errs, errors.New("OUTBOX_BATCH_SIZE must be positive"))
	}
	if c.Kafka.AuditBuffer < 0 {
		errs = append(errs, errors.New("AUDIT_ASYNC_BUFFER must not be negative"))
	}
	return errors.Join(errs...)
}

// ParseAPIKeys splits "key:client,key2:client2" into a key to client-id map.
// Pairs without a colon are ignored.
func ParseAPIKeys(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, client, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			continue
		}
		key, client = strings.TrimSpace(key), strings.TrimSpace(client)
		if key == "" {
			continue
		}
		out[key] = client
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}
