// Package sms delivers consent requests as text messages through Twilio's REST API.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"agentconsent/internal/notification"
	"agentconsent/internal/platform/tracer"
	"agentconsent/pkg/platform/circuit"
)

const (
	providerName   = "twilio"
	defaultBaseURL = "https://api.twilio.com"
	defaultTimeout = 10 * time.Second
)

var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// Config configures the Twilio provider.
type Config struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string
	BaseURL     string
	Timeout     time.Duration
	HTTPClient  notification.HTTPDoer
	Breaker     *circuit.Breaker
	Tracer      tracer.Tracer
	Logger      *slog.Logger
}

// TwilioProvider sends consent requests over SMS.
type TwilioProvider struct {
	accountSID  string
	authToken   string
	phoneNumber string
	baseURL     string
	client      notification.HTTPDoer
	guard       *notification.Guard
}

// New creates a Twilio provider. Missing credentials are allowed; IsConfigured
// reports them and sends fail without touching the network.
func New(cfg Config) *TwilioProvider {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &TwilioProvider{
		accountSID:  cfg.AccountSID,
		authToken:   cfg.AuthToken,
		phoneNumber: cfg.PhoneNumber,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		client:      client,
		guard:       notification.NewGuard(providerName, cfg.Breaker, cfg.Tracer, cfg.Logger),
	}
}

func (p *TwilioProvider) Type() notification.ProviderType { return notification.ProviderTypeSMS }
func (p *TwilioProvider) Name() string                    { return providerName }

func (p *TwilioProvider) IsConfigured() bool {
	return p.accountSID != "" && p.authToken != "" && p.phoneNumber != ""
}

// ValidateContact reports whether value is an E.164 phone number.
func (p *TwilioProvider) ValidateContact(value string) bool {
	return e164Pattern.MatchString(value)
}

// SendConsentRequest texts the target. Failures come back in the result.
func (p *TwilioProvider) SendConsentRequest(ctx context.Context, in notification.SendInput) notification.DeliveryResult {
	if !p.ValidateContact(in.TargetContact) {
		return notification.Failed(providerName, "Invalid phone number format: "+in.TargetContact)
	}
	if !p.IsConfigured() {
		return notification.Failed(providerName,
			"Twilio is not configured. Set TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, and TWILIO_PHONE_NUMBER.")
	}

	body := FormatMessage(in)
	return p.guard.Do(ctx, func(ctx context.Context) (string, error) {
		return p.send(ctx, in.TargetContact, body)
	})
}

// FormatMessage renders the SMS text. With a consent URL the message links to
// the web flow, otherwise it asks for a YES/NO reply.
func FormatMessage(in notification.SendInput) string {
	greeting := "Hi"
	if in.TargetName != nil && *in.TargetName != "" {
		greeting = "Hi " + *in.TargetName
	}
	if in.ConsentURL != nil && *in.ConsentURL != "" {
		return fmt.Sprintf("%s, %s requests AI agent consent for: %s. Click to grant consent: %s",
			greeting, in.RequesterName, in.Scope, *in.ConsentURL)
	}
	return fmt.Sprintf("%s, %s is requesting AI agent consent for: %s. Reply YES to grant or NO to decline.",
		greeting, in.RequesterName, in.Scope)
}

type messageResponse struct {
	SID string `json:"sid"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (p *TwilioProvider) send(ctx context.Context, to, body string) (string, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", p.phoneNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", p.baseURL, url.PathEscape(p.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("Unexpected error: %w", err)
	}
	req.SetBasicAuth(p.accountSID, p.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("Unexpected error: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("Unexpected error: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		err := fmt.Errorf("Twilio error: %s", msg)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", &notification.RejectedError{Message: err.Error()}
		}
		return "", err
	}

	var out messageResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("Unexpected error: decode response: %w", err)
	}
	return out.SID, nil
}
