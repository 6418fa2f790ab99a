// Package email delivers consent requests through SendGrid's v3 mail API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"agentconsent/internal/notification"
	"agentconsent/internal/platform/tracer"
	"agentconsent/pkg/platform/circuit"
)

const (
	providerName   = "sendgrid"
	defaultBaseURL = "https://api.sendgrid.com"
	defaultTimeout = 10 * time.Second
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var htmlBody = template.Must(template.New("consent_email").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
</head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
    <div style="padding: 20px; background-color: #f9f9f9; border-radius: 8px;">
        <h2 style="color: #333;">AI Agent Consent Request</h2>
        <p>{{.Greeting}},</p>
        <p><strong>{{.RequesterName}}</strong> is requesting permission for an AI agent
           to contact you for the following purpose:</p>
        <blockquote style="background-color: #fff; padding: 15px; border-left: 4px solid #4CAF50; margin: 20px 0;">
            {{.Scope}}
        </blockquote>
        {{- if .ConsentURL}}
        <p style="margin-top: 20px;">
            <a href="{{.ConsentURL}}"
               style="background-color: #4CAF50; color: white; padding: 14px 20px; text-decoration: none; border-radius: 4px;">
                Grant Consent
            </a>
        </p>
        {{- else}}
        <p style="margin-top: 20px; color: #666;">
            Reply to this email with <strong>YES</strong> to grant consent
            or <strong>NO</strong> to decline.
        </p>
        {{- end}}
        <hr style="margin-top: 30px; border: none; border-top: 1px solid #ddd;">
        <p style="color: #999; font-size: 12px;">
            This is an automated consent request. If you did not expect this email,
            you can safely ignore it.
        </p>
    </div>
</body>
</html>
`))

// Config configures the SendGrid provider.
type Config struct {
	APIKey     string
	FromEmail  string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient notification.HTTPDoer
	Breaker    *circuit.Breaker
	Tracer     tracer.Tracer
	Logger     *slog.Logger
}

// SendGridProvider sends consent requests by email.
type SendGridProvider struct {
	apiKey    string
	fromEmail string
	baseURL   string
	client    notification.HTTPDoer
	guard     *notification.Guard
}

// New creates a SendGrid provider.
func New(cfg Config) *SendGridProvider {
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
	return &SendGridProvider{
		apiKey:    cfg.APIKey,
		fromEmail: cfg.FromEmail,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		client:    client,
		guard:     notification.NewGuard(providerName, cfg.Breaker, cfg.Tracer, cfg.Logger),
	}
}

func (p *SendGridProvider) Type() notification.ProviderType { return notification.ProviderTypeEmail }
func (p *SendGridProvider) Name() string                    { return providerName }

func (p *SendGridProvider) IsConfigured() bool {
	return p.apiKey != "" && p.fromEmail != ""
}

func (p *SendGridProvider) ValidateContact(value string) bool {
	return emailPattern.MatchString(value)
}

// SendConsentRequest emails the target. Failures come back in the result.
func (p *SendGridProvider) SendConsentRequest(ctx context.Context, in notification.SendInput) notification.DeliveryResult {
	if !p.ValidateContact(in.TargetContact) {
		return notification.Failed(providerName, "Invalid email address: "+in.TargetContact)
	}
	if !p.IsConfigured() {
		return notification.Failed(providerName, "SendGrid is not configured. Set SENDGRID_API_KEY and SENDGRID_FROM_EMAIL.")
	}

	html, err := FormatHTMLBody(in)
	if err != nil {
		return notification.Failed(providerName, "Unexpected error: "+err.Error())
	}
	msg := mail{
		Personalizations: []personalization{{To: []address{{Email: in.TargetContact}}}},
		From:             address{Email: p.fromEmail},
		Subject:          FormatSubject(in.RequesterName),
		Content: []content{
			{Type: "text/plain", Value: FormatPlainBody(in)},
			{Type: "text/html", Value: html},
		},
	}
	return p.guard.Do(ctx, func(ctx context.Context) (string, error) {
		return p.send(ctx, msg)
	})
}

func FormatSubject(requesterName string) string {
	return "Consent Request from " + requesterName
}

func greeting(in notification.SendInput) string {
	if in.TargetName != nil && *in.TargetName != "" {
		return "Hi " + *in.TargetName
	}
	return "Hello"
}

// FormatPlainBody renders the text/plain part.
func FormatPlainBody(in notification.SendInput) string {
	return fmt.Sprintf("%s,\n\n%s is requesting permission for an AI agent to contact you for: %s\n\n"+
		"Reply YES to grant consent or NO to decline.\n\n---\nThis is an automated consent request.",
		greeting(in), in.RequesterName, in.Scope)
}

// FormatHTMLBody renders the text/html part. Names and scope are escaped.
func FormatHTMLBody(in notification.SendInput) (string, error) {
	data := struct {
		Greeting      string
		RequesterName string
		Scope         string
		ConsentURL    string
	}{
		Greeting:      greeting(in),
		RequesterName: in.RequesterName,
		Scope:         in.Scope,
	}
	if in.ConsentURL != nil {
		data.ConsentURL = *in.ConsentURL
	}
	var buf bytes.Buffer
	if err := htmlBody.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render html body: %w", err)
	}
	return buf.String(), nil
}

type address struct {
	Email string `json:"email"`
}

type personalization struct {
	To []address `json:"to"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mail struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

func (p *SendGridProvider) send(ctx context.Context, msg mail) (string, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("Unexpected error: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v3/mail/send", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("Unexpected error: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("Unexpected error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		body := strings.TrimSpace(string(raw))
		if body == "" {
			body = http.StatusText(resp.StatusCode)
		}
		err := fmt.Errorf("SendGrid error: %s", body)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", &notification.RejectedError{Message: err.Error()}
		}
		return "", err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Header.Get("X-Message-Id"), nil
}
