// Package notification defines the capability consent requests are delivered
// through and the registry the consent service resolves providers from.
package notification

import (
	"context"
	"net/http"
	"sync"

	"agentconsent/internal/consent/models"
	dErrors "agentconsent/pkg/domain-errors"
)

// ProviderType identifies the channel a provider delivers on.
type ProviderType string

const (
	ProviderTypeSMS   ProviderType = "sms"
	ProviderTypeEmail ProviderType = "email"
)

// ForContactType maps a target contact type onto the channel that reaches it.
func ForContactType(t models.ContactType) (ProviderType, bool) {
	switch t {
	case models.ContactTypePhone:
		return ProviderTypeSMS, true
	case models.ContactTypeEmail:
		return ProviderTypeEmail, true
	}
	return "", false
}

// label is the human name used in "not configured" errors.
func (t ProviderType) label() string {
	if t == ProviderTypeSMS {
		return "SMS"
	}
	return "Email"
}

// SendInput is everything a provider needs to render and send one consent request.
type SendInput struct {
	TargetContact string
	RequesterName string
	TargetName    *string
	Scope         string
	ConsentURL    *string
}

// DeliveryResult is the outcome of a single send. Failures are reported here
// rather than as errors so a request is never lost to a provider outage.
type DeliveryResult struct {
	Success   bool
	Provider  string
	MessageID *string
	Error     *string
}

// Failed builds an unsuccessful result for provider.
func Failed(provider, msg string) DeliveryResult {
	return DeliveryResult{Provider: provider, Error: &msg}
}

// Delivered builds a successful result; an empty messageID is reported as nil.
func Delivered(provider, messageID string) DeliveryResult {
	res := DeliveryResult{Success: true, Provider: provider}
	if messageID != "" {
		res.MessageID = &messageID
	}
	return res
}

// Delivery converts the result into its response form.
func (r DeliveryResult) Delivery() *models.Delivery {
	return &models.Delivery{
		Success:   r.Success,
		Provider:  r.Provider,
		MessageID: r.MessageID,
		Error:     r.Error,
	}
}

// Provider sends consent requests over one channel.
type Provider interface {
	Type() ProviderType
	Name() string
	IsConfigured() bool
	ValidateContact(value string) bool
	SendConsentRequest(ctx context.Context, in SendInput) DeliveryResult
}

// HTTPDoer is the subset of *http.Client providers use, so tests can swap it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Registry holds at most one provider per channel.
type Registry struct {
	mu        sync.RWMutex
	providers map[ProviderType]Provider
}

// NewRegistry registers the given providers; nil entries are skipped.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[ProviderType]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds p, replacing any provider already registered for its channel.
func (r *Registry) Register(p Provider) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Type()] = p
}

// For returns the provider that reaches contacts of type t. It fails with
// CodeProviderNotConfigured when none is registered or the registered one is
// missing credentials.
func (r *Registry) For(t models.ContactType) (Provider, error) {
	pt, ok := ForContactType(t)
	if !ok {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown contact type: "+string(t))
	}

	r.mu.RLock()
	p, ok := r.providers[pt]
	r.mu.RUnlock()

	if !ok {
		return nil, dErrors.New(dErrors.CodeProviderNotConfigured, pt.label()+" provider not configured")
	}
	if !p.IsConfigured() {
		return nil, dErrors.New(dErrors.CodeProviderNotConfigured, pt.label()+" provider not fully configured")
	}
	return p, nil
}

// Names lists the registered provider names, for startup logging.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for _, pt := range []ProviderType{ProviderTypeSMS, ProviderTypeEmail} {
		if p, ok := r.providers[pt]; ok {
			names = append(names, p.Name())
		}
	}
	return names
}
