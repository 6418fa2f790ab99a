package testutil

import (
	"context"
	"time"

	"github.com/google/uuid"

	"agentconsent/internal/consent/models"
	"agentconsent/pkg/requestcontext"
)

// Well-known contacts for deterministic test data.
var (
	AgentPhone  = models.MustContact(models.ContactTypePhone, "+15550000001", strPtr("Scheduling Agent"))
	AgentEmail  = models.MustContact(models.ContactTypeEmail, "agent@example.com", strPtr("Mail Agent"))
	TargetPhone = models.MustContact(models.ContactTypePhone, "+15550000002", strPtr("Alice"))
	TargetEmail = models.MustContact(models.ContactTypeEmail, "bob@example.com", nil)
)

// RequestBuilder provides a fluent interface for building consent requests.
type RequestBuilder struct {
	req models.Request
}

// NewRequestBuilder starts from a pending phone-to-phone request that expires in 30 days.
func NewRequestBuilder() *RequestBuilder {
	now := requestcontext.Now(context.Background())
	return &RequestBuilder{
		req: models.NewRequest(AgentPhone, TargetPhone, "outbound_calls", now.AddDate(0, 0, models.DefaultExpiresInDays), now),
	}
}

func (b *RequestBuilder) WithID(id uuid.UUID) *RequestBuilder {
	b.req.ID = id
	return b
}

func (b *RequestBuilder) WithRequester(c models.ContactInfo) *RequestBuilder {
	b.req.Requester = c
	return b
}

func (b *RequestBuilder) WithTarget(c models.ContactInfo) *RequestBuilder {
	b.req.Target = c
	return b
}

func (b *RequestBuilder) WithScope(scope string) *RequestBuilder {
	b.req.Scope = scope
	return b
}

func (b *RequestBuilder) CreatedAt(t time.Time) *RequestBuilder {
	b.req.CreatedAt = t
	b.req.UpdatedAt = t
	return b
}

func (b *RequestBuilder) ExpiresAt(t time.Time) *RequestBuilder {
	b.req.ExpiresAt = t
	return b
}

// Granted marks the request granted at t.
func (b *RequestBuilder) Granted(t time.Time) *RequestBuilder {
	b.req = b.req.Grant(t)
	return b
}

// Revoked marks the request revoked at t.
func (b *RequestBuilder) Revoked(t time.Time) *RequestBuilder {
	b.req = b.req.Revoke(t)
	return b
}

func (b *RequestBuilder) Build() *models.Request {
	out := b.req.Clone()
	return &out
}

func strPtr(s string) *string { return &s }
