package models

import (
	"time"

	"github.com/google/uuid"
)

// Result statuses returned by RequestConsent. They extend Status with
// "already_granted" for the short-circuit path.
const (
	ResultPending        = "pending"
	ResultAlreadyGranted = "already_granted"
)

// Delivery reports the outcome of a notification attempt.
type Delivery struct {
	Success   bool    `json:"success"`
	Provider  string  `json:"provider"`
	MessageID *string `json:"message_id,omitempty"`
	Error     *string `json:"error,omitempty"`
}

// RequestResult is returned by RequestConsent.
type RequestResult struct {
	RequestID  uuid.UUID `json:"request_id"`
	Status     string    `json:"status"`
	Message    string    `json:"message"`
	ExpiresAt  time.Time `json:"expires_at"`
	ConsentURL *string   `json:"consent_url,omitempty"`
	Delivery   *Delivery `json:"delivery,omitempty"`
}

// ActionResult is returned by the grant/deny/simulate operations.
type ActionResult struct {
	Success   bool    `json:"success"`
	NewStatus *Status `json:"new_status"`
	Message   string  `json:"message"`
}

// CheckResult is the check_consent_* tool response.
type CheckResult struct {
	HasConsent bool       `json:"has_consent"`
	Status     *Status    `json:"status"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

// ContactSummary is the display form of a ContactInfo.
type ContactSummary struct {
	Type  ContactType `json:"type"`
	Value string      `json:"value"`
	Name  *string     `json:"name"`
}

// Summary is the display form of a Request; timestamps are RFC 3339 strings.
type Summary struct {
	ID        string         `json:"id"`
	Requester ContactSummary `json:"requester"`
	Target    ContactSummary `json:"target"`
	Scope     string         `json:"scope"`
	Status    Status         `json:"status"`
	ExpiresAt string         `json:"expires_at"`
	CreatedAt string         `json:"created_at"`
}

// ListResponse is the list_consent_requests tool response.
type ListResponse struct {
	Requests []Summary `json:"requests"`
	Total    int       `json:"total"`
}

// NewSummary renders r for display.
func NewSummary(r Request) Summary {
	return Summary{
		ID:        r.ID.String(),
		Requester: summarizeContact(r.Requester),
		Target:    summarizeContact(r.Target),
		Scope:     r.Scope,
		Status:    r.Status,
		ExpiresAt: r.ExpiresAt.UTC().Format(time.RFC3339),
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func summarizeContact(c ContactInfo) ContactSummary {
	return ContactSummary{Type: c.Type, Value: c.Value, Name: cloneString(c.Name)}
}

// StatusPtr returns a pointer to s.
func StatusPtr(s Status) *Status {
	return &s
}
