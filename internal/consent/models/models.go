package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Audit event actions.
const (
	AuditActionConsentRequested = "consent_requested"
	AuditActionConsentGranted   = "consent_granted"
	AuditActionConsentRevoked   = "consent_revoked"
	AuditActionConsentExpired   = "consent_expired"
)

// Audit event reasons.
const (
	AuditReasonLinkResponse      = "link_response"
	AuditReasonSimulatedResponse = "simulated_response"
	AuditReasonAgentRequest      = "agent_request"
	AuditReasonExpirySweep       = "expiry_sweep"
)

// Request is one consent relationship between a requester and a target for a scope.
//
// At most one Request exists per (requester, target, scope) regardless of status;
// the store enforces this. Transitions return new values, a Request is never
// mutated after it has been handed to a store.
type Request struct {
	ID          uuid.UUID
	Requester   ContactInfo
	Target      ContactInfo
	Scope       string
	Status      Status
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RespondedAt *time.Time
}

// NewRequest creates a pending request with a fresh id.
func NewRequest(requester, target ContactInfo, scope string, expiresAt, now time.Time) Request {
	return Request{
		ID:        uuid.New(),
		Requester: requester,
		Target:    target,
		Scope:     scope,
		Status:    StatusPending,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsActive is true iff the request is granted and now is strictly before ExpiresAt.
func (r Request) IsActive(now time.Time) bool {
	return r.Status == StatusGranted && now.Before(r.ExpiresAt)
}

// IsExpired is true once now reaches ExpiresAt, whatever the status.
func (r Request) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Grant returns a granted copy. Callers decide whether the transition is legal.
func (r Request) Grant(now time.Time) Request {
	return r.respond(StatusGranted, now)
}

// Revoke returns a revoked copy.
func (r Request) Revoke(now time.Time) Request {
	return r.respond(StatusRevoked, now)
}

// Expire returns an expired copy; RespondedAt is left as it was.
func (r Request) Expire(now time.Time) Request {
	next := r.clone()
	next.Status = StatusExpired
	next.UpdatedAt = now
	return next
}

// WithStatus applies the store-level status update rule: RespondedAt is stamped
// for granted/revoked and kept otherwise.
func (r Request) WithStatus(status Status, now time.Time) Request {
	switch status {
	case StatusGranted, StatusRevoked:
		return r.respond(status, now)
	case StatusExpired:
		return r.Expire(now)
	}
	next := r.clone()
	next.Status = status
	next.UpdatedAt = now
	return next
}

// TupleKey identifies the uniqueness tuple (requester, target, scope).
func (r Request) TupleKey() string {
	return TupleKey(r.Requester, r.Target, r.Scope)
}

// TupleKey builds the uniqueness key for a requester/target/scope triple. Every
// component is length-prefixed, so no choice of values can collide.
func TupleKey(requester, target ContactInfo, scope string) string {
	return requester.Key() + target.Key() + lengthPrefixed(scope)
}

// PairKey identifies a requester/target pair regardless of scope.
func PairKey(requester, target ContactInfo) string {
	return requester.Key() + target.Key()
}

// lengthPrefixed encodes each part as "<byte length>:<part>".
func lengthPrefixed(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strconv.Itoa(len(p)))
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

func (r Request) respond(status Status, now time.Time) Request {
	next := r.clone()
	next.Status = status
	next.UpdatedAt = now
	responded := now
	next.RespondedAt = &responded
	return next
}

// clone detaches pointer fields so the copy shares no memory with r.
func (r Request) clone() Request {
	next := r
	if r.RespondedAt != nil {
		t := *r.RespondedAt
		next.RespondedAt = &t
	}
	next.Requester.Name = cloneString(r.Requester.Name)
	next.Target.Name = cloneString(r.Target.Name)
	return next
}

// Clone returns a deep copy of r.
func (r Request) Clone() Request {
	return r.clone()
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
