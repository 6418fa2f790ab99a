// Package tracer is a small tracing facade so domain code can emit spans
// without importing OpenTelemetry everywhere. OTel and no-op implementations
// are provided.
package tracer

import "context"

// Span is an active span. End must be called exactly once.
type Span interface {
	// End completes the span; a non-nil err marks it failed.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute      { return Attribute{Key: key, Value: value} }
func Bool(key string, value bool) Attribute   { return Attribute{Key: key, Value: value} }
func Int64(key string, value int64) Attribute { return Attribute{Key: key, Value: value} }

// Span names.
const (
	SpanRequestConsent   = "consent.request"
	SpanCheckConsent     = "consent.check"
	SpanRespond          = "consent.respond"
	SpanSimulateResponse = "consent.simulate_response"
	SpanExpire           = "consent.expire"
	SpanNotify           = "notification.send"
)

// Attribute keys. Contact values are never attached to spans.
const (
	AttrConsentID    = "consent.id"
	AttrContactType  = "consent.target_type"
	AttrScope        = "consent.scope"
	AttrOutcome      = "consent.outcome"
	AttrProvider     = "notification.provider"
	AttrDelivered    = "notification.delivered"
	AttrExpiredCount = "consent.expired_count"
)
