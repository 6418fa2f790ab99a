package notification

import (
	"context"
	"errors"
	"log/slog"

	"agentconsent/internal/platform/tracer"
	"agentconsent/pkg/platform/circuit"
)

// ErrCircuitOpen is the delivery error reported while a provider's circuit is open.
const ErrCircuitOpen = "provider circuit open"

// RejectedError is a definitive refusal from the provider (a 4xx). The
// provider is healthy, so it does not count against the circuit.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string { return e.Message }

// Call performs one outbound request and returns the provider's message id.
type Call func(ctx context.Context) (string, error)

// Guard wraps provider calls with a circuit breaker and a span.
type Guard struct {
	provider string
	breaker  *circuit.Breaker
	tracer   tracer.Tracer
	logger   *slog.Logger
}

// NewGuard builds a guard for provider. A nil breaker gets the default
// thresholds; a nil tracer records nothing.
func NewGuard(provider string, breaker *circuit.Breaker, tr tracer.Tracer, logger *slog.Logger) *Guard {
	if breaker == nil {
		breaker = circuit.New(provider)
	}
	if tr == nil {
		tr = tracer.NewNoop()
	}
	return &Guard{provider: provider, breaker: breaker, tracer: tr, logger: logger}
}

// Do runs call unless the circuit is open and converts the outcome into a DeliveryResult.
func (g *Guard) Do(ctx context.Context, call Call) DeliveryResult {
	ctx, span := g.tracer.Start(ctx, tracer.SpanNotify, tracer.String(tracer.AttrProvider, g.provider))

	if !g.breaker.Allow() {
		span.SetAttributes(tracer.Bool(tracer.AttrDelivered, false))
		span.End(nil)
		return Failed(g.provider, ErrCircuitOpen)
	}

	messageID, err := call(ctx)
	span.SetAttributes(tracer.Bool(tracer.AttrDelivered, err == nil))
	span.End(err)

	if err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			g.breaker.RecordSuccess()
		} else if change := g.breaker.RecordFailure(); change.Opened {
			g.log(ctx, slog.LevelWarn, "notification circuit opened", "provider", g.provider)
		}
		g.log(ctx, slog.LevelInfo, "notification delivery failed", "provider", g.provider, "error", err)
		return Failed(g.provider, err.Error())
	}

	if change := g.breaker.RecordSuccess(); change.Closed {
		g.log(ctx, slog.LevelInfo, "notification circuit closed", "provider", g.provider)
	}
	return Delivered(g.provider, messageID)
}

func (g *Guard) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if g.logger == nil {
		return
	}
	g.logger.Log(ctx, level, msg, args...)
}
