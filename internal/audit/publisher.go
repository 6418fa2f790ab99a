package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"agentconsent/pkg/platform/audit/outbox"
	"agentconsent/pkg/requestcontext"
)

// Publisher turns audit events into outbox entries. It is append-only; the
// outbox relay forwards entries to Kafka.
type Publisher struct {
	store  outbox.Store
	events chan Event
	wg     sync.WaitGroup
	logger *slog.Logger
	async  bool

	// mu guards closed against the events channel being closed mid-send.
	mu     sync.RWMutex
	closed bool
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer enables async processing with the specified buffer size.
// Events are queued and persisted in a background goroutine. Zero keeps
// the publisher synchronous.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
			p.async = true
		}
	}
}

// WithPublisherLogger sets a logger for async error reporting.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store outbox.Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEvents()
	}
	return p
}

func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		if err := p.persist(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("failed to persist audit event",
				"error", err,
				"action", event.Action,
				"consent_id", event.ConsentID,
			)
		}
	}
}

// Close shuts down the async publisher and waits for pending events to drain.
// Events emitted afterwards are persisted synchronously. Close is idempotent.
func (p *Publisher) Close() {
	if !p.async {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()
	p.wg.Wait()
}

// Emit records event, filling the timestamp and request id when unset.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientID == "" {
		event.ClientID = requestcontext.ClientID(ctx)
	}
	if p.async && p.enqueue(event) {
		return nil
	}
	return p.persist(ctx, event)
}

// enqueue hands event to the background writer. It reports false once the
// publisher is closed. A full buffer drops the event rather than block.
func (p *Publisher) enqueue(event Event) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.events <- event:
	default:
		if p.logger != nil {
			p.logger.Warn("audit buffer full, event dropped",
				"action", event.Action,
				"consent_id", event.ConsentID,
			)
		}
	}
	return true
}

func (p *Publisher) persist(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	entry := outbox.NewEntry(AggregateConsentRequest, event.ConsentID, event.Action, payload, event.Timestamp)
	if err := p.store.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}
