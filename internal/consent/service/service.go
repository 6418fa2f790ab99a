package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"agentconsent/internal/audit"
	"agentconsent/internal/consent/metrics"
	"agentconsent/internal/consent/models"
	"agentconsent/internal/notification"
	"agentconsent/internal/platform/device"
	"agentconsent/internal/platform/tracer"
	"agentconsent/internal/sentinel"
	dErrors "agentconsent/pkg/domain-errors"
	"agentconsent/pkg/requestcontext"
)

// Store defines the persistence interface for consent requests.
// Error Contract:
//   - Get* return sentinel.ErrNotFound when no record matches
//   - Create returns sentinel.ErrConflict when the tuple already exists
//   - Other failures are wrapped infrastructure errors
type Store interface {
	Create(ctx context.Context, req *models.Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Request, error)
	GetActiveConsent(ctx context.Context, requester, target models.ContactInfo, scope *string, now time.Time) (*models.Request, error)
	GetPendingRequest(ctx context.Context, requester, target models.ContactInfo, scope string) (*models.Request, error)
	GetByTuple(ctx context.Context, requester, target models.ContactInfo, scope string) (*models.Request, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, now time.Time) (*models.Request, error)
	// RespondToPending is UpdateStatus guarded by status = pending; ErrConflict otherwise.
	RespondToPending(ctx context.Context, id uuid.UUID, status models.Status, now time.Time) (*models.Request, error)
	FindByTarget(ctx context.Context, target models.ContactInfo, status *models.Status) ([]*models.Request, error)
	FindByRequester(ctx context.Context, requester models.ContactInfo, status *models.Status) ([]*models.Request, error)
	ExpireOldRequests(ctx context.Context, now time.Time) ([]*models.Request, error)
}

// NotifierResolver returns the provider that reaches a contact type.
type NotifierResolver interface {
	For(t models.ContactType) (notification.Provider, error)
}

// AuditPublisher records consent state changes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// ConsentURLBuilder returns the web consent link for a request, or false when
// no link should be sent.
type ConsentURLBuilder func(id uuid.UUID) (string, bool)

// BaseURLBuilder links to {base}/v1/consent/{id}; an empty base disables links.
func BaseURLBuilder(base string) ConsentURLBuilder {
	base = strings.TrimRight(base, "/")
	return func(id uuid.UUID) (string, bool) {
		if base == "" {
			return "", false
		}
		return base + "/v1/consent/" + id.String(), true
	}
}

const defaultRequesterName = "Someone"

type Option func(*Service)

// Service owns the consent request lifecycle: creation and notification,
// responses, checks and expiry.
type Service struct {
	store      Store
	tx         ConsentStoreTx
	notifiers  NotifierResolver
	auditor    AuditPublisher
	metrics    *metrics.Metrics
	tracer     tracer.Tracer
	logger     *slog.Logger
	consentURL ConsentURLBuilder
}

func NewService(store Store, notifiers NotifierResolver, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:      store,
		notifiers:  notifiers,
		logger:     logger,
		tracer:     tracer.NewNoop(),
		consentURL: BaseURLBuilder(""),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.tx == nil {
		svc.tx = NewShardedTx(store, 0, svc.metrics)
	}
	return svc
}

// WithTx sets the transactional boundary. Without it the service serializes
// per tuple in process.
func WithTx(tx ConsentStoreTx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func WithAuditor(a AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

// WithMetrics sets the metrics instance for the service
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithConsentURLBuilder(b ConsentURLBuilder) Option {
	return func(s *Service) {
		if b != nil {
			s.consentURL = b
		}
	}
}

// RequestConsent asks target for consent on behalf of requester. Existing
// requests for the tuple are reported instead of duplicated; a new request is
// persisted before the notification is attempted, so a delivery failure never
// loses it.
func (s *Service) RequestConsent(ctx context.Context, cmd models.RequestConsentCommand) (*models.RequestResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanRequestConsent,
		tracer.String(tracer.AttrContactType, string(cmd.Target.Type)),
		tracer.String(tracer.AttrScope, cmd.Scope),
	)
	result, err := s.requestConsent(ctx, cmd)
	if result != nil {
		span.SetAttributes(
			tracer.String(tracer.AttrConsentID, result.RequestID.String()),
			tracer.String(tracer.AttrOutcome, result.Status),
		)
	}
	span.End(err)
	if s.metrics != nil {
		s.metrics.ObserveRequestLatency(time.Since(start).Seconds())
	}
	return result, err
}

func (s *Service) requestConsent(ctx context.Context, cmd models.RequestConsentCommand) (*models.RequestResult, error) {
	if strings.TrimSpace(cmd.Scope) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "scope is required")
	}
	if cmd.Requester.Type != cmd.Target.Type {
		return nil, dErrors.New(dErrors.CodeValidation, "requester and target must use the same contact type")
	}
	days := cmd.ExpiresInDays
	if days == 0 {
		days = models.DefaultExpiresInDays
	}
	if days < 1 || days > models.MaxExpiresInDays {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("expires_in_days must be between 1 and %d", models.MaxExpiresInDays))
	}

	now := requestcontext.Now(ctx)
	var (
		existing *models.Request
		created  *models.Request
	)
	key := models.TupleKey(cmd.Requester, cmd.Target, cmd.Scope)
	err := s.tx.RunInTx(ctx, key, func(ctx context.Context, store Store) error {
		found, err := store.GetByTuple(ctx, cmd.Requester, cmd.Target, cmd.Scope)
		if err == nil {
			existing = found
			return nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent request")
		}

		req := models.NewRequest(cmd.Requester, cmd.Target, cmd.Scope, now.Add(time.Duration(days)*24*time.Hour), now)
		if err := store.Create(ctx, &req); err != nil {
			if !errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save consent request")
			}
			// Lost a race with another writer for the same tuple.
			found, err := store.GetByTuple(ctx, cmd.Requester, cmd.Target, cmd.Scope)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent request")
			}
			existing = found
			return nil
		}
		created = &req
		return nil
	})
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return s.existingResult(existing, now), nil
	}

	s.emitAudit(ctx, models.AuditActionConsentRequested, created, models.AuditReasonAgentRequest)
	if s.metrics != nil {
		s.metrics.IncrementRequestsCreated(string(created.Target.Type))
	}
	s.log(ctx, slog.LevelInfo, "consent request created",
		"consent_id", created.ID.String(),
		"target_type", string(created.Target.Type),
		"scope", created.Scope,
	)

	provider, err := s.notifiers.For(created.Target.Type)
	if err != nil {
		return nil, err
	}
	return s.notify(ctx, provider, created), nil
}

// existingResult reports a tuple that already has a request. Granted requests
// past their expiry are reported as expired even before the sweep runs.
func (s *Service) existingResult(req *models.Request, now time.Time) *models.RequestResult {
	res := &models.RequestResult{RequestID: req.ID, ExpiresAt: req.ExpiresAt}
	status := req.Status
	switch {
	case req.IsActive(now):
		res.Status = models.ResultAlreadyGranted
		res.Message = "Consent already granted"
	case status == models.StatusPending:
		res.Status = models.ResultPending
		res.Message = "Consent request already pending"
	default:
		if status == models.StatusGranted {
			status = models.StatusExpired
		}
		res.Status = string(status)
		res.Message = fmt.Sprintf("Consent request previously %s", status)
	}
	if s.metrics != nil {
		s.metrics.IncrementRequestsDeduped(res.Status)
	}
	return res
}

func (s *Service) notify(ctx context.Context, provider notification.Provider, req *models.Request) *models.RequestResult {
	in := notification.SendInput{
		TargetContact: req.Target.Value,
		RequesterName: defaultRequesterName,
		TargetName:    req.Target.Name,
		Scope:         req.Scope,
	}
	if req.Requester.Name != nil && *req.Requester.Name != "" {
		in.RequesterName = *req.Requester.Name
	}
	if link, ok := s.consentURL(req.ID); ok {
		in.ConsentURL = &link
	}

	delivery := provider.SendConsentRequest(ctx, in)

	outcome := "sent"
	message := "Consent request sent via " + provider.Name()
	if !delivery.Success {
		outcome = "failed"
		message = fmt.Sprintf("Consent request created but delivery via %s failed", provider.Name())
		errMsg := ""
		if delivery.Error != nil {
			errMsg = *delivery.Error
		}
		s.log(ctx, slog.LevelWarn, "consent notification failed",
			"consent_id", req.ID.String(),
			"provider", provider.Name(),
			"error", errMsg,
		)
	}
	if s.metrics != nil {
		s.metrics.IncrementNotification(provider.Name(), outcome)
	}

	return &models.RequestResult{
		RequestID:  req.ID,
		Status:     models.ResultPending,
		Message:    message,
		ExpiresAt:  req.ExpiresAt,
		ConsentURL: in.ConsentURL,
		Delivery:   delivery.Delivery(),
	}
}

// CheckConsent reports whether requester may contact target. It fails closed:
// any store error yields false together with the error.
func (s *Service) CheckConsent(ctx context.Context, q models.CheckQuery) (bool, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanCheckConsent, tracer.String(tracer.AttrContactType, string(q.Target.Type)))
	allowed, err := s.checkConsent(ctx, q)
	span.SetAttributes(tracer.Bool(tracer.AttrOutcome, allowed))
	span.End(err)
	return allowed, err
}

func (s *Service) checkConsent(ctx context.Context, q models.CheckQuery) (bool, error) {
	now := requestcontext.Now(ctx)
	req, err := s.store.GetActiveConsent(ctx, q.Requester, q.Target, q.Scope, now)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.incrementConsentCheck("denied")
			return false, nil
		}
		s.incrementConsentCheck("error")
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent")
	}
	if req == nil || !req.IsActive(now) {
		s.incrementConsentCheck("denied")
		return false, nil
	}
	s.incrementConsentCheck("allowed")
	return true, nil
}

// CheckConsentStatus extends CheckConsent with the status of the most relevant
// record: the active one, else a pending one, else the latest on record.
func (s *Service) CheckConsentStatus(ctx context.Context, q models.CheckQuery) (*models.CheckResult, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanCheckConsent, tracer.String(tracer.AttrContactType, string(q.Target.Type)))
	result, err := s.checkConsentStatus(ctx, q)
	span.SetAttributes(tracer.Bool(tracer.AttrOutcome, result.HasConsent))
	span.End(err)
	return result, err
}

func (s *Service) checkConsentStatus(ctx context.Context, q models.CheckQuery) (*models.CheckResult, error) {
	denied := &models.CheckResult{}
	now := requestcontext.Now(ctx)

	active, err := s.store.GetActiveConsent(ctx, q.Requester, q.Target, q.Scope, now)
	switch {
	case err == nil && active != nil && active.IsActive(now):
		s.incrementConsentCheck("allowed")
		expires := active.ExpiresAt
		return &models.CheckResult{HasConsent: true, Status: models.StatusPtr(models.StatusGranted), ExpiresAt: &expires}, nil
	case err != nil && !errors.Is(err, sentinel.ErrNotFound):
		s.incrementConsentCheck("error")
		return denied, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent")
	}
	s.incrementConsentCheck("denied")

	records, err := s.store.FindByRequester(ctx, q.Requester, nil)
	if err != nil {
		return denied, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent")
	}
	var pending, latest *models.Request
	for _, r := range records {
		if !r.Target.Equal(q.Target) || (q.Scope != nil && r.Scope != *q.Scope) {
			continue
		}
		if r.Status == models.StatusPending && pending == nil {
			pending = r
		}
		if latest == nil || !r.UpdatedAt.Before(latest.UpdatedAt) {
			latest = r
		}
	}
	pick := pending
	if pick == nil {
		pick = latest
	}
	if pick == nil {
		return denied, nil
	}
	status := pick.Status
	if status == models.StatusGranted {
		status = models.StatusExpired
	}
	expires := pick.ExpiresAt
	return &models.CheckResult{Status: &status, ExpiresAt: &expires}, nil
}

// SimulateResponse applies a YES/NO/REVOKE reply from target to the oldest
// pending request from requesterValue.
func (s *Service) SimulateResponse(ctx context.Context, target models.ContactInfo, requesterValue, response string) (*models.ActionResult, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSimulateResponse, tracer.String(tracer.AttrContactType, string(target.Type)))
	result, err := s.simulateResponse(ctx, target, requesterValue, response)
	if result != nil {
		span.SetAttributes(tracer.Bool(tracer.AttrOutcome, result.Success))
	}
	span.End(err)
	return result, err
}

func (s *Service) simulateResponse(ctx context.Context, target models.ContactInfo, requesterValue, response string) (*models.ActionResult, error) {
	pending := models.StatusPending
	candidates, err := s.store.FindByTarget(ctx, target, &pending)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent requests")
	}
	candidates = slices.DeleteFunc(candidates, func(r *models.Request) bool {
		return r.Requester.Value != requesterValue
	})
	if len(candidates) == 0 {
		return &models.ActionResult{Message: "No pending request found"}, nil
	}
	slices.SortStableFunc(candidates, func(a, b *models.Request) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID.String(), b.ID.String()))
	})

	var next models.Status
	switch strings.ToUpper(strings.TrimSpace(response)) {
	case "YES":
		next = models.StatusGranted
	case "NO", "REVOKE":
		next = models.StatusRevoked
	default:
		return &models.ActionResult{Message: fmt.Sprintf("Invalid response: %s. Use YES, NO, or REVOKE.", response)}, nil
	}

	result, err := s.respond(ctx, candidates[0].ID, next, models.AuditReasonSimulatedResponse)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		// Answered concurrently between the lookup and the lock.
		return &models.ActionResult{Message: "No pending request found"}, nil
	}
	if next == models.StatusRevoked {
		result.Message = "Consent revoked"
	}
	return result, nil
}

// GrantConsent grants a pending request, as done from the web consent page.
func (s *Service) GrantConsent(ctx context.Context, id uuid.UUID) (*models.ActionResult, error) {
	return s.respondWithSpan(ctx, id, models.StatusGranted)
}

// DenyConsent revokes a pending request, as done from the web consent page.
func (s *Service) DenyConsent(ctx context.Context, id uuid.UUID) (*models.ActionResult, error) {
	return s.respondWithSpan(ctx, id, models.StatusRevoked)
}

func (s *Service) respondWithSpan(ctx context.Context, id uuid.UUID, next models.Status) (*models.ActionResult, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanRespond,
		tracer.String(tracer.AttrConsentID, id.String()),
		tracer.String(tracer.AttrOutcome, string(next)),
	)
	result, err := s.respond(ctx, id, next, models.AuditReasonLinkResponse)
	span.End(err)
	return result, err
}

// respond moves a pending request to next. The record is read once to learn
// its tuple; the update itself only applies while the record is still pending,
// so an expiry sweep racing the response wins.
func (s *Service) respond(ctx context.Context, id uuid.UUID, next models.Status, reason string) (*models.ActionResult, error) {
	req, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &models.ActionResult{Message: "Consent request not found"}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent request")
	}

	now := requestcontext.Now(ctx)
	var (
		updated *models.Request
		current models.Status
	)
	err = s.tx.RunInTx(ctx, req.TupleKey(), func(ctx context.Context, store Store) error {
		var err error
		updated, err = store.RespondToPending(ctx, id, next, now)
		if !errors.Is(err, sentinel.ErrConflict) {
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update consent request")
			}
			return nil
		}
		fresh, err := store.GetByID(ctx, id)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent request")
		}
		current = fresh.Status
		return nil
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return &models.ActionResult{
			NewStatus: models.StatusPtr(current),
			Message:   fmt.Sprintf("Request already %s", current),
		}, nil
	}

	message := "Consent granted"
	if next == models.StatusGranted {
		s.emitAudit(ctx, models.AuditActionConsentGranted, updated, reason)
		if s.metrics != nil {
			s.metrics.IncrementConsentsGranted(reason)
		}
	} else {
		message = "Consent denied"
		s.emitAudit(ctx, models.AuditActionConsentRevoked, updated, reason)
		if s.metrics != nil {
			s.metrics.IncrementConsentsRevoked(reason)
		}
	}
	s.log(ctx, slog.LevelInfo, "consent request answered",
		"consent_id", updated.ID.String(),
		"status", string(updated.Status),
		"reason", reason,
	)
	return &models.ActionResult{Success: true, NewStatus: models.StatusPtr(updated.Status), Message: message}, nil
}

// GetRequest loads a request for the web consent flow.
func (s *Service) GetRequest(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	req, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "Consent request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent request")
	}
	return req, nil
}

// ListRequests lists requests by target, else by requester, newest first.
// With neither filter set the result is empty.
func (s *Service) ListRequests(ctx context.Context, f models.ListFilter) (*models.ListResponse, error) {
	var (
		records []*models.Request
		err     error
	)
	switch {
	case f.Target != nil:
		records, err = s.store.FindByTarget(ctx, *f.Target, f.Status)
	case f.Requester != nil:
		records, err = s.store.FindByRequester(ctx, *f.Requester, f.Status)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list consent requests")
	}

	slices.SortStableFunc(records, func(a, b *models.Request) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	summaries := make([]models.Summary, 0, len(records))
	for _, r := range records {
		summaries = append(summaries, models.NewSummary(*r))
	}
	return &models.ListResponse{Requests: summaries, Total: len(summaries)}, nil
}

// ExpireOldRequests moves every pending or granted request past its expiry to
// expired and returns how many changed.
func (s *Service) ExpireOldRequests(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanExpire)
	now := requestcontext.Now(ctx)

	expired, err := s.store.ExpireOldRequests(ctx, now)
	if err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to expire consent requests")
		span.End(err)
		return 0, err
	}
	for _, r := range expired {
		s.emitAudit(ctx, models.AuditActionConsentExpired, r, models.AuditReasonExpirySweep)
	}
	if s.metrics != nil {
		s.metrics.AddConsentsExpired(len(expired))
	}
	span.SetAttributes(tracer.Int64(tracer.AttrExpiredCount, int64(len(expired))))
	span.End(nil)
	if len(expired) > 0 {
		s.log(ctx, slog.LevelInfo, "expired consent requests", "count", len(expired))
	}
	return len(expired), nil
}

func (s *Service) emitAudit(ctx context.Context, action string, req *models.Request, reason string) {
	if s.auditor == nil {
		return
	}
	event := audit.Event{
		Timestamp:      requestcontext.Now(ctx),
		Action:         action,
		ConsentID:      req.ID.String(),
		RequesterType:  string(req.Requester.Type),
		RequesterValue: req.Requester.Value,
		TargetType:     string(req.Target.Type),
		TargetValue:    req.Target.Value,
		Scope:          req.Scope,
		Status:         string(req.Status),
		Reason:         reason,
		Device:         deviceFromContext(ctx),
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.log(ctx, slog.LevelError, "failed to emit audit event", "action", action, "consent_id", event.ConsentID, "error", err)
	}
}

// deviceFromContext names the responding device for audit; empty outside HTTP requests.
func deviceFromContext(ctx context.Context) string {
	ua := requestcontext.UserAgent(ctx)
	if ua == "" {
		return ""
	}
	return device.ParseUserAgent(ua)
}

func (s *Service) incrementConsentCheck(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementConsentCheck(outcome)
	}
}

func (s *Service) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Log(ctx, level, msg, args...)
}
