package seeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"agentconsent/internal/audit"
	"agentconsent/internal/consent/models"
	"agentconsent/internal/sentinel"
	"agentconsent/pkg/requestcontext"
)

// Store defines methods for seeding consent requests
type Store interface {
	Create(ctx context.Context, req *models.Request) error
}

// AuditStore records the events a seeded request would have produced
type AuditStore interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Seeder populates a consent store with demo requests
type Seeder struct {
	store  Store
	audit  AuditStore
	logger *slog.Logger
	now    func() time.Time
}

// New creates a new seeder. auditStore may be nil.
func New(store Store, auditStore AuditStore, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		store:  store,
		audit:  auditStore,
		logger: logger,
		now:    func() time.Time { return requestcontext.Now(context.Background()) },
	}
}

type demoRequest struct {
	requester     string
	requesterName string
	targetType    models.ContactType
	target        string
	scope         string
	status        models.Status
	createdOffset time.Duration
	expiryOffset  time.Duration
}

var demoRequests = []demoRequest{
	{"+15550001000", "Scheduling Agent", models.ContactTypePhone, "+15550002001", "calendar_access", models.StatusPending, -5 * time.Minute, 23 * time.Hour},
	{"+15550001000", "Scheduling Agent", models.ContactTypePhone, "+15550002002", "calendar_access", models.StatusGranted, -2 * time.Hour, 22 * time.Hour},
	{"+15550001000", "Scheduling Agent", models.ContactTypeEmail, "carol@example.com", "appointment_reminders", models.StatusGranted, -30 * time.Minute, 6 * time.Hour},
	{"+15550001000", "Scheduling Agent", models.ContactTypeEmail, "dave@example.com", "meeting_notes", models.StatusRevoked, -3 * time.Hour, 21 * time.Hour},
	{"+15550001000", "Scheduling Agent", models.ContactTypePhone, "+15550002005", "calendar_access", models.StatusExpired, -26 * time.Hour, -2 * time.Hour},
}

// SeedAll creates every demo request. Requests whose tuple already exists are
// skipped, so seeding twice is harmless.
func (s *Seeder) SeedAll(ctx context.Context) (int, error) {
	s.logger.Info("seeding demo consent requests...")

	now := s.now()
	created := 0
	for _, d := range demoRequests {
		req, err := d.build(now)
		if err != nil {
			return created, fmt.Errorf("failed to build demo request for %s: %w", d.target, err)
		}
		if err := s.store.Create(ctx, &req); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				s.logger.Debug("demo request already present", "target", d.target, "scope", d.scope)
				continue
			}
			return created, fmt.Errorf("failed to seed consent request: %w", err)
		}
		created++
		if err := s.emit(ctx, req); err != nil {
			return created, fmt.Errorf("failed to seed audit event: %w", err)
		}
	}

	s.logger.Info("demo data seeded successfully", "requests", created)
	return created, nil
}

func (d demoRequest) build(now time.Time) (models.Request, error) {
	name := d.requesterName
	requester, err := models.NewContactInfo(models.ContactTypePhone, d.requester, &name)
	if err != nil {
		return models.Request{}, err
	}
	target, err := models.NewContactInfo(d.targetType, d.target, nil)
	if err != nil {
		return models.Request{}, err
	}

	createdAt := now.Add(d.createdOffset)
	req := models.NewRequest(requester, target, d.scope, now.Add(d.expiryOffset), createdAt)
	respondedAt := createdAt.Add(time.Minute)
	switch d.status {
	case models.StatusGranted:
		req = req.Grant(respondedAt)
	case models.StatusRevoked:
		req = req.Revoke(respondedAt)
	case models.StatusExpired:
		req = req.Expire(now.Add(d.expiryOffset))
	}
	return req, nil
}

func (s *Seeder) emit(ctx context.Context, req models.Request) error {
	if s.audit == nil {
		return nil
	}
	action := models.AuditActionConsentRequested
	switch req.Status {
	case models.StatusGranted:
		action = models.AuditActionConsentGranted
	case models.StatusRevoked:
		action = models.AuditActionConsentRevoked
	case models.StatusExpired:
		action = models.AuditActionConsentExpired
	}
	return s.audit.Emit(ctx, audit.Event{
		Timestamp:      req.UpdatedAt,
		Action:         action,
		ConsentID:      req.ID.String(),
		RequesterType:  string(req.Requester.Type),
		RequesterValue: req.Requester.Value,
		TargetType:     string(req.Target.Type),
		TargetValue:    req.Target.Value,
		Scope:          req.Scope,
		Status:         string(req.Status),
		Reason:         "seed",
	})
}
