package seeder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentconsent/internal/audit"
	"agentconsent/internal/consent/models"
	"agentconsent/internal/consent/store"
)

type recordingAudit struct {
	events []audit.Event
}

func (r *recordingAudit) Emit(_ context.Context, event audit.Event) error {
	r.events = append(r.events, event)
	return nil
}

type failingStore struct{}

func (failingStore) Create(context.Context, *models.Request) error {
	return errors.New("disk full")
}

func TestSeedAll(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	consents := store.New()
	events := &recordingAudit{}
	s := New(consents, events, nil)
	s.now = func() time.Time { return now }

	created, err := s.SeedAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(demoRequests), created)
	assert.Len(t, events.events, len(demoRequests))

	requester, err := models.NewContactInfo(models.ContactTypePhone, "+15550001000", nil)
	require.NoError(t, err)
	all, err := consents.FindByRequester(ctx, requester, nil)
	require.NoError(t, err)
	require.Len(t, all, len(demoRequests))

	byStatus := map[models.Status]int{}
	for _, req := range all {
		byStatus[req.Status]++
		if req.Status == models.StatusGranted || req.Status == models.StatusRevoked {
			assert.NotNil(t, req.RespondedAt, "responded requests carry a response time")
		}
	}
	assert.Equal(t, 1, byStatus[models.StatusPending])
	assert.Equal(t, 2, byStatus[models.StatusGranted])
	assert.Equal(t, 1, byStatus[models.StatusRevoked])
	assert.Equal(t, 1, byStatus[models.StatusExpired])

	t.Run("seeding twice skips existing tuples", func(t *testing.T) {
		again, err := s.SeedAll(ctx)
		require.NoError(t, err)
		assert.Zero(t, again)
		assert.Len(t, events.events, len(demoRequests))
	})
}

func TestSeedAllActiveGrantIsVisible(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	consents := store.New()
	s := New(consents, nil, nil)
	s.now = func() time.Time { return now }

	_, err := s.SeedAll(ctx)
	require.NoError(t, err)

	requester, _ := models.NewContactInfo(models.ContactTypePhone, "+15550001000", nil)
	target, _ := models.NewContactInfo(models.ContactTypePhone, "+15550002002", nil)
	scope := "calendar_access"
	active, err := consents.GetActiveConsent(ctx, requester, target, &scope, now)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, models.StatusGranted, active.Status)
}

func TestSeedAllStoreError(t *testing.T) {
	s := New(failingStore{}, nil, nil)
	created, err := s.SeedAll(context.Background())
	require.Error(t, err)
	assert.Zero(t, created)
	assert.Contains(t, err.Error(), "disk full")
}
