package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"agentconsent/internal/consent/models"
)

const (
	activeKeyPrefix = "agentconsent:consent:active:"
	anyScopeSuffix  = "|*"

	defaultCacheTTL = 5 * time.Minute
)

// Store is the full method set shared by every consent store in this package.
type Store interface {
	Create(ctx context.Context, req *models.Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Request, error)
	GetActiveConsent(ctx context.Context, requester, target models.ContactInfo, scope *string, now time.Time) (*models.Request, error)
	GetPendingRequest(ctx context.Context, requester, target models.ContactInfo, scope string) (*models.Request, error)
	GetByTuple(ctx context.Context, requester, target models.ContactInfo, scope string) (*models.Request, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, now time.Time) (*models.Request, error)
	RespondToPending(ctx context.Context, id uuid.UUID, status models.Status, now time.Time) (*models.Request, error)
	FindByTarget(ctx context.Context, target models.ContactInfo, status *models.Status) ([]*models.Request, error)
	FindByRequester(ctx context.Context, requester models.ContactInfo, status *models.Status) ([]*models.Request, error)
	ExpireOldRequests(ctx context.Context, now time.Time) ([]*models.Request, error)
}

// requestJSON is the cached form of an active request.
type requestJSON struct {
	ID             string  `json:"id"`
	RequesterType  string  `json:"requester_type"`
	RequesterValue string  `json:"requester_value"`
	RequesterName  *string `json:"requester_name,omitempty"`
	TargetType     string  `json:"target_type"`
	TargetValue    string  `json:"target_value"`
	TargetName     *string `json:"target_name,omitempty"`
	Scope          string  `json:"scope"`
	Status         string  `json:"status"`
	ExpiresAt      int64   `json:"expires_at"` // Unix nano
	CreatedAt      int64   `json:"created_at"`
	UpdatedAt      int64   `json:"updated_at"`
	RespondedAt    *int64  `json:"responded_at,omitempty"`
}

func requestToJSON(r *models.Request) *requestJSON {
	j := &requestJSON{
		ID:             r.ID.String(),
		RequesterType:  string(r.Requester.Type),
		RequesterValue: r.Requester.Value,
		RequesterName:  r.Requester.Name,
		TargetType:     string(r.Target.Type),
		TargetValue:    r.Target.Value,
		TargetName:     r.Target.Name,
		Scope:          r.Scope,
		Status:         string(r.Status),
		ExpiresAt:      r.ExpiresAt.UnixNano(),
		CreatedAt:      r.CreatedAt.UnixNano(),
		UpdatedAt:      r.UpdatedAt.UnixNano(),
	}
	if r.RespondedAt != nil {
		ts := r.RespondedAt.UnixNano()
		j.RespondedAt = &ts
	}
	return j
}

func requestFromJSON(j *requestJSON) (*models.Request, error) {
	id, err := uuid.Parse(j.ID)
	if err != nil {
		return nil, fmt.Errorf("parse request id: %w", err)
	}
	r := &models.Request{
		ID:        id,
		Requester: models.ContactInfo{Type: models.ContactType(j.RequesterType), Value: j.RequesterValue, Name: j.RequesterName},
		Target:    models.ContactInfo{Type: models.ContactType(j.TargetType), Value: j.TargetValue, Name: j.TargetName},
		Scope:     j.Scope,
		Status:    models.Status(j.Status),
		ExpiresAt: time.Unix(0, j.ExpiresAt).UTC(),
		CreatedAt: time.Unix(0, j.CreatedAt).UTC(),
		UpdatedAt: time.Unix(0, j.UpdatedAt).UTC(),
	}
	if j.RespondedAt != nil {
		t := time.Unix(0, *j.RespondedAt).UTC()
		r.RespondedAt = &t
	}
	return r, nil
}

// CachedStore decorates a Store with a Redis cache of positive active-consent
// lookups. Only GetActiveConsent reads the cache; writes go straight to the
// wrapped store and then drop the keys they may have made stale. Redis failures
// degrade to the wrapped store.
type CachedStore struct {
	Store
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps inner with a cache held in client. Entries live for at most
// ttl and never past the request's expiry.
func NewCached(inner Store, client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedStore{Store: inner, client: client, ttl: ttl, logger: logger}
}

// WithInner returns a copy sharing the cache but delegating to inner, used to
// route transactional stores through the same invalidation.
func (s *CachedStore) WithInner(inner Store) *CachedStore {
	next := *s
	next.Store = inner
	return &next
}

func activeKey(requester, target models.ContactInfo, scope *string) string {
	if scope == nil {
		return activeKeyPrefix + models.PairKey(requester, target) + anyScopeSuffix
	}
	return activeKeyPrefix + models.TupleKey(requester, target, *scope)
}

func (s *CachedStore) GetActiveConsent(ctx context.Context, requester, target models.ContactInfo, scope *string, now time.Time) (*models.Request, error) {
	key := activeKey(requester, target, scope)
	if cached, ok := s.readCache(ctx, key); ok && cached.IsActive(now) {
		return cached, nil
	}

	req, err := s.Store.GetActiveConsent(ctx, requester, target, scope, now)
	if err != nil {
		return nil, err
	}
	s.writeCache(ctx, key, req, now)
	return req, nil
}

func (s *CachedStore) Create(ctx context.Context, req *models.Request) error {
	if err := s.Store.Create(ctx, req); err != nil {
		return err
	}
	s.invalidate(ctx, req)
	return nil
}

func (s *CachedStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, now time.Time) (*models.Request, error) {
	updated, err := s.Store.UpdateStatus(ctx, id, status, now)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, updated)
	return updated, nil
}

func (s *CachedStore) RespondToPending(ctx context.Context, id uuid.UUID, status models.Status, now time.Time) (*models.Request, error) {
	updated, err := s.Store.RespondToPending(ctx, id, status, now)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, updated)
	return updated, nil
}

func (s *CachedStore) ExpireOldRequests(ctx context.Context, now time.Time) ([]*models.Request, error) {
	expired, err := s.Store.ExpireOldRequests(ctx, now)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, expired...)
	return expired, nil
}

func (s *CachedStore) readCache(ctx context.Context, key string) (*models.Request, bool) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.warn(ctx, "consent cache read failed", err)
		}
		return nil, false
	}
	var j requestJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, false
	}
	req, err := requestFromJSON(&j)
	if err != nil {
		return nil, false
	}
	return req, true
}

func (s *CachedStore) writeCache(ctx context.Context, key string, req *models.Request, now time.Time) {
	ttl := min(s.ttl, req.ExpiresAt.Sub(now))
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(requestToJSON(req))
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		s.warn(ctx, "consent cache write failed", err)
	}
}

// invalidate drops the scoped and scope-less keys for each request.
func (s *CachedStore) invalidate(ctx context.Context, reqs ...*models.Request) {
	if len(reqs) == 0 {
		return
	}
	keys := make([]string, 0, 2*len(reqs))
	for _, r := range reqs {
		scope := r.Scope
		keys = append(keys,
			activeKey(r.Requester, r.Target, &scope),
			activeKey(r.Requester, r.Target, nil),
		)
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.warn(ctx, "consent cache invalidation failed", err)
	}
}

func (s *CachedStore) warn(ctx context.Context, msg string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.WarnContext(ctx, msg, "error", err)
}

var (
	_ Store = (*CachedStore)(nil)
	_ Store = (*InMemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

