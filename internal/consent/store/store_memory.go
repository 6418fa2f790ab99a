package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"agentconsent/internal/consent/models"
	"agentconsent/internal/sentinel"
)

// Error contract, shared by every store in this package:
//   - ErrNotFound when the requested request does not exist
//   - ErrConflict when Create would violate the (requester, target, scope) uniqueness
//   - wrapped errors for infrastructure failures

// InMemoryStore keeps consent requests in process memory. Records are copied on
// the way in and on the way out so callers never share memory with the store.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]*models.Request
	byTuple  map[string]uuid.UUID
}

// New constructs an empty in-memory consent store.
func New() *InMemoryStore {
	return &InMemoryStore{
		requests: make(map[uuid.UUID]*models.Request),
		byTuple:  make(map[string]uuid.UUID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := req.TupleKey()
	if _, exists := s.byTuple[key]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.requests[req.ID]; exists {
		return sentinel.ErrConflict
	}
	stored := req.Clone()
	s.requests[req.ID] = &stored
	s.byTuple[key] = req.ID
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := req.Clone()
	return &out, nil
}

// GetActiveConsent returns a granted, unexpired request for the pair. With a nil
// scope the most recently responded match wins.
func (s *InMemoryStore) GetActiveConsent(_ context.Context, requester, target models.ContactInfo, scope *string, now time.Time) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if scope != nil {
		req, ok := s.lookupTuple(models.TupleKey(requester, target, *scope))
		if !ok || req.Status != models.StatusGranted || !req.ExpiresAt.After(now) {
			return nil, sentinel.ErrNotFound
		}
		out := req.Clone()
		return &out, nil
	}

	var matches []*models.Request
	for _, req := range s.requests {
		if req.Requester.Equal(requester) && req.Target.Equal(target) &&
			req.Status == models.StatusGranted && req.ExpiresAt.After(now) {
			matches = append(matches, req)
		}
	}
	if len(matches) == 0 {
		return nil, sentinel.ErrNotFound
	}
	slices.SortFunc(matches, compareMostRecentlyResponded)
	out := matches[0].Clone()
	return &out, nil
}

func (s *InMemoryStore) GetPendingRequest(_ context.Context, requester, target models.ContactInfo, scope string) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.lookupTuple(models.TupleKey(requester, target, scope))
	if !ok || req.Status != models.StatusPending {
		return nil, sentinel.ErrNotFound
	}
	out := req.Clone()
	return &out, nil
}

// GetByTuple returns the request for the exact tuple whatever its status.
func (s *InMemoryStore) GetByTuple(_ context.Context, requester, target models.ContactInfo, scope string) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.lookupTuple(models.TupleKey(requester, target, scope))
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := req.Clone()
	return &out, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, id uuid.UUID, status models.Status, now time.Time) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	next := req.WithStatus(status, now)
	s.requests[id] = &next
	out := next.Clone()
	return &out, nil
}

// RespondToPending moves a pending request to status. A request that is no longer
// pending is left untouched and ErrConflict is returned.
func (s *InMemoryStore) RespondToPending(_ context.Context, id uuid.UUID, status models.Status, now time.Time) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if req.Status != models.StatusPending {
		return nil, sentinel.ErrConflict
	}
	next := req.WithStatus(status, now)
	s.requests[id] = &next
	out := next.Clone()
	return &out, nil
}

func (s *InMemoryStore) FindByTarget(_ context.Context, target models.ContactInfo, status *models.Status) ([]*models.Request, error) {
	return s.find(func(r *models.Request) bool { return r.Target.Equal(target) }, status), nil
}

func (s *InMemoryStore) FindByRequester(_ context.Context, requester models.ContactInfo, status *models.Status) ([]*models.Request, error) {
	return s.find(func(r *models.Request) bool { return r.Requester.Equal(requester) }, status), nil
}

// ExpireOldRequests moves every pending or granted request with expires_at <= now
// to expired. The whole sweep runs under the write lock.
func (s *InMemoryStore) ExpireOldRequests(_ context.Context, now time.Time) ([]*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expired := make([]*models.Request, 0)
	for id, req := range s.requests {
		if req.Status != models.StatusPending && req.Status != models.StatusGranted {
			continue
		}
		if req.ExpiresAt.After(now) {
			continue
		}
		next := req.Expire(now)
		s.requests[id] = &next
		out := next.Clone()
		expired = append(expired, &out)
	}
	return expired, nil
}

func (s *InMemoryStore) lookupTuple(key string) (*models.Request, bool) {
	id, ok := s.byTuple[key]
	if !ok {
		return nil, false
	}
	req, ok := s.requests[id]
	return req, ok
}

func (s *InMemoryStore) find(match func(*models.Request) bool, status *models.Status) []*models.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Request, 0)
	for _, req := range s.requests {
		if !match(req) {
			continue
		}
		if status != nil && req.Status != *status {
			continue
		}
		c := req.Clone()
		out = append(out, &c)
	}
	slices.SortFunc(out, compareOldestFirst)
	return out
}

// compareMostRecentlyResponded orders by responded_at desc (nil last), then
// updated_at desc, then id.
func compareMostRecentlyResponded(a, b *models.Request) int {
	switch {
	case a.RespondedAt != nil && b.RespondedAt == nil:
		return -1
	case a.RespondedAt == nil && b.RespondedAt != nil:
		return 1
	case a.RespondedAt != nil && b.RespondedAt != nil && !a.RespondedAt.Equal(*b.RespondedAt):
		return b.RespondedAt.Compare(*a.RespondedAt)
	}
	if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID.String(), b.ID.String())
}

func compareOldestFirst(a, b *models.Request) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID.String(), b.ID.String())
}
