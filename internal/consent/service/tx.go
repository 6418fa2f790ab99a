package service

import (
	"context"
	"time"

	"agentconsent/internal/consent/metrics"
	dErrors "agentconsent/pkg/domain-errors"
	platformsync "agentconsent/pkg/platform/sync"
)

// ConsentStoreTx provides a transactional boundary for consent store mutations.
// key is the (requester, target, scope) tuple key; implementations serialize
// work on the same key. In memory that is a sharded lock, in Postgres a
// transaction holding an advisory lock on the key.
type ConsentStoreTx interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context, store Store) error) error
}

// defaultConsentTxTimeout is the maximum duration for a consent transaction.
const defaultConsentTxTimeout = 5 * time.Second

type shardedConsentTx struct {
	mu      *platformsync.ShardedMutex
	store   Store
	timeout time.Duration
	metrics *metrics.Metrics
}

// NewShardedTx serializes transactions per tuple key over a store with no
// transactions of its own.
func NewShardedTx(store Store, shards int, m *metrics.Metrics) ConsentStoreTx {
	return &shardedConsentTx{
		mu:      platformsync.NewShardedMutex(shards),
		store:   store,
		metrics: m,
	}
}

func (t *shardedConsentTx) RunInTx(ctx context.Context, key string, fn func(ctx context.Context, store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultConsentTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	lockStart := time.Now()
	t.mu.Lock(key)
	if t.metrics != nil {
		t.metrics.ObserveShardLockWait(time.Since(lockStart).Seconds())
	}
	defer t.mu.Unlock(key)

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, t.store)
}
