package main

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"agentconsent/internal/consent/service"
	"agentconsent/internal/consent/store"
	dErrors "agentconsent/pkg/domain-errors"
)

const defaultConsentTxTimeout = 5 * time.Second

// consentPostgresTx runs each unit of work in a Postgres transaction holding an
// advisory lock on the tuple key, so concurrent requests for the same
// (requester, target, scope) serialize across processes.
type consentPostgresTx struct {
	db      *sqlx.DB
	cache   *store.CachedStore
	timeout time.Duration
}

func newConsentPostgresTx(db *sqlx.DB, cache *store.CachedStore) *consentPostgresTx {
	return &consentPostgresTx{db: db, cache: cache}
}

func (t *consentPostgresTx) RunInTx(ctx context.Context, key string, fn func(ctx context.Context, store service.Store) error) error {
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

	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin consent transaction")
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is no-op; error already captured
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "lock consent tuple")
	}

	var txStore service.Store = store.NewPostgresTx(tx.Tx)
	if t.cache != nil {
		txStore = t.cache.WithInner(txStore)
	}
	if err := fn(ctx, txStore); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit consent transaction")
	}
	return nil
}
