package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"agentconsent/internal/sentinel"
	"agentconsent/pkg/platform/audit/outbox"
)

// maxBatch caps a single fetch.
const maxBatch = 1000

// Store implements outbox.Store on PostgreSQL with sqlx.
type Store struct {
	db sqlx.ExtContext
}

// New creates a PostgreSQL outbox store.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// NewTx creates a store whose writes join tx.
func NewTx(tx *sqlx.Tx) *Store {
	return &Store{db: tx}
}

func (s *Store) Append(ctx context.Context, entry *outbox.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.AggregateType, entry.AggregateID, entry.EventType,
		json.RawMessage(entry.Payload), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// FetchUnprocessed returns up to limit entries that haven't been processed.
func (s *Store) FetchUnprocessed(ctx context.Context, limit int) ([]*outbox.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	limit = min(limit, maxBatch)

	entries := make([]*outbox.Entry, 0, limit)
	err := sqlx.SelectContext(ctx, s.db, &entries, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at, processed_at
		FROM outbox
		WHERE processed_at IS NULL
		ORDER BY created_at, id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unprocessed entries: %w", err)
	}
	return entries, nil
}

func (s *Store) MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE outbox SET processed_at = $2 WHERE id = $1 AND processed_at IS NULL`,
		id, processedAt,
	)
	if err != nil {
		return fmt.Errorf("mark outbox entry processed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("outbox entry %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

func (s *Store) CountPending(ctx context.Context) (int64, error) {
	var count int64
	if err := sqlx.GetContext(ctx, s.db, &count, `SELECT COUNT(*) FROM outbox WHERE processed_at IS NULL`); err != nil {
		return 0, fmt.Errorf("count pending entries: %w", err)
	}
	return count, nil
}

func (s *Store) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM outbox WHERE processed_at IS NOT NULL AND processed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete processed entries: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return rows, nil
}

var _ outbox.Store = (*Store)(nil)
