package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"agentconsent/internal/consent/models"
	"agentconsent/internal/sentinel"
)

const requestColumns = `id, requester_type, requester_value, requester_name,
	target_type, target_value, target_name, scope, status,
	expires_at, created_at, updated_at, responded_at`

// PostgresStore persists consent requests in the consent_requests table.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPostgres constructs a PostgreSQL-backed consent store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx constructs a store bound to an open transaction.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{tx: tx}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Create inserts req. Any existing row for the same tuple (or id) makes the insert a
// no-op, which is reported as ErrConflict.
func (s *PostgresStore) Create(ctx context.Context, req *models.Request) error {
	if req == nil {
		return fmt.Errorf("consent request is required")
	}
	query := `
		INSERT INTO consent_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT DO NOTHING
		RETURNING id
	`
	var storedID uuid.UUID
	err := s.execer().QueryRowContext(ctx, query,
		req.ID,
		string(req.Requester.Type),
		req.Requester.Value,
		req.Requester.DisplayName(),
		string(req.Target.Type),
		req.Target.Value,
		nullString(req.Target.Name),
		req.Scope,
		string(req.Status),
		req.ExpiresAt,
		req.CreatedAt,
		req.UpdatedAt,
		nullTime(req.RespondedAt),
	).Scan(&storedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create consent request: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM consent_requests WHERE id = $1`
	return s.queryOne(ctx, "get consent request", query, id)
}

func (s *PostgresStore) GetActiveConsent(ctx context.Context, requester, target models.ContactInfo, scope *string, now time.Time) (*models.Request, error) {
	args := []any{string(requester.Type), requester.Value, string(target.Type), target.Value, now}
	query := `
		SELECT ` + requestColumns + `
		FROM consent_requests
		WHERE requester_type = $1 AND requester_value = $2
		  AND target_type = $3 AND target_value = $4
		  AND status = 'granted' AND expires_at > $5`
	if scope != nil {
		query += ` AND scope = $6`
		args = append(args, *scope)
	}
	query += `
		ORDER BY responded_at DESC NULLS LAST, updated_at DESC, id
		LIMIT 1`
	return s.queryOne(ctx, "get active consent", query, args...)
}

func (s *PostgresStore) GetPendingRequest(ctx context.Context, requester, target models.ContactInfo, scope string) (*models.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM consent_requests
		WHERE requester_type = $1 AND requester_value = $2
		  AND target_type = $3 AND target_value = $4
		  AND scope = $5 AND status = 'pending'`
	return s.queryOne(ctx, "get pending request", query,
		string(requester.Type), requester.Value, string(target.Type), target.Value, scope)
}

func (s *PostgresStore) GetByTuple(ctx context.Context, requester, target models.ContactInfo, scope string) (*models.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM consent_requests
		WHERE requester_type = $1 AND requester_value = $2
		  AND target_type = $3 AND target_value = $4
		  AND scope = $5`
	return s.queryOne(ctx, "get consent request by tuple", query,
		string(requester.Type), requester.Value, string(target.Type), target.Value, scope)
}

// UpdateStatus stamps responded_at only for granted and revoked; other statuses keep
// whatever responded_at was stored.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, now time.Time) (*models.Request, error) {
	query := `
		UPDATE consent_requests
		SET status = $2::text,
		    updated_at = $3,
		    responded_at = CASE WHEN $2::text IN ('granted', 'revoked') THEN $3 ELSE responded_at END
		WHERE id = $1
		RETURNING ` + requestColumns
	return s.queryOne(ctx, "update consent status", query, id, string(status), now)
}

// RespondToPending updates the row only while it is still pending, so a concurrent
// expiry sweep can never be overwritten. ErrConflict means the row exists in another
// status.
func (s *PostgresStore) RespondToPending(ctx context.Context, id uuid.UUID, status models.Status, now time.Time) (*models.Request, error) {
	query := `
		UPDATE consent_requests
		SET status = $2::text,
		    updated_at = $3,
		    responded_at = CASE WHEN $2::text IN ('granted', 'revoked') THEN $3 ELSE responded_at END
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + requestColumns
	updated, err := s.queryOne(ctx, "respond to consent request", query, id, string(status), now)
	if !errors.Is(err, sentinel.ErrNotFound) {
		return updated, err
	}
	var exists bool
	if err := s.execer().QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM consent_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("respond to consent request: %w", err)
	}
	if exists {
		return nil, sentinel.ErrConflict
	}
	return nil, sentinel.ErrNotFound
}

func (s *PostgresStore) FindByTarget(ctx context.Context, target models.ContactInfo, status *models.Status) ([]*models.Request, error) {
	return s.findBy(ctx, "target", target, status)
}

func (s *PostgresStore) FindByRequester(ctx context.Context, requester models.ContactInfo, status *models.Status) ([]*models.Request, error) {
	return s.findBy(ctx, "requester", requester, status)
}

// ExpireOldRequests is a single conditional UPDATE; under READ COMMITTED a concurrent
// sweep re-checks the status predicate after the first commits, so rows are never
// counted twice.
func (s *PostgresStore) ExpireOldRequests(ctx context.Context, now time.Time) ([]*models.Request, error) {
	query := `
		UPDATE consent_requests
		SET status = 'expired', updated_at = $1
		WHERE status IN ('pending', 'granted') AND expires_at <= $1
		RETURNING ` + requestColumns
	rows, err := s.execer().QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("expire consent requests: %w", err)
	}
	return collect(rows, "expire consent requests")
}

func (s *PostgresStore) findBy(ctx context.Context, party string, contact models.ContactInfo, status *models.Status) ([]*models.Request, error) {
	// party is one of two literals chosen above, never caller input.
	query := `SELECT ` + requestColumns + ` FROM consent_requests
		WHERE ` + party + `_type = $1 AND ` + party + `_value = $2`
	args := []any{string(contact.Type), contact.Value}
	if status != nil {
		query += ` AND status = $3`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.execer().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find consent requests by %s: %w", party, err)
	}
	return collect(rows, "find consent requests by "+party)
}

func (s *PostgresStore) queryOne(ctx context.Context, op, query string, args ...any) (*models.Request, error) {
	req, err := scanRequest(s.execer().QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return req, nil
}

func collect(rows *sql.Rows, op string) ([]*models.Request, error) {
	defer rows.Close()
	out := make([]*models.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return out, nil
}

type requestRow interface {
	Scan(dest ...any) error
}

func scanRequest(row requestRow) (*models.Request, error) {
	var (
		req                       models.Request
		requesterType, targetType string
		requesterName             string
		targetName                sql.NullString
		status                    string
		respondedAt               sql.NullTime
	)
	if err := row.Scan(
		&req.ID,
		&requesterType, &req.Requester.Value, &requesterName,
		&targetType, &req.Target.Value, &targetName,
		&req.Scope, &status,
		&req.ExpiresAt, &req.CreatedAt, &req.UpdatedAt, &respondedAt,
	); err != nil {
		return nil, err
	}
	req.Requester.Type = models.ContactType(requesterType)
	req.Target.Type = models.ContactType(targetType)
	req.Status = models.Status(status)
	if requesterName != "" {
		req.Requester.Name = &requesterName
	}
	if targetName.Valid {
		name := targetName.String
		req.Target.Name = &name
	}
	if respondedAt.Valid {
		t := respondedAt.Time
		req.RespondedAt = &t
	}
	return &req, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
