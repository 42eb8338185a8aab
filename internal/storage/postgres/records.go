// Package postgres implements the record and user stores on Postgres via sqlx.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/supportbot/internal/records"
)

// Records is a records.Store backed by the requests table.
type Records struct {
	db *sqlx.DB
}

// NewRecords wraps an open connection pool.
func NewRecords(db *sqlx.DB) *Records {
	return &Records{db: db}
}

const selectRecords = `
SELECT id, owner_id, text, status, answer, created_at
FROM requests
WHERE owner_id = $1
ORDER BY created_at DESC, id DESC`

// FetchForOwner returns the owner's records, newest first.
func (s *Records) FetchForOwner(ctx context.Context, ownerID int64) ([]records.Record, error) {
	var out []records.Record
	if err := s.db.SelectContext(ctx, &out, selectRecords, ownerID); err != nil {
		return nil, fmt.Errorf("postgres: fetch records for %d: %w", ownerID, err)
	}
	return out, nil
}

// Create inserts r.
func (s *Records) Create(ctx context.Context, r records.Record) error {
	_, err := s.db.NamedExecContext(ctx, `
INSERT INTO requests (id, owner_id, text, status, answer, created_at)
VALUES (:id, :owner_id, :text, :status, :answer, :created_at)`, r)
	if err != nil {
		return fmt.Errorf("postgres: create record: %w", err)
	}
	return nil
}

// SetStatus changes the status of the referenced record.
func (s *Records) SetStatus(ctx context.Context, ref records.Ref, status records.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE requests SET status = $1 WHERE id = $2 AND owner_id = $3`,
		status, ref.ID, ref.OwnerID)
	if err != nil {
		return fmt.Errorf("postgres: set status %s: %w", ref, err)
	}
	return expectOne(res, records.ErrNotFound)
}

// SetAnswer stores the answer and marks the record answered.
func (s *Records) SetAnswer(ctx context.Context, ref records.Ref, answer string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE requests SET answer = $1, status = $2 WHERE id = $3 AND owner_id = $4`,
		answer, records.StatusAnswered, ref.ID, ref.OwnerID)
	if err != nil {
		return fmt.Errorf("postgres: set answer %s: %w", ref, err)
	}
	return expectOne(res, records.ErrNotFound)
}

// Delete removes the referenced record.
func (s *Records) Delete(ctx context.Context, ref records.Ref) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM requests WHERE id = $1 AND owner_id = $2`,
		ref.ID, ref.OwnerID)
	if err != nil {
		return fmt.Errorf("postgres: delete %s: %w", ref, err)
	}
	return expectOne(res, records.ErrNotFound)
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
