// Package records defines user requests and the storage contract for them.
package records

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a record does not exist for the given owner.
var ErrNotFound = errors.New("records: not found")

// Status is the lifecycle state of a record.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusAnswered Status = "answered"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusAnswered:
		return true
	}
	return false
}

// Record is a user-submitted request. Values are copied into conversation
// snapshots and never mutated there.
type Record struct {
	ID        uuid.UUID `db:"id"`
	OwnerID   int64     `db:"owner_id"`
	Text      string    `db:"text"`
	Status    Status    `db:"status"`
	Answer    *string   `db:"answer"`
	CreatedAt time.Time `db:"created_at"`
}

// New builds a pending record with a time-ordered id.
func New(ownerID int64, text string, now time.Time) (Record, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Record{}, fmt.Errorf("records: new id: %w", err)
	}
	return Record{
		ID:        id,
		OwnerID:   ownerID,
		Text:      text,
		Status:    StatusPending,
		CreatedAt: now.UTC(),
	}, nil
}

// Ref returns the composite key of the record.
func (r Record) Ref() Ref {
	return Ref{OwnerID: r.OwnerID, ID: r.ID}
}

// Ref addresses a record by owner and id. Its text form is "<owner>:<id>".
type Ref struct {
	OwnerID int64
	ID      uuid.UUID
}

func (r Ref) String() string {
	return strconv.FormatInt(r.OwnerID, 10) + ":" + r.ID.String()
}

// ParseRef parses the form produced by Ref.String.
func ParseRef(s string) (Ref, error) {
	owner, id, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Ref{}, fmt.Errorf("records: malformed ref %q", s)
	}
	ownerID, err := strconv.ParseInt(owner, 10, 64)
	if err != nil {
		return Ref{}, fmt.Errorf("records: malformed owner in %q: %w", s, err)
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return Ref{}, fmt.Errorf("records: malformed id in %q: %w", s, err)
	}
	return Ref{OwnerID: ownerID, ID: uid}, nil
}

// Filter narrows a record list by status. The zero value keeps everything.
type Filter string

const (
	FilterAll      Filter = ""
	FilterAnswered Filter = Filter(StatusAnswered)
	FilterAccepted Filter = Filter(StatusAccepted)
)

// Apply returns the records that pass the filter, preserving order.
func (f Filter) Apply(items []Record) []Record {
	if f == FilterAll {
		return items
	}
	out := make([]Record, 0, len(items))
	for _, r := range items {
		if Filter(r.Status) == f {
			out = append(out, r)
		}
	}
	return out
}

// Fetcher is the read side used while browsing.
type Fetcher interface {
	// FetchForOwner returns all records of ownerID, newest first.
	FetchForOwner(ctx context.Context, ownerID int64) ([]Record, error)
}

// Store persists records.
type Store interface {
	Fetcher
	Create(ctx context.Context, r Record) error
	SetStatus(ctx context.Context, ref Ref, status Status) error
	// SetAnswer stores the answer and moves the record to StatusAnswered.
	SetAnswer(ctx context.Context, ref Ref, answer string) error
	// Delete removes the record. A missing record yields ErrNotFound.
	Delete(ctx context.Context, ref Ref) error
}
