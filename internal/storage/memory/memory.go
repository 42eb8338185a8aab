// Package memory keeps records and users in process memory. It backs the
// "memory" storage driver and the tests of higher layers.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m3rciful/supportbot/internal/records"
	"github.com/m3rciful/supportbot/internal/users"
)

// Records is an in-memory records.Store.
type Records struct {
	mu      sync.RWMutex
	byOwner map[int64][]records.Record
}

// NewRecords returns an empty store.
func NewRecords() *Records {
	return &Records{byOwner: make(map[int64][]records.Record)}
}

// FetchForOwner returns copies of the owner's records, newest first.
func (s *Records) FetchForOwner(_ context.Context, ownerID int64) ([]records.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.byOwner[ownerID]
	out := make([]records.Record, len(src))
	for i, r := range src {
		out[i] = clone(r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Create stores r.
func (s *Records) Create(_ context.Context, r records.Record) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byOwner[r.OwnerID] = append(s.byOwner[r.OwnerID], clone(r))
	return nil
}

// SetStatus changes the status of the referenced record.
func (s *Records) SetStatus(_ context.Context, ref records.Ref, status records.Status) error {
	return s.update(ref, func(r *records.Record) { r.Status = status })
}

// SetAnswer stores the answer and marks the record answered.
func (s *Records) SetAnswer(_ context.Context, ref records.Ref, answer string) error {
	return s.update(ref, func(r *records.Record) {
		r.Answer = &answer
		r.Status = records.StatusAnswered
	})
}

// Delete removes the referenced record.
func (s *Records) Delete(_ context.Context, ref records.Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.byOwner[ref.OwnerID]
	for i := range list {
		if list[i].ID == ref.ID {
			s.byOwner[ref.OwnerID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return records.ErrNotFound
}

func (s *Records) update(ref records.Ref, fn func(*records.Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.byOwner[ref.OwnerID]
	for i := range list {
		if list[i].ID == ref.ID {
			fn(&list[i])
			return nil
		}
	}
	return records.ErrNotFound
}

func clone(r records.Record) records.Record {
	if r.Answer != nil {
		a := *r.Answer
		r.Answer = &a
	}
	return r
}

// Users is an in-memory users.Store.
type Users struct {
	mu   sync.RWMutex
	byID map[int64]users.User
}

// NewUsers returns an empty store.
func NewUsers() *Users {
	return &Users{byID: make(map[int64]users.User)}
}

// Register inserts u when absent.
func (s *Users) Register(_ context.Context, u users.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[u.TelegramID]; ok {
		return false, nil
	}
	if u.Role == "" {
		u.Role = users.RoleDefault
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.byID[u.TelegramID] = u
	return true, nil
}

// Role returns the stored role.
func (s *Users) Role(_ context.Context, telegramID int64) (users.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[telegramID]
	if !ok {
		return "", users.ErrNotFound
	}
	return u.Role, nil
}

// SetRole updates the role of an existing user.
func (s *Users) SetRole(_ context.Context, telegramID int64, role users.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[telegramID]
	if !ok {
		return users.ErrNotFound
	}
	u.Role = role
	s.byID[telegramID] = u
	return nil
}
