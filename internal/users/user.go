// Package users defines bot users and their roles.
package users

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a user has never been registered.
var ErrNotFound = errors.New("users: not found")

// Role controls access to privileged commands.
type Role string

const (
	RoleDefault    Role = "default"
	RoleAdmin      Role = "admin"
	RoleWithAccess Role = "with_access"
)

// User is a registered Telegram account.
type User struct {
	TelegramID int64     `db:"telegram_id"`
	Username   string    `db:"username"`
	Role       Role      `db:"role"`
	CreatedAt  time.Time `db:"created_at"`
}

// Store persists users.
type Store interface {
	// Register inserts u unless a user with the same id exists and reports whether it was created.
	Register(ctx context.Context, u User) (bool, error)
	// Role returns the stored role or ErrNotFound.
	Role(ctx context.Context, telegramID int64) (Role, error)
	// SetRole updates the role of an existing user or returns ErrNotFound.
	SetRole(ctx context.Context, telegramID int64, role Role) error
}

// IsAdmin reports whether telegramID holds RoleAdmin. Unknown users are not admins.
func IsAdmin(ctx context.Context, s Store, telegramID int64) (bool, error) {
	role, err := s.Role(ctx, telegramID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return role == RoleAdmin, nil
}
