package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/supportbot/internal/users"
)

// Users is a users.Store backed by the users table.
type Users struct {
	db *sqlx.DB
}

// NewUsers wraps an open connection pool.
func NewUsers(db *sqlx.DB) *Users {
	return &Users{db: db}
}

// Register inserts u unless the telegram id already exists.
func (s *Users) Register(ctx context.Context, u users.User) (bool, error) {
	if u.Role == "" {
		u.Role = users.RoleDefault
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO users (telegram_id, username, role)
VALUES ($1, $2, $3)
ON CONFLICT (telegram_id) DO NOTHING`,
		u.TelegramID, u.Username, u.Role)
	if err != nil {
		return false, fmt.Errorf("postgres: register user %d: %w", u.TelegramID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("postgres: rows affected: %w", err)
	}
	return n == 1, nil
}

// Role returns the stored role or users.ErrNotFound.
func (s *Users) Role(ctx context.Context, telegramID int64) (users.Role, error) {
	var role users.Role
	err := s.db.GetContext(ctx, &role, `SELECT role FROM users WHERE telegram_id = $1`, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", users.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("postgres: role of %d: %w", telegramID, err)
	}
	return role, nil
}

// SetRole updates the role of an existing user.
func (s *Users) SetRole(ctx context.Context, telegramID int64, role users.Role) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET role = $1 WHERE telegram_id = $2`, role, telegramID)
	if err != nil {
		return fmt.Errorf("postgres: set role of %d: %w", telegramID, err)
	}
	return expectOne(res, users.ErrNotFound)
}
