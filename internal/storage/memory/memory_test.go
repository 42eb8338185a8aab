package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/supportbot/internal/records"
	"github.com/m3rciful/supportbot/internal/users"
)

func TestRecordsNewestFirstAndIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewRecords()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	older, err := records.New(5, "older", base)
	require.NoError(t, err)
	newer, err := records.New(5, "newer", base.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, older))
	require.NoError(t, s.Create(ctx, newer))
	require.NoError(t, s.Create(ctx, records.Record{ID: uuid.New(), OwnerID: 6, Text: "other"}))

	got, err := s.FetchForOwner(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "newer", got[0].Text)

	require.NoError(t, s.SetAnswer(ctx, older.Ref(), "42"))
	got[1].Text = "mutated snapshot"

	again, err := s.FetchForOwner(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "older", again[1].Text)
	assert.Equal(t, records.StatusAnswered, again[1].Status)
	assert.Equal(t, "42", *again[1].Answer)

	err = s.SetStatus(ctx, records.Ref{OwnerID: 6, ID: older.ID}, records.StatusAccepted)
	assert.ErrorIs(t, err, records.ErrNotFound)

	require.NoError(t, s.Delete(ctx, newer.Ref()))
	again, err = s.FetchForOwner(ctx, 5)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, older.ID, again[0].ID)
	assert.ErrorIs(t, s.Delete(ctx, newer.Ref()), records.ErrNotFound)
}

func TestUsersRegisterOnce(t *testing.T) {
	ctx := context.Background()
	s := NewUsers()

	created, err := s.Register(ctx, users.User{TelegramID: 1, Username: "ann"})
	require.NoError(t, err)
	assert.True(t, created)
	created, err = s.Register(ctx, users.User{TelegramID: 1, Username: "ann", Role: users.RoleAdmin})
	require.NoError(t, err)
	assert.False(t, created)

	role, err := s.Role(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, users.RoleDefault, role)

	_, err = s.Role(ctx, 2)
	assert.ErrorIs(t, err, users.ErrNotFound)
	assert.ErrorIs(t, s.SetRole(ctx, 2, users.RoleAdmin), users.ErrNotFound)

	require.NoError(t, s.SetRole(ctx, 1, users.RoleAdmin))
	ok, err := users.IsAdmin(ctx, s, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = users.IsAdmin(ctx, s, 3)
	require.NoError(t, err)
	assert.False(t, ok)
}
