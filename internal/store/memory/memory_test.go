package memory

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/tokenmigrate/internal/models"
	"github.com/dmitrijs2005/tokenmigrate/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers_InsertGetUpdate(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.Users().Insert(ctx, &models.User{PasswordResetToken: models.StringPtr("r1")})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = s.Users().Insert(ctx, &models.User{ID: id})
	require.Error(t, err, "duplicate id must be rejected")

	err = s.Users().Update(ctx, id, models.Update{
		Set:   map[string]string{"passwordResetTokenHash": "h"},
		Unset: []string{"passwordResetToken"},
	})
	require.NoError(t, err)

	u, err := s.Users().Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, u.PasswordResetToken)
	require.NotNil(t, u.PasswordResetTokenHash)
	assert.Equal(t, "h", *u.PasswordResetTokenHash)

	// returned copies must not write through
	*u.PasswordResetTokenHash = "mutated"
	again, err := s.Users().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "h", *again.PasswordResetTokenHash)
}

func TestUsers_UpdateErrors(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.Users().Update(ctx, "ghost", models.Update{Unset: []string{"passwordResetToken"}})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Users().Get(ctx, "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)

	id, err := s.Users().Insert(ctx, &models.User{})
	require.NoError(t, err)
	err = s.Users().Update(ctx, id, models.Update{Unset: []string{"password"}})
	assert.Error(t, err)
}

func TestUsers_FindKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, id := range []string{"c", "a", "b"} {
		_, err := s.Users().Insert(ctx, &models.User{ID: id, EmailVerificationToken: models.StringPtr(id)})
		require.NoError(t, err)
	}
	_, err := s.Users().Insert(ctx, &models.User{ID: "none"})
	require.NoError(t, err)

	cur, err := s.Users().Find(ctx, store.Filter{AnyPlaintext: models.TokenFields})
	require.NoError(t, err)
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		u, err := cur.Value()
		require.NoError(t, err)
		ids = append(ids, u.ID)
	}
	require.NoError(t, cur.Err())
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestBackups_InsertFind(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	b := &models.Backup{
		OriginalUserID: "u1",
		Original:       models.Snapshot{EmailVerificationToken: models.StringPtr("abc123")},
		MigratedAt:     now,
	}
	id, err := s.Backups().Insert(ctx, b)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	*b.Original.EmailVerificationToken = "changed"

	cur, err := s.Backups().Find(ctx)
	require.NoError(t, err)

	require.True(t, cur.Next(ctx))
	got, err := cur.Value()
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "u1", got.OriginalUserID)
	assert.Equal(t, "abc123", *got.Original.EmailVerificationToken)
	assert.Equal(t, now, got.MigratedAt)
	assert.False(t, cur.Next(ctx))
	assert.Equal(t, 1, s.backups.Len())
}
