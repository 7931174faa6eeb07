package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Rotatus/internal/domain/token"
)

func TestTokenStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rec := &token.RefreshToken{
		UserID:    7,
		TokenHash: "h1",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	require.NoError(t, s.Create(ctx, rec))
	require.NotZero(t, rec.ID)

	got, err := s.FindByHash(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.True(t, got.Active(now))

	// Returned rows are copies; mutating them must not touch the store.
	got.Revoked = true
	again, err := s.FindByHash(ctx, "h1")
	require.NoError(t, err)
	assert.False(t, again.Revoked)

	_, err = s.FindByHash(ctx, "missing")
	require.ErrorIs(t, err, token.ErrNotFound)
}

func TestTokenStore_MarkUsedIsTerminal(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore()

	now := time.Now().UTC()
	rec := &token.RefreshToken{UserID: 1, TokenHash: "h", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, s.Create(ctx, rec))

	require.NoError(t, s.MarkUsed(ctx, rec.ID, now))

	got, err := s.FindByHash(ctx, "h")
	require.NoError(t, err)
	assert.True(t, got.Revoked)
	require.NotNil(t, got.LastUsedAt)
	assert.Equal(t, now, *got.LastUsedAt)
	assert.False(t, got.Active(now))

	require.ErrorIs(t, s.MarkUsed(ctx, 999, now), token.ErrNotFound)
}

func TestTokenStore_DeleteAllByUser(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore()

	exp := time.Now().Add(time.Hour)
	require.NoError(t, s.Create(ctx, &token.RefreshToken{UserID: 1, TokenHash: "a", ExpiresAt: exp}))
	require.NoError(t, s.Create(ctx, &token.RefreshToken{UserID: 1, TokenHash: "b", ExpiresAt: exp}))
	require.NoError(t, s.Create(ctx, &token.RefreshToken{UserID: 2, TokenHash: "c", ExpiresAt: exp}))

	require.NoError(t, s.DeleteAllByUser(ctx, 1))
	require.NoError(t, s.DeleteAllByUser(ctx, 1)) // zero rows is fine

	assert.Equal(t, 1, s.Len())
	_, err := s.FindByHash(ctx, "c")
	require.NoError(t, err)
}

func TestTokenStore_WithTxSerializes(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore()

	exp := time.Now().Add(time.Hour)
	require.NoError(t, s.Create(ctx, &token.RefreshToken{UserID: 1, TokenHash: "a", ExpiresAt: exp}))

	// Store calls inside the transaction reuse the held lock.
	err := s.WithTx(ctx, func(ctx context.Context) error {
		rec, err := s.FindByHashForUpdate(ctx, "a")
		if err != nil {
			return err
		}
		return s.MarkUsed(ctx, rec.ID, time.Now())
	})
	require.NoError(t, err)

	got, err := s.FindByHash(ctx, "a")
	require.NoError(t, err)
	assert.True(t, got.Revoked)
}
