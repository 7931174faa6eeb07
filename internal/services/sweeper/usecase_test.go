package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Rotatus/internal/domain/token"
	"github.com/NordCoder/Rotatus/internal/repository/memory"
)

func TestTick_PurgesOnlyPastGrace(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTokenStore()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	uc := NewUC(store)
	uc.Now = func() time.Time { return now }

	mk := func(expiresAt time.Time) {
		require.NoError(t, store.Create(ctx, &token.RefreshToken{
			UserID:    1,
			TokenHash: expiresAt.String(),
			ExpiresAt: expiresAt,
			CreatedAt: expiresAt.Add(-time.Hour),
		}))
	}
	mk(now.Add(-100 * time.Hour)) // long gone
	mk(now.Add(-1 * time.Hour))   // expired, still inside grace
	mk(now.Add(24 * time.Hour))   // live

	deleted, err := uc.Tick(ctx, 48*time.Hour, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 2, store.Len())
}

func TestTick_HonorsBatchLimit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTokenStore()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	uc := NewUC(store)
	uc.Now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Create(ctx, &token.RefreshToken{
			UserID:    1,
			TokenHash: time.Duration(i).String(),
			ExpiresAt: now.Add(-200 * time.Hour),
		}))
	}

	deleted, err := uc.Tick(ctx, time.Hour, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Equal(t, 3, store.Len())
}
