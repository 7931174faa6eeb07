package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Rotatus/internal/domain/token"
	"github.com/NordCoder/Rotatus/internal/domain/user"
	"github.com/NordCoder/Rotatus/internal/repository/memory"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordedEvent struct {
	UserID int64
	Reason string
}

type eventsRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventsRecorder) PublishSessionsRevoked(_ context.Context, userID int64, reason string, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{UserID: userID, Reason: reason})
}

func (r *eventsRecorder) all() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent(nil), r.events...)
}

type fixture struct {
	uc     *Usecase
	tokens *memory.TokenStore
	users  *memory.UserStore
	events *eventsRecorder
	clock  *fakeClock
	userID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tokens := memory.NewTokenStore()
	users := memory.NewUserStore()
	events := &eventsRecorder{}
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	u := &user.User{Email: "alice@example.com"}
	require.NoError(t, users.Create(context.Background(), u))

	uc := NewUsecase(users, tokens, tokens, events, zap.NewNop(), Config{
		RefreshTTL: 7 * 24 * time.Hour,
		Now:        clock.Now,
	})
	return &fixture{uc: uc, tokens: tokens, users: users, events: events, clock: clock, userID: u.ID}
}

func TestCreateThenRotate_ReturnsOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	raw, expiresAt, err := f.uc.Create(ctx, f.userID)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	assert.Equal(t, f.clock.Now().Add(7*24*time.Hour), expiresAt)

	rot, err := f.uc.Rotate(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, f.userID, rot.User.ID)
	assert.Equal(t, "alice@example.com", rot.User.Email)
	assert.NotEmpty(t, rot.RawToken)
	assert.NotEqual(t, raw, rot.RawToken)
}

func TestCreate_UnknownUser(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.uc.Create(context.Background(), 404)
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestRotate_SecondUseIsReuse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	raw, _, err := f.uc.Create(ctx, f.userID)
	require.NoError(t, err)

	_, err = f.uc.Rotate(ctx, raw)
	require.NoError(t, err)

	// A consumed token must always report reuse, never "not found".
	_, err = f.uc.Rotate(ctx, raw)
	require.ErrorIs(t, err, token.ErrReuseDetected)

	evs := f.events.all()
	require.Len(t, evs, 1)
	assert.Equal(t, ReasonReuseDetected, evs[0].Reason)
	assert.Equal(t, f.userID, evs[0].UserID)
}

func TestRotate_ReuseCascadesToReplacement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t1, _, err := f.uc.Create(ctx, f.userID)
	require.NoError(t, err)

	rot, err := f.uc.Rotate(ctx, t1)
	require.NoError(t, err)
	t2 := rot.RawToken

	_, err = f.uc.Rotate(ctx, t1)
	require.ErrorIs(t, err, token.ErrReuseDetected)

	// The cascade removed every row for the user, including the freshly
	// minted replacement.
	_, err = f.uc.Rotate(ctx, t2)
	require.ErrorIs(t, err, token.ErrNotFound)
	assert.Equal(t, 0, f.tokens.Len())
}

func TestRotate_ExpiredUnused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	raw, _, err := f.uc.Create(ctx, f.userID)
	require.NoError(t, err)

	f.clock.Advance(7*24*time.Hour + time.Minute)

	_, err = f.uc.Rotate(ctx, raw)
	require.ErrorIs(t, err, token.ErrExpired)

	// Expiry is not a theft signal: the row stays and the verdict repeats.
	_, err = f.uc.Rotate(ctx, raw)
	require.ErrorIs(t, err, token.ErrExpired)
	assert.Empty(t, f.events.all())
}

func TestRotate_ConsumedAndExpired_ReportsReuse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	raw, _, err := f.uc.Create(ctx, f.userID)
	require.NoError(t, err)

	_, err = f.uc.Rotate(ctx, raw)
	require.NoError(t, err)

	f.clock.Advance(30 * 24 * time.Hour)

	// Reuse wins over expiry: the consumed-then-replayed token is the more
	// actionable signal even long past its TTL.
	_, err = f.uc.Rotate(ctx, raw)
	require.ErrorIs(t, err, token.ErrReuseDetected)
}

func TestRotate_UnknownAndEmptyToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Rotate(ctx, "never-issued")
	require.ErrorIs(t, err, token.ErrNotFound)

	_, err = f.uc.Rotate(ctx, "")
	require.ErrorIs(t, err, token.ErrNotFound)
}

func TestRawTokenNeverStored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	raw, _, err := f.uc.Create(ctx, f.userID)
	require.NoError(t, err)

	// Lookup succeeds only through the digest; the raw value is not a key.
	rec, err := f.tokens.FindByHash(ctx, HashToken(raw))
	require.NoError(t, err)
	assert.NotEqual(t, raw, rec.TokenHash)

	_, err = f.tokens.FindByHash(ctx, raw)
	require.ErrorIs(t, err, token.ErrNotFound)
}

func TestRevokeByRawToken_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.uc.RevokeByRawToken(ctx, "never-issued"))
	require.NoError(t, f.uc.RevokeByRawToken(ctx, ""))

	raw, _, err := f.uc.Create(ctx, f.userID)
	require.NoError(t, err)

	require.NoError(t, f.uc.RevokeByRawToken(ctx, raw))
	assert.Equal(t, 0, f.tokens.Len())

	// Second logout with the now-gone token stays silent.
	require.NoError(t, f.uc.RevokeByRawToken(ctx, raw))

	_, err = f.uc.Rotate(ctx, raw)
	require.ErrorIs(t, err, token.ErrNotFound)
}

func TestRevokeAllForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var raws []string
	for i := 0; i < 3; i++ {
		raw, _, err := f.uc.Create(ctx, f.userID)
		require.NoError(t, err)
		raws = append(raws, raw)
	}

	require.NoError(t, f.uc.RevokeAllForUser(ctx, f.userID))
	require.NoError(t, f.uc.RevokeAllForUser(ctx, f.userID)) // idempotent

	for _, raw := range raws {
		_, err := f.uc.Rotate(ctx, raw)
		require.ErrorIs(t, err, token.ErrNotFound)
	}

	evs := f.events.all()
	require.Len(t, evs, 2)
	assert.Equal(t, ReasonAdminRevoke, evs[0].Reason)
}

func TestConcurrentRotation_SingleSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	raw, _, err := f.uc.Create(ctx, f.userID)
	require.NoError(t, err)

	const workers = 16
	var (
		wg        sync.WaitGroup
		successes int32
		mu        sync.Mutex
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.uc.Rotate(ctx, raw); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes)
}

func TestHashToken_DeterministicAndOpaque(t *testing.T) {
	raw, err := GenerateRawToken(rawTokenBytes)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	other, err := GenerateRawToken(rawTokenBytes)
	require.NoError(t, err)
	assert.NotEqual(t, raw, other)

	h1 := HashToken(raw)
	h2 := HashToken(raw)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, raw, h1)
	assert.Len(t, h1, 43) // sha256, base64 raw url
}
