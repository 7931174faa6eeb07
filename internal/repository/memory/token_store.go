// Package memory holds in-process adapters used by unit tests and local
// development. They honor the same ports as the postgres repos.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/NordCoder/Rotatus/internal/domain/token"
)

var errHashConflict = errors.New("token hash conflict")

var (
	_ token.Store      = (*TokenStore)(nil)
	_ token.Transactor = (*TokenStore)(nil)
)

// TokenStore keeps rows keyed by token hash. WithTx serializes whole
// transactions under one mutex, which gives the same "one rotation at a time
// per store" guarantee the row lock gives in postgres. Writes are applied
// immediately; there is no rollback, which is fine because every failing
// path in the service either performs no writes or must keep them.
type TokenStore struct {
	mu     sync.Mutex
	byHash map[string]*token.RefreshToken
	nextID int64
}

func NewTokenStore() *TokenStore {
	return &TokenStore{byHash: make(map[string]*token.RefreshToken)}
}

type txMarker struct{}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txMarker{}).(bool)
	return v
}

// lock acquires the store mutex unless the ambient transaction already holds it.
func (s *TokenStore) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *TokenStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(context.WithValue(ctx, txMarker{}, true))
}

func (s *TokenStore) Create(ctx context.Context, t *token.RefreshToken) error {
	defer s.lock(ctx)()

	if _, ok := s.byHash[t.TokenHash]; ok {
		return errHashConflict
	}
	s.nextID++
	t.ID = s.nextID
	cp := *t
	s.byHash[t.TokenHash] = &cp
	return nil
}

func (s *TokenStore) FindByHash(ctx context.Context, tokenHash string) (*token.RefreshToken, error) {
	defer s.lock(ctx)()
	return s.get(tokenHash)
}

func (s *TokenStore) FindByHashForUpdate(ctx context.Context, tokenHash string) (*token.RefreshToken, error) {
	defer s.lock(ctx)()
	return s.get(tokenHash)
}

func (s *TokenStore) get(tokenHash string) (*token.RefreshToken, error) {
	t, ok := s.byHash[tokenHash]
	if !ok {
		return nil, token.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *TokenStore) MarkUsed(ctx context.Context, id int64, usedAt time.Time) error {
	defer s.lock(ctx)()

	for _, t := range s.byHash {
		if t.ID == id {
			t.Revoked = true
			ts := usedAt
			t.LastUsedAt = &ts
			return nil
		}
	}
	return token.ErrNotFound
}

func (s *TokenStore) DeleteAllByUser(ctx context.Context, userID int64) error {
	defer s.lock(ctx)()

	for h, t := range s.byHash {
		if t.UserID == userID {
			delete(s.byHash, h)
		}
	}
	return nil
}

func (s *TokenStore) DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	defer s.lock(ctx)()

	var n int64
	for h, t := range s.byHash {
		if limit > 0 && n >= int64(limit) {
			break
		}
		if t.ExpiresAt.Before(cutoff) {
			delete(s.byHash, h)
			n++
		}
	}
	return n, nil
}

// Len reports how many rows the store holds; test helper.
func (s *TokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byHash)
}
