package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/Rotatus/internal/domain/token"
)

var _ token.Store = (*RefreshTokenRepo)(nil)

type RefreshTokenRepo struct{ db *DB }

func NewRefreshTokenRepo(db *DB) *RefreshTokenRepo { return &RefreshTokenRepo{db: db} }

const (
	qRTCreate = `
INSERT INTO refresh_tokens (user_id, token_hash, expires_at, revoked, created_at)
VALUES ($1, $2, $3, FALSE, $4)
RETURNING id;`

	qRTFind = `
SELECT id, user_id, token_hash, expires_at, revoked, last_used_at, created_at
FROM refresh_tokens
WHERE token_hash = $1;`

	qRTFindForUpdate = `
SELECT id, user_id, token_hash, expires_at, revoked, last_used_at, created_at
FROM refresh_tokens
WHERE token_hash = $1
FOR UPDATE;`

	qRTMarkUsed = `
UPDATE refresh_tokens
SET revoked = TRUE, last_used_at = $2
WHERE id = $1;`

	qRTDeleteByUser = `
DELETE FROM refresh_tokens WHERE user_id = $1;`

	qRTDeleteExpired = `
DELETE FROM refresh_tokens
WHERE id IN (
    SELECT id FROM refresh_tokens
    WHERE expires_at < $1
    ORDER BY expires_at
    LIMIT $2
);`
)

func (r *RefreshTokenRepo) Create(ctx context.Context, t *token.RefreshToken) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	if err := eq.QueryRow(ctx, qRTCreate, t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt).Scan(&t.ID); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("refresh insert: %w", ErrConflict)
		}
		return fmt.Errorf("refresh insert: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepo) FindByHash(ctx context.Context, tokenHash string) (*token.RefreshToken, error) {
	return r.find(ctx, qRTFind, tokenHash)
}

func (r *RefreshTokenRepo) FindByHashForUpdate(ctx context.Context, tokenHash string) (*token.RefreshToken, error) {
	return r.find(ctx, qRTFindForUpdate, tokenHash)
}

func (r *RefreshTokenRepo) find(ctx context.Context, query, tokenHash string) (*token.RefreshToken, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var (
		t        token.RefreshToken
		lastUsed *time.Time
	)
	eq := r.db.execQueryer(ctx)
	if err := eq.QueryRow(ctx, query, tokenHash).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &lastUsed, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, token.ErrNotFound
		}
		return nil, fmt.Errorf("refresh find: %w", err)
	}
	t.LastUsedAt = lastUsed
	return &t, nil
}

func (r *RefreshTokenRepo) MarkUsed(ctx context.Context, id int64, usedAt time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	tag, err := eq.Exec(ctx, qRTMarkUsed, id, usedAt)
	if err != nil {
		return fmt.Errorf("refresh mark used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return token.ErrNotFound
	}
	return nil
}

func (r *RefreshTokenRepo) DeleteAllByUser(ctx context.Context, userID int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	if _, err := eq.Exec(ctx, qRTDeleteByUser, userID); err != nil {
		return fmt.Errorf("refresh delete by user: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	tag, err := eq.Exec(ctx, qRTDeleteExpired, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("refresh delete expired: %w", err)
	}
	return tag.RowsAffected(), nil
}
