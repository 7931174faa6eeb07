package token

import (
	"context"
	"time"
)

// Store is the persistence port. Implementations return ErrNotFound for a
// missing hash and carry no business rules.
type Store interface {
	Create(ctx context.Context, t *RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	// FindByHashForUpdate locks the row for the duration of the ambient
	// transaction so concurrent rotations of one token serialize.
	FindByHashForUpdate(ctx context.Context, tokenHash string) (*RefreshToken, error)
	// MarkUsed flips the row to its terminal consumed state.
	MarkUsed(ctx context.Context, id int64, usedAt time.Time) error
	DeleteAllByUser(ctx context.Context, userID int64) error
	// DeleteExpired removes rows whose expiry is before cutoff, up to limit,
	// and reports how many went away.
	DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// Transactor runs fn inside a single atomic unit. A returned error rolls the
// unit back.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
