package token

import (
	"errors"
	"time"
)

// Closed set of business failures surfaced by rotation. Storage failures are
// wrapped and propagated separately.
var (
	ErrNotFound      = errors.New("refresh token not found")
	ErrExpired       = errors.New("refresh token expired")
	ErrReuseDetected = errors.New("refresh token reuse detected")
)

// RefreshToken is the persisted record. The raw secret never appears here;
// TokenHash is the only stored form.
type RefreshToken struct {
	ID         int64
	UserID     int64
	TokenHash  string
	ExpiresAt  time.Time
	Revoked    bool
	LastUsedAt *time.Time // set exactly once, at consumption
	CreatedAt  time.Time
}

// Active reports whether the row can still authenticate at the given instant.
// Revoked or once-used rows are terminal regardless of expiry.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && t.LastUsedAt == nil && t.ExpiresAt.After(now)
}
