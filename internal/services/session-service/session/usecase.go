package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/NordCoder/Rotatus/internal/domain/token"
	"github.com/NordCoder/Rotatus/internal/domain/user"
)

// Revocation reasons carried on security events.
const (
	ReasonReuseDetected = "reuse_detected"
	ReasonAdminRevoke   = "admin_revoke"
)

// SecurityEvents notifies downstream consumers that a user's sessions were
// bulk-revoked. Implementations must not fail the calling operation.
type SecurityEvents interface {
	PublishSessionsRevoked(ctx context.Context, userID int64, reason string, at time.Time)
}

type Config struct {
	RefreshTTL time.Duration
	Now        func() time.Time
}

// Usecase owns the refresh-token lifecycle: issuance, single-use rotation,
// reuse detection and cascading revocation. All token mutation goes through
// here; repos stay rule-free.
type Usecase struct {
	users  user.Repo
	tokens token.Store
	tx     token.Transactor
	events SecurityEvents
	log    *zap.Logger
	cfg    Config
}

func NewUsecase(users user.Repo, tokens token.Store, tx token.Transactor, events SecurityEvents, log *zap.Logger, cfg Config) *Usecase {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{users: users, tokens: tokens, tx: tx, events: events, log: log, cfg: cfg}
}

// Rotation is what a successful rotate hands back to the boundary layer.
type Rotation struct {
	User      *user.User
	RawToken  string
	ExpiresAt time.Time
}

// Create mints a refresh token for the user at primary authentication time.
// The returned raw value is the only copy that will ever exist.
func (u *Usecase) Create(ctx context.Context, userID int64) (string, time.Time, error) {
	if _, err := u.users.GetByID(ctx, userID); err != nil {
		return "", time.Time{}, err
	}
	return u.issue(ctx, userID, u.cfg.Now())
}

// Rotate consumes raw and mints its replacement atomically. A re-presented
// consumed token revokes every session of its owner and fails with
// ErrReuseDetected; that revocation commits even though the call fails.
//
// The reuse check deliberately precedes the expiry check: an expired token
// that was already consumed still reports as reuse, the more actionable
// signal.
func (u *Usecase) Rotate(ctx context.Context, raw string) (*Rotation, error) {
	if raw == "" {
		return nil, token.ErrNotFound
	}

	tr := otel.Tracer("session.uc")
	ctx, span := tr.Start(ctx, "session.rotate")
	defer span.End()

	hash := HashToken(raw)

	var (
		out          *Rotation
		reusedUserID int64
		reuse        bool
	)
	err := u.tx.WithTx(ctx, func(ctx context.Context) error {
		rec, err := u.tokens.FindByHashForUpdate(ctx, hash)
		if err != nil {
			return err
		}
		now := u.cfg.Now()

		if rec.Revoked || rec.LastUsedAt != nil {
			// The cascade must outlive the failed rotation, so it is
			// reported through the reuse flag instead of an error return,
			// which would roll the delete back.
			if err := u.tokens.DeleteAllByUser(ctx, rec.UserID); err != nil {
				return fmt.Errorf("revoke on reuse: %w", err)
			}
			reuse, reusedUserID = true, rec.UserID
			return nil
		}
		if rec.ExpiresAt.Before(now) {
			return token.ErrExpired
		}

		if err := u.tokens.MarkUsed(ctx, rec.ID, now); err != nil {
			return fmt.Errorf("consume refresh: %w", err)
		}
		usr, err := u.users.GetByID(ctx, rec.UserID)
		if err != nil {
			return fmt.Errorf("load token owner: %w", err)
		}
		rawNew, exp, err := u.issue(ctx, rec.UserID, now)
		if err != nil {
			return err
		}
		out = &Rotation{User: usr, RawToken: rawNew, ExpiresAt: exp}
		return nil
	})
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			mExpired.Inc()
		}
		span.RecordError(err)
		return nil, err
	}
	if reuse {
		mReuseDetected.Inc()
		span.SetAttributes(attribute.Bool("session.reuse_detected", true))
		u.log.Warn("refresh token reuse detected, all user sessions revoked",
			zap.Int64("user_id", reusedUserID))
		if u.events != nil {
			u.events.PublishSessionsRevoked(ctx, reusedUserID, ReasonReuseDetected, u.cfg.Now())
		}
		return nil, token.ErrReuseDetected
	}

	mRotated.Inc()
	u.log.Info("refresh token rotated", zap.Int64("user_id", out.User.ID))
	return out, nil
}

// RevokeAllForUser drops every session of the user. Idempotent; zero rows is
// not an error.
func (u *Usecase) RevokeAllForUser(ctx context.Context, userID int64) error {
	if err := u.tokens.DeleteAllByUser(ctx, userID); err != nil {
		return err
	}
	u.log.Info("all user sessions revoked", zap.Int64("user_id", userID))
	if u.events != nil {
		u.events.PublishSessionsRevoked(ctx, userID, ReasonAdminRevoke, u.cfg.Now())
	}
	return nil
}

// RevokeByRawToken is logout: an unknown or stale token is a silent no-op,
// a known one takes all of its owner's sessions with it. Storage failures
// still propagate.
func (u *Usecase) RevokeByRawToken(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	rec, err := u.tokens.FindByHash(ctx, HashToken(raw))
	if errors.Is(err, token.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := u.tokens.DeleteAllByUser(ctx, rec.UserID); err != nil {
		return err
	}
	u.log.Info("sessions revoked on logout", zap.Int64("user_id", rec.UserID))
	return nil
}

func (u *Usecase) issue(ctx context.Context, userID int64, now time.Time) (string, time.Time, error) {
	raw, err := GenerateRawToken(rawTokenBytes)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate refresh: %w", err)
	}
	rec := &token.RefreshToken{
		UserID:    userID,
		TokenHash: HashToken(raw),
		ExpiresAt: now.Add(u.cfg.RefreshTTL),
		CreatedAt: now,
	}
	if err := u.tokens.Create(ctx, rec); err != nil {
		return "", time.Time{}, fmt.Errorf("save refresh: %w", err)
	}
	mIssued.Inc()
	u.log.Debug("refresh token issued",
		zap.Int64("user_id", userID),
		zap.Int64("token_id", rec.ID),
		zap.Time("expires_at", rec.ExpiresAt),
	)
	return raw, rec.ExpiresAt, nil
}
