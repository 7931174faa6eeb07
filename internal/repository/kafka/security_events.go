package kafka

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NordCoder/Rotatus/internal/obs/retry"
)

// SecurityEvent is the wire payload for session-revocation notifications.
// Reason values: "reuse_detected", "admin_revoke".
type SecurityEvent struct {
	EventID string    `json:"event_id"`
	UserID  int64     `json:"user_id"`
	Reason  string    `json:"reason"`
	At      time.Time `json:"at"`
}

type SecurityEventsKafka struct {
	p      *Producer
	log    *zap.Logger
	policy retry.Policy
}

func NewSecurityEventsKafka(p *Producer, log *zap.Logger) *SecurityEventsKafka {
	return &SecurityEventsKafka{
		p:      p,
		log:    log,
		policy: retry.DefaultKafkaPolicy(log),
	}
}

// PublishSessionsRevoked is best-effort: the revocation already committed, so
// delivery failures are logged and dropped, never surfaced to the caller.
func (e *SecurityEventsKafka) PublishSessionsRevoked(ctx context.Context, userID int64, reason string, at time.Time) {
	ev := SecurityEvent{
		EventID: uuid.NewString(),
		UserID:  userID,
		Reason:  reason,
		At:      at.UTC(),
	}
	err := retry.Do(ctx, func() error {
		return e.p.PublishJSON(ctx, KeyFromInt64(userID), ev)
	}, e.policy)
	if err != nil {
		e.log.Error("security event lost",
			zap.String("reason", reason),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}
