package sweeper

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/NordCoder/Rotatus/internal/domain/token"
)

type Usecase struct {
	Tokens token.Store
	Now    func() time.Time
}

func NewUC(tokens token.Store) *Usecase {
	return &Usecase{Tokens: tokens, Now: func() time.Time { return time.Now().UTC() }}
}

// Tick purges one batch of rows that expired before now-grace. Recently
// expired terminal rows stay behind as reuse evidence.
func (u *Usecase) Tick(ctx context.Context, grace time.Duration, limit int) (int64, error) {
	if limit <= 0 {
		limit = 1000
	}

	tr := otel.Tracer("sweeper.uc")
	ctx, span := tr.Start(ctx, "sweeper.tick",
		trace.WithAttributes(attribute.Int("batch.limit", limit)),
	)
	defer span.End()

	cutoff := u.Now().Add(-grace)
	deleted, err := u.Tokens.DeleteExpired(ctx, cutoff, limit)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	span.SetAttributes(attribute.Int64("batch.deleted", deleted))
	return deleted, nil
}
