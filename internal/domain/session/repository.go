package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists sessions keyed by token hash. GetByTokenHash returns
// (nil, nil) for an unknown hash.
type Repository interface {
	Create(ctx context.Context, session *Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	DeleteByID(ctx context.Context, sessionID uuid.UUID) error
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	// UpdateLastSeen stamps the session with at.
	UpdateLastSeen(ctx context.Context, sessionID uuid.UUID, at time.Time) error
	// DeleteExpired removes every session expired at now and reports how
	// many went.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
