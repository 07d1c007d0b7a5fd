package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
)

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks -source=repository.go Repository

// Repository defines persistence for exchange chat threads.
type Repository interface {
	Append(ctx context.Context, msg *Message) error
	// ListByExchange returns messages oldest first. A nil since returns the whole thread.
	ListByExchange(ctx context.Context, exchangeID uuid.UUID, since *time.Time, limit int) ([]*Message, error)
	MarkRead(ctx context.Context, exchangeID, userID uuid.UUID, at time.Time) error
	CountUnread(ctx context.Context, userID uuid.UUID, exchangeIDs []uuid.UUID) (int, error)
}
