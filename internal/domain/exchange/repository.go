package exchange

import (
	"context"

	"github.com/google/uuid"
)

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_publisher.go -package=mocks -source=event.go EventPublisher

// Filter controls exchange listing. ParticipantID matches either side.
type Filter struct {
	OwnerID         *uuid.UUID
	RequesterID     *uuid.UUID
	ParticipantID   *uuid.UUID
	RequestedItemID *uuid.UUID
	Status          *Status
}

// Repository defines persistence for exchanges.
// GetByID returns (nil, nil) when the exchange does not exist. Update bumps
// Version and fails with ErrConcurrentUpdate when the stored version differs.
type Repository interface {
	Create(ctx context.Context, ex *Exchange) error
	Update(ctx context.Context, ex *Exchange) error
	GetByID(ctx context.Context, exchangeID uuid.UUID) (*Exchange, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Exchange, error)
	Count(ctx context.Context, filter Filter) (int, error)
}
