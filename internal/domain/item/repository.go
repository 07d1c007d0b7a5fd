package item

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter controls item listing.
type Filter struct {
	OwnerID  *uuid.UUID
	Status   *Status
	Category *string
}

// Repository defines persistence for catalog items.
// GetByID returns (nil, nil) when the item does not exist.
type Repository interface {
	Create(ctx context.Context, item *Item) error
	Update(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, itemID uuid.UUID) (*Item, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Item, error)
	UpdateStatus(ctx context.Context, itemID uuid.UUID, status Status, at time.Time) error
	Delete(ctx context.Context, itemID uuid.UUID) error
}
