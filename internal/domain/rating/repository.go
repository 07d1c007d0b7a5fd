package rating

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for ratings.
type Repository interface {
	Create(ctx context.Context, r *Rating) error
	Exists(ctx context.Context, exchangeID, raterID uuid.UUID) (bool, error)
	ListByRatedUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Rating, error)
}
