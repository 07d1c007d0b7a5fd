package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence for users.
// Lookups return (nil, nil) when the user does not exist.
type Repository interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	// AddRating folds one received score into the reputation aggregate.
	AddRating(ctx context.Context, userID uuid.UUID, score int, at time.Time) error
}
