package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/barter-hub/barter-hub/internal/domain/user"
)

// UserRepository implements user.Repository.
type UserRepository struct {
	s *Store
}

func NewUserRepository(s *Store) *UserRepository {
	return &UserRepository{s: s}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	c := *u
	return r.s.write(ctx, func() error {
		for _, existing := range r.s.st.users {
			if existing.Username == c.Username {
				return user.ErrUsernameTaken
			}
		}
		c.ID = r.s.nextID()
		r.s.st.users[c.UserID] = &c
		u.ID = c.ID
		return nil
	})
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	c := *u
	return r.s.write(ctx, func() error {
		if _, ok := r.s.st.users[c.UserID]; !ok {
			return user.ErrNotFound
		}
		r.s.st.users[c.UserID] = &c
		return nil
	})
}

func (r *UserRepository) GetByID(_ context.Context, userID uuid.UUID) (*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.st.users[userID]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.st.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *UserRepository) AddRating(ctx context.Context, userID uuid.UUID, score int, at time.Time) error {
	return r.s.write(ctx, func() error {
		cur, ok := r.s.st.users[userID]
		if !ok {
			return user.ErrNotFound
		}
		c := *cur
		c.ApplyRating(score)
		c.UpdatedAt = at
		r.s.st.users[userID] = &c
		return nil
	})
}

var _ user.Repository = (*UserRepository)(nil)
