package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/barter-hub/barter-hub/internal/domain/exchange"
	"github.com/barter-hub/barter-hub/internal/domain/rating"
)

// RatingRepository implements rating.Repository.
type RatingRepository struct {
	s *Store
}

func NewRatingRepository(s *Store) *RatingRepository {
	return &RatingRepository{s: s}
}

func (r *RatingRepository) Create(ctx context.Context, rt *rating.Rating) error {
	c := *rt
	return r.s.write(ctx, func() error {
		for _, existing := range r.s.st.ratings {
			if existing.ExchangeID == c.ExchangeID && existing.RaterID == c.RaterID {
				return exchange.ErrAlreadyRated
			}
		}
		c.ID = r.s.nextID()
		r.s.st.ratings[c.RatingID] = &c
		rt.ID = c.ID
		return nil
	})
}

func (r *RatingRepository) Exists(_ context.Context, exchangeID, raterID uuid.UUID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, existing := range r.s.st.ratings {
		if existing.ExchangeID == exchangeID && existing.RaterID == raterID {
			return true, nil
		}
	}
	return false, nil
}

func (r *RatingRepository) ListByRatedUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*rating.Rating, error) {
	r.s.mu.RLock()
	var out []*rating.Rating
	for _, rt := range r.s.st.ratings {
		if rt.RatedUserID == userID {
			c := *rt
			out = append(out, &c)
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool { return out[a].ID > out[b].ID })
	return window(out, limit, offset), nil
}

var _ rating.Repository = (*RatingRepository)(nil)
