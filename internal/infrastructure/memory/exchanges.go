package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/barter-hub/barter-hub/internal/domain/exchange"
)

// ExchangeRepository implements exchange.Repository.
type ExchangeRepository struct {
	s *Store
}

func NewExchangeRepository(s *Store) *ExchangeRepository {
	return &ExchangeRepository{s: s}
}

func (r *ExchangeRepository) Create(ctx context.Context, ex *exchange.Exchange) error {
	c := ex.Clone()
	return r.s.write(ctx, func() error {
		c.ID = r.s.nextID()
		c.Version = 1
		r.s.st.exchanges[c.ExchangeID] = c
		ex.ID, ex.Version = c.ID, c.Version
		return nil
	})
}

func (r *ExchangeRepository) Update(ctx context.Context, ex *exchange.Exchange) error {
	c := ex.Clone()
	return r.s.write(ctx, func() error {
		cur, ok := r.s.st.exchanges[c.ExchangeID]
		if !ok {
			return exchange.ErrNotFound
		}
		if cur.Version != c.Version {
			return exchange.ErrConcurrentUpdate
		}
		c.Version++
		r.s.st.exchanges[c.ExchangeID] = c
		ex.Version = c.Version
		return nil
	})
}

func (r *ExchangeRepository) GetByID(_ context.Context, exchangeID uuid.UUID) (*exchange.Exchange, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.st.exchanges[exchangeID].Clone(), nil
}

func (r *ExchangeRepository) List(_ context.Context, filter exchange.Filter, limit, offset int) ([]*exchange.Exchange, error) {
	out := r.match(filter)
	sort.Slice(out, func(a, b int) bool { return out[a].ID > out[b].ID })
	return window(out, limit, offset), nil
}

func (r *ExchangeRepository) Count(_ context.Context, filter exchange.Filter) (int, error) {
	return len(r.match(filter)), nil
}

func (r *ExchangeRepository) match(filter exchange.Filter) []*exchange.Exchange {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*exchange.Exchange
	for _, ex := range r.s.st.exchanges {
		if filter.OwnerID != nil && ex.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.RequesterID != nil && ex.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.ParticipantID != nil && !ex.IsParty(*filter.ParticipantID) {
			continue
		}
		if filter.RequestedItemID != nil && ex.RequestedItemID != *filter.RequestedItemID {
			continue
		}
		if filter.Status != nil && ex.Status != *filter.Status {
			continue
		}
		out = append(out, ex.Clone())
	}
	return out
}

var _ exchange.Repository = (*ExchangeRepository)(nil)
