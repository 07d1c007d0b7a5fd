package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/barter-hub/barter-hub/internal/domain/item"
)

// ItemRepository implements item.Repository.
type ItemRepository struct {
	s *Store
}

func NewItemRepository(s *Store) *ItemRepository {
	return &ItemRepository{s: s}
}

func (r *ItemRepository) Create(ctx context.Context, i *item.Item) error {
	c := i.Clone()
	return r.s.write(ctx, func() error {
		c.ID = r.s.nextID()
		r.s.st.items[c.ItemID] = c
		i.ID = c.ID
		return nil
	})
}

func (r *ItemRepository) Update(ctx context.Context, i *item.Item) error {
	c := i.Clone()
	return r.s.write(ctx, func() error {
		if _, ok := r.s.st.items[c.ItemID]; !ok {
			return item.ErrNotFound
		}
		r.s.st.items[c.ItemID] = c
		return nil
	})
}

func (r *ItemRepository) GetByID(_ context.Context, itemID uuid.UUID) (*item.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.st.items[itemID].Clone(), nil
}

func (r *ItemRepository) List(_ context.Context, filter item.Filter, limit, offset int) ([]*item.Item, error) {
	r.s.mu.RLock()
	var out []*item.Item
	for _, i := range r.s.st.items {
		if filter.OwnerID != nil && i.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.Status != nil && i.Status != *filter.Status {
			continue
		}
		if filter.Category != nil && i.Category != *filter.Category {
			continue
		}
		out = append(out, i.Clone())
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool { return out[a].ID > out[b].ID })
	return window(out, limit, offset), nil
}

func (r *ItemRepository) UpdateStatus(ctx context.Context, itemID uuid.UUID, status item.Status, at time.Time) error {
	return r.s.write(ctx, func() error {
		cur, ok := r.s.st.items[itemID]
		if !ok {
			return item.ErrNotFound
		}
		c := cur.Clone()
		c.Status = status
		c.UpdatedAt = at
		r.s.st.items[itemID] = c
		return nil
	})
}

func (r *ItemRepository) Delete(ctx context.Context, itemID uuid.UUID) error {
	return r.s.write(ctx, func() error {
		delete(r.s.st.items, itemID)
		return nil
	})
}

var _ item.Repository = (*ItemRepository)(nil)
