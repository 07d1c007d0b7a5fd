package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/barter-hub/barter-hub/internal/domain/chat"
)

// ChatRepository implements chat.Repository.
type ChatRepository struct {
	s *Store
}

func NewChatRepository(s *Store) *ChatRepository {
	return &ChatRepository{s: s}
}

func (r *ChatRepository) Append(ctx context.Context, msg *chat.Message) error {
	c := *msg
	return r.s.write(ctx, func() error {
		c.ID = r.s.nextID()
		r.s.st.messages[c.ExchangeID] = append(r.s.st.messages[c.ExchangeID], &c)
		msg.ID = c.ID
		return nil
	})
}

func (r *ChatRepository) ListByExchange(_ context.Context, exchangeID uuid.UUID, since *time.Time, limit int) ([]*chat.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*chat.Message, 0)
	for _, m := range r.s.st.messages[exchangeID] {
		if since != nil && !m.CreatedAt.After(*since) {
			continue
		}
		c := *m
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *ChatRepository) MarkRead(ctx context.Context, exchangeID, userID uuid.UUID, at time.Time) error {
	return r.s.write(ctx, func() error {
		key := readKey{exchangeID: exchangeID, userID: userID}
		if prev, ok := r.s.st.reads[key]; ok && prev.After(at) {
			return nil
		}
		r.s.st.reads[key] = at
		return nil
	})
}

func (r *ChatRepository) CountUnread(_ context.Context, userID uuid.UUID, exchangeIDs []uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	count := 0
	for _, exID := range exchangeIDs {
		var last *time.Time
		if at, ok := r.s.st.reads[readKey{exchangeID: exID, userID: userID}]; ok {
			last = &at
		}
		for _, m := range r.s.st.messages[exID] {
			if m.IsUnreadFor(userID, last) {
				count++
			}
		}
	}
	return count, nil
}

var _ chat.Repository = (*ChatRepository)(nil)
