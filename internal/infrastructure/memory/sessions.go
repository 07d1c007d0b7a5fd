package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/barter-hub/barter-hub/internal/domain/session"
)

// SessionRepository implements session.Repository.
type SessionRepository struct {
	s *Store
}

func NewSessionRepository(s *Store) *SessionRepository {
	return &SessionRepository{s: s}
}

func (r *SessionRepository) Create(ctx context.Context, sess *session.Session) error {
	c := *sess
	return r.s.write(ctx, func() error {
		c.ID = r.s.nextID()
		r.s.st.sessions[c.TokenHash] = &c
		sess.ID = c.ID
		return nil
	})
}

func (r *SessionRepository) GetByTokenHash(_ context.Context, tokenHash string) (*session.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sess, ok := r.s.st.sessions[tokenHash]
	if !ok {
		return nil, nil
	}
	c := *sess
	return &c, nil
}

func (r *SessionRepository) DeleteByID(ctx context.Context, sessionID uuid.UUID) error {
	return r.s.write(ctx, func() error {
		for hash, sess := range r.s.st.sessions {
			if sess.SessionID == sessionID {
				delete(r.s.st.sessions, hash)
			}
		}
		return nil
	})
}

func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	return r.s.write(ctx, func() error {
		delete(r.s.st.sessions, tokenHash)
		return nil
	})
}

func (r *SessionRepository) UpdateLastSeen(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	return r.s.write(ctx, func() error {
		for hash, sess := range r.s.st.sessions {
			if sess.SessionID == sessionID {
				c := *sess
				c.LastSeenAt = &at
				r.s.st.sessions[hash] = &c
			}
		}
		return nil
	})
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	err := r.s.write(ctx, func() error {
		for hash, sess := range r.s.st.sessions {
			if sess.IsExpired(now) {
				delete(r.s.st.sessions, hash)
				removed++
			}
		}
		return nil
	})
	return removed, err
}

var _ session.Repository = (*SessionRepository)(nil)
