package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/barter-hub/barter-hub/internal/application/uow"
	"github.com/barter-hub/barter-hub/internal/domain/chat"
	"github.com/barter-hub/barter-hub/internal/domain/exchange"
	"github.com/barter-hub/barter-hub/internal/domain/item"
	"github.com/barter-hub/barter-hub/internal/domain/rating"
	"github.com/barter-hub/barter-hub/internal/domain/session"
	"github.com/barter-hub/barter-hub/internal/domain/user"
)

type readKey struct {
	exchangeID uuid.UUID
	userID     uuid.UUID
}

type state struct {
	items     map[uuid.UUID]*item.Item
	exchanges map[uuid.UUID]*exchange.Exchange
	messages  map[uuid.UUID][]*chat.Message
	reads     map[readKey]time.Time
	users     map[uuid.UUID]*user.User
	sessions  map[string]*session.Session
	ratings   map[uuid.UUID]*rating.Rating
}

// Store keeps every aggregate in process memory. Stored values are never
// mutated in place: writes replace them with fresh clones, so a shallow copy
// of the maps is a consistent snapshot.
type Store struct {
	mu  sync.RWMutex
	seq int64
	st  state
}

func NewStore() *Store {
	return &Store{st: state{
		items:     make(map[uuid.UUID]*item.Item),
		exchanges: make(map[uuid.UUID]*exchange.Exchange),
		messages:  make(map[uuid.UUID][]*chat.Message),
		reads:     make(map[readKey]time.Time),
		users:     make(map[uuid.UUID]*user.User),
		sessions:  make(map[string]*session.Session),
		ratings:   make(map[uuid.UUID]*rating.Rating),
	}}
}

type txKey struct{}

type tx struct {
	ops []func() error
}

// Do runs fn as one unit of work. Writes issued through ctx are buffered and
// applied together at the end under the store lock; if any of them fails the
// store is restored to its state before the unit. Reads inside fn see only
// committed data.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*tx); ok {
		return fn(ctx)
	}
	t := &tx{}
	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	snap, seq := s.snapshot(), s.seq
	for _, op := range t.ops {
		if err := op(); err != nil {
			s.st, s.seq = snap, seq
			return err
		}
	}
	return nil
}

// write applies op immediately, or defers it to commit inside a unit of work.
// op always runs with s.mu held.
func (s *Store) write(ctx context.Context, op func() error) error {
	if t, ok := ctx.Value(txKey{}).(*tx); ok {
		t.ops = append(t.ops, op)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return op()
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *Store) snapshot() state {
	msgs := make(map[uuid.UUID][]*chat.Message, len(s.st.messages))
	for k, v := range s.st.messages {
		msgs[k] = v[:len(v):len(v)]
	}
	return state{
		items:     maps.Clone(s.st.items),
		exchanges: maps.Clone(s.st.exchanges),
		messages:  msgs,
		reads:     maps.Clone(s.st.reads),
		users:     maps.Clone(s.st.users),
		sessions:  maps.Clone(s.st.sessions),
		ratings:   maps.Clone(s.st.ratings),
	}
}

func window[T any](in []T, limit, offset int) []T {
	if offset >= len(in) {
		return []T{}
	}
	if offset > 0 {
		in = in[offset:]
	}
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

var _ uow.Runner = (*Store)(nil)
