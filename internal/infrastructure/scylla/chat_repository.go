package scylla

import (
	"context"
	"errors"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/barter-hub/barter-hub/internal/domain/chat"
)

// ChatRepository implements chat.Repository on Scylla. Threads are
// partitioned by exchange; read marks by user. Writes here never join a
// relational unit of work.
type ChatRepository struct {
	session *gocql.Session
	logger  zerolog.Logger
}

func NewChatRepository(session *gocql.Session, logger zerolog.Logger) *ChatRepository {
	return &ChatRepository{
		session: session,
		logger:  logger.With().Str("service", "scylla-chat").Logger(),
	}
}

// Append stores msg. Scylla has no sequence, so msg.ID stays zero.
func (r *ChatRepository) Append(ctx context.Context, msg *chat.Message) error {
	if r.session == nil {
		return errors.New("scylla session not initialized")
	}
	var sender *gocql.UUID
	if msg.SenderID != nil {
		s := gocql.UUID(*msg.SenderID)
		sender = &s
	}
	return r.session.
		Query(`INSERT INTO chat_messages (exchange_id, created_at, message_id, sender_id, kind, text) VALUES (?, ?, ?, ?, ?, ?)`,
			gocql.UUID(msg.ExchangeID), msg.CreatedAt.UTC(), gocql.UUID(msg.MessageID), sender, string(msg.Kind), msg.Text).
		WithContext(ctx).
		Consistency(gocql.Quorum).
		Exec()
}

func (r *ChatRepository) ListByExchange(ctx context.Context, exchangeID uuid.UUID, since *time.Time, limit int) ([]*chat.Message, error) {
	cql := `SELECT message_id, sender_id, kind, text, created_at FROM chat_messages WHERE exchange_id = ?`
	args := []any{gocql.UUID(exchangeID)}
	if since != nil {
		cql += ` AND created_at > ?`
		args = append(args, since.UTC())
	}
	if limit > 0 {
		cql += ` LIMIT ?`
		args = append(args, limit)
	}
	iter := r.session.Query(cql, args...).WithContext(ctx).Iter()

	var (
		messageID gocql.UUID
		sender    *gocql.UUID
		kind      string
		text      string
		createdAt time.Time
	)
	messages := make([]*chat.Message, 0)
	for iter.Scan(&messageID, &sender, &kind, &text, &createdAt) {
		m := &chat.Message{
			MessageID:  uuid.UUID(messageID),
			ExchangeID: exchangeID,
			Kind:       chat.Kind(kind),
			Text:       text,
			CreatedAt:  createdAt.UTC(),
		}
		if sender != nil {
			id := uuid.UUID(*sender)
			m.SenderID = &id
		}
		messages = append(messages, m)
		sender = nil
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkRead never moves a read mark backwards.
func (r *ChatRepository) MarkRead(ctx context.Context, exchangeID, userID uuid.UUID, at time.Time) error {
	last, err := r.lastRead(ctx, userID, exchangeID)
	if err != nil {
		return err
	}
	if last != nil && last.After(at) {
		return nil
	}
	return r.session.
		Query(`INSERT INTO chat_reads (user_id, exchange_id, last_read_at) VALUES (?, ?, ?)`,
			gocql.UUID(userID), gocql.UUID(exchangeID), at.UTC()).
		WithContext(ctx).
		Exec()
}

func (r *ChatRepository) CountUnread(ctx context.Context, userID uuid.UUID, exchangeIDs []uuid.UUID) (int, error) {
	count := 0
	for _, exID := range exchangeIDs {
		last, err := r.lastRead(ctx, userID, exID)
		if err != nil {
			return 0, err
		}
		cql := `SELECT sender_id, created_at FROM chat_messages WHERE exchange_id = ?`
		args := []any{gocql.UUID(exID)}
		if last != nil {
			cql += ` AND created_at > ?`
			args = append(args, last.UTC())
		}
		iter := r.session.Query(cql, args...).WithContext(ctx).Iter()
		var (
			sender    *gocql.UUID
			createdAt time.Time
		)
		for iter.Scan(&sender, &createdAt) {
			m := chat.Message{CreatedAt: createdAt}
			if sender != nil {
				id := uuid.UUID(*sender)
				m.SenderID = &id
			}
			if m.IsUnreadFor(userID, last) {
				count++
			}
			sender = nil
		}
		if err := iter.Close(); err != nil {
			return 0, err
		}
	}
	return count, nil
}

func (r *ChatRepository) lastRead(ctx context.Context, userID, exchangeID uuid.UUID) (*time.Time, error) {
	var at time.Time
	err := r.session.
		Query(`SELECT last_read_at FROM chat_reads WHERE user_id = ? AND exchange_id = ?`, gocql.UUID(userID), gocql.UUID(exchangeID)).
		WithContext(ctx).
		Consistency(gocql.One).
		Scan(&at)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	at = at.UTC()
	return &at, nil
}

var _ chat.Repository = (*ChatRepository)(nil)
