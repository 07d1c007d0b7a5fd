package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barter-hub/barter-hub/internal/domain/chat"
)

// ChatRepository implements chat.Repository.
type ChatRepository struct {
	pool *pgxpool.Pool
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

func (r *ChatRepository) Append(ctx context.Context, msg *chat.Message) error {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO chat_messages (message_id, exchange_id, sender_id, kind, text, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`, msg.MessageID, msg.ExchangeID, msg.SenderID, msg.Kind, msg.Text, msg.CreatedAt)
	return row.Scan(&msg.ID)
}

func (r *ChatRepository) ListByExchange(ctx context.Context, exchangeID uuid.UUID, since *time.Time, limit int) ([]*chat.Message, error) {
	w := &where{}
	w.add("exchange_id=?", exchangeID)
	if since != nil {
		w.add("created_at>?", *since)
	}
	query := `SELECT id, message_id, exchange_id, sender_id, kind, text, created_at FROM chat_messages` +
		w.String() + ` ORDER BY created_at ASC, id ASC` + w.page(limit, 0)

	rows, err := conn(ctx, r.pool).Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	messages := make([]*chat.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MarkRead never moves a read mark backwards.
func (r *ChatRepository) MarkRead(ctx context.Context, exchangeID, userID uuid.UUID, at time.Time) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO chat_reads (exchange_id, user_id, last_read_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (exchange_id, user_id)
		DO UPDATE SET last_read_at = GREATEST(chat_reads.last_read_at, EXCLUDED.last_read_at)
	`, exchangeID, userID, at)
	return err
}

func (r *ChatRepository) CountUnread(ctx context.Context, userID uuid.UUID, exchangeIDs []uuid.UUID) (int, error) {
	if len(exchangeIDs) == 0 {
		return 0, nil
	}
	var count int
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT COUNT(*)
		FROM chat_messages m
		LEFT JOIN chat_reads cr ON cr.exchange_id = m.exchange_id AND cr.user_id = $1
		WHERE m.exchange_id = ANY($2)
		AND (m.sender_id IS NULL OR m.sender_id <> $1)
		AND (cr.last_read_at IS NULL OR m.created_at > cr.last_read_at)
	`, userID, exchangeIDs).Scan(&count)
	return count, err
}

func scanMessage(row pgx.Row) (*chat.Message, error) {
	var m chat.Message
	if err := row.Scan(&m.ID, &m.MessageID, &m.ExchangeID, &m.SenderID, &m.Kind, &m.Text, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

var _ chat.Repository = (*ChatRepository)(nil)
