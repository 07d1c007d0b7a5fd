package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes user-written from system-generated messages.
type Kind string

const (
	KindUser   Kind = "USER"
	KindSystem Kind = "SYSTEM"
)

const MaxTextLength = 2000

var (
	ErrEmptyText   = errors.New("message text is required")
	ErrTextTooLong = errors.New("message text is too long")
)

// Message belongs to the chat thread of one exchange.
// SenderID is nil for system messages.
type Message struct {
	ID         int64      `json:"id"`
	MessageID  uuid.UUID  `json:"messageId"`
	ExchangeID uuid.UUID  `json:"exchangeId"`
	SenderID   *uuid.UUID `json:"senderId,omitempty"`
	Kind       Kind       `json:"kind"`
	Text       string     `json:"text"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// NewUserMessage validates and builds a message written by a party.
func NewUserMessage(exchangeID, senderID uuid.UUID, text string, at time.Time) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if len(text) > MaxTextLength {
		return nil, ErrTextTooLong
	}
	return &Message{
		MessageID:  uuid.New(),
		ExchangeID: exchangeID,
		SenderID:   &senderID,
		Kind:       KindUser,
		Text:       text,
		CreatedAt:  at,
	}, nil
}

func NewSystemMessage(exchangeID uuid.UUID, text string, at time.Time) *Message {
	return &Message{
		MessageID:  uuid.New(),
		ExchangeID: exchangeID,
		Kind:       KindSystem,
		Text:       text,
		CreatedAt:  at,
	}
}

func (m *Message) IsSystem() bool {
	return m.Kind == KindSystem
}

// IsUnreadFor reports whether the message counts as unread for userID given the
// user's last read mark on the thread.
func (m *Message) IsUnreadFor(userID uuid.UUID, lastReadAt *time.Time) bool {
	if m.SenderID != nil && *m.SenderID == userID {
		return false
	}
	return lastReadAt == nil || m.CreatedAt.After(*lastReadAt)
}
