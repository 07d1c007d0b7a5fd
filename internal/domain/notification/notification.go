package notification

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Stream event names pushed to connected clients.
const (
	EventExchangeUpdated = "exchange.updated"
	EventChatMessage     = "chat.message"
	EventCounters        = "counters"
	EventPing            = "ping"
)

var (
	ErrClientNotFound = errors.New("SSE client not found")
	ErrChannelFull    = errors.New("SSE message channel full")
)

// Hub fans stream messages out to the connections of a user.
type Hub interface {
	BroadcastToUser(userID string, message *SSEMessage)
}

// SSEClient represents an active SSE connection
type SSEClient struct {
	ClientID    string
	UserID      *string
	ConnectedAt time.Time
	MessageChan chan *SSEMessage
}

// NewSSEClient creates a new SSE client
func NewSSEClient(clientID string, userID *string) *SSEClient {
	return &SSEClient{
		ClientID:    clientID,
		UserID:      userID,
		ConnectedAt: time.Now().UTC(),
		MessageChan: make(chan *SSEMessage, 100),
	}
}

// Close closes the client's message channel
func (c *SSEClient) Close() {
	close(c.MessageChan)
}

// SSEMessage is a hint telling a client to re-poll; clients never rely on it
// for state.
type SSEMessage struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewSSEMessage creates a new SSE message
func NewSSEMessage(event string, data json.RawMessage) *SSEMessage {
	return &SSEMessage{
		ID:        uuid.New().String(),
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// ExchangeHint is the payload of EventExchangeUpdated.
type ExchangeHint struct {
	ExchangeID uuid.UUID `json:"exchangeId"`
	Kind       string    `json:"kind"`
	Status     string    `json:"status"`
}

// Counters is the badge state shown next to the inbox.
type Counters struct {
	PendingIncoming int `json:"pendingIncoming"`
	Unread          int `json:"unread"`
}
