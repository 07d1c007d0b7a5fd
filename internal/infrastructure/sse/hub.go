package sse

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/barter-hub/barter-hub/internal/domain/notification"
)

// Hub fans stream hints out to connected clients, indexed by user.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]*notification.SSEClient
	byUser    map[string]map[string]*notification.SSEClient
	heartbeat time.Duration
	logger    zerolog.Logger
}

// NewHub creates a hub. A positive heartbeat makes Start ping every client
// at that interval so idle proxies keep the stream open.
func NewHub(heartbeat time.Duration, logger zerolog.Logger) *Hub {
	return &Hub{
		clients:   make(map[string]*notification.SSEClient),
		byUser:    make(map[string]map[string]*notification.SSEClient),
		heartbeat: heartbeat,
		logger:    logger.With().Str("component", "sse").Logger(),
	}
}

func (h *Hub) Register(client *notification.SSEClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ClientID] = client
	if client.UserID != nil {
		set, ok := h.byUser[*client.UserID]
		if !ok {
			set = make(map[string]*notification.SSEClient)
			h.byUser[*client.UserID] = set
		}
		set[client.ClientID] = client
	}
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	c.Close()
	delete(h.clients, clientID)
	if c.UserID != nil {
		if set := h.byUser[*c.UserID]; set != nil {
			delete(set, clientID)
			if len(set) == 0 {
				delete(h.byUser, *c.UserID)
			}
		}
	}
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastToUser sends message to every stream userID has open. Slow
// clients miss hints instead of blocking the sender.
func (h *Hub) BroadcastToUser(userID string, message *notification.SSEMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.byUser[userID] {
		if !trySend(c, message) {
			h.logger.Debug().Str("client_id", c.ClientID).Str("event", message.Event).Msg("client buffer full, hint dropped")
		}
	}
}

func (h *Hub) SendToClient(clientID string, message *notification.SSEMessage) error {
	h.mu.RLock()
	c := h.clients[clientID]
	h.mu.RUnlock()
	if c == nil {
		return notification.ErrClientNotFound
	}
	if !trySend(c, message) {
		return notification.ErrChannelFull
	}
	return nil
}

// Start runs the heartbeat until ctx is done.
func (h *Hub) Start(ctx context.Context) {
	if h.heartbeat <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ping := notification.NewSSEMessage(notification.EventPing, nil)
			h.mu.RLock()
			for _, c := range h.clients {
				trySend(c, ping)
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
	}
	clear(h.byUser)
}

func trySend(c *notification.SSEClient, msg *notification.SSEMessage) bool {
	select {
	case c.MessageChan <- msg:
		return true
	default:
		return false
	}
}

var _ notification.Hub = (*Hub)(nil)
