package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/barter-hub/barter-hub/internal/domain/chat"
	"github.com/barter-hub/barter-hub/internal/domain/exchange"
	domain "github.com/barter-hub/barter-hub/internal/domain/notification"
)

// Bridge turns committed exchange transitions into chat system messages,
// stream hints and published events. It never fails a transition: delivery
// problems are logged.
type Bridge struct {
	chat      chat.Repository
	exchanges exchange.Repository
	hub       domain.Hub
	publisher exchange.EventPublisher
	logger    zerolog.Logger
}

// NewBridge creates a bridge. hub and publisher may be nil.
func NewBridge(chatRepo chat.Repository, exchangeRepo exchange.Repository, hub domain.Hub, publisher exchange.EventPublisher, logger zerolog.Logger) *Bridge {
	if publisher == nil {
		publisher = exchange.NopPublisher{}
	}
	return &Bridge{
		chat:      chatRepo,
		exchanges: exchangeRepo,
		hub:       hub,
		publisher: publisher,
		logger:    logger.With().Str("service", "notification").Logger(),
	}
}

// SystemMessage renders the chat line for a transition of ex.
func SystemMessage(kind exchange.EventKind, ex *exchange.Exchange) string {
	switch kind {
	case exchange.EventCreated:
		return fmt.Sprintf("New exchange proposal with %s offered.", plural(len(ex.Offered), "item"))
	case exchange.EventAccepted:
		return "The owner accepted the proposal. The item is reserved; both of you confirm once the swap has taken place."
	case exchange.EventRejected:
		return "The owner rejected the proposal."
	case exchange.EventAutoRejected:
		return "The proposal was closed because the owner accepted another offer for this item."
	case exchange.EventModified:
		return fmt.Sprintf("The requester updated the proposal; it now offers %s.", plural(len(ex.Offered), "item"))
	case exchange.EventCounterOffered:
		return fmt.Sprintf("The owner asked for more items; the offer now has %s.", plural(len(ex.Offered), "item"))
	case exchange.EventConfirmed:
		if ex.ConfirmedByOwner {
			return "The owner confirmed the exchange. Waiting for the requester to confirm."
		}
		return "The requester confirmed the exchange. Waiting for the owner to confirm."
	case exchange.EventCompleted:
		return "Both parties confirmed. The exchange is complete and contact details are now visible to both of you."
	case exchange.EventCancelled:
		return "The requester cancelled the proposal."
	default:
		return fmt.Sprintf("Exchange updated (%s).", kind)
	}
}

// OnTransition records one committed transition. actorID is nil for system
// transitions. The transition is already committed, so delivery outlives a
// cancelled request context.
func (b *Bridge) OnTransition(ctx context.Context, ex *exchange.Exchange, kind exchange.EventKind, actorID *uuid.UUID) {
	ctx = context.WithoutCancel(ctx)
	log := b.logger.With().
		Str("exchangeId", ex.ExchangeID.String()).
		Str("kind", string(kind)).
		Logger()

	msg := chat.NewSystemMessage(ex.ExchangeID, SystemMessage(kind, ex), ex.UpdatedAt)
	if err := b.chat.Append(ctx, msg); err != nil {
		log.Error().Err(err).Msg("failed to append system message")
	}

	b.push(ex, kind)

	if err := b.publisher.Publish(ctx, exchange.NewEvent(ex, kind, actorID)); err != nil {
		log.Warn().Err(err).Msg("failed to publish exchange event")
	}
	log.Debug().Str("status", string(ex.Status)).Msg("transition delivered")
}

// NotifyMessage pushes a stream hint for a user-written chat message.
func (b *Bridge) NotifyMessage(ex *exchange.Exchange, msg *chat.Message) {
	if b.hub == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	for _, uid := range []uuid.UUID{ex.OwnerID, ex.RequesterID} {
		if msg.SenderID != nil && *msg.SenderID == uid {
			continue
		}
		b.hub.BroadcastToUser(uid.String(), domain.NewSSEMessage(domain.EventChatMessage, data))
	}
}

func (b *Bridge) push(ex *exchange.Exchange, kind exchange.EventKind) {
	if b.hub == nil {
		return
	}
	data, err := json.Marshal(domain.ExchangeHint{
		ExchangeID: ex.ExchangeID,
		Kind:       string(kind),
		Status:     string(ex.Status),
	})
	if err != nil {
		return
	}
	b.hub.BroadcastToUser(ex.OwnerID.String(), domain.NewSSEMessage(domain.EventExchangeUpdated, data))
	b.hub.BroadcastToUser(ex.RequesterID.String(), domain.NewSSEMessage(domain.EventExchangeUpdated, data))
}

// CountPendingIncoming counts PENDING exchanges awaiting userID's answer.
// It is recomputed on every call.
func (b *Bridge) CountPendingIncoming(ctx context.Context, userID uuid.UUID) (int, error) {
	pending := exchange.StatusPending
	return b.exchanges.Count(ctx, exchange.Filter{OwnerID: &userID, Status: &pending})
}

// CountUnread counts chat messages not yet read by userID across all of the
// user's exchanges.
func (b *Bridge) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	exchanges, err := b.exchanges.List(ctx, exchange.Filter{ParticipantID: &userID}, 0, 0)
	if err != nil {
		return 0, err
	}
	if len(exchanges) == 0 {
		return 0, nil
	}
	ids := make([]uuid.UUID, 0, len(exchanges))
	for _, ex := range exchanges {
		ids = append(ids, ex.ExchangeID)
	}
	return b.chat.CountUnread(ctx, userID, ids)
}

// Counters returns both badge numbers for userID.
func (b *Bridge) Counters(ctx context.Context, userID uuid.UUID) (*domain.Counters, error) {
	pending, err := b.CountPendingIncoming(ctx, userID)
	if err != nil {
		return nil, err
	}
	unread, err := b.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &domain.Counters{PendingIncoming: pending, Unread: unread}, nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
