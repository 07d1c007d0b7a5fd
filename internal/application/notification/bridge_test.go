package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/barter-hub/barter-hub/internal/domain/chat"
	chatMocks "github.com/barter-hub/barter-hub/internal/domain/chat/mocks"
	"github.com/barter-hub/barter-hub/internal/domain/exchange"
	exchangeMocks "github.com/barter-hub/barter-hub/internal/domain/exchange/mocks"
	domain "github.com/barter-hub/barter-hub/internal/domain/notification"
	"github.com/barter-hub/barter-hub/internal/infrastructure/memory"
)

type recordingHub struct {
	mu   sync.Mutex
	sent map[string][]*domain.SSEMessage
}

func (h *recordingHub) BroadcastToUser(userID string, msg *domain.SSEMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sent == nil {
		h.sent = make(map[string][]*domain.SSEMessage)
	}
	h.sent[userID] = append(h.sent[userID], msg)
}

type traceKey struct{}

func sampleExchange() *exchange.Exchange {
	return &exchange.Exchange{
		ExchangeID:      uuid.New(),
		OwnerID:         uuid.New(),
		RequesterID:     uuid.New(),
		RequestedItemID: uuid.New(),
		Offered:         []exchange.OfferedEntity{exchange.CatalogOffer(uuid.New()), exchange.CatalogOffer(uuid.New())},
		Status:          exchange.StatusPending,
		UpdatedAt:       time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestSystemMessage(t *testing.T) {
	ex := sampleExchange()
	kinds := []exchange.EventKind{
		exchange.EventCreated,
		exchange.EventAccepted,
		exchange.EventRejected,
		exchange.EventAutoRejected,
		exchange.EventModified,
		exchange.EventCounterOffered,
		exchange.EventConfirmed,
		exchange.EventCompleted,
		exchange.EventCancelled,
	}
	seen := make(map[string]exchange.EventKind)
	for _, k := range kinds {
		t.Run(string(k), func(t *testing.T) {
			text := SystemMessage(k, ex)
			assert.NotEmpty(t, text)
			prev, dup := seen[text]
			assert.False(t, dup, "%s renders the same text as %s", k, prev)
			seen[text] = k
		})
	}

	assert.Contains(t, SystemMessage(exchange.EventCreated, ex), "2 items")
	ex.Offered = ex.Offered[:1]
	assert.Contains(t, SystemMessage(exchange.EventCreated, ex), "1 item")

	ex.ConfirmedByOwner = true
	assert.Contains(t, SystemMessage(exchange.EventConfirmed, ex), "owner confirmed")
	ex.ConfirmedByOwner, ex.ConfirmedByRequester = false, true
	assert.Contains(t, SystemMessage(exchange.EventConfirmed, ex), "requester confirmed")
}

func TestBridge_OnTransition(t *testing.T) {
	t.Run("appends one system message and publishes", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		chatRepo := chatMocks.NewMockRepository(ctrl)
		publisher := exchangeMocks.NewMockEventPublisher(ctrl)
		hub := &recordingHub{}
		bridge := NewBridge(chatRepo, memory.NewExchangeRepository(memory.NewStore()), hub, publisher, zerolog.Nop())

		ctx := context.WithValue(context.Background(), traceKey{}, "trace-1")
		ex := sampleExchange()
		ex.Status = exchange.StatusAccepted
		actor := ex.OwnerID

		chatRepo.EXPECT().
			Append(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, m *chat.Message) error {
				assert.Equal(t, "trace-1", ctx.Value(traceKey{}))
				assert.Equal(t, ex.ExchangeID, m.ExchangeID)
				assert.Equal(t, chat.KindSystem, m.Kind)
				assert.Nil(t, m.SenderID)
				assert.Equal(t, SystemMessage(exchange.EventAccepted, ex), m.Text)
				assert.Equal(t, ex.UpdatedAt, m.CreatedAt)
				return nil
			}).
			Times(1)
		publisher.EXPECT().
			Publish(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, e *exchange.Event) error {
				assert.Equal(t, exchange.EventAccepted, e.Kind)
				assert.Equal(t, exchange.StatusAccepted, e.Status)
				require.NotNil(t, e.ActorID)
				assert.Equal(t, actor, *e.ActorID)
				assert.Equal(t, ex.OfferedItemIDs(), e.OfferedItemIDs)
				return nil
			}).
			Times(1)

		bridge.OnTransition(ctx, ex, exchange.EventAccepted, &actor)

		assert.Len(t, hub.sent[ex.OwnerID.String()], 1)
		assert.Len(t, hub.sent[ex.RequesterID.String()], 1)
		assert.Equal(t, domain.EventExchangeUpdated, hub.sent[ex.OwnerID.String()][0].Event)
	})

	t.Run("delivery failures do not stop later steps", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		chatRepo := chatMocks.NewMockRepository(ctrl)
		publisher := exchangeMocks.NewMockEventPublisher(ctrl)
		bridge := NewBridge(chatRepo, memory.NewExchangeRepository(memory.NewStore()), nil, publisher, zerolog.Nop())

		ctx := context.Background()
		chatRepo.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("chat down"))
		publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("kafka down"))

		assert.NotPanics(t, func() {
			bridge.OnTransition(ctx, sampleExchange(), exchange.EventCreated, nil)
		})
	})

	t.Run("delivers after the request context is cancelled", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		chatRepo := chatMocks.NewMockRepository(ctrl)
		publisher := exchangeMocks.NewMockEventPublisher(ctrl)
		bridge := NewBridge(chatRepo, memory.NewExchangeRepository(memory.NewStore()), nil, publisher, zerolog.Nop())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		chatRepo.EXPECT().
			Append(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ *chat.Message) error {
				assert.NoError(t, ctx.Err())
				return nil
			}).
			Times(1)
		publisher.EXPECT().
			Publish(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ *exchange.Event) error {
				assert.NoError(t, ctx.Err())
				return nil
			}).
			Times(1)

		bridge.OnTransition(ctx, sampleExchange(), exchange.EventAccepted, nil)
	})

	t.Run("nil publisher falls back to no-op", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		chatRepo := chatMocks.NewMockRepository(ctrl)
		bridge := NewBridge(chatRepo, memory.NewExchangeRepository(memory.NewStore()), nil, nil, zerolog.Nop())

		chatRepo.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
		bridge.OnTransition(context.Background(), sampleExchange(), exchange.EventRejected, nil)
	})
}

func TestBridge_Counters(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	exchanges := memory.NewExchangeRepository(store)
	chatRepo := memory.NewChatRepository(store)
	bridge := NewBridge(chatRepo, exchanges, nil, nil, zerolog.Nop())

	owner := uuid.New()
	var created []*exchange.Exchange
	for range 3 {
		ex, err := exchange.New(exchange.NewParams{
			OwnerID: owner, RequesterID: uuid.New(), RequestedItemID: uuid.New(),
			Offered: []exchange.OfferedEntity{exchange.CatalogOffer(uuid.New())},
		})
		require.NoError(t, err)
		require.NoError(t, exchanges.Create(ctx, ex))
		bridge.OnTransition(ctx, ex, exchange.EventCreated, &ex.RequesterID)
		created = append(created, ex)
	}

	n, err := bridge.CountPendingIncoming(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rejected := created[0]
	require.NoError(t, rejected.Reject(owner, time.Now().UTC()))
	require.NoError(t, exchanges.Update(ctx, rejected))

	n, err = bridge.CountPendingIncoming(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "recomputed after each transition")

	n, err = bridge.CountPendingIncoming(ctx, created[1].RequesterID)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "outgoing proposals are not incoming")

	counters, err := bridge.Counters(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, counters.PendingIncoming)
	assert.Equal(t, 3, counters.Unread)

	none, err := bridge.CountUnread(ctx, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, none)
}
