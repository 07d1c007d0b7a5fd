package exchange

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/barter-hub/barter-hub/internal/application/notification"
	"github.com/barter-hub/barter-hub/internal/application/proposal"
	"github.com/barter-hub/barter-hub/internal/application/resolver"
	"github.com/barter-hub/barter-hub/internal/domain/chat"
	domainExchange "github.com/barter-hub/barter-hub/internal/domain/exchange"
	"github.com/barter-hub/barter-hub/internal/domain/image"
	"github.com/barter-hub/barter-hub/internal/domain/item"
	"github.com/barter-hub/barter-hub/internal/domain/user"
	"github.com/barter-hub/barter-hub/internal/infrastructure/locker"
	"github.com/barter-hub/barter-hub/internal/infrastructure/memory"
)

type harness struct {
	svc       *Service
	items     *memory.ItemRepository
	exchanges *memory.ExchangeRepository
	chat      *memory.ChatRepository
	users     *memory.UserRepository
	bridge    *notification.Bridge
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithImages(t, nil)
}

func newHarnessWithImages(t *testing.T, images image.Processor) *harness {
	t.Helper()
	store := memory.NewStore()
	h := &harness{
		items:     memory.NewItemRepository(store),
		exchanges: memory.NewExchangeRepository(store),
		chat:      memory.NewChatRepository(store),
		users:     memory.NewUserRepository(store),
	}
	logger := zerolog.Nop()
	h.bridge = notification.NewBridge(h.chat, h.exchanges, nil, nil, logger)
	h.svc = NewService(
		h.exchanges,
		h.items,
		h.chat,
		h.users,
		proposal.NewBuilder(h.items, images, logger),
		resolver.New(h.items, logger),
		h.bridge,
		store,
		locker.New(),
		logger,
	)
	return h
}

type countingProcessor struct {
	mu    sync.Mutex
	count int
}

func (p *countingProcessor) Process(_ context.Context, folder string, u image.Upload) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	return "https://img.test/" + folder + "/" + u.Name, nil
}

func (p *countingProcessor) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

func (h *harness) user(t *testing.T, name string) uuid.UUID {
	t.Helper()
	u := &user.User{
		UserID:      uuid.New(),
		Username:    name,
		DisplayName: strings.ToUpper(name[:1]) + name[1:],
		Email:       name + "@barter.test",
		Phone:       "+1 555 0100",
		Status:      user.StatusActive,
	}
	require.NoError(t, h.users.Create(context.Background(), u))
	return u.UserID
}

func (h *harness) item(t *testing.T, owner uuid.UUID, title string) *item.Item {
	t.Helper()
	it, err := item.New(owner, title, "", "misc", "good", "", []string{"https://img.test/" + title})
	require.NoError(t, err)
	require.NoError(t, h.items.Create(context.Background(), it))
	return it
}

func (h *harness) itemStatus(t *testing.T, id uuid.UUID) item.Status {
	t.Helper()
	it, err := h.items.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, it)
	return it.Status
}

func (h *harness) reload(t *testing.T, id uuid.UUID) *domainExchange.Exchange {
	t.Helper()
	ex, err := h.exchanges.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, ex)
	return ex
}

func (h *harness) systemMessages(t *testing.T, id uuid.UUID) []string {
	t.Helper()
	msgs, err := h.chat.ListByExchange(context.Background(), id, nil, 0)
	require.NoError(t, err)
	var out []string
	for _, m := range msgs {
		if m.Kind == chat.KindSystem {
			out = append(out, m.Text)
		}
	}
	return out
}

// propose makes requester offer one fresh catalog item for target.
func (h *harness) propose(t *testing.T, requester uuid.UUID, target *item.Item) *domainExchange.Exchange {
	t.Helper()
	offered := h.item(t, requester, "offer-"+uuid.NewString()[:8])
	ex, err := h.svc.Create(context.Background(), requester, proposal.BuildInput{
		RequestedItemID: target.ItemID,
		OfferedItemIDs:  []uuid.UUID{offered.ItemID},
	})
	require.NoError(t, err)
	return ex
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("two catalog items and one other item round-trip", func(t *testing.T) {
		h := newHarness(t)
		owner, requester := h.user(t, "olivia"), h.user(t, "ryan")
		target := h.item(t, owner, "bike")
		a, b := h.item(t, requester, "lamp"), h.item(t, requester, "tent")

		ex, err := h.svc.Create(ctx, requester, proposal.BuildInput{
			RequestedItemID: target.ItemID,
			OfferedItemIDs:  []uuid.UUID{a.ItemID, b.ItemID},
			OtherItems:      []proposal.OtherItemDraft{{Description: "Old guitar"}},
			Message:         "hi",
		})
		require.NoError(t, err)
		assert.Equal(t, domainExchange.StatusPending, ex.Status)
		assert.Equal(t, owner, ex.OwnerID)

		got := h.reload(t, ex.ExchangeID)
		assert.Len(t, got.OfferedItemIDs(), 3)
		others := got.OfferedOtherItems()
		require.Len(t, others, 1)
		assert.Equal(t, "Old guitar", others[0].Description)
		assert.Contains(t, got.OfferedItemIDs(), others[0].OtherItemID)
		assert.False(t, got.ConfirmedByOwner)
		assert.False(t, got.ConfirmedByRequester)

		assert.Len(t, h.systemMessages(t, ex.ExchangeID), 1)
		assert.Equal(t, item.StatusAvailable, h.itemStatus(t, target.ItemID))
	})

	t.Run("offering someone else's item writes nothing", func(t *testing.T) {
		h := newHarness(t)
		owner, requester := h.user(t, "olivia"), h.user(t, "ryan")
		target := h.item(t, owner, "bike")
		foreign := h.item(t, h.user(t, "mallory"), "drone")

		_, err := h.svc.Create(ctx, requester, proposal.BuildInput{
			RequestedItemID: target.ItemID,
			OfferedItemIDs:  []uuid.UUID{foreign.ItemID},
		})
		assert.ErrorIs(t, err, domainExchange.ErrSelfTrade)
		assert.True(t, domainExchange.IsValidation(err))

		n, err := h.exchanges.Count(ctx, domainExchange.Filter{})
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("requesting own item", func(t *testing.T) {
		h := newHarness(t)
		owner := h.user(t, "olivia")
		target := h.item(t, owner, "bike")
		mine := h.item(t, owner, "lamp")

		_, err := h.svc.Create(ctx, owner, proposal.BuildInput{
			RequestedItemID: target.ItemID,
			OfferedItemIDs:  []uuid.UUID{mine.ItemID},
		})
		assert.ErrorIs(t, err, domainExchange.ErrSelfTrade)
	})

	t.Run("empty offer", func(t *testing.T) {
		h := newHarness(t)
		target := h.item(t, h.user(t, "olivia"), "bike")
		_, err := h.svc.Create(ctx, h.user(t, "ryan"), proposal.BuildInput{RequestedItemID: target.ItemID})
		assert.ErrorIs(t, err, domainExchange.ErrEmptyOffer)
	})

	t.Run("reserved item refuses new proposals", func(t *testing.T) {
		h := newHarness(t)
		owner, requester := h.user(t, "olivia"), h.user(t, "ryan")
		target := h.item(t, owner, "bike")
		ex := h.propose(t, requester, target)
		_, err := h.svc.Respond(ctx, owner, ex.ExchangeID, DecisionAccept)
		require.NoError(t, err)

		late := h.user(t, "lena")
		offered := h.item(t, late, "kayak")
		_, err = h.svc.Create(ctx, late, proposal.BuildInput{
			RequestedItemID: target.ItemID,
			OfferedItemIDs:  []uuid.UUID{offered.ItemID},
		})
		assert.ErrorIs(t, err, domainExchange.ErrItemNotAvailable)
	})
}

func TestService_Accept(t *testing.T) {
	ctx := context.Background()

	t.Run("first acceptance wins", func(t *testing.T) {
		h := newHarness(t)
		owner, requester, rival := h.user(t, "olivia"), h.user(t, "ryan"), h.user(t, "rita")
		target := h.item(t, owner, "bike")

		ex, err := h.svc.Create(ctx, requester, proposal.BuildInput{
			RequestedItemID: target.ItemID,
			OtherItems:      []proposal.OtherItemDraft{{Description: "Old guitar"}},
		})
		require.NoError(t, err)
		competing := h.propose(t, rival, target)
		other := h.item(t, owner, "sofa")
		unrelated := h.propose(t, rival, other)

		accepted, err := h.svc.Respond(ctx, owner, ex.ExchangeID, DecisionAccept)
		require.NoError(t, err)
		assert.Equal(t, domainExchange.StatusAccepted, accepted.Status)
		assert.False(t, accepted.ConfirmedByOwner)
		assert.False(t, accepted.ConfirmedByRequester)
		assert.Equal(t, item.StatusReserved, h.itemStatus(t, target.ItemID))

		lost := h.reload(t, competing.ExchangeID)
		assert.Equal(t, domainExchange.StatusRejected, lost.Status)
		msgs := h.systemMessages(t, competing.ExchangeID)
		require.Len(t, msgs, 2)
		assert.Equal(t, notification.SystemMessage(domainExchange.EventAutoRejected, lost), msgs[1])

		assert.Equal(t, domainExchange.StatusPending, h.reload(t, unrelated.ExchangeID).Status)
		assert.Equal(t, item.StatusAvailable, h.itemStatus(t, other.ItemID))
	})

	t.Run("only the owner may answer", func(t *testing.T) {
		h := newHarness(t)
		owner, requester := h.user(t, "olivia"), h.user(t, "ryan")
		ex := h.propose(t, requester, h.item(t, owner, "bike"))

		for _, actor := range []uuid.UUID{requester, uuid.New()} {
			_, err := h.svc.Respond(ctx, actor, ex.ExchangeID, DecisionAccept)
			assert.ErrorIs(t, err, domainExchange.ErrUnauthorized)
			_, err = h.svc.Respond(ctx, actor, ex.ExchangeID, DecisionReject)
			assert.ErrorIs(t, err, domainExchange.ErrUnauthorized)
		}
		assert.Equal(t, domainExchange.StatusPending, h.reload(t, ex.ExchangeID).Status)
	})

	t.Run("accepting twice", func(t *testing.T) {
		h := newHarness(t)
		owner, requester := h.user(t, "olivia"), h.user(t, "ryan")
		ex := h.propose(t, requester, h.item(t, owner, "bike"))
		_, err := h.svc.Respond(ctx, owner, ex.ExchangeID, DecisionAccept)
		require.NoError(t, err)

		_, err = h.svc.Respond(ctx, owner, ex.ExchangeID, DecisionAccept)
		var ist *domainExchange.InvalidStateTransitionError
		require.ErrorAs(t, err, &ist)
		assert.Equal(t, domainExchange.TransitionAccept, ist.Transition)
		assert.Equal(t, domainExchange.StatusAccepted, ist.Current)
		assert.Len(t, h.systemMessages(t, ex.ExchangeID), 2)
	})

	t.Run("unknown decision", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Respond(ctx, uuid.New(), uuid.New(), Decision("MAYBE"))
		assert.ErrorIs(t, err, domainExchange.ErrInvalidDecision)
	})

	t.Run("unknown exchange", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Respond(ctx, uuid.New(), uuid.New(), DecisionAccept)
		assert.ErrorIs(t, err, domainExchange.ErrNotFound)
	})
}

func TestService_ConcurrentAccept(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	h := newHarness(t)
	owner := h.user(t, "olivia")
	target := h.item(t, owner, "bike")

	const n = 8
	proposals := make([]*domainExchange.Exchange, n)
	for i := range proposals {
		proposals[i] = h.propose(t, h.user(t, "user"+string(rune('a'+i))+"xx"), target)
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i, ex := range proposals {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.svc.Respond(ctx, owner, ex.ExchangeID, DecisionAccept)
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, domainExchange.IsInvalidState(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, wins)

	accepted := domainExchange.StatusAccepted
	count, err := h.exchanges.Count(ctx, domainExchange.Filter{RequestedItemID: &target.ItemID, Status: &accepted})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, item.StatusReserved, h.itemStatus(t, target.ItemID))
}

func TestService_Reject(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner, requester := h.user(t, "olivia"), h.user(t, "ryan")
	target := h.item(t, owner, "bike")
	ex := h.propose(t, requester, target)

	rejected, err := h.svc.Respond(ctx, owner, ex.ExchangeID, DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, domainExchange.StatusRejected, rejected.Status)
	assert.Equal(t, item.StatusAvailable, h.itemStatus(t, target.ItemID))

	extra := h.item(t, requester, "extra")
	attempts := map[string]func() error{
		"accept": func() error { _, err := h.svc.Respond(ctx, owner, ex.ExchangeID, DecisionAccept); return err },
		"reject": func() error { _, err := h.svc.Respond(ctx, owner, ex.ExchangeID, DecisionReject); return err },
		"modify": func() error {
			_, err := h.svc.Modify(ctx, requester, ex.ExchangeID, ModifyInput{OfferedItemIDs: []uuid.UUID{extra.ItemID}})
			return err
		},
		"counter": func() error {
			_, err := h.svc.AddCounterOffer(ctx, owner, ex.ExchangeID, []uuid.UUID{extra.ItemID})
			return err
		},
		"confirm": func() error { _, err := h.svc.Confirm(ctx, requester, ex.ExchangeID); return err },
		"cancel":  func() error { _, err := h.svc.Cancel(ctx, requester, ex.ExchangeID); return err },
	}
	for name, attempt := range attempts {
		t.Run(name, func(t *testing.T) {
			err := attempt()
			assert.True(t, domainExchange.IsInvalidState(err), "got %v", err)
		})
	}
	assert.Equal(t, domainExchange.StatusRejected, h.reload(t, ex.ExchangeID).Status)
	assert.Len(t, h.systemMessages(t, ex.ExchangeID), 2)
}

func TestService_Modify(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the offer while pending", func(t *testing.T) {
		h := newHarness(t)
		owner, requester := h.user(t, "olivia"), h.user(t, "ryan")
		target := h.item(t, owner, "bike")
		ex, err := h.svc.Create(ctx, requester, proposal.BuildInput{
			RequestedItemID: target.ItemID,
			OtherItems:      []proposal.OtherItemDraft{{Description: "Old guitar"}, {Description: "Records"}},
		})
		require.NoError(t, err)
		keep := ex.OfferedOtherItems()[0]
		lamp := h.item(t, requester, "lamp")

		modified, err := h.svc.Modify(ctx, requester, ex.ExchangeID, ModifyInput{
			OfferedItemIDs:   []uuid.UUID{lamp.ItemID},
			KeepOtherItemIDs: []uuid.UUID{keep.OtherItemID},
			Message:          "better deal",
		})
		require.NoError(t, err)
		assert.Equal(t, domainExchange.StatusPending, modified.Status)
		assert.Equal(t, []uuid.UUID{lamp.ItemID, keep.OtherItemID}, modified.OfferedItemIDs())
		assert.Equal(t, "better deal", modified.Message)

		msgs := h.systemMessages(t, ex.ExchangeID)
		require.Len(t, msgs, 2)
		assert.Equal(t, notification.SystemMessage(domainExchange.EventModified, modified), msgs[1])
	})

	t.Run("keeping only existing other items", func(t *testing.T) {
		h := newHarness(t)
		owner, requester := h.user(t, "olivia"), h.user(t, "ryan")
		ex, err := h.svc.Create(ctx, requester, proposal.BuildInput{
			RequestedItemID: h.item(t, owner, "bike").ItemID,
			OtherItems:      []proposal.OtherItemDraft{{Description: "Old guitar"}, {Description: "Records"}},
		})
		require.NoError(t, err)
		keep := ex.OfferedOtherItems()[1]

		modified, err := h.svc.Modify(ctx, requester, ex.ExchangeID, ModifyInput{KeepOtherItemIDs: []uuid.UUID{keep.OtherItemID}})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{keep.OtherItemID}, modified.OfferedItemIDs())

		_, err = h.svc.Modify(ctx, requester, ex.ExchangeID, ModifyInput{KeepOtherItemIDs: []uuid.UUID{uuid.New()}})
		assert.ErrorIs(t, err, domainExchange.ErrOfferedNotFound)
		_, err = h.svc.Modify(ctx, requester, ex.ExchangeID, ModifyInput{})
		assert.ErrorIs(t, err, domainExchange.ErrEmptyOffer)
	})

	t.Run("only the requester", func(t *testing.T) {
		h := newHarness(t)
		owner, requester := h.user(t, "olivia"), h.user(t, "ryan")
		ex := h.propose(t, requester, h.item(t, owner, "bike"))
		_, err := h.svc.Modify(ctx, owner, ex.ExchangeID, ModifyInput{OtherItems: []proposal.OtherItemDraft{{Description: "x"}}})
		assert.ErrorIs(t, err, domainExchange.ErrUnauthorized)
	})

	t.Run("fails after accept", func(t *testing.T) {
		h := newHarness(t)
		owner, requester := h.user(t, "olivia"), h.user(t, "ryan")
		ex := h.propose(t, requester, h.item(t, owner, "bike"))
		_, err := h.svc.Respond(ctx, owner, ex.ExchangeID, DecisionAccept)
		require.NoError(t, err)

		_, err = h.svc.Modify(ctx, requester, ex.ExchangeID, ModifyInput{OtherItems: []proposal.OtherItemDraft{{Description: "x"}}})
		var ist *domainExchange.InvalidStateTransitionError
		require.ErrorAs(t, err, &ist)
		assert.Equal(t, domainExchange.TransitionModify, ist.Transition)
		assert.Equal(t, domainExchange.StatusAccepted, ist.Current)
	})

	t.Run("uploads images only when the change commits", func(t *testing.T) {
		images := &countingProcessor{}
		h := newHarnessWithImages(t, images)
		owner, requester := h.user(t, "olivia"), h.user(t, "ryan")
		ex := h.propose(t, requester, h.item(t, owner, "bike"))
		drafts := []proposal.OtherItemDraft{{
			Description: "lamp",
			Images:      []image.Upload{{Name: "lamp.jpg", Data: []byte{0xff, 0xd8, 0xff}}},
		}}

		modified, err := h.svc.Modify(ctx, requester, ex.ExchangeID, ModifyInput{OtherItems: drafts})
		require.NoError(t, err)
		require.Len(t, modified.OfferedOtherItems(), 1)
		assert.Len(t, modified.OfferedOtherItems()[0].Images, 1)
		assert.Equal(t, 1, images.calls())

		_, err = h.svc.Respond(ctx, owner, ex.ExchangeID, DecisionAccept)
		require.NoError(t, err)
		_, err = h.svc.Modify(ctx, requester, ex.ExchangeID, ModifyInput{OtherItems: drafts})
		assert.True(t, domainExchange.IsInvalidState(err))
		assert.Equal(t, 1, images.calls())
	})
}

func TestService_AddCounterOffer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner, requester := h.user(t, "olivia"), h.user(t, "ryan")
	target := h.item(t, owner, "bike")
	ex := h.propose(t, requester, target)
	helmet := h.item(t, requester, "helmet")

	updated, err := h.svc.AddCounterOffer(ctx, owner, ex.ExchangeID, []uuid.UUID{helmet.ItemID, ex.OfferedItemIDs()[0]})
	require.NoError(t, err)
	assert.Equal(t, domainExchange.StatusPending, updated.Status)
	assert.Equal(t, append(ex.OfferedItemIDs(), helmet.ItemID), updated.OfferedItemIDs())
	assert.Len(t, h.systemMessages(t, ex.ExchangeID), 2)

	t.Run("nothing new", func(t *testing.T) {
		_, err := h.svc.AddCounterOffer(ctx, owner, ex.ExchangeID, []uuid.UUID{helmet.ItemID})
		assert.ErrorIs(t, err, domainExchange.ErrNothingToAdd)
	})
	t.Run("item outside the requester's catalog", func(t *testing.T) {
		mine := h.item(t, owner, "sofa")
		_, err := h.svc.AddCounterOffer(ctx, owner, ex.ExchangeID, []uuid.UUID{mine.ItemID, uuid.New()})
		assert.ErrorIs(t, err, domainExchange.ErrOfferNotOwned)
		assert.ErrorIs(t, err, domainExchange.ErrOfferedNotFound)
		assert.Len(t, h.reload(t, ex.ExchangeID).Offered, 2)
	})
	t.Run("requester may not counter", func(t *testing.T) {
		_, err := h.svc.AddCounterOffer(ctx, requester, ex.ExchangeID, []uuid.UUID{h.item(t, requester, "cap").ItemID})
		assert.ErrorIs(t, err, domainExchange.ErrUnauthorized)
	})
}

func TestService_Cancel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner, requester := h.user(t, "olivia"), h.user(t, "ryan")
	ex := h.propose(t, requester, h.item(t, owner, "bike"))

	_, err := h.svc.Cancel(ctx, owner, ex.ExchangeID)
	assert.ErrorIs(t, err, domainExchange.ErrUnauthorized)

	cancelled, err := h.svc.Cancel(ctx, requester, ex.ExchangeID)
	require.NoError(t, err)
	assert.Equal(t, domainExchange.StatusCancelled, cancelled.Status)

	n, err := h.bridge.CountPendingIncoming(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_Confirm(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner, requester := h.user(t, "olivia"), h.user(t, "ryan")
	target := h.item(t, owner, "bike")
	ex := h.propose(t, requester, target)

	_, err := h.svc.Confirm(ctx, requester, ex.ExchangeID)
	assert.True(t, domainExchange.IsInvalidState(err), "confirming a pending exchange")
	_, err = h.svc.Contacts(ctx, requester, ex.ExchangeID)
	assert.ErrorIs(t, err, domainExchange.ErrContactsLocked)

	_, err = h.svc.Respond(ctx, owner, ex.ExchangeID, DecisionAccept)
	require.NoError(t, err)

	got, err := h.svc.Confirm(ctx, requester, ex.ExchangeID)
	require.NoError(t, err)
	assert.True(t, got.ConfirmedByRequester)
	assert.False(t, got.ConfirmedByOwner)
	assert.Equal(t, domainExchange.StatusAccepted, got.Status)
	assert.Equal(t, item.StatusReserved, h.itemStatus(t, target.ItemID))

	again, err := h.svc.Confirm(ctx, requester, ex.ExchangeID)
	require.NoError(t, err)
	assert.Equal(t, got.Version, again.Version)

	_, err = h.svc.Confirm(ctx, uuid.New(), ex.ExchangeID)
	assert.ErrorIs(t, err, domainExchange.ErrUnauthorized)

	done, err := h.svc.Confirm(ctx, owner, ex.ExchangeID)
	require.NoError(t, err)
	assert.Equal(t, domainExchange.StatusCompleted, done.Status)
	assert.Equal(t, item.StatusExchanged, h.itemStatus(t, target.ItemID))

	for _, actor := range []uuid.UUID{owner, requester} {
		repeat, err := h.svc.Confirm(ctx, actor, ex.ExchangeID)
		require.NoError(t, err)
		assert.Equal(t, domainExchange.StatusCompleted, repeat.Status)
	}

	// created, accepted, confirmed, completed
	msgs := h.systemMessages(t, ex.ExchangeID)
	require.Len(t, msgs, 4)
	assert.Equal(t, notification.SystemMessage(domainExchange.EventCompleted, done), msgs[3])

	ownerView, err := h.svc.Contacts(ctx, owner, ex.ExchangeID)
	require.NoError(t, err)
	assert.Equal(t, requester, ownerView.UserID)
	assert.Equal(t, "ryan@barter.test", ownerView.Email)
	requesterView, err := h.svc.Contacts(ctx, requester, ex.ExchangeID)
	require.NoError(t, err)
	assert.Equal(t, "olivia@barter.test", requesterView.Email)
	assert.NotEmpty(t, requesterView.Phone)
}

func TestService_ConfirmWithin(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner, requester := h.user(t, "olivia"), h.user(t, "ryan")
	target := h.item(t, owner, "bike")
	ex := h.propose(t, requester, target)
	_, err := h.svc.Respond(ctx, owner, ex.ExchangeID, DecisionAccept)
	require.NoError(t, err)
	_, err = h.svc.Confirm(ctx, requester, ex.ExchangeID)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = h.svc.ConfirmWithin(ctx, owner, ex.ExchangeID, func(ctx context.Context, ex *domainExchange.Exchange) error {
		assert.Equal(t, domainExchange.StatusCompleted, ex.Status)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	after := h.reload(t, ex.ExchangeID)
	assert.Equal(t, domainExchange.StatusAccepted, after.Status)
	assert.False(t, after.ConfirmedByOwner)
	assert.Equal(t, item.StatusReserved, h.itemStatus(t, target.ItemID))
	assert.Len(t, h.systemMessages(t, ex.ExchangeID), 3)

	calls := 0
	_, err = h.svc.ConfirmWithin(ctx, requester, ex.ExchangeID, func(context.Context, *domainExchange.Exchange) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "hook runs even when the confirmation itself is a repeat")
}

func TestService_Queries(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner, requester := h.user(t, "olivia"), h.user(t, "ryan")
	target := h.item(t, owner, "bike")
	ex := h.propose(t, requester, target)
	h.propose(t, owner, h.item(t, requester, "kayak"))

	t.Run("poll is read-only", func(t *testing.T) {
		first, err := h.svc.Poll(ctx, owner, ex.ExchangeID, nil)
		require.NoError(t, err)
		second, err := h.svc.Poll(ctx, owner, ex.ExchangeID, nil)
		require.NoError(t, err)
		assert.Equal(t, first.Exchange.Exchange.Version, second.Exchange.Exchange.Version)
		assert.Len(t, second.Messages, 1)
		assert.False(t, second.ContactsVisible)
		assert.Nil(t, second.Counterparty)
		assert.Equal(t, "bike", second.Exchange.RequestedItem.Item.Title)

		since := first.Messages[0].CreatedAt
		none, err := h.svc.Poll(ctx, owner, ex.ExchangeID, &since)
		require.NoError(t, err)
		assert.Empty(t, none.Messages)
	})

	t.Run("strangers see nothing", func(t *testing.T) {
		_, err := h.svc.Poll(ctx, uuid.New(), ex.ExchangeID, nil)
		assert.ErrorIs(t, err, domainExchange.ErrUnauthorized)
		_, err = h.svc.Get(ctx, uuid.New(), ex.ExchangeID)
		assert.ErrorIs(t, err, domainExchange.ErrUnauthorized)
	})

	t.Run("boxes", func(t *testing.T) {
		all, total, err := h.svc.List(ctx, owner, ListQuery{})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, all, 2)

		incoming, total, err := h.svc.List(ctx, owner, ListQuery{Box: BoxIncoming})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, ex.ExchangeID, incoming[0].Exchange.ExchangeID)

		pending := domainExchange.StatusPending
		outgoing, _, err := h.svc.List(ctx, owner, ListQuery{Box: BoxOutgoing, Status: &pending})
		require.NoError(t, err)
		require.Len(t, outgoing, 1)
		assert.Equal(t, owner, outgoing[0].Exchange.RequesterID)

		_, _, err = h.svc.List(ctx, owner, ListQuery{Box: "sideways"})
		assert.ErrorIs(t, err, ErrInvalidBox)
	})
}
