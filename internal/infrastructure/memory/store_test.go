package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barter-hub/barter-hub/internal/domain/chat"
	"github.com/barter-hub/barter-hub/internal/domain/exchange"
	"github.com/barter-hub/barter-hub/internal/domain/item"
	"github.com/barter-hub/barter-hub/internal/domain/rating"
)

func newItem(t *testing.T, owner uuid.UUID, title string) *item.Item {
	t.Helper()
	i, err := item.New(owner, title, "", "misc", "used", "", []string{"img"})
	require.NoError(t, err)
	return i
}

func TestStore_DoCommitsAllWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	items := NewItemRepository(s)
	i := newItem(t, uuid.New(), "Lamp")
	require.NoError(t, items.Create(ctx, i))

	err := s.Do(ctx, func(ctx context.Context) error {
		require.NoError(t, items.UpdateStatus(ctx, i.ItemID, item.StatusReserved, time.Now().UTC()))
		got, err := items.GetByID(ctx, i.ItemID)
		require.NoError(t, err)
		assert.Equal(t, item.StatusAvailable, got.Status, "buffered write is not visible before commit")
		return nil
	})
	require.NoError(t, err)

	got, err := items.GetByID(ctx, i.ItemID)
	require.NoError(t, err)
	assert.Equal(t, item.StatusReserved, got.Status)
}

func TestStore_DoRollsBackOnFnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	items := NewItemRepository(s)
	i := newItem(t, uuid.New(), "Lamp")
	require.NoError(t, items.Create(ctx, i))

	boom := errors.New("boom")
	err := s.Do(ctx, func(ctx context.Context) error {
		_ = items.UpdateStatus(ctx, i.ItemID, item.StatusReserved, time.Now().UTC())
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := items.GetByID(ctx, i.ItemID)
	assert.Equal(t, item.StatusAvailable, got.Status)
}

func TestStore_DoRollsBackOnApplyError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	items := NewItemRepository(s)
	exchanges := NewExchangeRepository(s)

	i := newItem(t, uuid.New(), "Lamp")
	require.NoError(t, items.Create(ctx, i))
	ex, err := exchange.New(exchange.NewParams{
		OwnerID: i.OwnerID, RequesterID: uuid.New(), RequestedItemID: i.ItemID,
		Offered: []exchange.OfferedEntity{exchange.CatalogOffer(uuid.New())},
	})
	require.NoError(t, err)
	require.NoError(t, exchanges.Create(ctx, ex))

	stale := ex.Clone()
	ex.Status = exchange.StatusAccepted
	require.NoError(t, exchanges.Update(ctx, ex))

	err = s.Do(ctx, func(ctx context.Context) error {
		if err := items.UpdateStatus(ctx, i.ItemID, item.StatusReserved, time.Now().UTC()); err != nil {
			return err
		}
		stale.Status = exchange.StatusRejected
		return exchanges.Update(ctx, stale)
	})
	assert.ErrorIs(t, err, exchange.ErrConcurrentUpdate)

	got, _ := items.GetByID(ctx, i.ItemID)
	assert.Equal(t, item.StatusAvailable, got.Status, "item write rolled back with the failed exchange write")
	stored, _ := exchanges.GetByID(ctx, ex.ExchangeID)
	assert.Equal(t, exchange.StatusAccepted, stored.Status)
}

func TestExchangeRepository_VersionAndFilters(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewExchangeRepository(s)
	owner, requester, itemID := uuid.New(), uuid.New(), uuid.New()

	for range 3 {
		ex, err := exchange.New(exchange.NewParams{
			OwnerID: owner, RequesterID: requester, RequestedItemID: itemID,
			Offered: []exchange.OfferedEntity{exchange.CatalogOffer(uuid.New())},
		})
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, ex))
		assert.Equal(t, int64(1), ex.Version)
	}

	all, err := repo.List(ctx, exchange.Filter{ParticipantID: &requester}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Greater(t, all[0].ID, all[1].ID, "newest first")

	first := all[0]
	first.Status = exchange.StatusCancelled
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	pending := exchange.StatusPending
	n, err := repo.Count(ctx, exchange.Filter{OwnerID: &owner, Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	page, err := repo.List(ctx, exchange.Filter{RequestedItemID: &itemID}, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	missing, err := repo.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestChatRepository_Unread(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewChatRepository(s)
	exID, me, other := uuid.New(), uuid.New(), uuid.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(ctx, chat.NewSystemMessage(exID, "created", base)))
	mine, _ := chat.NewUserMessage(exID, me, "hi", base.Add(time.Minute))
	require.NoError(t, repo.Append(ctx, mine))
	theirs, _ := chat.NewUserMessage(exID, other, "hello", base.Add(2*time.Minute))
	require.NoError(t, repo.Append(ctx, theirs))

	n, err := repo.CountUnread(ctx, me, []uuid.UUID{exID})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, repo.MarkRead(ctx, exID, me, base.Add(90*time.Second)))
	n, _ = repo.CountUnread(ctx, me, []uuid.UUID{exID})
	assert.Equal(t, 1, n)

	require.NoError(t, repo.MarkRead(ctx, exID, me, base), "older mark is ignored")
	n, _ = repo.CountUnread(ctx, me, []uuid.UUID{exID})
	assert.Equal(t, 1, n)

	since := base.Add(time.Minute)
	tail, err := repo.ListByExchange(ctx, exID, &since, 0)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "hello", tail[0].Text)
}

func TestRatingRepository_UniquePerRater(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewRatingRepository(s)
	exID, rater, rated := uuid.New(), uuid.New(), uuid.New()

	require.NoError(t, repo.Create(ctx, rating.New(exID, rater, rated, 8, "", time.Now())))
	assert.ErrorIs(t, repo.Create(ctx, rating.New(exID, rater, rated, 3, "", time.Now())), exchange.ErrAlreadyRated)

	ok, err := repo.Exists(ctx, exID, rater)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = repo.Exists(ctx, exID, rated)
	assert.False(t, ok)
}
