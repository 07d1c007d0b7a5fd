package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/barter-hub/barter-hub/internal/application/proposal"
	"github.com/barter-hub/barter-hub/internal/application/resolver"
	"github.com/barter-hub/barter-hub/internal/application/uow"
	"github.com/barter-hub/barter-hub/internal/domain/chat"
	domainExchange "github.com/barter-hub/barter-hub/internal/domain/exchange"
	"github.com/barter-hub/barter-hub/internal/domain/item"
	"github.com/barter-hub/barter-hub/internal/domain/user"
)

// Notifier is told about every committed transition.
type Notifier interface {
	OnTransition(ctx context.Context, ex *domainExchange.Exchange, kind domainExchange.EventKind, actorID *uuid.UUID)
}

// Locker serializes work on a key.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Decision is the owner's answer to a pending proposal.
type Decision string

const (
	DecisionAccept Decision = "ACCEPT"
	DecisionReject Decision = "REJECT"
)

// Service runs exchange transitions. Every mutating call holds the lock of
// the requested item, so all exchanges on one item share a single writer.
type Service struct {
	repo     domainExchange.Repository
	items    item.Repository
	chat     chat.Repository
	users    user.Repository
	builder  *proposal.Builder
	resolver *resolver.Resolver
	notifier Notifier
	tx       uow.Runner
	locker   Locker
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates an exchange service.
func NewService(
	repo domainExchange.Repository,
	items item.Repository,
	chatRepo chat.Repository,
	users user.Repository,
	builder *proposal.Builder,
	res *resolver.Resolver,
	notifier Notifier,
	tx uow.Runner,
	locker Locker,
	logger zerolog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		items:    items,
		chat:     chatRepo,
		users:    users,
		builder:  builder,
		resolver: res,
		notifier: notifier,
		tx:       tx,
		locker:   locker,
		logger:   logger.With().Str("service", "exchange").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func itemKey(itemID uuid.UUID) string {
	return "item:" + itemID.String()
}

// Create submits a new proposal. The requested item is re-checked under its
// lock, so a proposal racing an acceptance fails with ErrItemNotAvailable.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, in proposal.BuildInput) (*domainExchange.Exchange, error) {
	in.ProposerID = actorID
	p, err := s.builder.Build(ctx, in)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, itemKey(p.RequestedItem.ItemID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	requested, err := s.items.GetByID(ctx, p.RequestedItem.ItemID)
	if err != nil {
		return nil, err
	}
	if requested == nil {
		return nil, item.ErrNotFound
	}
	if !requested.IsAvailable() {
		return nil, fmt.Errorf("%w: requested item %s is %s", domainExchange.ErrItemNotAvailable, requested.ItemID, requested.Status)
	}

	ex, err := domainExchange.New(domainExchange.NewParams{
		OwnerID:         requested.OwnerID,
		RequesterID:     actorID,
		RequestedItemID: requested.ItemID,
		Offered:         p.Offered,
		Message:         p.Message,
		Now:             s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.tx.Do(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, ex)
	}); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("exchangeId", ex.ExchangeID.String()).
		Str("itemId", ex.RequestedItemID.String()).
		Int("offered", len(ex.Offered)).
		Msg("exchange proposed")
	s.notifier.OnTransition(ctx, ex, domainExchange.EventCreated, &actorID)
	return ex, nil
}

// Respond accepts or rejects a pending proposal. Accepting reserves the item
// and auto-rejects every other pending proposal on it.
func (s *Service) Respond(ctx context.Context, actorID, exchangeID uuid.UUID, decision Decision) (*domainExchange.Exchange, error) {
	switch decision {
	case DecisionAccept:
		return s.accept(ctx, actorID, exchangeID)
	case DecisionReject:
		return s.reject(ctx, actorID, exchangeID)
	default:
		return nil, domainExchange.Invalid(domainExchange.ErrInvalidDecision)
	}
}

func (s *Service) accept(ctx context.Context, actorID, exchangeID uuid.UUID) (*domainExchange.Exchange, error) {
	ex, unlock, err := s.lockExchange(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now()
	if err := ex.Accept(actorID, now); err != nil {
		return nil, err
	}
	requested, err := s.items.GetByID(ctx, ex.RequestedItemID)
	if err != nil {
		return nil, err
	}
	if requested == nil {
		return nil, item.ErrNotFound
	}
	if !requested.CanTransitionTo(item.StatusReserved) {
		return nil, fmt.Errorf("%w: requested item %s is %s", domainExchange.ErrItemNotAvailable, requested.ItemID, requested.Status)
	}

	pending := domainExchange.StatusPending
	siblings, err := s.repo.List(ctx, domainExchange.Filter{RequestedItemID: &ex.RequestedItemID, Status: &pending}, 0, 0)
	if err != nil {
		return nil, err
	}
	rejected := make([]*domainExchange.Exchange, 0, len(siblings))
	for _, sib := range siblings {
		if sib.ExchangeID == ex.ExchangeID {
			continue
		}
		if err := sib.AutoReject(now); err != nil {
			return nil, err
		}
		rejected = append(rejected, sib)
	}

	if err := s.tx.Do(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, ex); err != nil {
			return err
		}
		if err := s.items.UpdateStatus(ctx, ex.RequestedItemID, item.StatusReserved, now); err != nil {
			return err
		}
		for _, sib := range rejected {
			if err := s.repo.Update(ctx, sib); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("exchangeId", ex.ExchangeID.String()).
		Str("itemId", ex.RequestedItemID.String()).
		Int("autoRejected", len(rejected)).
		Msg("exchange accepted")
	s.notifier.OnTransition(ctx, ex, domainExchange.EventAccepted, &actorID)
	for _, sib := range rejected {
		s.notifier.OnTransition(ctx, sib, domainExchange.EventAutoRejected, nil)
	}
	return ex, nil
}

func (s *Service) reject(ctx context.Context, actorID, exchangeID uuid.UUID) (*domainExchange.Exchange, error) {
	return s.transition(ctx, exchangeID, domainExchange.EventRejected, &actorID, func(ex *domainExchange.Exchange, now time.Time) error {
		return ex.Reject(actorID, now)
	})
}

// Cancel withdraws a pending proposal on behalf of its requester.
func (s *Service) Cancel(ctx context.Context, actorID, exchangeID uuid.UUID) (*domainExchange.Exchange, error) {
	return s.transition(ctx, exchangeID, domainExchange.EventCancelled, &actorID, func(ex *domainExchange.Exchange, now time.Time) error {
		return ex.Cancel(actorID, now)
	})
}

// ModifyInput replaces the offered side of a pending proposal. Ad-hoc entries
// already attached to the exchange survive only when listed in
// KeepOtherItemIDs.
type ModifyInput struct {
	OfferedItemIDs   []uuid.UUID
	OtherItems       []proposal.OtherItemDraft
	KeepOtherItemIDs []uuid.UUID
	Message          string
}

// Modify lets the requester rework a pending proposal in place. Ad-hoc
// images are uploaded under the item lock, after the transition guards have
// passed on a fresh read.
func (s *Service) Modify(ctx context.Context, actorID, exchangeID uuid.UUID, in ModifyInput) (*domainExchange.Exchange, error) {
	current, err := s.get(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	// Guards first, so a stranger never reaches validation.
	if err := current.Clone().Modify(actorID, current.Offered, current.Message, s.now()); err != nil {
		return nil, err
	}
	if _, err := keepOtherItems(current, in.KeepOtherItemIDs); err != nil {
		return nil, err
	}
	requested, err := s.items.GetByID(ctx, current.RequestedItemID)
	if err != nil {
		return nil, err
	}
	if requested == nil {
		return nil, item.ErrNotFound
	}

	var offer *proposal.Offer
	if len(in.OfferedItemIDs)+len(in.OtherItems) > 0 || len(in.KeepOtherItemIDs) == 0 {
		offer, err = s.builder.CheckOffer(ctx, actorID, requested, in.OfferedItemIDs, in.OtherItems)
		if err != nil {
			return nil, err
		}
	}

	return s.transition(ctx, exchangeID, domainExchange.EventModified, &actorID, func(ex *domainExchange.Exchange, now time.Time) error {
		if err := ex.Clone().Modify(actorID, ex.Offered, ex.Message, now); err != nil {
			return err
		}
		kept, err := keepOtherItems(ex, in.KeepOtherItemIDs)
		if err != nil {
			return err
		}
		var offered []domainExchange.OfferedEntity
		if offer != nil {
			if offered, err = s.builder.Materialize(ctx, offer); err != nil {
				return err
			}
		}
		return ex.Modify(actorID, append(offered, kept...), in.Message, now)
	})
}

func keepOtherItems(ex *domainExchange.Exchange, ids []uuid.UUID) ([]domainExchange.OfferedEntity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	byID := make(map[uuid.UUID]domainExchange.OfferedEntity)
	for _, o := range ex.Offered {
		if !o.IsCatalog() {
			byID[o.ItemID] = o
		}
	}
	kept := make([]domainExchange.OfferedEntity, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		o, ok := byID[id]
		if !ok {
			return nil, domainExchange.Invalid(fmt.Errorf("%w: %s", domainExchange.ErrOfferedNotFound, id))
		}
		kept = append(kept, o)
	}
	return kept, nil
}

// AddCounterOffer lets the owner ask for more of the requester's catalog
// items on top of the current offer.
func (s *Service) AddCounterOffer(ctx context.Context, actorID, exchangeID uuid.UUID, itemIDs []uuid.UUID) (*domainExchange.Exchange, error) {
	ex, unlock, err := s.lockExchange(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now()
	added, err := ex.AddCounterOffer(actorID, itemIDs, now)
	if err != nil {
		return nil, err
	}
	var errs []error
	for _, id := range added {
		it, err := s.items.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		switch {
		case it == nil:
			errs = append(errs, fmt.Errorf("%w: %s", domainExchange.ErrOfferedNotFound, id))
		case !it.IsOwnedBy(ex.RequesterID):
			errs = append(errs, fmt.Errorf("%w: %s", domainExchange.ErrOfferNotOwned, id))
		case !it.IsAvailable():
			return nil, fmt.Errorf("%w: item %s is %s", domainExchange.ErrItemNotAvailable, id, it.Status)
		}
	}
	if err := domainExchange.Invalid(errs...); err != nil {
		return nil, err
	}

	if err := s.tx.Do(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, ex)
	}); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("exchangeId", ex.ExchangeID.String()).
		Int("added", len(added)).
		Msg("counter-offer added")
	s.notifier.OnTransition(ctx, ex, domainExchange.EventCounterOffered, &actorID)
	return ex, nil
}

// ConfirmHook runs inside the unit of work of a confirmation, after the
// exchange has been checked and before anything is written. An error from it
// aborts the confirmation.
type ConfirmHook func(ctx context.Context, ex *domainExchange.Exchange) error

// Confirm records the caller's confirmation. Repeats are no-ops.
func (s *Service) Confirm(ctx context.Context, actorID, exchangeID uuid.UUID) (*domainExchange.Exchange, error) {
	return s.ConfirmWithin(ctx, actorID, exchangeID, nil)
}

// ConfirmWithin confirms for actorID and commits hook's writes in the same
// unit. The second distinct party completes the exchange and marks the item
// EXCHANGED.
func (s *Service) ConfirmWithin(ctx context.Context, actorID, exchangeID uuid.UUID, hook ConfirmHook) (*domainExchange.Exchange, error) {
	ex, unlock, err := s.lockExchange(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now()
	outcome, err := ex.Confirm(actorID, now)
	if err != nil {
		return nil, err
	}
	if outcome == domainExchange.ConfirmUnchanged && hook == nil {
		return ex, nil
	}

	if err := s.tx.Do(ctx, func(ctx context.Context) error {
		if hook != nil {
			if err := hook(ctx, ex); err != nil {
				return err
			}
		}
		if outcome == domainExchange.ConfirmUnchanged {
			return nil
		}
		if err := s.repo.Update(ctx, ex); err != nil {
			return err
		}
		if outcome == domainExchange.ConfirmCompleted {
			return s.items.UpdateStatus(ctx, ex.RequestedItemID, item.StatusExchanged, now)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	switch outcome {
	case domainExchange.ConfirmCompleted:
		s.logger.Info().Str("exchangeId", ex.ExchangeID.String()).Msg("exchange completed")
		s.notifier.OnTransition(ctx, ex, domainExchange.EventCompleted, &actorID)
	case domainExchange.ConfirmRecorded:
		s.logger.Info().
			Str("exchangeId", ex.ExchangeID.String()).
			Str("userId", actorID.String()).
			Msg("exchange confirmed")
		s.notifier.OnTransition(ctx, ex, domainExchange.EventConfirmed, &actorID)
	}
	return ex, nil
}

// transition applies one single-exchange change under the item lock and
// commits it.
func (s *Service) transition(
	ctx context.Context,
	exchangeID uuid.UUID,
	kind domainExchange.EventKind,
	actorID *uuid.UUID,
	apply func(ex *domainExchange.Exchange, now time.Time) error,
) (*domainExchange.Exchange, error) {
	ex, unlock, err := s.lockExchange(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := apply(ex, s.now()); err != nil {
		return nil, err
	}
	if err := s.tx.Do(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, ex)
	}); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("exchangeId", ex.ExchangeID.String()).
		Str("transition", string(kind)).
		Str("status", string(ex.Status)).
		Msg("exchange updated")
	s.notifier.OnTransition(ctx, ex, kind, actorID)
	return ex, nil
}

// lockExchange takes the lock of the exchange's requested item and returns a
// fresh read made under it.
func (s *Service) lockExchange(ctx context.Context, exchangeID uuid.UUID) (*domainExchange.Exchange, func(), error) {
	ex, err := s.get(ctx, exchangeID)
	if err != nil {
		return nil, nil, err
	}
	unlock, err := s.locker.Lock(ctx, itemKey(ex.RequestedItemID))
	if err != nil {
		return nil, nil, err
	}
	ex, err = s.get(ctx, exchangeID)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return ex, unlock, nil
}

func (s *Service) get(ctx context.Context, exchangeID uuid.UUID) (*domainExchange.Exchange, error) {
	ex, err := s.repo.GetByID(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	if ex == nil {
		return nil, domainExchange.ErrNotFound
	}
	return ex, nil
}
