package exchange

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/barter-hub/barter-hub/internal/application/resolver"
	"github.com/barter-hub/barter-hub/internal/domain/chat"
	domainExchange "github.com/barter-hub/barter-hub/internal/domain/exchange"
	"github.com/barter-hub/barter-hub/internal/domain/user"
)

// Box selects which side of a user's exchanges to list.
type Box string

const (
	BoxAll      Box = ""
	BoxIncoming Box = "incoming"
	BoxOutgoing Box = "outgoing"
)

var ErrInvalidBox = errors.New("box must be incoming or outgoing")

// ListQuery filters a user's exchanges.
type ListQuery struct {
	Box    Box
	Status *domainExchange.Status
	Limit  int
	Offset int
}

// PollResult is everything a client re-fetches on each refresh.
type PollResult struct {
	Exchange        *resolver.ExchangeView `json:"exchange"`
	Messages        []*chat.Message        `json:"messages"`
	ContactsVisible bool                   `json:"contactsVisible"`
	Counterparty    *user.Contact          `json:"counterparty,omitempty"`
}

const pollMessageLimit = 200

// Get returns an exchange visible to actorID.
func (s *Service) Get(ctx context.Context, actorID, exchangeID uuid.UUID) (*resolver.ExchangeView, error) {
	ex, err := s.visible(ctx, actorID, exchangeID)
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ctx, ex)
}

// List returns a page of actorID's exchanges, newest first, and the total.
func (s *Service) List(ctx context.Context, actorID uuid.UUID, q ListQuery) ([]*resolver.ExchangeView, int, error) {
	filter := domainExchange.Filter{Status: q.Status}
	switch q.Box {
	case BoxAll:
		filter.ParticipantID = &actorID
	case BoxIncoming:
		filter.OwnerID = &actorID
	case BoxOutgoing:
		filter.RequesterID = &actorID
	default:
		return nil, 0, ErrInvalidBox
	}
	if q.Status != nil {
		if err := domainExchange.ValidateStatus(*q.Status); err != nil {
			return nil, 0, err
		}
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	exchanges, err := s.repo.List(ctx, filter, q.Limit, q.Offset)
	if err != nil {
		return nil, 0, err
	}
	views, err := s.resolver.ResolveMany(ctx, exchanges)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// Poll returns the exchange and its chat. It never writes, so clients may
// call it at any interval. A non-nil since limits messages to newer ones.
func (s *Service) Poll(ctx context.Context, actorID, exchangeID uuid.UUID, since *time.Time) (*PollResult, error) {
	ex, err := s.visible(ctx, actorID, exchangeID)
	if err != nil {
		return nil, err
	}
	view, err := s.resolver.Resolve(ctx, ex)
	if err != nil {
		return nil, err
	}
	messages, err := s.chat.ListByExchange(ctx, exchangeID, since, pollMessageLimit)
	if err != nil {
		return nil, err
	}
	result := &PollResult{
		Exchange:        view,
		Messages:        messages,
		ContactsVisible: ex.ContactsVisible(),
	}
	if result.ContactsVisible {
		contact, err := s.contact(ctx, ex.Counterparty(actorID))
		if err != nil {
			return nil, err
		}
		result.Counterparty = contact
	}
	return result, nil
}

// Contacts discloses the counterparty's contact card once the exchange is
// completed.
func (s *Service) Contacts(ctx context.Context, actorID, exchangeID uuid.UUID) (*user.Contact, error) {
	ex, err := s.visible(ctx, actorID, exchangeID)
	if err != nil {
		return nil, err
	}
	if !ex.ContactsVisible() {
		return nil, domainExchange.ErrContactsLocked
	}
	return s.contact(ctx, ex.Counterparty(actorID))
}

func (s *Service) contact(ctx context.Context, userID uuid.UUID) (*user.Contact, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, user.ErrNotFound
	}
	c := u.Contact()
	return &c, nil
}

func (s *Service) visible(ctx context.Context, actorID, exchangeID uuid.UUID) (*domainExchange.Exchange, error) {
	ex, err := s.get(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	if !ex.IsParty(actorID) {
		return nil, domainExchange.ErrUnauthorized
	}
	return ex, nil
}
