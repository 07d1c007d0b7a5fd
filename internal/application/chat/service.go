package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domain "github.com/barter-hub/barter-hub/internal/domain/chat"
	"github.com/barter-hub/barter-hub/internal/domain/exchange"
)

// Notifier pushes a hint about a new user message to the other party.
type Notifier interface {
	NotifyMessage(ex *exchange.Exchange, msg *domain.Message)
}

// Service handles the chat thread attached to each exchange. Only the two
// parties may read or write it.
type Service struct {
	repo      domain.Repository
	exchanges exchange.Repository
	notifier  Notifier
	logger    zerolog.Logger
}

func NewService(repo domain.Repository, exchanges exchange.Repository, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		exchanges: exchanges,
		notifier:  notifier,
		logger:    logger.With().Str("service", "chat").Logger(),
	}
}

func (s *Service) SendMessage(ctx context.Context, senderID, exchangeID uuid.UUID, text string) (*domain.Message, error) {
	ex, err := s.party(ctx, senderID, exchangeID)
	if err != nil {
		return nil, err
	}
	msg, err := domain.NewUserMessage(exchangeID, senderID, text, time.Now().UTC())
	if err != nil {
		return nil, exchange.Invalid(err)
	}
	if err := s.repo.Append(ctx, msg); err != nil {
		return nil, err
	}
	// Sending implies the sender has seen the thread so far.
	if err := s.repo.MarkRead(ctx, exchangeID, senderID, msg.CreatedAt); err != nil {
		s.logger.Warn().Err(err).Str("exchange_id", exchangeID.String()).Msg("failed to mark thread read")
	}
	if s.notifier != nil {
		s.notifier.NotifyMessage(ex, msg)
	}
	return msg, nil
}

// ListMessages returns the thread oldest first. A non-nil since limits it to
// newer messages.
func (s *Service) ListMessages(ctx context.Context, userID, exchangeID uuid.UUID, since *time.Time, limit int) ([]*domain.Message, error) {
	if _, err := s.party(ctx, userID, exchangeID); err != nil {
		return nil, err
	}
	return s.repo.ListByExchange(ctx, exchangeID, since, limit)
}

func (s *Service) MarkRead(ctx context.Context, userID, exchangeID uuid.UUID) error {
	if _, err := s.party(ctx, userID, exchangeID); err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, exchangeID, userID, time.Now().UTC())
}

func (s *Service) party(ctx context.Context, userID, exchangeID uuid.UUID) (*exchange.Exchange, error) {
	ex, err := s.exchanges.GetByID(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	if ex == nil {
		return nil, exchange.ErrNotFound
	}
	if !ex.IsParty(userID) {
		return nil, exchange.ErrUnauthorized
	}
	return ex, nil
}
