package rating

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appExchange "github.com/barter-hub/barter-hub/internal/application/exchange"
	"github.com/barter-hub/barter-hub/internal/domain/exchange"
	domainRating "github.com/barter-hub/barter-hub/internal/domain/rating"
)

// Confirmer confirms an exchange and commits extra writes in the same unit.
type Confirmer interface {
	ConfirmWithin(ctx context.Context, actorID, exchangeID uuid.UUID, hook appExchange.ConfirmHook) (*exchange.Exchange, error)
}

// Reputation records a score against a user's aggregate.
type Reputation interface {
	UpdateReputation(ctx context.Context, userID uuid.UUID, score int, comment *string) error
}

// Service is the completion gate: rating an exchange also confirms it.
type Service struct {
	ratings    domainRating.Repository
	reputation Reputation
	confirmer  Confirmer
	logger     zerolog.Logger
}

func NewService(ratings domainRating.Repository, reputation Reputation, confirmer Confirmer, logger zerolog.Logger) *Service {
	return &Service{
		ratings:    ratings,
		reputation: reputation,
		confirmer:  confirmer,
		logger:     logger.With().Str("service", "rating").Logger(),
	}
}

// RateAndComplete confirms exchangeID for actorID and records a score for the
// counterparty. The exchange must be ACCEPTED or COMPLETED. Each party rates
// an exchange once; a second attempt fails with ErrAlreadyRated and changes
// nothing.
func (s *Service) RateAndComplete(ctx context.Context, actorID, exchangeID uuid.UUID, score int, comment string) (*domainRating.Rating, *exchange.Exchange, error) {
	if !domainRating.ValidScore(score) {
		return nil, nil, exchange.Invalid(fmt.Errorf("%w: got %d", exchange.ErrInvalidRating, score))
	}

	var created *domainRating.Rating
	ex, err := s.confirmer.ConfirmWithin(ctx, actorID, exchangeID, func(ctx context.Context, ex *exchange.Exchange) error {
		rated, err := s.ratings.Exists(ctx, ex.ExchangeID, actorID)
		if err != nil {
			return err
		}
		if rated {
			return exchange.ErrAlreadyRated
		}
		now := time.Now().UTC()
		r := domainRating.New(ex.ExchangeID, actorID, ex.Counterparty(actorID), score, comment, now)
		if err := s.ratings.Create(ctx, r); err != nil {
			return err
		}
		if err := s.reputation.UpdateReputation(ctx, r.RatedUserID, r.Score, r.Comment); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().
		Str("exchangeId", exchangeID.String()).
		Str("ratedUserId", created.RatedUserID.String()).
		Int("score", score).
		Msg("exchange rated")
	return created, ex, nil
}

// ListReceived returns ratings userID received, newest first.
func (s *Service) ListReceived(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domainRating.Rating, error) {
	return s.ratings.ListByRatedUser(ctx, userID, limit, offset)
}
