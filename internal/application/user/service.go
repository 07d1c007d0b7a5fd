package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domainRating "github.com/barter-hub/barter-hub/internal/domain/rating"
	domain "github.com/barter-hub/barter-hub/internal/domain/user"
)

const maxDisplayNameLength = 64

// Service handles member accounts and their reputation.
type Service struct {
	repo   domain.Repository
	logger zerolog.Logger
}

// NewService creates a user service.
func NewService(repo domain.Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("service", "user").Logger(),
	}
}

// RegisterInput defines sign-up input.
type RegisterInput struct {
	Username    string
	Password    string
	DisplayName string
	Email       string
	Phone       string
}

// ContactInput changes profile fields. Nil fields are left alone.
type ContactInput struct {
	DisplayName *string
	Email       *string
	Phone       *string
}

// Profile is the public view of a member.
type Profile struct {
	UserID          uuid.UUID `json:"userId"`
	Username        string    `json:"username"`
	DisplayName     string    `json:"displayName"`
	Reputation      float64   `json:"reputation"`
	ReputationCount int64     `json:"reputationCount"`
	MemberSince     time.Time `json:"memberSince"`
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	username := domain.NormalizeUsername(input.Username)
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(input.Password, username); err != nil {
		return nil, err
	}
	displayName, err := normalizeDisplayName(input.DisplayName, username)
	if err != nil {
		return nil, err
	}
	email := strings.TrimSpace(input.Email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	phone := strings.TrimSpace(input.Phone)
	if err := domain.ValidatePhone(phone); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrUsernameTaken
	}

	hash, err := domain.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u := &domain.User{
		UserID:       uuid.New(),
		Username:     username,
		DisplayName:  displayName,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", u.UserID.String()).Str("username", u.Username).Msg("user registered")
	return u, nil
}

func (s *Service) UpdateContact(ctx context.Context, userID uuid.UUID, input ContactInput) (*domain.User, error) {
	u, err := s.mustGet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if input.DisplayName != nil {
		name, err := normalizeDisplayName(*input.DisplayName, u.Username)
		if err != nil {
			return nil, err
		}
		u.DisplayName = name
	}
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if err := domain.ValidateEmail(email); err != nil {
			return nil, err
		}
		u.Email = email
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if err := domain.ValidatePhone(phone); err != nil {
			return nil, err
		}
		u.Phone = phone
	}
	u.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) SetPassword(ctx context.Context, userID uuid.UUID, password string) error {
	u, err := s.mustGet(ctx, userID)
	if err != nil {
		return err
	}
	if err := domain.ValidatePassword(password, u.Username); err != nil {
		return err
	}
	hash, err := domain.HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, u)
}

// UpdateReputation folds one received score into userID's aggregate. It
// joins the caller's unit of work when ctx carries one.
func (s *Service) UpdateReputation(ctx context.Context, userID uuid.UUID, score int, comment *string) error {
	if !domainRating.ValidScore(score) {
		return fmt.Errorf("score %d outside %d..%d", score, domainRating.MinScore, domainRating.MaxScore)
	}
	if err := s.repo.AddRating(ctx, userID, score, time.Now().UTC()); err != nil {
		return err
	}
	s.logger.Debug().
		Str("user_id", userID.String()).
		Int("score", score).
		Bool("commented", comment != nil).
		Msg("reputation updated")
	return nil
}

func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.repo.GetByID(ctx, userID)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.repo.GetByUsername(ctx, domain.NormalizeUsername(username))
}

func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	u, err := s.mustGet(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		UserID:          u.UserID,
		Username:        u.Username,
		DisplayName:     u.DisplayName,
		Reputation:      u.Reputation(),
		ReputationCount: u.ReputationCount,
		MemberSince:     u.CreatedAt,
	}, nil
}

func (s *Service) mustGet(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, userID)
	}
	return u, nil
}

func normalizeDisplayName(name, fallback string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback, nil
	}
	if len(name) > maxDisplayNameLength {
		return "", fmt.Errorf("display name must be at most %d characters", maxDisplayNameLength)
	}
	return name, nil
}
