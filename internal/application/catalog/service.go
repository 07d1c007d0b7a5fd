package catalog

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/barter-hub/barter-hub/internal/domain/image"
	"github.com/barter-hub/barter-hub/internal/domain/item"
)

const uploadConcurrency = 3

// Locker serializes writes to one item with the exchange engine.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Service manages catalog items for their owners. Status changes are left to
// the exchange engine.
type Service struct {
	repo   item.Repository
	images image.Processor
	locker Locker
	logger zerolog.Logger
}

// NewService creates a catalog service. images may be nil when only
// pre-uploaded references are accepted.
func NewService(repo item.Repository, images image.Processor, locker Locker, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		images: images,
		locker: locker,
		logger: logger.With().Str("service", "catalog").Logger(),
	}
}

// CreateInput defines a new listing. Images are uploaded, ImageRefs are
// already stored; together they must count 1..5.
type CreateInput struct {
	Title       string
	Description string
	Category    string
	Condition   string
	WishedItem  string
	Images      []image.Upload
	ImageRefs   []string
}

// UpdateInput changes listing fields. Nil fields are left alone.
type UpdateInput struct {
	Title       *string
	Description *string
	Category    *string
	Condition   *string
	WishedItem  *string
}

func (s *Service) CreateItem(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*item.Item, error) {
	total := len(input.Images) + len(input.ImageRefs)
	if total < item.MinImages {
		return nil, fmt.Errorf("an item needs at least %d image", item.MinImages)
	}
	if total > item.MaxImages {
		return nil, fmt.Errorf("%w: %d given, at most %d allowed", image.ErrTooMany, total, item.MaxImages)
	}
	if err := image.CheckBatch(input.Images); err != nil {
		return nil, err
	}

	// Fields are checked against placeholder refs so nothing is uploaded for
	// a listing that would be refused.
	it, err := item.New(ownerID, input.Title, input.Description, input.Category, input.Condition, input.WishedItem, make([]string, total))
	if err != nil {
		return nil, err
	}
	refs := append([]string(nil), input.ImageRefs...)
	uploaded, err := s.upload(ctx, path.Join("items", it.ItemID.String()), input.Images)
	if err != nil {
		return nil, err
	}
	it.Images = append(refs, uploaded...)

	if err := s.repo.Create(ctx, it); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("item_id", it.ItemID.String()).
		Str("owner_id", ownerID.String()).
		Int("images", len(it.Images)).
		Msg("item listed")
	return it, nil
}

func (s *Service) upload(ctx context.Context, folder string, uploads []image.Upload) ([]string, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	if s.images == nil {
		return nil, image.ErrStoreDisabled
	}
	refs := make([]string, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for i, u := range uploads {
		g.Go(func() error {
			ref, err := s.images.Process(gctx, folder, u)
			if err != nil {
				return fmt.Errorf("upload %q: %w", u.Name, err)
			}
			refs[i] = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return refs, nil
}

func (s *Service) GetItem(ctx context.Context, itemID uuid.UUID) (*item.Item, error) {
	it, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, item.ErrNotFound
	}
	return it, nil
}

// ListUserItems lists ownerID's items, optionally narrowed to one status.
func (s *Service) ListUserItems(ctx context.Context, ownerID uuid.UUID, status *item.Status, limit, offset int) ([]*item.Item, error) {
	if status != nil {
		if err := item.ValidateStatus(*status); err != nil {
			return nil, err
		}
	}
	return s.repo.List(ctx, item.Filter{OwnerID: &ownerID, Status: status}, limit, offset)
}

// Browse lists available items, optionally within one category.
func (s *Service) Browse(ctx context.Context, category string, limit, offset int) ([]*item.Item, error) {
	status := item.StatusAvailable
	filter := item.Filter{Status: &status}
	if c := strings.TrimSpace(category); c != "" {
		filter.Category = &c
	}
	return s.repo.List(ctx, filter, limit, offset)
}

// UpdateItem edits a listing. Only the owner may edit, and only while the
// item is AVAILABLE.
func (s *Service) UpdateItem(ctx context.Context, ownerID, itemID uuid.UUID, input UpdateInput) (*item.Item, error) {
	unlock, err := s.locker.Lock(ctx, "item:"+itemID.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	it, err := s.owned(ctx, ownerID, itemID)
	if err != nil {
		return nil, err
	}
	if input.Title != nil {
		it.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		it.Description = strings.TrimSpace(*input.Description)
	}
	if input.Category != nil {
		it.Category = strings.TrimSpace(*input.Category)
	}
	if input.Condition != nil {
		it.Condition = strings.TrimSpace(*input.Condition)
	}
	if input.WishedItem != nil {
		it.WishedItem = strings.TrimSpace(*input.WishedItem)
	}
	if err := it.Validate(); err != nil {
		return nil, err
	}
	it.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// DeleteItem removes a listing. Reserved and exchanged items are kept.
func (s *Service) DeleteItem(ctx context.Context, ownerID, itemID uuid.UUID) error {
	unlock, err := s.locker.Lock(ctx, "item:"+itemID.String())
	if err != nil {
		return err
	}
	defer unlock()

	it, err := s.owned(ctx, ownerID, itemID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, it.ItemID); err != nil {
		return err
	}
	s.logger.Info().Str("item_id", itemID.String()).Msg("item deleted")
	return nil
}

func (s *Service) owned(ctx context.Context, ownerID, itemID uuid.UUID) (*item.Item, error) {
	it, err := s.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !it.IsOwnedBy(ownerID) {
		return nil, item.ErrNotOwner
	}
	if err := it.CheckMutable(); err != nil {
		return nil, err
	}
	return it, nil
}
