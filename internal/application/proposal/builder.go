package proposal

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/barter-hub/barter-hub/internal/domain/exchange"
	"github.com/barter-hub/barter-hub/internal/domain/image"
	"github.com/barter-hub/barter-hub/internal/domain/item"
)

const uploadConcurrency = 3

// Builder validates a proposal and assembles its offered entities.
type Builder struct {
	items  item.Repository
	images image.Processor
	logger zerolog.Logger
}

// NewBuilder creates a proposal builder. images may be nil, in which case
// ad-hoc entries must come without pictures.
func NewBuilder(items item.Repository, images image.Processor, logger zerolog.Logger) *Builder {
	return &Builder{
		items:  items,
		images: images,
		logger: logger.With().Str("service", "proposal").Logger(),
	}
}

// OtherItemDraft is an off-catalog object described by the proposer.
type OtherItemDraft struct {
	Description string
	Images      []image.Upload
}

// BuildInput is the raw proposal as submitted.
type BuildInput struct {
	ProposerID      uuid.UUID
	RequestedItemID uuid.UUID
	OfferedItemIDs  []uuid.UUID
	OtherItems      []OtherItemDraft
	Message         string
}

// Proposal is a validated candidate exchange, ready for the state machine.
type Proposal struct {
	ProposerID    uuid.UUID
	RequestedItem *item.Item
	Offered       []exchange.OfferedEntity
	Message       string
}

func (p *Proposal) OwnerID() uuid.UUID {
	return p.RequestedItem.OwnerID
}

// OfferedItemIDs covers catalog items and every materialized ad-hoc entry.
func (p *Proposal) OfferedItemIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Offered))
	for _, o := range p.Offered {
		ids = append(ids, o.ItemID)
	}
	return ids
}

func (p *Proposal) OfferedOtherItems() []exchange.OtherItem {
	var others []exchange.OtherItem
	for _, o := range p.Offered {
		if o.Other != nil {
			others = append(others, *o.Other)
		}
	}
	return others
}

// Build validates in and returns the proposal. Nothing is uploaded unless
// every check passed, the requested item's availability included.
func (b *Builder) Build(ctx context.Context, in BuildInput) (*Proposal, error) {
	requested, err := b.items.GetByID(ctx, in.RequestedItemID)
	if err != nil {
		return nil, err
	}
	if requested == nil {
		return nil, item.ErrNotFound
	}
	offer, err := b.CheckOffer(ctx, in.ProposerID, requested, in.OfferedItemIDs, in.OtherItems)
	if err != nil {
		return nil, err
	}
	if !requested.IsAvailable() {
		return nil, fmt.Errorf("%w: requested item %s is %s", exchange.ErrItemNotAvailable, requested.ItemID, requested.Status)
	}
	offered, err := b.Materialize(ctx, offer)
	if err != nil {
		return nil, err
	}
	return &Proposal{
		ProposerID:    in.ProposerID,
		RequestedItem: requested,
		Offered:       offered,
		Message:       strings.TrimSpace(in.Message),
	}, nil
}

// Offer is a validated offered side whose ad-hoc images are not stored yet.
type Offer struct {
	itemIDs []uuid.UUID
	drafts  []OtherItemDraft
}

// BuildOffer validates and materializes the offered side of a proposal made
// by proposerID for requested.
func (b *Builder) BuildOffer(ctx context.Context, proposerID uuid.UUID, requested *item.Item, offeredIDs []uuid.UUID, drafts []OtherItemDraft) ([]exchange.OfferedEntity, error) {
	offer, err := b.CheckOffer(ctx, proposerID, requested, offeredIDs, drafts)
	if err != nil {
		return nil, err
	}
	return b.Materialize(ctx, offer)
}

// CheckOffer validates the offered side without side effects.
//
// Checks run in a fixed order: empty offer, then ownership, then ad-hoc
// descriptions and images (all reported together), then availability.
func (b *Builder) CheckOffer(ctx context.Context, proposerID uuid.UUID, requested *item.Item, offeredIDs []uuid.UUID, drafts []OtherItemDraft) (*Offer, error) {
	ids := dedupe(offeredIDs)
	if len(ids)+len(drafts) == 0 {
		return nil, exchange.Invalid(exchange.ErrEmptyOffer)
	}
	if requested.OwnerID == proposerID {
		return nil, exchange.Invalid(exchange.ErrSelfTrade)
	}

	offeredItems := make([]*item.Item, 0, len(ids))
	for _, id := range ids {
		it, err := b.items.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if it == nil {
			return nil, exchange.Invalid(fmt.Errorf("%w: %s", exchange.ErrOfferedNotFound, id))
		}
		if !it.IsOwnedBy(proposerID) {
			return nil, exchange.Invalid(fmt.Errorf("%w: %s", exchange.ErrOfferNotOwned, id))
		}
		offeredItems = append(offeredItems, it)
	}

	var errs []error
	for i, d := range drafts {
		if strings.TrimSpace(d.Description) == "" {
			errs = append(errs, fmt.Errorf("other item %d: %w", i+1, exchange.ErrEmptyDescription))
		}
		if err := image.CheckBatch(d.Images); err != nil {
			errs = append(errs, fmt.Errorf("other item %d: %w", i+1, err))
		}
	}
	if err := exchange.Invalid(errs...); err != nil {
		return nil, err
	}

	for _, it := range offeredItems {
		if !it.IsAvailable() {
			return nil, fmt.Errorf("%w: offered item %s is %s", exchange.ErrItemNotAvailable, it.ItemID, it.Status)
		}
	}
	return &Offer{itemIDs: ids, drafts: drafts}, nil
}

// Materialize assigns ids to the ad-hoc entries of offer and uploads their
// images. Call it only once every other guard of the operation has passed.
func (b *Builder) Materialize(ctx context.Context, offer *Offer) ([]exchange.OfferedEntity, error) {
	offered := make([]exchange.OfferedEntity, 0, len(offer.itemIDs)+len(offer.drafts))
	for _, id := range offer.itemIDs {
		offered = append(offered, exchange.CatalogOffer(id))
	}
	for _, d := range offer.drafts {
		other := exchange.OtherItem{
			OtherItemID: uuid.New(),
			Description: strings.TrimSpace(d.Description),
		}
		refs, err := b.upload(ctx, path.Join("offers", other.OtherItemID.String()), d.Images)
		if err != nil {
			return nil, err
		}
		other.Images = refs
		offered = append(offered, exchange.AdHocOffer(other))
	}
	return offered, nil
}

func (b *Builder) upload(ctx context.Context, folder string, uploads []image.Upload) ([]string, error) {
	if len(uploads) == 0 {
		return []string{}, nil
	}
	if b.images == nil {
		return nil, image.ErrStoreDisabled
	}
	refs := make([]string, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for i, u := range uploads {
		g.Go(func() error {
			ref, err := b.images.Process(gctx, folder, u)
			if err != nil {
				return fmt.Errorf("upload %q: %w", u.Name, err)
			}
			refs[i] = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		b.logger.Error().Err(err).Str("folder", folder).Msg("offer image upload failed")
		return nil, err
	}
	return refs, nil
}

// Candidate is one of the proposer's items, flagged when it matches what the
// owner of the requested item wishes for.
type Candidate struct {
	Item    *item.Item `json:"item"`
	IsMatch bool       `json:"isMatch"`
}

// HighlightMatches flags candidates whose title contains target's wished-item
// hint and moves them first, keeping the relative order otherwise. It never
// filters anything out.
func HighlightMatches(target *item.Item, candidates []*item.Item) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Candidate{Item: c, IsMatch: target != nil && c.MatchesHint(target.WishedItem)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IsMatch && !out[j].IsMatch
	})
	return out
}

// OfferCandidates lists the proposer's available items for requestedItemID,
// matches first.
func (b *Builder) OfferCandidates(ctx context.Context, proposerID, requestedItemID uuid.UUID, limit, offset int) ([]Candidate, error) {
	requested, err := b.items.GetByID(ctx, requestedItemID)
	if err != nil {
		return nil, err
	}
	if requested == nil {
		return nil, item.ErrNotFound
	}
	status := item.StatusAvailable
	own, err := b.items.List(ctx, item.Filter{OwnerID: &proposerID, Status: &status}, limit, offset)
	if err != nil {
		return nil, err
	}
	return HighlightMatches(requested, own), nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
