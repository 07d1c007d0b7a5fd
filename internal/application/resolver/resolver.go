package resolver

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/barter-hub/barter-hub/internal/domain/exchange"
	"github.com/barter-hub/barter-hub/internal/domain/item"
)

const fetchConcurrency = 8

// EntityView is one side of an exchange ready for display. Item is set for
// catalog entries, Other for ad-hoc ones. Missing marks a catalog id the
// catalog no longer knows.
type EntityView struct {
	Kind    exchange.OfferKind  `json:"kind"`
	ItemID  uuid.UUID           `json:"itemId"`
	Item    *item.Item          `json:"item,omitempty"`
	Other   *exchange.OtherItem `json:"other,omitempty"`
	Missing bool                `json:"missing,omitempty"`
}

// ExchangeView is an exchange with every referenced entity resolved.
type ExchangeView struct {
	Exchange      *exchange.Exchange `json:"exchange"`
	RequestedItem EntityView         `json:"requestedItem"`
	Offered       []EntityView       `json:"offered"`
}

// Resolver turns item references into display objects.
type Resolver struct {
	items  item.Repository
	logger zerolog.Logger
}

func New(items item.Repository, logger zerolog.Logger) *Resolver {
	return &Resolver{
		items:  items,
		logger: logger.With().Str("service", "resolver").Logger(),
	}
}

// Resolve builds the view of a single exchange.
func (r *Resolver) Resolve(ctx context.Context, ex *exchange.Exchange) (*ExchangeView, error) {
	views, err := r.ResolveMany(ctx, []*exchange.Exchange{ex})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// ResolveMany builds views for a page of exchanges, fetching each distinct
// catalog item once.
func (r *Resolver) ResolveMany(ctx context.Context, exchanges []*exchange.Exchange) ([]*ExchangeView, error) {
	ids := make(map[uuid.UUID]struct{})
	for _, ex := range exchanges {
		ids[ex.RequestedItemID] = struct{}{}
		for _, id := range ex.CatalogItemIDs() {
			ids[id] = struct{}{}
		}
	}
	found, err := r.fetch(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]*ExchangeView, 0, len(exchanges))
	for _, ex := range exchanges {
		view := &ExchangeView{
			Exchange:      ex,
			RequestedItem: catalogView(ex.RequestedItemID, found),
			Offered:       make([]EntityView, 0, len(ex.Offered)),
		}
		for _, o := range ex.Offered {
			if o.IsCatalog() {
				view.Offered = append(view.Offered, catalogView(o.ItemID, found))
				continue
			}
			other := *o.Other
			view.Offered = append(view.Offered, EntityView{Kind: exchange.OfferKindAdHoc, ItemID: o.ItemID, Other: &other})
		}
		views = append(views, view)
	}
	return views, nil
}

func (r *Resolver) fetch(ctx context.Context, ids map[uuid.UUID]struct{}) (map[uuid.UUID]*item.Item, error) {
	keys := make([]uuid.UUID, 0, len(ids))
	for id := range ids {
		keys = append(keys, id)
	}
	results := make([]*item.Item, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, id := range keys {
		g.Go(func() error {
			it, err := r.items.GetByID(gctx, id)
			if err != nil {
				return fmt.Errorf("resolve item %s: %w", id, err)
			}
			results[i] = it
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	found := make(map[uuid.UUID]*item.Item, len(keys))
	for i, id := range keys {
		if results[i] == nil {
			r.logger.Debug().Str("itemId", id.String()).Msg("referenced item no longer in catalog")
			continue
		}
		found[id] = results[i]
	}
	return found, nil
}

func catalogView(id uuid.UUID, found map[uuid.UUID]*item.Item) EntityView {
	it, ok := found[id]
	return EntityView{Kind: exchange.OfferKindCatalog, ItemID: id, Item: it, Missing: !ok}
}
