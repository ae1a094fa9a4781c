package cart

import (
	"context"
	"errors"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// ProductSource resolves one product by id. The catalog client satisfies it.
type ProductSource interface {
	GetProduct(ctx context.Context, id string) (domain.Product, error)
}

// CartReader is the read side of the Store.
type CartReader interface {
	Get(ctx context.Context) (domain.Cart, error)
}

// Hydrator joins the persisted mapping with live catalog data. It holds no state of its own.
type Hydrator struct {
	cart        CartReader
	products    ProductSource
	concurrency int
	log         zerolog.Logger
}

type HydratorOption func(*Hydrator)

// WithConcurrency bounds the number of product requests in flight.
func WithConcurrency(n int) HydratorOption {
	return func(h *Hydrator) {
		if n > 0 {
			h.concurrency = n
		}
	}
}

func WithHydratorLogger(l zerolog.Logger) HydratorOption {
	return func(h *Hydrator) { h.log = l }
}

func NewHydrator(cart CartReader, products ProductSource, opts ...HydratorOption) *Hydrator {
	h := &Hydrator{
		cart:        cart,
		products:    products,
		concurrency: defaultConcurrency,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hydrate snapshots the cart and resolves it. See HydrateCart.
func (h *Hydrator) Hydrate(ctx context.Context) ([]domain.CartLineItem, error) {
	c, err := h.cart.Get(ctx)
	if err != nil {
		return nil, &domain.FetchError{Err: err}
	}
	return h.HydrateCart(ctx, c)
}

// HydrateCart fetches every product in c concurrently and returns line items in the order of
// the mapping. If any product fails to resolve the whole call fails with a *domain.FetchError
// and no items are returned.
func (h *Hydrator) HydrateCart(ctx context.Context, c domain.Cart) ([]domain.CartLineItem, error) {
	entries := c.Entries()
	items := make([]domain.CartLineItem, len(entries))
	if len(entries) == 0 {
		return items, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.concurrency)
	for i, e := range entries {
		g.Go(func() error {
			p, err := h.products.GetProduct(gctx, e.ProductID)
			if err != nil {
				return &domain.FetchError{ProductID: e.ProductID, Err: err}
			}
			items[i] = domain.NewLineItem(p, e.Quantity)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var fe *domain.FetchError
		if errors.As(err, &fe) {
			h.log.Warn().Err(fe.Err).Str("product_id", fe.ProductID).Msg("cart hydration failed")
		}
		return nil, err
	}
	return items, nil
}
