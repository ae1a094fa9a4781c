// Package view holds the storefront screens as data: each one loads through a resource and
// exposes what a renderer needs to draw it.
package view

import (
	"context"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/events"
	"github.com/fjod/go_storefront/internal/resource"
)

type Catalog interface {
	ListProducts(ctx context.Context, opts catalog.ListOptions) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	PictureURL(ref string) string
}

type CartStore interface {
	Get(ctx context.Context) (domain.Cart, error)
	Add(ctx context.Context, productID string, delta int) error
	SetQuantity(ctx context.Context, productID string, quantity int) error
	Remove(ctx context.Context, productID string) error
	Subscribe(fn events.Handler) (unsubscribe func())
}

type Hydrator interface {
	Hydrate(ctx context.Context) ([]domain.CartLineItem, error)
}

type OrderSubmitter interface {
	Submit(ctx context.Context, form domain.ContactForm, items []domain.CartLineItem) (domain.OrderConfirmation, error)
}

// State is the rendered form of a resource snapshot: loading indicator, error text, or data.
type State[T any] struct {
	Status string `json:"status"`
	Data   T      `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

func Render[T any](snap resource.Snapshot[T]) State[T] {
	st := State[T]{Status: snap.State.String(), Data: snap.Value}
	if snap.State == resource.Failed && snap.Err != nil {
		st.Error = snap.Err.Error()
	}
	return st
}

// ProductCard is a product with its price block and resolved picture URL.
type ProductCard struct {
	domain.Product
	Pricing    domain.Pricing `json:"pricing"`
	PictureURL string         `json:"picture_url,omitempty"`
}

func newCard(c Catalog, p domain.Product) ProductCard {
	return ProductCard{Product: p, Pricing: p.Pricing(), PictureURL: c.PictureURL(p.PictureRef)}
}
