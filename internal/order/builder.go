// Package order turns hydrated cart line items and a contact form into a submitted order.
package order

import (
	"context"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/rs/zerolog"
)

// Client posts an order to the remote API and returns the id it was given, if any.
type Client interface {
	CreateOrder(ctx context.Context, sub domain.OrderSubmission) (string, error)
}

// CartClearer empties the cart once the order is accepted.
type CartClearer interface {
	Clear(ctx context.Context) error
}

// Builder submits orders. It never retries: a failed POST is returned to the caller with the
// cart untouched, and no idempotency key is sent, so a manual resubmit after a timeout can
// create a duplicate order.
type Builder struct {
	client    Client
	cart      CartClearer
	publisher Publisher
	log       zerolog.Logger
}

type Option func(*Builder)

func WithPublisher(p Publisher) Option { return func(b *Builder) { b.publisher = p } }

func WithLogger(l zerolog.Logger) Option { return func(b *Builder) { b.log = l } }

func NewBuilder(client Client, cart CartClearer, opts ...Option) *Builder {
	b := &Builder{
		client:    client,
		cart:      cart,
		publisher: NopPublisher{},
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Submit validates the form and items, posts the order, and clears the cart on success.
func (b *Builder) Submit(ctx context.Context, form domain.ContactForm, items []domain.CartLineItem) (domain.OrderConfirmation, error) {
	form = trimForm(form)
	if err := b.check(form, items); err != nil {
		return domain.OrderConfirmation{}, err
	}

	sub := domain.NewOrderSubmission(form, items)
	id, err := b.client.CreateOrder(ctx, sub)
	if err != nil {
		b.log.Warn().Err(err).Float64("total_price", sub.TotalPrice).Msg("order submission failed")
		return domain.OrderConfirmation{}, &domain.SubmissionError{Err: err}
	}

	// the order exists server-side from here on; later failures are logged, not returned
	if err := b.cart.Clear(ctx); err != nil {
		b.log.Error().Err(err).Str("order_id", id).Msg("order placed but cart not cleared")
	}

	placed := Placed{
		OrderID:       id,
		CustomerEmail: sub.CustomerEmail,
		TotalPrice:    sub.TotalPrice,
		Products:      sub.Products,
		PlacedAt:      time.Now().UTC(),
	}
	if err := b.publisher.PublishOrderPlaced(ctx, placed); err != nil {
		b.log.Warn().Err(err).Str("order_id", id).Msg("order placed event not published")
	}

	b.log.Info().Str("order_id", id).Float64("total_price", sub.TotalPrice).Int("lines", len(items)).Msg("order placed")

	return domain.OrderConfirmation{
		OrderID:    id,
		TotalPrice: sub.TotalPrice,
		Redirect:   domain.ConfirmationPath,
	}, nil
}

func (b *Builder) check(form domain.ContactForm, items []domain.CartLineItem) error {
	if len(items) == 0 {
		return &domain.ValidationError{Field: "products", Reason: "cart is empty"}
	}
	for _, item := range items {
		if item.ID == "" {
			return &domain.ValidationError{Field: "products", Reason: "line item without product id"}
		}
		if item.Quantity < 1 {
			return &domain.ValidationError{Field: "products", Reason: "quantity must be at least 1"}
		}
	}

	return domain.Validate(form)
}

func trimForm(f domain.ContactForm) domain.ContactForm {
	return domain.ContactForm{
		Name:    strings.TrimSpace(f.Name),
		Email:   strings.TrimSpace(f.Email),
		Phone:   strings.TrimSpace(f.Phone),
		Address: strings.TrimSpace(f.Address),
	}
}
