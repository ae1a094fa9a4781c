package order

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/go_storefront/internal/domain"
)

type mockClient struct {
	mu    sync.Mutex
	id    string
	err   error
	subs  []domain.OrderSubmission
	calls int
}

func (m *mockClient) CreateOrder(_ context.Context, sub domain.OrderSubmission) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.subs = append(m.subs, sub)
	return m.id, m.err
}

type mockCart struct {
	cleared int
	err     error
}

func (m *mockCart) Clear(context.Context) error {
	m.cleared++
	return m.err
}

type mockPublisher struct {
	placed []Placed
	err    error
}

func (m *mockPublisher) PublishOrderPlaced(_ context.Context, p Placed) error {
	m.placed = append(m.placed, p)
	return m.err
}

var errUnavailable = errors.New("service unavailable")

func validForm() domain.ContactForm {
	return domain.ContactForm{
		Name:    "Ann Smith",
		Email:   "ann@example.com",
		Phone:   "+1 555 0100",
		Address: "1 Main St",
	}
}

func lineItems() []domain.CartLineItem {
	discounted := 40.0
	return []domain.CartLineItem{
		domain.NewLineItem(domain.Product{ID: "A", Price: 100}, 2),
		domain.NewLineItem(domain.Product{ID: "B", Price: 50, DiscountedPrice: &discounted}, 1),
	}
}
