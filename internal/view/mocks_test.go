package view

import (
	"context"
	"strings"
	"sync"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/domain"
)

type mockCatalog struct {
	mu       sync.Mutex
	products map[string]domain.Product
	order    []string
	listErr  error
	lastOpts catalog.ListOptions
}

func newMockCatalog(products ...domain.Product) *mockCatalog {
	m := &mockCatalog{products: make(map[string]domain.Product)}
	for _, p := range products {
		m.products[p.ID] = p
		m.order = append(m.order, p.ID)
	}
	return m
}

func (m *mockCatalog) ListProducts(_ context.Context, opts catalog.ListOptions) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastOpts = opts
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Product, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.products[id])
	}
	return out, nil
}

func (m *mockCatalog) GetProduct(_ context.Context, id string) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return domain.Product{}, &domain.StatusError{Op: "get product " + id, StatusCode: 404}
	}
	return p, nil
}

func (m *mockCatalog) PictureURL(ref string) string {
	if ref == "" {
		return ""
	}
	return "https://shop.test/" + strings.TrimPrefix(ref, "/")
}

type mockOrders struct {
	id   string
	err  error
	subs []domain.OrderSubmission
}

func (m *mockOrders) CreateOrder(_ context.Context, sub domain.OrderSubmission) (string, error) {
	m.subs = append(m.subs, sub)
	return m.id, m.err
}

func discounted(v float64) *float64 { return &v }
