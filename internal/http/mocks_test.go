package http

import (
	"context"
	"strings"
	"sync"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/domain"
)

type mockCatalog struct {
	mu        sync.Mutex
	products  map[string]domain.Product
	order     []string
	orders    []domain.Order
	listErr   error
	orderErr  error
	submitted []domain.OrderSubmission
	created   []domain.NewProduct
	deleted   []string
	completed []string
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
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []domain.Product{}
	for _, id := range m.order {
		p := m.products[id]
		if c := opts.Category; c != "" && c != "all" && p.Category != c {
			continue
		}
		out = append(out, p)
	}
	catalog.SortProducts(out, opts.Sort)
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

func (m *mockCatalog) CreateProduct(_ context.Context, np domain.NewProduct) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, np)
	return domain.Product{ID: "new", Name: np.Name, Price: np.Price, DiscountedPrice: np.DiscountedPrice, Category: np.Category}, nil
}

func (m *mockCatalog) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return &domain.StatusError{Op: "delete product " + id, StatusCode: 404}
	}
	delete(m.products, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockCatalog) ListOrders(context.Context) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders, nil
}

func (m *mockCatalog) CompleteOrder(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			m.completed = append(m.completed, id)
			return nil
		}
	}
	return &domain.StatusError{Op: "complete order " + id, StatusCode: 404}
}

func (m *mockCatalog) CreateOrder(_ context.Context, sub domain.OrderSubmission) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.orderErr != nil {
		return "", m.orderErr
	}
	m.submitted = append(m.submitted, sub)
	return "o-1", nil
}

func discounted(v float64) *float64 { return &v }
