package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/events"
	"github.com/fjod/go_storefront/internal/storage"
)

type mockCatalog struct {
	mu       sync.Mutex
	products map[string]domain.Product
	delays   map[string]time.Duration
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func newMockCatalog(products ...domain.Product) *mockCatalog {
	m := &mockCatalog{
		products: make(map[string]domain.Product),
		delays:   make(map[string]time.Duration),
	}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockCatalog) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	m.calls.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		seen := m.maxSeen.Load()
		if n <= seen || m.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	m.mu.Lock()
	p, ok := m.products[id]
	delay := m.delays[id]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return domain.Product{}, ctx.Err()
		}
	}
	if !ok {
		return domain.Product{}, &domain.StatusError{Op: "get product " + id, StatusCode: 404}
	}
	return p, nil
}

// mockBackend wraps Memory and can fail reads or writes on demand.
type mockBackend struct {
	*storage.Memory
	getErr error
	setErr error
	sets   atomic.Int32
}

func newMockBackend() *mockBackend {
	return &mockBackend{Memory: storage.NewMemory()}
}

func (m *mockBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.Memory.Get(ctx, key)
}

func (m *mockBackend) Set(ctx context.Context, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.sets.Add(1)
	return m.Memory.Set(ctx, key, value)
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(ev events.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

var errBackendDown = errors.New("backend down")

func price(v float64) *float64 { return &v }

func product(id string, p float64, discounted *float64) domain.Product {
	return domain.Product{ID: id, Name: fmt.Sprintf("product %s", id), Price: p, DiscountedPrice: discounted}
}
