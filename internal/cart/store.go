// Package cart owns the persisted cart mapping and its hydration against the catalog.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/events"
	"github.com/fjod/go_storefront/internal/storage"
	"github.com/rs/zerolog"
)

// DefaultKey is the storage key holding the JSON-encoded productId -> quantity mapping.
const DefaultKey = "cart"

// Notifier is the change signal the store publishes to after every mutation.
type Notifier interface {
	Publish(ctx context.Context, kind events.Kind)
	Subscribe(fn events.Handler, kinds ...events.Kind) (unsubscribe func())
}

// Store is the only writer of the persisted cart. Every mutation rewrites the whole mapping;
// writers in other processes sharing the backend win or lose by write order.
type Store struct {
	backend storage.Backend
	bus     Notifier
	key     string
	log     zerolog.Logger

	mu sync.Mutex
}

type Option func(*Store)

func WithKey(key string) Option { return func(s *Store) { s.key = key } }

func WithLogger(l zerolog.Logger) Option { return func(s *Store) { s.log = l } }

func NewStore(backend storage.Backend, bus Notifier, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		bus:     bus,
		key:     DefaultKey,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Key() string { return s.key }

// Get reads the persisted mapping. A missing key is an empty cart. A value that cannot be
// decoded is logged and also read as empty, so one bad write cannot lock the shopper out.
func (s *Store) Get(ctx context.Context) (domain.Cart, error) {
	data, err := s.backend.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Cart{}, nil
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("read cart: %w", err)
	}

	var c domain.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("discarding undecodable cart")
		return domain.Cart{}, nil
	}
	if dropped := c.Dropped(); len(dropped) > 0 {
		s.log.Warn().Strs("product_ids", dropped).Str("key", s.key).Msg("skipping cart entries with invalid quantity")
	}
	return c, nil
}

// Add increments the quantity of an existing entry or inserts a new one.
func (s *Store) Add(ctx context.Context, productID string, delta int) error {
	if err := checkID(productID); err != nil {
		return err
	}
	if delta < 1 {
		return &domain.ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}
	return s.Update(ctx, func(c *domain.Cart) error {
		c.Add(productID, delta)
		return nil
	})
}

// SetQuantity overwrites the quantity, inserting the entry if it is absent.
func (s *Store) SetQuantity(ctx context.Context, productID string, quantity int) error {
	if err := checkID(productID); err != nil {
		return err
	}
	if quantity < 1 {
		return &domain.ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}
	return s.Update(ctx, func(c *domain.Cart) error {
		c.Set(productID, quantity)
		return nil
	})
}

// Remove deletes the entry. Removing an absent product still persists and notifies.
func (s *Store) Remove(ctx context.Context, productID string) error {
	return s.Update(ctx, func(c *domain.Cart) error {
		c.Remove(productID)
		return nil
	})
}

// Clear empties the cart by deleting its key.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	err := s.backend.Delete(ctx, s.key)
	s.mu.Unlock()
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("clear cart: %w", err)
	}

	s.log.Debug().Str("key", s.key).Msg("cart cleared")
	s.bus.Publish(ctx, events.CartUpdated)
	return nil
}

// Update applies fn to the current mapping and persists the result. If fn returns an error
// nothing is written and no notification fires.
func (s *Store) Update(ctx context.Context, fn func(c *domain.Cart) error) error {
	s.mu.Lock()
	c, err := s.Get(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := fn(&c); err != nil {
		s.mu.Unlock()
		return err
	}
	err = s.write(ctx, c)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.log.Debug().Str("key", s.key).Int("items", c.TotalQuantity()).Msg("cart updated")
	s.bus.Publish(ctx, events.CartUpdated)
	return nil
}

// Subscribe registers fn for cart changes made here or observed from other processes.
func (s *Store) Subscribe(fn events.Handler) (unsubscribe func()) {
	return s.bus.Subscribe(fn, events.CartUpdated)
}

func (s *Store) write(ctx context.Context, c domain.Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.backend.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("write cart: %w", err)
	}
	return nil
}

func checkID(productID string) error {
	if productID == "" {
		return &domain.ValidationError{Field: "productId", Reason: "is required"}
	}
	return nil
}
