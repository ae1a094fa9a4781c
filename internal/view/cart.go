package view

import (
	"context"
	"sync"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/events"
	"github.com/fjod/go_storefront/internal/resource"
	"github.com/rs/zerolog"
)

// CartModel is the rendered cart: hydrated line items, their total and the badge count.
type CartModel struct {
	Items      []domain.CartLineItem `json:"items"`
	TotalPrice float64               `json:"total_price"`
	ItemCount  int                   `json:"item_count"`
}

func newCartModel(items []domain.CartLineItem) CartModel {
	m := CartModel{Items: items, TotalPrice: domain.TotalPrice(items)}
	for _, item := range items {
		m.ItemCount += item.Quantity
	}
	if m.Items == nil {
		m.Items = []domain.CartLineItem{}
	}
	return m
}

// CartPage shows the hydrated cart. Edits go to the store first and are then applied to the
// rendered list in place, without a refetch.
type CartPage struct {
	store  CartStore
	orders OrderSubmitter
	res    *resource.Resource[[]domain.CartLineItem]
}

func NewCartPage(h Hydrator, store CartStore, orders OrderSubmitter) *CartPage {
	return &CartPage{
		store:  store,
		orders: orders,
		res:    resource.New(h.Hydrate),
	}
}

func (v *CartPage) Load(ctx context.Context) (CartModel, error) {
	items, err := v.res.Load(ctx)
	if err != nil {
		return CartModel{}, err
	}
	return newCartModel(items), nil
}

func (v *CartPage) State() State[CartModel] {
	snap := v.res.Snapshot()
	st := Render(snap)
	return State[CartModel]{Status: st.Status, Data: newCartModel(snap.Value), Error: st.Error}
}

func (v *CartPage) Close() { v.res.Close() }

// Total is the current order total of the rendered items.
func (v *CartPage) Total() float64 {
	return domain.TotalPrice(v.res.Snapshot().Value)
}

func (v *CartPage) Remove(ctx context.Context, productID string) error {
	if err := v.store.Remove(ctx, productID); err != nil {
		return err
	}
	v.res.Mutate(func(items []domain.CartLineItem) []domain.CartLineItem {
		out := make([]domain.CartLineItem, 0, len(items))
		for _, item := range items {
			if item.ID != productID {
				out = append(out, item)
			}
		}
		return out
	})
	return nil
}

func (v *CartPage) SetQuantity(ctx context.Context, productID string, quantity int) error {
	if err := v.store.SetQuantity(ctx, productID, quantity); err != nil {
		return err
	}
	v.res.Mutate(func(items []domain.CartLineItem) []domain.CartLineItem {
		out := make([]domain.CartLineItem, len(items))
		copy(out, items)
		for i := range out {
			if out[i].ID == productID {
				out[i].Quantity = quantity
			}
		}
		return out
	})
	return nil
}

// PlaceOrder submits the rendered items. The checkout form is only offered for a loaded,
// non-empty cart.
func (v *CartPage) PlaceOrder(ctx context.Context, form domain.ContactForm) (domain.OrderConfirmation, error) {
	snap := v.res.Snapshot()
	if snap.State != resource.Ready {
		return domain.OrderConfirmation{}, &domain.ValidationError{Field: "products", Reason: "cart is not loaded"}
	}
	conf, err := v.orders.Submit(ctx, form, snap.Value)
	if err != nil {
		return domain.OrderConfirmation{}, err
	}
	v.res.Mutate(func([]domain.CartLineItem) []domain.CartLineItem { return []domain.CartLineItem{} })
	return conf, nil
}

// Badge tracks the total item count of the cart and tells listeners when it changes.
type Badge struct {
	store CartStore
	unsub func()
	log   zerolog.Logger

	mu        sync.Mutex
	count     int
	listeners map[int]func(int)
	next      int
}

type BadgeOption func(*Badge)

func WithBadgeLogger(l zerolog.Logger) BadgeOption { return func(b *Badge) { b.log = l } }

// NewBadge reads the current count, then refreshes it on every cart event. A failed refresh is
// logged and the previous count is kept.
func NewBadge(ctx context.Context, store CartStore, opts ...BadgeOption) (*Badge, error) {
	b := &Badge{store: store, listeners: make(map[int]func(int)), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(b)
	}
	if err := b.refresh(ctx); err != nil {
		return nil, err
	}
	b.unsub = store.Subscribe(func(ev events.Event) {
		if err := b.refresh(context.Background()); err != nil {
			b.log.Error().Err(err).Str("origin", ev.Origin).Int("count", b.Count()).Msg("cart badge refresh failed")
		}
	})
	return b, nil
}

func (b *Badge) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Listen calls fn with the new count after every cart change.
func (b *Badge) Listen(fn func(count int)) (stop func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.listeners[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

func (b *Badge) Close() {
	if b.unsub != nil {
		b.unsub()
	}
}

func (b *Badge) refresh(ctx context.Context) error {
	c, err := b.store.Get(ctx)
	if err != nil {
		return err
	}
	n := c.TotalQuantity()

	b.mu.Lock()
	b.count = n
	fns := make([]func(int), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(n)
	}
	return nil
}
