// Package events is the change-notification channel shared by the cart and theme stores and
// whatever renders them. Delivery to local subscribers is synchronous; a Relay carries events
// to other processes sharing the same storage.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Kind string

const (
	CartUpdated  Kind = "cart.updated"
	ThemeUpdated Kind = "theme.updated"
)

type Event struct {
	Kind   Kind      `json:"kind"`
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

// Remote reports whether the event was produced by another bus.
func (e Event) Remote(bus *Bus) bool { return e.Origin != bus.origin }

type Handler func(Event)

// Relay forwards events between processes. Listen blocks until ctx is done and hands every
// received event to fn, including ones this process published.
type Relay interface {
	Publish(ctx context.Context, ev Event) error
	Listen(ctx context.Context, fn func(Event)) error
}

type subscription struct {
	kinds map[Kind]bool
	fn    Handler
}

type Bus struct {
	origin string
	relay  Relay
	log    zerolog.Logger

	mu   sync.RWMutex
	subs map[string]subscription
}

type Option func(*Bus)

func WithRelay(r Relay) Option { return func(b *Bus) { b.relay = r } }

func WithLogger(l zerolog.Logger) Option { return func(b *Bus) { b.log = l } }

func NewBus(opts ...Option) *Bus {
	b := &Bus{
		origin: uuid.NewString(),
		log:    zerolog.Nop(),
		subs:   make(map[string]subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bus) Origin() string { return b.origin }

// Subscribe registers fn for the given kinds, or for every kind when none are given.
// The returned func removes the subscription.
func (b *Bus) Subscribe(fn Handler, kinds ...Kind) (unsubscribe func()) {
	id := uuid.NewString()
	sub := subscription{fn: fn}
	if len(kinds) > 0 {
		sub.kinds = make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = true
		}
	}

	b.mu.Lock()
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers to local subscribers before returning, then forwards through the relay.
// A relay failure is logged, not returned: the local mutation already happened.
func (b *Bus) Publish(ctx context.Context, kind Kind) {
	ev := Event{Kind: kind, Origin: b.origin, At: time.Now()}
	b.dispatch(ev)

	if b.relay == nil {
		return
	}
	if err := b.relay.Publish(ctx, ev); err != nil {
		b.log.Warn().Err(err).Str("kind", string(kind)).Msg("relay publish failed")
	}
}

// Deliver hands an externally observed event to local subscribers only. Events this bus
// published itself are dropped so no subscriber sees a change twice.
func (b *Bus) Deliver(ev Event) {
	if ev.Origin == b.origin {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.dispatch(ev)
}

// Run pumps the relay into local subscribers until ctx is done.
func (b *Bus) Run(ctx context.Context) error {
	if b.relay == nil {
		<-ctx.Done()
		return nil
	}
	return b.relay.Listen(ctx, b.Deliver)
}

func (b *Bus) dispatch(ev Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.kinds == nil || sub.kinds[ev.Kind] {
			handlers = append(handlers, sub.fn)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}
