// Package theme persists the light/dark preference next to the cart.
package theme

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/events"
	"github.com/fjod/go_storefront/internal/storage"
	"github.com/rs/zerolog"
)

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"

	DefaultKey = "theme"
)

func Parse(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case Light, Dark:
		return t, nil
	}
	return "", &domain.ValidationError{Field: "theme", Reason: fmt.Sprintf("unknown theme %q", s)}
}

// Opposite returns the other theme.
func (t Theme) Opposite() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

type Notifier interface {
	Publish(ctx context.Context, kind events.Kind)
}

type Store struct {
	backend storage.Backend
	bus     Notifier
	key     string
	log     zerolog.Logger
}

type Option func(*Store)

func WithLogger(l zerolog.Logger) Option { return func(s *Store) { s.log = l } }

func NewStore(backend storage.Backend, bus Notifier, opts ...Option) *Store {
	s := &Store{backend: backend, bus: bus, key: DefaultKey, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the stored theme, Light when nothing or something unrecognised is stored.
func (s *Store) Get(ctx context.Context) (Theme, error) {
	data, err := s.backend.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return Light, nil
	}
	if err != nil {
		return "", fmt.Errorf("read theme: %w", err)
	}
	t, err := Parse(strings.Trim(string(data), `"`))
	if err != nil {
		s.log.Warn().Str("stored", string(data)).Msg("ignoring unknown stored theme")
		return Light, nil
	}
	return t, nil
}

func (s *Store) Set(ctx context.Context, t Theme) error {
	parsed, err := Parse(string(t))
	if err != nil {
		return err
	}
	if err := s.backend.Set(ctx, s.key, []byte(parsed)); err != nil {
		return fmt.Errorf("write theme: %w", err)
	}
	s.bus.Publish(ctx, events.ThemeUpdated)
	return nil
}

// Toggle flips the stored theme and returns the new one.
func (s *Store) Toggle(ctx context.Context) (Theme, error) {
	cur, err := s.Get(ctx)
	if err != nil {
		return "", err
	}
	next := cur.Opposite()
	if err := s.Set(ctx, next); err != nil {
		return "", err
	}
	return next, nil
}
