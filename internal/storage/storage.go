// Package storage holds the durable key-value backends the cart and theme stores persist to.
// A backend stores opaque values under string keys; absence is reported as ErrNotFound.
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Backend is the persistence contract. Writes replace the whole value; there are no partial
// updates and no transactions, so concurrent writers resolve as last-write-wins.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Watcher is implemented by backends that can notice writes made by other processes sharing
// the same storage. fn receives the changed key; writes made through the backend itself are not
// reported.
type Watcher interface {
	Watch(ctx context.Context, fn func(key string)) error
}
