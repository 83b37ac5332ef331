// Package storage persists small string values under fixed keys, the way a
// browser's local storage does. It survives process restarts for the file,
// Postgres, Redis and SQLite backends.
package storage

import "context"

// Keys used by the application.
const (
	KeyToken = "user-token"
	KeyCart  = "cart"
)

type Storage interface {
	// GetItem returns the value stored under key and whether it exists.
	GetItem(ctx context.Context, key string) (value string, found bool, err error)

	// SetItem stores value under key, replacing any previous value.
	SetItem(ctx context.Context, key, value string) error

	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(ctx context.Context, key string) error

	Close() error
}
