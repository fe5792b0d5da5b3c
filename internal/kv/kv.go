// Package kv defines the persistent key-value port the store and settings
// write through. Implementations live in subpackages.
package kv

import "context"

// Store is the backend contract: opaque string keys and values, plus prefix
// enumeration for bulk loads.
type Store interface {
	// Get returns the value for key; the bool reports presence.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes or overwrites the value for key.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Keys returns every stored key starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
