package types

import "errors"

// DefaultCacheKey is the session storage key holding the cache snapshot.
const DefaultCacheKey = "todos"

// SessionStorage is ephemeral per-session key/value storage.
type SessionStorage interface {
	// SetItem stores value under key, replacing any previous value.
	SetItem(key, value string) error

	// GetItem returns the value under key and whether it was present.
	GetItem(key string) (string, bool, error)

	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(key string) error
}

// ErrSessionLocked is returned when the session storage lock cannot be taken.
var ErrSessionLocked = errors.New("session storage is locked")
