// Package kvstore provides the expiring key-value store shared by the OTP and
// token components. Every entry carries a TTL; nothing is stored forever.
package kvstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key is absent or has expired.
	ErrNotFound = errors.New("kvstore: key not found")

	// ErrMismatch is returned by CompareAndDelete when the stored value differs
	// from the expected one. The entry is left untouched.
	ErrMismatch = errors.New("kvstore: value mismatch")

	// ErrUnavailable wraps transport or server failures of the backing store.
	ErrUnavailable = errors.New("kvstore: store unavailable")

	// ErrInvalidTTL rejects writes that would never expire.
	ErrInvalidTTL = errors.New("kvstore: ttl must be positive")
)

// Store is an expiring key-value store safe for concurrent use.
type Store interface {
	// Set writes value under key, replacing any previous value and TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns the live value for key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// GetDel atomically returns and removes the value for key.
	GetDel(ctx context.Context, key string) (string, error)
	// CompareAndDelete atomically removes key only if its value equals
	// expected. It returns ErrNotFound when absent and ErrMismatch when the
	// value differs.
	CompareAndDelete(ctx context.Context, key, expected string) error
}
