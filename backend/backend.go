// Package backend defines the key/value store the coordinator caches into.
//
// Implementations MUST be byte-for-byte transparent: Read must return exactly
// the []byte previously passed to Write for a key. Expiry is the store's job;
// the coordinator never deletes value entries.
//
// The keyspace "<ns>:" (values) and "<ns>:<fingerprint>:lock" (leases) is owned
// by oncecache. External code MUST NOT write under it.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable marks network/store failures. Implementations wrap the
// underlying cause so both errors.Is(err, ErrUnavailable) and the cause match.
var ErrUnavailable = errors.New("backend unavailable")

// Backend is a byte store with per-write TTLs. Must be safe for concurrent use.
type Backend interface {
	// Exists reports whether key currently holds a value.
	Exists(ctx context.Context, key string) (bool, error)

	// Read returns (value, true, nil) on hit and (nil, false, nil) on miss.
	// May be served from a replica; a fresh write elsewhere may not be visible yet.
	Read(ctx context.Context, key string) ([]byte, bool, error)

	// Write stores value under key, last writer wins. ttl<=0 means no expiry
	// where the store supports it. Returns the bytes written.
	Write(ctx context.Context, key string, value []byte, ttl time.Duration) ([]byte, error)

	// Close releases resources.
	Close(ctx context.Context) error
}

// LeaseStore is the optional capability lease locks are built on. Stores
// without an atomic create-if-absent cannot take part in distributed leasing.
// All three operations go to the primary, never a replica.
type LeaseStore interface {
	// SetIfAbsent creates key=value with ttl only if key is absent.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Owner returns the current value of key.
	Owner(ctx context.Context, key string) (value string, ok bool, err error)

	// DeleteIfOwner removes key only if it still holds value.
	DeleteIfOwner(ctx context.Context, key, value string) (bool, error)
}

// Unavailable wraps a store failure for op on key as ErrUnavailable.
// Context cancellation and deadline errors are the caller's, not the store's,
// and are returned unchanged.
func Unavailable(op, key string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%s %q: %w: %w", op, key, ErrUnavailable, err)
}
