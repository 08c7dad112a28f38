// Package lease implements TTL-bounded, token-owned locks stored in a shared
// backend, used to elect one node to populate a cold cache key.
//
// Ownership is proven only by token equality at release time. A holder that
// crashes is recovered solely by the lease TTL. A lease does not stop a former
// holder that keeps running after it expired; the coordinator queries the
// owner before writing and skips the write when another token holds the lease
// (see oncecache.Options.DisableFencing).
package lease

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/oncecache/backend"
)

const (
	// DefaultTTL bounds how long a crashed holder can block a key.
	DefaultTTL = 30 * time.Second
	// DefaultPollInterval is the spin-poll step used by Wait.
	DefaultPollInterval = 25 * time.Millisecond
	// DefaultMaxWait bounds Wait when the coordinator is not told otherwise.
	DefaultMaxWait = 30 * time.Second
)

var (
	ErrLockTimeout = errors.New("lease: lock not released before deadline")
	ErrEmptyToken  = errors.New("lease: empty owner token")
	ErrNilStore    = errors.New("lease: nil lease store")
)

// Locker is cross-process mutual exclusion over named resources.
// Implementations must be safe for concurrent use.
type Locker interface {
	// TryAcquire creates the lock record only if absent. It never waits.
	TryAcquire(ctx context.Context, lockKey, token string, ttl time.Duration) (bool, error)

	// Release removes the record only if token still owns it. Releasing an
	// expired or foreign lease is a no-op, not an error.
	Release(ctx context.Context, lockKey, token string) error

	// Query inspects current ownership without acquiring.
	Query(ctx context.Context, lockKey string) (owner string, held bool, err error)
}

// NewToken returns a fresh owner token. Give each coordinator its own.
func NewToken() string { return uuid.NewString() }

// Lock is a Locker built on a backend's LeaseStore capability.
type Lock struct {
	store backend.LeaseStore
}

var _ Locker = (*Lock)(nil)

func New(store backend.LeaseStore) (*Lock, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	return &Lock{store: store}, nil
}

func (l *Lock) TryAcquire(ctx context.Context, lockKey, token string, ttl time.Duration) (bool, error) {
	if token == "" {
		return false, ErrEmptyToken
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return l.store.SetIfAbsent(ctx, lockKey, token, ttl)
}

func (l *Lock) Release(ctx context.Context, lockKey, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	_, err := l.store.DeleteIfOwner(ctx, lockKey, token)
	return err
}

func (l *Lock) Query(ctx context.Context, lockKey string) (string, bool, error) {
	return l.store.Owner(ctx, lockKey)
}
