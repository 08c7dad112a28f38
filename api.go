package oncecache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/oncecache/backend"
	c "github.com/unkn0wn-root/oncecache/codec"
	"github.com/unkn0wn-root/oncecache/fingerprint"
	"github.com/unkn0wn-root/oncecache/lease"
)

// Producer computes the value for a cold key. It runs at most once per
// populate and its result is what gets cached; errors are never cached.
type Producer[V any] func(ctx context.Context) (V, error)

// CachingOptions are per-call caching parameters.
type CachingOptions struct {
	// Expiry is the TTL of the written entry. 0 => Options.DefaultExpiry.
	Expiry time.Duration
	// DistributedLock elects one populator across every coordinator sharing
	// the backend. Without it only callers inside this process are coalesced.
	DistributedLock bool
}

// DefaultCachingOptions returns {Expiry: 5m, DistributedLock: true}.
func DefaultCachingOptions() CachingOptions {
	return CachingOptions{Expiry: DefaultExpiry, DistributedLock: true}
}

// Exclusion selects the in-process exclusion primitive taken on a miss.
type Exclusion uint8

const (
	// ExclusionGlobal serializes every miss of a Cache behind one slot.
	ExclusionGlobal Exclusion = iota
	// ExclusionPerKey serializes misses per storage key only.
	ExclusionPerKey
)

// Cache is the compute-once coordinator over a shared backend.
// V is the caller's value type. Serialization is handled by a pluggable Codec[V].
type Cache[V any] interface {
	// FetchOrCompute returns the cached value for key, or computes it with fn
	// and stores it. With opts.DistributedLock at most one caller across all
	// coordinators sharing the backend runs fn for a cold key.
	FetchOrCompute(ctx context.Context, key fingerprint.Key, fn Producer[V], opts CachingOptions) (V, error)

	// FetchOrComputeUnlocked is plain cache-aside: no slot, no lease.
	// Concurrent misses may all run fn.
	FetchOrComputeUnlocked(ctx context.Context, key fingerprint.Key, fn Producer[V], opts CachingOptions) (V, error)

	FetchOrComputeAsync(ctx context.Context, key fingerprint.Key, fn Producer[V], opts CachingOptions) *Future[V]
	FetchOrComputeUnlockedAsync(ctx context.Context, key fingerprint.Key, fn Producer[V], opts CachingOptions) *Future[V]

	// Passthroughs. No locking, no producer.
	Get(ctx context.Context, key fingerprint.Key) (v V, ok bool, err error)
	Set(ctx context.Context, key fingerprint.Key, value V, ttl time.Duration) (V, error)
	KeyExists(ctx context.Context, key fingerprint.Key) (bool, error)

	Close(context.Context) error
}

// Options configure a Cache.
// Only Namespace, Backend and Codec are required; others have sensible defaults.
type Options[V any] struct {
	// Required
	Namespace string // prefixes every storage key. e.g. "reports", "app:prod:q"
	Backend   backend.Backend
	Codec     c.Codec[V]

	// Locker elects the populator when DistributedLock is requested.
	// nil => lease.New(Backend) if Backend implements backend.LeaseStore,
	// otherwise distributed calls fail with ErrUnsupported.
	Locker lease.Locker

	Logger         Logger        // if nil, NopLogger is used
	Hooks          Hooks         // if nil, NopHooks is used
	Token          string        // lease owner token; "" => lease.NewToken()
	LeaseTTL       time.Duration // 0 => 30s; crash-recovery ceiling, independent of Expiry
	PollInterval   time.Duration // 0 => 25ms
	MaxLockWait    time.Duration // 0 => 30s; bound on waiting for another populator
	DefaultExpiry  time.Duration // 0 => 5m; used when CachingOptions.Expiry is 0
	Exclusion      Exclusion     // default ExclusionGlobal
	DisableFencing bool          // default false => owner is re-checked before the write
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
