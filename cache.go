package oncecache

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/oncecache/backend"
	c "github.com/unkn0wn-root/oncecache/codec"
	"github.com/unkn0wn-root/oncecache/fingerprint"
	"github.com/unkn0wn-root/oncecache/internal/slot"
	"github.com/unkn0wn-root/oncecache/internal/util"
	"github.com/unkn0wn-root/oncecache/internal/wire"
	"github.com/unkn0wn-root/oncecache/lease"
)

type cache[V any] struct {
	ns      string
	backend backend.Backend
	codec   c.Codec[V]
	locker  lease.Locker // nil => DistributedLock unsupported
	log     Logger
	hooks   Hooks
	slot    slot.Slot
	token   string

	leaseTTL      time.Duration
	pollInterval  time.Duration
	maxLockWait   time.Duration
	defaultExpiry time.Duration
	fence         bool
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("oncecache: backend is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("oncecache: codec is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("oncecache: namespace is required")
	}
	if opts.LeaseTTL < 0 || opts.PollInterval < 0 || opts.MaxLockWait < 0 {
		return nil, fmt.Errorf("oncecache: negative lease timing")
	}

	cc := &cache[V]{
		ns:      opts.Namespace,
		backend: opts.Backend,
		codec:   opts.Codec,
		locker:  opts.Locker,
		fence:   !opts.DisableFencing,
	}

	// defaults
	cc.log = coalesce[Logger](opts.Logger, NopLogger{})
	cc.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	cc.token = coalesce(opts.Token, lease.NewToken())
	cc.leaseTTL = coalesce(opts.LeaseTTL, defaultLeaseTTL)
	cc.pollInterval = coalesce(opts.PollInterval, defaultPollInterval)
	cc.maxLockWait = coalesce(opts.MaxLockWait, defaultMaxLockWait)
	cc.defaultExpiry = coalesce(opts.DefaultExpiry, DefaultExpiry)

	if cc.locker == nil {
		if ls, ok := opts.Backend.(backend.LeaseStore); ok {
			l, err := lease.New(ls)
			if err != nil {
				return nil, err
			}
			cc.locker = l
		}
	}

	switch opts.Exclusion {
	case ExclusionGlobal:
		cc.slot = slot.NewGlobal()
	case ExclusionPerKey:
		cc.slot = slot.NewPerKey()
	default:
		return nil, fmt.Errorf("oncecache: unknown exclusion mode %d", opts.Exclusion)
	}

	return cc, nil
}

func (cc *cache[V]) Close(ctx context.Context) error {
	return cc.backend.Close(ctx)
}

func (cc *cache[V]) FetchOrCompute(ctx context.Context, key fingerprint.Key, fn Producer[V], opts CachingOptions) (V, error) {
	var zero V
	if fn == nil {
		return zero, ErrNilProducer
	}
	if opts.DistributedLock && cc.locker == nil {
		return zero, ErrUnsupported
	}
	sk := cc.storageKey(key)

	if v, ok, err := cc.fastPath(ctx, sk); err != nil || ok {
		return v, err
	}
	cc.hooks.Miss(sk)
	cc.log.Debug("cache miss", Fields{"key": sk})

	release, err := cc.slot.Acquire(ctx, sk)
	if err != nil {
		return zero, err
	}
	defer release()

	// another caller in this process may have populated it while we queued
	if v, ok, err := cc.recheck(ctx, sk); err != nil || ok {
		return v, err
	}

	ttl := cc.expiry(opts)
	if !opts.DistributedLock {
		v, err := cc.compute(ctx, sk, fn)
		if err != nil {
			return zero, err
		}
		return cc.store(ctx, sk, v, ttl)
	}
	return cc.populateLeased(ctx, sk, fn, ttl)
}

// populateLeased elects one populator across coordinators. Losers wait for
// the holder to release and read its value; if the holder released without
// writing they contend again until MaxLockWait runs out.
func (cc *cache[V]) populateLeased(ctx context.Context, sk string, fn Producer[V], ttl time.Duration) (V, error) {
	var zero V
	lk := util.LockKey(sk)
	deadline := time.Now().Add(cc.maxLockWait)

	for {
		won, err := cc.locker.TryAcquire(ctx, lk, cc.token, cc.leaseTTL)
		if err != nil {
			return zero, err
		}
		if won {
			return cc.computeUnderLease(ctx, sk, lk, fn, ttl)
		}

		cc.hooks.LeaseContended(sk)
		cc.log.Debug("lease held elsewhere, waiting", Fields{"key": sk})
		start := time.Now()
		err = lease.Wait(ctx, cc.locker, lk, cc.pollInterval, deadline)
		cc.hooks.LeaseWaited(sk, time.Since(start), err)
		if err != nil {
			return zero, err
		}

		if v, ok, err := cc.recheck(ctx, sk); err != nil || ok {
			return v, err
		}
		if !time.Now().Before(deadline) {
			return zero, fmt.Errorf("%w: %s", ErrLockTimeout, lk)
		}
	}
}

func (cc *cache[V]) computeUnderLease(ctx context.Context, sk, lk string, fn Producer[V], ttl time.Duration) (V, error) {
	var zero V
	defer cc.releaseLease(ctx, sk, lk)

	// the previous holder may have written between our read and our acquire
	if v, ok, err := cc.recheck(ctx, sk); err != nil || ok {
		return v, err
	}

	v, err := cc.compute(ctx, sk, fn)
	if err != nil {
		return zero, err
	}

	if cc.fence {
		owner, held, err := cc.locker.Query(ctx, lk)
		if err != nil {
			return zero, err
		}
		if held && owner != cc.token {
			// lease expired mid-compute and was taken over; the new holder writes
			cc.hooks.WriteFenced(sk, owner)
			cc.log.Warn("lease lost before write, skipping", Fields{"key": sk, "owner": owner})
			return v, nil
		}
	}
	return cc.store(ctx, sk, v, ttl)
}

// releaseLease runs even if ctx is already cancelled. Failures are reported
// and left to the lease TTL.
func (cc *cache[V]) releaseLease(ctx context.Context, sk, lk string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := cc.locker.Release(rctx, lk, cc.token); err != nil {
		cc.hooks.LeaseReleaseError(sk, err)
		cc.log.Error("lease release failed", Fields{"key": sk, "err": err})
	}
}

func (cc *cache[V]) FetchOrComputeUnlocked(ctx context.Context, key fingerprint.Key, fn Producer[V], opts CachingOptions) (V, error) {
	var zero V
	if fn == nil {
		return zero, ErrNilProducer
	}
	sk := cc.storageKey(key)

	if v, ok, err := cc.fastPath(ctx, sk); err != nil || ok {
		return v, err
	}
	cc.hooks.Miss(sk)

	v, err := cc.compute(ctx, sk, fn)
	if err != nil {
		return zero, err
	}
	return cc.store(ctx, sk, v, cc.expiry(opts))
}

func (cc *cache[V]) FetchOrComputeAsync(ctx context.Context, key fingerprint.Key, fn Producer[V], opts CachingOptions) *Future[V] {
	return Go(func() (V, error) { return cc.FetchOrCompute(ctx, key, fn, opts) })
}

func (cc *cache[V]) FetchOrComputeUnlockedAsync(ctx context.Context, key fingerprint.Key, fn Producer[V], opts CachingOptions) *Future[V] {
	return Go(func() (V, error) { return cc.FetchOrComputeUnlocked(ctx, key, fn, opts) })
}

func (cc *cache[V]) Get(ctx context.Context, key fingerprint.Key) (V, bool, error) {
	v, _, ok, err := cc.lookup(ctx, cc.storageKey(key))
	return v, ok, err
}

func (cc *cache[V]) Set(ctx context.Context, key fingerprint.Key, value V, ttl time.Duration) (V, error) {
	return cc.store(ctx, cc.storageKey(key), value, coalesce(ttl, cc.defaultExpiry))
}

func (cc *cache[V]) KeyExists(ctx context.Context, key fingerprint.Key) (bool, error) {
	return cc.backend.Exists(ctx, cc.storageKey(key))
}

// fastPath is Exists then Read, without any lock. A key that expires in
// between reads as a miss.
func (cc *cache[V]) fastPath(ctx context.Context, sk string) (V, bool, error) {
	var zero V
	exists, err := cc.backend.Exists(ctx, sk)
	if err != nil || !exists {
		return zero, false, err
	}
	return cc.recheck(ctx, sk)
}

func (cc *cache[V]) recheck(ctx context.Context, sk string) (V, bool, error) {
	v, writtenAt, ok, err := cc.lookup(ctx, sk)
	if ok {
		// clocks of other writers may run ahead of ours
		age := max(time.Since(writtenAt), 0)
		cc.hooks.Hit(sk, age)
		cc.log.Debug("cache hit", Fields{"key": sk, "age": age})
	}
	return v, ok, err
}

// lookup reads and decodes one entry along with the time it was written.
// Unreadable entries are misses; they are left in place for the next write
// to overwrite.
func (cc *cache[V]) lookup(ctx context.Context, sk string) (V, time.Time, bool, error) {
	var zero V
	raw, ok, err := cc.backend.Read(ctx, sk)
	if err != nil || !ok {
		return zero, time.Time{}, false, err
	}
	writtenAt, payload, err := wire.DecodeEntry(raw)
	if err != nil {
		cc.corrupt(sk, "frame", err)
		return zero, time.Time{}, false, nil
	}
	v, err := cc.codec.Decode(payload)
	if err != nil {
		cc.corrupt(sk, "decode", err)
		return zero, time.Time{}, false, nil
	}
	return v, writtenAt, true, nil
}

func (cc *cache[V]) corrupt(sk, reason string, err error) {
	cc.hooks.CorruptEntry(sk, reason)
	cc.log.Warn("unreadable cache entry", Fields{"key": sk, "reason": reason, "err": err})
}

func (cc *cache[V]) store(ctx context.Context, sk string, v V, ttl time.Duration) (V, error) {
	var zero V
	payload, err := cc.codec.Encode(v)
	if err != nil {
		return zero, fmt.Errorf("oncecache: encode %q: %w", sk, err)
	}
	if _, err := cc.backend.Write(ctx, sk, wire.EncodeEntry(time.Now(), payload), ttl); err != nil {
		return zero, err
	}
	return v, nil
}

// compute runs fn, converting a panic into an error so the slot and lease
// are still released by the caller's defers.
func (cc *cache[V]) compute(ctx context.Context, sk string, fn Producer[V]) (v V, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			var zero V
			v, err = zero, &panicError{v: r}
		}
		cc.hooks.Computed(sk, time.Since(start), err)
		if err != nil {
			cc.log.Debug("producer failed", Fields{"key": sk, "err": err})
			err = &ProducerError{Key: sk, Err: err}
		}
	}()
	return fn(ctx)
}

func (cc *cache[V]) expiry(opts CachingOptions) time.Duration {
	return coalesce(opts.Expiry, cc.defaultExpiry)
}

func (cc *cache[V]) storageKey(key fingerprint.Key) string {
	return util.StorageKey(cc.ns, string(key))
}
