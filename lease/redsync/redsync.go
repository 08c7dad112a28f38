// Package redsync is a lease.Locker on go-redsync with a single go-redis pool.
//
// redsync stores the owner token as the lock key's value, so Query is a plain
// GET. Mutexes acquired here are remembered until released because redsync
// unlocks through the Mutex that took the lock.
package redsync

import (
	"context"
	"sync"
	"time"

	rs "github.com/go-redsync/redsync/v4"
	rsgoredis "github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/oncecache/backend"
	"github.com/unkn0wn-root/oncecache/lease"
)

type Locker struct {
	rs  *rs.Redsync
	rdb goredis.UniversalClient

	mu   sync.Mutex
	held map[heldKey]*rs.Mutex
}

type heldKey struct{ lockKey, token string }

var _ lease.Locker = (*Locker)(nil)

func New(client goredis.UniversalClient) *Locker {
	return &Locker{
		rs:   rs.New(rsgoredis.NewPool(client)),
		rdb:  client,
		held: make(map[heldKey]*rs.Mutex),
	}
}

func (l *Locker) TryAcquire(ctx context.Context, lockKey, token string, ttl time.Duration) (bool, error) {
	if token == "" {
		return false, lease.ErrEmptyToken
	}
	if ttl <= 0 {
		ttl = lease.DefaultTTL
	}
	m := l.rs.NewMutex(lockKey,
		rs.WithExpiry(ttl),
		rs.WithTries(1),
		rs.WithGenValueFunc(func() (string, error) { return token, nil }),
	)
	if err := m.TryLockContext(ctx); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		// redsync reports contention and outages alike; a failing GET tells them apart
		if _, _, qerr := l.Query(ctx, lockKey); qerr != nil {
			return false, qerr
		}
		return false, nil
	}

	l.mu.Lock()
	l.held[heldKey{lockKey, token}] = m
	l.mu.Unlock()
	return true, nil
}

func (l *Locker) Release(ctx context.Context, lockKey, token string) error {
	k := heldKey{lockKey, token}
	l.mu.Lock()
	m, ok := l.held[k]
	delete(l.held, k)
	l.mu.Unlock()
	if !ok {
		return nil
	}

	if _, err := m.UnlockContext(ctx); err != nil {
		owner, held, qerr := l.Query(ctx, lockKey)
		if qerr != nil {
			return qerr
		}
		if held && owner == token {
			return backend.Unavailable("unlock", lockKey, err)
		}
		// expired or taken over: nothing left to release
	}
	return nil
}

func (l *Locker) Query(ctx context.Context, lockKey string) (string, bool, error) {
	v, err := l.rdb.Get(ctx, lockKey).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, backend.Unavailable("owner", lockKey, err)
	}
	return v, true, nil
}
