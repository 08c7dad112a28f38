// Package redis is a Backend and LeaseStore on go-redis.
//
// Exists and Read go to Replica when one is configured; writes and all lease
// operations always go to Client (the primary).
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/oncecache/backend"
)

var ErrNilClient = errors.New("redis backend: nil client")

// deletes KEYS[1] only while it still holds ARGV[1]
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Redis struct {
	rdb         goredis.UniversalClient
	replica     goredis.UniversalClient
	closeClient bool
}

var (
	_ backend.Backend    = (*Redis)(nil)
	_ backend.LeaseStore = (*Redis)(nil)
)

type Config struct {
	Client      goredis.UniversalClient
	Replica     goredis.UniversalClient // optional read replica
	CloseClient bool                    // set true only if this backend exclusively owns the clients
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, replica: cfg.Replica, closeClient: cfg.CloseClient}, nil
}

func (p *Redis) reader() goredis.UniversalClient {
	if p.replica != nil {
		return p.replica
	}
	return p.rdb
}

func (p *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := p.reader().Exists(ctx, key).Result()
	if err != nil {
		return false, backend.Unavailable("exists", key, err)
	}
	return n > 0, nil
}

func (p *Redis) Read(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.reader().Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, backend.Unavailable("read", key, err)
	}
	return b, true, nil
}

func (p *Redis) Write(ctx context.Context, key string, value []byte, ttl time.Duration) ([]byte, error) {
	if ttl < 0 {
		ttl = 0 // no expiry
	}
	if err := p.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return nil, backend.Unavailable("write", key, err)
	}
	return value, nil
}

func (p *Redis) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := p.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, backend.Unavailable("setnx", key, err)
	}
	return ok, nil
}

func (p *Redis) Owner(ctx context.Context, key string) (string, bool, error) {
	v, err := p.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, backend.Unavailable("owner", key, err)
	}
	return v, true, nil
}

func (p *Redis) DeleteIfOwner(ctx context.Context, key, value string) (bool, error) {
	n, err := releaseScript.Run(ctx, p.rdb, []string{key}, value).Int64()
	if err != nil {
		return false, backend.Unavailable("delete-if-owner", key, err)
	}
	return n == 1, nil
}

// Close releases the underlying clients only when this backend owns them.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if !p.closeClient {
		return nil
	}
	var errs []error
	if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
		errs = append(errs, err)
	}
	if p.replica != nil {
		if err := p.replica.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
