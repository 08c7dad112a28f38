// Package ristretto is an in-process Backend on dgraph-io/ristretto.
//
// It has no atomic create-if-absent, so it cannot back lease locks: use it
// with CachingOptions.DistributedLock=false.
package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/oncecache/backend"
)

var ErrInvalidConfig = errors.New("ristretto: invalid config")

type Provider struct {
	c *rc.Cache
}

var _ backend.Backend = (*Provider)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, ErrInvalidConfig
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) get(key string) ([]byte, bool) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false
	}
	b, _ := v.([]byte)
	if b == nil {
		// unexpected entry shape; drop it
		p.c.Del(key)
		return nil, false
	}
	return b, true
}

func (p *Provider) Exists(_ context.Context, key string) (bool, error) {
	_, ok := p.get(key)
	return ok, nil
}

func (p *Provider) Read(_ context.Context, key string) ([]byte, bool, error) {
	b, ok := p.get(key)
	return b, ok, nil
}

// Write costs each entry by its length. A write dropped by admission under
// pressure is not an error: the value is returned and simply not cached.
// Write waits for the set buffer to drain so the value is readable on return.
func (p *Provider) Write(_ context.Context, key string, value []byte, ttl time.Duration) ([]byte, error) {
	if ttl < 0 {
		ttl = 0
	}
	p.c.SetWithTTL(key, value, int64(len(value))+1, ttl)
	p.c.Wait()
	return value, nil
}

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes ristretto's counters (nil unless Config.Metrics).
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
