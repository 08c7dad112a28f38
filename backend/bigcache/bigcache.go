// Package bigcache is an in-process Backend on allegro/bigcache.
//
// BigCache has no per-entry TTL: every entry lives for Config.LifeWindow
// regardless of the ttl passed to Write. It cannot back lease locks.
package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/oncecache/backend"
)

type Provider struct {
	c *bc.BigCache
}

var _ backend.Backend = (*Provider)(nil)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Provider, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	conf.Verbose = false
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := p.Read(ctx, key)
	return ok, err
}

func (p *Provider) Read(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, backend.Unavailable("read", key, err)
	}
	return b, true, nil
}

// Write ignores ttl; see package doc.
func (p *Provider) Write(_ context.Context, key string, value []byte, _ time.Duration) ([]byte, error) {
	if err := p.c.Set(key, value); err != nil {
		return nil, backend.Unavailable("write", key, err)
	}
	return value, nil
}

func (p *Provider) Close(_ context.Context) error {
	return p.c.Close()
}
