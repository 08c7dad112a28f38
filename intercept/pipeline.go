package intercept

import (
	"context"

	"github.com/unkn0wn-root/oncecache"
	"github.com/unkn0wn-root/oncecache/fingerprint"
)

// Executor runs a bare request against the source of truth.
type Executor[V any] func(ctx context.Context, r fingerprint.Renderer) (V, error)

// Pipeline routes requests through a Cache when they are marked with
// AsCaching and straight to Exec otherwise.
type Pipeline[V any] struct {
	Cache oncecache.Cache[V]
	Exec  Executor[V]
	// Unlocked uses plain cache-aside (FetchOrComputeUnlocked) for marked requests.
	Unlocked bool
	Mode     ConflictMode
}

func (p *Pipeline[V]) Execute(ctx context.Context, r fingerprint.Renderer) (V, error) {
	var zero V
	inner, opts, cacheable, err := Resolve(r, p.Mode)
	if err != nil {
		return zero, err
	}
	if !cacheable {
		return p.Exec(ctx, inner)
	}

	key, err := fingerprint.Of(inner)
	if err != nil {
		return zero, err
	}
	fn := func(ctx context.Context) (V, error) { return p.Exec(ctx, inner) }
	if p.Unlocked {
		return p.Cache.FetchOrComputeUnlocked(ctx, key, fn, opts)
	}
	return p.Cache.FetchOrCompute(ctx, key, fn, opts)
}

func (p *Pipeline[V]) ExecuteAsync(ctx context.Context, r fingerprint.Renderer) *oncecache.Future[V] {
	return oncecache.Go(func() (V, error) { return p.Execute(ctx, r) })
}
