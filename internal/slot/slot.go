// Package slot provides in-process exclusion for the cache populate path.
//
// Both implementations wait with semaphore.Weighted, so a waiting caller
// parks its goroutine and gives up as soon as its context is done.
package slot

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Slot hands out exclusive access. The returned release func is idempotent
// and must be called on every path once Acquire succeeds.
type Slot interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Global is a single slot shared by every key: one populate attempt at a time.
type Global struct {
	sem *semaphore.Weighted
}

var _ Slot = (*Global)(nil)

func NewGlobal() *Global {
	return &Global{sem: semaphore.NewWeighted(1)}
}

func (g *Global) Acquire(ctx context.Context, _ string) (func(), error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() { once.Do(func() { g.sem.Release(1) }) }, nil
}

// PerKey keeps one slot per key. Slots are created lazily and dropped once
// no caller holds or waits on them.
type PerKey struct {
	mu    sync.Mutex
	slots map[string]*keyed
}

type keyed struct {
	sem  *semaphore.Weighted
	refs int // holders + waiters, guarded by PerKey.mu
}

var _ Slot = (*PerKey)(nil)

func NewPerKey() *PerKey {
	return &PerKey{slots: make(map[string]*keyed)}
}

func (p *PerKey) Acquire(ctx context.Context, key string) (func(), error) {
	p.mu.Lock()
	s, ok := p.slots[key]
	if !ok {
		s = &keyed{sem: semaphore.NewWeighted(1)}
		p.slots[key] = s
	}
	s.refs++
	p.mu.Unlock()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		p.unref(key, s)
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			s.sem.Release(1)
			p.unref(key, s)
		})
	}, nil
}

func (p *PerKey) unref(key string, s *keyed) {
	p.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(p.slots, key)
	}
	p.mu.Unlock()
}

// Len reports how many keys currently have a live slot.
func (p *PerKey) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}
