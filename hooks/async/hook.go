// Package asynchook moves hook calls off the coordinator's hot path.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{HitEvery: 100})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := oncecache.New[Report](oncecache.Options[Report]{
//	    Namespace: "app:prod:reports",
//	    Backend:   rb,
//	    Codec:     codec.JSON[Report]{},
//	    Hooks:     hooks, // or `raw` if you don’t want async
//	})
//
// Events are dropped when the queue is full; Dropped reports how many.
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/oncecache"
)

type Hooks struct {
	inner   oncecache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards closed against sends racing Close
	closed  bool
	dropped atomic.Uint64
}

var _ oncecache.Hooks = (*Hooks)(nil)

func New(inner oncecache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Later events are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) Miss(k string)               { h.try(func() { h.inner.Miss(k) }) }
func (h *Hooks) LeaseContended(k string)     { h.try(func() { h.inner.LeaseContended(k) }) }
func (h *Hooks) WriteFenced(k, owner string) { h.try(func() { h.inner.WriteFenced(k, owner) }) }
func (h *Hooks) CorruptEntry(k, r string)    { h.try(func() { h.inner.CorruptEntry(k, r) }) }
func (h *Hooks) LeaseReleaseError(k string, err error) {
	h.try(func() { h.inner.LeaseReleaseError(k, err) })
}
func (h *Hooks) Hit(k string, age time.Duration) {
	h.try(func() { h.inner.Hit(k, age) })
}
func (h *Hooks) Computed(k string, d time.Duration, err error) {
	h.try(func() { h.inner.Computed(k, d, err) })
}
func (h *Hooks) LeaseWaited(k string, d time.Duration, err error) {
	h.try(func() { h.inner.LeaseWaited(k, d, err) })
}
