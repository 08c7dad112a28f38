// Package intercept decides per request whether caching applies.
//
// A request opts in by being wrapped with AsCaching. Resolve strips the
// wrapping before the request is fingerprinted or executed, so a marked and an
// unmarked request share one fingerprint.
package intercept

import (
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/oncecache"
	"github.com/unkn0wn-root/oncecache/fingerprint"
)

var ErrConflictingOptions = errors.New("intercept: conflicting caching options")

// ConflictMode picks how differing annotations on one request are resolved.
type ConflictMode uint8

const (
	// ConflictReject fails with ErrConflictingOptions.
	ConflictReject ConflictMode = iota
	// ConflictLastWins keeps the annotation found last while unwrapping from
	// the outside in, i.e. the innermost one. Silent; kept for compatibility.
	ConflictLastWins
)

// Marked is a request annotated as cacheable.
type Marked struct {
	Inner fingerprint.Renderer
	Opts  []oncecache.CachingOptions
}

// Canonical renders the wrapped request; the annotation never reaches the key.
func (m Marked) Canonical() ([]byte, error) { return m.Inner.Canonical() }

// AsCaching marks r as cacheable. Without opts the defaults apply
// (5m expiry, distributed lock).
func AsCaching(r fingerprint.Renderer, opts ...oncecache.CachingOptions) Marked {
	if len(opts) == 0 {
		opts = []oncecache.CachingOptions{oncecache.DefaultCachingOptions()}
	}
	return Marked{Inner: r, Opts: opts}
}

// WithExpiry is AsCaching with a custom expiry and the distributed lock on.
func WithExpiry(r fingerprint.Renderer, expiry time.Duration) Marked {
	return AsCaching(r, oncecache.CachingOptions{Expiry: expiry, DistributedLock: true})
}

// Resolve strips every annotation from r and returns the bare request with
// the options that apply. cacheable is false when r carries no annotation.
// Both Marked and *Marked are recognized; a marker built without options
// stands for DefaultCachingOptions.
func Resolve(r fingerprint.Renderer, mode ConflictMode) (inner fingerprint.Renderer, opts oncecache.CachingOptions, cacheable bool, err error) {
	var found []oncecache.CachingOptions
unwrap:
	for {
		var m Marked
		switch v := r.(type) {
		case Marked:
			m = v
		case *Marked:
			if v == nil {
				return r, oncecache.CachingOptions{}, false, nil
			}
			m = *v
		default:
			break unwrap
		}
		if len(m.Opts) == 0 {
			found = append(found, oncecache.DefaultCachingOptions())
		} else {
			found = append(found, m.Opts...)
		}
		r = m.Inner
	}
	if len(found) == 0 {
		return r, oncecache.CachingOptions{}, false, nil
	}

	opts = found[len(found)-1]
	for _, o := range found {
		if o != opts && mode == ConflictReject {
			return r, oncecache.CachingOptions{}, false,
				fmt.Errorf("%w: %+v vs %+v", ErrConflictingOptions, o, opts)
		}
	}
	return r, opts, true, nil
}
