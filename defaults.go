package oncecache

import (
	"time"

	"github.com/unkn0wn-root/oncecache/lease"
)

const (
	DefaultExpiry = 5 * time.Minute

	defaultLeaseTTL     = lease.DefaultTTL
	defaultPollInterval = lease.DefaultPollInterval
	defaultMaxLockWait  = lease.DefaultMaxWait

	// bound on releasing a lease after the caller's ctx is gone
	releaseTimeout = 5 * time.Second
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
