// Package oncecache computes expensive values at most once across a fleet of
// processes sharing one cache store.
//
// A caller hands FetchOrCompute a fingerprint and a producer. If the store has
// the value it is returned. Otherwise one caller in the process takes the local
// exclusion slot, one process takes a lease in the store, and only that caller
// runs the producer and writes the result. Everybody else waits for the lease
// to go away and reads what was written.
//
// Components:
//   - fingerprint: stable keys for requests (xxHash64 over a canonical form).
//   - backend: byte store with TTL (Redis, in-memory, Ristretto, BigCache).
//     Stores that implement backend.LeaseStore can also host leases.
//   - lease: token-owned, TTL-bounded locks (on a LeaseStore or redsync).
//   - codec: Codec[V] (de)serializes V <-> []byte.
//   - intercept: marks requests as cacheable and routes them through a Cache.
//
// Keys:
//
//	<ns>:<fingerprint>       - cached values
//	<ns>:<fingerprint>:lock  - leases
//
// Usage:
//
//	c, _ := oncecache.New(oncecache.Options[Report]{
//	    Namespace: "app:prod:reports",
//	    Backend:   rb, // backend/redis
//	    Codec:     codec.JSON[Report]{},
//	})
//	key := fingerprint.String(sql)
//	r, err := c.FetchOrCompute(ctx, key, runReport, oncecache.DefaultCachingOptions())
//
// A crashed lease holder blocks its key until LeaseTTL passes; waiters give up
// with ErrLockTimeout after MaxLockWait.
package oncecache
