package oncecache

import "time"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// Served from the backend (fast path or a re-check). age is the time
	// since the entry was written, per the writer's clock.
	Hit(storageKey string, age time.Duration)
	// Fast path missed; the caller is heading for the slow path.
	Miss(storageKey string)

	// The producer ran. err is the producer's error, if any.
	Computed(storageKey string, took time.Duration, err error)

	// TryAcquire lost to another populator.
	LeaseContended(storageKey string)
	// Waiting on another populator finished (err is nil, a timeout or ctx error).
	LeaseWaited(storageKey string, took time.Duration, err error)

	// Our lease was lost before the write; the write was skipped.
	// owner is the token now holding the lease ("" if none).
	WriteFenced(storageKey, owner string)

	// A stored entry could not be read back; treated as a miss.
	// reason ∈ {"frame", "decode"}
	CorruptEntry(storageKey, reason string)

	// Releasing our lease failed. It will expire by TTL.
	LeaseReleaseError(storageKey string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Hit(string, time.Duration)                {}
func (NopHooks) Miss(string)                              {}
func (NopHooks) Computed(string, time.Duration, error)    {}
func (NopHooks) LeaseContended(string)                    {}
func (NopHooks) LeaseWaited(string, time.Duration, error) {}
func (NopHooks) WriteFenced(string, string)               {}
func (NopHooks) CorruptEntry(string, string)              {}
func (NopHooks) LeaseReleaseError(string, error)          {}
