package oncecache

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/oncecache/backend"
	"github.com/unkn0wn-root/oncecache/lease"
)

var (
	// ErrBackendUnavailable matches any store failure surfaced by a Cache.
	ErrBackendUnavailable = backend.ErrUnavailable
	// ErrLockTimeout is returned when another populator held the lease past MaxLockWait.
	ErrLockTimeout = lease.ErrLockTimeout
	// ErrUnsupported is returned for DistributedLock calls on a Cache without a Locker.
	ErrUnsupported = errors.New("oncecache: distributed lock not supported by backend")
	ErrNilProducer = errors.New("oncecache: nil producer")
)

// ProducerError wraps an error returned (or panic raised) by a Producer.
// The key is left unpopulated.
type ProducerError struct {
	Key string
	Err error
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("oncecache: producer for %q failed: %v", e.Key, e.Err)
}

func (e *ProducerError) Unwrap() error { return e.Err }

// panicError carries a recovered producer panic.
type panicError struct {
	v any
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.v) }
