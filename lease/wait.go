package lease

import (
	"context"
	"fmt"
	"time"
)

// Wait polls Query every interval until lockKey is no longer held.
//
// The caller is expected to read the cache afterwards: a holder writes its
// value before releasing. Wait gives up with ErrLockTimeout once deadline
// passes (zero deadline = no bound) and returns ctx.Err() on cancellation.
func Wait(ctx context.Context, l Locker, lockKey string, interval time.Duration, deadline time.Time) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		_, held, err := l.Query(ctx, lockKey)
		if err != nil {
			return err
		}
		if !held {
			return nil
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return fmt.Errorf("%w: %s", ErrLockTimeout, lockKey)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
