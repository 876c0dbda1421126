// Package lock provides named, TTL-bounded mutual exclusion leases over
// a shared key-value store. The per-seat reservation lock and the global
// expire-batch lock are both callers of the same interface.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired reports that the lease is held by someone else. Callers
// treat it as transient contention, not a fault.
var ErrNotAcquired = errors.New("lock: not acquired")

// Lease is the held side of a lock. Release is idempotent and only
// removes the lease while this holder still owns it.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker grants leases. Acquire is non-blocking: if the key is held it
// returns ErrNotAcquired immediately.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// WithLock runs fn under a lease on key, releasing it on all paths. The
// lease TTL is the crash safety net; fn is expected to finish well
// within it.
func WithLock(ctx context.Context, l Locker, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	lease, err := l.Acquire(ctx, key, ttl)
	if err != nil {
		return err
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = lease.Release(releaseCtx)
	}()

	return fn(ctx)
}
