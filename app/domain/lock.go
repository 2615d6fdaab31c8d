package domain

import (
	"context"
	"time"
)

// Lock is a held per-product mutex. Release is idempotent and never touches
// a lock that has since been acquired by another holder.
type Lock interface {
	Key() AccountKey
	Release(ctx context.Context) error
}

// Locker hands out per-product mutexes backed by a store shared by every instance.
// Acquire returns ErrLockTimeout when the lock is not obtained within timeout,
// including when the backing store is unreachable.
type Locker interface {
	Acquire(ctx context.Context, key AccountKey, timeout time.Duration) (Lock, error)
}
