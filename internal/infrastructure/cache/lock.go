package cache

import (
	"context"
	"errors"
	"time"
)

// ErrLockNotHeld is returned when extending or releasing a lock whose token
// no longer matches
var ErrLockNotHeld = errors.New("cache: lock not held")

// DistributedLock is a TTL-bounded mutual exclusion keyed by name.
// TryAcquire never blocks: ok is false when another holder owns the key.
// The returned token must be passed to Extend and Release.
type DistributedLock interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	// Extend resets the TTL of a lock the caller still holds
	Extend(ctx context.Context, key, token string, ttl time.Duration) error
	Release(ctx context.Context, key, token string) error
}
