package repository

import (
	"context"
	"time"
)

// Locker is a distributed, TTL-bound mutual exclusion primitive.
type Locker interface {
	// TryLock returns a token when the lock was acquired, or domain.ErrLockHeld.
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}
