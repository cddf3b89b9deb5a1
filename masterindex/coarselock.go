package masterindex

import (
	"context"
	"time"

	"gasdb/gdlog"
	"gasdb/propertystore"

	"go.uber.org/zap"
)

// CoarseLock wraps the property store's advisory lock primitive. Every
// state-mutating MasterIndex call runs inside TryAcquire → operation →
// Release, with Release guaranteed on all exit paths.
type CoarseLock struct {
	lock propertystore.AdvisoryLock
}

// NewCoarseLock wraps lock.
func NewCoarseLock(lock propertystore.AdvisoryLock) *CoarseLock {
	return &CoarseLock{lock: lock}
}

// TryAcquire blocks up to timeout attempting to become the single holder
// process-wide. It returns false (not an error) on ordinary contention.
func (c *CoarseLock) TryAcquire(ctx context.Context, timeout time.Duration) (bool, error) {
	acquired, err := c.lock.TryAcquire(ctx, timeout)
	if err != nil {
		gdlog.Error("coarse lock acquisition failed", zap.Error(err))
		return false, err
	}
	return acquired, nil
}

// Release is always safe to call after a successful acquire, and idempotent
// otherwise.
func (c *CoarseLock) Release(ctx context.Context) error {
	return c.lock.Release(ctx)
}

// withLock runs fn while holding the CoarseLock, guaranteeing Release on
// every exit path including a panic or error from fn.
func (c *CoarseLock) withLock(ctx context.Context, timeout time.Duration, fn func() error) error {
	acquired, err := c.TryAcquire(ctx, timeout)
	if err != nil {
		return err
	}
	if !acquired {
		return errLockTimeout()
	}
	defer func() {
		if releaseErr := c.Release(ctx); releaseErr != nil {
			gdlog.Error("coarse lock release failed", zap.Error(releaseErr))
		}
	}()

	return fn()
}
