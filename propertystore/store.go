// Package propertystore contracts the shared key-value property store that
// backs cross-process coordination, plus its coarse advisory lock primitive.
// This package defines the interfaces plus in-memory and Redis-backed
// implementations of them; the object store and query matcher are separate
// collaborators.
package propertystore

import (
	"context"
	"time"
)

// Store is the property-store driver contract: atomic get/set/delete of a
// single string-valued key.
type Store interface {
	// Get returns the value at key. ok is false if the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set atomically replaces the value at key.
	Set(ctx context.Context, key string, value string) error
	// Delete atomically removes key. It is not an error if key is absent.
	Delete(ctx context.Context, key string) error
}

// AdvisoryLock is a process-wide mutual-exclusion primitive backed by the
// property store's own locking primitive.
type AdvisoryLock interface {
	// TryAcquire blocks up to timeout attempting to become the single holder.
	// acquired is false (not an error) on ordinary contention; it returns an
	// error only when the underlying primitive itself fails.
	TryAcquire(ctx context.Context, timeout time.Duration) (acquired bool, err error)
	// Release is always safe to call after a successful acquire, and is a
	// no-op otherwise.
	Release(ctx context.Context) error
}
