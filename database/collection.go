package database

import (
	"context"
	"time"

	"gasdb/masterindex"

	"github.com/google/uuid"
)

// Collection is the in-memory handle returned by Database.Collection. The
// actual document read/write operations (find, updateOne and the query
// matcher behind them) are a separate collaborator; Collection exposes only
// the registry-backed identity, metadata, and locking the coordination
// kernel owns.
type Collection struct {
	name string
	db   *Database
}

// Name returns the collection's stable identity.
func (c *Collection) Name() string { return c.name }

func (c *Collection) metadata() *masterindex.CollectionMetadata {
	return c.db.masterIndex.GetCollection(c.name)
}

// BlobID returns the object-store blob reference backing this collection,
// or nil if not yet registered.
func (c *Collection) BlobID() *string {
	meta := c.metadata()
	if meta == nil {
		return nil
	}
	return meta.BlobID()
}

// DocumentCount returns the advisory document count from the registry.
func (c *Collection) DocumentCount() int64 {
	meta := c.metadata()
	if meta == nil {
		return 0
	}
	return meta.DocumentCount()
}

// ModificationToken returns the collection's current optimistic-concurrency
// token.
func (c *Collection) ModificationToken() string {
	meta := c.metadata()
	if meta == nil {
		return ""
	}
	return meta.GetModificationToken()
}

// LastUpdated returns the collection's last-modified timestamp.
func (c *Collection) LastUpdated() time.Time {
	meta := c.metadata()
	if meta == nil {
		return time.Time{}
	}
	return meta.LastUpdated()
}

// Lock attempts to acquire this collection's exclusive lease on behalf of
// opID, returning the opID actually used. If opID is empty, a fresh uuid is
// generated so a caller who doesn't track its own operation identity still
// gets a non-predictable lease owner. acquired is false, not an error, on
// ordinary contention with another live lease.
func (c *Collection) Lock(ctx context.Context, opID string, timeout time.Duration) (usedOpID string, acquired bool, err error) {
	if opID == "" {
		opID = uuid.NewString()
	}
	acquired, err = c.db.masterIndex.AcquireCollectionLock(ctx, c.name, opID, timeout)
	return opID, acquired, err
}

// Unlock releases the lease held by opID. It returns false, not an error, if
// the lease is held by a different owner.
func (c *Collection) Unlock(ctx context.Context, opID string) (bool, error) {
	return c.db.masterIndex.ReleaseCollectionLock(ctx, c.name, opID)
}
