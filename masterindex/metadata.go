package masterindex

import "time"

// LockLease is a time-bounded, best-effort per-collection exclusion marker.
// It is not enforced by the data layer, only observed by cooperating
// clients.
type LockLease struct {
	IsLocked    bool
	LockedBy    string
	LockedAt    time.Time
	LockTimeout time.Duration
}

// Expired reports whether the lease has passed its timeout as of now.
// A lease is expired iff now >= lockedAt + lockTimeout.
func (l *LockLease) Expired(now time.Time) bool {
	if l == nil || !l.IsLocked {
		return true
	}
	return !now.Before(l.LockedAt.Add(l.LockTimeout))
}

// CollectionMetadata is the value object describing one registered
// collection. Name is never mutated after construction; all other fields
// are changed through explicit mutator methods, and every instance returned
// across the MasterIndex persistence boundary is an independent clone so
// mutating it cannot alias persisted state.
type CollectionMetadata struct {
	name              string
	blobID            *string
	created           time.Time
	lastUpdated       time.Time
	documentCount     int64
	modificationToken string
	lockStatus        *LockLease
}

// MetadataFields are the optional fields accepted by NewCollectionMetadata;
// zero values take sane defaults.
type MetadataFields struct {
	Created           time.Time
	LastUpdated       time.Time
	DocumentCount     int64
	ModificationToken string
	LockStatus        *LockLease
}

// NewCollectionMetadata constructs a CollectionMetadata from positional name
// and blobID plus optional fields.
func NewCollectionMetadata(name string, blobID *string, fields MetadataFields) *CollectionMetadata {
	now := time.Now().UTC()
	created := fields.Created
	if created.IsZero() {
		created = now
	}
	lastUpdated := fields.LastUpdated
	if lastUpdated.IsZero() {
		lastUpdated = created
	}

	return &CollectionMetadata{
		name:              name,
		blobID:            blobID,
		created:           created,
		lastUpdated:       lastUpdated,
		documentCount:     fields.DocumentCount,
		modificationToken: fields.ModificationToken,
		lockStatus:        fields.LockStatus.Clone(),
	}
}

// Name returns the collection's stable identity. It is never mutated.
func (m *CollectionMetadata) Name() string { return m.name }

// BlobID returns the collection's object-store blob reference, which may be
// nil only transiently.
func (m *CollectionMetadata) BlobID() *string { return m.blobID }

// SetBlobID updates the blob reference.
func (m *CollectionMetadata) SetBlobID(blobID *string) { m.blobID = blobID }

// Created returns the creation timestamp.
func (m *CollectionMetadata) Created() time.Time { return m.created }

// LastUpdated returns the last-modified timestamp.
func (m *CollectionMetadata) LastUpdated() time.Time { return m.lastUpdated }

// DocumentCount returns the advisory document count.
func (m *CollectionMetadata) DocumentCount() int64 { return m.documentCount }

// SetDocumentCount sets the advisory document count.
func (m *CollectionMetadata) SetDocumentCount(count int64) { m.documentCount = count }

// GetModificationToken returns the current modification token.
func (m *CollectionMetadata) GetModificationToken() string { return m.modificationToken }

// SetModificationToken sets the modification token.
func (m *CollectionMetadata) SetModificationToken(token string) { m.modificationToken = token }

// GetLockStatus returns the current lock lease, or nil if unlocked.
func (m *CollectionMetadata) GetLockStatus() *LockLease { return m.lockStatus.Clone() }

// SetLockStatus replaces the lock lease; pass nil to clear it.
func (m *CollectionMetadata) SetLockStatus(lease *LockLease) { m.lockStatus = lease.Clone() }

// Touch refreshes lastUpdated to now.
func (m *CollectionMetadata) Touch() { m.lastUpdated = time.Now().UTC() }

// Clone returns an independent deep copy, so the caller can mutate it
// without affecting the persisted snapshot.
func (m *CollectionMetadata) Clone() *CollectionMetadata {
	if m == nil {
		return nil
	}
	var blobID *string
	if m.blobID != nil {
		b := *m.blobID
		blobID = &b
	}
	return &CollectionMetadata{
		name:              m.name,
		blobID:            blobID,
		created:           m.created,
		lastUpdated:       m.lastUpdated,
		documentCount:     m.documentCount,
		modificationToken: m.modificationToken,
		lockStatus:        m.lockStatus.Clone(),
	}
}

// Clone returns an independent copy of the lease, or nil if l is nil.
func (l *LockLease) Clone() *LockLease {
	if l == nil {
		return nil
	}
	clone := *l
	return &clone
}

// withName returns a clone renamed to name, used by MasterIndex to enforce
// the name invariant at the construction boundary (rename-by-copy) rather
// than silently overriding the identity on an existing value.
func (m *CollectionMetadata) withName(name string) *CollectionMetadata {
	clone := m.Clone()
	clone.name = name
	return clone
}
