// Package masterindex implements the coordination kernel: the Master Index
// registry of collections with per-collection virtual locks and modification
// tokens, built from an injected property-store driver and CoarseLock.
package masterindex

import (
	"context"
	"crypto/rand"
	"fmt"
	"regexp"
	"sync"
	"time"

	"gasdb/gderrors"
	"gasdb/gdlog"
	"gasdb/propertystore"

	"go.uber.org/zap"
)

const lowerAlnum = "abcdefghijklmnopqrstuvwxyz0123456789"

var tokenPattern = regexp.MustCompile(`^\d+-[a-z0-9]+$`)

func errLockTimeout() error {
	return fmt.Errorf("%w", gderrors.ErrLockTimeout)
}

// Config holds MasterIndex configuration.
type Config struct {
	Key               string
	LockTimeout       time.Duration
	Version           int
	HistoryLimit      int
}

// DefaultConfig returns the configuration a fresh MasterIndex starts with if
// the caller doesn't override anything.
func DefaultConfig() *Config {
	return &Config{
		Key:          "GASDB_MASTER_INDEX",
		LockTimeout:  30 * time.Second,
		Version:      1,
		HistoryLimit: 100,
	}
}

// MasterIndex is the coordination kernel. It owns the registry snapshot in
// memory, persists it through PropertyCodec+CoarseLock, and exposes
// collection CRUD, per-collection lease-based locks, token generation,
// conflict detection, and bounded modification history.
type MasterIndex struct {
	config *Config
	store  propertystore.Store
	lock   *CoarseLock
	codec  *PropertyCodec

	mu       sync.RWMutex
	snapshot *RegistrySnapshot
}

func validateConfig(config *Config) error {
	if config.LockTimeout < 500*time.Millisecond {
		return fmt.Errorf("%w: lockTimeout must be at least 500ms", gderrors.ErrConfigurationError)
	}
	if config.HistoryLimit <= 0 {
		return fmt.Errorf("%w: modificationHistoryLimit must be positive", gderrors.ErrConfigurationError)
	}
	return nil
}

// Load reads config.Key and, if present and well-formed, returns a ready
// MasterIndex with existed=true. If the key is absent, it returns
// (nil, false, nil) without writing anything, so callers like
// Database.initialise can refuse on a missing database instead of silently
// creating one.
func Load(ctx context.Context, store propertystore.Store, lock propertystore.AdvisoryLock, config *Config) (*MasterIndex, bool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := validateConfig(config); err != nil {
		return nil, false, err
	}

	mi := &MasterIndex{
		config: config,
		store:  store,
		lock:   NewCoarseLock(lock),
		codec:  NewPropertyCodec(),
	}

	raw, ok, err := store.Get(ctx, config.Key)
	if err != nil {
		return nil, false, gderrors.NewMasterIndexError(gderrors.OpLoad, err)
	}
	if !ok {
		return nil, false, nil
	}

	snapshot, err := mi.codec.Decode(raw)
	if err != nil {
		return nil, false, err
	}
	snapshot.repairShape()
	mi.snapshot = snapshot
	return mi, true, nil
}

// New opens (or initialises) a MasterIndex bound to config.Key. If the key
// is absent, an empty snapshot is created and persisted (the "open" path,
// distinct from Database.createDatabase, which refuses when a snapshot
// already exists).
func New(ctx context.Context, store propertystore.Store, lock propertystore.AdvisoryLock, config *Config) (*MasterIndex, error) {
	mi, existed, err := Load(ctx, store, lock, config)
	if err != nil {
		return nil, err
	}
	if existed {
		return mi, nil
	}

	if config == nil {
		config = DefaultConfig()
	}
	mi = &MasterIndex{
		config:   config,
		store:    store,
		lock:     NewCoarseLock(lock),
		codec:    NewPropertyCodec(),
		snapshot: newEmptySnapshot(),
	}
	if err := mi.persist(ctx, mi.config.LockTimeout); err != nil {
		return nil, err
	}
	return mi, nil
}

// persistLocked serialises the in-memory snapshot and writes it to the
// property store; callers must already hold the CoarseLock and mi.mu for
// writing.
func (mi *MasterIndex) persistLocked(ctx context.Context) error {
	encoded, err := mi.codec.Encode(mi.snapshot)
	if err != nil {
		return err
	}
	if err := mi.store.Set(ctx, mi.config.Key, encoded); err != nil {
		return gderrors.NewMasterIndexError(gderrors.OpSave, err)
	}
	return nil
}

// persist acquires the CoarseLock, runs persistLocked, then releases.
func (mi *MasterIndex) persist(ctx context.Context, timeout time.Duration) error {
	return mi.lock.withLock(ctx, timeout, func() error {
		mi.mu.Lock()
		defer mi.mu.Unlock()
		return mi.persistLocked(ctx)
	})
}

// IsInitialised reports whether the snapshot is present with a version.
func (mi *MasterIndex) IsInitialised() bool {
	mi.mu.RLock()
	defer mi.mu.RUnlock()
	return mi.snapshot != nil && mi.snapshot.Version > 0
}

// recordHistory appends a bounded history entry for name; invalid names
// silently drop history, since history recording must never fail a caller's
// write. Callers must hold mi.mu for writing.
func (mi *MasterIndex) recordHistory(name, operation string, data any) {
	if name == "" {
		return
	}
	entry := HistoryEntry{
		Operation: operation,
		Timestamp: time.Now().UTC(),
		Data:      deepClonePayload(data),
	}

	entries := append(mi.snapshot.ModificationHistory[name], entry)
	if len(entries) > mi.config.HistoryLimit {
		entries = entries[len(entries)-mi.config.HistoryLimit:]
	}
	mi.snapshot.ModificationHistory[name] = entries
}

// deepClonePayload defensively copies data before it enters persisted
// history, so later caller-side mutation cannot alter history already
// written.
func deepClonePayload(data any) any {
	switch v := data.(type) {
	case map[string]any:
		clone := make(map[string]any, len(v))
		for k, val := range v {
			clone[k] = deepClonePayload(val)
		}
		return clone
	case []any:
		clone := make([]any, len(v))
		for i, val := range v {
			clone[i] = deepClonePayload(val)
		}
		return clone
	default:
		return v
	}
}

// AddCollection normalises meta to carry name, refuses empty names,
// persists, and records ADD_COLLECTION history.
func (mi *MasterIndex) AddCollection(ctx context.Context, name string, meta *CollectionMetadata) error {
	return mi.addCollections(ctx, map[string]*CollectionMetadata{name: meta})
}

// AddCollections is the bulk version of AddCollection: a single critical
// section, all-or-nothing under the lock.
func (mi *MasterIndex) AddCollections(ctx context.Context, metas map[string]*CollectionMetadata) error {
	return mi.addCollections(ctx, metas)
}

func (mi *MasterIndex) addCollections(ctx context.Context, metas map[string]*CollectionMetadata) error {
	for name := range metas {
		if name == "" {
			return fmt.Errorf("%w: collection name must not be empty", gderrors.ErrInvalidArgument)
		}
	}

	return mi.lock.withLock(ctx, mi.config.LockTimeout, func() error {
		mi.mu.Lock()
		defer mi.mu.Unlock()

		for name, meta := range metas {
			normalised := meta
			if normalised == nil {
				normalised = NewCollectionMetadata(name, nil, MetadataFields{})
			} else if normalised.Name() != name {
				normalised = normalised.withName(name)
			}
			if normalised.GetModificationToken() == "" {
				normalised.SetModificationToken(mi.generateModificationTokenLocked())
			}
			mi.snapshot.Collections[name] = normalised
			mi.recordHistory(name, "ADD_COLLECTION", map[string]any{
				"name":   name,
				"blobId": normalised.BlobID(),
			})
		}

		if err := mi.persistLocked(ctx); err != nil {
			return err
		}
		gdlog.Debug("collections added", zap.Int("count", len(metas)))
		return nil
	})
}

// GetCollection is a read-only lookup; no lock is required. It returns a
// fresh CollectionMetadata clone, or nil if absent.
func (mi *MasterIndex) GetCollection(name string) *CollectionMetadata {
	mi.mu.RLock()
	defer mi.mu.RUnlock()
	meta, ok := mi.snapshot.Collections[name]
	if !ok {
		return nil
	}
	return meta.Clone()
}

// GetCollections returns a clone of every registered collection, keyed by name.
func (mi *MasterIndex) GetCollections() map[string]*CollectionMetadata {
	mi.mu.RLock()
	defer mi.mu.RUnlock()
	return mi.snapshot.clone().Collections
}

// MetadataUpdates is the recognised-field update map accepted by
// UpdateCollectionMetadata. Fields left nil are left untouched.
type MetadataUpdates struct {
	DocumentCount     *int64
	ModificationToken *string
	LockStatus        **LockLease
	LastUpdated       *time.Time
}

// UpdateCollectionMetadata applies updates to the named collection. If no
// ModificationToken is supplied, a fresh one is generated: the optimistic
// concurrency contract requires every write to move the token forward, even
// one the caller didn't think of as a "write" in the conflict-detection sense.
func (mi *MasterIndex) UpdateCollectionMetadata(ctx context.Context, name string, updates MetadataUpdates) (*CollectionMetadata, error) {
	var result *CollectionMetadata

	err := mi.lock.withLock(ctx, mi.config.LockTimeout, func() error {
		mi.mu.Lock()
		defer mi.mu.Unlock()

		meta, ok := mi.snapshot.Collections[name]
		if !ok {
			return fmt.Errorf("%w: %s", gderrors.ErrCollectionNotFound, name)
		}

		if updates.DocumentCount != nil {
			meta.SetDocumentCount(*updates.DocumentCount)
		}
		if updates.LockStatus != nil {
			meta.SetLockStatus(*updates.LockStatus)
		}
		if updates.LastUpdated != nil {
			if updates.LastUpdated.IsZero() {
				return fmt.Errorf("%w: lastUpdated must be a valid timestamp", gderrors.ErrInvalidArgument)
			}
			meta.lastUpdated = *updates.LastUpdated
		}

		if updates.ModificationToken != nil {
			meta.SetModificationToken(*updates.ModificationToken)
		} else {
			meta.SetModificationToken(mi.generateModificationTokenLocked())
		}

		if updates.LastUpdated == nil {
			meta.Touch()
		}

		mi.recordHistory(name, "UPDATE_METADATA", map[string]any{
			"documentCount":     meta.DocumentCount(),
			"modificationToken": meta.GetModificationToken(),
		})

		if err := mi.persistLocked(ctx); err != nil {
			return err
		}
		result = meta.Clone()
		return nil
	})

	return result, err
}

// RemoveCollection removes name from the registry, persists, and records
// history. It returns whether a removal actually occurred.
func (mi *MasterIndex) RemoveCollection(ctx context.Context, name string) (bool, error) {
	var removed bool

	err := mi.lock.withLock(ctx, mi.config.LockTimeout, func() error {
		mi.mu.Lock()
		defer mi.mu.Unlock()

		if _, ok := mi.snapshot.Collections[name]; !ok {
			return nil
		}
		delete(mi.snapshot.Collections, name)
		removed = true
		mi.recordHistory(name, "removeCollection", map[string]any{"name": name})

		return mi.persistLocked(ctx)
	})

	return removed, err
}

// AcquireCollectionLock attempts to acquire a lease for name on behalf of
// opID, returning false (not an error) if a non-expired lease is already
// held, whoever its owner is (opID itself included).
func (mi *MasterIndex) AcquireCollectionLock(ctx context.Context, name, opID string, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = mi.config.LockTimeout
	}

	var acquired bool
	err := mi.lock.withLock(ctx, mi.config.LockTimeout, func() error {
		mi.mu.Lock()
		defer mi.mu.Unlock()

		meta, ok := mi.snapshot.Collections[name]
		if !ok {
			return fmt.Errorf("%w: %s", gderrors.ErrCollectionNotFound, name)
		}

		now := time.Now().UTC()
		existing := meta.GetLockStatus()
		if existing != nil && !existing.Expired(now) {
			return nil
		}

		lease := &LockLease{
			IsLocked:    true,
			LockedBy:    opID,
			LockedAt:    now,
			LockTimeout: timeout,
		}
		meta.SetLockStatus(lease)
		acquired = true

		return mi.persistLocked(ctx)
	})

	return acquired, err
}

// ReleaseCollectionLock releases name's lease on behalf of opID. Absent
// collection or absent lease is forgiving and returns true; a lease held by
// a different owner returns false with no change.
func (mi *MasterIndex) ReleaseCollectionLock(ctx context.Context, name, opID string) (bool, error) {
	released := true

	err := mi.lock.withLock(ctx, mi.config.LockTimeout, func() error {
		mi.mu.Lock()
		defer mi.mu.Unlock()

		meta, ok := mi.snapshot.Collections[name]
		if !ok {
			return nil
		}

		lease := meta.GetLockStatus()
		if lease == nil || !lease.IsLocked {
			return nil
		}
		if lease.LockedBy != opID {
			released = false
			return nil
		}

		meta.SetLockStatus(nil)
		return mi.persistLocked(ctx)
	})

	return released, err
}

// IsCollectionLocked is a read-through probe: it reloads the snapshot, then
// evaluates lease && !expired.
func (mi *MasterIndex) IsCollectionLocked(ctx context.Context, name string) (bool, error) {
	if err := mi.reload(ctx); err != nil {
		return false, err
	}

	mi.mu.RLock()
	defer mi.mu.RUnlock()
	meta, ok := mi.snapshot.Collections[name]
	if !ok {
		return false, nil
	}
	lease := meta.GetLockStatus()
	return lease != nil && lease.IsLocked && !lease.Expired(time.Now().UTC()), nil
}

// reload re-reads the persisted snapshot without taking the CoarseLock:
// read-only APIs accept an eventually-consistent view in exchange for not
// contending with writers.
func (mi *MasterIndex) reload(ctx context.Context) error {
	raw, ok, err := mi.store.Get(ctx, mi.config.Key)
	if err != nil {
		return gderrors.NewMasterIndexError(gderrors.OpLoad, err)
	}
	if !ok {
		return nil
	}
	snapshot, err := mi.codec.Decode(raw)
	if err != nil {
		return err
	}

	mi.mu.Lock()
	defer mi.mu.Unlock()
	mi.snapshot = snapshot
	return nil
}

// CleanupExpiredLocks clears every expired lease under the CoarseLock,
// logging and continuing past any single collection's failure.
func (mi *MasterIndex) CleanupExpiredLocks(ctx context.Context) error {
	return mi.lock.withLock(ctx, mi.config.LockTimeout, func() error {
		mi.mu.Lock()
		defer mi.mu.Unlock()

		now := time.Now().UTC()
		var cleaned int
		for name, meta := range mi.snapshot.Collections {
			lease := meta.GetLockStatus()
			if lease == nil || !lease.IsLocked {
				continue
			}
			if !lease.Expired(now) {
				continue
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						gdlog.Error("cleanup of expired lock panicked", gdlog.Collection(name), zap.Any("recover", r))
					}
				}()
				meta.SetLockStatus(nil)
				cleaned++
			}()
		}

		if cleaned == 0 {
			return nil
		}
		return mi.persistLocked(ctx)
	})
}

// randomLowerAlnum produces a random lower-alnum string of length n using
// crypto/rand, matching the token format's ^\d+-[a-z0-9]+$ regex.
func randomLowerAlnum(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = lowerAlnum[int(b)%len(lowerAlnum)]
	}
	return string(out)
}

// GenerateModificationToken returns a fresh `${now_ms}-${9 lower-alnum}`
// token.
func (mi *MasterIndex) GenerateModificationToken() string {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.generateModificationTokenLocked()
}

func (mi *MasterIndex) generateModificationTokenLocked() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), randomLowerAlnum(9))
}

// ValidateModificationToken reports whether t matches ^\d+-[a-z0-9]+$.
func (mi *MasterIndex) ValidateModificationToken(t string) bool {
	return tokenPattern.MatchString(t)
}

// HasConflict returns false if name is absent, since a missing collection
// cannot conflict with a token from a previous life; otherwise true iff the
// current token differs from expectedToken.
func (mi *MasterIndex) HasConflict(name, expectedToken string) (bool, error) {
	if name == "" || expectedToken == "" {
		return false, fmt.Errorf("%w: name and expectedToken must be non-empty", gderrors.ErrInvalidArgument)
	}

	mi.mu.RLock()
	defer mi.mu.RUnlock()
	meta, ok := mi.snapshot.Collections[name]
	if !ok {
		return false, nil
	}
	return meta.GetModificationToken() != expectedToken, nil
}

// ConflictStrategy names a resolution strategy for ResolveConflict.
type ConflictStrategy string

// LastWriteWins is currently the only supported strategy.
const LastWriteWins ConflictStrategy = "LAST_WRITE_WINS"

// ResolveConflict applies recognised fields from newData, forces a fresh
// token, touches lastUpdated, persists, and records CONFLICT_RESOLVED
// history.
func (mi *MasterIndex) ResolveConflict(ctx context.Context, name string, newData MetadataUpdates, strategy ConflictStrategy) (*CollectionMetadata, error) {
	if strategy != LastWriteWins {
		return nil, fmt.Errorf("%w: unknown conflict strategy %q", gderrors.ErrConfigurationError, strategy)
	}

	var result *CollectionMetadata
	err := mi.lock.withLock(ctx, mi.config.LockTimeout, func() error {
		mi.mu.Lock()
		defer mi.mu.Unlock()

		meta, ok := mi.snapshot.Collections[name]
		if !ok {
			return fmt.Errorf("%w: %s", gderrors.ErrCollectionNotFound, name)
		}

		if newData.DocumentCount != nil {
			meta.SetDocumentCount(*newData.DocumentCount)
		}
		if newData.LockStatus != nil {
			meta.SetLockStatus(*newData.LockStatus)
		}
		meta.SetModificationToken(mi.generateModificationTokenLocked())
		meta.Touch()

		mi.recordHistory(name, "CONFLICT_RESOLVED", map[string]any{
			"strategy":          string(strategy),
			"modificationToken": meta.GetModificationToken(),
		})

		if err := mi.persistLocked(ctx); err != nil {
			return err
		}
		result = meta.Clone()
		return nil
	})

	return result, err
}
