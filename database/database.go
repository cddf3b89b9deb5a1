// Package database implements the Database façade: lifecycle
// (create/initialise/recover), name sanitisation & reservation, and
// hydration of collection handles from the Master Index.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"gasdb/gderrors"
	"gasdb/gdlog"
	"gasdb/masterindex"
	"gasdb/objectstore"
	"gasdb/propertystore"

	"go.uber.org/zap"
)

// Database is the façade clients open to work with a logical database.
type Database struct {
	config  *Config
	store   propertystore.Store
	advLock propertystore.AdvisoryLock
	objects objectstore.Store

	mu          sync.RWMutex
	masterIndex *masterindex.MasterIndex
	collections map[string]*Collection
}

// New constructs a Database façade, storing configuration only — no I/O
// happens until CreateDatabase/Initialise/RecoverDatabase is called.
func New(store propertystore.Store, advLock propertystore.AdvisoryLock, objects objectstore.Store, config *Config) *Database {
	if config == nil {
		config = DefaultConfig()
	}
	return &Database{
		config:      config,
		store:       store,
		advLock:     advLock,
		objects:     objects,
		collections: make(map[string]*Collection),
	}
}

func (db *Database) masterIndexConfig() *masterindex.Config {
	return &masterindex.Config{
		Key:          db.config.MasterIndexKey,
		LockTimeout:  db.config.LockTimeout,
		Version:      1,
		HistoryLimit: db.config.ModificationHistoryLimit,
	}
}

// CreateDatabase refuses if the configured key already holds any value,
// otherwise persists a fresh, empty registry snapshot.
func (db *Database) CreateDatabase(ctx context.Context) error {
	_, ok, err := db.store.Get(ctx, db.config.MasterIndexKey)
	if err != nil {
		return gderrors.NewMasterIndexError(gderrors.OpLoad, err)
	}
	if ok {
		return fmt.Errorf("Database already exists at key %q", db.config.MasterIndexKey)
	}

	mi, err := masterindex.New(ctx, db.store, db.advLock, db.masterIndexConfig())
	if err != nil {
		return err
	}

	db.mu.Lock()
	db.masterIndex = mi
	db.mu.Unlock()

	gdlog.Debug("database created", gdlog.MasterIndexKey(db.config.MasterIndexKey))
	return nil
}

// Initialise refuses if the configured key is absent or undecodable;
// otherwise hydrates in-memory collection handles for every registry entry
// with a non-null blob ID, and optionally writes a backup blob.
func (db *Database) Initialise(ctx context.Context) error {
	mi, existed, err := masterindex.Load(ctx, db.store, db.advLock, db.masterIndexConfig())
	if err != nil {
		return err
	}
	if !existed {
		return fmt.Errorf("database not found at key %q: call CreateDatabase first", db.config.MasterIndexKey)
	}

	db.mu.Lock()
	db.masterIndex = mi
	for name, meta := range mi.GetCollections() {
		if meta.BlobID() != nil {
			db.collections[name] = &Collection{name: name, db: db}
		}
	}
	hasCollections := len(db.collections) > 0
	db.mu.Unlock()

	if db.config.BackupOnInitialise && hasCollections {
		if err := db.writeBackup(ctx); err != nil {
			gdlog.Error("failed to write registry backup", zap.Error(err))
			return err
		}
	}

	gdlog.Debug("database initialised", zap.Int("collections", len(db.collections)))
	return nil
}

// backupCollectionEntry is the shape of one collection inside the backup
// blob.
type backupCollectionEntry struct {
	Name          string `json:"name"`
	FileID        string `json:"fileId"`
	Created       string `json:"created"`
	LastUpdated   string `json:"lastUpdated"`
	DocumentCount int64  `json:"documentCount"`
}

type backupBlob struct {
	Version     int                               `json:"version"`
	LastUpdated string                            `json:"lastUpdated"`
	Collections map[string]backupCollectionEntry  `json:"collections"`
}

func (db *Database) writeBackup(ctx context.Context) error {
	db.mu.RLock()
	mi := db.masterIndex
	db.mu.RUnlock()

	backup := backupBlob{
		Version:     1,
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
		Collections: make(map[string]backupCollectionEntry),
	}
	for name, meta := range mi.GetCollections() {
		fileID := ""
		if meta.BlobID() != nil {
			fileID = *meta.BlobID()
		}
		backup.Collections[name] = backupCollectionEntry{
			Name:          name,
			FileID:        fileID,
			Created:       meta.Created().Format(time.RFC3339),
			LastUpdated:   meta.LastUpdated().Format(time.RFC3339),
			DocumentCount: meta.DocumentCount(),
		}
	}

	_, err := db.objects.CreateBlob(ctx, "registry-backup", backup, db.config.RootFolderID)
	return err
}

// RecoverDatabase reads and validates the backup blob, creates a fresh
// MasterIndex, and re-registers each collection from the backup, returning
// the list of recovered names.
func (db *Database) RecoverDatabase(ctx context.Context, backupBlobID string) ([]string, error) {
	raw, err := db.objects.ReadBlob(ctx, backupBlobID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read backup blob: %v", gderrors.ErrCorruptedIndex, err)
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to re-encode backup blob: %v", gderrors.ErrCorruptedIndex, err)
	}
	var backup backupBlob
	if err := json.Unmarshal(encoded, &backup); err != nil {
		return nil, fmt.Errorf("%w: backup blob is not valid JSON: %v", gderrors.ErrCorruptedIndex, err)
	}
	if backup.Collections == nil {
		return nil, fmt.Errorf("%w: backup blob is missing a collections mapping", gderrors.ErrCorruptedIndex)
	}

	mi, err := masterindex.New(ctx, db.store, db.advLock, db.masterIndexConfig())
	if err != nil {
		return nil, err
	}

	metas := make(map[string]*masterindex.CollectionMetadata, len(backup.Collections))
	for name, entry := range backup.Collections {
		fileID := entry.FileID
		metas[name] = masterindex.NewCollectionMetadata(name, &fileID, masterindex.MetadataFields{
			DocumentCount: entry.DocumentCount,
		})
	}
	if err := mi.AddCollections(ctx, metas); err != nil {
		return nil, err
	}

	db.mu.Lock()
	db.masterIndex = mi
	for name := range metas {
		db.collections[name] = &Collection{name: name, db: db}
	}
	db.mu.Unlock()

	names := make([]string, 0, len(metas))
	for name := range metas {
		names = append(names, name)
	}
	sort.Strings(names)

	gdlog.Debug("database recovered", zap.Int("collections", len(names)))
	return names, nil
}

// Collection returns an in-memory handle, hydrating from the registry if
// needed; if absent and AutoCreateCollections is true, it creates the
// collection; otherwise it fails referencing the original, un-sanitised name.
func (db *Database) Collection(ctx context.Context, name string) (*Collection, error) {
	db.mu.RLock()
	existing, ok := db.collections[name]
	db.mu.RUnlock()
	if ok {
		return existing, nil
	}

	sanitised, validErr := validateName(name, db.config.StripDisallowedCollectionNameCharacters)
	if validErr == nil {
		if meta := db.masterIndex.GetCollection(sanitised); meta != nil {
			handle := &Collection{name: sanitised, db: db}
			db.mu.Lock()
			db.collections[sanitised] = handle
			db.mu.Unlock()
			return handle, nil
		}
	}

	if db.config.AutoCreateCollections {
		return db.CreateCollection(ctx, name)
	}

	return nil, fmt.Errorf("%w: collection %q not found", gderrors.ErrCollectionNotFound, name)
}

// GetCollection is an alias for Collection.
func (db *Database) GetCollection(ctx context.Context, name string) (*Collection, error) {
	return db.Collection(ctx, name)
}

// CreateCollection validates and optionally sanitises name, refuses reserved
// or already-present names, creates the backing blob, registers the
// collection, and returns its handle.
func (db *Database) CreateCollection(ctx context.Context, name string) (*Collection, error) {
	sanitised, err := validateName(name, db.config.StripDisallowedCollectionNameCharacters)
	if err != nil {
		return nil, err
	}

	db.mu.RLock()
	_, exists := db.collections[sanitised]
	db.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("%w: collection %q already exists", gderrors.ErrInvalidArgument, sanitised)
	}
	if db.masterIndex.GetCollection(sanitised) != nil {
		return nil, fmt.Errorf("%w: collection %q already exists", gderrors.ErrInvalidArgument, sanitised)
	}

	blobID, err := db.objects.CreateBlob(ctx, sanitised, map[string]any{}, db.config.RootFolderID)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob for collection %q: %w", sanitised, err)
	}

	meta := masterindex.NewCollectionMetadata(sanitised, &blobID, masterindex.MetadataFields{})
	if err := db.masterIndex.AddCollection(ctx, sanitised, meta); err != nil {
		return nil, err
	}

	handle := &Collection{name: sanitised, db: db}
	db.mu.Lock()
	db.collections[sanitised] = handle
	db.mu.Unlock()

	gdlog.Debug("collection created", gdlog.Collection(sanitised), gdlog.BlobID(blobID))
	return handle, nil
}

// DropCollection deletes the blob, evicts the in-memory handle, and removes
// the registry entry.
func (db *Database) DropCollection(ctx context.Context, name string) error {
	meta := db.masterIndex.GetCollection(name)
	if meta == nil {
		return fmt.Errorf("%w: %s", gderrors.ErrCollectionNotFound, name)
	}

	if meta.BlobID() != nil {
		if err := db.objects.DeleteBlob(ctx, *meta.BlobID()); err != nil {
			return fmt.Errorf("failed to delete blob for collection %q: %w", name, err)
		}
	}

	db.mu.Lock()
	delete(db.collections, name)
	db.mu.Unlock()

	if _, err := db.masterIndex.RemoveCollection(ctx, name); err != nil {
		return err
	}
	return nil
}

// DeleteCollection is an alias for DropCollection.
func (db *Database) DeleteCollection(ctx context.Context, name string) error {
	return db.DropCollection(ctx, name)
}

// ListCollections returns every registered collection name; the registry is
// the single source of truth.
func (db *Database) ListCollections() []string {
	names := make([]string, 0)
	for name := range db.masterIndex.GetCollections() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MasterIndex exposes the underlying coordination kernel, for callers (e.g.
// a collection layer or the CLI) that need direct registry access.
func (db *Database) MasterIndex() *masterindex.MasterIndex {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.masterIndex
}
