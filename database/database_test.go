package database

import (
	"context"
	"testing"

	"gasdb/objectstore"
	"gasdb/propertystore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T, opts ...ConfigOption) *Database {
	t.Helper()
	store := propertystore.NewMemoryStore()
	lock := propertystore.NewMemoryLock()
	objects := objectstore.NewMemoryStore()
	config := NewConfig(opts...)
	return New(store, lock, objects, config)
}

func TestCreateDatabaseThenInitialise(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	require.NoError(t, db.CreateDatabase(ctx))
	require.NoError(t, db.Initialise(ctx))
	assert.Empty(t, db.ListCollections())
}

func TestCreateDatabaseRefusesIfAlreadyExists(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	require.NoError(t, db.CreateDatabase(ctx))
	err := db.CreateDatabase(ctx)
	assert.Error(t, err)
}

func TestInitialiseRefusesWhenAbsent(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	err := db.Initialise(ctx)
	assert.Error(t, err)
}

func TestCreateCollectionRegistersAndHydrates(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	require.NoError(t, db.CreateDatabase(ctx))

	col, err := db.CreateCollection(ctx, "widgets")
	require.NoError(t, err)
	assert.Equal(t, "widgets", col.Name())
	assert.NotNil(t, col.BlobID())

	assert.Contains(t, db.ListCollections(), "widgets")

	_, err = db.CreateCollection(ctx, "widgets")
	assert.Error(t, err, "creating an already-registered collection must fail")
}

func TestCreateCollectionRejectsReservedName(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	require.NoError(t, db.CreateDatabase(ctx))

	_, err := db.CreateCollection(ctx, "system")
	assert.Error(t, err)
}

func TestCollectionAutoCreatesWhenEnabled(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t, WithAutoCreateCollections(true))
	require.NoError(t, db.CreateDatabase(ctx))

	col, err := db.Collection(ctx, "widgets")
	require.NoError(t, err)
	assert.Equal(t, "widgets", col.Name())
}

func TestCollectionFailsWhenAutoCreateDisabled(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t, WithAutoCreateCollections(false))
	require.NoError(t, db.CreateDatabase(ctx))

	_, err := db.Collection(ctx, "widgets")
	assert.Error(t, err)
}

func TestDropCollectionRemovesFromRegistryAndStore(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t, WithAutoCreateCollections(false))
	require.NoError(t, db.CreateDatabase(ctx))

	col, err := db.CreateCollection(ctx, "widgets")
	require.NoError(t, err)
	blobID := col.BlobID()
	require.NotNil(t, blobID)

	require.NoError(t, db.DropCollection(ctx, "widgets"))
	assert.NotContains(t, db.ListCollections(), "widgets")

	_, err = db.objects.ReadBlob(ctx, *blobID)
	assert.Error(t, err, "the collection's blob must be deleted from the object store")

	_, err = db.Collection(ctx, "widgets")
	assert.Error(t, err, "dropped collection should no longer auto-hydrate once absent from the registry")
}

func TestRecoverDatabaseRebuildsRegistryFromBackup(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t, WithBackupOnInitialise(true))
	require.NoError(t, db.CreateDatabase(ctx))

	_, err := db.CreateCollection(ctx, "widgets")
	require.NoError(t, err)
	require.NoError(t, db.Initialise(ctx))

	backupID, err := db.objects.CreateBlob(ctx, "registry-backup", backupBlob{
		Version: 1,
		Collections: map[string]backupCollectionEntry{
			"widgets": {Name: "widgets", FileID: "recovered-blob", DocumentCount: 3},
		},
	}, db.config.RootFolderID)
	require.NoError(t, err)

	recovered := New(propertystore.NewMemoryStore(), propertystore.NewMemoryLock(), db.objects, NewConfig())
	names, err := recovered.RecoverDatabase(ctx, backupID)
	require.NoError(t, err)
	assert.Equal(t, []string{"widgets"}, names)
	assert.Contains(t, recovered.ListCollections(), "widgets")
}

func TestRecoverDatabaseFailsOnMalformedBackup(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	badID, err := db.objects.CreateBlob(ctx, "bad-backup", map[string]any{"version": 1}, "root")
	require.NoError(t, err)

	_, err = db.RecoverDatabase(ctx, badID)
	assert.Error(t, err, "a backup with no collections mapping must be rejected as corrupted")
}
