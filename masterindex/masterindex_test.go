package masterindex

import (
	"context"
	"testing"
	"time"

	"gasdb/propertystore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		Key:          "TEST_MASTER_INDEX",
		LockTimeout:  time.Second,
		Version:      1,
		HistoryLimit: 3,
	}
}

func newTestMasterIndex(t *testing.T) *MasterIndex {
	t.Helper()
	mi, err := New(context.Background(), propertystore.NewMemoryStore(), propertystore.NewMemoryLock(), testConfig())
	require.NoError(t, err)
	return mi
}

func TestLoadReturnsEmptyWhenKeyAbsent(t *testing.T) {
	mi, existed, err := Load(context.Background(), propertystore.NewMemoryStore(), propertystore.NewMemoryLock(), testConfig())
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Nil(t, mi)
}

func TestLoadReturnsCorruptErrorForUndecodableValue(t *testing.T) {
	store := propertystore.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "TEST_MASTER_INDEX", "not json"))

	mi, existed, err := Load(context.Background(), store, propertystore.NewMemoryLock(), testConfig())
	assert.Error(t, err)
	assert.False(t, existed)
	assert.Nil(t, mi)
}

func TestNewCreatesEmptySnapshotWhenAbsent(t *testing.T) {
	mi := newTestMasterIndex(t)
	assert.True(t, mi.IsInitialised())
	assert.Empty(t, mi.GetCollections())
}

func TestNewReopensExistingSnapshot(t *testing.T) {
	store := propertystore.NewMemoryStore()
	lock := propertystore.NewMemoryLock()
	ctx := context.Background()

	mi, err := New(ctx, store, lock, testConfig())
	require.NoError(t, err)
	blobID := "blob-1"
	require.NoError(t, mi.AddCollection(ctx, "widgets", NewCollectionMetadata("widgets", &blobID, MetadataFields{})))

	reopened, err := New(ctx, store, lock, testConfig())
	require.NoError(t, err)
	meta := reopened.GetCollection("widgets")
	require.NotNil(t, meta)
	assert.Equal(t, "widgets", meta.Name())
}

func TestAddAndGetCollection(t *testing.T) {
	mi := newTestMasterIndex(t)
	ctx := context.Background()
	blobID := "blob-1"

	require.NoError(t, mi.AddCollection(ctx, "widgets", NewCollectionMetadata("widgets", &blobID, MetadataFields{})))

	meta := mi.GetCollection("widgets")
	require.NotNil(t, meta)
	assert.Equal(t, "widgets", meta.Name())
	assert.Equal(t, &blobID, meta.BlobID())
	assert.True(t, mi.ValidateModificationToken(meta.GetModificationToken()), "AddCollection must assign a valid token when none is supplied")

	assert.Nil(t, mi.GetCollection("missing"))
}

func TestAddCollectionRejectsEmptyName(t *testing.T) {
	mi := newTestMasterIndex(t)
	err := mi.AddCollection(context.Background(), "", NewCollectionMetadata("", nil, MetadataFields{}))
	assert.Error(t, err)
}

func TestGetCollectionReturnsIndependentClone(t *testing.T) {
	mi := newTestMasterIndex(t)
	ctx := context.Background()
	require.NoError(t, mi.AddCollection(ctx, "widgets", NewCollectionMetadata("widgets", nil, MetadataFields{})))

	meta := mi.GetCollection("widgets")
	meta.SetDocumentCount(999)

	fresh := mi.GetCollection("widgets")
	assert.Equal(t, int64(0), fresh.DocumentCount(), "mutating a returned clone must not affect the persisted registry")
}

func TestUpdateCollectionMetadataRefreshesTokenWhenNotProvided(t *testing.T) {
	mi := newTestMasterIndex(t)
	ctx := context.Background()
	require.NoError(t, mi.AddCollection(ctx, "widgets", NewCollectionMetadata("widgets", nil, MetadataFields{})))
	original := mi.GetCollection("widgets").GetModificationToken()

	count := int64(5)
	updated, err := mi.UpdateCollectionMetadata(ctx, "widgets", MetadataUpdates{DocumentCount: &count})
	require.NoError(t, err)
	assert.Equal(t, int64(5), updated.DocumentCount())
	assert.NotEqual(t, original, updated.GetModificationToken(), "an update without an explicit token must refresh it")
}

func TestUpdateCollectionMetadataUnknownCollection(t *testing.T) {
	mi := newTestMasterIndex(t)
	_, err := mi.UpdateCollectionMetadata(context.Background(), "missing", MetadataUpdates{})
	assert.Error(t, err)
}

func TestRemoveCollection(t *testing.T) {
	mi := newTestMasterIndex(t)
	ctx := context.Background()
	require.NoError(t, mi.AddCollection(ctx, "widgets", NewCollectionMetadata("widgets", nil, MetadataFields{})))

	removed, err := mi.RemoveCollection(ctx, "widgets")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Nil(t, mi.GetCollection("widgets"))

	removed, err = mi.RemoveCollection(ctx, "widgets")
	require.NoError(t, err)
	assert.False(t, removed, "removing an absent collection is not an error but reports false")
}

func TestCollectionLockStateMachine(t *testing.T) {
	mi := newTestMasterIndex(t)
	ctx := context.Background()
	require.NoError(t, mi.AddCollection(ctx, "widgets", NewCollectionMetadata("widgets", nil, MetadataFields{})))

	acquired, err := mi.AcquireCollectionLock(ctx, "widgets", "op-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	locked, err := mi.IsCollectionLocked(ctx, "widgets")
	require.NoError(t, err)
	assert.True(t, locked)

	acquired, err = mi.AcquireCollectionLock(ctx, "widgets", "op-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired, "a second operation cannot acquire a lease already held by another")

	released, err := mi.ReleaseCollectionLock(ctx, "widgets", "op-2")
	require.NoError(t, err)
	assert.False(t, released, "only the lease's own holder may release it")

	released, err = mi.ReleaseCollectionLock(ctx, "widgets", "op-1")
	require.NoError(t, err)
	assert.True(t, released)

	locked, err = mi.IsCollectionLocked(ctx, "widgets")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestAcquireCollectionLockUnknownCollection(t *testing.T) {
	mi := newTestMasterIndex(t)
	_, err := mi.AcquireCollectionLock(context.Background(), "missing", "op-1", time.Minute)
	assert.Error(t, err)
}

func TestCleanupExpiredLocksClearsOnlyExpiredLeases(t *testing.T) {
	mi := newTestMasterIndex(t)
	ctx := context.Background()
	require.NoError(t, mi.AddCollection(ctx, "expired", NewCollectionMetadata("expired", nil, MetadataFields{})))
	require.NoError(t, mi.AddCollection(ctx, "fresh", NewCollectionMetadata("fresh", nil, MetadataFields{})))

	_, err := mi.AcquireCollectionLock(ctx, "expired", "op-1", time.Millisecond)
	require.NoError(t, err)
	_, err = mi.AcquireCollectionLock(ctx, "fresh", "op-2", time.Minute)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	require.NoError(t, mi.CleanupExpiredLocks(ctx))

	expiredLocked, err := mi.IsCollectionLocked(ctx, "expired")
	require.NoError(t, err)
	assert.False(t, expiredLocked)

	freshLocked, err := mi.IsCollectionLocked(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, freshLocked, "cleanup must not disturb a non-expired lease")
}

func TestModificationTokenGenerationAndValidation(t *testing.T) {
	mi := newTestMasterIndex(t)
	token := mi.GenerateModificationToken()
	assert.True(t, mi.ValidateModificationToken(token))
	assert.Regexp(t, `^\d+-[a-z0-9]+$`, token)

	assert.False(t, mi.ValidateModificationToken(""))
	assert.False(t, mi.ValidateModificationToken("not-a-token!"))
}

func TestHasConflict(t *testing.T) {
	mi := newTestMasterIndex(t)
	ctx := context.Background()
	require.NoError(t, mi.AddCollection(ctx, "widgets", NewCollectionMetadata("widgets", nil, MetadataFields{})))
	token := mi.GetCollection("widgets").GetModificationToken()

	conflict, err := mi.HasConflict("widgets", token)
	require.NoError(t, err)
	assert.False(t, conflict)

	conflict, err = mi.HasConflict("widgets", "stale-token")
	require.NoError(t, err)
	assert.True(t, conflict)

	conflict, err = mi.HasConflict("missing", "stale-token")
	require.NoError(t, err)
	assert.False(t, conflict, "a missing collection cannot conflict with a stale token")
}

func TestResolveConflictRefreshesTokenAndRecordsHistory(t *testing.T) {
	mi := newTestMasterIndex(t)
	ctx := context.Background()
	require.NoError(t, mi.AddCollection(ctx, "widgets", NewCollectionMetadata("widgets", nil, MetadataFields{})))
	original := mi.GetCollection("widgets").GetModificationToken()

	count := int64(7)
	resolved, err := mi.ResolveConflict(ctx, "widgets", MetadataUpdates{DocumentCount: &count}, LastWriteWins)
	require.NoError(t, err)
	assert.Equal(t, int64(7), resolved.DocumentCount())
	assert.NotEqual(t, original, resolved.GetModificationToken())
}

func TestResolveConflictRejectsUnknownStrategy(t *testing.T) {
	mi := newTestMasterIndex(t)
	_, err := mi.ResolveConflict(context.Background(), "widgets", MetadataUpdates{}, ConflictStrategy("BOGUS"))
	assert.Error(t, err)
}

func TestHistoryIsBoundedByConfiguredLimit(t *testing.T) {
	mi := newTestMasterIndex(t)
	ctx := context.Background()
	require.NoError(t, mi.AddCollection(ctx, "widgets", NewCollectionMetadata("widgets", nil, MetadataFields{})))

	for i := 0; i < 10; i++ {
		count := int64(i)
		_, err := mi.UpdateCollectionMetadata(ctx, "widgets", MetadataUpdates{DocumentCount: &count})
		require.NoError(t, err)
	}

	mi.mu.RLock()
	entries := mi.snapshot.ModificationHistory["widgets"]
	mi.mu.RUnlock()
	assert.LessOrEqual(t, len(entries), mi.config.HistoryLimit, "history must be bounded by HistoryLimit")
}
