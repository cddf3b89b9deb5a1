package objectstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type blob struct {
	folderID string
	value    json.RawMessage
}

// MemoryStore implements Store using an in-memory map guarded by a mutex,
// for tests and single-process embeddings where no external object store is
// available.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]*blob
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]*blob)}
}

func (s *MemoryStore) CreateBlob(ctx context.Context, name string, value any, folderID string) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to marshal blob %s: %w", name, err)
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.blobs[id] = &blob{folderID: folderID, value: raw}
	s.mu.Unlock()
	return id, nil
}

func (s *MemoryStore) ReadBlob(ctx context.Context, blobID string) (any, error) {
	s.mu.RLock()
	b, ok := s.blobs[blobID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("blob %s not found", blobID)
	}

	var out any
	if err := json.Unmarshal(b.value, &out); err != nil {
		return nil, fmt.Errorf("failed to parse blob %s: %w", blobID, err)
	}
	return out, nil
}

func (s *MemoryStore) WriteBlob(ctx context.Context, blobID string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal blob %s: %w", blobID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[blobID]
	if !ok {
		return fmt.Errorf("blob %s not found", blobID)
	}
	b.value = raw
	return nil
}

func (s *MemoryStore) DeleteBlob(ctx context.Context, blobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, blobID)
	return nil
}

func (s *MemoryStore) ListBlobsInFolder(ctx context.Context, folderID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, b := range s.blobs {
		if b.folderID == folderID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
