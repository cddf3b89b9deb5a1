package objectstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// BadgerStore implements Store using an embedded BadgerDB instance, standing
// in for a durable object store folder on a single node. Values are stored
// as JSON since blobs here are plain documents rather than any particular
// database's wire format.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a BadgerDB at dbPath.
func NewBadgerStore(dbPath string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the underlying BadgerDB handle.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func folderKey(folderID, blobID string) string {
	return folderID + "/" + blobID
}

func (s *BadgerStore) CreateBlob(ctx context.Context, name string, value any, folderID string) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to marshal blob %s: %w", name, err)
	}

	id := uuid.NewString()
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(folderKey(folderID, id)), raw)
	})
	if err != nil {
		return "", fmt.Errorf("failed to create blob %s: %w", name, err)
	}
	return id, nil
}

func (s *BadgerStore) ReadBlob(ctx context.Context, blobID string) (any, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := s.findByBlobID(txn, blobID)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			raw = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to parse blob %s: %w", blobID, err)
	}
	return out, nil
}

func (s *BadgerStore) WriteBlob(ctx context.Context, blobID string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal blob %s: %w", blobID, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key, err := s.findKeyByBlobID(txn, blobID)
		if err != nil {
			return err
		}
		return txn.Set(key, raw)
	})
}

func (s *BadgerStore) DeleteBlob(ctx context.Context, blobID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key, err := s.findKeyByBlobID(txn, blobID)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return txn.Delete(key)
	})
}

func (s *BadgerStore) ListBlobsInFolder(ctx context.Context, folderID string) ([]string, error) {
	var ids []string
	prefix := []byte(folderID + "/")

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			ids = append(ids, strings.TrimPrefix(key, string(prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list folder %s: %w", folderID, err)
	}
	return ids, nil
}

// findByBlobID scans for the key suffixed by /blobID since BadgerDB keys are
// folderID/blobID composites and callers only hold the blobID.
func (s *BadgerStore) findByBlobID(txn *badger.Txn, blobID string) (*badger.Item, error) {
	suffix := "/" + blobID
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		key := string(it.Item().Key())
		if strings.HasSuffix(key, suffix) {
			return it.Item(), nil
		}
	}
	return nil, fmt.Errorf("blob %s not found: %w", blobID, badger.ErrKeyNotFound)
}

func (s *BadgerStore) findKeyByBlobID(txn *badger.Txn, blobID string) ([]byte, error) {
	item, err := s.findByBlobID(txn, blobID)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), item.Key()...), nil
}
