// Package objectstore contracts the durable object store that holds
// collection blobs. Like propertystore, this is an external collaborator;
// gasdb treats it as opaque blob CRUD scoped to a folder ID.
package objectstore

import "context"

// Store is the object-store driver contract: create/read/write/delete of a
// JSON-shaped blob by ID within a folder, plus folder listing.
type Store interface {
	// CreateBlob creates a new blob named name holding value inside folderID,
	// returning its opaque blob ID.
	CreateBlob(ctx context.Context, name string, value any, folderID string) (blobID string, err error)
	// ReadBlob decodes the blob's JSON value. A parse failure must surface as
	// an error the caller can classify as corruption.
	ReadBlob(ctx context.Context, blobID string) (any, error)
	// WriteBlob atomically replaces the blob's value.
	WriteBlob(ctx context.Context, blobID string, value any) error
	// DeleteBlob removes the blob. Deleting an absent blob is not an error.
	DeleteBlob(ctx context.Context, blobID string) error
	// ListBlobsInFolder returns the blob IDs currently stored under folderID.
	ListBlobsInFolder(ctx context.Context, folderID string) ([]string, error)
}
