// Package blobs stores opaque binary objects keyed by a caller-chosen id,
// each carrying a small metadata document and a stored filename.
package blobs

import (
	"context"
	"io"

	"github.com/dmitrijs2005/filegroups/internal/server/models"
)

// UploadStream receives a blob's content. Close commits the blob, Abort
// discards whatever was written.
type UploadStream interface {
	io.WriteCloser
	Abort() error
}

// Repository is the blob store port. Lookups by a missing id return
// common.ErrorNotFound.
type Repository interface {
	OpenUploadStream(ctx context.Context, id, filename string, meta models.BlobMetadata) (UploadStream, error)
	OpenDownloadStream(ctx context.Context, id string) (io.ReadCloser, error)
	FindByID(ctx context.Context, id string) (*models.Blob, error)
	// Find returns at most limit blobs; a nil ids slice matches every blob.
	Find(ctx context.Context, ids []string, limit int64) ([]*models.Blob, error)
	Delete(ctx context.Context, id string) error
	Rename(ctx context.Context, id, filename string) error
}
