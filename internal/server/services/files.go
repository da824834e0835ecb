// Package services contains the server-side business logic: FileService
// stores blobs with descriptive metadata, GroupService organises file
// references into named groups.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dmitrijs2005/filegroups/internal/common"
	"github.com/dmitrijs2005/filegroups/internal/logging"
	"github.com/dmitrijs2005/filegroups/internal/server/models"
	"github.com/dmitrijs2005/filegroups/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// UploadFile is an incoming payload. Size defaults to len(Data).
type UploadFile struct {
	Name string
	Type string
	Size int64
	Data []byte
}

// FileService uploads, fetches, lists, deletes and renames blobs.
type FileService struct {
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	newID       func() string
	segmentSize int
}

// NewFileService constructs a FileService over the manager's blob repository.
func NewFileService(m repomanager.RepositoryManager, logger logging.Logger) *FileService {
	return &FileService{
		repomanager: m,
		logger:      logger.With("module", "files"),
		newID:       uuid.NewString,
		segmentSize: common.UploadSegmentSize,
	}
}

// Upload stores f under a fresh id and returns it. The stored filename is
// the id itself. A failed write aborts the stream and is returned.
func (s *FileService) Upload(ctx context.Context, f UploadFile) (string, error) {
	id := s.newID()
	meta := models.BlobMetadata{Name: f.Name, Size: f.Size, Type: f.Type}
	if meta.Size == 0 {
		meta.Size = int64(len(f.Data))
	}

	stream, err := s.repomanager.Blobs().OpenUploadStream(ctx, id, id, meta)
	if err != nil {
		s.logger.Error(ctx, "upload failed", "name", f.Name, "error", err)
		return "", fmt.Errorf("upload %s: %w", f.Name, err)
	}

	for off := 0; off < len(f.Data); off += s.segmentSize {
		end := min(off+s.segmentSize, len(f.Data))
		if _, err := stream.Write(f.Data[off:end]); err != nil {
			_ = stream.Abort()
			s.logger.Error(ctx, "upload failed", "name", f.Name, "error", err)
			return "", fmt.Errorf("upload %s: %w", f.Name, err)
		}
	}

	if err := stream.Close(); err != nil {
		s.logger.Error(ctx, "upload failed", "name", f.Name, "error", err)
		return "", fmt.Errorf("upload %s: %w", f.Name, err)
	}

	s.logger.Info(ctx, "file uploaded", "id", id, "name", meta.Name, "type", meta.Type, "size", meta.Size)
	return id, nil
}

// Get reads the whole blob into memory.
func (s *FileService) Get(ctx context.Context, id string) (*models.File, error) {
	repo := s.repomanager.Blobs()

	blob, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rc, err := repo.OpenDownloadStream(ctx, id)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", id, err)
	}

	return &models.File{FileMeta: blob.Meta(), Filename: blob.Filename, Data: data}, nil
}

func (s *FileService) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.repomanager.Blobs().FindByID(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, common.ErrorNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Meta returns the canonical metadata of one blob.
func (s *FileService) Meta(ctx context.Context, id string) (*models.FileMeta, error) {
	blob, err := s.repomanager.Blobs().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m := blob.Meta()
	return &m, nil
}

// List returns at most common.ListLimit entries. There is no cursor, files
// past the limit are not reachable through List.
func (s *FileService) List(ctx context.Context) ([]models.FileMeta, error) {
	return s.find(ctx, nil)
}

// MetaMany resolves the canonical metadata of the given ids, skipping ids
// without a blob. Capped at common.ListLimit like every bulk lookup.
func (s *FileService) MetaMany(ctx context.Context, ids []string) ([]models.FileMeta, error) {
	if len(ids) == 0 {
		return []models.FileMeta{}, nil
	}
	return s.find(ctx, ids)
}

func (s *FileService) find(ctx context.Context, ids []string) ([]models.FileMeta, error) {
	blobs, err := s.repomanager.Blobs().Find(ctx, ids, common.ListLimit)
	if err != nil {
		return nil, err
	}
	result := make([]models.FileMeta, 0, len(blobs))
	for _, b := range blobs {
		result = append(result, b.Meta())
	}
	return result, nil
}

// Delete removes the blob. A missing blob is not an error.
func (s *FileService) Delete(ctx context.Context, id string) error {
	repo := s.repomanager.Blobs()

	blob, err := repo.FindByID(ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		s.logger.Debug(ctx, "deleting file", "id", id, "found", false)
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "deleting file", "id", id, "name", blob.Metadata.Name)
	if err := repo.Delete(ctx, id); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return err
	}
	return nil
}

// DeleteMany deletes up to common.ListLimit of the given blobs one at a
// time. The first failure stops the loop.
func (s *FileService) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	repo := s.repomanager.Blobs()

	blobs, err := repo.Find(ctx, ids, common.ListLimit)
	if err != nil {
		return err
	}
	for _, b := range blobs {
		if err := repo.Delete(ctx, b.ID); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("delete %s: %w", b.ID, err)
		}
	}
	return nil
}

// Rename sets the stored filename to base plus the extension of the
// original file name and returns the new filename. The metadata name is
// left as uploaded.
func (s *FileService) Rename(ctx context.Context, id, base string) (string, error) {
	if strings.TrimSpace(base) == "" {
		return "", fmt.Errorf("%w: file name is empty", common.ErrorInvalidArgument)
	}
	repo := s.repomanager.Blobs()

	blob, err := repo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}

	newName := base + Extension(blob)
	if err := repo.Rename(ctx, id, newName); err != nil {
		return "", err
	}
	return newName, nil
}

// Extension returns the dot-prefixed extension of the blob's original name,
// falling back to its stored filename, or "" if neither has one.
func Extension(b *models.Blob) string {
	if ext := path.Ext(b.Metadata.Name); ext != "" {
		return ext
	}
	return path.Ext(b.Filename)
}
