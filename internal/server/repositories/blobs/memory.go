package blobs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/filegroups/internal/common"
	"github.com/dmitrijs2005/filegroups/internal/server/models"
)

var _ Repository = (*MemoryRepository)(nil)

type memoryBlob struct {
	blob models.Blob
	data []byte
}

// MemoryRepository is an in-process Repository for tests and local runs.
// Blobs are listed in upload order.
type MemoryRepository struct {
	mu    sync.RWMutex
	blobs map[string]*memoryBlob
	order []string
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		blobs: make(map[string]*memoryBlob),
		now:   time.Now,
	}
}

type memoryUploadStream struct {
	repo     *MemoryRepository
	id       string
	filename string
	meta     models.BlobMetadata
	buf      bytes.Buffer
	done     bool
}

func (s *memoryUploadStream) Write(p []byte) (int, error) {
	if s.done {
		return 0, errors.New("upload stream already closed")
	}
	return s.buf.Write(p)
}

func (s *memoryUploadStream) Close() error {
	if s.done {
		return errors.New("upload stream already closed")
	}
	s.done = true
	s.repo.put(s.id, s.filename, s.meta, s.buf.Bytes())
	return nil
}

func (s *memoryUploadStream) Abort() error {
	s.done = true
	s.buf.Reset()
	return nil
}

func (r *MemoryRepository) put(id, filename string, meta models.BlobMetadata, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.blobs[id]; !ok {
		r.order = append(r.order, id)
	}
	r.blobs[id] = &memoryBlob{
		blob: models.Blob{
			ID:         id,
			Filename:   filename,
			Length:     int64(len(data)),
			UploadDate: r.now().UTC(),
			Metadata:   meta,
		},
		data: bytes.Clone(data),
	}
}

func (r *MemoryRepository) OpenUploadStream(ctx context.Context, id, filename string, meta models.BlobMetadata) (UploadStream, error) {
	return &memoryUploadStream{repo: r, id: id, filename: filename, meta: meta}, nil
}

func (r *MemoryRepository) OpenDownloadStream(ctx context.Context, id string) (io.ReadCloser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.blobs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*models.Blob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.blobs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	blob := b.blob
	return &blob, nil
}

func (r *MemoryRepository) Find(ctx context.Context, ids []string, limit int64) ([]*models.Blob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var wanted map[string]struct{}
	if ids != nil {
		wanted = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			wanted[id] = struct{}{}
		}
	}

	result := []*models.Blob{}
	for _, id := range r.order {
		if limit > 0 && int64(len(result)) >= limit {
			break
		}
		if wanted != nil {
			if _, ok := wanted[id]; !ok {
				continue
			}
		}
		blob := r.blobs[id].blob
		result = append(result, &blob)
	}
	return result, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.blobs[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.blobs, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryRepository) Rename(ctx context.Context, id, filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.blobs[id]
	if !ok {
		return common.ErrorNotFound
	}
	b.blob.Filename = filename
	return nil
}
