package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/filegroups/internal/logging"
	"github.com/dmitrijs2005/filegroups/internal/server/models"
	"github.com/dmitrijs2005/filegroups/internal/server/repositories/blobs"
	"github.com/dmitrijs2005/filegroups/internal/server/repositories/groups"
	"github.com/dmitrijs2005/filegroups/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func newServices(t *testing.T) (*FileService, *GroupService, *repomanager.MemoryRepositoryManager) {
	t.Helper()
	m := repomanager.NewMemoryRepositoryManager()
	fs := NewFileService(m, logging.Nop())
	gs := NewGroupService(m, fs, logging.Nop())
	return fs, gs, m
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%03d", prefix, n)
	}
}

func mustUpload(t *testing.T, fs *FileService, name, typ, data string) models.FileMeta {
	t.Helper()
	id, err := fs.Upload(context.Background(), UploadFile{Name: name, Type: typ, Data: []byte(data)})
	require.NoError(t, err)
	return models.FileMeta{ID: id, Name: name, Size: int64(len(data)), Type: typ}
}

// --- fakes ---

type fakeManager struct {
	repomanager.RepositoryManager
	blobs  blobs.Repository
	groups groups.Repository
}

func (m *fakeManager) Blobs() blobs.Repository   { return m.blobs }
func (m *fakeManager) Groups() groups.Repository { return m.groups }

type recordingStream struct {
	writes   []int
	writeErr error
	closeErr error
	closed   bool
	aborted  bool
}

func (s *recordingStream) Write(p []byte) (int, error) {
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	s.writes = append(s.writes, len(p))
	return len(p), nil
}

func (s *recordingStream) Close() error {
	s.closed = true
	return s.closeErr
}

func (s *recordingStream) Abort() error {
	s.aborted = true
	return nil
}

type recordingBlobs struct {
	blobs.Repository
	stream   *recordingStream
	openErr  error
	id       string
	filename string
	meta     models.BlobMetadata
}

func (r *recordingBlobs) OpenUploadStream(ctx context.Context, id, filename string, meta models.BlobMetadata) (blobs.UploadStream, error) {
	if r.openErr != nil {
		return nil, r.openErr
	}
	r.id, r.filename, r.meta = id, filename, meta
	return r.stream, nil
}

// flakyFiles fails Delete for selected ids and otherwise defers to FileService.
type flakyFiles struct {
	*FileService
	fail map[string]bool
}

var errChunkDelete = errors.New("chunk delete failed")

func (f *flakyFiles) Delete(ctx context.Context, id string) error {
	if f.fail[id] {
		return errChunkDelete
	}
	return f.FileService.Delete(ctx, id)
}
