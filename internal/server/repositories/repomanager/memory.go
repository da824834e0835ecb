package repomanager

import (
	"context"

	"github.com/dmitrijs2005/filegroups/internal/server/repositories/blobs"
	"github.com/dmitrijs2005/filegroups/internal/server/repositories/groups"
)

var _ RepositoryManager = (*MemoryRepositoryManager)(nil)

// MemoryRepositoryManager keeps everything in process memory. Used for
// local runs and tests.
type MemoryRepositoryManager struct {
	blobs  *blobs.MemoryRepository
	groups *groups.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		blobs:  blobs.NewMemoryRepository(),
		groups: groups.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) Blobs() blobs.Repository {
	return m.blobs
}

func (m *MemoryRepositoryManager) Groups() groups.Repository {
	return m.groups
}

func (m *MemoryRepositoryManager) EnsureIndexes(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Close(context.Context) error { return nil }
