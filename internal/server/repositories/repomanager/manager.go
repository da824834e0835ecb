// Package repomanager assembles the blob and group repositories for the
// configured storage backend.
package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/filegroups/internal/common"
	"github.com/dmitrijs2005/filegroups/internal/server/config"
	"github.com/dmitrijs2005/filegroups/internal/server/repositories/blobs"
	"github.com/dmitrijs2005/filegroups/internal/server/repositories/groups"
)

// RepositoryManager vends the repositories and owns the connection behind them.
type RepositoryManager interface {
	Blobs() blobs.Repository
	Groups() groups.Repository
	// EnsureIndexes prepares the group collection for id and name lookups.
	EnsureIndexes(ctx context.Context) error
	Close(ctx context.Context) error
}

// New returns the manager for cfg.StorageBackend. Both "gridfs" and "s3"
// keep groups in MongoDB.
func New(ctx context.Context, cfg *config.Config) (RepositoryManager, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		return NewMemoryRepositoryManager(), nil
	case config.BackendGridFS, config.BackendS3:
		return NewMongoRepositoryManager(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownBackend, cfg.StorageBackend)
	}
}
