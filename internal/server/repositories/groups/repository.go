// Package groups persists named groups of file references.
package groups

import (
	"context"

	"github.com/dmitrijs2005/filegroups/internal/server/models"
)

// Repository is the group collection port. Single-document lookups return
// common.ErrorNotFound when nothing matches.
type Repository interface {
	Insert(ctx context.Context, g *models.Group) error
	// FindByIDOrName returns the first group whose id or name equals identifier.
	FindByIDOrName(ctx context.Context, identifier string) (*models.Group, error)
	FindByName(ctx context.Context, name string) (*models.Group, error)
	List(ctx context.Context) ([]*models.Group, error)
	Delete(ctx context.Context, id string) error
	SetName(ctx context.Context, id, name string) error
	PushFiles(ctx context.Context, id string, files []models.FileMeta) error
	PullFile(ctx context.Context, id, fileID string) error
	SetFileName(ctx context.Context, id, fileID, name string) error
}
