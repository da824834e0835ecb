package groups

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/filegroups/internal/common"
	"github.com/dmitrijs2005/filegroups/internal/server/models"
)

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps groups in insertion order. Returned groups are
// copies, so callers never observe later updates.
type MemoryRepository struct {
	mu     sync.RWMutex
	groups []*models.Group
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func clone(g *models.Group) *models.Group {
	c := *g
	c.Files = append([]models.FileMeta{}, g.Files...)
	c.Groups = append([]models.Group{}, g.Groups...)
	return &c
}

func (r *MemoryRepository) Insert(ctx context.Context, g *models.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = append(r.groups, clone(g))
	return nil
}

func (r *MemoryRepository) find(match func(*models.Group) bool) (*models.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.groups {
		if match(g) {
			return clone(g), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) FindByIDOrName(ctx context.Context, identifier string) (*models.Group, error) {
	return r.find(func(g *models.Group) bool { return g.ID == identifier || g.Name == identifier })
}

func (r *MemoryRepository) FindByName(ctx context.Context, name string) (*models.Group, error) {
	return r.find(func(g *models.Group) bool { return g.Name == name })
}

func (r *MemoryRepository) List(ctx context.Context) ([]*models.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*models.Group, 0, len(r.groups))
	for _, g := range r.groups {
		result = append(result, clone(g))
	}
	return result, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, g := range r.groups {
		if g.ID == id {
			r.groups = append(r.groups[:i], r.groups[i+1:]...)
			return nil
		}
	}
	return nil
}

// modify applies fn to the first group with the given id. A missing group is
// not an error, matching an update that matches nothing.
func (r *MemoryRepository) modify(id string, fn func(*models.Group)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.groups {
		if g.ID == id {
			fn(g)
			return nil
		}
	}
	return nil
}

func (r *MemoryRepository) SetName(ctx context.Context, id, name string) error {
	return r.modify(id, func(g *models.Group) { g.Name = name })
}

func (r *MemoryRepository) PushFiles(ctx context.Context, id string, files []models.FileMeta) error {
	return r.modify(id, func(g *models.Group) { g.Files = append(g.Files, files...) })
}

func (r *MemoryRepository) PullFile(ctx context.Context, id, fileID string) error {
	return r.modify(id, func(g *models.Group) {
		kept := g.Files[:0]
		for _, f := range g.Files {
			if f.ID != fileID {
				kept = append(kept, f)
			}
		}
		g.Files = kept
	})
}

// SetFileName renames the first embedded entry with fileID, like the
// positional $ operator.
func (r *MemoryRepository) SetFileName(ctx context.Context, id, fileID, name string) error {
	return r.modify(id, func(g *models.Group) {
		for i := range g.Files {
			if g.Files[i].ID == fileID {
				g.Files[i].Name = name
				return
			}
		}
	})
}
