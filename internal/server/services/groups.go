package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/filegroups/internal/common"
	"github.com/dmitrijs2005/filegroups/internal/logging"
	"github.com/dmitrijs2005/filegroups/internal/server/models"
	"github.com/dmitrijs2005/filegroups/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// FileStore is the part of FileService that GroupService delegates to.
type FileStore interface {
	Delete(ctx context.Context, id string) error
	Rename(ctx context.Context, id, base string) (string, error)
	MetaMany(ctx context.Context, ids []string) ([]models.FileMeta, error)
}

var _ FileStore = (*FileService)(nil)

// GroupService manages named groups. Each group embeds a copy of its files'
// metadata; RenameFile is the only operation that keeps the copy in sync
// with the blob.
type GroupService struct {
	repomanager repomanager.RepositoryManager
	files       FileStore
	logger      logging.Logger
	newID       func() string
}

func NewGroupService(m repomanager.RepositoryManager, files FileStore, logger logging.Logger) *GroupService {
	return &GroupService{
		repomanager: m,
		files:       files,
		logger:      logger.With("module", "groups"),
		newID:       uuid.NewString,
	}
}

// CreateOrMerge creates a group called name holding files. If a group with
// that name exists the files are appended to it without duplicate checks
// and the group is returned as it was before the append.
func (s *GroupService) CreateOrMerge(ctx context.Context, name string, files []models.FileMeta) (*models.Group, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	repo := s.repomanager.Groups()

	existing, err := repo.FindByName(ctx, name)
	if err == nil {
		if err := repo.PushFiles(ctx, existing.ID, files); err != nil {
			return nil, fmt.Errorf("merge into group %s: %w", existing.ID, err)
		}
		return existing, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	if files == nil {
		files = []models.FileMeta{}
	}
	g := &models.Group{ID: s.newID(), Name: name, Files: files, Groups: []models.Group{}}
	if err := repo.Insert(ctx, g); err != nil {
		return nil, fmt.Errorf("create group %q: %w", name, err)
	}
	s.logger.Info(ctx, "group created", "id", g.ID, "name", name, "files", len(files))
	return g, nil
}

// Get looks a group up by id or by name, first match wins.
func (s *GroupService) Get(ctx context.Context, identifier string) (*models.Group, error) {
	return s.repomanager.Groups().FindByIDOrName(ctx, identifier)
}

func (s *GroupService) List(ctx context.Context) ([]*models.Group, error) {
	return s.repomanager.Groups().List(ctx)
}

// FilesOf returns the embedded file list, empty when the group is missing.
func (s *GroupService) FilesOf(ctx context.Context, groupName string) ([]models.FileMeta, error) {
	g, err := s.Get(ctx, groupName)
	if errors.Is(err, common.ErrorNotFound) {
		return []models.FileMeta{}, nil
	}
	if err != nil {
		return nil, err
	}
	return g.Files, nil
}

// ResolveFiles returns the canonical metadata for the group's files in
// group order. Files whose blob no longer exists are left out.
func (s *GroupService) ResolveFiles(ctx context.Context, identifier string) ([]models.FileMeta, error) {
	g, err := s.Get(ctx, identifier)
	if err != nil {
		return nil, err
	}

	ids := g.FileIDs()
	found := make(map[string]models.FileMeta, len(ids))
	for start := 0; start < len(ids); start += int(common.ListLimit) {
		end := min(start+int(common.ListLimit), len(ids))
		metas, err := s.files.MetaMany(ctx, ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("resolve files of group %s: %w", g.ID, err)
		}
		for _, m := range metas {
			found[m.ID] = m
		}
	}

	result := make([]models.FileMeta, 0, len(ids))
	for _, id := range ids {
		if m, ok := found[id]; ok {
			result = append(result, m)
		}
	}
	return result, nil
}

// Delete removes every blob of the group and then the group itself. When
// any blob deletion fails the group record is kept and a
// *common.PartialDeleteError lists the failed ids. A missing group is a no-op.
func (s *GroupService) Delete(ctx context.Context, id string) error {
	repo := s.repomanager.Groups()

	g, err := repo.FindByIDOrName(ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	failed := map[string]error{}
	for _, fileID := range g.FileIDs() {
		if err := s.files.Delete(ctx, fileID); err != nil {
			s.logger.Warn(ctx, "file not deleted", "group", g.ID, "file", fileID, "error", err)
			failed[fileID] = err
		}
	}
	if len(failed) > 0 {
		return &common.PartialDeleteError{GroupID: g.ID, Failed: failed}
	}

	if err := repo.Delete(ctx, g.ID); err != nil {
		return fmt.Errorf("delete group %s: %w", g.ID, err)
	}
	s.logger.Info(ctx, "group deleted", "id", g.ID, "files", len(g.Files))
	return nil
}

// Rename sets the group name without checking existence or uniqueness. A
// blank name is rejected.
func (s *GroupService) Rename(ctx context.Context, id, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	return s.repomanager.Groups().SetName(ctx, id, name)
}

// RemoveFile deletes the blob and drops its entry from the group. It
// reports false when the group does not exist.
func (s *GroupService) RemoveFile(ctx context.Context, groupID, fileID string) (bool, error) {
	repo := s.repomanager.Groups()

	g, err := repo.FindByIDOrName(ctx, groupID)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := s.files.Delete(ctx, fileID); err != nil {
		return false, err
	}
	if err := repo.PullFile(ctx, g.ID, fileID); err != nil {
		return false, err
	}
	return true, nil
}

// AddFile appends one entry. It reports false when the group does not
// exist or already holds a file with the same id.
func (s *GroupService) AddFile(ctx context.Context, groupID string, file models.FileMeta) (bool, error) {
	repo := s.repomanager.Groups()

	g, err := repo.FindByIDOrName(ctx, groupID)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if g.HasFile(file.ID) {
		return false, nil
	}

	if err := repo.PushFiles(ctx, g.ID, []models.FileMeta{file}); err != nil {
		return false, err
	}
	return true, nil
}

// AddFiles appends entries without duplicate checks. A missing group is
// silently ignored.
func (s *GroupService) AddFiles(ctx context.Context, groupID string, files []models.FileMeta) error {
	repo := s.repomanager.Groups()

	g, err := repo.FindByIDOrName(ctx, groupID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return repo.PushFiles(ctx, g.ID, files)
}

// RenameFile renames the blob and sets the embedded name in the group,
// given by id or name, to the derived filename.
func (s *GroupService) RenameFile(ctx context.Context, groupID, fileID, base string) (string, error) {
	repo := s.repomanager.Groups()

	g, err := repo.FindByIDOrName(ctx, groupID)
	if err != nil {
		return "", err
	}

	newName, err := s.files.Rename(ctx, fileID, base)
	if err != nil {
		return "", err
	}
	if err := repo.SetFileName(ctx, g.ID, fileID, newName); err != nil {
		return "", err
	}
	return newName, nil
}

func checkName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: group name is empty", common.ErrorInvalidArgument)
	}
	return nil
}
