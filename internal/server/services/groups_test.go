package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/filegroups/internal/common"
	"github.com/dmitrijs2005/filegroups/internal/logging"
	"github.com/dmitrijs2005/filegroups/internal/server/models"
	"github.com/dmitrijs2005/filegroups/internal/server/repositories/groups"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupService_CreateOrMergeUnion(t *testing.T) {
	fs, gs, _ := newServices(t)
	gs.newID = sequentialIDs("group")
	ctx := context.Background()

	a := mustUpload(t, fs, "a.txt", "text/plain", "a")
	b := mustUpload(t, fs, "b.txt", "text/plain", "b")
	c := mustUpload(t, fs, "c.txt", "text/plain", "c")

	first, err := gs.CreateOrMerge(ctx, "g", []models.FileMeta{a, b})
	require.NoError(t, err)
	assert.Equal(t, "group-001", first.ID)
	assert.Empty(t, first.Groups)

	second, err := gs.CreateOrMerge(ctx, "g", []models.FileMeta{c, a})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, []models.FileMeta{a, b}, second.Files, "merge returns the group as found")

	all, err := gs.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []models.FileMeta{a, b, c, a}, all[0].Files)
}

func TestGroupService_CreateWithoutFiles(t *testing.T) {
	_, gs, _ := newServices(t)

	g, err := gs.CreateOrMerge(context.Background(), "empty", nil)
	require.NoError(t, err)
	assert.NotNil(t, g.Files)
	assert.NotNil(t, g.Groups)
	assert.NotEmpty(t, g.ID)
}

func TestGroupService_GetByIDOrName(t *testing.T) {
	_, gs, _ := newServices(t)
	ctx := context.Background()

	g, err := gs.CreateOrMerge(ctx, "holiday", nil)
	require.NoError(t, err)

	byID, err := gs.Get(ctx, g.ID)
	require.NoError(t, err)
	byName, err := gs.Get(ctx, "holiday")
	require.NoError(t, err)
	assert.Equal(t, byID, byName)

	_, err = gs.Get(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGroupService_FilesOf(t *testing.T) {
	fs, gs, _ := newServices(t)
	ctx := context.Background()
	a := mustUpload(t, fs, "a.txt", "text/plain", "a")

	_, err := gs.CreateOrMerge(ctx, "g", []models.FileMeta{a})
	require.NoError(t, err)

	files, err := gs.FilesOf(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, []models.FileMeta{a}, files)

	files, err = gs.FilesOf(ctx, "missing")
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

func TestGroupService_AddFileDedupAddFilesDoesNot(t *testing.T) {
	fs, gs, _ := newServices(t)
	ctx := context.Background()
	a := mustUpload(t, fs, "a.txt", "text/plain", "a")

	g, err := gs.CreateOrMerge(ctx, "g", nil)
	require.NoError(t, err)

	added, err := gs.AddFile(ctx, g.ID, a)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = gs.AddFile(ctx, g.ID, a)
	require.NoError(t, err)
	assert.False(t, added, "second add of the same id is a no-op")

	got, err := gs.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, got.Files, 1)

	require.NoError(t, gs.AddFiles(ctx, g.ID, []models.FileMeta{a, a}))
	got, err = gs.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, a.ID, a.ID}, got.FileIDs(), "bulk add keeps duplicates")
}

func TestGroupService_AddToMissingGroup(t *testing.T) {
	_, gs, _ := newServices(t)
	ctx := context.Background()

	added, err := gs.AddFile(ctx, "missing", models.FileMeta{ID: "f"})
	require.NoError(t, err)
	assert.False(t, added)

	assert.NoError(t, gs.AddFiles(ctx, "missing", []models.FileMeta{{ID: "f"}}))

	removed, err := gs.RemoveFile(ctx, "missing", "f")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestGroupService_DeleteCascades(t *testing.T) {
	fs, gs, _ := newServices(t)
	ctx := context.Background()

	a := mustUpload(t, fs, "a.txt", "text/plain", "a")
	b := mustUpload(t, fs, "b.txt", "text/plain", "b")
	other := mustUpload(t, fs, "other.txt", "text/plain", "o")

	g, err := gs.CreateOrMerge(ctx, "g", []models.FileMeta{a, b})
	require.NoError(t, err)

	require.NoError(t, gs.Delete(ctx, g.ID))

	for _, id := range []string{a.ID, b.ID} {
		ok, err := fs.Exists(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok, id)
	}
	ok, err := fs.Exists(ctx, other.ID)
	require.NoError(t, err)
	assert.True(t, ok, "files outside the group survive")

	_, err = gs.Get(ctx, g.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	assert.NoError(t, gs.Delete(ctx, g.ID), "deleting a missing group is a no-op")
}

func TestGroupService_DeleteToleratesMissingBlobs(t *testing.T) {
	_, gs, _ := newServices(t)
	ctx := context.Background()

	g, err := gs.CreateOrMerge(ctx, "g", []models.FileMeta{{ID: "gone"}})
	require.NoError(t, err)

	require.NoError(t, gs.Delete(ctx, g.ID))
	_, err = gs.Get(ctx, g.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGroupService_DeletePartialFailureKeepsGroup(t *testing.T) {
	fs, _, m := newServices(t)
	ctx := context.Background()

	a := mustUpload(t, fs, "a.txt", "text/plain", "a")
	b := mustUpload(t, fs, "b.txt", "text/plain", "b")
	c := mustUpload(t, fs, "c.txt", "text/plain", "c")

	flaky := &flakyFiles{FileService: fs, fail: map[string]bool{b.ID: true}}
	gs := NewGroupService(m, flaky, logging.Nop())

	g, err := gs.CreateOrMerge(ctx, "g", []models.FileMeta{a, b, c})
	require.NoError(t, err)

	err = gs.Delete(ctx, g.ID)
	require.Error(t, err)

	var pde *common.PartialDeleteError
	require.True(t, errors.As(err, &pde))
	assert.Equal(t, g.ID, pde.GroupID)
	assert.Equal(t, []string{b.ID}, pde.FailedIDs())
	assert.ErrorIs(t, err, errChunkDelete)

	for id, want := range map[string]bool{a.ID: false, b.ID: true, c.ID: false} {
		ok, err := fs.Exists(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, ok, id)
	}

	kept, err := gs.Get(ctx, g.ID)
	require.NoError(t, err, "group record survives a partial delete")
	assert.Len(t, kept.Files, 3)
}

func TestGroupService_Rename(t *testing.T) {
	_, gs, _ := newServices(t)
	ctx := context.Background()

	a, err := gs.CreateOrMerge(ctx, "a", nil)
	require.NoError(t, err)
	_, err = gs.CreateOrMerge(ctx, "b", nil)
	require.NoError(t, err)

	require.NoError(t, gs.Rename(ctx, a.ID, "b"), "names are not unique")
	require.NoError(t, gs.Rename(ctx, "missing", "x"))

	got, err := gs.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Name)
}

func TestGroupService_RemoveFile(t *testing.T) {
	fs, gs, _ := newServices(t)
	ctx := context.Background()

	a := mustUpload(t, fs, "a.txt", "text/plain", "a")
	b := mustUpload(t, fs, "b.txt", "text/plain", "b")
	g, err := gs.CreateOrMerge(ctx, "g", []models.FileMeta{a, b})
	require.NoError(t, err)

	removed, err := gs.RemoveFile(ctx, "g", a.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	ok, err := fs.Exists(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := gs.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.FileMeta{b}, got.Files)
}

func TestGroupService_RenameFileDivergence(t *testing.T) {
	fs, gs, m := newServices(t)
	ctx := context.Background()

	f := mustUpload(t, fs, "photo.png", "image/png", "png")
	g, err := gs.CreateOrMerge(ctx, "g", []models.FileMeta{f})
	require.NoError(t, err)

	// Renaming through the file store only touches the blob.
	direct, err := fs.Rename(ctx, f.ID, "holiday")
	require.NoError(t, err)
	assert.Equal(t, "holiday.png", direct)

	got, err := gs.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "photo.png", got.Files[0].Name, "embedded copy is stale")

	// Renaming through the group updates both.
	viaGroup, err := gs.RenameFile(ctx, g.ID, f.ID, "beach")
	require.NoError(t, err)
	assert.Equal(t, "beach.png", viaGroup)

	got, err = gs.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "beach.png", got.Files[0].Name)

	blob, err := m.Blobs().FindByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "beach.png", blob.Filename)

	_, err = gs.RenameFile(ctx, g.ID, "missing", "x")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGroupService_RenameFileByGroupName(t *testing.T) {
	fs, gs, m := newServices(t)
	ctx := context.Background()

	f := mustUpload(t, fs, "a.txt", "text/plain", "a")
	g, err := gs.CreateOrMerge(ctx, "holiday", []models.FileMeta{f})
	require.NoError(t, err)

	newName, err := gs.RenameFile(ctx, "holiday", f.ID, "beach")
	require.NoError(t, err)
	assert.Equal(t, "beach.txt", newName)

	got, err := gs.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "beach.txt", got.Files[0].Name)

	_, err = gs.RenameFile(ctx, "nowhere", f.ID, "sea")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	blob, err := m.Blobs().FindByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "beach.txt", blob.Filename, "missing group leaves the blob alone")
}

func TestGroupService_EmptyNamesRejected(t *testing.T) {
	fs, gs, m := newServices(t)
	ctx := context.Background()

	f := mustUpload(t, fs, "a.txt", "text/plain", "a")

	_, err := gs.CreateOrMerge(ctx, "  ", []models.FileMeta{f})
	assert.ErrorIs(t, err, common.ErrorInvalidArgument)
	all, err := m.Groups().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	g, err := gs.CreateOrMerge(ctx, "g", []models.FileMeta{f})
	require.NoError(t, err)

	assert.ErrorIs(t, gs.Rename(ctx, g.ID, ""), common.ErrorInvalidArgument)

	_, err = gs.RenameFile(ctx, g.ID, f.ID, " ")
	assert.ErrorIs(t, err, common.ErrorInvalidArgument)

	got, err := gs.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "g", got.Name)
	assert.Equal(t, "a.txt", got.Files[0].Name)
}

func TestGroupService_ResolveFiles(t *testing.T) {
	fs, gs, _ := newServices(t)
	ctx := context.Background()

	a := mustUpload(t, fs, "a.txt", "text/plain", "a")
	b := mustUpload(t, fs, "b.txt", "text/plain", "b")
	stale := a
	stale.Name = "stale.txt"

	g, err := gs.CreateOrMerge(ctx, "g", []models.FileMeta{b, stale, {ID: "gone", Name: "gone.txt"}})
	require.NoError(t, err)

	got, err := gs.ResolveFiles(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.FileMeta{b, a}, got)

	_, err = gs.ResolveFiles(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

type failingGroups struct {
	groups.Repository
	err error
}

func (f *failingGroups) FindByName(context.Context, string) (*models.Group, error) {
	return nil, f.err
}

func (f *failingGroups) FindByIDOrName(context.Context, string) (*models.Group, error) {
	return nil, f.err
}

func TestGroupService_RepositoryErrorsPropagate(t *testing.T) {
	boom := errors.New("connection reset")
	m := &fakeManager{groups: &failingGroups{err: boom}}
	gs := NewGroupService(m, nil, logging.Nop())
	ctx := context.Background()

	_, err := gs.CreateOrMerge(ctx, "g", nil)
	assert.ErrorIs(t, err, boom)

	_, err = gs.FilesOf(ctx, "g")
	assert.ErrorIs(t, err, boom)

	assert.ErrorIs(t, gs.Delete(ctx, "g"), boom)

	_, err = gs.AddFile(ctx, "g", models.FileMeta{ID: "f"})
	assert.ErrorIs(t, err, boom)

	_, err = gs.RenameFile(ctx, "g", "f", "x")
	assert.ErrorIs(t, err, boom)
}
