package tree

import (
	"fmt"
	"sync"
	"testing"

	"github.com/poiesic/lattice/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTree(t *testing.T) *Tree {
	tr := New()
	require.NoError(t, tr.AddCollection(core.Collection{Id: 1, Name: "research"}))
	return tr
}

func TestAddCollectionDefaultsToDraft(t *testing.T) {
	tr := setupTree(t)

	col, ok := tr.Collection(1)
	require.True(t, ok)
	assert.Equal(t, core.CollectionDraft, col.Status)
	assert.Empty(t, col.Entries)
}

func TestAddCollectionDuplicate(t *testing.T) {
	tr := setupTree(t)
	err := tr.AddCollection(core.Collection{Id: 1, Name: "other"})
	assert.ErrorIs(t, err, core.ErrInvalidCollection)
}

func TestAddFile(t *testing.T) {
	tr := setupTree(t)
	require.NoError(t, tr.AddFile(1, core.File{Id: 10, Name: "a.md", Path: "docs/a.md"}))

	f, ok := tr.File(10)
	require.True(t, ok)
	assert.Equal(t, core.StatusPending, f.Status)

	col, _ := tr.Collection(1)
	require.Len(t, col.Entries, 1)
	assert.Equal(t, core.Entry{Kind: core.EntryFile, Id: 10}, col.Entries[0])
}

func TestAddFileUnknownCollection(t *testing.T) {
	tr := setupTree(t)
	err := tr.AddFile(99, core.File{Id: 10, Name: "a.md", Path: "docs/a.md"})
	assert.ErrorIs(t, err, core.ErrInvalidCollection)
}

func TestAddFolderDuplicate(t *testing.T) {
	tr := setupTree(t)
	require.NoError(t, tr.AddFolder(1, core.Folder{Id: 30, Path: "docs"}))

	err := tr.AddFolder(1, core.Folder{Id: 30, Path: "elsewhere"})
	assert.ErrorIs(t, err, core.ErrInvalidFile)

	// The original record and its single entry survive the rejected insert.
	folder, ok := tr.Folder(30)
	require.True(t, ok)
	assert.Equal(t, "docs", folder.Path)

	col, _ := tr.Collection(1)
	assert.Equal(t, []core.Entry{{Kind: core.EntryFolder, Id: 30}}, col.Entries)
}

func TestAddNoteRequiresContents(t *testing.T) {
	tr := setupTree(t)
	err := tr.AddNote(1, core.Note{Id: 20, Title: "empty"})
	assert.ErrorIs(t, err, core.ErrEmptyContent)
}

func TestAttachFileCreatesAndReuses(t *testing.T) {
	tr := setupTree(t)
	require.NoError(t, tr.AddFolder(1, core.Folder{Id: 30, Path: "docs"}))

	f := core.File{Id: 31, Name: "a.md", Path: "docs/a.md", Status: core.StatusProcessing}
	require.NoError(t, tr.AttachFile(30, f))

	folder, ok := tr.Folder(30)
	require.True(t, ok)
	assert.Equal(t, []core.ID{31}, folder.Items)

	// Rediscovery reuses the record, resets the error, and does not
	// duplicate the item entry.
	tr.SetFileStatus(31, core.StatusError, "embedding failed")
	require.NoError(t, tr.AttachFile(30, f))

	got, _ := tr.File(31)
	assert.Equal(t, core.StatusProcessing, got.Status)
	assert.Empty(t, got.ErrMsg)

	folder, _ = tr.Folder(30)
	assert.Equal(t, []core.ID{31}, folder.Items)
}

func TestAccessorsReturnCopies(t *testing.T) {
	tr := setupTree(t)
	require.NoError(t, tr.AddFolder(1, core.Folder{Id: 30, Path: "docs"}))
	require.NoError(t, tr.AttachFile(30, core.File{Id: 31, Name: "a.md", Path: "docs/a.md"}))

	folder, _ := tr.Folder(30)
	folder.Items[0] = 999

	fresh, _ := tr.Folder(30)
	assert.Equal(t, []core.ID{31}, fresh.Items)
}

func TestSetStatuses(t *testing.T) {
	tr := setupTree(t)
	require.NoError(t, tr.AddFile(1, core.File{Id: 10, Name: "a.md", Path: "docs/a.md"}))
	require.NoError(t, tr.AddNote(1, core.Note{Id: 20, Contents: "note text"}))

	tr.SetCollectionStatus(1, core.CollectionComposing)
	tr.SetFileStatus(10, core.StatusError, "content unavailable")
	tr.SetNoteStatus(20, core.StatusReady, "")

	col, _ := tr.Collection(1)
	assert.Equal(t, core.CollectionComposing, col.Status)

	f, _ := tr.File(10)
	assert.Equal(t, core.StatusError, f.Status)
	assert.Equal(t, "content unavailable", f.ErrMsg)

	n, _ := tr.Note(20)
	assert.Equal(t, core.StatusReady, n.Status)
}

func TestFolderItemsInsertionOrder(t *testing.T) {
	tr := setupTree(t)
	require.NoError(t, tr.AddFolder(1, core.Folder{Id: 30, Path: "docs"}))
	for i := 0; i < 5; i++ {
		require.NoError(t, tr.AttachFile(30, core.File{
			Id:   core.ID(40 + i),
			Name: fmt.Sprintf("f%d.md", i),
			Path: fmt.Sprintf("docs/f%d.md", i),
		}))
	}

	items := tr.FolderItems(30)
	require.Len(t, items, 5)
	for i, item := range items {
		assert.Equal(t, core.ID(40+i), item.Id)
	}
}

func TestRemoveFile(t *testing.T) {
	tr := setupTree(t)
	require.NoError(t, tr.AddFolder(1, core.Folder{Id: 30, Path: "docs"}))
	require.NoError(t, tr.AttachFile(30, core.File{Id: 31, Name: "a.md", Path: "docs/a.md"}))

	assert.True(t, tr.RemoveFile(1, 31))
	_, ok := tr.File(31)
	assert.False(t, ok)

	folder, _ := tr.Folder(30)
	assert.Empty(t, folder.Items)

	assert.False(t, tr.RemoveFile(1, 31))
}

func TestRemoveNote(t *testing.T) {
	tr := setupTree(t)
	require.NoError(t, tr.AddNote(1, core.Note{Id: 20, Contents: "note text"}))

	assert.True(t, tr.RemoveNote(1, 20))
	col, _ := tr.Collection(1)
	assert.Empty(t, col.Entries)

	assert.False(t, tr.RemoveNote(1, 20))
}

func TestConcurrentStatusWrites(t *testing.T) {
	tr := setupTree(t)
	for i := 0; i < 20; i++ {
		require.NoError(t, tr.AddFile(1, core.File{
			Id:   core.ID(100 + i),
			Name: fmt.Sprintf("f%d.md", i),
			Path: fmt.Sprintf("docs/f%d.md", i),
		}))
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		id := core.ID(100 + i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.SetFileStatus(id, core.StatusReady, "")
		}()
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		f, ok := tr.File(core.ID(100 + i))
		require.True(t, ok)
		assert.Equal(t, core.StatusReady, f.Status)
	}
}
