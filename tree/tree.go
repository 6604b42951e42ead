package tree

import (
	"fmt"
	"slices"
	"sync"

	"github.com/poiesic/lattice/core"
)

// Tree is the in-memory source aggregate: collections, their files, folders,
// and notes, each with a per-node status.
//
// Nodes are stored arena-style in flat id-keyed maps; accessors copy values
// in and out so callers never hold references into the arena. The original
// design relied on a single-threaded event loop for mutation safety; here the
// batch scheduler mutates the tree from pool workers, so all access goes
// through a mutex.
type Tree struct {
	mu          sync.RWMutex
	collections map[core.ID]*core.Collection
	files       map[core.ID]*core.File
	folders     map[core.ID]*core.Folder
	notes       map[core.ID]*core.Note
}

// New creates an empty tree.
func New() *Tree {
	return &Tree{
		collections: make(map[core.ID]*core.Collection),
		files:       make(map[core.ID]*core.File),
		folders:     make(map[core.ID]*core.Folder),
		notes:       make(map[core.ID]*core.Note),
	}
}

// AddCollection inserts a collection. The id must be unused.
func (t *Tree) AddCollection(c core.Collection) error {
	if err := core.ValidateCollection(&c); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.collections[c.Id]; ok {
		return fmt.Errorf("%w: collection %d already exists", core.ErrInvalidCollection, c.Id)
	}
	if c.Status == 0 {
		c.Status = core.CollectionDraft
	}
	c.Entries = slices.Clone(c.Entries)
	t.collections[c.Id] = &c
	return nil
}

// AddFile inserts a file as a direct entry of a collection.
func (t *Tree) AddFile(collectionID core.ID, f core.File) error {
	if err := core.ValidateFile(&f); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	col, ok := t.collections[collectionID]
	if !ok {
		return fmt.Errorf("%w: collection %d", core.ErrInvalidCollection, collectionID)
	}
	if _, ok := t.files[f.Id]; ok {
		return fmt.Errorf("%w: file %d already exists", core.ErrInvalidFile, f.Id)
	}
	if f.Status == 0 {
		f.Status = core.StatusPending
	}
	t.files[f.Id] = &f
	col.Entries = append(col.Entries, core.Entry{Kind: core.EntryFile, Id: f.Id})
	return nil
}

// AddFolder inserts a folder as an entry of a collection.
func (t *Tree) AddFolder(collectionID core.ID, f core.Folder) error {
	if f.Path == "" {
		return fmt.Errorf("%w: folder: %w", core.ErrInvalidFile, core.ErrEmptyPath)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	col, ok := t.collections[collectionID]
	if !ok {
		return fmt.Errorf("%w: collection %d", core.ErrInvalidCollection, collectionID)
	}
	if _, ok := t.folders[f.Id]; ok {
		return fmt.Errorf("%w: folder %d already exists", core.ErrInvalidFile, f.Id)
	}
	if f.Status == 0 {
		f.Status = core.StatusPending
	}
	f.Items = slices.Clone(f.Items)
	t.folders[f.Id] = &f
	col.Entries = append(col.Entries, core.Entry{Kind: core.EntryFolder, Id: f.Id})
	return nil
}

// AddNote inserts a note as an entry of a collection.
func (t *Tree) AddNote(collectionID core.ID, n core.Note) error {
	if err := core.ValidateNote(&n); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	col, ok := t.collections[collectionID]
	if !ok {
		return fmt.Errorf("%w: collection %d", core.ErrInvalidCollection, collectionID)
	}
	if _, ok := t.notes[n.Id]; ok {
		return fmt.Errorf("%w: note %d already exists", core.ErrInvalidNote, n.Id)
	}
	if n.Status == 0 {
		n.Status = core.StatusPending
	}
	t.notes[n.Id] = &n
	col.Entries = append(col.Entries, core.Entry{Kind: core.EntryNote, Id: n.Id})
	return nil
}

// AttachFile creates or reuses a file record under a folder. Existing records
// keep their identity; either way the file ends up in the folder's item list
// with the given status. Used by the folder walker to seed discovered
// children before any work is dispatched.
func (t *Tree) AttachFile(folderID core.ID, f core.File) error {
	if err := core.ValidateFile(&f); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	folder, ok := t.folders[folderID]
	if !ok {
		return fmt.Errorf("%w: folder %d not found", core.ErrInvalidFile, folderID)
	}
	if existing, ok := t.files[f.Id]; ok {
		existing.Status = f.Status
		existing.ErrMsg = ""
	} else {
		t.files[f.Id] = &f
	}
	if !slices.Contains(folder.Items, f.Id) {
		folder.Items = append(folder.Items, f.Id)
	}
	return nil
}

// Collection returns a copy of the collection, if present.
func (t *Tree) Collection(id core.ID) (core.Collection, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	col, ok := t.collections[id]
	if !ok {
		return core.Collection{}, false
	}
	out := *col
	out.Entries = slices.Clone(col.Entries)
	return out, true
}

// File returns a copy of the file, if present.
func (t *Tree) File(id core.ID) (core.File, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.files[id]
	if !ok {
		return core.File{}, false
	}
	return *f, true
}

// Folder returns a copy of the folder, if present.
func (t *Tree) Folder(id core.ID) (core.Folder, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.folders[id]
	if !ok {
		return core.Folder{}, false
	}
	out := *f
	out.Items = slices.Clone(f.Items)
	return out, true
}

// Note returns a copy of the note, if present.
func (t *Tree) Note(id core.ID) (core.Note, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.notes[id]
	if !ok {
		return core.Note{}, false
	}
	return *n, true
}

// FolderItems returns copies of the folder's file items, in insertion order.
func (t *Tree) FolderItems(folderID core.ID) []core.File {
	t.mu.RLock()
	defer t.mu.RUnlock()
	folder, ok := t.folders[folderID]
	if !ok {
		return nil
	}
	items := make([]core.File, 0, len(folder.Items))
	for _, id := range folder.Items {
		if f, ok := t.files[id]; ok {
			items = append(items, *f)
		}
	}
	return items
}

// SetCollectionStatus updates a collection's status.
func (t *Tree) SetCollectionStatus(id core.ID, status core.CollectionStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if col, ok := t.collections[id]; ok {
		col.Status = status
	}
}

// SetFileStatus updates a file's status and error message.
// Pass an empty message for non-error statuses.
func (t *Tree) SetFileStatus(id core.ID, status core.ItemStatus, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f, ok := t.files[id]; ok {
		f.Status = status
		f.ErrMsg = errMsg
	}
}

// SetFolderStatus updates a folder's status.
func (t *Tree) SetFolderStatus(id core.ID, status core.ItemStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f, ok := t.folders[id]; ok {
		f.Status = status
	}
}

// SetNoteStatus updates a note's status and error message.
func (t *Tree) SetNoteStatus(id core.ID, status core.ItemStatus, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n, ok := t.notes[id]; ok {
		n.Status = status
		n.ErrMsg = errMsg
	}
}

// RemoveFile deletes a file from the arena and from its owning collection's
// entries and any folder item lists. Returns false if the file was not found.
func (t *Tree) RemoveFile(collectionID, fileID core.ID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.files[fileID]; !ok {
		return false
	}
	delete(t.files, fileID)
	if col, ok := t.collections[collectionID]; ok {
		col.Entries = slices.DeleteFunc(col.Entries, func(e core.Entry) bool {
			return e.Kind == core.EntryFile && e.Id == fileID
		})
	}
	for _, folder := range t.folders {
		folder.Items = slices.DeleteFunc(folder.Items, func(id core.ID) bool {
			return id == fileID
		})
	}
	return true
}

// RemoveNote deletes a note from the arena and its owning collection's
// entries. Returns false if the note was not found.
func (t *Tree) RemoveNote(collectionID, noteID core.ID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.notes[noteID]; !ok {
		return false
	}
	delete(t.notes, noteID)
	if col, ok := t.collections[collectionID]; ok {
		col.Entries = slices.DeleteFunc(col.Entries, func(e core.Entry) bool {
			return e.Kind == core.EntryNote && e.Id == noteID
		})
	}
	return true
}
