package compose

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/lattice/core"
	"github.com/poiesic/lattice/storage"
	"github.com/poiesic/lattice/tree"
)

// FolderWalker expands a folder into its file-type descendants and drives
// them through the batch scheduler.
type FolderWalker struct {
	store     storage.Store
	tree      *tree.Tree
	scheduler *Scheduler
	processor *ItemProcessor
	logger    *slog.Logger
}

// NewFolderWalker creates a walker bound to a scheduler and processor.
func NewFolderWalker(store storage.Store, tr *tree.Tree, scheduler *Scheduler, processor *ItemProcessor, logger *slog.Logger) (*FolderWalker, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if tr == nil {
		return nil, ErrTreeRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FolderWalker{
		store:     store,
		tree:      tr,
		scheduler: scheduler,
		processor: processor,
		logger:    logger.With("component", "folder-walker"),
	}, nil
}

// Walk processes one folder for a collection.
//
// All discovered files are seeded into the folder's item list with status
// processing before any work is dispatched, so observers see the full pending
// set up front. The folder's terminal status is derived from the run outcome
// and written exactly once: error if any item failed or the run was aborted,
// ready otherwise.
func (w *FolderWalker) Walk(ctx context.Context, abort *core.AbortToken, collectionID, folderID core.ID) (core.RunSummary, error) {
	folder, ok := w.tree.Folder(folderID)
	if !ok {
		return core.RunSummary{}, fmt.Errorf("%w: folder %d not in tree", core.ErrInvalidFile, folderID)
	}

	w.tree.SetFolderStatus(folderID, core.StatusProcessing)

	if abort.Aborted() {
		w.tree.SetFolderStatus(folderID, core.StatusError)
		return core.RunSummary{}, core.ErrAborted
	}

	// One recursive listing call; the walker never descends paths itself.
	entries, err := w.store.ListRecursive(ctx, folder.Path)
	if err != nil {
		w.tree.SetFolderStatus(folderID, core.StatusError)
		w.logger.Warn("folder listing failed", "path", folder.Path, "err", err)
		return core.RunSummary{}, err
	}

	var fileIDs []core.ID
	for _, entry := range entries {
		if entry.Kind != storage.EntryFile {
			continue
		}
		id := core.IDFromContent(entry.Path)
		err := w.tree.AttachFile(folderID, core.File{
			Id:     id,
			Name:   entry.Name,
			Path:   entry.Path,
			Type:   typeTag(entry.Path),
			Status: core.StatusProcessing,
		})
		if err != nil {
			w.tree.SetFolderStatus(folderID, core.StatusError)
			return core.RunSummary{}, err
		}
		fileIDs = append(fileIDs, id)
	}
	w.logger.Info("folder expanded", "path", folder.Path, "files", len(fileIDs))

	summary, err := w.scheduler.Run(ctx, abort, len(fileIDs), func(ctx context.Context, i int) error {
		return w.processor.ProcessFile(ctx, abort, collectionID, fileIDs[i])
	})

	if err != nil || summary.Error > 0 || abort.Aborted() {
		w.tree.SetFolderStatus(folderID, core.StatusError)
	} else {
		w.tree.SetFolderStatus(folderID, core.StatusReady)
	}
	return summary, err
}

// typeTag derives a coarse type tag from a file path extension.
func typeTag(path string) string {
	i := strings.LastIndex(path, ".")
	if i < 0 || i == len(path)-1 {
		return "text"
	}
	switch strings.ToLower(path[i+1:]) {
	case "md", "markdown":
		return "markdown"
	case "pdf":
		return "pdf"
	case "html", "htm":
		return "html"
	default:
		return "text"
	}
}
