package compose

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/lattice/ai"
	"github.com/poiesic/lattice/core"
	"github.com/poiesic/lattice/extract"
	"github.com/poiesic/lattice/storage"
	"github.com/poiesic/lattice/tree"
)

// ItemProcessor runs the per-item pipeline: fetch content, embed, optionally
// extract graph entities, persist, and write the item's terminal status into
// the source tree.
//
// Every failure class resolves locally: the item's status is set to error
// with a message, a notification fires, and the error returns to the
// scheduler for counting. Nothing here stops sibling items.
type ItemProcessor struct {
	store        storage.Store
	embedder     ai.Embedder
	extractor    *extract.Extractor // nil unless graph mode is enabled
	tree         *tree.Tree
	notifier     Notifier
	logger       *slog.Logger
	forceReindex bool
}

// ProcessorOption configures an ItemProcessor.
type ProcessorOption func(*ItemProcessor)

// WithExtractor enables knowledge-graph mode: each item additionally runs
// structured extraction and persists a graph node.
func WithExtractor(ex *extract.Extractor) ProcessorOption {
	return func(p *ItemProcessor) {
		p.extractor = ex
	}
}

// WithForceReindex makes vector upserts overwrite existing embeddings.
func WithForceReindex(force bool) ProcessorOption {
	return func(p *ItemProcessor) {
		p.forceReindex = force
	}
}

// WithProcessorNotifier sets the progress sink.
func WithProcessorNotifier(n Notifier) ProcessorOption {
	return func(p *ItemProcessor) {
		if n != nil {
			p.notifier = n
		}
	}
}

// WithProcessorLogger sets a custom logger.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *ItemProcessor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewItemProcessor creates a processor writing statuses into tr.
func NewItemProcessor(store storage.Store, embedder ai.Embedder, tr *tree.Tree, opts ...ProcessorOption) (*ItemProcessor, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if tr == nil {
		return nil, ErrTreeRequired
	}
	p := &ItemProcessor{
		store:    store,
		embedder: embedder,
		tree:     tr,
		notifier: NopNotifier{},
		logger:   slog.Default().With("component", "item-processor"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ProcessFile runs the pipeline for one file.
//
// The status is set to processing first, unconditionally, so recomposition of
// an already-ready item is visible. The abort token is polled between every
// suspension point; an observed abort returns core.ErrAborted without
// touching the item's last-written status.
func (p *ItemProcessor) ProcessFile(ctx context.Context, abort *core.AbortToken, collectionID, fileID core.ID) error {
	file, ok := p.tree.File(fileID)
	if !ok {
		return fmt.Errorf("%w: file %d not in tree", core.ErrInvalidFile, fileID)
	}

	p.tree.SetFileStatus(fileID, core.StatusProcessing, "")

	if abort.Aborted() {
		return core.ErrAborted
	}

	contents, err := p.store.GetContent(ctx, file.Path)
	if err != nil || contents == "" {
		if err == nil {
			err = core.ErrEmptyContent
		}
		p.failFile(fileID, file.Path, "content unavailable", err)
		return err
	}
	p.logger.Debug("fetched content", "path", file.Path, "bytes", len(contents))

	if abort.Aborted() {
		return core.ErrAborted
	}

	vector, err := p.embed(ctx, contents)
	if err != nil {
		p.failFile(fileID, file.Path, "embedding failed", err)
		return err
	}

	if abort.Aborted() {
		return core.ErrAborted
	}

	if err := p.persistFile(ctx, abort, collectionID, &file, contents, vector); err != nil {
		p.failFile(fileID, file.Path, "persistence failed", err)
		return err
	}

	p.tree.SetFileStatus(fileID, core.StatusReady, "")
	p.logger.Debug("file indexed", "path", file.Path)
	return nil
}

// ProcessNote runs the pipeline for one note. Notes carry their text inline,
// so there is no content-fetch step; the rest of the shape is identical to
// ProcessFile.
func (p *ItemProcessor) ProcessNote(ctx context.Context, abort *core.AbortToken, collectionID, noteID core.ID) error {
	note, ok := p.tree.Note(noteID)
	if !ok {
		return fmt.Errorf("%w: note %d not in tree", core.ErrInvalidNote, noteID)
	}

	p.tree.SetNoteStatus(noteID, core.StatusProcessing, "")

	if abort.Aborted() {
		return core.ErrAborted
	}

	if note.Contents == "" {
		p.failNote(noteID, "content unavailable", core.ErrEmptyContent)
		return core.ErrEmptyContent
	}

	vector, err := p.embed(ctx, note.Contents)
	if err != nil {
		p.failNote(noteID, "embedding failed", err)
		return err
	}

	if abort.Aborted() {
		return core.ErrAborted
	}

	if err := p.store.UpsertVector(ctx, collectionID, noteID, vector, p.forceReindex); err != nil {
		p.failNote(noteID, "persistence failed", err)
		return err
	}

	p.tree.SetNoteStatus(noteID, core.StatusReady, "")
	return nil
}

// embed computes a normalized embedding. A nil vector with a nil error from
// the capability is treated as an embedding failure.
func (p *ItemProcessor) embed(ctx context.Context, text string) ([]float32, error) {
	vector, err := p.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("embedder returned no vector")
	}
	return core.NormalizeVector(vector), nil
}

// persistFile writes the vector, and in graph mode also the extraction.
func (p *ItemProcessor) persistFile(ctx context.Context, abort *core.AbortToken, collectionID core.ID, file *core.File, contents string, vector []float32) error {
	if err := p.store.UpsertVector(ctx, collectionID, file.Id, vector, p.forceReindex); err != nil {
		return err
	}

	if p.extractor == nil {
		return nil
	}

	ext, err := p.extractor.Extract(ctx, abort, file.Id, file.Path, contents)
	if err != nil {
		return err
	}
	return p.store.UpsertGraph(ctx, ext, file.Id, vector, collectionID, file.Path)
}

func (p *ItemProcessor) failFile(fileID core.ID, path, stage string, err error) {
	msg := fmt.Sprintf("%s: %v", stage, err)
	p.tree.SetFileStatus(fileID, core.StatusError, msg)
	p.notifier.Error(fmt.Sprintf("failed to index %s: %s", path, stage))
	p.logger.Warn("file processing failed", "path", path, "stage", stage, "err", err)
}

func (p *ItemProcessor) failNote(noteID core.ID, stage string, err error) {
	msg := fmt.Sprintf("%s: %v", stage, err)
	p.tree.SetNoteStatus(noteID, core.StatusError, msg)
	p.notifier.Error(fmt.Sprintf("failed to index note %d: %s", noteID, stage))
	p.logger.Warn("note processing failed", "note", noteID, "stage", stage, "err", err)
}
