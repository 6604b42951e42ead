// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/lattice/ai"
	"github.com/poiesic/lattice/core"
	"github.com/poiesic/lattice/extract"
	"github.com/poiesic/lattice/storage"
	"github.com/poiesic/lattice/tree"
	"golang.org/x/sync/errgroup"
)

// DefaultGraceDelay is how long AbortAndWait pauses after setting the abort
// token, giving in-flight calls time to complete before the collection's
// resources are reused.
const DefaultGraceDelay = 2 * time.Second

// Composer orchestrates end-to-end ingestion runs over collections.
type Composer struct {
	store      storage.Store
	embedder   ai.Embedder
	completer  ai.Completer // nil unless graph mode
	tree       *tree.Tree
	registry   *Registry
	scheduler  *SchedulerConfig
	notifier   Notifier
	logger     *slog.Logger
	graceDelay time.Duration
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithCompleter enables knowledge-graph indexing: every file additionally
// runs structured extraction through the given completion capability.
func WithCompleter(c ai.Completer) ComposerOption {
	return func(cp *Composer) {
		cp.completer = c
	}
}

// WithScheduler sets the batch scheduler configuration for runs.
func WithScheduler(cfg *SchedulerConfig) ComposerOption {
	return func(cp *Composer) {
		if cfg != nil {
			cp.scheduler = cfg
		}
	}
}

// WithNotifier sets the progress sink.
func WithNotifier(n Notifier) ComposerOption {
	return func(cp *Composer) {
		if n != nil {
			cp.notifier = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ComposerOption {
	return func(cp *Composer) {
		if logger != nil {
			cp.logger = logger
		}
	}
}

// WithGraceDelay sets the pause AbortAndWait inserts after aborting.
func WithGraceDelay(d time.Duration) ComposerOption {
	return func(cp *Composer) {
		cp.graceDelay = d
	}
}

// NewComposer creates a composer writing statuses into tr.
func NewComposer(store storage.Store, embedder ai.Embedder, tr *tree.Tree, opts ...ComposerOption) (*Composer, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if tr == nil {
		return nil, ErrTreeRequired
	}
	c := &Composer{
		store:      store,
		embedder:   embedder,
		tree:       tr,
		registry:   NewRegistry(),
		scheduler:  DefaultSchedulerConfig(),
		notifier:   NopNotifier{},
		logger:     slog.Default().With("component", "composer"),
		graceDelay: DefaultGraceDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Compose runs one end-to-end ingestion over the collection.
//
// At most one run per collection may be active; a second trigger returns
// ErrCompositionActive. Direct file and note entries are driven through the
// batch scheduler first, then each folder entry is expanded and processed in
// collection order.
//
// The collection ends ready if the run completed without cancellation, even
// when individual items errored - partial failure is reported through the
// returned summary and the progress sink, never by withholding ready. An
// aborted run always drives the collection back to draft.
func (c *Composer) Compose(ctx context.Context, collectionID core.ID, forceReindex bool) (core.RunSummary, error) {
	run, err := c.registry.Begin(collectionID)
	if err != nil {
		return core.RunSummary{}, err
	}
	defer c.registry.End(collectionID)

	collection, ok := c.tree.Collection(collectionID)
	if !ok {
		return core.RunSummary{}, fmt.Errorf("%w: %d", ErrUnknownCollection, collectionID)
	}

	c.tree.SetCollectionStatus(collectionID, core.CollectionComposing)
	c.notifier.Info(fmt.Sprintf("composing %q", collection.Name))
	c.logger.Info("composition started",
		"collection", collection.Name, "run", run.Id, "force", forceReindex)

	summary, err := c.runPipeline(ctx, run.Abort, &collection, forceReindex)
	if err != nil {
		c.tree.SetCollectionStatus(collectionID, core.CollectionError)
		c.notifier.Error(fmt.Sprintf("composing %q failed: %v", collection.Name, err))
		return summary, err
	}

	if run.Abort.Aborted() {
		// Cancellation always drives the collection back to draft.
		c.tree.SetCollectionStatus(collectionID, core.CollectionDraft)
		c.notifier.Info(fmt.Sprintf("composing %q aborted: %d indexed, %d failed",
			collection.Name, summary.Success, summary.Error))
		return summary, nil
	}

	c.tree.SetCollectionStatus(collectionID, core.CollectionReady)
	c.notifier.Success(fmt.Sprintf("composed %q: %d indexed, %d failed",
		collection.Name, summary.Success, summary.Error))
	return summary, nil
}

// runPipeline builds the per-run machinery and drives every entry.
func (c *Composer) runPipeline(ctx context.Context, abort *core.AbortToken, collection *core.Collection, forceReindex bool) (core.RunSummary, error) {
	procOpts := []ProcessorOption{
		WithForceReindex(forceReindex),
		WithProcessorNotifier(c.notifier),
		WithProcessorLogger(c.logger),
	}
	if c.completer != nil {
		extractor, err := extract.New(c.completer, extract.WithLogger(c.logger))
		if err != nil {
			return core.RunSummary{}, err
		}
		procOpts = append(procOpts, WithExtractor(extractor))
	}
	processor, err := NewItemProcessor(c.store, c.embedder, c.tree, procOpts...)
	if err != nil {
		return core.RunSummary{}, err
	}

	scheduler, err := NewScheduler(c.scheduler, c.notifier, c.logger)
	if err != nil {
		return core.RunSummary{}, err
	}
	defer scheduler.Release()

	walker, err := NewFolderWalker(c.store, c.tree, scheduler, processor, c.logger)
	if err != nil {
		return core.RunSummary{}, err
	}

	// Direct file and note entries run as one scheduled batch, in entry
	// order; folders follow, each expanding into its own scheduled batch.
	var leaves []core.Entry
	var folders []core.ID
	for _, entry := range collection.Entries {
		switch entry.Kind {
		case core.EntryFile, core.EntryNote:
			leaves = append(leaves, entry)
		case core.EntryFolder:
			folders = append(folders, entry.Id)
		}
	}

	var total core.RunSummary

	summary, err := scheduler.Run(ctx, abort, len(leaves), func(ctx context.Context, i int) error {
		entry := leaves[i]
		if entry.Kind == core.EntryNote {
			return processor.ProcessNote(ctx, abort, collection.Id, entry.Id)
		}
		return processor.ProcessFile(ctx, abort, collection.Id, entry.Id)
	})
	total.Add(summary)
	if err != nil {
		return total, err
	}

	for _, folderID := range folders {
		if abort.Aborted() {
			break
		}
		summary, err := walker.Walk(ctx, abort, collection.Id, folderID)
		total.Add(summary)
		if err != nil && !errors.Is(err, core.ErrAborted) {
			return total, err
		}
	}

	return total, nil
}

// Abort requests cancellation of the collection's active run.
// Returns false if no run is active.
func (c *Composer) Abort(collectionID core.ID) bool {
	return c.registry.Abort(collectionID)
}

// AbortAndWait requests cancellation and then pauses for the grace delay.
// Cancellation is cooperative: in-flight model and store calls run to
// completion, so callers that need the collection's resources free should use
// this instead of Abort.
func (c *Composer) AbortAndWait(collectionID core.ID) {
	if c.registry.Abort(collectionID) {
		time.Sleep(c.graceDelay)
	}
}

// Active reports whether a composition run is in flight for the collection.
func (c *Composer) Active(collectionID core.ID) bool {
	return c.registry.Active(collectionID)
}

// RemoveFile deletes a file from the tree and best-effort removes its derived
// vectors and graph node from the store. The store deletes are concurrent and
// not transactional with the tree mutation; a failed delete is logged and
// returned but the tree mutation stands.
func (c *Composer) RemoveFile(ctx context.Context, collectionID, fileID core.ID) error {
	if !c.tree.RemoveFile(collectionID, fileID) {
		return fmt.Errorf("%w: file %d not in tree", core.ErrInvalidFile, fileID)
	}
	return c.deleteDerived(ctx, collectionID, fileID)
}

// RemoveNote deletes a note from the tree and best-effort removes its derived
// data from the store.
func (c *Composer) RemoveNote(ctx context.Context, collectionID, noteID core.ID) error {
	if !c.tree.RemoveNote(collectionID, noteID) {
		return fmt.Errorf("%w: note %d not in tree", core.ErrInvalidNote, noteID)
	}
	return c.deleteDerived(ctx, collectionID, noteID)
}

func (c *Composer) deleteDerived(ctx context.Context, collectionID, itemID core.ID) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.store.DeleteVectors(gctx, collectionID, itemID)
	})
	g.Go(func() error {
		return c.store.DeleteGraphNode(gctx, itemID)
	})
	if err := g.Wait(); err != nil {
		c.logger.Warn("derived data cleanup incomplete", "item", itemID, "err", err)
		return err
	}
	return nil
}
