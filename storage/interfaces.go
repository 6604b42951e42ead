package storage

import (
	"context"

	"github.com/poiesic/lattice/core"
)

// EntryKind identifies the kind of a listed store entry.
type EntryKind int

const (
	// EntryFile is a leaf document with retrievable content.
	EntryFile EntryKind = iota + 1
	// EntryFolder is an intermediate directory.
	EntryFolder
)

// Entry describes one descendant returned by a recursive listing.
type Entry struct {
	Name string
	Path string
	Kind EntryKind
}

// ContentStore provides read access to raw source content.
// All calls are asynchronous-safe; failures surface as explicit errors, never
// as faults that bypass caller status bookkeeping.
type ContentStore interface {
	// GetContent retrieves the raw text stored at path.
	// Returns ErrNotFound if no content exists there.
	GetContent(ctx context.Context, path string) (string, error)

	// ListRecursive lists all transitive descendants of path in a single
	// call. Implementations walk their own structures; callers never do a
	// manual recursive walk.
	ListRecursive(ctx context.Context, path string) ([]Entry, error)
}

// ContentWriter loads source content into a store. Implemented by backends
// that own their content; the ingestion pipeline itself never writes content.
type ContentWriter interface {
	// PutContent stores raw text at path.
	PutContent(ctx context.Context, path, contents string) error

	// RegisterNote adds a note to the corpus as needing indexing.
	RegisterNote(ctx context.Context, noteID core.ID, path string) error
}

// IndexStore provides mutations against the derived semantic index.
type IndexStore interface {
	// UpsertVector writes the embedding vector for an item. When
	// forceReindex is false and a vector already exists for the item, the
	// write is a no-op.
	UpsertVector(ctx context.Context, collectionID, itemID core.ID, vector []float32, forceReindex bool) error

	// UpsertGraph writes the knowledge-graph node derived from an item,
	// together with its vector and identity metadata.
	UpsertGraph(ctx context.Context, ext *core.GraphExtraction, itemID core.ID, vector []float32, collectionID core.ID, path string) error

	// DeleteVectors removes the stored vector for an item. Missing vectors
	// are not an error.
	DeleteVectors(ctx context.Context, collectionID, itemID core.ID) error

	// DeleteGraphNode removes the stored graph node for an item. Missing
	// nodes are not an error.
	DeleteGraphNode(ctx context.Context, itemID core.ID) error
}

// NoteIndex tracks the corpus-wide notes indexing state.
type NoteIndex interface {
	// NotesNeedingIndexing partitions the registered notes into
	// already-indexed and needs-indexing. It must not generate embeddings.
	NotesNeedingIndexing(ctx context.Context) (*core.NoteIndexStatus, error)

	// MarkIndexed records the embedding for a note, moving it into the
	// already-indexed partition.
	MarkIndexed(ctx context.Context, noteID core.ID, vector []float32) error
}

// Store is the full durable-store contract the pipeline consumes.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	ContentStore
	IndexStore
	NoteIndex

	// Close closes the storage backend and releases resources.
	Close() error
}
