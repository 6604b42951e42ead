package storage

import "github.com/poiesic/lattice/core"

// VectorRecord is the stored form of an item's embedding.
type VectorRecord struct {
	CollectionId core.ID
	ItemId       core.ID
	Vector       []float32
	UpdatedAt    int64 // unix micro
}

// GraphRecord is the stored form of an item's knowledge-graph node.
type GraphRecord struct {
	ItemId       core.ID
	CollectionId core.ID
	Path         string
	Vector       []float32
	Entities     []core.GraphEntity
}

// NoteRecord tracks a note registered for corpus-wide indexing.
// A note with an empty vector is in the needs-indexing partition.
type NoteRecord struct {
	Id     core.ID
	Path   string
	Vector []float32
}

// Indexed reports whether the note already has an embedding.
func (r *NoteRecord) Indexed() bool {
	return len(r.Vector) > 0
}
