package compose

import "errors"

var (
	// ErrStoreRequired is returned when a durable store is not provided.
	ErrStoreRequired = errors.New("store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrTreeRequired is returned when a source tree is not provided.
	ErrTreeRequired = errors.New("source tree required")

	// ErrCompositionActive indicates a composition run is already in flight
	// for the collection. At most one run per collection may be active.
	ErrCompositionActive = errors.New("composition already active for collection")

	// ErrUnknownCollection indicates the collection is not in the tree.
	ErrUnknownCollection = errors.New("unknown collection")
)
