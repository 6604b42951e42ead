package notesidx

import "errors"

var (
	// ErrStoreRequired is returned when constructing without a store.
	ErrStoreRequired = errors.New("store is required")

	// ErrNoEmbedCapability is returned when neither a local embedder nor a
	// bus for remote embedding is configured.
	ErrNoEmbedCapability = errors.New("an embedder or a bus is required")

	// ErrRemoteEmbed wraps failures reported by a remote embed worker.
	ErrRemoteEmbed = errors.New("remote embedding failed")
)
