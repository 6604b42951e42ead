package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer produces a free-form completion for a prompt.
// The ingestion pipeline uses it to pull structured entities out of document
// text; it is agnostic to which backend is active.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete sends the prompt to the model and returns the raw response text.
	// An empty response with a nil error means the model returned no choices.
	Complete(ctx context.Context, prompt string) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle
// management. A provider creates and manages Embedder and Completer instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Completer returns the free-form completion service.
	Completer() Completer

	// Close releases resources held by the provider and its services.
	Close() error
}
