package mock

import (
	"github.com/poiesic/lattice/ai"
)

// MockProvider is a test double for ai.AIProvider.
// It bundles a MockEmbedder and MockCompleter.
type MockProvider struct {
	embedder  *MockEmbedder
	completer *MockCompleter
}

// NewMockProvider creates a provider wrapping fresh mock services.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		embedder:  NewMockEmbedder(),
		completer: NewMockCompleter(),
	}
}

// Embedder returns the mock embedding service.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// Completer returns the mock completion service.
func (p *MockProvider) Completer() ai.Completer {
	return p.completer
}

// MockEmbedder returns the concrete mock for test assertions.
func (p *MockProvider) MockEmbedder() *MockEmbedder {
	return p.embedder
}

// MockCompleter returns the concrete mock for test assertions.
func (p *MockProvider) MockCompleter() *MockCompleter {
	return p.completer
}

// Close is a no-op.
func (p *MockProvider) Close() error {
	return nil
}
