package mock

import (
	"context"
	"sync/atomic"
)

// MockCompleter is a test double for ai.Completer.
// It allows custom behavior injection via function fields.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, returns an empty extraction payload.
	CompleteFunc func(ctx context.Context, prompt string) (string, error)

	callCount atomic.Int64
}

// NewMockCompleter creates a mock completer with default behavior.
// Note: returns concrete type to allow test assertions via CallCount().
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// Complete returns a canned response.
// Default behavior: a valid extraction payload with no entities, so pipelines
// running in graph mode succeed without custom wiring.
func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.callCount.Add(1)

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}

	return `{"entities": []}`, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockCompleter) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom function.
func (m *MockCompleter) Reset() {
	m.callCount.Store(0)
	m.CompleteFunc = nil
}
