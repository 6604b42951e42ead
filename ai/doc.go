// Package ai defines the abstract AI capabilities the indexing pipeline
// consumes: text embedding and free-form completion.
//
// The pipeline only depends on the interfaces in this package; concrete
// backends live in subpackages:
//
//   - ai/openai: OpenAI-compatible services (Ollama, LocalAI, vLLM, OpenAI)
//   - ai/mock: deterministic test doubles
//
// Providers are selectable at construction time; the pipeline is agnostic to
// which backend is active.
package ai
