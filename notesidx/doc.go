// Package notesidx coordinates corpus-wide notes indexing: a single-flight
// job with a safety timeout that discovers notes needing embeddings, drives
// them through the batch scheduler, and publishes its state machine over the
// bus. When the coordinating process has no model access, embedding is
// delegated to a Worker in another process via embed request/result messages.
package notesidx
