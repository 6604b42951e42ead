// Package compose implements the collection ingestion pipeline: a batch
// scheduler that runs items in fixed-width concurrent windows, a per-item
// processor covering fetch, embed, optional graph extraction, and
// persistence, a folder walker that expands directories into scheduled file
// batches, and the Composer that orchestrates full runs with per-collection
// single-flight enforcement and cooperative abort.
package compose
