// Package bus provides a small topic-based publish/subscribe abstraction
// with an in-process implementation for single-binary deployments and a
// redis-backed implementation for coordinating separate processes.
package bus
