package core

import "sync/atomic"

// AbortToken is a cooperative cancellation flag shared by all tasks spawned
// for one pipeline run. Setting the token never interrupts in-flight calls;
// tasks poll it at defined checkpoints and decline to start the next step.
//
// The token is created per run and passed explicitly through every call
// boundary. It is safe for concurrent use.
type AbortToken struct {
	flag atomic.Bool
}

// NewAbortToken creates an unset abort token.
func NewAbortToken() *AbortToken {
	return &AbortToken{}
}

// Set requests cancellation. Safe to call multiple times.
func (t *AbortToken) Set() {
	t.flag.Store(true)
}

// Aborted reports whether cancellation has been requested.
// A nil token never aborts.
func (t *AbortToken) Aborted() bool {
	if t == nil {
		return false
	}
	return t.flag.Load()
}

// Clear resets the token so the owner can be reused for a future run.
// Only the run owner should call this, after the run has fully wound down.
func (t *AbortToken) Clear() {
	t.flag.Store(false)
}
