package compose

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/lattice/core"
)

// Run is the registry's record of one active composition.
type Run struct {
	Id        string
	Abort     *core.AbortToken
	StartedAt time.Time
}

// Registry tracks active composition runs keyed by collection id, enforcing
// at most one active run per collection. It replaces the ambient global job
// state of the original design with injected, explicit bookkeeping.
type Registry struct {
	mu   sync.Mutex
	runs map[core.ID]*Run
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{runs: make(map[core.ID]*Run)}
}

// Begin registers a new run for the collection. Returns ErrCompositionActive
// if one is already in flight.
func (r *Registry) Begin(collectionID core.ID) (*Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[collectionID]; ok {
		return nil, ErrCompositionActive
	}
	run := &Run{
		Id:        uuid.NewString(),
		Abort:     core.NewAbortToken(),
		StartedAt: time.Now().UTC(),
	}
	r.runs[collectionID] = run
	return run, nil
}

// End removes the collection's active run, if any.
func (r *Registry) End(collectionID core.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, collectionID)
}

// Abort sets the abort token of the collection's active run.
// Returns false if no run is active.
func (r *Registry) Abort(collectionID core.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[collectionID]
	if !ok {
		return false
	}
	run.Abort.Set()
	return true
}

// Active reports whether a run is in flight for the collection.
func (r *Registry) Active(collectionID core.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.runs[collectionID]
	return ok
}
