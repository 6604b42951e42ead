package compose

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/lattice/core"
	"github.com/poiesic/lattice/storage"
)

// testStore implements storage.Store with injectable failures.
type testStore struct {
	mu      sync.Mutex
	content map[string]string
	entries map[string][]storage.Entry
	vectors map[[2]core.ID][]float32
	graphs  map[core.ID]*core.GraphExtraction
	upserts int

	getContentErr   error
	listErr         error
	upsertVectorErr error
	upsertGraphErr  error
	deleteVecErr    error
	deleteGraphErr  error
}

func newTestStore() *testStore {
	return &testStore{
		content: make(map[string]string),
		entries: make(map[string][]storage.Entry),
		vectors: make(map[[2]core.ID][]float32),
		graphs:  make(map[core.ID]*core.GraphExtraction),
	}
}

func (s *testStore) GetContent(ctx context.Context, path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getContentErr != nil {
		return "", s.getContentErr
	}
	contents, ok := s.content[path]
	if !ok {
		return "", fmt.Errorf("%w: %s", storage.ErrNotFound, path)
	}
	return contents, nil
}

func (s *testStore) ListRecursive(ctx context.Context, path string) ([]storage.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.entries[path], nil
}

func (s *testStore) UpsertVector(ctx context.Context, collectionID, itemID core.ID, vector []float32, forceReindex bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertVectorErr != nil {
		return s.upsertVectorErr
	}
	key := [2]core.ID{collectionID, itemID}
	if _, ok := s.vectors[key]; ok && !forceReindex {
		return nil
	}
	s.vectors[key] = vector
	s.upserts++
	return nil
}

func (s *testStore) UpsertGraph(ctx context.Context, ext *core.GraphExtraction, itemID core.ID, vector []float32, collectionID core.ID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertGraphErr != nil {
		return s.upsertGraphErr
	}
	s.graphs[itemID] = ext
	return nil
}

func (s *testStore) DeleteVectors(ctx context.Context, collectionID, itemID core.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteVecErr != nil {
		return s.deleteVecErr
	}
	delete(s.vectors, [2]core.ID{collectionID, itemID})
	return nil
}

func (s *testStore) DeleteGraphNode(ctx context.Context, itemID core.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteGraphErr != nil {
		return s.deleteGraphErr
	}
	delete(s.graphs, itemID)
	return nil
}

func (s *testStore) NotesNeedingIndexing(ctx context.Context) (*core.NoteIndexStatus, error) {
	return &core.NoteIndexStatus{}, nil
}

func (s *testStore) MarkIndexed(ctx context.Context, noteID core.ID, vector []float32) error {
	return nil
}

func (s *testStore) Close() error {
	return nil
}

func (s *testStore) vectorFor(collectionID, itemID core.ID) ([]float32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vectors[[2]core.ID{collectionID, itemID}]
	return v, ok
}

func (s *testStore) graphFor(itemID core.ID) (*core.GraphExtraction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.graphs[itemID]
	return g, ok
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (n *recordingNotifier) Info(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, msg)
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, msg)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *recordingNotifier) errorCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errors)
}
