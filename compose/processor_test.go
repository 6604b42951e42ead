package compose

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/lattice/ai/mock"
	"github.com/poiesic/lattice/core"
	"github.com/poiesic/lattice/extract"
	"github.com/poiesic/lattice/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupProcessor(t *testing.T, store *testStore, opts ...ProcessorOption) (*ItemProcessor, *tree.Tree) {
	tr := tree.New()
	require.NoError(t, tr.AddCollection(core.Collection{Id: 1, Name: "research"}))

	p, err := NewItemProcessor(store, mock.NewMockEmbedder(), tr, opts...)
	require.NoError(t, err)
	return p, tr
}

func TestNewItemProcessorRequiresDeps(t *testing.T) {
	tr := tree.New()
	embedder := mock.NewMockEmbedder()

	_, err := NewItemProcessor(nil, embedder, tr)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewItemProcessor(newTestStore(), nil, tr)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewItemProcessor(newTestStore(), embedder, nil)
	assert.ErrorIs(t, err, ErrTreeRequired)
}

func TestProcessFileSuccess(t *testing.T) {
	store := newTestStore()
	store.content["docs/a.md"] = "alpha document"

	p, tr := setupProcessor(t, store)
	require.NoError(t, tr.AddFile(1, core.File{Id: 10, Name: "a.md", Path: "docs/a.md"}))

	err := p.ProcessFile(context.Background(), nil, 1, 10)
	require.NoError(t, err)

	f, _ := tr.File(10)
	assert.Equal(t, core.StatusReady, f.Status)
	assert.Empty(t, f.ErrMsg)

	vector, ok := store.vectorFor(1, 10)
	require.True(t, ok)
	assert.NotEmpty(t, vector)
}

func TestProcessFileStoresNormalizedVector(t *testing.T) {
	store := newTestStore()
	store.content["docs/a.md"] = "alpha document"

	p, tr := setupProcessor(t, store)
	require.NoError(t, tr.AddFile(1, core.File{Id: 10, Name: "a.md", Path: "docs/a.md"}))

	require.NoError(t, p.ProcessFile(context.Background(), nil, 1, 10))

	vector, ok := store.vectorFor(1, 10)
	require.True(t, ok)

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, sumSquares, 0.001)
}

func TestProcessFileUnknownFile(t *testing.T) {
	p, _ := setupProcessor(t, newTestStore())
	err := p.ProcessFile(context.Background(), nil, 1, 999)
	assert.ErrorIs(t, err, core.ErrInvalidFile)
}

func TestProcessFileMissingContent(t *testing.T) {
	store := newTestStore()
	p, tr := setupProcessor(t, store)
	require.NoError(t, tr.AddFile(1, core.File{Id: 10, Name: "a.md", Path: "docs/a.md"}))

	err := p.ProcessFile(context.Background(), nil, 1, 10)
	require.Error(t, err)

	f, _ := tr.File(10)
	assert.Equal(t, core.StatusError, f.Status)
	assert.Contains(t, f.ErrMsg, "content unavailable")
}

func TestProcessFileEmptyContent(t *testing.T) {
	store := newTestStore()
	store.content["docs/a.md"] = ""

	p, tr := setupProcessor(t, store)
	require.NoError(t, tr.AddFile(1, core.File{Id: 10, Name: "a.md", Path: "docs/a.md"}))

	err := p.ProcessFile(context.Background(), nil, 1, 10)
	assert.ErrorIs(t, err, core.ErrEmptyContent)

	f, _ := tr.File(10)
	assert.Equal(t, core.StatusError, f.Status)
}

func TestProcessFileEmbedFailure(t *testing.T) {
	store := newTestStore()
	store.content["docs/a.md"] = "alpha document"

	tr := tree.New()
	require.NoError(t, tr.AddCollection(core.Collection{Id: 1, Name: "research"}))
	require.NoError(t, tr.AddFile(1, core.File{Id: 10, Name: "a.md", Path: "docs/a.md"}))

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("model unavailable")
	}

	notifier := &recordingNotifier{}
	p, err := NewItemProcessor(store, embedder, tr, WithProcessorNotifier(notifier))
	require.NoError(t, err)

	err = p.ProcessFile(context.Background(), nil, 1, 10)
	require.Error(t, err)

	f, _ := tr.File(10)
	assert.Equal(t, core.StatusError, f.Status)
	assert.Contains(t, f.ErrMsg, "embedding failed")
	assert.Equal(t, 1, notifier.errorCount())

	_, ok := store.vectorFor(1, 10)
	assert.False(t, ok)
}

func TestProcessFilePersistFailure(t *testing.T) {
	store := newTestStore()
	store.content["docs/a.md"] = "alpha document"
	store.upsertVectorErr = errors.New("disk full")

	p, tr := setupProcessor(t, store)
	require.NoError(t, tr.AddFile(1, core.File{Id: 10, Name: "a.md", Path: "docs/a.md"}))

	err := p.ProcessFile(context.Background(), nil, 1, 10)
	require.Error(t, err)

	f, _ := tr.File(10)
	assert.Equal(t, core.StatusError, f.Status)
	assert.Contains(t, f.ErrMsg, "persistence failed")
}

func TestProcessFileAborted(t *testing.T) {
	store := newTestStore()
	store.content["docs/a.md"] = "alpha document"

	p, tr := setupProcessor(t, store)
	require.NoError(t, tr.AddFile(1, core.File{Id: 10, Name: "a.md", Path: "docs/a.md"}))

	abort := core.NewAbortToken()
	abort.Set()

	err := p.ProcessFile(context.Background(), abort, 1, 10)
	assert.ErrorIs(t, err, core.ErrAborted)

	// The abort checkpoint fires after the processing transition; the item
	// keeps its last-written status rather than flipping to error.
	f, _ := tr.File(10)
	assert.Equal(t, core.StatusProcessing, f.Status)
}

func TestProcessFileGraphMode(t *testing.T) {
	store := newTestStore()
	store.content["docs/a.md"] = "Ada Lovelace wrote the first program"

	completer := mock.NewMockCompleter()
	completer.CompleteFunc = func(ctx context.Context, prompt string) (string, error) {
		return `{"entities": [{"id": "e1", "name": "Ada Lovelace", "type": "person"}]}`, nil
	}
	extractor, err := extract.New(completer)
	require.NoError(t, err)

	p, tr := setupProcessor(t, store, WithExtractor(extractor))
	require.NoError(t, tr.AddFile(1, core.File{Id: 10, Name: "a.md", Path: "docs/a.md"}))

	require.NoError(t, p.ProcessFile(context.Background(), nil, 1, 10))

	graph, ok := store.graphFor(10)
	require.True(t, ok)
	assert.Equal(t, core.ID(10), graph.DocId)
	assert.Equal(t, "docs/a.md", graph.DocPath)
	require.Len(t, graph.Entities, 1)
	assert.Equal(t, "Ada Lovelace", graph.Entities[0].Name)

	f, _ := tr.File(10)
	assert.Equal(t, core.StatusReady, f.Status)
}

func TestProcessFileGraphExtractionFailure(t *testing.T) {
	store := newTestStore()
	store.content["docs/a.md"] = "alpha document"

	completer := mock.NewMockCompleter()
	completer.CompleteFunc = func(ctx context.Context, prompt string) (string, error) {
		return "not json at all", nil
	}
	extractor, err := extract.New(completer, extract.WithMaxAttempts(1))
	require.NoError(t, err)

	p, tr := setupProcessor(t, store, WithExtractor(extractor))
	require.NoError(t, tr.AddFile(1, core.File{Id: 10, Name: "a.md", Path: "docs/a.md"}))

	err = p.ProcessFile(context.Background(), nil, 1, 10)
	assert.ErrorIs(t, err, extract.ErrMalformedResponse)

	f, _ := tr.File(10)
	assert.Equal(t, core.StatusError, f.Status)
}

func TestProcessNoteSuccess(t *testing.T) {
	store := newTestStore()
	p, tr := setupProcessor(t, store)
	require.NoError(t, tr.AddNote(1, core.Note{Id: 20, Title: "idea", Contents: "remember this"}))

	require.NoError(t, p.ProcessNote(context.Background(), nil, 1, 20))

	n, _ := tr.Note(20)
	assert.Equal(t, core.StatusReady, n.Status)

	_, ok := store.vectorFor(1, 20)
	assert.True(t, ok)
}

func TestProcessNoteUnknown(t *testing.T) {
	p, _ := setupProcessor(t, newTestStore())
	err := p.ProcessNote(context.Background(), nil, 1, 999)
	assert.ErrorIs(t, err, core.ErrInvalidNote)
}

func TestProcessNoteEmbedFailure(t *testing.T) {
	tr := tree.New()
	require.NoError(t, tr.AddCollection(core.Collection{Id: 1, Name: "research"}))
	require.NoError(t, tr.AddNote(1, core.Note{Id: 20, Contents: "remember this"}))

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("model unavailable")
	}

	p, err := NewItemProcessor(newTestStore(), embedder, tr)
	require.NoError(t, err)

	err = p.ProcessNote(context.Background(), nil, 1, 20)
	require.Error(t, err)

	n, _ := tr.Note(20)
	assert.Equal(t, core.StatusError, n.Status)
	assert.Contains(t, n.ErrMsg, "embedding failed")
}

func TestForceReindexOverwrites(t *testing.T) {
	store := newTestStore()
	store.content["docs/a.md"] = "alpha document"

	p, tr := setupProcessor(t, store, WithForceReindex(true))
	require.NoError(t, tr.AddFile(1, core.File{Id: 10, Name: "a.md", Path: "docs/a.md"}))

	require.NoError(t, p.ProcessFile(context.Background(), nil, 1, 10))
	require.NoError(t, p.ProcessFile(context.Background(), nil, 1, 10))
	assert.Equal(t, 2, store.upserts)
}

func TestDefaultReindexSkipsExisting(t *testing.T) {
	store := newTestStore()
	store.content["docs/a.md"] = "alpha document"

	p, tr := setupProcessor(t, store)
	require.NoError(t, tr.AddFile(1, core.File{Id: 10, Name: "a.md", Path: "docs/a.md"}))

	require.NoError(t, p.ProcessFile(context.Background(), nil, 1, 10))
	require.NoError(t, p.ProcessFile(context.Background(), nil, 1, 10))
	assert.Equal(t, 1, store.upserts)
}
