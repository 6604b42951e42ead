package core

import (
	"encoding/binary"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing of paths or text.
type ID uint64

// IDFromContent generates a deterministic ID from text using BLAKE2b hashing.
// Identical content always produces the same ID, which keeps re-discovery of
// the same file or note idempotent.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ItemStatus is the processing status of a File, Folder, or Note.
type ItemStatus int

const (
	// StatusPending indicates the item has not been picked up by a run yet.
	StatusPending ItemStatus = iota + 1
	// StatusProcessing indicates the item is part of an in-flight run.
	StatusProcessing
	// StatusReady indicates the item was indexed successfully.
	StatusReady
	// StatusError indicates the item failed during its last run.
	StatusError
)

// String returns the lowercase name of the status.
func (s ItemStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// CollectionStatus is the lifecycle status of a Collection.
type CollectionStatus int

const (
	// CollectionDraft is the initial state, and the state a collection
	// returns to when a composition run is aborted.
	CollectionDraft CollectionStatus = iota + 1
	// CollectionComposing indicates a composition run is in flight.
	CollectionComposing
	// CollectionReady indicates the last run completed without cancellation.
	// Individual items may still have ended in error.
	CollectionReady
	// CollectionError indicates the last run hit an internal fault.
	CollectionError
)

// String returns the lowercase name of the status.
func (s CollectionStatus) String() string {
	switch s {
	case CollectionDraft:
		return "draft"
	case CollectionComposing:
		return "composing"
	case CollectionReady:
		return "ready"
	case CollectionError:
		return "error"
	}
	return "unknown"
}

// JobStatus is the state of a corpus-wide indexing job.
type JobStatus int

const (
	JobIdle JobStatus = iota + 1
	JobStarted
	JobProgress
	JobCompleted
	JobError
	JobAborted
)

// String returns the lowercase name of the status.
func (s JobStatus) String() string {
	switch s {
	case JobIdle:
		return "idle"
	case JobStarted:
		return "started"
	case JobProgress:
		return "progress"
	case JobCompleted:
		return "completed"
	case JobError:
		return "error"
	case JobAborted:
		return "aborted"
	}
	return "unknown"
}

// Terminal reports whether the job status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobError || s == JobAborted
}

// EntryKind identifies the type of a collection entry.
type EntryKind int

const (
	EntryFile EntryKind = iota + 1
	EntryFolder
	EntryNote
)

// Entry is an ordered reference from a Collection to one of its members.
type Entry struct {
	Kind EntryKind
	Id   ID
}

// Collection is a named grouping of files, folders, and notes indexed together.
type Collection struct {
	Id      ID
	Name    string
	Status  CollectionStatus
	Entries []Entry
}

// File is a single document tracked by a collection or folder.
type File struct {
	Id     ID
	Name   string
	Path   string
	Type   string // type tag, e.g. "markdown", "text"
	Status ItemStatus
	ErrMsg string // populated when Status == StatusError
}

// Folder is a directory whose file-type descendants are indexed.
// Items holds the flattened transitive file children; folders are not
// nested as a tree of Folder nodes.
type Folder struct {
	Id     ID
	Path   string
	Status ItemStatus
	Items  []ID
}

// Note is a free-text document created directly by the user.
type Note struct {
	Id       ID
	Title    string
	Contents string
	Status   ItemStatus
	ErrMsg   string
}

// RunSummary holds the aggregate outcome of a pipeline run.
type RunSummary struct {
	Success int
	Error   int
}

// Add merges another summary into this one.
func (s *RunSummary) Add(other RunSummary) {
	s.Success += other.Success
	s.Error += other.Error
}

// GraphEntity is a single structured entity extracted from document text.
type GraphEntity struct {
	Id          string
	Name        string
	Type        string // one of ai.EntityTypes
	Description string
	Snippets    []string
}

// GraphExtraction is the structured-extraction result for one document,
// stamped with the document's own identity.
type GraphExtraction struct {
	DocId    ID
	DocPath  string
	Entities []GraphEntity
}

// NoteRef is a lightweight pointer to a note in the durable store.
type NoteRef struct {
	Id   ID
	Path string
}

// NoteIndexStatus is the partition of the notes corpus by indexing state.
// Computing it must never require generating embeddings.
type NoteIndexStatus struct {
	NeedsIndexing  []NoteRef
	AlreadyIndexed int
	Total          int
}
