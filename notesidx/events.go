package notesidx

import "github.com/poiesic/lattice/core"

// Bus topics for cross-process notes indexing coordination.
const (
	// TopicJobStatus carries JobStatusEvent updates for the notes job.
	TopicJobStatus = "lattice.notes.job-status"

	// TopicEmbedRequest carries EmbedRequest messages from a coordinator
	// that has no local embedding capability.
	TopicEmbedRequest = "lattice.notes.embed-request"

	// TopicEmbedResult carries EmbedResult replies from an embed worker.
	TopicEmbedResult = "lattice.notes.embed-result"
)

// JobStatusEvent is the serialized form of a notes-job state transition.
type JobStatusEvent struct {
	JobId     string `json:"job_id"`
	Status    string `json:"status"`
	Processed int    `json:"processed,omitempty"`
	Total     int    `json:"total,omitempty"`
	Errors    int    `json:"errors,omitempty"`
	Message   string `json:"message,omitempty"`
}

// EmbedRequest asks a remote worker to embed one note's content.
type EmbedRequest struct {
	JobId   string  `json:"job_id"`
	NoteId  core.ID `json:"note_id"`
	Path    string  `json:"path"`
	Content string  `json:"content"`
}

// EmbedResult is a worker's reply to an EmbedRequest. Err is the failure
// message, empty on success.
type EmbedResult struct {
	JobId  string    `json:"job_id"`
	NoteId core.ID   `json:"note_id"`
	Vector []float32 `json:"vector,omitempty"`
	Err    string    `json:"err,omitempty"`
}
