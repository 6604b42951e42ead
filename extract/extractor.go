package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/lattice/ai"
	"github.com/poiesic/lattice/core"
)

const (
	// DefaultMaxAttempts is the default number of model calls attempted before
	// a malformed response becomes a terminal error.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the default base delay for exponential backoff
	// between attempts.
	DefaultRetryDelay = 500 * time.Millisecond
)

// Extractor runs the structured-extraction sub-protocol: build a fixed
// instruction prompt around the document text, send it to the completion
// capability, and parse the JSON response after fence stripping and a tolerant
// repair pass.
//
// A malformed response is retried with exponential backoff up to MaxAttempts;
// the caller only ever sees a successfully parsed structure, a cancellation,
// or an explicit terminal error - never a malformed result.
type Extractor struct {
	completer   ai.Completer
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxAttempts sets the attempt cap for malformed responses.
// Values below 1 are treated as 1.
func WithMaxAttempts(n int) Option {
	return func(e *Extractor) {
		if n < 1 {
			n = 1
		}
		e.maxAttempts = n
	}
}

// WithRetryDelay sets the base delay for exponential backoff between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(e *Extractor) {
		e.retryDelay = d
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
	}
}

// New creates an Extractor backed by the given completion capability.
func New(completer ai.Completer, opts ...Option) (*Extractor, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}

	e := &Extractor{
		completer:   completer,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		logger:      slog.Default().With("component", "extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// entity is an internal type used for JSON unmarshaling.
// It matches the structure expected from the LLM.
type entity struct {
	Id          string   `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Snippets    []string `json:"snippets"`
}

// extraction is the wrapper structure for the LLM's JSON response.
type extraction struct {
	Entities []entity `json:"entities"`
}

// Extract pulls structured entities out of the document text and stamps the
// document's identity onto the result.
//
// The abort token is polled before every attempt; an abort observed at a
// checkpoint returns core.ErrAborted. A transport error from the completion
// capability is returned as-is. A response that fails to parse even after the
// repair pass is retried; once maxAttempts is exhausted the last parse error
// is returned wrapped in ErrMalformedResponse.
func (e *Extractor) Extract(ctx context.Context, abort *core.AbortToken, docID core.ID, docPath, text string) (*core.GraphExtraction, error) {
	prompt := buildPrompt(text)

	var result extraction
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if abort.Aborted() {
			return nil, core.ErrAborted
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		response, err := e.completer.Complete(ctx, prompt)
		if err != nil {
			e.logger.Error("completion call failed", "attempt", attempt, "err", err)
			return nil, err
		}

		responseText := repairJSON(stripFences(response))

		// A failed parse can leave partially decoded fields behind; each
		// attempt starts from a clean structure.
		result = extraction{}
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing extraction response",
				"attempt", attempt,
				"response", responseText,
				"err", err)

			if attempt == e.maxAttempts {
				break
			}

			// Exponential backoff: retryDelay * 2^(attempt-1)
			delay := e.retryDelay
			for i := 1; i < attempt; i++ {
				delay *= 2
			}
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse extraction response after retries",
			"attempts", e.maxAttempts, "err", lastErr)
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, lastErr)
	}

	out := &core.GraphExtraction{
		DocId:    docID,
		DocPath:  docPath,
		Entities: make([]core.GraphEntity, 0, len(result.Entities)),
	}
	for _, ent := range result.Entities {
		out.Entities = append(out.Entities, core.GraphEntity{
			Id:          ent.Id,
			Name:        ent.Name,
			Type:        normalizeEntityType(ent.Type),
			Description: ent.Description,
			Snippets:    ent.Snippets,
		})
	}

	e.logger.Debug("extracted entities", "doc", docPath, "entities", len(out.Entities))
	return out, nil
}

// normalizeEntityType coerces a model-reported type into the closed set.
// Unknown types map to "other".
func normalizeEntityType(t string) string {
	t = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(t)), " ", "_")
	if ai.ValidEntityType(t) {
		return t
	}
	return "other"
}
