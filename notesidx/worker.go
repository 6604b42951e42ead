package notesidx

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/poiesic/lattice/ai"
	"github.com/poiesic/lattice/bus"
)

// Worker serves embed requests published by a coordinator running in another
// process. It embeds locally and publishes the result, success or failure,
// so the coordinator never hangs on a request it can see failed.
type Worker struct {
	bus      bus.Bus
	embedder ai.Embedder
	logger   *slog.Logger
	sub      bus.Subscription
}

// NewWorker creates an embed worker on the given bus.
func NewWorker(b bus.Bus, embedder ai.Embedder, logger *slog.Logger) (*Worker, error) {
	if b == nil {
		return nil, ErrNoEmbedCapability
	}
	if embedder == nil {
		return nil, ErrNoEmbedCapability
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		bus:      b,
		embedder: embedder,
		logger:   logger.With("component", "embed-worker"),
	}, nil
}

// Start subscribes to embed requests. Requests are served until Stop is
// called; transport-level resubscription is the bus's responsibility.
func (w *Worker) Start(ctx context.Context) error {
	sub, err := w.bus.Subscribe(ctx, TopicEmbedRequest, func(_ string, payload []byte) {
		w.serve(ctx, payload)
	})
	if err != nil {
		return err
	}
	w.sub = sub
	w.logger.Info("embed worker listening")
	return nil
}

// Stop cancels the request subscription.
func (w *Worker) Stop() error {
	if w.sub == nil {
		return nil
	}
	return w.sub.Cancel()
}

func (w *Worker) serve(ctx context.Context, payload []byte) {
	var req EmbedRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		w.logger.Warn("discarding malformed embed request", "err", err)
		return
	}

	result := EmbedResult{JobId: req.JobId, NoteId: req.NoteId}
	vector, err := w.embedder.EmbedText(ctx, req.Content)
	if err != nil {
		w.logger.Warn("embedding failed", "path", req.Path, "err", err)
		result.Err = err.Error()
	} else {
		result.Vector = vector
	}

	out, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := w.bus.Publish(ctx, TopicEmbedResult, out); err != nil {
		w.logger.Warn("publishing embed result failed", "path", req.Path, "err", err)
	}
}
