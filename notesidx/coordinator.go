// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package notesidx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/lattice/ai"
	"github.com/poiesic/lattice/bus"
	"github.com/poiesic/lattice/compose"
	"github.com/poiesic/lattice/core"
	"github.com/poiesic/lattice/storage"
)

// DefaultTimeout is the safety timeout on a notes indexing job. A job that
// runs past it is aborted so a wedged model call cannot leave the job
// active forever.
const DefaultTimeout = 5 * time.Minute

// DefaultGraceDelay is the interval at which a root change polls for an
// aborted job to wind down before the replacement run starts.
const DefaultGraceDelay = 200 * time.Millisecond

// Config holds coordinator tuning knobs.
type Config struct {
	// Timeout bounds one job end to end. Zero means DefaultTimeout.
	Timeout time.Duration

	// Scheduler configures the batch window driving note processing.
	// Nil means compose.DefaultSchedulerConfig.
	Scheduler *compose.SchedulerConfig

	// GraceDelay is the poll interval SetRoot uses while waiting for an
	// aborted job to wind down. Zero means DefaultGraceDelay.
	GraceDelay time.Duration
}

func (c *Config) normalize() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.GraceDelay <= 0 {
		c.GraceDelay = DefaultGraceDelay
	}
}

// Result is the outcome of one coordinator run.
type Result struct {
	// Skipped is true when a job was already active and no new job started.
	Skipped bool
	// Status is the terminal status the job reached.
	Status core.JobStatus
	// Summary counts notes indexed and failed.
	Summary core.RunSummary
}

// Snapshot is the observable state of the coordinator.
type Snapshot struct {
	JobId  string
	Status core.JobStatus
}

// Coordinator drives corpus-wide notes indexing as a single-flight job with
// a safety timeout and a published state machine.
//
// Embeddings are produced either locally through an injected embedder, or
// remotely by publishing embed requests on the bus and waiting for a worker's
// replies. At least one of the two capabilities is required.
type Coordinator struct {
	store    storage.Store
	embedder ai.Embedder // nil in remote mode
	bus      bus.Bus     // nil in local-only mode
	config   Config
	logger   *slog.Logger

	mu     sync.Mutex
	status core.JobStatus
	jobID  string
	abort  *core.AbortToken
	root   string

	pendingMu sync.Mutex
	pending   map[core.ID]chan EmbedResult
	resultSub bus.Subscription
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithEmbedder provides a local embedding capability.
func WithEmbedder(e ai.Embedder) CoordinatorOption {
	return func(c *Coordinator) {
		c.embedder = e
	}
}

// WithBus attaches a bus for status events and, when no local embedder is
// set, remote embedding.
func WithBus(b bus.Bus) CoordinatorOption {
	return func(c *Coordinator) {
		c.bus = b
	}
}

// WithConfig sets the coordinator configuration.
func WithConfig(cfg Config) CoordinatorOption {
	return func(c *Coordinator) {
		c.config = cfg
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCoordinator creates a coordinator over the given store.
func NewCoordinator(store storage.Store, opts ...CoordinatorOption) (*Coordinator, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	c := &Coordinator{
		store:   store,
		status:  core.JobIdle,
		logger:  slog.Default().With("component", "notes-coordinator"),
		pending: make(map[core.ID]chan EmbedResult),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.config.normalize()

	if c.embedder == nil && c.bus == nil {
		return nil, ErrNoEmbedCapability
	}

	if c.embedder == nil {
		sub, err := c.bus.Subscribe(context.Background(), TopicEmbedResult, c.onEmbedResult)
		if err != nil {
			return nil, fmt.Errorf("subscribing for embed results: %w", err)
		}
		c.resultSub = sub
	}
	return c, nil
}

// Close cancels the coordinator's bus subscriptions.
func (c *Coordinator) Close() error {
	if c.resultSub != nil {
		return c.resultSub.Cancel()
	}
	return nil
}

// Run executes one notes indexing job.
//
// If a job is already active the call is a no-op returning Skipped. The job
// discovers notes needing indexing in one store call, then drives them
// through the batch scheduler: fetch content, embed, mark indexed. A job
// exceeding the safety timeout is aborted, not killed; in-flight items settle
// and the job ends aborted. Whatever the outcome, the coordinator returns to
// idle with a cleared abort token so the next trigger can run.
func (c *Coordinator) Run(ctx context.Context) (Result, error) {
	jobID, abort, ok := c.begin()
	if !ok {
		c.logger.Info("notes job already active, skipping")
		return Result{Skipped: true, Status: c.Status().Status}, nil
	}

	c.publishStatus(JobStatusEvent{JobId: jobID, Status: core.JobStarted.String()})
	c.logger.Info("notes job started", "job", jobID)

	runCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()
	go func() {
		<-runCtx.Done()
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			c.logger.Warn("notes job hit safety timeout, aborting", "job", jobID)
			abort.Set()
		}
	}()

	status, err := c.store.NotesNeedingIndexing(runCtx)
	if err != nil {
		return c.finish(jobID, core.JobError, core.RunSummary{}, err)
	}
	c.logger.Info("notes discovered",
		"total", status.Total, "indexed", status.AlreadyIndexed,
		"pending", len(status.NeedsIndexing))

	if len(status.NeedsIndexing) == 0 {
		return c.finish(jobID, core.JobCompleted, core.RunSummary{}, nil)
	}

	scheduler, err := compose.NewScheduler(c.config.Scheduler, &progressSink{c: c, jobID: jobID}, c.logger)
	if err != nil {
		return c.finish(jobID, core.JobError, core.RunSummary{}, err)
	}
	defer scheduler.Release()

	refs := status.NeedsIndexing
	summary, err := scheduler.Run(runCtx, abort, len(refs), func(ctx context.Context, i int) error {
		return c.processNote(ctx, jobID, refs[i])
	})
	if err != nil {
		return c.finish(jobID, core.JobError, summary, err)
	}
	// The deadline check covers the race where the timeout fires after the
	// final window settled but before the watchdog set the token.
	if abort.Aborted() || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return c.finish(jobID, core.JobAborted, summary, nil)
	}
	return c.finish(jobID, core.JobCompleted, summary, nil)
}

// processNote indexes one note: fetch, embed, mark.
func (c *Coordinator) processNote(ctx context.Context, jobID string, ref core.NoteRef) error {
	content, err := c.store.GetContent(ctx, ref.Path)
	if err != nil {
		c.logger.Warn("note content unavailable", "path", ref.Path, "err", err)
		return err
	}
	if content == "" {
		return core.ErrEmptyContent
	}

	var vector []float32
	if c.embedder != nil {
		vector, err = c.embedder.EmbedText(ctx, content)
	} else {
		vector, err = c.embedRemote(ctx, jobID, ref, content)
	}
	if err != nil {
		c.logger.Warn("note embedding failed", "path", ref.Path, "err", err)
		return err
	}

	// Stored note embeddings are unit length, like every other vector the
	// store holds, whether the embed ran locally or on a worker.
	return c.store.MarkIndexed(ctx, ref.Id, core.NormalizeVector(vector))
}

// embedRemote publishes an embed request and waits for the worker's reply.
func (c *Coordinator) embedRemote(ctx context.Context, jobID string, ref core.NoteRef, content string) ([]float32, error) {
	ch := make(chan EmbedResult, 1)
	c.pendingMu.Lock()
	c.pending[ref.Id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, ref.Id)
		c.pendingMu.Unlock()
	}()

	payload, err := json.Marshal(EmbedRequest{
		JobId:   jobID,
		NoteId:  ref.Id,
		Path:    ref.Path,
		Content: content,
	})
	if err != nil {
		return nil, err
	}
	if err := c.bus.Publish(ctx, TopicEmbedRequest, payload); err != nil {
		return nil, fmt.Errorf("publishing embed request: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != "" {
			return nil, fmt.Errorf("%w: %s", ErrRemoteEmbed, res.Err)
		}
		if len(res.Vector) == 0 {
			return nil, fmt.Errorf("%w: empty vector", ErrRemoteEmbed)
		}
		return res.Vector, nil
	}
}

// onEmbedResult routes a worker reply to the waiting request, if any.
func (c *Coordinator) onEmbedResult(_ string, payload []byte) {
	var res EmbedResult
	if err := json.Unmarshal(payload, &res); err != nil {
		c.logger.Warn("discarding malformed embed result", "err", err)
		return
	}
	c.pendingMu.Lock()
	ch, ok := c.pending[res.NoteId]
	c.pendingMu.Unlock()
	if ok {
		select {
		case ch <- res:
		default:
		}
	}
}

// begin claims the single job slot. Returns ok=false when a job is active.
func (c *Coordinator) begin() (string, *core.AbortToken, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == core.JobStarted || c.status == core.JobProgress {
		return "", nil, false
	}
	c.status = core.JobStarted
	c.jobID = uuid.NewString()
	c.abort = core.NewAbortToken()
	return c.jobID, c.abort, true
}

// finish publishes the terminal status and resets the coordinator to idle.
func (c *Coordinator) finish(jobID string, terminal core.JobStatus, summary core.RunSummary, err error) (Result, error) {
	event := JobStatusEvent{
		JobId:     jobID,
		Status:    terminal.String(),
		Processed: summary.Success + summary.Error,
		Errors:    summary.Error,
	}
	if err != nil {
		event.Message = err.Error()
	}
	c.publishStatus(event)
	c.logger.Info("notes job finished",
		"job", jobID, "status", terminal.String(),
		"indexed", summary.Success, "errors", summary.Error)

	c.mu.Lock()
	c.abort.Clear()
	c.abort = nil
	c.jobID = ""
	c.status = core.JobIdle
	c.mu.Unlock()

	return Result{Status: terminal, Summary: summary}, err
}

// markProgress records the first progress transition and forwards the update.
func (c *Coordinator) markProgress(jobID, msg string) {
	c.mu.Lock()
	if c.jobID == jobID && c.status == core.JobStarted {
		c.status = core.JobProgress
	}
	c.mu.Unlock()
	c.publishStatus(JobStatusEvent{
		JobId:   jobID,
		Status:  core.JobProgress.String(),
		Message: msg,
	})
}

// publishStatus emits a job status event on the bus when one is attached.
func (c *Coordinator) publishStatus(event JobStatusEvent) {
	if c.bus == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := c.bus.Publish(context.Background(), TopicJobStatus, payload); err != nil {
		c.logger.Warn("publishing job status failed", "err", err)
	}
}

// Status returns a snapshot of the coordinator's state.
func (c *Coordinator) Status() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{JobId: c.jobID, Status: c.status}
}

// Abort requests cancellation of the active job. Returns false when idle.
func (c *Coordinator) Abort() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.abort == nil {
		return false
	}
	c.abort.Set()
	return true
}

// SetRoot switches the corpus root. An active job is aborted first and the
// call waits for it to release the job slot; a fresh job then runs against
// the new root. A no-op when the root is unchanged.
func (c *Coordinator) SetRoot(ctx context.Context, root string) (Result, error) {
	c.mu.Lock()
	if c.root == root {
		c.mu.Unlock()
		return Result{Skipped: true, Status: c.status}, nil
	}
	c.root = root
	active := c.abort != nil
	if active {
		c.abort.Set()
	}
	c.mu.Unlock()

	if active {
		c.logger.Info("root changed, aborted active job", "root", root)
		if err := c.waitIdle(ctx); err != nil {
			return Result{}, err
		}
	}
	return c.Run(ctx)
}

// waitIdle blocks until the job slot is free. Cancellation is cooperative,
// so the aborted job's in-flight items settle on their own schedule and the
// slot is polled rather than joined.
func (c *Coordinator) waitIdle(ctx context.Context) error {
	for {
		c.mu.Lock()
		idle := c.status == core.JobIdle
		c.mu.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.config.GraceDelay):
		}
	}
}

// progressSink adapts coordinator state transitions to the scheduler's
// notification interface.
type progressSink struct {
	c     *Coordinator
	jobID string
}

func (s *progressSink) Info(msg string)    { s.c.markProgress(s.jobID, msg) }
func (s *progressSink) Success(msg string) { s.c.markProgress(s.jobID, msg) }
func (s *progressSink) Error(msg string)   { s.c.logger.Warn(msg) }
