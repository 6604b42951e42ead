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


package compose

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/lattice/core"
)

// SchedulerConfig holds configuration for the batch scheduler.
type SchedulerConfig struct {
	// Width is the concurrency window size K. Items run in consecutive
	// windows of at most Width; window i+1 never starts before window i has
	// fully settled.
	Width int

	// WindowDelay is the pause between windows, giving the abort check and
	// downstream services room to breathe.
	WindowDelay time.Duration

	// ReportInterval is how often to emit a progress notification, in
	// processed items. The final window always reports.
	ReportInterval int
}

// DefaultSchedulerConfig returns a SchedulerConfig with the default window
// width of 3, a 300ms inter-window delay, and progress every 5 items.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Width:          3,
		WindowDelay:    300 * time.Millisecond,
		ReportInterval: 5,
	}
}

func (c *SchedulerConfig) normalize() {
	if c.Width < 1 {
		c.Width = 1
	}
	if c.ReportInterval < 1 {
		c.ReportInterval = 1
	}
}

// Scheduler runs ordered work items under a fixed concurrency window.
//
// Items are partitioned into consecutive windows of at most Width and each
// window runs concurrently on a worker pool; the scheduler waits for every
// item in a window to settle (success or failure) before moving on. A single
// item's failure never cancels its siblings; only an abort observed between
// windows, or a scheduler-internal fault, short-circuits the remaining
// windows.
type Scheduler struct {
	config   *SchedulerConfig
	pool     *ants.Pool
	notifier Notifier
	logger   *slog.Logger
}

// NewScheduler creates a scheduler with its own worker pool of size Width.
// Callers must Release the scheduler when the run is over.
func NewScheduler(config *SchedulerConfig, notifier Notifier, logger *slog.Logger) (*Scheduler, error) {
	if config == nil {
		config = DefaultSchedulerConfig()
	}
	config.normalize()
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := ants.NewPool(config.Width)
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		config:   config,
		pool:     pool,
		notifier: notifier,
		logger:   logger.With("component", "scheduler"),
	}, nil
}

// Release releases the worker pool. The scheduler should not be used after
// calling Release.
func (s *Scheduler) Release() {
	s.pool.Release()
}

// Run processes total items through process under the configured window.
// process receives the item index; its error marks that item failed but does
// not affect siblings. Returns the accumulated success/error counts.
//
// An abort observed between windows stops the run and returns the counts
// accumulated so far with a nil error; per-item failures never produce a
// run-level error. Only a pool fault surfaces as an error.
func (s *Scheduler) Run(ctx context.Context, abort *core.AbortToken, total int, process func(ctx context.Context, i int) error) (core.RunSummary, error) {
	var succeeded, failed atomic.Int64
	lastReported := 0

	for start := 0; start < total; start += s.config.Width {
		if abort.Aborted() || ctx.Err() != nil {
			s.logger.Info("abort observed, stopping before next window", "processed", start)
			break
		}

		end := min(start+s.config.Width, total)

		var wg sync.WaitGroup
		var poolErr error
		for i := start; i < end; i++ {
			idx := i
			wg.Add(1)
			err := s.pool.Submit(func() {
				defer wg.Done()
				if err := process(ctx, idx); err != nil {
					failed.Add(1)
					s.logger.Debug("item failed", "index", idx, "err", err)
				} else {
					succeeded.Add(1)
				}
			})
			if err != nil {
				wg.Done()
				poolErr = err
				break
			}
		}
		wg.Wait()

		if poolErr != nil {
			return summaryOf(&succeeded, &failed), poolErr
		}

		processed := int(succeeded.Load() + failed.Load())
		final := end == total
		if final || processed-lastReported >= s.config.ReportInterval {
			s.notifier.Info(fmt.Sprintf("indexed %d/%d items (%d errors)",
				processed, total, failed.Load()))
			lastReported = processed
		}

		if !final && !abort.Aborted() {
			s.sleep(ctx)
		}
	}

	return summaryOf(&succeeded, &failed), nil
}

// sleep waits the inter-window delay, returning early on context cancel.
func (s *Scheduler) sleep(ctx context.Context) {
	if s.config.WindowDelay <= 0 {
		return
	}
	timer := time.NewTimer(s.config.WindowDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func summaryOf(succeeded, failed *atomic.Int64) core.RunSummary {
	return core.RunSummary{
		Success: int(succeeded.Load()),
		Error:   int(failed.Load()),
	}
}
