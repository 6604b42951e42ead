package compose

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/lattice/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, config *SchedulerConfig) *Scheduler {
	if config == nil {
		config = &SchedulerConfig{Width: 3, WindowDelay: time.Millisecond, ReportInterval: 100}
	}
	s, err := NewScheduler(config, nil, nil)
	require.NoError(t, err)
	t.Cleanup(s.Release)
	return s
}

func TestSchedulerProcessesAllItems(t *testing.T) {
	s := newTestScheduler(t, nil)

	var processed atomic.Int64
	summary, err := s.Run(context.Background(), nil, 7, func(ctx context.Context, i int) error {
		processed.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), processed.Load())
	assert.Equal(t, core.RunSummary{Success: 7}, summary)
}

func TestSchedulerWindowsAreSequential(t *testing.T) {
	s := newTestScheduler(t, &SchedulerConfig{Width: 3, WindowDelay: time.Millisecond, ReportInterval: 100})

	var mu sync.Mutex
	var inFlight, maxInFlight int

	summary, err := s.Run(context.Background(), nil, 7, func(ctx context.Context, i int) error {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, summary.Success)
	assert.LessOrEqual(t, maxInFlight, 3)
}

func TestSchedulerItemOrderRespectsWindows(t *testing.T) {
	s := newTestScheduler(t, &SchedulerConfig{Width: 3, WindowDelay: time.Millisecond, ReportInterval: 100})

	var mu sync.Mutex
	var order []int
	_, err := s.Run(context.Background(), nil, 7, func(ctx context.Context, i int) error {
		mu.Lock()
		order = append(order, i)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	require.Len(t, order, 7)

	// Within-window order is nondeterministic, but an item from window n+1
	// never runs before every item of window n has settled.
	windowOf := func(i int) int { return i / 3 }
	for pos := 1; pos < len(order); pos++ {
		assert.GreaterOrEqual(t, windowOf(order[pos]), windowOf(order[pos-1]),
			"item %d ran after item %d", order[pos], order[pos-1])
	}
}

func TestSchedulerFailureDoesNotStopSiblings(t *testing.T) {
	s := newTestScheduler(t, nil)

	itemErr := errors.New("item failed")
	summary, err := s.Run(context.Background(), nil, 6, func(ctx context.Context, i int) error {
		if i%2 == 0 {
			return itemErr
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, core.RunSummary{Success: 3, Error: 3}, summary)
}

func TestSchedulerAbortBetweenWindows(t *testing.T) {
	s := newTestScheduler(t, &SchedulerConfig{Width: 2, WindowDelay: time.Millisecond, ReportInterval: 100})

	abort := core.NewAbortToken()
	var processed atomic.Int64
	summary, err := s.Run(context.Background(), abort, 10, func(ctx context.Context, i int) error {
		processed.Add(1)
		if processed.Load() >= 2 {
			abort.Set()
		}
		return nil
	})
	require.NoError(t, err)

	// The first window completes; no further window starts.
	assert.Equal(t, int64(2), processed.Load())
	assert.Equal(t, 2, summary.Success)
}

func TestSchedulerContextCancelStopsRun(t *testing.T) {
	s := newTestScheduler(t, &SchedulerConfig{Width: 2, WindowDelay: time.Millisecond, ReportInterval: 100})

	ctx, cancel := context.WithCancel(context.Background())
	var processed atomic.Int64
	summary, err := s.Run(ctx, nil, 10, func(ctx context.Context, i int) error {
		processed.Add(1)
		cancel()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), processed.Load())
	assert.Equal(t, 2, summary.Success)
}

func TestSchedulerZeroItems(t *testing.T) {
	s := newTestScheduler(t, nil)

	summary, err := s.Run(context.Background(), nil, 0, func(ctx context.Context, i int) error {
		t.Fatal("process should not be called")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, core.RunSummary{}, summary)
}

func TestSchedulerProgressNotifications(t *testing.T) {
	notifier := &recordingNotifier{}
	config := &SchedulerConfig{Width: 2, WindowDelay: time.Millisecond, ReportInterval: 2}
	s, err := NewScheduler(config, notifier, nil)
	require.NoError(t, err)
	t.Cleanup(s.Release)

	_, err = s.Run(context.Background(), nil, 5, func(ctx context.Context, i int) error {
		return nil
	})
	require.NoError(t, err)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.NotEmpty(t, notifier.infos)
	assert.Contains(t, notifier.infos[len(notifier.infos)-1], "5/5")
}

func TestSchedulerConfigNormalize(t *testing.T) {
	config := &SchedulerConfig{Width: 0, ReportInterval: -1}
	config.normalize()
	assert.Equal(t, 1, config.Width)
	assert.Equal(t, 1, config.ReportInterval)
}
