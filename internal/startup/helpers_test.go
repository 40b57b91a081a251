package startup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// testLogger returns a logger that discards output but exercises the full
// slog pipeline.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// recordingTracer counts start/stop/drop calls per trace name so tests can
// assert the exactly-once trace discipline.
type recordingTracer struct {
	mu      sync.Mutex
	started map[string]int
	stopped map[string]int
	dropped map[string]int
}

var _ Tracer = (*recordingTracer)(nil)

func newRecordingTracer() *recordingTracer {
	return &recordingTracer{
		started: make(map[string]int),
		stopped: make(map[string]int),
		dropped: make(map[string]int),
	}
}

func (t *recordingTracer) StartTrace(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started[name]++
}

func (t *recordingTracer) StopTrace(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped[name]++
}

func (t *recordingTracer) DropTrace(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dropped[name]++
}

func (t *recordingTracer) counts(name string) (started, stopped, dropped int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started[name], t.stopped[name], t.dropped[name]
}

// succeedingTask returns a task that records how many times it ran and
// contributes the given overrides.
func succeedingTask(id string, ovr Overrides, runs *atomic.Int32) Task {
	return Task{
		ID:        id,
		TraceName: id,
		Run: func(ctx context.Context, ec *Context) (Overrides, error) {
			if runs != nil {
				runs.Add(1)
			}
			return ovr, nil
		},
	}
}

// failingTask returns a task that always fails with a stable error.
func failingTask(id string, runs *atomic.Int32) Task {
	return Task{
		ID:        id,
		TraceName: id,
		Run: func(ctx context.Context, ec *Context) (Overrides, error) {
			if runs != nil {
				runs.Add(1)
			}
			return nil, errors.New(id + " boom")
		},
	}
}

// flakyTask returns a task that fails until the given attempt number, then
// succeeds with the given overrides.
func flakyTask(id string, succeedOnAttempt int, ovr Overrides, runs *atomic.Int32) Task {
	var attempts atomic.Int32
	return Task{
		ID:        id,
		TraceName: id,
		Run: func(ctx context.Context, ec *Context) (Overrides, error) {
			if runs != nil {
				runs.Add(1)
			}
			if int(attempts.Add(1)) < succeedOnAttempt {
				return nil, errors.New(id + " not yet")
			}
			return ovr, nil
		},
	}
}
