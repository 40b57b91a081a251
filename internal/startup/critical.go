package startup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// runTask invokes one task body, converting a panic into an ordinary error
// so a misbehaving task is indistinguishable from a failing one.
func runTask(ctx context.Context, t Task, ec *Context) (ovr Overrides, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task %q panicked: %v", t.ID, p)
		}
	}()
	return t.Run(ctx, ec)
}

// criticalRunner executes the critical tier: all tasks in parallel waves,
// retrying only the failed subset until the attempt bound is exhausted.
type criticalRunner struct {
	tasks    []Task
	attempts int
	backoff  time.Duration
	tracer   Tracer
	logger   *slog.Logger
	progress *progressTracker
}

// waveResult carries one task's outcome back across the fan-in barrier.
type waveResult struct {
	task      Task
	overrides Overrides
	err       error
}

// run executes the phase against ec. Overrides from succeeding tasks are
// appended to ec as they arrive. On success it returns nil; on exhaustion it
// returns a *CriticalError naming every task that never succeeded.
//
// Trace discipline: every task's trace is started before the first wave and
// stopped exactly once, either on that task's first success or, for tasks
// that never succeed, by the deferred sweep before run returns. The sweep
// also covers a panic escaping the retry loop, so no trace is ever left
// running past phase completion.
func (r *criticalRunner) run(ctx context.Context, ec *Context) error {
	if len(r.tasks) == 0 {
		return nil
	}

	stopped := make(map[string]bool, len(r.tasks))
	for _, t := range r.tasks {
		r.tracer.StartTrace(t.TraceName)
	}
	defer func() {
		for _, t := range r.tasks {
			if !stopped[t.ID] {
				r.tracer.StopTrace(t.TraceName)
			}
		}
	}()

	pending := r.tasks
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if attempt > 1 && r.backoff > 0 {
			select {
			case <-time.After(r.backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		results := make(chan waveResult, len(pending))
		for _, t := range pending {
			go func(t Task) {
				ovr, err := runTask(ctx, t, ec)
				results <- waveResult{task: t, overrides: ovr, err: err}
			}(t)
		}

		var failed []Task
		failures := make(map[string]error)
		for range pending {
			res := <-results
			if res.err != nil {
				failed = append(failed, res.task)
				failures[res.task.ID] = res.err
				r.logger.Warn("critical startup task failed",
					"task_id", res.task.ID,
					"attempt", attempt,
					"max_attempts", r.attempts,
					"error", res.err)
				continue
			}
			if err := ec.apply(res.overrides); err != nil {
				r.logger.Warn("discarding overrides from critical startup task",
					"task_id", res.task.ID,
					"error", err)
			}
			r.tracer.StopTrace(res.task.TraceName)
			stopped[res.task.ID] = true
			r.progress.increment()
			r.logger.Debug("critical startup task succeeded",
				"task_id", res.task.ID,
				"attempt", attempt)
		}

		if len(failed) == 0 {
			return nil
		}
		if attempt == r.attempts {
			return &CriticalError{Failures: failures}
		}

		// Only the failed subset enters the next wave; tasks that already
		// succeeded are never re-run.
		pending = failed
	}
	return nil
}
