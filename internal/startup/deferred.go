package startup

import (
	"context"
	"log/slog"
	"sync"

	"github.com/phrazzld/ignition/internal/platform/logger"
)

// deferredRunner executes the best-effort and background tiers. Both share
// the same per-task discipline: each task runs in its own goroutine with its
// own trace, failures are logged and swallowed, and a failing task's trace
// is dropped rather than stopped so it is not recorded as a completed
// measurement. The tiers differ only in progress accounting and in how the
// orchestrator waits on them.
type deferredRunner struct {
	tracer   Tracer
	logger   *slog.Logger
	progress *progressTracker
}

// launch fires every task immediately and returns a channel that closes when
// all of them have finished, however long that takes. There is no
// cancellation: a deadline elsewhere may stop the orchestrator waiting on
// the returned channel, but never stops the tasks themselves.
func (r *deferredRunner) launch(ctx context.Context, tier string, tasks []Task, ec *Context, countsProgress bool) <-chan struct{} {
	done := make(chan struct{})
	if len(tasks) == 0 {
		close(done)
		return done
	}

	var wg sync.WaitGroup
	for _, t := range tasks {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			r.tracer.StartTrace(t.TraceName)
			ovr, err := runTask(ctx, t, ec)
			if err != nil {
				r.tracer.DropTrace(t.TraceName)
				// Fatal severity for visibility, but the failure never
				// reaches the run outcome: the app stays usable without
				// whatever this task would have initialized.
				r.logger.Log(ctx, logger.LevelFatal, "startup task failed",
					"tier", tier,
					"task_id", t.ID,
					"error", err)
				return
			}
			if err := ec.apply(ovr); err != nil {
				r.logger.Warn("discarding overrides from startup task",
					"tier", tier,
					"task_id", t.ID,
					"error", err)
			}
			r.tracer.StopTrace(t.TraceName)
			if countsProgress {
				r.progress.increment()
			}
			r.logger.Debug("startup task succeeded", "tier", tier, "task_id", t.ID)
		}(t)
	}

	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}
