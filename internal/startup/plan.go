package startup

import "fmt"

// Plan is the fixed set of startup tasks for one application, partitioned
// into the three execution tiers. A Plan is constructed once at wiring time
// and passed to the orchestrator explicitly; it is never mutated during a
// run.
type Plan struct {
	// Critical tasks must all succeed (after bounded retries) before the
	// application can transition to ready. They have no timeout.
	Critical []Task

	// BestEffort tasks run in parallel under one shared timeout. Failures
	// are logged and swallowed; tasks that outlive the timeout keep running
	// in the background.
	BestEffort []Task

	// Background tasks run in parallel with no timeout and never block the
	// ready transition.
	Background []Task
}

// Validate checks that every task carries an id, a trace name, and a run
// function, and that no id appears twice anywhere in the plan.
func (p Plan) Validate() error {
	seen := make(map[string]struct{})
	for _, tier := range [][]Task{p.Critical, p.BestEffort, p.Background} {
		for _, t := range tier {
			if t.ID == "" {
				return ErrEmptyTaskID
			}
			if t.TraceName == "" {
				return fmt.Errorf("task %q: %w", t.ID, ErrEmptyTraceName)
			}
			if t.Run == nil {
				return fmt.Errorf("task %q: %w", t.ID, ErrNilRunFunc)
			}
			if _, dup := seen[t.ID]; dup {
				return fmt.Errorf("task %q: %w", t.ID, ErrDuplicateTaskID)
			}
			seen[t.ID] = struct{}{}
		}
	}
	return nil
}

// progressTotal is the number of tasks counted by the progress reporter.
// Background tasks are excluded.
func (p Plan) progressTotal() int {
	return len(p.Critical) + len(p.BestEffort)
}
