package startup

import "context"

// Overrides is a set of configuration bindings contributed by startup tasks.
// Each binding names a capability (a database pool, a signing service, a
// client handle) that the running application consumes once startup
// completes.
type Overrides map[string]any

// clone returns a shallow copy, so callers can hand out snapshots without
// exposing internal state to mutation.
func (o Overrides) clone() Overrides {
	out := make(Overrides, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// RunFunc is the body of a startup task. It receives read access to the
// execution context of its phase and returns the overrides it wants to
// contribute, or an error. A nil Overrides return is valid for tasks that
// only have side effects.
type RunFunc func(ctx context.Context, ec *Context) (Overrides, error)

// Task describes one unit of startup work. A Task is immutable once
// constructed; all mutable state (attempt counts, trace lifecycle, progress)
// lives in the runners.
type Task struct {
	// ID is a stable identifier, unique across all tiers of a plan. It is
	// used for logging and for retrying only the failed subset of a wave.
	ID string

	// TraceName identifies the performance trace recorded for this task.
	TraceName string

	// Run executes the task.
	Run RunFunc
}
