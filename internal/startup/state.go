package startup

// State is the orchestrator's run state as seen by the rendering layer.
type State string

// The only states a run can be in. A run moves from loading to exactly one
// of ready or error; retrying an errored run starts over at loading.
const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Snapshot is a point-in-time view of a run, handed to the progress
// observer and returned by Orchestrator.Snapshot.
type Snapshot struct {
	// State is the current run state.
	State State

	// Completed and Total report startup progress for UI display: the
	// number of critical and best-effort tasks that have finished, against
	// the fixed count of both tiers. Background tasks are not counted.
	Completed int
	Total     int

	// Err is the aggregate failure when State is StateError, nil otherwise.
	Err error

	// Overrides is the configuration accumulated for the running
	// application when State is StateReady, nil otherwise.
	Overrides Overrides
}

// Observer receives a snapshot on every progress increment and every state
// transition. Calls are serialized; implementations must not call back into
// the orchestrator synchronously.
type Observer func(Snapshot)
