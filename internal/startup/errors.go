package startup

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for plan construction and context misuse.
var (
	// ErrEmptyTaskID indicates a task without a stable identifier.
	ErrEmptyTaskID = errors.New("startup task has empty id")

	// ErrEmptyTraceName indicates a task without a trace name.
	ErrEmptyTraceName = errors.New("startup task has empty trace name")

	// ErrNilRunFunc indicates a task without an execution function.
	ErrNilRunFunc = errors.New("startup task has nil run function")

	// ErrDuplicateTaskID indicates the same task id appears more than once
	// in a plan, within a tier or across tiers.
	ErrDuplicateTaskID = errors.New("duplicate startup task id")

	// ErrContextDisposed indicates an override append was attempted on an
	// execution context that has already been disposed.
	ErrContextDisposed = errors.New("startup execution context already disposed")
)

// CriticalError is the aggregate failure of the critical phase. It names
// every task that never succeeded, with the error from its final attempt.
type CriticalError struct {
	// Failures maps task id to the error from that task's last attempt.
	Failures map[string]error
}

// Error lists the failed task ids in sorted order for stable messages.
func (e *CriticalError) Error() string {
	ids := e.TaskIDs()
	return fmt.Sprintf("critical startup tasks failed after all attempts: %s",
		strings.Join(ids, ", "))
}

// TaskIDs returns the ids of all tasks that never succeeded, sorted.
func (e *CriticalError) TaskIDs() []string {
	ids := make([]string, 0, len(e.Failures))
	for id := range e.Failures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Unwrap exposes the per-task errors to errors.Is and errors.As.
func (e *CriticalError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, id := range e.TaskIDs() {
		errs = append(errs, e.Failures[id])
	}
	return errs
}
