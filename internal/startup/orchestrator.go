package startup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/ignition/internal/platform/logger"
)

// runTraceName is the trace recorded around an entire startup run.
const runTraceName = "startup_run"

// ErrStartInProgress is returned by Start when a run is already in flight.
// Start may be re-invoked freely after the previous run reached ready or
// error, which is how the rendering layer's retry action is implemented.
var ErrStartInProgress = errors.New("startup run already in progress")

// Options are the tunables for a startup run. The zero value of a numeric
// field means "use the default"; Logger and Tracer default to slog.Default
// and a no-op tracer respectively.
type Options struct {
	// CriticalAttempts is the total number of attempts each critical task
	// gets, initial attempt included.
	CriticalAttempts int

	// BestEffortTimeout bounds how long the orchestrator waits for the
	// best-effort tier before transitioning to ready. It cancels only the
	// wait; tasks keep running to completion afterward.
	BestEffortTimeout time.Duration

	// SettleDelay is a short pause after progress is forced to 100%, so a
	// progress animation can reach the end before the ready transition.
	// Not correctness-relevant.
	SettleDelay time.Duration

	// RetryBackoff is the delay between critical retry waves. Zero means
	// waves follow each other immediately.
	RetryBackoff time.Duration

	// Tracer records per-task and per-run performance traces.
	Tracer Tracer

	// Logger receives structured startup logging.
	Logger *slog.Logger

	// Observer, if set, is called with a snapshot on every progress
	// increment and state transition.
	Observer Observer
}

// DefaultOptions returns the standard tunables: three critical attempts, a
// four second best-effort timeout, a 200ms settle delay, and no retry
// backoff.
func DefaultOptions() Options {
	return Options{
		CriticalAttempts:  3,
		BestEffortTimeout: 4 * time.Second,
		SettleDelay:       200 * time.Millisecond,
	}
}

// Orchestrator drives one application's startup plan through the critical,
// best-effort, and background tiers, and exposes the run state to the
// rendering layer. A single Orchestrator is reused across retries; every
// Start call begins completely fresh.
type Orchestrator struct {
	plan   Plan
	base   Overrides
	opts   Options
	tracer Tracer
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	state    State
	err      error
	ready    Overrides
	progress *progressTracker
}

// New creates an orchestrator for the given plan and caller-supplied base
// overrides. The plan is validated eagerly so misconfiguration surfaces at
// wiring time rather than mid-boot.
func New(plan Plan, base Overrides, opts Options) (*Orchestrator, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid startup plan: %w", err)
	}
	if opts.CriticalAttempts <= 0 {
		opts.CriticalAttempts = DefaultOptions().CriticalAttempts
	}
	if opts.BestEffortTimeout <= 0 {
		opts.BestEffortTimeout = DefaultOptions().BestEffortTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = NewNopTracer()
	}
	return &Orchestrator{
		plan:   plan,
		base:   base.clone(),
		opts:   opts,
		tracer: opts.Tracer,
		logger: opts.Logger.With("component", "startup_orchestrator"),
		state:  StateLoading,
	}, nil
}

// Start runs the full startup sequence and blocks until the run reaches
// ready or error, returning nil or the aggregate failure respectively.
// Calling Start again after a failed (or finished) run is the retry
// entrypoint: counters, contexts, and traces all start from scratch.
func (o *Orchestrator) Start(ctx context.Context) error {
	progress := newProgressTracker(o.plan.progressTotal(), func(completed, total int) {
		// Increments only ever arrive while a run is loading; once the
		// counter is forced to the total, late completions are absorbed
		// silently.
		o.observe(Snapshot{State: StateLoading, Completed: completed, Total: total})
	})
	if err := o.begin(progress); err != nil {
		return err
	}

	runID := uuid.New().String()
	log := o.logger.With("run_id", runID)
	log.Info("startup run beginning",
		"critical", len(o.plan.Critical),
		"best_effort", len(o.plan.BestEffort),
		"background", len(o.plan.Background))
	o.observe(Snapshot{State: StateLoading, Total: o.plan.progressTotal()})

	o.tracer.StartTrace(runTraceName)

	initial := NewContext(o.base, log)
	var enriched *Context
	handedOff := false

	readySet, err := func() (ready Overrides, err error) {
		// Any failure escaping the phase sequence, including a panic in
		// the sequencing itself, is equivalent to a critical failure.
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("startup sequencing panicked: %v", p)
			}
		}()

		critical := &criticalRunner{
			tasks:    o.plan.Critical,
			attempts: o.opts.CriticalAttempts,
			backoff:  o.opts.RetryBackoff,
			tracer:   o.tracer,
			logger:   log,
			progress: progress,
		}
		if err := critical.run(ctx, initial); err != nil {
			return nil, err
		}

		// Hand-off: the enriched context carries base plus everything the
		// critical phase contributed, and is shared by the best-effort and
		// background tiers for the rest of their lifetimes. The ready
		// state exposes this set as of the hand-off; later best-effort
		// contributions stay inside the shared context.
		enriched = initial.Extend(o.base)
		initial.Dispose()
		ready = enriched.Snapshot()

		deferred := &deferredRunner{tracer: o.tracer, logger: log, progress: progress}
		bestDone := deferred.launch(ctx, "best_effort", o.plan.BestEffort, enriched, true)
		bgDone := deferred.launch(ctx, "background", o.plan.Background, enriched, false)
		handedOff = true

		// Disposal barrier, registered before anything further is awaited:
		// the shared context outlives the ready transition and is disposed
		// only when every task of both tiers has finished.
		go func(ec *Context) {
			<-bestDone
			<-bgDone
			ec.Dispose()
		}(enriched)

		select {
		case <-bestDone:
		case <-time.After(o.opts.BestEffortTimeout):
			log.Warn("best-effort tasks still running at timeout, continuing to ready",
				"timeout", o.opts.BestEffortTimeout.String())
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		progress.force()

		if o.opts.SettleDelay > 0 {
			select {
			case <-time.After(o.opts.SettleDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return ready, nil
	}()

	o.tracer.StopTrace(runTraceName)

	if err != nil {
		// Contexts already handed off to running tasks belong to the
		// disposal barrier; the catch handler only disposes what it still
		// owns exclusively.
		if !handedOff {
			initial.Dispose()
			if enriched != nil {
				enriched.Dispose()
			}
		}
		log.Log(ctx, logger.LevelFatal, "startup run failed", "error", err)
		o.fail(err)
		return err
	}

	log.Info("startup run complete")
	o.finish(readySet)
	return nil
}

// begin marks a run as in flight and resets all per-run state.
func (o *Orchestrator) begin(progress *progressTracker) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return ErrStartInProgress
	}
	o.running = true
	o.state = StateLoading
	o.err = nil
	o.ready = nil
	o.progress = progress
	return nil
}

// fail transitions the run to the error state.
func (o *Orchestrator) fail(err error) {
	o.mu.Lock()
	o.running = false
	o.state = StateError
	o.err = err
	o.mu.Unlock()
	completed, total := o.progressCounts()
	o.observe(Snapshot{State: StateError, Completed: completed, Total: total, Err: err})
}

// finish transitions the run to the ready state, exposing the accumulated
// override set to the rendering layer.
func (o *Orchestrator) finish(ready Overrides) {
	o.mu.Lock()
	o.running = false
	o.state = StateReady
	o.ready = ready
	o.mu.Unlock()
	completed, total := o.progressCounts()
	o.observe(Snapshot{State: StateReady, Completed: completed, Total: total, Overrides: ready.clone()})
}

// Snapshot returns the current run state for the rendering layer.
func (o *Orchestrator) Snapshot() Snapshot {
	completed, total := o.progressCounts()
	o.mu.Lock()
	defer o.mu.Unlock()
	snap := Snapshot{
		State:     o.state,
		Completed: completed,
		Total:     total,
		Err:       o.err,
	}
	if o.state == StateReady {
		snap.Overrides = o.ready.clone()
	}
	return snap
}

func (o *Orchestrator) progressCounts() (completed, total int) {
	o.mu.Lock()
	progress := o.progress
	o.mu.Unlock()
	if progress == nil {
		return 0, o.plan.progressTotal()
	}
	return progress.counts()
}

func (o *Orchestrator) observe(snap Snapshot) {
	if o.opts.Observer != nil {
		o.opts.Observer(snap)
	}
}
