package startup

import (
	"log/slog"
	"sync"
	"time"
)

// Tracer records named performance traces around startup tasks. A trace is
// started once, then either stopped (recorded as a completed measurement) or
// dropped (discarded, e.g. because the task failed).
type Tracer interface {
	// StartTrace begins the named measurement.
	StartTrace(name string)

	// StopTrace ends the named measurement and records it.
	StopTrace(name string)

	// DropTrace ends the named measurement without recording it.
	DropTrace(name string)
}

// logTracer is a Tracer that reports trace durations through structured
// logging. It stands in for a real performance-monitoring SDK, which the
// engine deliberately does not depend on.
type logTracer struct {
	mu      sync.Mutex
	started map[string]time.Time
	logger  *slog.Logger
}

var _ Tracer = (*logTracer)(nil)

// NewLogTracer returns a Tracer that logs trace lifecycle events and
// durations at debug level.
func NewLogTracer(logger *slog.Logger) Tracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &logTracer{
		started: make(map[string]time.Time),
		logger:  logger,
	}
}

func (t *logTracer) StartTrace(name string) {
	t.mu.Lock()
	t.started[name] = time.Now()
	t.mu.Unlock()
	t.logger.Debug("trace started", "trace", name)
}

func (t *logTracer) StopTrace(name string) {
	t.mu.Lock()
	begun, ok := t.started[name]
	delete(t.started, name)
	t.mu.Unlock()
	if !ok {
		t.logger.Warn("stop for unknown trace", "trace", name)
		return
	}
	t.logger.Debug("trace stopped", "trace", name, "duration_ms", time.Since(begun).Milliseconds())
}

func (t *logTracer) DropTrace(name string) {
	t.mu.Lock()
	delete(t.started, name)
	t.mu.Unlock()
	t.logger.Debug("trace dropped", "trace", name)
}

// nopTracer discards all trace calls.
type nopTracer struct{}

var _ Tracer = nopTracer{}

// NewNopTracer returns a Tracer that does nothing, for callers that have no
// performance-monitoring backend.
func NewNopTracer() Tracer { return nopTracer{} }

func (nopTracer) StartTrace(string) {}
func (nopTracer) StopTrace(string)  {}
func (nopTracer) DropTrace(string)  {}
