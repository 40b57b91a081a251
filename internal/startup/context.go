package startup

import (
	"log/slog"
	"sync"
)

// Context is the execution context shared by the startup tasks of a phase.
// It is an append-only arena of configuration overrides: tasks contribute
// bindings as they complete and may read bindings that are already present.
// Overrides are never removed, only appended. All methods are safe for
// concurrent use.
//
// Exactly one Context is live per phase boundary: the orchestrator creates
// an initial context for the critical phase, extends it into an enriched
// context at hand-off, and disposes each once it is superseded or once all
// tasks using it have finished.
type Context struct {
	mu        sync.Mutex
	overrides Overrides
	disposed  bool
	logger    *slog.Logger
}

// NewContext creates an execution context seeded with the given base
// overrides. The base set is copied; the caller's map is not retained.
func NewContext(base Overrides, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		overrides: base.clone(),
		logger:    logger,
	}
}

// Value returns the override bound to key, if present. Reading from a
// disposed context returns no value.
func (c *Context) Value(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil, false
	}
	v, ok := c.overrides[key]
	return v, ok
}

// apply appends the given overrides. Keys are assumed unique per task; if a
// key is already bound the newer value wins and the collision is logged at
// debug level. Appending to a disposed context returns ErrContextDisposed
// and the overrides are dropped; callers decide how loudly to report it.
func (c *Context) apply(ovr Overrides) error {
	if len(ovr) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrContextDisposed
	}
	for k, v := range ovr {
		if _, exists := c.overrides[k]; exists {
			c.logger.Debug("override key collision, newer value wins", "key", k)
		}
		c.overrides[k] = v
	}
	return nil
}

// Snapshot returns a copy of all overrides currently accumulated.
func (c *Context) Snapshot() Overrides {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overrides.clone()
}

// Extend produces a new context holding the union of the caller-supplied
// base set and everything accumulated in this context. It is used at the
// phase boundary to carry critical-phase overrides into the context shared
// by best-effort and background tasks. The receiver is left untouched; the
// caller disposes it once the new context is in place.
func (c *Context) Extend(base Overrides) *Context {
	next := NewContext(base, c.logger)
	// next cannot be disposed yet, so the append cannot fail.
	_ = next.apply(c.Snapshot())
	return next
}

// Dispose marks the context as superseded. Subsequent reads see no values
// and subsequent appends are dropped. Dispose is idempotent.
func (c *Context) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.disposed = true
	c.overrides = nil
	c.logger.Debug("startup execution context disposed")
}
