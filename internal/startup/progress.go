package startup

import "sync"

// progressTracker counts completed critical and best-effort tasks for UI
// progress reporting. Increments arrive from concurrently completing tasks;
// the mutex serializes them so no increment is lost and the notify callback
// observes each discrete value exactly once.
type progressTracker struct {
	mu        sync.Mutex
	completed int
	total     int

	// notify, when set, is invoked under the tracker lock with each new
	// counter value. It must not re-enter the tracker.
	notify func(completed, total int)
}

func newProgressTracker(total int, notify func(completed, total int)) *progressTracker {
	return &progressTracker{total: total, notify: notify}
}

// increment records one task completion. Once the counter has been forced
// to the total, late completions (best-effort tasks finishing after the
// timeout) are absorbed without pushing it past 100%.
func (p *progressTracker) increment() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.completed >= p.total {
		return
	}
	p.completed++
	if p.notify != nil {
		p.notify(p.completed, p.total)
	}
}

// force jumps the counter to the total, so a progress bar never stalls short
// of 100% when the orchestrator transitions before every best-effort task
// has finished.
func (p *progressTracker) force() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.completed == p.total {
		return
	}
	p.completed = p.total
	if p.notify != nil {
		p.notify(p.completed, p.total)
	}
}

// counts returns the current completed and total values.
func (p *progressTracker) counts() (completed, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed, p.total
}
