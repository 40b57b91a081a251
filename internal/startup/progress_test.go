package startup

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTrackerConcurrentIncrements(t *testing.T) {
	t.Parallel()

	const total = 64
	var mu sync.Mutex
	var observed []int
	p := newProgressTracker(total, func(completed, _ int) {
		mu.Lock()
		observed = append(observed, completed)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.increment()
		}()
	}
	wg.Wait()

	completed, gotTotal := p.counts()
	assert.Equal(t, total, completed, "no increment may be lost")
	assert.Equal(t, total, gotTotal)

	// Every discrete value was observed exactly once, in order.
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, observed, total)
	for i, v := range observed {
		assert.Equal(t, i+1, v)
	}
}

func TestProgressTrackerForceAbsorbsLateIncrements(t *testing.T) {
	t.Parallel()

	p := newProgressTracker(3, nil)
	p.increment()
	p.force()

	completed, total := p.counts()
	assert.Equal(t, 3, completed)
	assert.Equal(t, 3, total)

	// A best-effort task finishing after the timeout must not push the
	// counter past 100%.
	p.increment()
	completed, _ = p.counts()
	assert.Equal(t, 3, completed)
}

func TestProgressTrackerForceIsIdempotent(t *testing.T) {
	t.Parallel()

	calls := 0
	p := newProgressTracker(2, func(_, _ int) { calls++ })
	p.force()
	p.force()

	completed, _ := p.counts()
	assert.Equal(t, 2, completed)
	assert.Equal(t, 1, calls, "second force must not re-notify")
}
