package startup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeferredFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	tracer := newRecordingTracer()
	progress := newProgressTracker(2, nil)
	runner := &deferredRunner{tracer: tracer, logger: testLogger(), progress: progress}
	ec := NewContext(nil, testLogger())

	tasks := []Task{
		succeedingTask("ok", Overrides{"ok.out": true}, nil),
		failingTask("broken", nil),
	}
	done := runner.launch(context.Background(), "best_effort", tasks, ec, true)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("deferred tier never finished")
	}

	// The failure is invisible: the channel closes normally and only the
	// successful task contributed progress and overrides.
	completed, _ := progress.counts()
	assert.Equal(t, 1, completed)
	_, ok := ec.Value("ok.out")
	assert.True(t, ok)

	// Success stops its trace; failure drops it instead.
	_, stopped, dropped := tracer.counts("ok")
	assert.Equal(t, 1, stopped)
	assert.Equal(t, 0, dropped)
	_, stopped, dropped = tracer.counts("broken")
	assert.Equal(t, 0, stopped)
	assert.Equal(t, 1, dropped)
}

func TestDeferredBackgroundSkipsProgress(t *testing.T) {
	t.Parallel()

	progress := newProgressTracker(1, nil)
	runner := &deferredRunner{tracer: newRecordingTracer(), logger: testLogger(), progress: progress}

	done := runner.launch(
		context.Background(),
		"background",
		[]Task{succeedingTask("bg", nil, nil)},
		NewContext(nil, testLogger()),
		false,
	)
	<-done

	completed, _ := progress.counts()
	assert.Equal(t, 0, completed, "background completions never move the counter")
}

func TestDeferredPanicIsDroppedNotFatal(t *testing.T) {
	t.Parallel()

	tracer := newRecordingTracer()
	runner := &deferredRunner{
		tracer:   tracer,
		logger:   testLogger(),
		progress: newProgressTracker(1, nil),
	}

	tasks := []Task{{
		ID:        "panicky",
		TraceName: "panicky",
		Run: func(ctx context.Context, ec *Context) (Overrides, error) {
			panic("boom")
		},
	}}
	done := runner.launch(context.Background(), "best_effort", tasks, NewContext(nil, testLogger()), true)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("panicking task hung the tier")
	}

	_, stopped, dropped := tracer.counts("panicky")
	assert.Equal(t, 0, stopped)
	assert.Equal(t, 1, dropped)
}

func TestDeferredEmptyTierClosesImmediately(t *testing.T) {
	t.Parallel()

	runner := &deferredRunner{
		tracer:   newRecordingTracer(),
		logger:   testLogger(),
		progress: newProgressTracker(0, nil),
	}
	done := runner.launch(context.Background(), "background", nil, NewContext(nil, testLogger()), false)

	select {
	case <-done:
	default:
		require.Fail(t, "empty tier must complete without waiting")
	}
}
