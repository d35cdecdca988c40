package hedge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestController_SerialMode_DrainedRejectionDoesNotBlock exercises the
// liveness bug from spec.md's Serial mode: the sole in-flight attempt
// finishes, drain() picks it up, running drops to zero, and
// tryWaitForCompletion must return (nil, nil) so the caller loads the next
// attempt instead of blocking on a completions channel nothing will ever
// fill again.
func TestController_SerialMode_DrainedRejectionDoesNotBlock(t *testing.T) {
	pool := NewAttemptPool[int, struct{}](0)
	root := NewContext[struct{}](context.Background(), false)
	defer root.Cancel()

	ctrl := newHedgingController[int, struct{}](root, 2, Serial(), RealTimeSource(), pool)

	cb := func(ctx context.Context, rc *Context[struct{}], state struct{}) Outcome[int] {
		return Failure[int](assert.AnError)
	}
	gen := func(index int, _ *Context[struct{}]) (Callback[int, struct{}], bool) {
		return cb, index < 2
	}

	first := ctrl.loadNext(gen, struct{}{})
	require.NotNil(t, first.attempt)

	completed, err := waitForCompletionWithTimeout(t, ctrl)
	require.NoError(t, err)
	require.NotNil(t, completed)
	assert.Equal(t, 0, ctrl.running)
	ctrl.lastEvaluated = completed

	next, err := waitForCompletionWithTimeout(t, ctrl)
	require.NoError(t, err)
	assert.Nil(t, next, "with nothing running and the budget not exhausted, the controller must signal load-next rather than block")
}

// TestController_MaxAttemptsExhausted_DrainedRejectionDoesNotBlock covers
// the MaxAttempts=1 variant of the same bug: once the sole allowed attempt
// is drained and rejected, tryWaitForCompletion must return promptly so
// loadNext's terminal() fallback can fire, instead of blocking forever.
func TestController_MaxAttemptsExhausted_DrainedRejectionDoesNotBlock(t *testing.T) {
	pool := NewAttemptPool[int, struct{}](0)
	root := NewContext[struct{}](context.Background(), false)
	defer root.Cancel()

	ctrl := newHedgingController[int, struct{}](root, 1, Parallel(), RealTimeSource(), pool)

	cb := func(ctx context.Context, rc *Context[struct{}], state struct{}) Outcome[int] {
		return Failure[int](assert.AnError)
	}
	gen := func(index int, _ *Context[struct{}]) (Callback[int, struct{}], bool) {
		return cb, index < 1
	}

	first := ctrl.loadNext(gen, struct{}{})
	require.NotNil(t, first.attempt)

	completed, err := waitForCompletionWithTimeout(t, ctrl)
	require.NoError(t, err)
	require.NotNil(t, completed)
	ctrl.lastEvaluated = completed

	next, err := waitForCompletionWithTimeout(t, ctrl)
	require.NoError(t, err)
	assert.Nil(t, next, "attempt budget exhausted and nothing running must not block")

	result := ctrl.loadNext(gen, struct{}{})
	require.NotNil(t, result.finished, "terminal() must fall back to lastEvaluated's outcome")
	assert.ErrorIs(t, result.finished.Err, assert.AnError)
}

// waitForCompletionWithTimeout polls tryWaitForCompletion on a short-lived
// context so a regression that reintroduces the hang fails the test instead
// of blocking the suite forever.
func waitForCompletionWithTimeout(t *testing.T, ctrl *HedgingController[int, struct{}]) (*AttemptExecution[int, struct{}], error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	type result struct {
		a   *AttemptExecution[int, struct{}]
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		a, err := ctrl.tryWaitForCompletion(ctx)
		resCh <- result{a: a, err: err}
	}()

	select {
	case r := <-resCh:
		return r.a, r.err
	case <-time.After(3 * time.Second):
		t.Fatal("tryWaitForCompletion did not return: likely blocked with nothing in flight")
		return nil, nil
	}
}
