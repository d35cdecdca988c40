package hedge

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execResult struct {
	outcome Outcome[int]
	err     error
}

func runExecuteAsync(ctx context.Context, cb Callback[int, struct{}], cfg Config[int, struct{}], ts TimeSource) <-chan execResult {
	resCh := make(chan execResult, 1)
	go func() {
		o, err := Execute[int, struct{}](ctx, struct{}{}, cb, cfg, ts, nil)
		resCh <- execResult{outcome: o, err: err}
	}()
	return resCh
}

func awaitResult(t *testing.T, ch <-chan execResult) execResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("Execute did not return in time")
		return execResult{}
	}
}

// tableGenerator builds an ActionGenerator over a fixed list of callbacks,
// declining once the table is exhausted, and counts how many times it was
// asked for a callback.
func tableGenerator(cbs []Callback[int, struct{}]) (ActionGenerator[int, struct{}], *atomic.Int32) {
	var calls atomic.Int32
	gen := func(index int, _ *Context[struct{}]) (Callback[int, struct{}], bool) {
		calls.Add(1)
		if index >= len(cbs) {
			return nil, false
		}
		return cbs[index], true
	}
	return gen, &calls
}

// S1: the primary succeeds well within the hedging delay; no secondary is
// ever launched.
func TestExecute_S1_PrimarySucceedsBeforeDelay(t *testing.T) {
	vc := NewVirtualClock(time.Unix(0, 0))
	primary := func(ctx context.Context, rc *Context[struct{}], state struct{}) Outcome[int] {
		return Success(1)
	}
	var secondaryLaunched atomic.Bool
	secondary := func(ctx context.Context, rc *Context[struct{}], state struct{}) Outcome[int] {
		secondaryLaunched.Store(true)
		return Success(2)
	}
	gen, calls := tableGenerator([]Callback[int, struct{}]{primary, secondary, secondary})

	cfg := Config[int, struct{}]{
		MaxAttempts:     3,
		Mode:            AfterDelay(50 * time.Millisecond),
		ActionGenerator: gen,
	}
	resCh := runExecuteAsync(context.Background(), primary, cfg, vc)
	res := awaitResult(t, resCh)

	require.NoError(t, res.err)
	assert.Equal(t, 1, res.outcome.Value)
	assert.False(t, secondaryLaunched.Load())
	assert.Equal(t, int32(1), calls.Load())
}

// S2: the primary never completes on its own; the hedging delay elapses
// (driven by an explicit virtual-clock advance) and a secondary wins.
func TestExecute_S2_SecondaryWinsAfterDelay(t *testing.T) {
	vc := NewVirtualClock(time.Unix(0, 0))
	primary := func(ctx context.Context, rc *Context[struct{}], state struct{}) Outcome[int] {
		<-ctx.Done()
		return Failure[int](ctx.Err())
	}
	secondary := func(ctx context.Context, rc *Context[struct{}], state struct{}) Outcome[int] {
		return Success(99)
	}
	gen, calls := tableGenerator([]Callback[int, struct{}]{primary, secondary})

	cfg := Config[int, struct{}]{
		MaxAttempts:     3,
		Mode:            AfterDelay(50 * time.Millisecond),
		ActionGenerator: gen,
	}
	resCh := runExecuteAsync(context.Background(), primary, cfg, vc)

	waitForWaiters(t, vc, 1)
	vc.Advance(50 * time.Millisecond)

	res := awaitResult(t, resCh)
	require.NoError(t, res.err)
	assert.Equal(t, 99, res.outcome.Value)
	assert.Equal(t, int32(2), calls.Load())
}

// S3: zero-delay parallel fan-out launches every attempt up to the budget
// without waiting on any of them.
func TestExecute_S3_ParallelFanOut(t *testing.T) {
	block := make(chan struct{})
	var launched atomic.Int32

	makeBlocking := func(v int) Callback[int, struct{}] {
		return func(ctx context.Context, rc *Context[struct{}], state struct{}) Outcome[int] {
			launched.Add(1)
			select {
			case <-block:
				return Success(v)
			case <-ctx.Done():
				return Failure[int](ctx.Err())
			}
		}
	}
	winner := func(ctx context.Context, rc *Context[struct{}], state struct{}) Outcome[int] {
		launched.Add(1)
		return Success(4)
	}
	gen, calls := tableGenerator([]Callback[int, struct{}]{makeBlocking(1), makeBlocking(2), makeBlocking(3), winner})

	cfg := Config[int, struct{}]{
		MaxAttempts:     4,
		Mode:            Parallel(),
		ActionGenerator: gen,
		Validator: func(o Outcome[int]) ShouldAccept {
			if o.IsSuccess() && o.Value == 4 {
				return Accept
			}
			return Reject
		},
	}
	resCh := runExecuteAsync(context.Background(), makeBlocking(1), cfg, RealTimeSource())
	res := awaitResult(t, resCh)

	require.NoError(t, res.err)
	assert.Equal(t, 4, res.outcome.Value)
	assert.Equal(t, int32(4), calls.Load(), "all four attempts should have been launched")
	assert.Equal(t, int32(4), launched.Load())
	close(block)
}

// S4: several attempts are rejected by the validator in sequence before a
// later one is accepted.
func TestExecute_S4_RejectedChainThenAccept(t *testing.T) {
	values := []int{1, 3, 4}
	cbs := make([]Callback[int, struct{}], len(values))
	for i, v := range values {
		v := v
		cbs[i] = func(ctx context.Context, rc *Context[struct{}], state struct{}) Outcome[int] {
			return Success(v)
		}
	}
	gen, calls := tableGenerator(cbs)

	cfg := Config[int, struct{}]{
		MaxAttempts:     3,
		Mode:            AfterDelay(15 * time.Millisecond),
		ActionGenerator: gen,
		Validator: func(o Outcome[int]) ShouldAccept {
			if o.IsSuccess() && o.Value%2 == 0 {
				return Accept
			}
			return Reject
		},
	}
	resCh := runExecuteAsync(context.Background(), cbs[0], cfg, RealTimeSource())
	res := awaitResult(t, resCh)

	require.NoError(t, res.err)
	assert.Equal(t, 4, res.outcome.Value)
	assert.Equal(t, int32(3), calls.Load())
}

// S5: the action-generator is exhausted before any outcome is accepted;
// Execute falls back to the last attempt's outcome instead of erroring.
func TestExecute_S5_GeneratorExhaustionReturnsLastOutcome(t *testing.T) {
	errA := errors.New("attempt zero failed")
	errB := errors.New("attempt one failed")
	primary := func(ctx context.Context, rc *Context[struct{}], state struct{}) Outcome[int] {
		return Failure[int](errA)
	}
	secondary := func(ctx context.Context, rc *Context[struct{}], state struct{}) Outcome[int] {
		return Failure[int](errB)
	}
	gen, calls := tableGenerator([]Callback[int, struct{}]{primary, secondary})

	cfg := Config[int, struct{}]{
		MaxAttempts:     5,
		Mode:            AfterDelay(10 * time.Millisecond),
		ActionGenerator: gen,
	}
	resCh := runExecuteAsync(context.Background(), primary, cfg, RealTimeSource())
	res := awaitResult(t, resCh)

	require.NoError(t, res.err, "generator exhaustion must not surface as an error")
	assert.ErrorIs(t, res.outcome.Err, errB, "must return the later of the two failures")
	assert.Equal(t, int32(3), calls.Load(), "generator asked once more after attempt 1, and declined")
}

// S6: cancelling the parent context surfaces as an error and tears down
// every launched attempt.
func TestExecute_S6_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary := func(ctx context.Context, rc *Context[struct{}], state struct{}) Outcome[int] {
		<-ctx.Done()
		return Failure[int](ctx.Err())
	}
	gen, calls := tableGenerator([]Callback[int, struct{}]{primary, primary, primary})

	cfg := Config[int, struct{}]{
		MaxAttempts:     3,
		Mode:            AfterDelay(50 * time.Millisecond),
		ActionGenerator: gen,
	}
	resCh := runExecuteAsync(ctx, primary, cfg, RealTimeSource())
	cancel()

	res := awaitResult(t, resCh)
	assert.ErrorIs(t, res.err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load(), "cancellation should preempt any hedge from launching")
}

func TestExecute_MaxAttemptsOne_NeverHedges(t *testing.T) {
	primary := func(ctx context.Context, rc *Context[struct{}], state struct{}) Outcome[int] {
		return Success(1)
	}
	gen, calls := tableGenerator([]Callback[int, struct{}]{primary})

	cfg := Config[int, struct{}]{
		MaxAttempts:     1,
		Mode:            Parallel(),
		ActionGenerator: gen,
	}
	res := awaitResult(t, runExecuteAsync(context.Background(), primary, cfg, RealTimeSource()))
	require.NoError(t, res.err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestExecute_DefaultActionGenerator_NeverHedges(t *testing.T) {
	var calls atomic.Int32
	primary := func(ctx context.Context, rc *Context[struct{}], state struct{}) Outcome[int] {
		calls.Add(1)
		return Success(1)
	}
	cfg := Config[int, struct{}]{MaxAttempts: 3, Mode: AfterDelay(time.Millisecond)}
	res := awaitResult(t, runExecuteAsync(context.Background(), primary, cfg, RealTimeSource()))

	require.NoError(t, res.err)
	assert.Equal(t, 1, res.outcome.Value)
	assert.Equal(t, int32(1), calls.Load())
}

func TestExecute_InvalidConfig(t *testing.T) {
	primary := func(ctx context.Context, rc *Context[struct{}], state struct{}) Outcome[int] {
		return Success(1)
	}
	_, err := Execute[int, struct{}](context.Background(), struct{}{}, primary, Config[int, struct{}]{MaxAttempts: 0}, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestExecute_PrimaryDeclinedIsAnError(t *testing.T) {
	primary := func(ctx context.Context, rc *Context[struct{}], state struct{}) Outcome[int] {
		return Success(1)
	}
	cfg := Config[int, struct{}]{
		MaxAttempts: 1,
		Mode:        Parallel(),
		ActionGenerator: func(index int, _ *Context[struct{}]) (Callback[int, struct{}], bool) {
			return nil, false
		},
	}
	_, err := Execute[int, struct{}](context.Background(), struct{}{}, primary, cfg, RealTimeSource(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrimaryDeclined)
}

// TestExecute_SerialMode_FirstRejectedThenAccepted guards against a
// liveness bug where a drained-and-rejected attempt in Serial mode leaves
// the controller with nothing running and nothing queued, and the next
// tryWaitForCompletion call blocks forever instead of loading the next
// attempt.
func TestExecute_SerialMode_FirstRejectedThenAccepted(t *testing.T) {
	values := []int{1, 2}
	cbs := make([]Callback[int, struct{}], len(values))
	for i, v := range values {
		v := v
		cbs[i] = func(ctx context.Context, rc *Context[struct{}], state struct{}) Outcome[int] {
			return Success(v)
		}
	}
	gen, calls := tableGenerator(cbs)

	cfg := Config[int, struct{}]{
		MaxAttempts:     2,
		Mode:            Serial(),
		ActionGenerator: gen,
		Validator: func(o Outcome[int]) ShouldAccept {
			if o.IsSuccess() && o.Value%2 == 0 {
				return Accept
			}
			return Reject
		},
	}
	resCh := runExecuteAsync(context.Background(), cbs[0], cfg, RealTimeSource())
	res := awaitResult(t, resCh)

	require.NoError(t, res.err)
	assert.Equal(t, 2, res.outcome.Value)
	assert.Equal(t, int32(2), calls.Load())
}

// TestExecute_MaxAttemptsOne_ValidatorAlwaysRejects guards against the same
// liveness bug in its simplest form: a single attempt that gets drained and
// rejected must fall through to the NoneAccepted fallback, not hang.
func TestExecute_MaxAttemptsOne_ValidatorAlwaysRejects(t *testing.T) {
	primary := func(ctx context.Context, rc *Context[struct{}], state struct{}) Outcome[int] {
		return Success(7)
	}
	cfg := Config[int, struct{}]{
		MaxAttempts: 1,
		Mode:        Parallel(),
		Validator:   func(Outcome[int]) ShouldAccept { return Reject },
	}
	res := awaitResult(t, runExecuteAsync(context.Background(), primary, cfg, RealTimeSource()))

	require.NoError(t, res.err, "exhausting the budget with no acceptance must not hang or error")
	assert.Equal(t, 7, res.outcome.Value, "NoneAccepted fallback must still surface the rejected outcome")
}

func TestExecute_AttemptPoolIsRecycled(t *testing.T) {
	pool := NewAttemptPool[int, struct{}](4)
	primary := func(ctx context.Context, rc *Context[struct{}], state struct{}) Outcome[int] {
		return Success(1)
	}
	cfg := Config[int, struct{}]{MaxAttempts: 1, Mode: Parallel()}
	_, err := Execute[int, struct{}](context.Background(), struct{}{}, primary, cfg, RealTimeSource(), pool)
	require.NoError(t, err)
	assert.Equal(t, 1, pool.Size(), "the sole attempt should be returned to the pool after teardown")
}
