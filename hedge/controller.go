package hedge

import (
	"context"
	"time"
)

// HedgingController runs one hedged operation: it owns the set of attempts
// launched so far, decides when to launch the next one, and tears every
// attempt down once a winner is chosen or the parent is cancelled.
//
// A HedgingController is single-use: construct one per Execute call and
// discard it once dispose has run.
type HedgingController[T any, S any] struct {
	attempts    []*AttemptExecution[T, S]
	running     int
	primary     *Context[S]
	maxAttempts int
	mode        HedgingMode
	ts          TimeSource
	pool        *AttemptPool[T, S]

	completions chan *AttemptExecution[T, S]

	// lastEvaluated is the most recently rejected (or otherwise not
	// accepted) attempt observed by the caller's loop. It is the fallback
	// the NoneAccepted case returns once no further attempt can be
	// loaded: spec.md section 7 and its worked example both specify
	// returning the *last* attempt's outcome, not an arbitrary earlier
	// one, so the controller tracks it explicitly rather than scanning
	// attempts.
	lastEvaluated *AttemptExecution[T, S]
}

func newHedgingController[T any, S any](primary *Context[S], maxAttempts int, mode HedgingMode, ts TimeSource, pool *AttemptPool[T, S]) *HedgingController[T, S] {
	return &HedgingController[T, S]{
		primary:     primary,
		maxAttempts: maxAttempts,
		mode:        mode,
		ts:          ts,
		pool:        pool,
		completions: make(chan *AttemptExecution[T, S], maxAttempts),
	}
}

// loadResult is the outcome of loadNext: exactly one field is meaningful.
type loadResult[T any, S any] struct {
	attempt  *AttemptExecution[T, S] // set when a new attempt was launched
	finished *Outcome[T]             // set when the NoneAccepted fallback fires
}

func (r loadResult[T, S]) noMore() bool {
	return r.attempt == nil && r.finished == nil
}

// loadNext asks gen for the next attempt's callback and, if one is
// produced, launches it. It returns NoMoreAttempts (the zero loadResult)
// when the attempt budget is exhausted or gen declines, unless nothing is
// currently running, in which case it falls back to lastEvaluated's
// outcome so the top-level loop always terminates.
func (c *HedgingController[T, S]) loadNext(gen ActionGenerator[T, S], state S) loadResult[T, S] {
	if len(c.attempts) >= c.maxAttempts {
		return c.terminal()
	}

	index := len(c.attempts)
	atype := Primary
	if index > 0 {
		atype = Secondary
	}

	cb, ok := gen(index, c.primary)
	if !ok || cb == nil {
		return c.terminal()
	}

	attempt := c.pool.Get()
	attempt.initialize(atype, index, c.primary, cb, state, func() {
		select {
		case c.completions <- attempt:
		default:
		}
	})

	c.attempts = append(c.attempts, attempt)
	c.running++
	return loadResult[T, S]{attempt: attempt}
}

func (c *HedgingController[T, S]) terminal() loadResult[T, S] {
	if c.running == 0 && c.lastEvaluated != nil {
		outcome, _ := c.lastEvaluated.Outcome()
		return loadResult[T, S]{finished: &outcome}
	}
	return loadResult[T, S]{}
}

// tryWaitForCompletion implements spec.md's five-step decision: return an
// already-completed attempt for the caller to evaluate, block until one
// completes, or return (nil, nil) to signal "load the next attempt now."
// ctx is the root resilience context's Go context; its cancellation ends
// any blocking wait with ctx.Err(). An attempt that had already completed
// before the call is still returned by step 1 without checking ctx.
func (c *HedgingController[T, S]) tryWaitForCompletion(ctx context.Context) (*AttemptExecution[T, S], error) {
	// Step 1: an attempt already finished since we last checked.
	if a := c.drain(); a != nil {
		return a, nil
	}

	// Step 2: attempt budget exhausted. If something is still running,
	// block for it; otherwise there is nothing left to wait for, so fall
	// through to the caller's loadNext/terminal fallback instead of
	// blocking forever on a completions channel nothing will ever fill.
	if len(c.attempts) >= c.maxAttempts {
		if c.running == 0 {
			return nil, nil
		}
		return c.block(ctx)
	}

	// Step 3: immediate fan-out, or nothing launched yet.
	if c.mode.kind == kindParallel || len(c.attempts) == 0 {
		return nil, nil
	}

	// Step 4: strictly serial hedging never overlaps attempts, but only
	// blocks when the one attempt allowed to be in flight actually is;
	// once it has been drained and rejected, running is back to zero and
	// the caller must load the next attempt rather than block.
	if c.mode.kind == kindSerial {
		if c.running == 0 {
			return nil, nil
		}
		return c.block(ctx)
	}

	// Step 5: race the hedging delay against the next completion.
	return c.race(ctx, c.mode.delay)
}

func (c *HedgingController[T, S]) drain() *AttemptExecution[T, S] {
	select {
	case a := <-c.completions:
		c.running--
		return a
	default:
		return nil
	}
}

func (c *HedgingController[T, S]) block(ctx context.Context) (*AttemptExecution[T, S], error) {
	select {
	case a := <-c.completions:
		c.running--
		return a, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *HedgingController[T, S]) race(ctx context.Context, d time.Duration) (*AttemptExecution[T, S], error) {
	timerC, stop := c.ts.After(d)
	defer stop()

	select {
	case a := <-c.completions:
		c.running--
		return a, nil
	case <-timerC:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// dispose cancels every launched attempt, awaits each one's task, and
// returns it to the pool. It runs exactly once per Execute call, on every
// exit path -- success, NoneAccepted, or parent cancellation -- so no
// attempt's goroutine outlives the call that launched it.
func (c *HedgingController[T, S]) dispose() {
	for _, a := range c.attempts {
		a.Cancel()
	}
	for _, a := range c.attempts {
		<-a.Done()
		c.pool.Put(a)
	}
}
