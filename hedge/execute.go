package hedge

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Config configures one hedged Execute call.
type Config[T any, S any] struct {
	// MaxAttempts caps the total number of attempts (primary plus
	// secondaries) ever launched. Must be >= 1.
	MaxAttempts int

	// Mode controls when secondary attempts are launched relative to
	// whatever is already running.
	Mode HedgingMode

	// ActionGenerator decides whether attempt index gets a callback. If
	// nil, DefaultActionGenerator(cb) is used: the primary alone, no
	// hedging.
	ActionGenerator ActionGenerator[T, S]

	// Validator decides whether an attempt's outcome is acceptable. If
	// nil, AcceptSuccess is used.
	Validator Validator[T]

	// OnHedging is an observer-only hook invoked, fire-and-forget, each
	// time a secondary attempt is launched. A panic inside it is
	// swallowed; it must never affect the outcome of Execute.
	OnHedging func(ctx context.Context, index int)

	// ContinueOnCapturedContext mirrors a caller's synchronization
	// context resumption preference. The core stores it on the
	// resilience Context but does not itself enforce it; acting on it is
	// left to adapters, and hedgedhttp does not set it.
	ContinueOnCapturedContext bool

	// Debug enables verbose zerolog tracing of controller decisions.
	Debug bool

	// Metrics, if non-nil, records attempt and hedging instrumentation.
	Metrics *Metrics

	// Tracer, if non-nil, wraps Execute and each attempt in an OTel span.
	Tracer trace.Tracer
}

func (c Config[T, S]) validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: MaxAttempts must be >= 1, got %d", ErrInvalidConfig, c.MaxAttempts)
	}
	return nil
}

// DefaultActionGenerator returns an ActionGenerator that runs cb once, for
// the primary attempt only, and declines every secondary. It is the
// generator Execute uses when Config.ActionGenerator is nil.
func DefaultActionGenerator[T any, S any](cb Callback[T, S]) ActionGenerator[T, S] {
	return func(index int, _ *Context[S]) (Callback[T, S], bool) {
		return cb, index == 0
	}
}

// Execute runs cb as a hedged operation: the primary attempt, plus up to
// cfg.MaxAttempts-1 secondary attempts launched per cfg.Mode, until the
// first outcome cfg.Validator accepts wins. Every other attempt is
// cancelled before Execute returns.
//
// If the operation exhausts its attempt budget or its ActionGenerator
// without any outcome being accepted, Execute returns the last attempt's
// outcome unchanged (spec.md's NoneAccepted case) rather than an error.
// Execute only returns a non-nil error when ctx is cancelled before a
// winner is chosen, when cfg fails validation, or when the
// ActionGenerator declines the primary attempt (ErrPrimaryDeclined).
func Execute[T any, S any](
	ctx context.Context,
	state S,
	cb Callback[T, S],
	cfg Config[T, S],
	ts TimeSource,
	pool *AttemptPool[T, S],
) (Outcome[T], error) {
	startedAt := time.Now()

	if err := cfg.validate(); err != nil {
		return Outcome[T]{}, err
	}
	if ts == nil {
		ts = RealTimeSource()
	}
	if pool == nil {
		pool = NewAttemptPool[T, S](0)
	}

	validator := cfg.Validator
	if validator == nil {
		validator = AcceptSuccess[T]
	}
	gen := cfg.ActionGenerator
	if gen == nil {
		gen = DefaultActionGenerator[T, S](cb)
	}

	span, spanCtx := startExecuteSpan(ctx, cfg.Tracer, cfg.MaxAttempts, cfg.Mode)
	defer span.End()

	root := NewContext[S](spanCtx, cfg.ContinueOnCapturedContext)
	defer root.Cancel()

	ctrl := newHedgingController[T, S](root, cfg.MaxAttempts, cfg.Mode, ts, pool)
	defer ctrl.dispose()

	// inFlight counts attempts added to the in-flight gauge and not yet
	// taken off it; whatever is left at return is cancelled by dispose.
	inFlight := 0
	defer func() {
		if cfg.Metrics != nil && inFlight > 0 {
			cfg.Metrics.attemptsInFlight.Add(context.Background(), -int64(inFlight))
		}
	}()

	first := ctrl.loadNext(gen, state)
	if first.attempt == nil {
		return Outcome[T]{}, ErrPrimaryDeclined
	}
	logAttemptLaunched(cfg.Debug, first.attempt)
	recordAttemptLaunched(cfg.Metrics, first.attempt)
	inFlight++
	traceAttemptStarted(span, first.attempt)

	var winner *AttemptExecution[T, S]
	var outcome Outcome[T]

	for winner == nil {
		completed, err := ctrl.tryWaitForCompletion(root.Context())
		if err != nil {
			logParentCancelled(cfg.Debug, err)
			traceExecuteCancelled(span, err)
			return Outcome[T]{}, err
		}

		if completed != nil {
			o, _ := completed.Outcome()
			recordAttemptCompleted(cfg.Metrics, completed, o)
			inFlight--

			if validator(o) == Accept {
				completed.acceptOutcome()
				winner = completed
				outcome = o
				break
			}

			logAttemptRejected(cfg.Debug, completed)
			recordAttemptRejected(cfg.Metrics, completed)
			traceAttemptRejected(span, completed)
			ctrl.lastEvaluated = completed
			continue
		}

		next := ctrl.loadNext(gen, state)
		switch {
		case next.attempt != nil:
			logAttemptLaunched(cfg.Debug, next.attempt)
			recordAttemptLaunched(cfg.Metrics, next.attempt)
			inFlight++
			traceAttemptStarted(span, next.attempt)
			notifyHedging(ctx, cfg.OnHedging, next.attempt.Index)
		case next.finished != nil:
			ctrl.lastEvaluated.acceptOutcome()
			winner = ctrl.lastEvaluated
			outcome = *next.finished
		}
		// next.noMore(): nothing to load and something is still
		// running; loop back and wait again.
	}

	root.mergeFrom(winner.Ctx)
	logAttemptAccepted(cfg.Debug, winner)
	recordWinner(cfg.Metrics, winner, time.Since(startedAt))
	traceExecuteAccepted(span, winner)

	return outcome, nil
}

func notifyHedging(ctx context.Context, hook func(context.Context, int), index int) {
	if hook == nil || index == 0 {
		return
	}
	go func() {
		defer func() { _ = recover() }()
		hook(ctx, index)
	}()
}
