package hedge

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the OTel instruments Execute records against, built the
// same way the teacher's httpclient.metrics does: one constructor that
// registers every instrument up front, and nil-safe recording methods so a
// caller that never builds a Metrics still gets a zero-cost no-op.
type Metrics struct {
	attemptsLaunched  metric.Int64Counter
	hedgesLaunched    metric.Int64Counter
	attemptsRejected  metric.Int64Counter
	attemptsInFlight  metric.Int64UpDownCounter
	attemptDuration   metric.Float64Histogram
	timeToWinner      metric.Float64Histogram
}

// NewMetrics registers hedge's instruments against meter. A nil meter is
// not accepted; pass a noop meter (e.g. metric.NewMeterProvider().Meter(""))
// if metrics are unwanted -- callers that want to skip instrumentation
// entirely should instead leave Config.Metrics nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	attemptsLaunched, err := meter.Int64Counter(
		"hedge.attempts.launched",
		metric.WithDescription("Number of attempts launched, including the primary."),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	hedgesLaunched, err := meter.Int64Counter(
		"hedge.secondaries.launched",
		metric.WithDescription("Number of secondary (hedge) attempts launched."),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	attemptsRejected, err := meter.Int64Counter(
		"hedge.attempts.rejected",
		metric.WithDescription("Number of attempts whose outcome the validator rejected."),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	attemptsInFlight, err := meter.Int64UpDownCounter(
		"hedge.attempts.in_flight",
		metric.WithDescription("Number of attempts currently running."),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	attemptDuration, err := meter.Float64Histogram(
		"hedge.attempt.duration",
		metric.WithDescription("Wall-clock duration of one attempt, from launch to outcome."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	timeToWinner, err := meter.Float64Histogram(
		"hedge.execute.time_to_winner",
		metric.WithDescription("Wall-clock duration from Execute's start to the accepted attempt's outcome."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		attemptsLaunched: attemptsLaunched,
		hedgesLaunched:   hedgesLaunched,
		attemptsRejected: attemptsRejected,
		attemptsInFlight: attemptsInFlight,
		attemptDuration:  attemptDuration,
		timeToWinner:     timeToWinner,
	}, nil
}

func recordAttemptLaunched[T any, S any](m *Metrics, a *AttemptExecution[T, S]) {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.attemptsLaunched.Add(ctx, 1)
	m.attemptsInFlight.Add(ctx, 1)
	if a.Type == Secondary {
		m.hedgesLaunched.Add(ctx, 1)
	}
}

func recordAttemptCompleted[T any, S any](m *Metrics, a *AttemptExecution[T, S], _ Outcome[T]) {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.attemptsInFlight.Add(ctx, -1)
	if !a.LaunchedAt.IsZero() {
		m.attemptDuration.Record(ctx, time.Since(a.LaunchedAt).Seconds())
	}
}

func recordAttemptRejected[T any, S any](m *Metrics, _ *AttemptExecution[T, S]) {
	if m == nil {
		return
	}
	m.attemptsRejected.Add(context.Background(), 1)
}

// recordWinner records the winning attempt and the wall-clock time elapsed
// since Execute started, the way the teacher's recordTimingMetrics feeds
// its own duration histogram from a start timestamp taken at the top of the
// call, not from TimeSource, which may be virtual in tests.
func recordWinner[T any, S any](m *Metrics, _ *AttemptExecution[T, S], elapsed time.Duration) {
	if m == nil {
		return
	}
	m.timeToWinner.Record(context.Background(), elapsed.Seconds())
}
