package hedgedhttp

import (
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/kroma-labs/hedgecore/hedge"
)

// BackoffDelaySource resolves a hedging delay from a backoff.BackOff
// instead of a single fixed duration, so hedge spacing can grow the way
// retry spacing does in the teacher's retry_transport.go/backoff.go. It
// consumes backoff.BackOff's NextBackOff step function; it does not run a
// retry loop, since retry scheduling is out of scope for this core.
type BackoffDelaySource struct {
	// New constructs a fresh BackOff for each computation. BackOff
	// instances are stateful and not safe to share across calls.
	New func() backoff.BackOff
	// Fallback is used if New is nil or the BackOff signals it has no
	// more steps.
	Fallback time.Duration
}

// NewExponentialBackoffDelaySource builds a BackoffDelaySource backed by
// backoff.NewExponentialBackOff with randomization disabled, so the delay
// for a given attempt count is the same on every call. fallback is used
// for attemptsLaunched < 1.
func NewExponentialBackoffDelaySource(fallback time.Duration) *BackoffDelaySource {
	return &BackoffDelaySource{
		New: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.RandomizationFactor = 0
			return bo
		},
		Fallback: fallback,
	}
}

// DelayForAttempt returns the delay to use before launching the attempt at
// attemptsLaunched, by replaying a fresh BackOff from the start. Replaying
// rather than caching a single BackOff means the Nth secondary always gets
// the same spacing no matter when this is called.
func (s *BackoffDelaySource) DelayForAttempt(attemptsLaunched int) time.Duration {
	if s.New == nil || attemptsLaunched < 1 {
		return s.Fallback
	}
	bo := s.New()
	d := s.Fallback
	for i := 0; i < attemptsLaunched; i++ {
		next := bo.NextBackOff()
		if next == backoff.Stop {
			return s.Fallback
		}
		d = next
	}
	return d
}

// Mode returns the HedgingMode to use for a call whose first secondary
// should fire after this source's computed delay. Growing delay spacing
// across successive secondaries within the same call is not modeled here:
// HedgingController resolves HedgingMode once per Execute call, so this
// only shapes the delay before the first hedge.
func (s *BackoffDelaySource) Mode() hedge.HedgingMode {
	return hedge.AfterDelay(s.DelayForAttempt(1))
}
