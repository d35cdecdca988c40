package hedge

import (
	"sort"
	"sync"
	"time"
)

// LatencySnapshot is a point-in-time view of recent attempt latencies.
type LatencySnapshot struct {
	P50, P90, P95, P99 time.Duration
}

// pick returns the percentile named by key, or zero if key is unrecognized.
func (s LatencySnapshot) pick(key string) time.Duration {
	switch key {
	case "p50":
		return s.P50
	case "p90":
		return s.P90
	case "p95":
		return s.P95
	case "p99":
		return s.P99
	default:
		return 0
	}
}

// LatencyTracker accumulates attempt durations and reports percentiles.
type LatencyTracker interface {
	Observe(d time.Duration)
	Snapshot() LatencySnapshot
	Count() int
}

// RingBufferTracker is a fixed-size ring buffer LatencyTracker: it retains
// only the most recent window of observations and recomputes percentiles
// on demand, the same shape as aponysus-rego's RingBufferTracker and the
// teacher's LatencyTracker (windowed, sort-based quantiles rather than a
// streaming approximation, since attempt volumes here are modest).
type RingBufferTracker struct {
	mu      sync.Mutex
	samples []time.Duration
	next    int
	filled  bool
}

// NewRingBufferTracker returns a tracker retaining the most recent
// windowSize observations.
func NewRingBufferTracker(windowSize int) *RingBufferTracker {
	if windowSize < 1 {
		windowSize = 1
	}
	return &RingBufferTracker{samples: make([]time.Duration, windowSize)}
}

// Observe records one attempt's duration.
func (t *RingBufferTracker) Observe(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples[t.next] = d
	t.next = (t.next + 1) % len(t.samples)
	if t.next == 0 {
		t.filled = true
	}
}

// Count reports how many observations are currently retained.
func (t *RingBufferTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.filled {
		return len(t.samples)
	}
	return t.next
}

// Snapshot computes P50/P90/P95/P99 over the retained window.
func (t *RingBufferTracker) Snapshot() LatencySnapshot {
	t.mu.Lock()
	n := t.next
	if t.filled {
		n = len(t.samples)
	}
	sorted := make([]time.Duration, n)
	copy(sorted, t.samples[:n])
	t.mu.Unlock()

	if n == 0 {
		return LatencySnapshot{}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return LatencySnapshot{
		P50: percentileOf(sorted, 0.50),
		P90: percentileOf(sorted, 0.90),
		P95: percentileOf(sorted, 0.95),
		P99: percentileOf(sorted, 0.99),
	}
}

func percentileOf(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// AdaptiveDelay resolves a HedgingMode from a LatencyTracker instead of a
// fixed duration: the hedging delay becomes "the recent Nth percentile of
// attempt latency" until enough samples exist, falling back to a fixed
// duration until then. It plugs into the same HedgingMode seam the fixed
// modes use; the controller's algorithm is unaware a duration was computed
// this way.
type AdaptiveDelay struct {
	Tracker          LatencyTracker
	TargetPercentile string // one of "p50", "p90", "p95", "p99"
	MinSamples       int
	FallbackDelay    time.Duration
}

// Resolve computes the HedgingMode to use for the next Execute call.
func (a AdaptiveDelay) Resolve() HedgingMode {
	if a.Tracker == nil || a.Tracker.Count() < a.MinSamples {
		return AfterDelay(a.FallbackDelay)
	}
	d := a.Tracker.Snapshot().pick(a.TargetPercentile)
	if d <= 0 {
		return AfterDelay(a.FallbackDelay)
	}
	return AfterDelay(d)
}

// HedgeState is the information a Trigger sees when deciding whether to
// spawn the next hedge, grounded in aponysus-rego's hedge.HedgeState.
type HedgeState struct {
	CallStart        time.Time
	AttemptsLaunched int
	MaxAttempts      int
	Elapsed          time.Duration
	Snapshot         LatencySnapshot
}

// Trigger is a richer, pluggable alternative to HedgingMode for deciding
// when to spawn the next hedge. It is not consumed by HedgingController
// directly; adapters that want per-attempt-count or percentile-based
// spacing can poll it and feed the result back into HedgingMode via
// AfterDelay, the same way AdaptiveDelay does.
type Trigger interface {
	// ShouldSpawnHedge reports whether a hedge should fire now, and if
	// not, how long to wait before checking again.
	ShouldSpawnHedge(state HedgeState) (should bool, nextCheckIn time.Duration)
}

// FixedDelayTrigger spaces hedges by Delay times the number of attempts
// already launched, so each successive hedge waits longer than the last.
type FixedDelayTrigger struct {
	Delay time.Duration
}

func (t FixedDelayTrigger) ShouldSpawnHedge(state HedgeState) (bool, time.Duration) {
	target := t.Delay * time.Duration(state.AttemptsLaunched)
	if state.Elapsed >= target {
		return true, 0
	}
	return false, target - state.Elapsed
}

// LatencyTrigger spaces hedges by the tracked percentile of recent attempt
// latency, falling back to a short fixed check-in when no snapshot data is
// available yet.
type LatencyTrigger struct {
	Percentile    string
	FallbackDelay time.Duration
}

func (t LatencyTrigger) ShouldSpawnHedge(state HedgeState) (bool, time.Duration) {
	target := state.Snapshot.pick(t.Percentile)
	if target <= 0 {
		target = t.FallbackDelay
	}
	if state.Elapsed >= target {
		return true, 0
	}
	return false, target - state.Elapsed
}
