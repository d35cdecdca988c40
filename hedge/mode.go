package hedge

import "time"

type hedgingKind int

const (
	kindAfterDelay hedgingKind = iota
	kindParallel
	kindSerial
)

// HedgingMode controls when the controller launches the next attempt
// relative to the ones already running. It replaces the single signed
// duration spec.md's pseudocode uses (positive/zero/negative) with an
// explicit tagged variant, which is the "clean reimplementation" spec.md's
// own design notes recommend: a duration that means three different things
// depending on its sign is a landmine for a caller reading the API.
type HedgingMode struct {
	kind  hedgingKind
	delay time.Duration
}

// AfterDelay hedges by launching the next attempt d after the controller
// starts waiting on the current set of running attempts, unless one of
// them finishes first. d must be positive.
func AfterDelay(d time.Duration) HedgingMode {
	if d <= 0 {
		panic("hedge: AfterDelay requires a positive duration")
	}
	return HedgingMode{kind: kindAfterDelay, delay: d}
}

// Parallel launches every attempt back to back with no hedging delay,
// bounded only by MaxAttempts.
func Parallel() HedgingMode { return HedgingMode{kind: kindParallel} }

// Serial waits for the running attempt to finish before launching the
// next one; it never runs two attempts concurrently.
func Serial() HedgingMode { return HedgingMode{kind: kindSerial} }
