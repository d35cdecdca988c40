package hedge

import "errors"

var (
	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("hedge: invalid config")

	// ErrPrimaryDeclined is returned if an ActionGenerator refuses to
	// produce a callback for the primary attempt (index 0). The contract
	// requires the primary always run; a generator that declines it is a
	// caller bug.
	ErrPrimaryDeclined = errors.New("hedge: action generator declined the primary attempt")

	// ErrInvariantViolation indicates an internal bug: something tried to
	// treat an attempt as complete while its task was still running. This
	// should never occur in normal operation; AttemptPool.Put defends
	// against it by dropping the offending attempt instead of recycling
	// it.
	ErrInvariantViolation = errors.New("hedge: invariant violation")
)
