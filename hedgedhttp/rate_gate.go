package hedgedhttp

import (
	"golang.org/x/time/rate"

	"github.com/kroma-labs/hedgecore/hedge"
)

// RateLimitedGenerator wraps gen so secondary attempts are declined once a
// token isn't immediately available from limiter, capping how fast hedges
// can fan out independent of MaxAttempts. The primary attempt is never
// gated, matching the teacher's rate_limit.go, which never throttles the
// first request of a chain either.
func RateLimitedGenerator[T any, S any](gen hedge.ActionGenerator[T, S], limiter *rate.Limiter) hedge.ActionGenerator[T, S] {
	return func(index int, parent *hedge.Context[S]) (hedge.Callback[T, S], bool) {
		if index > 0 && !limiter.Allow() {
			return nil, false
		}
		return gen(index, parent)
	}
}
