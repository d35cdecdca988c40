package hedgedhttp

import (
	"github.com/sony/gobreaker/v2"

	"github.com/kroma-labs/hedgecore/hedge"
)

// BreakerGatedGenerator wraps gen so secondary attempts are declined while
// breaker reports its circuit open. breaker is externally owned: this
// package only consumes it, the same way the teacher's client.go composes
// its circuit-breaker transport around a caller-supplied breaker rather
// than implementing one. The hedge core never learns circuit breaking
// exists; it just sees an ActionGenerator that sometimes declines.
func BreakerGatedGenerator[T any, S any](gen hedge.ActionGenerator[T, S], breaker *gobreaker.CircuitBreaker[any]) hedge.ActionGenerator[T, S] {
	return func(index int, parent *hedge.Context[S]) (hedge.Callback[T, S], bool) {
		if index > 0 && breaker.State() == gobreaker.StateOpen {
			return nil, false
		}
		return gen(index, parent)
	}
}
