package hedgedhttp

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/propagation"

	"github.com/kroma-labs/hedgecore/hedge"
)

// requestState is the per-Do state threaded through hedge.Execute: the
// original request and its buffered body, shared read-only across every
// attempt's cloned request.
type requestState struct {
	original *http.Request
	body     []byte
}

// AcceptNon5xx is the default Validator: a transport error is always
// rejected so a later attempt gets a chance, and a response is accepted
// unless its status is a server error.
func AcceptNon5xx(o hedge.Outcome[*http.Response]) hedge.ShouldAccept {
	if !o.IsSuccess() {
		return hedge.Reject
	}
	if o.Value != nil && o.Value.StatusCode >= http.StatusInternalServerError {
		return hedge.Reject
	}
	return hedge.Accept
}

// roundTripCallback builds the hedge.Callback every attempt runs: clone
// the shared request onto the attempt's own context and body reader,
// inject trace context, and round-trip it.
func roundTripCallback(transport http.RoundTripper, propagator propagation.TextMapPropagator) hedge.Callback[*http.Response, *requestState] {
	return func(ctx context.Context, rc *hedge.Context[*requestState], state *requestState) hedge.Outcome[*http.Response] {
		attemptReq := cloneRequestWithBody(ctx, state.original, state.body)
		injectTraceContext(ctx, propagator, attemptReq)

		resp, err := transport.RoundTrip(attemptReq)
		if err != nil {
			return hedge.Failure[*http.Response](err)
		}
		return hedge.Success(resp)
	}
}

// repeatGenerator produces an ActionGenerator that reuses the same
// callback for every attempt up to maxAttempts and declines beyond it.
// hedgedhttp never needs a different operation per index, only a decision
// about how many times to repeat the same one.
func repeatGenerator(cb hedge.Callback[*http.Response, *requestState], maxAttempts int) hedge.ActionGenerator[*http.Response, *requestState] {
	return func(index int, _ *hedge.Context[*requestState]) (hedge.Callback[*http.Response, *requestState], bool) {
		return cb, index < maxAttempts
	}
}
