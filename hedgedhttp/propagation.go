package hedgedhttp

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/propagation"
)

// headerCarrier adapts http.Header to propagation.TextMapCarrier, the same
// adaptation the teacher's trace.go performs before injecting W3C trace
// context into outbound request headers.
type headerCarrier http.Header

func (h headerCarrier) Get(key string) string { return http.Header(h).Get(key) }

func (h headerCarrier) Set(key, value string) { http.Header(h).Set(key, value) }

func (h headerCarrier) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	return keys
}

// injectTraceContext writes the active trace context from ctx into req's
// headers so every hedge attempt, including secondaries, remains part of
// the same logical trace on the far side. A nil propagator is a no-op.
func injectTraceContext(ctx context.Context, propagator propagation.TextMapPropagator, req *http.Request) {
	if propagator == nil {
		return
	}
	propagator.Inject(ctx, headerCarrier(req.Header))
}
