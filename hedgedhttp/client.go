package hedgedhttp

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/kroma-labs/hedgecore/hedge"
)

// Config configures a Client, matching the teacher's struct-of-fields
// configuration pattern.
type Config struct {
	// Transport performs the actual round trip for every attempt.
	Transport http.RoundTripper

	// MaxAttempts caps the number of hedged requests per Do call.
	MaxAttempts int

	// Mode controls when secondary requests are launched.
	Mode hedge.HedgingMode

	// Validator decides whether a response is acceptable. Defaults to
	// AcceptNon5xx.
	Validator hedge.Validator[*http.Response]

	// RateLimiter, if set, caps how fast secondary requests can fire.
	RateLimiter *rate.Limiter

	// Breaker, if set, gates secondary requests behind an externally
	// owned circuit breaker.
	Breaker *gobreaker.CircuitBreaker[any]

	// Debug enables verbose zerolog tracing of hedging decisions.
	Debug bool

	// Metrics, if set, records attempt/hedge instrumentation.
	Metrics *hedge.Metrics

	// Tracer, if set, wraps Do in an OTel span.
	Tracer trace.Tracer

	// Propagator, if set, injects the active trace context into every
	// attempt's outbound headers.
	Propagator propagation.TextMapPropagator
}

// DefaultConfig returns sane hedging defaults: two attempts, a hedge after
// 50ms, and acceptance of anything short of a 5xx.
func DefaultConfig() Config {
	return Config{
		Transport:   http.DefaultTransport,
		MaxAttempts: 2,
		Mode:        hedge.AfterDelay(50 * time.Millisecond),
		Validator:   AcceptNon5xx,
	}
}

// Option configures a Client, following the teacher's functional-options
// idiom (Option func(*Config)).
type Option func(*Config)

func WithTransport(rt http.RoundTripper) Option { return func(c *Config) { c.Transport = rt } }

func WithMaxAttempts(n int) Option { return func(c *Config) { c.MaxAttempts = n } }

func WithMode(mode hedge.HedgingMode) Option { return func(c *Config) { c.Mode = mode } }

func WithValidator(v hedge.Validator[*http.Response]) Option {
	return func(c *Config) { c.Validator = v }
}

func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(c *Config) { c.RateLimiter = limiter }
}

func WithBreaker(breaker *gobreaker.CircuitBreaker[any]) Option {
	return func(c *Config) { c.Breaker = breaker }
}

func WithBackoffDelay(source *BackoffDelaySource) Option {
	return func(c *Config) { c.Mode = source.Mode() }
}

func WithDebug(debug bool) Option { return func(c *Config) { c.Debug = debug } }

func WithMetrics(m *hedge.Metrics) Option { return func(c *Config) { c.Metrics = m } }

func WithTracer(t trace.Tracer) Option { return func(c *Config) { c.Tracer = t } }

func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(c *Config) { c.Propagator = p }
}

// Client hedges *http.Request round trips through hedge.Execute, replacing
// the teacher's ad hoc goroutine/channel fan-out in hedge_transport.go
// with the pooled, invariant-checked HedgingController.
type Client struct {
	cfg  Config
	pool *hedge.AttemptPool[*http.Response, *requestState]
}

// New builds a Client from opts layered over DefaultConfig.
func New(opts ...Option) *Client {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{
		cfg:  cfg,
		pool: hedge.NewAttemptPool[*http.Response, *requestState](0),
	}
}

// Do hedges req across up to cfg.MaxAttempts attempts and returns the
// first response cfg.Validator accepts. The other attempts, if any, are
// cancelled before Do returns. If no attempt is accepted, Do returns a nil
// response and an error: the last attempt's transport error, or an error
// naming the last rejected status.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	body, err := bufferBody(req)
	if err != nil {
		return nil, err
	}
	state := &requestState{original: req, body: body}
	logCurlEquivalent(c.cfg.Debug, req, body)

	cb := roundTripCallback(c.cfg.Transport, c.cfg.Propagator)
	gen := repeatGenerator(cb, c.cfg.MaxAttempts)
	if c.cfg.RateLimiter != nil {
		gen = RateLimitedGenerator(gen, c.cfg.RateLimiter)
	}
	if c.cfg.Breaker != nil {
		gen = BreakerGatedGenerator(gen, c.cfg.Breaker)
	}

	validator := c.cfg.Validator
	if validator == nil {
		validator = AcceptNon5xx
	}

	hedgeCfg := hedge.Config[*http.Response, *requestState]{
		MaxAttempts:     c.cfg.MaxAttempts,
		Mode:            c.cfg.Mode,
		ActionGenerator: gen,
		Validator:       validator,
		Debug:           c.cfg.Debug,
		Metrics:         c.cfg.Metrics,
		Tracer:          c.cfg.Tracer,
	}

	outcome, err := hedge.Execute[*http.Response, *requestState](
		req.Context(), state, cb, hedgeCfg, hedge.RealTimeSource(), c.pool,
	)
	if err != nil {
		return nil, err
	}
	if !outcome.IsSuccess() {
		return nil, outcome.Err
	}
	if validator(outcome) != hedge.Accept {
		status := 0
		if outcome.Value != nil {
			status = outcome.Value.StatusCode
			if outcome.Value.Body != nil {
				outcome.Value.Body.Close()
			}
		}
		return nil, fmt.Errorf("hedgedhttp: no attempt produced an acceptable response (last status %d)", status)
	}
	return outcome.Value, nil
}
