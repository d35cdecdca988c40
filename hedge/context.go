package hedge

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// AttemptType distinguishes the primary attempt from its speculative
// secondaries.
type AttemptType int

const (
	// Primary is the first attempt launched for an operation.
	Primary AttemptType = iota
	// Secondary is any attempt launched after the primary to hedge
	// against its latency.
	Secondary
)

func (t AttemptType) String() string {
	if t == Primary {
		return "primary"
	}
	return "secondary"
}

// AttemptTag identifies which attempt of a hedged operation a piece of user
// code is currently running inside.
type AttemptTag struct {
	Type  AttemptType
	Index int
}

// Context is the resilience context threaded through a hedged call: a
// cancellation scope, a property bag, an attempt tag, and the caller's
// synchronization-context resumption preference. It is parameterized by S,
// the caller's state type, purely so it cannot be mixed up between two
// unrelated Execute[T, S] invocations at compile time; it does not store an
// S value itself.
//
// One root Context is created per Execute call and lives for the call's
// duration. Each attempt gets its own child, cloned from the root (or, for
// nested hedging, from another attempt's context) with a fresh cancellation
// token and a copy of the properties known at clone time.
type Context[S any] struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	props map[string]any

	Tag                       AttemptTag
	ContinueOnCapturedContext bool
}

// NewContext wraps a caller's context.Context as the root resilience
// context for one Execute call.
func NewContext[S any](parent context.Context, continueOnCapturedContext bool) *Context[S] {
	ctx, cancel := context.WithCancel(parent)
	return &Context[S]{
		ctx:                       ctx,
		cancel:                    cancel,
		props:                     make(map[string]any),
		ContinueOnCapturedContext: continueOnCapturedContext,
	}
}

// Context returns the context.Context carrying this resilience context's
// cancellation signal, suitable for passing to blocking I/O.
func (c *Context[S]) Context() context.Context {
	return c.ctx
}

// Get returns a property by key.
func (c *Context[S]) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.props[key]
	return v, ok
}

// Set upserts a property.
func (c *Context[S]) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.props[key] = value
}

// snapshot returns a shallow copy of the current property bag.
func (c *Context[S]) snapshot() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]any, len(c.props))
	for k, v := range c.props {
		out[k] = v
	}
	return out
}

// child derives a per-attempt context: a fresh cancellation token that is a
// child of this context's token, a cloned property bag stamped with a new
// attempt correlation id, and the given tag. Cancelling the child never
// affects c or any sibling attempt.
func (c *Context[S]) child(tag AttemptTag) *Context[S] {
	ctx, cancel := context.WithCancel(c.ctx)

	props := c.snapshot()
	props["attempt.id"] = uuid.NewString()

	return &Context[S]{
		ctx:                       ctx,
		cancel:                    cancel,
		props:                     props,
		Tag:                       tag,
		ContinueOnCapturedContext: c.ContinueOnCapturedContext,
	}
}

// mergeFrom upserts every property of other into c. Used to commit the
// winning attempt's properties into the root context on acceptance.
func (c *Context[S]) mergeFrom(other *Context[S]) {
	snapshot := other.snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range snapshot {
		c.props[k] = v
	}
}

// Cancel cancels this context's token. Idempotent.
func (c *Context[S]) Cancel() {
	c.cancel()
}
