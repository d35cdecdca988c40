package hedge

import "sync"

// AttemptPool is a bounded (or unbounded, when capacity <= 0) concurrent
// free-list of reusable AttemptExecution instances, grounded in the same
// mutex-guarded map idiom the teacher uses for its per-client coalesce
// groups: a small critical section around a plain slice, no lock-free
// cleverness needed at this contention level.
type AttemptPool[T any, S any] struct {
	mu   sync.Mutex
	free []*AttemptExecution[T, S]
	cap  int
}

// NewAttemptPool returns a pool that retains at most capacity idle
// attempts. A non-positive capacity means unbounded retention.
func NewAttemptPool[T any, S any](capacity int) *AttemptPool[T, S] {
	return &AttemptPool[T, S]{cap: capacity}
}

// Get returns a reusable attempt, or a freshly allocated one on a miss.
func (p *AttemptPool[T, S]) Get() *AttemptExecution[T, S] {
	p.mu.Lock()
	n := len(p.free)
	if n == 0 {
		p.mu.Unlock()
		return newAttemptExecution[T, S]()
	}
	a := p.free[n-1]
	p.free[n-1] = nil
	p.free = p.free[:n-1]
	p.mu.Unlock()
	return a
}

// Put resets and returns a to the free list. An attempt whose task has not
// completed is dropped rather than recycled: returning an in-flight
// attempt to the pool is the invariant violation spec.md's error taxonomy
// calls internal and expects to never occur. HedgingController.dispose
// always cancels and awaits every attempt before calling Put, so this path
// only guards against a future caller of the pool that doesn't.
func (p *AttemptPool[T, S]) Put(a *AttemptExecution[T, S]) {
	if a == nil || !a.Finished() {
		return
	}
	a.reset()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cap > 0 && len(p.free) >= p.cap {
		return
	}
	p.free = append(p.free, a)
}

// Size reports the number of idle attempts currently held.
func (p *AttemptPool[T, S]) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
