// Package hedgedhttp hedges *http.Request round trips through the hedge
// package's execution core: a primary request, plus speculative secondary
// requests launched per a configurable HedgingMode, the first acceptable
// response winning while the rest are cancelled.
//
// It replaces an ad hoc per-transport goroutine/channel fan-out with the
// pooled, invariant-checked HedgingController, and wires in rate limiting,
// circuit breaking, and backoff-shaped delay as optional gates on top of
// the same generic core.
package hedgedhttp
