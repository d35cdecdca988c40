// Package hedge implements request hedging: launching a primary attempt at
// an operation, then one or more speculative secondary attempts after a
// delay, and returning the first outcome a caller-supplied validator
// accepts. The remaining attempts are cancelled once a winner is chosen.
//
// The package is transport-agnostic. It knows nothing about HTTP, gRPC, or
// any other wire protocol; it operates purely on generic callbacks that
// produce an Outcome[T]. See the hedgedhttp package for a concrete HTTP
// consumer built on top of Execute.
//
// The core type is HedgingController, driven through the package-level
// Execute function. Callers rarely construct a HedgingController directly;
// Execute owns its lifecycle for the duration of a single call.
package hedge
