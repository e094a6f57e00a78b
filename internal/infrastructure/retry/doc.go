// Package retry provides a reusable bounded-retry primitive.
//
// The source state client uses it around startup and snapshot reads
// rather than scattering ad hoc sleep-and-retry loops across call
// sites. It guarantees an upper bound on attempts and honours context
// cancellation during waits. Loops with different semantics stay where
// they belong: the telemetry collector's readiness wait is driven by a
// deadline budget, and the session's reconnect loop by unbounded
// exponential backoff.
package retry
