// Package gateway drives the periodic discovery and telemetry push
// cycles and owns the active device catalog.
//
// One goroutine runs the loop: an optional startup delay, an initial
// discovery and push, then pushes on a fixed cadence with periodic
// rediscovery. Each discovery swaps in a freshly-built catalog via
// atomic pointer, so the command bridge reading on the session delivery
// goroutine never sees a partially-built map. A failed rediscovery
// keeps the previous catalog in service.
//
// Shutdown is cooperative: on context cancellation the loop stops
// scheduling cycles and returns; in-flight calls finish within their
// own timeouts.
package gateway
